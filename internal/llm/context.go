package llm

import "context"

type contextKey string

const (
	purposeKey contextKey = "llm_purpose"
	sessionKey contextKey = "llm_session"
)

// WithPurpose attaches a purpose label to the context for event logging.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// WithSession tags the context with the tutoring session a request serves.
func WithSession(ctx context.Context, sessionID int64) context.Context {
	return context.WithValue(ctx, sessionKey, sessionID)
}

// SessionFrom returns the session tag, or 0 when the request is not tied
// to a session (e.g. a cached exposition warm-up).
func SessionFrom(ctx context.Context) int64 {
	if v, ok := ctx.Value(sessionKey).(int64); ok {
		return v
	}
	return 0
}
