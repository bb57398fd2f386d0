package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit     int       // max results (0 = unlimited)
	After     int64     // sequence > After
	Before    int64     // sequence < Before
	From      time.Time // timestamp >= From
	To        time.Time // timestamp <= To
	SessionID int64     // 0 = any session
	Purpose   string    // "" = any purpose
}

// Topic is a top-level syllabus area, e.g. "Algebra".
type Topic struct {
	ID          int64
	Name        string
	Description string
	Subtopics   []Subtopic
}

// Subtopic is a single teachable unit within a topic.
type Subtopic struct {
	ID          int64
	TopicID     int64
	Name        string
	Description string
}

// SessionStatus is the lifecycle state of a tutoring session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// Session is a tutoring session on one subtopic.
type Session struct {
	ID                 int64
	SubtopicID         int64
	SubtopicName       string
	Status             SessionStatus
	QuestionsAttempted int
	QuestionsCorrect   int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// MessageEntry is one persisted line of a session transcript.
type MessageEntry struct {
	ID        int64
	SessionID int64
	Role      string
	Content   string
	Timestamp time.Time
}

// Progress is the cumulative record for one subtopic.
type Progress struct {
	SubtopicID   int64
	Attempted    int
	Correct      int
	IsComplete   bool
	LastAccessed time.Time
}

// TopicProgress aggregates subtopic progress for one topic.
type TopicProgress struct {
	TopicID           int64
	TopicName         string
	Subtopics         int
	Completed         int
	Attempted         int
	Correct           int
	CompletionPercent float64
}

// CachedExposition is the stored introductory lesson for a subtopic.
type CachedExposition struct {
	SubtopicID      int64
	Content         string
	GeneratedAt     time.Time
	ModelIdentifier string
}

// Calculation is one calculator operation logged during a session.
type Calculation struct {
	ID         int64
	SessionID  int64
	Expression string
	Result     string
	Timestamp  time.Time
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	SessionID    int64
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates token usage for one purpose.
type LLMUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// LLMModelUsage aggregates token usage for one model.
type LLMModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// CheckpointRepo persists serialized tutor state keyed by session.
type CheckpointRepo interface {
	// Save upserts the blob for sessionID.
	Save(ctx context.Context, sessionID int64, blob []byte) error

	// Load returns the blob for sessionID, or ErrNotFound.
	Load(ctx context.Context, sessionID int64) ([]byte, error)

	// Delete removes the checkpoint for sessionID, if any.
	Delete(ctx context.Context, sessionID int64) error
}

// ExpositionRepo caches one generated exposition per subtopic.
type ExpositionRepo interface {
	// Get returns the cached exposition, or nil when absent.
	Get(ctx context.Context, subtopicID int64) (*CachedExposition, error)

	// Put stores content for subtopicID, replacing any prior entry.
	Put(ctx context.Context, subtopicID int64, content, modelIdentifier string) error

	// Delete removes the entry for subtopicID. It reports whether a row existed.
	Delete(ctx context.Context, subtopicID int64) (bool, error)

	// DeleteAll empties the cache and returns the number of rows removed.
	DeleteAll(ctx context.Context) (int64, error)

	// List returns all cached expositions ordered by subtopic.
	List(ctx context.Context) ([]CachedExposition, error)
}

// SessionRepo manages tutoring session rows.
type SessionRepo interface {
	Create(ctx context.Context, subtopicID int64) (*Session, error)

	// Get returns the session, or ErrNotFound.
	Get(ctx context.Context, id int64) (*Session, error)

	// List returns sessions newest first, optionally filtered by status.
	List(ctx context.Context, status SessionStatus, limit int) ([]Session, error)

	UpdateCounters(ctx context.Context, id int64, attempted, correct int) error
	SetStatus(ctx context.Context, id int64, status SessionStatus) error

	// AbandonAll marks every active session abandoned and returns the count.
	AbandonAll(ctx context.Context) (int64, error)
}

// MessageRepo stores session transcripts.
type MessageRepo interface {
	Append(ctx context.Context, sessionID int64, role, content string, ts time.Time) error
	List(ctx context.Context, sessionID int64) ([]MessageEntry, error)
	Count(ctx context.Context, sessionID int64) (int, error)
}

// ProgressRepo tracks per-subtopic completion.
type ProgressRepo interface {
	// Record adds the deltas for subtopicID and marks it complete once
	// correct reaches threshold.
	Record(ctx context.Context, subtopicID int64, attemptedDelta, correctDelta, threshold int) (*Progress, error)

	// Get returns the progress row, or a zero Progress when absent.
	Get(ctx context.Context, subtopicID int64) (*Progress, error)

	// TopicSummary aggregates completion per topic.
	TopicSummary(ctx context.Context) ([]TopicProgress, error)

	// Reset clears all progress.
	Reset(ctx context.Context) error
}

// SyllabusRepo stores the topic/subtopic tree.
type SyllabusRepo interface {
	// Load replaces the syllabus with topics in one transaction.
	Load(ctx context.Context, topics []Topic) error

	// SubtopicName returns the name of subtopicID, or ErrNotFound.
	SubtopicName(ctx context.Context, subtopicID int64) (string, error)

	// Topics returns the full tree ordered by id.
	Topics(ctx context.Context) ([]Topic, error)
}

// CalculatorRepo logs calculator operations.
type CalculatorRepo interface {
	Append(ctx context.Context, sessionID int64, expression, result string) error
	List(ctx context.Context, sessionID int64) ([]Calculation, error)
}

// EventRepo provides append and query access to the LLM request log.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)

	// GetLLMEvent returns one event, or nil when absent.
	GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error)

	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)
	LLMUsageByModel(ctx context.Context) ([]LLMModelUsage, error)
}
