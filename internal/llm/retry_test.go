package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

// newTestRetry builds a RetryProvider whose sleeps are recorded instead of
// taken.
func newTestRetry(p Provider, cfg RetryConfig) (*RetryProvider, *[]time.Duration) {
	var waits []time.Duration
	r := WithRetry(p, cfg).(*RetryProvider)
	r.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return r, &waits
}

func down() MockResponse {
	return MockError(&ErrProviderUnavailable{Err: errors.New("down")})
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	mock := NewMockProvider(MockText("Let's look at fractions."))
	p, waits := newTestRetry(mock, DefaultRetryConfig())

	resp, err := p.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "Let's look at fractions." {
		t.Fatalf("unexpected content: %s", resp.Content)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
	if len(*waits) != 0 {
		t.Fatalf("expected no waits, got %v", *waits)
	}
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	mock := NewMockProvider(down(), MockText("ok"))
	p, waits := newTestRetry(mock, DefaultRetryConfig())

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.CallCount())
	}
	if len(*waits) != 1 || (*waits)[0] != time.Second {
		t.Fatalf("waits = %v, want [1s]", *waits)
	}
}

func TestRetry_ExhaustionReturnsGenerationFailure(t *testing.T) {
	last := errors.New("third strike")
	mock := NewMockProvider(down(), down(), MockError(last))
	p, waits := newTestRetry(mock, DefaultRetryConfig())

	_, err := p.Generate(context.Background(), Request{})

	var gf *GenerationFailure
	if !errors.As(err, &gf) {
		t.Fatalf("expected GenerationFailure, got: %T (%v)", err, err)
	}
	if gf.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", gf.Attempts)
	}
	if !errors.Is(err, last) {
		t.Fatalf("expected GenerationFailure to wrap the last error, got %v", gf.Err)
	}
	if mock.CallCount() != 3 {
		t.Fatalf("expected 3 calls, got %d", mock.CallCount())
	}

	// 2^attempt seconds between attempts, no sleep after the last.
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(*waits) != len(want) {
		t.Fatalf("waits = %v, want %v", *waits, want)
	}
	for i := range want {
		if (*waits)[i] != want[i] {
			t.Errorf("wait[%d] = %s, want %s", i, (*waits)[i], want[i])
		}
	}
}

func TestRetry_AnyFailureIsRetried(t *testing.T) {
	mock := NewMockProvider(
		MockError(&ErrMaxTokensExceeded{}),
		MockError(&ErrInvalidResponse{Err: errors.New("bad")}),
		MockText("ok"),
	)
	p, _ := newTestRetry(mock, DefaultRetryConfig())

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.CallCount() != 3 {
		t.Fatalf("expected 3 calls, got %d", mock.CallCount())
	}
}

func TestRetry_ContextCancellationStops(t *testing.T) {
	mock := NewMockProvider(down(), down(), MockText("ok"))
	p, _ := newTestRetry(mock, DefaultRetryConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Generate(ctx, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
}

func TestRetry_RateLimitRetryAfterWins(t *testing.T) {
	mock := NewMockProvider(
		MockError(&ErrRateLimit{RetryAfter: 5 * time.Second, Err: errors.New("429")}),
		MockText("ok"),
	)
	p, waits := newTestRetry(mock, DefaultRetryConfig())

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*waits) != 1 || (*waits)[0] != 5*time.Second {
		t.Fatalf("waits = %v, want [5s]", *waits)
	}
}

func TestRetry_MaxWaitCaps(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 4, InitialWait: time.Second, MaxWait: 3 * time.Second, Multiplier: 2}
	mock := NewMockProvider(down(), down(), down(), down())
	p, waits := newTestRetry(mock, cfg)

	_, _ = p.Generate(context.Background(), Request{})

	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}
	for i := range want {
		if (*waits)[i] != want[i] {
			t.Errorf("wait[%d] = %s, want %s", i, (*waits)[i], want[i])
		}
	}
}

func TestRetry_ModelIDDelegates(t *testing.T) {
	p := WithRetry(NewMockProvider(), DefaultRetryConfig())
	if p.ModelID() != "mock" {
		t.Fatalf("expected 'mock', got %q", p.ModelID())
	}
}
