// Package session hosts the tutor for individual tutoring sessions: it
// owns the session record, serializes turns per session, persists the
// transcript and mirrors progress counters.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abhisek/bloom/internal/llm"
	"github.com/abhisek/bloom/internal/store"
	"github.com/abhisek/bloom/internal/tutor"
)

var (
	// ErrNotActive is returned for operations on completed or abandoned sessions.
	ErrNotActive = errors.New("session is not active")

	// ErrBusy is returned when a turn is already running for the session.
	ErrBusy = errors.New("session is busy with another message")
)

// Config holds session service settings.
type Config struct {
	// CompletionThreshold is how many correct answers complete a subtopic.
	CompletionThreshold int

	// TurnTimeout bounds one turn. Zero means no limit.
	TurnTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		CompletionThreshold: 3,
		TurnTimeout:         2 * time.Minute,
	}
}

// Turn is the outcome of a session operation that ran the tutor.
type Turn struct {
	Session *store.Session
	State   *tutor.State

	// NewMessages are the transcript entries this operation added.
	NewMessages []tutor.Message

	// Contained reports that the turn ended in an apology; Retry is
	// available.
	Contained bool

	// Capped reports that the turn hit the iteration cap.
	Capped bool
}

// Service manages tutoring sessions.
type Service struct {
	st     *store.Store
	agent  *tutor.Agent
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	inflight map[int64]struct{}
}

// NewService creates a session service.
func NewService(st *store.Store, agent *tutor.Agent, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CompletionThreshold <= 0 {
		cfg.CompletionThreshold = DefaultConfig().CompletionThreshold
	}
	return &Service{
		st:       st,
		agent:    agent,
		cfg:      cfg,
		logger:   logger,
		inflight: make(map[int64]struct{}),
	}
}

// acquire marks a turn in flight for id. At most one turn per session
// runs at a time; a second caller gets ErrBusy.
func (s *Service) acquire(id int64) (release func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[id]; busy {
		return nil, ErrBusy
	}
	s.inflight[id] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inflight, id)
		s.mu.Unlock()
	}, nil
}

func (s *Service) turnContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.TurnTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.TurnTimeout)
	}
	return context.WithCancel(ctx)
}

// Start opens a new session on a subtopic and delivers the opening
// exposition.
func (s *Service) Start(ctx context.Context, subtopicID int64) (*Turn, error) {
	name, err := s.st.SyllabusRepo().SubtopicName(ctx, subtopicID)
	if err != nil {
		return nil, fmt.Errorf("start session: subtopic %d: %w", subtopicID, err)
	}

	sess, err := s.st.SessionRepo().Create(ctx, subtopicID)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With(slog.Int64("session_id", sess.ID), slog.Int64("subtopic_id", subtopicID))
	logger.Info("session started", slog.String("subtopic", name))

	release, err := s.acquire(sess.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	turnCtx, cancel := s.turnContext(ctx)
	defer cancel()
	state, res, err := s.agent.Start(llm.WithSession(turnCtx, sess.ID), subtopicID, name)
	if err != nil {
		return nil, err
	}
	if err := s.agent.Save(ctx, sess.ID, state); err != nil {
		return nil, err
	}
	if _, err := s.st.ProgressRepo().Record(ctx, subtopicID, 0, 0, s.cfg.CompletionThreshold); err != nil {
		logger.Warn("failed to touch progress", slog.String("error", err.Error()))
	}

	added, err := s.persistMessages(ctx, sess.ID, state)
	if err != nil {
		return nil, err
	}
	return &Turn{
		Session:     sess,
		State:       state,
		NewMessages: added,
		Contained:   res.Contained != nil,
	}, nil
}

// Send delivers a student message and runs one tutor turn.
func (s *Service) Send(ctx context.Context, id int64, content string) (*Turn, error) {
	return s.runTurn(ctx, id, func(turnCtx context.Context) (*tutor.State, tutor.TurnResult, error) {
		return s.agent.Advance(turnCtx, id, content)
	})
}

// Retry re-runs the current node of a session whose last turn failed.
func (s *Service) Retry(ctx context.Context, id int64) (*Turn, error) {
	return s.runTurn(ctx, id, func(turnCtx context.Context) (*tutor.State, tutor.TurnResult, error) {
		return s.agent.Retry(turnCtx, id)
	})
}

func (s *Service) runTurn(ctx context.Context, id int64, run func(context.Context) (*tutor.State, tutor.TurnResult, error)) (*Turn, error) {
	release, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.activeSession(ctx, id)
	if err != nil {
		return nil, err
	}

	turnCtx, cancel := s.turnContext(ctx)
	defer cancel()
	state, res, err := run(turnCtx)
	if err != nil {
		return nil, err
	}

	added, err := s.persistMessages(ctx, id, state)
	if err != nil {
		return nil, err
	}
	sess, err = s.mirrorProgress(ctx, sess, state)
	if err != nil {
		return nil, err
	}

	return &Turn{
		Session:     sess,
		State:       state,
		NewMessages: added,
		Contained:   res.Contained != nil,
		Capped:      res.Capped,
	}, nil
}

// persistMessages appends to the message log every state message beyond
// what the log already holds, and returns them.
func (s *Service) persistMessages(ctx context.Context, id int64, state *tutor.State) ([]tutor.Message, error) {
	logged, err := s.st.MessageRepo().Count(ctx, id)
	if err != nil {
		return nil, err
	}
	if logged >= len(state.Messages) {
		return nil, nil
	}
	added := state.Messages[logged:]
	for _, m := range added {
		if err := s.st.MessageRepo().Append(ctx, id, string(m.Role), m.Content, m.Timestamp); err != nil {
			return nil, err
		}
	}
	return added, nil
}

// mirrorProgress copies the state's counters onto the session record and
// folds the change into subtopic progress.
func (s *Service) mirrorProgress(ctx context.Context, sess *store.Session, state *tutor.State) (*store.Session, error) {
	d := deltaFor(sess, state)
	if d.zero() {
		return sess, nil
	}
	if err := s.st.SessionRepo().UpdateCounters(ctx, sess.ID, state.QuestionsAttempted, state.QuestionsCorrect); err != nil {
		return nil, err
	}
	p, err := s.st.ProgressRepo().Record(ctx, sess.SubtopicID, d.Attempted, d.Correct, s.cfg.CompletionThreshold)
	if err != nil {
		return nil, err
	}
	if p.IsComplete && d.Correct > 0 {
		s.logger.Info("subtopic complete",
			slog.Int64("session_id", sess.ID),
			slog.Int64("subtopic_id", sess.SubtopicID),
			slog.Int("correct", p.Correct))
	}
	return s.st.SessionRepo().Get(ctx, sess.ID)
}

func (s *Service) activeSession(ctx context.Context, id int64) (*store.Session, error) {
	sess, err := s.st.SessionRepo().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != store.SessionActive {
		return nil, fmt.Errorf("session %d is %s: %w", id, sess.Status, ErrNotActive)
	}
	return sess, nil
}

// Resume returns a session with its checkpointed state.
func (s *Service) Resume(ctx context.Context, id int64) (*Turn, error) {
	sess, err := s.st.SessionRepo().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	state, err := s.agent.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Turn{Session: sess, State: state}, nil
}

// Transcript returns the persisted message log of a session.
func (s *Service) Transcript(ctx context.Context, id int64) ([]store.MessageEntry, error) {
	if _, err := s.st.SessionRepo().Get(ctx, id); err != nil {
		return nil, err
	}
	return s.st.MessageRepo().List(ctx, id)
}

// Abandon marks an active session abandoned.
func (s *Service) Abandon(ctx context.Context, id int64) error {
	return s.finish(ctx, id, store.SessionAbandoned)
}

// Complete marks an active session completed and returns its summary.
func (s *Service) Complete(ctx context.Context, id int64) (*Summary, error) {
	if err := s.finish(ctx, id, store.SessionCompleted); err != nil {
		return nil, err
	}
	return s.Summary(ctx, id)
}

func (s *Service) finish(ctx context.Context, id int64, status store.SessionStatus) error {
	release, err := s.acquire(id)
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.activeSession(ctx, id); err != nil {
		return err
	}
	if err := s.st.SessionRepo().SetStatus(ctx, id, status); err != nil {
		return err
	}
	s.logger.Info("session finished", slog.Int64("session_id", id), slog.String("status", string(status)))
	return nil
}

// AbandonAll abandons every active session and returns how many changed.
func (s *Service) AbandonAll(ctx context.Context) (int64, error) {
	n, err := s.st.SessionRepo().AbandonAll(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("abandoned active sessions", slog.Int64("count", n))
	return n, nil
}

// RecordCalculation logs a calculator operation against an active session.
func (s *Service) RecordCalculation(ctx context.Context, id int64, expression, result string) error {
	release, err := s.acquire(id)
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.activeSession(ctx, id); err != nil {
		return err
	}
	if _, err := s.agent.RecordCalculation(ctx, id, expression, result); err != nil {
		return err
	}
	return s.st.CalculatorRepo().Append(ctx, id, expression, result)
}

// Summary describes a session's outcome so far.
func (s *Service) Summary(ctx context.Context, id int64) (*Summary, error) {
	sess, err := s.st.SessionRepo().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	n, err := s.st.MessageRepo().Count(ctx, id)
	if err != nil {
		return nil, err
	}
	return BuildSummary(sess, n), nil
}
