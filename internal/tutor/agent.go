package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/bloom/internal/llm"
)

// ErrEmptyMessage is returned when a student message has no content.
var ErrEmptyMessage = errors.New("student message is empty")

// CheckpointStore persists serialized state per session.
// store.CheckpointRepo satisfies it.
type CheckpointStore interface {
	Save(ctx context.Context, sessionID int64, blob []byte) error

	// Load returns store.ErrNotFound when the session has no checkpoint.
	Load(ctx context.Context, sessionID int64) ([]byte, error)
}

// Agent is the tutor's public face: it loads a session's checkpoint, runs
// the turn loop and writes the checkpoint back. Callers must not run two
// turns for the same session at once.
type Agent struct {
	engine      *Engine
	checkpoints CheckpointStore
}

// NewAgent creates an Agent.
func NewAgent(engine *Engine, checkpoints CheckpointStore) *Agent {
	return &Agent{engine: engine, checkpoints: checkpoints}
}

// Start creates the state for a new session and runs exposition once.
// The state is not checkpointed; call Save once the session has an ID.
func (a *Agent) Start(ctx context.Context, subtopicID int64, subtopicName string) (*State, TurnResult, error) {
	if subtopicID <= 0 {
		return nil, TurnResult{}, fmt.Errorf("start tutor: invalid subtopic id %d", subtopicID)
	}
	s := NewState(subtopicID, subtopicName)
	res := a.engine.RunNode(ctx, s)
	return s, res, nil
}

// Advance records a student message and runs one turn. The checkpoint is
// written even if ctx expired during the turn, so contained timeouts
// still leave their apology in the saved state.
func (a *Agent) Advance(ctx context.Context, sessionID int64, message string) (*State, TurnResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, TurnResult{}, ErrEmptyMessage
	}

	s, err := a.Load(ctx, sessionID)
	if err != nil {
		return nil, TurnResult{}, err
	}

	s.Messages = append(s.Messages, Message{Role: RoleStudent, Content: message, Timestamp: a.engine.now()})
	s.LastStudentAnswer = message

	res := a.engine.RunTurn(llm.WithSession(ctx, sessionID), s)
	if err := a.Save(context.WithoutCancel(ctx), sessionID, s); err != nil {
		return nil, res, err
	}
	return s, res, nil
}

// Retry re-executes the current node without consuming a new message.
func (a *Agent) Retry(ctx context.Context, sessionID int64) (*State, TurnResult, error) {
	s, err := a.Load(ctx, sessionID)
	if err != nil {
		return nil, TurnResult{}, err
	}

	res := a.engine.RunNode(llm.WithSession(ctx, sessionID), s)
	if err := a.Save(context.WithoutCancel(ctx), sessionID, s); err != nil {
		return nil, res, err
	}
	return s, res, nil
}

// RecordCalculation appends a calculator operation to the session state.
func (a *Agent) RecordCalculation(ctx context.Context, sessionID int64, expression, result string) (*State, error) {
	s, err := a.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.CalculatorHistory = append(s.CalculatorHistory, Calculation{Expression: expression, Result: result})
	if err := a.Save(ctx, sessionID, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Save checkpoints s for sessionID.
func (a *Agent) Save(ctx context.Context, sessionID int64, s *State) error {
	blob, err := EncodeState(s)
	if err != nil {
		return err
	}
	if err := a.checkpoints.Save(ctx, sessionID, blob); err != nil {
		return fmt.Errorf("save checkpoint for session %d: %w", sessionID, err)
	}
	return nil
}

// Load restores the checkpointed state for sessionID.
func (a *Agent) Load(ctx context.Context, sessionID int64) (*State, error) {
	blob, err := a.checkpoints.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint for session %d: %w", sessionID, err)
	}
	return DecodeState(blob)
}

// Now returns the engine clock in UTC, for callers stamping their own
// records consistently with the transcript.
func (a *Agent) Now() time.Time {
	return a.engine.now()
}
