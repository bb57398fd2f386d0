// Package tutor implements the tutoring state machine: the session state,
// the five pedagogical nodes, the router that connects them and the turn
// loop that drives a session from one student message to the next
// suspend point.
package tutor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Node identifies one of the tutor's pedagogical states.
type Node string

const (
	NodeExposition  Node = "exposition"
	NodeQuestioning Node = "questioning"
	NodeEvaluation  Node = "evaluation"
	NodeDiagnosis   Node = "diagnosis"
	NodeSocratic    Node = "socratic"
)

// Nodes lists every node in transition-table order.
var Nodes = []Node{NodeExposition, NodeQuestioning, NodeEvaluation, NodeDiagnosis, NodeSocratic}

// Valid reports whether n is one of the five known nodes.
func (n Node) Valid() bool {
	switch n {
	case NodeExposition, NodeQuestioning, NodeEvaluation, NodeDiagnosis, NodeSocratic:
		return true
	}
	return false
}

// Role is the author of a transcript message.
type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
)

// Message is one transcript entry.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Correctness is the three-way grade of a student answer.
type Correctness string

const (
	Correct   Correctness = "correct"
	Partial   Correctness = "partial"
	Incorrect Correctness = "incorrect"
)

// Evaluation is the grading result for the most recent answer.
type Evaluation struct {
	Correctness Correctness `json:"correctness"`
	Feedback    string      `json:"feedback"`

	// Assessment describes the method the student actually used.
	Assessment string `json:"assessment"`

	// Misconception is filled in by the diagnosis node.
	Misconception string `json:"misconception,omitempty"`
}

// Calculation is one calculator operation the student performed.
type Calculation struct {
	Expression string `json:"expression"`
	Result     string `json:"result"`
}

// State is the tutor's working memory for one session. It is owned by a
// single session and serialized as that session's checkpoint.
type State struct {
	SubtopicID   int64  `json:"subtopic_id"`
	SubtopicName string `json:"subtopic_name"`
	CurrentState Node   `json:"current_state"`

	Messages []Message `json:"messages"`

	QuestionsAttempted int  `json:"questions_attempted"`
	QuestionsCorrect   int  `json:"questions_correct"`
	CalculatorVisible  bool `json:"calculator_visible"`

	LastStudentAnswer string      `json:"last_student_answer,omitempty"`
	LastQuestion      string      `json:"last_question,omitempty"`
	LastEvaluation    *Evaluation `json:"last_evaluation,omitempty"`

	CalculatorHistory []Calculation `json:"calculator_history"`

	// HintsGiven counts Socratic hints for the current question.
	HintsGiven int `json:"hints_given"`
}

// NewState returns the initial state for a fresh session on a subtopic.
func NewState(subtopicID int64, subtopicName string) *State {
	return &State{
		SubtopicID:        subtopicID,
		SubtopicName:      subtopicName,
		CurrentState:      NodeExposition,
		Messages:          []Message{},
		CalculatorHistory: []Calculation{},
	}
}

// Validate checks the state's invariants.
func (s *State) Validate() error {
	var errs []error
	if s.SubtopicID <= 0 {
		errs = append(errs, fmt.Errorf("subtopic_id must be positive, got %d", s.SubtopicID))
	}
	if !s.CurrentState.Valid() {
		errs = append(errs, fmt.Errorf("unknown current_state %q", s.CurrentState))
	}
	if s.QuestionsAttempted < 0 || s.QuestionsCorrect < 0 || s.HintsGiven < 0 {
		errs = append(errs, errors.New("counters must be non-negative"))
	}
	if s.QuestionsCorrect > s.QuestionsAttempted {
		errs = append(errs, fmt.Errorf("questions_correct (%d) exceeds questions_attempted (%d)",
			s.QuestionsCorrect, s.QuestionsAttempted))
	}
	for i, m := range s.Messages {
		if m.Role != RoleStudent && m.Role != RoleTutor {
			errs = append(errs, fmt.Errorf("message %d: unknown role %q", i, m.Role))
		}
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	c := *s
	c.Messages = append([]Message{}, s.Messages...)
	c.CalculatorHistory = append([]Calculation{}, s.CalculatorHistory...)
	if s.LastEvaluation != nil {
		ev := *s.LastEvaluation
		c.LastEvaluation = &ev
	}
	return &c
}

// LastMessage returns the most recent transcript entry.
func (s *State) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// lastStudentMessage returns the content of the most recent student message.
func (s *State) lastStudentMessage() (string, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleStudent {
			return s.Messages[i].Content, true
		}
	}
	return "", false
}

// hasStudentMessage reports whether the student has said anything yet.
func (s *State) hasStudentMessage() bool {
	_, ok := s.lastStudentMessage()
	return ok
}

// recentTranscript renders the last n messages as "role: content" lines.
func (s *State) recentTranscript(n int) string {
	msgs := s.Messages
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, string(m.Role)+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// EncodeState serializes s into a checkpoint blob.
func EncodeState(s *State) ([]byte, error) {
	blob, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode tutor state: %w", err)
	}
	return blob, nil
}

// DecodeState restores a State from a checkpoint blob.
func DecodeState(blob []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, fmt.Errorf("decode tutor state: %w", err)
	}
	if s.Messages == nil {
		s.Messages = []Message{}
	}
	if s.CalculatorHistory == nil {
		s.CalculatorHistory = []Calculation{}
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("decode tutor state: %w", err)
	}
	return &s, nil
}
