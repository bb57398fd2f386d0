package tutor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState(t *testing.T) {
	s := NewState(101, "Adding fractions")

	assert.Equal(t, NodeExposition, s.CurrentState)
	assert.Empty(t, s.Messages)
	assert.NotNil(t, s.Messages)
	assert.NotNil(t, s.CalculatorHistory)
	assert.Zero(t, s.QuestionsAttempted)
	assert.Zero(t, s.QuestionsCorrect)
	assert.Zero(t, s.HintsGiven)
	assert.Nil(t, s.LastEvaluation)
	require.NoError(t, s.Validate())
}

func TestStateValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*State)
	}{
		{"zero subtopic", func(s *State) { s.SubtopicID = 0 }},
		{"unknown node", func(s *State) { s.CurrentState = "lecture" }},
		{"negative hints", func(s *State) { s.HintsGiven = -1 }},
		{"correct exceeds attempted", func(s *State) { s.QuestionsAttempted, s.QuestionsCorrect = 1, 2 }},
		{"bad role", func(s *State) { s.Messages = append(s.Messages, Message{Role: "teacher"}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState(1, "x")
			tt.mutate(s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestStateCodecRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	s := &State{
		SubtopicID:   7,
		SubtopicName: "Solving linear equations",
		CurrentState: NodeSocratic,
		Messages: []Message{
			{Role: RoleTutor, Content: "Solve 2x + 3 = 11", Timestamp: ts},
			{Role: RoleStudent, Content: "x = 7", Timestamp: ts.Add(time.Second)},
		},
		QuestionsAttempted: 3,
		QuestionsCorrect:   2,
		CalculatorVisible:  true,
		LastStudentAnswer:  "x = 7",
		LastQuestion:       "Solve 2x + 3 = 11",
		LastEvaluation: &Evaluation{
			Correctness:   Incorrect,
			Feedback:      "Check the subtraction step.",
			Assessment:    "Added 3 instead of subtracting.",
			Misconception: "sign-error",
		},
		CalculatorHistory: []Calculation{{Expression: "11-3", Result: "8"}},
		HintsGiven:        1,
	}

	blob, err := EncodeState(s)
	require.NoError(t, err)
	assert.Contains(t, string(blob), `"current_state":"socratic"`)
	assert.Contains(t, string(blob), `"questions_attempted":3`)
	assert.Contains(t, string(blob), `"hints_given":1`)

	got, err := DecodeState(blob)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestDecodeStateFresh(t *testing.T) {
	s := NewState(3, "Ratio")
	blob, err := EncodeState(s)
	require.NoError(t, err)
	assert.NotContains(t, string(blob), "last_evaluation")

	got, err := DecodeState(blob)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestDecodeStateRejectsBrokenInvariants(t *testing.T) {
	_, err := DecodeState([]byte(`{"subtopic_id":1,"current_state":"questioning","questions_attempted":1,"questions_correct":2}`))
	assert.Error(t, err)

	_, err = DecodeState([]byte(`not json`))
	assert.Error(t, err)
}

func TestCloneIsDeep(t *testing.T) {
	s := NewState(1, "x")
	s.Messages = append(s.Messages, Message{Role: RoleTutor, Content: "hi"})
	s.LastEvaluation = &Evaluation{Correctness: Partial}

	c := s.Clone()
	c.Messages[0].Content = "changed"
	c.LastEvaluation.Correctness = Correct

	assert.Equal(t, "hi", s.Messages[0].Content)
	assert.Equal(t, Partial, s.LastEvaluation.Correctness)
}

func TestRecentTranscript(t *testing.T) {
	s := NewState(1, "x")
	for i, c := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		role := RoleTutor
		if i%2 == 1 {
			role = RoleStudent
		}
		s.Messages = append(s.Messages, Message{Role: role, Content: c})
	}
	assert.Equal(t, "tutor: c\nstudent: d\ntutor: e\nstudent: f\ntutor: g", s.recentTranscript(5))
	assert.Equal(t, "student: f\ntutor: g", s.recentTranscript(2))
}
