package tutor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func withMessages(s *State, msgs ...Message) *State {
	s.Messages = append(s.Messages, msgs...)
	return s
}

func TestRoute(t *testing.T) {
	student := func(c string) Message { return Message{Role: RoleStudent, Content: c} }
	tutor := func(c string) Message { return Message{Role: RoleTutor, Content: c} }

	tests := []struct {
		name  string
		from  Node
		state *State
		want  Decision
	}{
		{"exposition practice request", NodeExposition, withMessages(NewState(1, "x"), tutor("intro"), student("Can I try one?")), advance(NodeQuestioning)},
		{"exposition quiz request", NodeExposition, withMessages(NewState(1, "x"), student("QUIZ me")), advance(NodeQuestioning)},
		{"exposition follow-up", NodeExposition, withMessages(NewState(1, "x"), student("why does that work?")), suspend},
		{"exposition keyword from tutor", NodeExposition, withMessages(NewState(1, "x"), tutor("any questions?")), suspend},
		{"exposition empty", NodeExposition, NewState(1, "x"), suspend},
		{"questioning", NodeQuestioning, NewState(1, "x"), suspend},
		{"evaluation correct", NodeEvaluation, &State{LastEvaluation: &Evaluation{Correctness: Correct}}, advance(NodeQuestioning)},
		{"evaluation partial", NodeEvaluation, &State{LastEvaluation: &Evaluation{Correctness: Partial}}, advance(NodeDiagnosis)},
		{"evaluation incorrect", NodeEvaluation, &State{LastEvaluation: &Evaluation{Correctness: Incorrect}}, advance(NodeDiagnosis)},
		{"evaluation missing", NodeEvaluation, &State{}, advance(NodeDiagnosis)},
		{"diagnosis", NodeDiagnosis, NewState(1, "x"), advance(NodeSocratic)},
		{"socratic", NodeSocratic, NewState(1, "x"), suspend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Route(tt.from, tt.state))
		})
	}
}

func TestRouteDeterministic(t *testing.T) {
	s := withMessages(NewState(1, "x"), Message{Role: RoleStudent, Content: "give me a question"})
	first := Route(NodeExposition, s)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Route(NodeExposition, s))
	}
	for _, n := range Nodes {
		assert.Equal(t, Route(n, s), Route(n, s.Clone()))
	}
}

func TestEntryNode(t *testing.T) {
	s := NewState(1, "x")
	assert.Equal(t, NodeExposition, EntryNode(withMessages(s.Clone(), Message{Role: RoleStudent, Content: "what is a numerator?"})))
	assert.Equal(t, NodeQuestioning, EntryNode(withMessages(s.Clone(), Message{Role: RoleStudent, Content: "give me a question"})))

	for _, n := range []Node{NodeQuestioning, NodeEvaluation, NodeDiagnosis, NodeSocratic} {
		c := s.Clone()
		c.CurrentState = n
		assert.Equal(t, NodeEvaluation, EntryNode(c), "from %s", n)
	}
}

func TestKeywords(t *testing.T) {
	assert.True(t, RequestsAnswer("I don’t know"))
	assert.True(t, RequestsAnswer("ok I GIVE UP"))
	assert.True(t, RequestsAnswer("just tell me please"))
	assert.False(t, RequestsAnswer("x = 4"))

	assert.True(t, RequestsQuestion("let's practice"))
	assert.False(t, RequestsQuestion("why?"))
}
