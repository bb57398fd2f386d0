package session

import (
	"github.com/abhisek/bloom/internal/store"
	"github.com/abhisek/bloom/internal/tutor"
)

// progressDelta is the change in question counters produced by one turn.
type progressDelta struct {
	Attempted int
	Correct   int
}

func (d progressDelta) zero() bool {
	return d.Attempted == 0 && d.Correct == 0
}

// deltaFor compares the session record, which mirrors the counters as of
// the previous turn, with the state after this turn. Counters only grow,
// so negative differences are clamped.
func deltaFor(sess *store.Session, st *tutor.State) progressDelta {
	return progressDelta{
		Attempted: max(st.QuestionsAttempted-sess.QuestionsAttempted, 0),
		Correct:   max(st.QuestionsCorrect-sess.QuestionsCorrect, 0),
	}
}
