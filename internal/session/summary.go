package session

import (
	"time"

	"github.com/abhisek/bloom/internal/store"
)

// Summary holds the figures shown when a session ends.
type Summary struct {
	SessionID          int64               `json:"session_id"`
	SubtopicID         int64               `json:"subtopic_id"`
	SubtopicName       string              `json:"subtopic_name"`
	Status             store.SessionStatus `json:"status"`
	Duration           time.Duration       `json:"duration_ns"`
	QuestionsAttempted int                 `json:"questions_attempted"`
	QuestionsCorrect   int                 `json:"questions_correct"`
	Accuracy           float64             `json:"accuracy"`
	Messages           int                 `json:"messages"`
}

// BuildSummary creates a Summary from a session record and the length of
// its transcript.
func BuildSummary(sess *store.Session, messages int) *Summary {
	var accuracy float64
	if sess.QuestionsAttempted > 0 {
		accuracy = float64(sess.QuestionsCorrect) / float64(sess.QuestionsAttempted)
	}

	return &Summary{
		SessionID:          sess.ID,
		SubtopicID:         sess.SubtopicID,
		SubtopicName:       sess.SubtopicName,
		Status:             sess.Status,
		Duration:           sess.UpdatedAt.Sub(sess.CreatedAt),
		QuestionsAttempted: sess.QuestionsAttempted,
		QuestionsCorrect:   sess.QuestionsCorrect,
		Accuracy:           accuracy,
		Messages:           messages,
	}
}
