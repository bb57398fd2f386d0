package api

import (
	"time"

	"github.com/abhisek/bloom/internal/session"
	"github.com/abhisek/bloom/internal/store"
	"github.com/abhisek/bloom/internal/tutor"
)

type subtopicView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type topicView struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Subtopics   []subtopicView `json:"subtopics"`
}

func topicViews(topics []store.Topic) []topicView {
	out := make([]topicView, 0, len(topics))
	for _, t := range topics {
		v := topicView{ID: t.ID, Name: t.Name, Description: t.Description, Subtopics: []subtopicView{}}
		for _, st := range t.Subtopics {
			v.Subtopics = append(v.Subtopics, subtopicView{ID: st.ID, Name: st.Name, Description: st.Description})
		}
		out = append(out, v)
	}
	return out
}

type topicProgressView struct {
	TopicID           int64   `json:"topic_id"`
	TopicName         string  `json:"topic_name"`
	Subtopics         int     `json:"subtopics"`
	Completed         int     `json:"completed"`
	Attempted         int     `json:"questions_attempted"`
	Correct           int     `json:"questions_correct"`
	CompletionPercent float64 `json:"completion_percent"`
}

func topicProgressViews(rows []store.TopicProgress) []topicProgressView {
	out := make([]topicProgressView, 0, len(rows))
	for _, p := range rows {
		out = append(out, topicProgressView(p))
	}
	return out
}

type sessionView struct {
	ID                 int64     `json:"id"`
	SubtopicID         int64     `json:"subtopic_id"`
	SubtopicName       string    `json:"subtopic_name"`
	Status             string    `json:"status"`
	QuestionsAttempted int       `json:"questions_attempted"`
	QuestionsCorrect   int       `json:"questions_correct"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func newSessionView(s *store.Session) sessionView {
	return sessionView{
		ID:                 s.ID,
		SubtopicID:         s.SubtopicID,
		SubtopicName:       s.SubtopicName,
		Status:             string(s.Status),
		QuestionsAttempted: s.QuestionsAttempted,
		QuestionsCorrect:   s.QuestionsCorrect,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

// turnView is the response to any call that ran the tutor.
type turnView struct {
	Session           sessionView     `json:"session"`
	CurrentState      tutor.Node      `json:"current_state"`
	CalculatorVisible bool            `json:"calculator_visible"`
	Messages          []tutor.Message `json:"messages"`
	Contained         bool            `json:"contained,omitempty"`
	Capped            bool            `json:"capped,omitempty"`
}

func newTurnView(t *session.Turn) turnView {
	msgs := t.NewMessages
	if msgs == nil {
		msgs = []tutor.Message{}
	}
	return turnView{
		Session:           newSessionView(t.Session),
		CurrentState:      t.State.CurrentState,
		CalculatorVisible: t.State.CalculatorVisible,
		Messages:          msgs,
		Contained:         t.Contained,
		Capped:            t.Capped,
	}
}

type messageView struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func messageViews(entries []store.MessageEntry) []messageView {
	out := make([]messageView, 0, len(entries))
	for _, e := range entries {
		out = append(out, messageView{Role: e.Role, Content: e.Content, Timestamp: e.Timestamp})
	}
	return out
}

type expositionView struct {
	SubtopicID      int64     `json:"subtopic_id"`
	GeneratedAt     time.Time `json:"generated_at"`
	ModelIdentifier string    `json:"model_identifier"`
	Length          int       `json:"length"`
}

func expositionViews(rows []store.CachedExposition) []expositionView {
	out := make([]expositionView, 0, len(rows))
	for _, e := range rows {
		out = append(out, expositionView{
			SubtopicID:      e.SubtopicID,
			GeneratedAt:     e.GeneratedAt,
			ModelIdentifier: e.ModelIdentifier,
			Length:          len(e.Content),
		})
	}
	return out
}
