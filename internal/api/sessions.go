package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/bloom/internal/store"
)

type startSessionRequest struct {
	SubtopicID int64 `json:"subtopic_id" validate:"required,gt=0"`
}

type sendMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

type calculationRequest struct {
	Expression string `json:"expression" validate:"required,max=500"`
	Result     string `json:"result" validate:"required,max=100"`
}

func (h *Handler) registerSessionRoutes(r chi.Router) {
	r.Get("/", h.ListSessions)
	r.Post("/", h.StartSession)
	r.Post("/abandon", h.AbandonAllSessions)

	r.Route("/{sessionID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Get("/messages", h.GetMessages)
		r.Post("/messages", h.SendMessage)
		r.Post("/retry", h.RetryTurn)
		r.Post("/abandon", h.AbandonSession)
		r.Post("/complete", h.CompleteSession)
		r.Get("/summary", h.GetSummary)
		r.Post("/calculator", h.RecordCalculation)
	})
}

// ListSessions lists sessions newest first. Query: status, limit.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	status := store.SessionStatus(r.URL.Query().Get("status"))
	switch status {
	case "", store.SessionActive, store.SessionCompleted, store.SessionAbandoned:
	default:
		Error(w, http.StatusBadRequest, "invalid status "+strconv.Quote(string(status)))
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	rows, err := h.st.SessionRepo().List(r.Context(), status, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]sessionView, 0, len(rows))
	for i := range rows {
		out = append(out, newSessionView(&rows[i]))
	}
	JSON(w, http.StatusOK, map[string]any{"sessions": out})
}

// StartSession opens a session and returns the opening exposition.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	turn, err := h.sessions.Start(r.Context(), req.SubtopicID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, newTurnView(turn))
}

// GetSession returns the session with its full checkpointed transcript.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "sessionID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	turn, err := h.sessions.Resume(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	turn.NewMessages = turn.State.Messages
	JSON(w, http.StatusOK, newTurnView(turn))
}

// GetMessages returns the persisted message log.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "sessionID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entries, err := h.sessions.Transcript(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"messages": messageViews(entries)})
}

// SendMessage delivers a student message and returns the tutor's reply.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "sessionID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req sendMessageRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	turn, err := h.sessions.Send(r.Context(), id, req.Content)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, newTurnView(turn))
}

// RetryTurn re-runs the current node after a contained failure.
func (h *Handler) RetryTurn(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "sessionID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	turn, err := h.sessions.Retry(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, newTurnView(turn))
}

// AbandonSession marks one session abandoned.
func (h *Handler) AbandonSession(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "sessionID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.sessions.Abandon(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"session_id": id, "status": store.SessionAbandoned})
}

// AbandonAllSessions abandons every active session.
func (h *Handler) AbandonAllSessions(w http.ResponseWriter, r *http.Request) {
	n, err := h.sessions.AbandonAll(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"abandoned": n})
}

// CompleteSession marks a session completed and returns its summary.
func (h *Handler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "sessionID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	summary, err := h.sessions.Complete(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, summary)
}

// GetSummary returns session figures without changing its status.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "sessionID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	summary, err := h.sessions.Summary(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, summary)
}

// RecordCalculation logs a calculator operation.
func (h *Handler) RecordCalculation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "sessionID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req calculationRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.sessions.RecordCalculation(r.Context(), id, req.Expression, req.Result); err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, map[string]any{"session_id": id, "expression": req.Expression, "result": req.Result})
}
