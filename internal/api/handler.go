// Package api exposes the tutoring service over a JSON HTTP API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/abhisek/bloom/internal/session"
	"github.com/abhisek/bloom/internal/store"
	"github.com/abhisek/bloom/internal/syllabus"
	"github.com/abhisek/bloom/internal/telemetry"
	"github.com/abhisek/bloom/internal/tutor"
)

// maxBodyBytes bounds request bodies; syllabus uploads are the largest.
const maxBodyBytes = 1 << 20

// Options configures a Handler.
type Options struct {
	Store    *store.Store
	Sessions *session.Service

	// CacheStats backs GET /api/admin/cache/stats. Optional.
	CacheStats *telemetry.CacheStats

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	CORSOrigins []string
	Logger      *slog.Logger
}

// Handler serves the HTTP API.
type Handler struct {
	st       *store.Store
	sessions *session.Service
	stats    *telemetry.CacheStats
	metrics  http.Handler
	origins  []string
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler creates a Handler.
func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		st:       opts.Store,
		sessions: opts.Sessions,
		stats:    opts.CacheStats,
		metrics:  opts.Metrics,
		origins:  opts.CORSOrigins,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Router builds the chi router with all routes and middleware.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/health"))
	if len(h.origins) > 0 {
		r.Use(cors(h.origins))
	}

	if h.metrics != nil {
		r.Handle("/metrics", h.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/syllabus", h.GetSyllabus)
		r.Get("/progress", h.GetProgress)

		r.Route("/sessions", h.registerSessionRoutes)
		r.Route("/admin", h.registerAdminRoutes)
	})
	return r
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

type errorBody struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
}

// fail maps err onto a status code and writes it. Unexpected errors are
// logged and reported without detail.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve  *syllabus.ValidationError
		rve validator.ValidationErrors
		bad *badRequestError
	)
	switch {
	case errors.As(err, &bad):
		Error(w, http.StatusBadRequest, bad.msg)
	case errors.As(err, &rve):
		JSON(w, http.StatusBadRequest, errorBody{Error: "invalid request", Problems: fieldProblems(rve)})
	case errors.As(err, &ve):
		JSON(w, http.StatusBadRequest, errorBody{Error: "invalid syllabus", Problems: ve.Problems})
	case errors.Is(err, tutor.ErrEmptyMessage):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrNotActive):
		Error(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", chimw.GetReqID(r.Context())),
			slog.String("error", err.Error()))
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

func fieldProblems(errs validator.ValidationErrors) []string {
	out := make([]string, 0, len(errs))
	for _, fe := range errs {
		if fe.Param() != "" {
			out = append(out, fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			out = append(out, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
		}
	}
	return out
}

// decode reads a JSON body into v and validates its tags.
func (h *Handler) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("malformed JSON body: %v", err)
	}
	return h.validate.Struct(v)
}

// idParam parses a positive integer URL parameter.
func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return id, nil
}

// GetSyllabus returns the loaded topic tree.
func (h *Handler) GetSyllabus(w http.ResponseWriter, r *http.Request) {
	topics, err := h.st.SyllabusRepo().Topics(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"topics": topicViews(topics)})
}

// GetProgress returns per-topic completion.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	summary, err := h.st.ProgressRepo().TopicSummary(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"topics": topicProgressViews(summary)})
}

func isYAML(r *http.Request) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	return strings.Contains(ct, "yaml")
}
