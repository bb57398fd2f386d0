package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/bloom/internal/syllabus"
)

func (h *Handler) registerAdminRoutes(r chi.Router) {
	r.Post("/syllabus", h.LoadSyllabus)
	r.Post("/syllabus/validate", h.ValidateSyllabus)
	r.Get("/expositions", h.ListExpositions)
	r.Delete("/expositions", h.ClearExpositions)
	r.Delete("/expositions/{subtopicID}", h.DeleteExposition)
	r.Get("/cache/stats", h.CacheStats)
	r.Post("/progress/reset", h.ResetProgress)
}

// parseSyllabus reads a JSON or YAML (by Content-Type) syllabus body.
func parseSyllabus(r *http.Request) (*syllabus.Document, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, badRequest("read body: %v", err)
	}
	format := syllabus.FormatJSON
	if isYAML(r) {
		format = syllabus.FormatYAML
	}
	return syllabus.Parse(data, format)
}

// ValidateSyllabus checks a syllabus document without loading it.
func (h *Handler) ValidateSyllabus(w http.ResponseWriter, r *http.Request) {
	doc, err := parseSyllabus(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	topics, subtopics := doc.Counts()
	JSON(w, http.StatusOK, map[string]any{"valid": true, "title": doc.Title, "topics": topics, "subtopics": subtopics})
}

// LoadSyllabus validates a syllabus and replaces the stored one.
func (h *Handler) LoadSyllabus(w http.ResponseWriter, r *http.Request) {
	doc, err := parseSyllabus(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.st.SyllabusRepo().Load(r.Context(), doc.StoreTopics()); err != nil {
		h.fail(w, r, err)
		return
	}
	topics, subtopics := doc.Counts()
	h.logger.Info("syllabus loaded", "title", doc.Title, "topics", topics, "subtopics", subtopics)
	JSON(w, http.StatusOK, map[string]any{"title": doc.Title, "topics": topics, "subtopics": subtopics})
}

// ListExpositions lists cached expositions without their content.
func (h *Handler) ListExpositions(w http.ResponseWriter, r *http.Request) {
	rows, err := h.st.ExpositionRepo().List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"expositions": expositionViews(rows)})
}

// ClearExpositions empties the exposition cache.
func (h *Handler) ClearExpositions(w http.ResponseWriter, r *http.Request) {
	n, err := h.st.ExpositionRepo().DeleteAll(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("exposition cache cleared", "deleted", n)
	JSON(w, http.StatusOK, map[string]any{"deleted": n})
}

// DeleteExposition removes the cached exposition for one subtopic.
func (h *Handler) DeleteExposition(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "subtopicID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	found, err := h.st.ExpositionRepo().Delete(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !found {
		Error(w, http.StatusNotFound, "no cached exposition for subtopic")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"deleted": 1, "subtopic_id": id})
}

// CacheStats reports exposition cache hits and misses since start.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		Error(w, http.StatusNotFound, "cache statistics are not enabled")
		return
	}
	JSON(w, http.StatusOK, h.stats.Snapshot())
}

// ResetProgress clears all subtopic progress.
func (h *Handler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	if err := h.st.ProgressRepo().Reset(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Warn("progress reset")
	JSON(w, http.StatusOK, map[string]any{"reset": true})
}
