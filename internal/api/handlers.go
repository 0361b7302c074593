package api

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/edital/internal/models"
	"github.com/starford/edital/internal/progress"
	"github.com/starford/edital/internal/render"
	"github.com/starford/edital/internal/tracker"
)

// Handler holds API route handlers.
type Handler struct {
	svc *tracker.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *tracker.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) subjects(r *http.Request) ([]SubjectDetail, []models.Subject, error) {
	owner := ownerFrom(r.Context())
	items, err := h.svc.List(r.Context(), owner)
	if err != nil {
		return nil, nil, err
	}
	subjects := make([]models.Subject, len(items))
	for i := range items {
		subjects[i] = items[i].Model(owner)
	}
	return items, subjects, nil
}

// ListSubjects handles GET /api/subjects.
func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	items, subjects, err := h.subjects(r)
	if err != nil {
		writeError(w, "list subjects", err)
		return
	}
	checked := progress.Checked(subjects)
	if checked == nil {
		checked = []models.Ref{}
	}
	writeJSON(w, http.StatusOK, SubjectListResponse{Subjects: items, Checked: checked})
}

// ViewSubjects handles GET /api/subjects/view with an HTML board.
func (h *Handler) ViewSubjects(w http.ResponseWriter, r *http.Request) {
	_, subjects, err := h.subjects(r)
	if err != nil {
		writeError(w, "view subjects", err)
		return
	}
	var buf bytes.Buffer
	if err := render.HTML(&buf, subjects); err != nil {
		writeError(w, "render subjects", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// GetSubject handles GET /api/subjects/{id}.
func (h *Handler) GetSubject(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Get(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get subject", err)
		return
	}
	w.Header().Set("ETag", `"`+d.Revision+`"`)
	writeJSON(w, http.StatusOK, d)
}

// CreateSubject handles POST /api/subjects.
func (h *Handler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	var req SubjectRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	d, err := h.svc.Create(r.Context(), ownerFrom(r.Context()), req.Name, req.Topics)
	if err != nil {
		writeError(w, "create subject", err)
		return
	}
	w.Header().Set("ETag", `"`+d.Revision+`"`)
	writeJSON(w, http.StatusCreated, d)
}

// UpdateSubject handles PUT /api/subjects/{id}. The topics text is read in
// edit format, so "(lido)" suffixes keep topics done. An If-Match header
// must carry the current revision.
func (h *Handler) UpdateSubject(w http.ResponseWriter, r *http.Request) {
	var req SubjectRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	d, err := h.svc.Update(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id"), req.Name, req.Topics, ifMatch)
	if err != nil {
		writeError(w, "update subject", err)
		return
	}
	w.Header().Set("ETag", `"`+d.Revision+`"`)
	writeJSON(w, http.StatusOK, d)
}

// DeleteSubject handles DELETE /api/subjects/{id}.
func (h *Handler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete subject", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetOutline handles GET /api/subjects/{id}/outline.
func (h *Handler) GetOutline(w http.ResponseWriter, r *http.Request) {
	text, err := h.svc.EditText(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get outline", err)
		return
	}
	writeJSON(w, http.StatusOK, OutlineResponse{Text: text})
}

// ToggleTopic handles POST /api/subjects/{id}/toggle.
func (h *Handler) ToggleTopic(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	d, err := h.svc.Toggle(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id"), req.Path)
	if err != nil {
		writeError(w, "toggle topic", err)
		return
	}
	w.Header().Set("ETag", `"`+d.Revision+`"`)
	writeJSON(w, http.StatusOK, d)
}
