package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/edital/internal/tracker"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group;
// it resolves the owner itself so browsers can pass it as a query parameter.
func NewRouter(svc *tracker.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Group(func(r chi.Router) {
		r.Use(OwnerMiddleware)

		r.Get("/subjects", h.ListSubjects)
		r.Post("/subjects", h.CreateSubject)
		r.Get("/subjects/view", h.ViewSubjects)
		r.Post("/subjects/import", h.ImportSubject)
		r.Get("/subjects/{id}", h.GetSubject)
		r.Put("/subjects/{id}", h.UpdateSubject)
		r.Delete("/subjects/{id}", h.DeleteSubject)
		r.Get("/subjects/{id}/outline", h.GetOutline)
		r.Post("/subjects/{id}/toggle", h.ToggleTopic)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
