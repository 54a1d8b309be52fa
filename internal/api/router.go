package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notex/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/files", h.ListFiles)
	r.Get("/files/*", h.GetFile)
	r.Get("/categories", h.Categories)
	r.Get("/search", h.Search)
	r.Get("/links/*", h.Links)

	return r
}

// Health mounts the unauthenticated liveness and readiness probes on r.
// ready reports whether the catalog can be queried.
func Health(r chi.Router, ready func() error) {
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if ready != nil {
			if err := ready(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
