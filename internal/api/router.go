package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arnaldur/lesari/internal/annotations"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(store *annotations.Store, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(store)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Annotation CRUD.
	r.Post("/annotations", h.CreateAnnotation)
	r.Get("/annotations", h.ListAnnotations)
	r.Delete("/annotations", h.ClearAnnotations)
	r.Get("/annotations/{id}", h.GetAnnotation)
	r.Patch("/annotations/{id}", h.UpdateAnnotation)
	r.Put("/annotations/{id}/range", h.UpgradeRange)
	r.Delete("/annotations/{id}", h.DeleteAnnotation)

	// Aggregates and export.
	r.Get("/stats", h.Stats)
	r.Get("/export/{book}", h.Export)

	// Anchor codec.
	r.Post("/anchors/serialize", h.SerializeAnchor)
	r.Post("/anchors/resolve", h.ResolveAnchor)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
