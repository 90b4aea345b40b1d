package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/jera/internal/postservice"
	"github.com/starford/jera/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *postservice.Service, store storage.Provider, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	ah := NewAssetHandler(store, svc.Layout())

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Posts CRUD.
	r.Get("/posts", h.ListPosts)
	r.Post("/posts", h.CreatePost)
	r.Get("/posts/*", h.GetPost)
	r.Put("/posts/*", h.UpdatePost)
	r.Delete("/posts/*", h.DeletePost)

	// Search.
	r.Get("/search", h.Search)

	// Bundle maintenance.
	r.Get("/integrity", h.Integrity)
	r.Post("/migrate", h.Migrate)
	r.Post("/archive", h.Archive)

	// Per-bundle asset upload (auth-protected).
	r.Post("/assets/*", ah.Upload)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
