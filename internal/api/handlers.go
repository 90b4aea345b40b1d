package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/starford/jera/internal/apperr"
	"github.com/starford/jera/internal/bundle"
	"github.com/starford/jera/internal/postservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *postservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *postservice.Service) *Handler {
	return &Handler{svc: svc}
}

// wildcardPath extracts the content-relative path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. archive%2F2025-11-01-post).
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListPosts handles GET /api/posts.
//
//	@Summary		List posts with optional pagination and filtering
//	@Tags			posts
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			drafts	query		string	false	"Draft filter"	Enums(only, exclude)
//	@Param			sort	query		string	false	"Sort field"	Enums(updated_at, title, path)
//	@Success		200		{object}	PostListResponse
//	@Security		BearerAuth
//	@Router			/posts [get]
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListPosts(r.Context(), limit, offset, q.Get("tag"), q.Get("drafts"), q.Get("sort"))
	if err != nil {
		slog.Error("list posts failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"posts": items,
		"total": total,
	})
}

// GetPost handles GET /api/posts/*.
//
//	@Summary		Get a single post by path
//	@Tags			posts
//	@Produce		json
//	@Param			path	path		string	true	"Post path"
//	@Success		200		{object}	PostDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/posts/{path} [get]
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	post, err := h.svc.GetPost(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get post failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// CreatePost handles POST /api/posts.
//
//	@Summary		Scaffold a new post bundle
//	@Tags			posts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreatePostRequest	true	"Post to create"
//	@Success		201		{object}	PostDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/posts [post]
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}
	var date time.Time
	if req.Date != "" {
		var err error
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
			return
		}
	}
	post, err := h.svc.CreatePost(r.Context(), postservice.CreateInput{
		Title: req.Title,
		Date:  date,
		Draft: req.Draft,
		Tags:  req.Tags,
		Body:  req.Body,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			writeJSON(w, http.StatusConflict, errorBody("post already exists"))
		} else {
			slog.Error("create post failed", slog.String("title", req.Title), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// UpdatePost handles PUT /api/posts/*.
//
//	@Summary		Update a post with optimistic concurrency
//	@Tags			posts
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string				true	"Post path"
//	@Param			If-Match	header	string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body	body		UpdatePostRequest	true	"Updated content"
//	@Success		200		{object}	PostDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/posts/{path} [put]
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	var req UpdatePostRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	ifMatch := r.Header.Get("If-Match")
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch = strings.Trim(ifMatch, `"`)

	post, err := h.svc.UpdatePost(r.Context(), path, []byte(req.Content), ifMatch)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
		default:
			slog.Error("update post failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// DeletePost handles DELETE /api/posts/*.
//
//	@Summary		Delete a post (a bundle entry removes the whole bundle)
//	@Tags			posts
//	@Param			path	path	string	true	"Post path"
//	@Success		204		"Post deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/posts/{path} [delete]
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeletePost(r.Context(), path); err != nil {
		slog.Error("delete post failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across posts
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// Integrity handles GET /api/integrity.
//
//	@Summary		Check asset-reference integrity
//	@Tags			integrity
//	@Produce		json
//	@Param			bundle	query		string	false	"Restrict the check to one bundle directory"
//	@Success		200		{object}	IntegrityResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/integrity [get]
func (h *Handler) Integrity(w http.ResponseWriter, r *http.Request) {
	dir := r.URL.Query().Get("bundle")

	var issues []IntegrityIssue
	if dir != "" {
		rep, err := h.svc.CheckBundle(r.Context(), dir)
		if err != nil {
			if errors.Is(err, apperr.ErrNotBundle) {
				writeJSON(w, http.StatusBadRequest, errorBody("not a bundle directory"))
				return
			}
			slog.Error("integrity check failed", slog.String("bundle", dir), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
		issues = issuesFromReports([]*bundle.Report{rep})
	} else {
		reports, err := h.svc.CheckAll(r.Context())
		if err != nil {
			slog.Error("integrity check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
		issues = issuesFromReports(reports)
	}

	writeJSON(w, http.StatusOK, IntegrityResponse{OK: len(issues) == 0, Issues: issues})
}

// Migrate handles POST /api/migrate.
//
//	@Summary		Convert legacy flat posts into bundles
//	@Tags			posts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MigrateRequest	false	"Optional single post to migrate"
//	@Success		200		{object}	MigrateResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/migrate [post]
func (h *Handler) Migrate(w http.ResponseWriter, r *http.Request) {
	var req MigrateRequest
	if r.Body != nil {
		// Body is optional; ignore decode errors on empty bodies.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if req.Path != "" {
		dir, err := h.svc.MigratePost(r.Context(), req.Path)
		if err != nil {
			switch {
			case errors.Is(err, apperr.ErrNotFound):
				writeJSON(w, http.StatusNotFound, errorBody("not found"))
			case errors.Is(err, apperr.ErrAlreadyExists):
				writeJSON(w, http.StatusConflict, errorBody("bundle already exists"))
			case errors.Is(err, apperr.ErrNotBundle):
				writeJSON(w, http.StatusBadRequest, errorBody("not a flat markdown post"))
			default:
				slog.Error("migrate failed", slog.String("path", req.Path), slog.String("error", err.Error()))
				writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			}
			return
		}
		writeJSON(w, http.StatusOK, MigrateResponse{Migrated: []string{dir}, Skipped: []string{}})
		return
	}

	migrated, skipped, err := h.svc.MigrateAll(r.Context())
	if err != nil {
		slog.Error("migrate all failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	skippedMsgs := make([]string, len(skipped))
	for i, e := range skipped {
		skippedMsgs[i] = e.Error()
	}
	if migrated == nil {
		migrated = []string{}
	}
	writeJSON(w, http.StatusOK, MigrateResponse{Migrated: migrated, Skipped: skippedMsgs})
}

// Archive handles POST /api/archive.
//
//	@Summary		Move a bundle under the archive directory
//	@Tags			posts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ArchiveRequest	true	"Bundle to archive"
//	@Success		200		{object}	ArchiveResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/archive [post]
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	var req ArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Bundle == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("bundle is required"))
		return
	}
	dest, err := h.svc.ArchivePost(r.Context(), req.Bundle, req.Dest)
	if err != nil {
		slog.Error("archive failed", slog.String("bundle", req.Bundle), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, ArchiveResponse{Bundle: dest})
}
