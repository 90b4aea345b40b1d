package api

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/jera/internal/bundle"
	"github.com/starford/jera/internal/storage"
)

const maxUploadBytes = 50 << 20 // 50 MB

// AssetHandler accepts asset uploads into a bundle's assets directory.
// Uploaded files are written atomically via the storage provider and the
// response carries a bundle-relative reference so the caller can paste it
// into the entry document unchanged.
type AssetHandler struct {
	store  storage.Provider
	layout bundle.Layout
}

// NewAssetHandler creates a handler writing through the given provider.
func NewAssetHandler(store storage.Provider, layout bundle.Layout) *AssetHandler {
	return &AssetHandler{store: store, layout: layout}
}

// safeName validates that the filename is a plain name (no path separators,
// no traversal).
func safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	return cleaned, nil
}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".svg": true, ".avif": true,
}

// Upload handles POST /api/assets/* (multipart/form-data, field "file").
// The wildcard is the bundle directory the asset belongs to.
func (h *AssetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	dir := wildcardPath(r)
	if dir == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("bundle directory is required"))
		return
	}
	if !bundle.IsBundleName(path.Base(dir)) {
		writeJSON(w, http.StatusBadRequest, errorBody("not a bundle directory"))
		return
	}
	if !h.store.Exists(h.layout.EntryPath(dir)) {
		writeJSON(w, http.StatusNotFound, errorBody("bundle not found"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	name, err := safeName(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	if err := h.store.Write(path.Join(h.layout.AssetsPath(dir), name), data); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to write file"))
		return
	}

	ref := path.Join(h.layout.AssetsDir, name)
	bang := ""
	if imageExts[strings.ToLower(filepath.Ext(name))] {
		bang = "!"
	}
	writeJSON(w, http.StatusCreated, AssetUploadResponse{
		Filename: name,
		Size:     int64(len(data)),
		Ref:      ref,
		Markdown: fmt.Sprintf("%s[%s](%s)", bang, name, ref),
	})
}
