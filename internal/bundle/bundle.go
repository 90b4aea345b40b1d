package bundle

import (
	"fmt"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/jera/internal/apperr"
	"github.com/starford/jera/internal/storage"
)

// Layout holds the file-layout conventions inside a bundle.
type Layout struct {
	EntryName string // entry document filename, e.g. "index.md"
	AssetsDir string // asset subdirectory name, e.g. "images"
}

// DefaultLayout returns the conventional layout.
func DefaultLayout() Layout {
	return Layout{EntryName: "index.md", AssetsDir: "images"}
}

// EntryPath returns the entry document path for a bundle directory.
func (l Layout) EntryPath(dir string) string {
	return path.Join(dir, l.EntryName)
}

// AssetsPath returns the asset directory path for a bundle directory.
func (l Layout) AssetsPath(dir string) string {
	return path.Join(dir, l.AssetsDir)
}

// Meta is the frontmatter written into a freshly scaffolded entry document.
type Meta struct {
	Title string
	Date  time.Time
	Draft bool
	Tags  []string
}

// Create scaffolds a new bundle: directory, entry document with
// frontmatter, and an empty asset subdirectory. It returns the bundle
// directory name. When a bundle (or any file) with the derived name
// already exists it fails with apperr.ErrAlreadyExists and leaves the
// existing entry untouched; the convention defines no disambiguation
// rule, so resolution stays with the author.
func Create(store storage.Provider, l Layout, meta Meta, body string) (string, error) {
	dir := Name(meta.Title, meta.Date)
	if dir == "" {
		return "", fmt.Errorf("bundle: title %q yields an empty slug", meta.Title)
	}
	if store.Exists(dir) {
		return "", fmt.Errorf("bundle: %s: %w", dir, apperr.ErrAlreadyExists)
	}

	doc, err := renderEntry(meta, body)
	if err != nil {
		return "", err
	}
	if err := store.Write(l.EntryPath(dir), doc); err != nil {
		return "", err
	}
	if err := store.MkdirAll(l.AssetsPath(dir)); err != nil {
		return "", err
	}
	return dir, nil
}

// Move relocates a bundle directory as a unit (e.g. into an archive
// subdirectory). Internal links survive because asset references are
// bundle-relative.
func Move(store storage.Provider, dir, dest string) error {
	if !IsBundleName(path.Base(dir)) {
		return fmt.Errorf("bundle: %s: %w", dir, apperr.ErrNotBundle)
	}
	if !store.Exists(dir) {
		return fmt.Errorf("bundle: %s: %w", dir, apperr.ErrNotFound)
	}
	return store.MoveDir(dir, dest)
}

// renderEntry serialises the frontmatter block followed by the body.
func renderEntry(meta Meta, body string) ([]byte, error) {
	fm := map[string]interface{}{
		"title": meta.Title,
		"date":  meta.Date.Format(dateLayout),
		"draft": meta.Draft,
	}
	if len(meta.Tags) > 0 {
		fm["tags"] = meta.Tags
	}
	block, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("bundle: marshal frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(block)
	b.WriteString("---\n\n")
	if body != "" {
		b.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
	}
	return []byte(b.String()), nil
}
