package bundle

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/starford/jera/internal/apperr"
	"github.com/starford/jera/internal/parser"
	"github.com/starford/jera/internal/storage"
)

// legacy flat posts are .md files directly under the content root,
// e.g. "2020-03-14-old-post.md" or "old-post.md".

// IsLegacyPath reports whether path names a flat post (a root-level .md
// file that is not inside a bundle directory).
func IsLegacyPath(p string) bool {
	return !strings.Contains(p, "/") && strings.HasSuffix(p, ".md")
}

// Migrate converts a legacy flat post into a page bundle: the file moves
// to <bundle>/<entry> and an empty asset directory is created alongside.
//
// The bundle name derives from the post's frontmatter title and date.
// Fallbacks: a date prefix in the filename, then the file's modtime; the
// filename stem when no title is present. Migration is idempotent —
// running it against a path that is already a bundle entry, or whose
// target bundle already exists, returns apperr.ErrAlreadyExists without
// touching anything.
func Migrate(store storage.Provider, l Layout, flatPath string) (string, error) {
	if strings.Contains(flatPath, "/") {
		// Already inside a directory; a bundle entry is not migratable.
		if path.Base(flatPath) == l.EntryName && IsBundleName(path.Dir(flatPath)) {
			return "", fmt.Errorf("bundle: %s is already a bundle entry: %w", flatPath, apperr.ErrAlreadyExists)
		}
		return "", fmt.Errorf("bundle: %s is not a flat post: %w", flatPath, apperr.ErrNotBundle)
	}
	if !strings.HasSuffix(flatPath, ".md") {
		return "", fmt.Errorf("bundle: %s is not a markdown file: %w", flatPath, apperr.ErrNotBundle)
	}

	data, err := store.Read(flatPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("bundle: %s: %w", flatPath, apperr.ErrNotFound)
		}
		return "", err
	}

	res, err := parser.Parse(data)
	if err != nil {
		return "", err
	}

	stem := strings.TrimSuffix(flatPath, ".md")
	slugSrc := res.Title
	if slugSrc == "" {
		slugSrc = stem
	}

	date, slug := splitDatePrefix(stem)
	if res.Date != "" {
		if d, perr := time.Parse(dateLayout, res.Date); perr == nil {
			date = d
		}
	}
	if date.IsZero() {
		date = modTime(store, flatPath)
	}
	if res.Title == "" && slug != "" {
		slugSrc = slug
	}

	dir := Name(slugSrc, date)
	if dir == "" {
		return "", fmt.Errorf("bundle: %s yields an empty slug", flatPath)
	}
	if store.Exists(dir) {
		return "", fmt.Errorf("bundle: %s: %w", dir, apperr.ErrAlreadyExists)
	}

	if err := store.Move(flatPath, l.EntryPath(dir)); err != nil {
		return "", err
	}
	if err := store.MkdirAll(l.AssetsPath(dir)); err != nil {
		return "", err
	}
	return dir, nil
}

// splitDatePrefix extracts a leading YYYY-MM-DD- prefix from a filename
// stem, returning the date and the remaining slug portion.
func splitDatePrefix(stem string) (time.Time, string) {
	if len(stem) > 11 && stem[10] == '-' {
		if d, err := time.Parse(dateLayout, stem[:10]); err == nil {
			return d, stem[11:]
		}
	}
	return time.Time{}, stem
}

// modTime stats the file through the provider root; zero time on failure.
func modTime(store storage.Provider, rel string) time.Time {
	abs, err := store.Abs(rel)
	if err != nil {
		return time.Now()
	}
	info, err := os.Stat(abs)
	if err != nil {
		return time.Now()
	}
	return info.ModTime()
}
