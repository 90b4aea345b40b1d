// Package postservice coordinates storage and index operations on posts.
package postservice

import (
	"context"
	"errors"
	"os"
	"path"
	"time"

	"github.com/starford/jera/internal/apperr"
	"github.com/starford/jera/internal/bundle"
	"github.com/starford/jera/internal/checksum"
	"github.com/starford/jera/internal/index"
	"github.com/starford/jera/internal/models"
	"github.com/starford/jera/internal/parser"
	"github.com/starford/jera/internal/storage"
)

// PostDetail is the full representation of a post.
type PostDetail struct {
	Path        string             `json:"path"`
	Bundle      string             `json:"bundle,omitempty"`
	Title       string             `json:"title"`
	Date        string             `json:"date,omitempty"`
	Draft       bool               `json:"draft"`
	Content     string             `json:"content"`
	Checksum    string             `json:"checksum"`
	Tags        []string           `json:"tags"`
	Frontmatter map[string]any     `json:"frontmatter,omitempty"`
	AssetRefs   []models.AssetRef  `json:"asset_refs"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// PostListItem is a lightweight item in a list response.
type PostListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Date      string    `json:"date,omitempty"`
	Draft     bool      `json:"draft"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateInput holds the fields for scaffolding a new post bundle.
type CreateInput struct {
	Title string
	Date  time.Time
	Draft bool
	Tags  []string
	Body  string
}

// Service coordinates storage and index operations.
type Service struct {
	store  storage.Provider
	db     *index.DB
	layout bundle.Layout
}

// NewService creates a new post service.
func NewService(store storage.Provider, db *index.DB, layout bundle.Layout) *Service {
	return &Service{store: store, db: db, layout: layout}
}

// Layout returns the bundle layout conventions in use.
func (s *Service) Layout() bundle.Layout {
	return s.layout
}

// GetPost reads a post from storage, parses it, and enriches it with its
// indexed asset references.
func (s *Service) GetPost(_ context.Context, p string) (*PostDetail, error) {
	data, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return s.buildPostDetail(p, data)
}

// CreatePost scaffolds a new bundle from the input and indexes its entry
// document. Same-day same-slug collisions surface as ErrAlreadyExists.
func (s *Service) CreatePost(_ context.Context, in CreateInput) (*PostDetail, error) {
	if in.Date.IsZero() {
		in.Date = time.Now()
	}
	dir, err := bundle.Create(s.store, s.layout, bundle.Meta{
		Title: in.Title,
		Date:  in.Date,
		Draft: in.Draft,
		Tags:  in.Tags,
	}, in.Body)
	if err != nil {
		return nil, err
	}

	entry := s.layout.EntryPath(dir)
	data, err := s.store.Read(entry)
	if err != nil {
		return nil, err
	}
	if err := s.IndexFile(entry, data); err != nil {
		return nil, err
	}
	return s.buildPostDetail(entry, data)
}

// UpdatePost writes updated entry content with optimistic concurrency.
func (s *Service) UpdatePost(_ context.Context, p string, content []byte, ifMatch string) (*PostDetail, error) {
	existing, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	if err := s.store.Write(p, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(p, content); err != nil {
		return nil, err
	}
	return s.buildPostDetail(p, content)
}

// DeletePost removes a post from storage and index. For a bundle entry
// the whole bundle directory goes, assets included; a flat post is a
// single file delete.
func (s *Service) DeletePost(_ context.Context, p string) error {
	if dir := bundleDir(s.layout, p); dir != "" {
		if err := s.store.DeleteDir(dir); err != nil {
			return err
		}
	} else {
		if err := s.store.Delete(p); err != nil {
			return err
		}
	}
	return s.db.DeletePost(p)
}

// ListPosts returns paginated posts with optional tag and draft filters.
func (s *Service) ListPosts(_ context.Context, limit, offset int, tag, drafts, sort string) ([]PostListItem, int, error) {
	rows, total, err := s.db.ListPosts(limit, offset, tag, drafts, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]PostListItem, len(rows))
	for i, r := range rows {
		items[i] = PostListItem{
			Path:      r.Path,
			Title:     r.Title,
			Date:      r.Date,
			Draft:     r.Draft,
			Checksum:  r.Checksum,
			Tags:      nonNilSlice(r.Tags),
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// MigratePost converts one legacy flat post into a bundle and reindexes
// it under its new path.
func (s *Service) MigratePost(_ context.Context, flatPath string) (string, error) {
	dir, err := bundle.Migrate(s.store, s.layout, flatPath)
	if err != nil {
		return "", err
	}
	_ = s.db.DeletePost(flatPath)

	entry := s.layout.EntryPath(dir)
	if data, readErr := s.store.Read(entry); readErr == nil {
		_ = s.IndexFile(entry, data)
	}
	return dir, nil
}

// MigrateAll converts every legacy flat post under the content root.
// It returns the new bundle directories; conversion stops at the first
// unexpected error, but already-exists collisions are reported and skipped.
func (s *Service) MigrateAll(ctx context.Context) ([]string, []error, error) {
	metas, err := s.store.List("")
	if err != nil {
		return nil, nil, err
	}
	var migrated []string
	var skipped []error
	for _, m := range metas {
		if !bundle.IsLegacyPath(m.Path) {
			continue
		}
		dir, err := s.MigratePost(ctx, m.Path)
		if err != nil {
			if errors.Is(err, apperr.ErrAlreadyExists) {
				skipped = append(skipped, err)
				continue
			}
			return migrated, skipped, err
		}
		migrated = append(migrated, dir)
	}
	return migrated, skipped, nil
}

// CheckBundle runs the integrity check for one bundle directory.
func (s *Service) CheckBundle(_ context.Context, dir string) (*bundle.Report, error) {
	return bundle.Check(s.store, s.layout, dir)
}

// CheckAll runs the integrity check across the whole content root.
func (s *Service) CheckAll(_ context.Context) ([]*bundle.Report, error) {
	return bundle.CheckAll(s.store, s.layout)
}

// ArchivePost moves a bundle under the archive directory as a unit and
// reindexes the entry under its new path. Relative asset references
// survive the move.
func (s *Service) ArchivePost(_ context.Context, dir, archiveDir string) (string, error) {
	if archiveDir == "" {
		archiveDir = "archive"
	}
	dest := path.Join(archiveDir, path.Base(dir))
	if err := bundle.Move(s.store, dir, dest); err != nil {
		return "", err
	}
	_ = s.db.DeletePost(s.layout.EntryPath(dir))

	entry := s.layout.EntryPath(dest)
	if data, readErr := s.store.Read(entry); readErr == nil {
		_ = s.IndexFile(entry, data)
	}
	return dest, nil
}

// IndexFile parses data and upserts it into the index.
// Exported so that sync and watcher callers can reuse it.
func (s *Service) IndexFile(p string, data []byte) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	return s.db.UpsertPost(index.PostRow{
		Path:      p,
		Title:     res.Title,
		Date:      res.Date,
		Draft:     res.Draft,
		Checksum:  checksum.Sum(data),
		Tags:      nonNilSlice(res.Tags),
		UpdatedAt: time.Now(),
	}, res.Body, res.AssetRefs)
}

// buildPostDetail constructs a PostDetail from raw data without re-reading the file.
func (s *Service) buildPostDetail(p string, data []byte) (*PostDetail, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	return &PostDetail{
		Path:        p,
		Bundle:      bundleDir(s.layout, p),
		Title:       res.Title,
		Date:        res.Date,
		Draft:       res.Draft,
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Tags:        nonNilSlice(res.Tags),
		Frontmatter: res.Frontmatter,
		AssetRefs:   nonNilSlice(res.AssetRefs),
		UpdatedAt:   time.Now(),
	}, nil
}

// bundleDir returns the bundle directory when p is a bundle entry
// document, empty string otherwise.
func bundleDir(l bundle.Layout, p string) string {
	if path.Base(p) != l.EntryName {
		return ""
	}
	dir := path.Dir(p)
	if !bundle.IsBundleName(path.Base(dir)) {
		return ""
	}
	return dir
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
