package index

import "github.com/starford/jera/internal/models"

// PostIndex defines the interface for post indexing operations.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type PostIndex interface {
	UpsertPost(p PostRow, body string, refs []models.AssetRef) error
	DeletePost(path string) error
	GetPost(path string) (*PostRow, error)
	GetChecksum(path string) (string, error)
	ListPosts(limit, offset int, tag, drafts, sort string) ([]PostRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Refs(source string) ([]models.AssetRef, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies PostIndex at compile time.
var _ PostIndex = (*DB)(nil)
