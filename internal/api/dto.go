package api

import (
	"time"

	"github.com/starford/jera/internal/bundle"
	"github.com/starford/jera/internal/postservice"
)

// CreatePostRequest is the request body for scaffolding a new post bundle.
type CreatePostRequest struct {
	Title string   `json:"title" example:"My Post Title" validate:"required"`
	Date  string   `json:"date,omitempty" example:"2025-11-01"`
	Draft bool     `json:"draft,omitempty"`
	Tags  []string `json:"tags,omitempty" example:"go,blogging"`
	Body  string   `json:"body,omitempty" example:"First words.\n"`
}

// UpdatePostRequest is the request body for updating a post.
type UpdatePostRequest struct {
	Content string `json:"content" example:"---\ntitle: My Post\n---\nUpdated.\n" validate:"required"`
}

// PostDetail is the full post response type (aliased from the domain layer).
type PostDetail = postservice.PostDetail

// PostListItem is a lightweight item in a list response (aliased from the domain layer).
type PostListItem = postservice.PostListItem

// PostListResponse wraps paginated post listings.
type PostListResponse struct {
	Posts []PostListItem `json:"posts" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"2025-11-01-my-post/index.md" validate:"required"`
	Title   string `json:"title" example:"My Post" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// IntegrityIssue is a single integrity violation in the API response.
type IntegrityIssue struct {
	Bundle string `json:"bundle" example:"2025-11-01-my-post" validate:"required"`
	Ref    string `json:"ref,omitempty" example:"images/missing.png"`
	Kind   string `json:"kind" example:"missing" validate:"required"`
}

// IntegrityResponse wraps an integrity check run.
type IntegrityResponse struct {
	OK     bool             `json:"ok" validate:"required"`
	Issues []IntegrityIssue `json:"issues" validate:"required"`
}

// MigrateRequest selects what to migrate. An empty path migrates every
// legacy flat post under the content root.
type MigrateRequest struct {
	Path string `json:"path,omitempty" example:"2021-05-05-old-post.md"`
}

// MigrateResponse reports the bundles created by a migration run.
type MigrateResponse struct {
	Migrated []string `json:"migrated" validate:"required"`
	Skipped  []string `json:"skipped" validate:"required"`
}

// ArchiveRequest selects a bundle to move under the archive directory.
type ArchiveRequest struct {
	Bundle string `json:"bundle" example:"2025-11-01-my-post" validate:"required"`
	Dest   string `json:"dest,omitempty" example:"archive"`
}

// ArchiveResponse reports where the bundle landed.
type ArchiveResponse struct {
	Bundle string `json:"bundle" example:"archive/2025-11-01-my-post" validate:"required"`
}

// AssetUploadResponse is returned after a successful asset upload.
// Ref and Markdown are bundle-relative so they can be pasted into the
// entry document as-is.
type AssetUploadResponse struct {
	Filename string `json:"filename" example:"chart.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	Ref      string `json:"ref" example:"images/chart.png" validate:"required"`
	Markdown string `json:"markdown" example:"![chart.png](images/chart.png)" validate:"required"`
}

// PostListItemDTO mirrors PostListItem for swag.
type PostListItemDTO struct {
	Path      string    `json:"path" example:"2025-11-01-my-post/index.md"`
	Title     string    `json:"title" example:"My Post"`
	Date      string    `json:"date" example:"2025-11-01"`
	Draft     bool      `json:"draft"`
	Checksum  string    `json:"checksum" example:"abc123..."`
	Tags      []string  `json:"tags" example:"go,blogging"`
	UpdatedAt time.Time `json:"updated_at"`
}

func issuesFromReports(reports []*bundle.Report) []IntegrityIssue {
	issues := []IntegrityIssue{}
	for _, rep := range reports {
		for _, is := range rep.Issues {
			issues = append(issues, IntegrityIssue{
				Bundle: is.Bundle,
				Ref:    is.Ref,
				Kind:   is.Kind,
			})
		}
	}
	return issues
}
