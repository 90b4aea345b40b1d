// Package models defines the domain types for Jera.
package models

import "time"

// Post represents a parsed entry document in the content root.
type Post struct {
	Path        string                 `json:"path"`
	Content     []byte                 `json:"-"`
	Body        string                 `json:"body"`
	Frontmatter map[string]interface{} `json:"frontmatter,omitempty"`
	Title       string                 `json:"title,omitempty"`
	Date        string                 `json:"date,omitempty"`
	Draft       bool                   `json:"draft"`
	Tags        []string               `json:"tags,omitempty"`
	AssetRefs   []AssetRef             `json:"asset_refs,omitempty"`
	Checksum    string                 `json:"checksum"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// PostMetadata is a lightweight representation returned by list operations.
type PostMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AssetRef is a single asset reference found in an entry document.
// Path is the reference exactly as written; Absolute marks references
// that violate the bundle-relative rule.
type AssetRef struct {
	Path     string `json:"path"`
	Image    bool   `json:"image"`
	Absolute bool   `json:"absolute"`
}
