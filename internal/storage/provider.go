// Package storage defines the content-root file-system abstraction.
package storage

import "github.com/starford/jera/internal/models"

// Provider is the interface for content-root file operations.
// All paths are relative to the content root.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.PostMetadata, error)
	// ListDirs returns the names of immediate subdirectories of the root.
	ListDirs() ([]string, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// DeleteDir removes the directory at path and everything under it.
	DeleteDir(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// MoveDir renames a directory as a unit, contents included.
	MoveDir(oldPath, newPath string) error
	// MkdirAll creates the directory at path, parents included.
	MkdirAll(path string) error
	// Exists reports whether a file or directory exists at path.
	Exists(path string) bool
	// Abs resolves path against the root, rejecting traversal.
	Abs(path string) (string, error)
}
