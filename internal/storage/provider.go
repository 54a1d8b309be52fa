// Package storage defines the output-tree file-system abstraction.
package storage

import "github.com/starford/notex/internal/models"

// Provider is the interface for output file operations.
// All paths are slash-separated and relative to the output root.
type Provider interface {
	// List returns metadata for every visible file under dir.
	List(dir string) ([]models.FileMeta, error)
	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Append atomically appends content to the existing file at path.
	Append(path string, content []byte) error
	// Move renames oldPath to newPath, creating parent directories.
	Move(oldPath, newPath string) error
}
