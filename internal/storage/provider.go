// Package storage defines the vault file-system abstraction.
package storage

import "github.com/lighthousedino/obsidian-front-matter-timestamps/internal/models"

// Provider is the interface for vault file operations. Reads must
// reflect the latest successful write.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to vault root).
	List(dir string) ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
	// Exists reports whether a file currently exists at path.
	Exists(path string) bool
	// Stat returns size and filesystem timestamps for the file at path.
	Stat(path string) (models.FileStat, error)
}
