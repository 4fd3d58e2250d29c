// Package models defines the domain types shared across the service.
package models

import "time"

// FileStat is the filesystem-reported view of a vault document.
// CreatedAt is best-effort: not every platform exposes a birth time,
// in which case it falls back to the modification time.
type FileStat struct {
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// DocumentMetadata is a lightweight representation returned by list
// operations: enough to decide whether a document changed.
type DocumentMetadata struct {
	Path        string    `json:"path"`
	Fingerprint string    `json:"fingerprint"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// StampEvent records one timestamp write into a document header.
type StampEvent struct {
	Path      string    `json:"path"`
	Field     string    `json:"field"`
	Value     string    `json:"value"`
	StampedAt time.Time `json:"stamped_at"`
}
