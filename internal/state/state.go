package state

import "github.com/lighthousedino/obsidian-front-matter-timestamps/internal/models"

// Store defines the interface for persisted tracking state.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type Store interface {
	UpsertFingerprint(path, digest string) error
	GetFingerprint(path string) (string, error)
	AllFingerprints() (map[string]string, error)
	DeletePath(path string) error
	RecordStamp(ev models.StampEvent) error
	RecentStamps(limit int) ([]models.StampEvent, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
