// Package state provides SQLite-backed persistence for fingerprint
// baselines and the stamp audit log. The daemon only keeps the single
// active document in memory; this store is what lets a restarted
// process notice edits that happened while it was down.
package state

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS fingerprints (
	path    TEXT PRIMARY KEY,
	digest  TEXT NOT NULL DEFAULT '',
	seen_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS stamps (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	path       TEXT NOT NULL,
	field      TEXT NOT NULL,
	value      TEXT NOT NULL,
	stamped_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_stamps_path ON stamps(path);
`

// DB wraps a sql.DB with state-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("state: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("state: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("state: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// UpsertFingerprint records the last-known digest for a path.
func (db *DB) UpsertFingerprint(path, digest string) error {
	_, err := db.conn.Exec(`
		INSERT INTO fingerprints (path, digest, seen_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET
			digest  = excluded.digest,
			seen_at = excluded.seen_at
	`, path, digest)
	if err != nil {
		return fmt.Errorf("state: upsert fingerprint: %w", err)
	}
	return nil
}

// GetFingerprint returns the stored digest for a path, or empty string
// if the path has never been seen.
func (db *DB) GetFingerprint(path string) (string, error) {
	var digest string
	err := db.conn.QueryRow(`SELECT digest FROM fingerprints WHERE path = ?`, path).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("state: get fingerprint: %w", err)
	}
	return digest, nil
}

// AllFingerprints returns every stored path→digest pair.
func (db *DB) AllFingerprints() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, digest FROM fingerprints`)
	if err != nil {
		return nil, fmt.Errorf("state: all fingerprints: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, d string
		if err := rows.Scan(&p, &d); err != nil {
			return nil, err
		}
		out[p] = d
	}
	return out, rows.Err()
}

// DeletePath removes the fingerprint baseline for a path that no longer
// exists on disk. Its stamp history is kept.
func (db *DB) DeletePath(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM fingerprints WHERE path = ?`, path); err != nil {
		return fmt.Errorf("state: delete path: %w", err)
	}
	return nil
}

// RecordStamp appends one stamp event to the audit log.
func (db *DB) RecordStamp(ev models.StampEvent) error {
	_, err := db.conn.Exec(`
		INSERT INTO stamps (path, field, value, stamped_at)
		VALUES (?, ?, ?, ?)
	`, ev.Path, ev.Field, ev.Value, ev.StampedAt)
	if err != nil {
		return fmt.Errorf("state: record stamp: %w", err)
	}
	return nil
}

// RecentStamps returns the most recent stamp events, newest first.
func (db *DB) RecentStamps(limit int) ([]models.StampEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT path, field, value, stamped_at
		FROM stamps
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("state: recent stamps: %w", err)
	}
	defer rows.Close()

	var out []models.StampEvent
	for rows.Next() {
		var ev models.StampEvent
		if err := rows.Scan(&ev.Path, &ev.Field, &ev.Value, &ev.StampedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
