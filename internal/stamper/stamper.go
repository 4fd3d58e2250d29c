// Package stamper writes created/modified timestamps into document
// front matter and keeps the persisted fingerprint baseline current.
package stamper

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/apperr"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/fingerprint"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/frontmatter"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/models"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/state"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/storage"
)

// Notifier is called after a successful stamp write. kind is one of
// "stamped", "created".
type Notifier func(kind, path string)

// writeMarkTTL is how long a path stays marked as a self-write. It only
// needs to outlive the filesystem watcher's delivery of the rename
// event produced by the atomic write-back.
const writeMarkTTL = 5 * time.Second

// Options configures field names and timestamp rendering.
type Options struct {
	CreatedKey  string
	ModifiedKey string
	DateFormat  string
	UTC         bool

	// Now overrides the clock in tests. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) stamp() string {
	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	t := now()
	if o.UTC {
		t = t.UTC()
	}
	return t.Format(o.DateFormat)
}

// Service applies timestamp stamps to vault documents.
type Service struct {
	store  storage.Provider
	db     state.Store
	merger frontmatter.Merger
	opts   Options
	notify Notifier
	logger *slog.Logger

	mu     sync.Mutex
	writes map[string]time.Time
}

// New creates a stamper. notify may be nil.
func New(store storage.Provider, db state.Store, merger frontmatter.Merger, opts Options, notify Notifier, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		db:     db,
		merger: merger,
		opts:   opts,
		notify: notify,
		logger: logger,
		writes: make(map[string]time.Time),
	}
}

// markWrite records that the service just wrote path, expiring stale
// entries as a side effect.
func (s *Service) markWrite(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p, at := range s.writes {
		if time.Since(at) > writeMarkTTL {
			delete(s.writes, p)
		}
	}
	s.writes[path] = time.Now()
}

// SelfWrote reports whether the service wrote path recently. The
// tracker uses it to tell the daemon's own atomic write-backs (which
// surface as filesystem create events) apart from documents the user
// created; without the check every stamp would schedule the next one.
func (s *Service) SelfWrote(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.writes[path]
	return ok && time.Since(at) <= writeMarkTTL
}

// StampModified writes the current timestamp into the modified field.
// Documents without a front matter block are skipped silently.
func (s *Service) StampModified(_ context.Context, path string) error {
	value := s.opts.stamp()
	return s.apply(path, []frontmatter.Field{
		{Key: s.opts.ModifiedKey, Value: value},
	}, "stamped")
}

// StampNew stamps a freshly created document: the created field is set
// only when absent, the modified field unconditionally.
func (s *Service) StampNew(_ context.Context, path string) error {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}

	value := s.opts.stamp()
	updates := make([]frontmatter.Field, 0, 2)
	if !frontmatter.Has(data, s.opts.CreatedKey) {
		updates = append(updates, frontmatter.Field{Key: s.opts.CreatedKey, Value: value})
	}
	updates = append(updates, frontmatter.Field{Key: s.opts.ModifiedKey, Value: value})
	return s.apply(path, updates, "created")
}

// apply runs the merge engine over the document and writes the result
// back atomically. A merge that changes nothing produces no write.
func (s *Service) apply(path string, updates []frontmatter.Field, kind string) error {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}

	if _, ok := frontmatter.Header(data); !ok {
		s.logger.Debug("stamper: no front matter block, skipping", slog.String("path", path))
		return nil
	}

	merged, err := s.merger.MergeFields(data, updates)
	if err != nil {
		return err
	}
	if bytes.Equal(merged, data) {
		s.logger.Debug("stamper: merge was a no-op", slog.String("path", path))
		return nil
	}

	s.markWrite(path)
	if err := s.store.Write(path, merged); err != nil {
		return err
	}

	// Baseline and audit log are best-effort: a failure here must not
	// undo a stamp that is already on disk.
	if err := s.db.UpsertFingerprint(path, fingerprint.Sum(merged)); err != nil {
		s.logger.Warn("stamper: fingerprint upsert failed", slog.String("path", path), slog.String("error", err.Error()))
	}
	stampedAt := time.Now().UTC()
	for _, u := range updates {
		ev := models.StampEvent{Path: path, Field: u.Key, Value: u.Value, StampedAt: stampedAt}
		if err := s.db.RecordStamp(ev); err != nil {
			s.logger.Warn("stamper: audit record failed", slog.String("path", path), slog.String("error", err.Error()))
		}
	}

	s.logger.Debug("stamper: stamped", slog.String("path", path), slog.Int("fields", len(updates)))
	if s.notify != nil {
		s.notify(kind, path)
	}
	return nil
}
