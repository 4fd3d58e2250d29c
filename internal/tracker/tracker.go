// Package tracker decides when a document's timestamps must be updated.
//
// It holds a single slot: the document the user was last looking at and
// the fingerprint of its content at that moment. Lifecycle events move
// the slot and trigger a stale-check on the document being left behind.
package tracker

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/fingerprint"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/state"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/storage"
)

// newFileWindow is the ctime/mtime tolerance for classifying a file as
// freshly created; it absorbs filesystem timestamp quantisation.
const newFileWindow = 300 * time.Millisecond

// Stamper is the subset of the stamping service the tracker invokes.
type Stamper interface {
	StampModified(ctx context.Context, path string) error
	StampNew(ctx context.Context, path string) error
}

// Options configures tracking behaviour.
type Options struct {
	// AutoUpdate enables the stale-check-and-stamp on switch-away.
	AutoUpdate bool
	// StampNewFiles enables stamping of freshly created documents.
	StampNewFiles bool
	// AllowNonEmptyNewFiles also stamps new files that already carry content.
	AllowNonEmptyNewFiles bool
	// NewFileDelay is how long to wait before stamping a new file.
	NewFileDelay time.Duration
	// Excluded reports whether a vault-relative path is out of scope.
	// Nil means nothing is excluded.
	Excluded func(path string) bool
	// SelfWrite reports whether the daemon itself just wrote path. The
	// stamper's atomic write-back ends in a rename into the vault, which
	// the filesystem watcher reports as a create; treating that as a new
	// file would make every stamp schedule the next one. Nil means no
	// create events are filtered.
	SelfWrite func(path string) bool
}

// Tracker reacts to document lifecycle events.
type Tracker struct {
	store   storage.Provider
	stamper Stamper
	db      state.Store
	opts    Options
	logger  *slog.Logger

	// mu serialises event handlers: lifecycle events arrive over HTTP
	// rather than a single-threaded host loop, so the tracker enforces
	// the serial delivery the design assumes.
	mu           sync.Mutex
	activePath   string
	activeDigest string
}

// New creates a tracker with an empty slot.
func New(store storage.Provider, st Stamper, db state.Store, opts Options, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:   store,
		stamper: st,
		db:      db,
		opts:    opts,
		logger:  logger,
	}
}

// Active returns the currently tracked document path, or empty string.
func (t *Tracker) Active() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activePath
}

// OnActiveChange handles the host switching focus. path is the newly
// active document, or empty when no document is active. The previously
// tracked document gets a stale-check: if its content no longer matches
// the fingerprint taken when it became active, it is stamped.
func (t *Tracker) OnActiveChange(ctx context.Context, path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if path == t.activePath {
		// Re-focus of the already tracked document: no transition, no
		// redundant refingerprinting.
		return
	}

	t.flushLocked(ctx)

	if path == "" || !isMarkdown(path) {
		t.activePath, t.activeDigest = "", ""
		return
	}

	data, err := t.store.Read(path)
	if err != nil {
		// Transient read failure: leave the slot empty; the next event
		// retries naturally.
		t.logger.Warn("tracker: read on focus failed", slog.String("path", path), slog.String("error", err.Error()))
		t.activePath, t.activeDigest = "", ""
		return
	}
	t.activePath, t.activeDigest = path, fingerprint.Sum(data)
	t.logger.Debug("tracker: tracking", slog.String("path", path))
}

// flushLocked runs the stale-check-and-stamp for the tracked document.
// Callers must hold mu.
func (t *Tracker) flushLocked(ctx context.Context) {
	prev, prevDigest := t.activePath, t.activeDigest
	if prev == "" || !t.opts.AutoUpdate {
		return
	}
	if t.excluded(prev) {
		t.logger.Debug("tracker: previous path excluded", slog.String("path", prev))
		return
	}
	if !t.store.Exists(prev) {
		// Deleted since it was tracked: nothing to stamp.
		t.logger.Debug("tracker: previous path gone", slog.String("path", prev))
		return
	}
	data, err := t.store.Read(prev)
	if err != nil {
		t.logger.Warn("tracker: stale-check read failed", slog.String("path", prev), slog.String("error", err.Error()))
		return
	}
	if fingerprint.Sum(data) == prevDigest {
		return
	}
	if err := t.stamper.StampModified(ctx, prev); err != nil {
		t.logger.Warn("tracker: stamp failed", slog.String("path", prev), slog.String("error", err.Error()))
	}
}

// OnCreate handles a document-creation event. It is independent of the
// tracker slot. The configured delay lets content-populating tools
// (templates, sync) finish before the stamp; a file deleted during the
// wait degrades to a silent no-op.
func (t *Tracker) OnCreate(ctx context.Context, path string) {
	if !t.opts.StampNewFiles || !isMarkdown(path) {
		return
	}
	if t.excluded(path) {
		t.logger.Debug("tracker: created path excluded", slog.String("path", path))
		return
	}
	if t.opts.SelfWrite != nil && t.opts.SelfWrite(path) {
		t.logger.Debug("tracker: own write-back, not a new file", slog.String("path", path))
		return
	}

	st, err := t.store.Stat(path)
	if err != nil {
		t.logger.Debug("tracker: stat on create failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	gap := st.ModifiedAt.Sub(st.CreatedAt)
	if gap < 0 {
		gap = -gap
	}
	if gap > newFileWindow {
		t.logger.Debug("tracker: not a new file", slog.String("path", path), slog.Duration("gap", gap))
		return
	}
	if st.Size != 0 && !t.opts.AllowNonEmptyNewFiles {
		t.logger.Debug("tracker: new file not empty", slog.String("path", path), slog.Int64("size", st.Size))
		return
	}

	if t.opts.NewFileDelay > 0 {
		timer := time.NewTimer(t.opts.NewFileDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}
	}
	if !t.store.Exists(path) {
		return
	}

	// A path with a stored baseline has been seen before (stamped, or
	// registered by a sync pass): not a new document.
	if digest, err := t.db.GetFingerprint(path); err != nil {
		t.logger.Warn("tracker: baseline lookup failed", slog.String("path", path), slog.String("error", err.Error()))
	} else if digest != "" {
		t.logger.Debug("tracker: document already known, not a new file", slog.String("path", path))
		return
	}

	if err := t.stamper.StampNew(ctx, path); err != nil {
		t.logger.Warn("tracker: new-file stamp failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

func (t *Tracker) excluded(path string) bool {
	return t.opts.Excluded != nil && t.opts.Excluded(path)
}

func isMarkdown(path string) bool {
	return strings.HasSuffix(path, ".md") || strings.HasSuffix(path, ".markdown")
}
