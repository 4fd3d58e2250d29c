package tracker

import (
	"context"
	"log/slog"
)

// Sync walks the vault and reconciles it against the persisted
// fingerprint baselines:
//   - files whose content changed since last seen are stamped
//   - files never seen before get a baseline without a stamp
//   - baselines for files removed from disk are dropped
//
// It returns the number of documents stamped. Used at startup to catch
// edits that happened while the daemon was down.
func (t *Tracker) Sync(ctx context.Context) (int, error) {
	baselines, err := t.db.AllFingerprints()
	if err != nil {
		return 0, err
	}

	metas, err := t.store.List("")
	if err != nil {
		return 0, err
	}

	stamped := 0
	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if t.excluded(m.Path) {
			continue
		}

		old, seen := baselines[m.Path]
		switch {
		case !seen:
			// First sighting: baseline only, an old file is not "modified".
			if err := t.db.UpsertFingerprint(m.Path, m.Fingerprint); err != nil {
				t.logger.Warn("sync: baseline failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			} else {
				t.logger.Debug("sync: baselined", slog.String("path", m.Path))
			}
		case old != m.Fingerprint:
			if err := t.stamper.StampModified(ctx, m.Path); err != nil {
				t.logger.Warn("sync: stamp failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			} else {
				stamped++
				t.logger.Debug("sync: stamped", slog.String("path", m.Path))
			}
		}
	}

	// Drop baselines for files that no longer exist.
	for p := range baselines {
		if _, ok := disk[p]; !ok {
			if err := t.db.DeletePath(p); err != nil {
				t.logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				t.logger.Debug("sync: removed stale baseline", slog.String("path", p))
			}
		}
	}

	return stamped, nil
}
