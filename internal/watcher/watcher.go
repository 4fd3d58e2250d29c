// Package watcher turns filesystem notifications into document
// lifecycle events for the tracker.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Handler receives document-creation events. OnCreate may block (it
// honours the configured new-file delay), so the watcher invokes it on
// its own goroutine.
type Handler interface {
	OnCreate(ctx context.Context, path string)
}

// Watch starts an fsnotify watcher on the vault root and forwards
// file-creation events to h until ctx is cancelled.
//
// New directories created at runtime are automatically added to the
// watch list. Write/remove/rename events are ignored: in-session edits
// are caught by the tracker's stale-check, and off-session edits by the
// startup sync pass.
func Watch(ctx context.Context, vaultRoot string, h Handler, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create == 0 {
				continue
			}

			absPath := ev.Name

			// New directories: extend the watch list.
			if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
				if addErr := addDirsRecursive(w, absPath); addErr != nil {
					logger.Warn("watcher: add new dir failed",
						slog.String("path", absPath),
						slog.String("error", addErr.Error()))
				} else {
					logger.Debug("watcher: watching new dir", slog.String("path", absPath))
				}
				continue
			}

			if !strings.HasSuffix(absPath, ".md") && !strings.HasSuffix(absPath, ".markdown") {
				continue
			}

			rel, relErr := filepath.Rel(vaultRoot, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			logger.Debug("watcher: created", slog.String("path", rel))
			go h.OnCreate(ctx, rel)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
