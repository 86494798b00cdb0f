// Package watch rebuilds a worker when its sources change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// settleInterval is how long the tree must stay quiet after a rebuild before
// its own events are considered drained.
const settleInterval = 50 * time.Millisecond

// Watcher reports changes below a project root, ignoring build output and
// dependency directories.
type Watcher struct {
	root     string
	ignore   []string
	debounce time.Duration
}

// New creates a Watcher for root. Directories whose base name is in ignore
// are neither watched nor descended into.
func New(root string, ignore []string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	return &Watcher{
		root:     root,
		ignore:   ignore,
		debounce: debounce,
	}
}

// Run watches the tree and calls fn once per burst of changes, after the
// tree has been quiet for the debounce interval. Calls never overlap. Events
// arriving while fn runs are discarded, since a build writes and removes files
// under root itself. An error from fn is logged and watching continues. Run returns when ctx is done.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := w.addTree(fsw, w.root); err != nil {
		return err
	}
	log.Info().Str("root", w.root).Msg("Watching for changes")

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.ignored(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				// new directories need their own watch
				_ = w.addTree(fsw, event.Name)
			}
			log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Change detected")
			pending = true
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("File watcher error")

		case <-timer.C:
			if !pending {
				continue
			}
			if err := fn(ctx); err != nil {
				log.Error().Err(err).Msg("Rebuild failed")
			}
			w.drain(fsw)
			pending = false
			timer.Stop()
		}
	}
}

// drain discards queued events until the tree has been quiet for
// settleInterval. Directories created meanwhile are still watched.
func (w *Watcher) drain(fsw *fsnotify.Watcher) {
	settle := time.NewTimer(settleInterval)
	defer settle.Stop()
	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && !w.ignored(event.Name) {
				_ = w.addTree(fsw, event.Name)
			}
			settle.Reset(settleInterval)
		case <-settle.C:
			return
		}
	}
}

// addTree watches path and every directory below it that is not ignored.
// Non-directories are skipped.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root && slices.Contains(w.ignore, d.Name()) {
			return filepath.SkipDir
		}
		if err := fsw.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

// ignored reports whether path lies inside an ignored directory
func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	for dir := rel; dir != "." && dir != string(filepath.Separator) && dir != ""; dir = filepath.Dir(dir) {
		if slices.Contains(w.ignore, filepath.Base(dir)) {
			return true
		}
	}
	return false
}
