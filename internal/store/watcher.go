package store

import (
	"context"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates the store cache when a collection file is edited
// outside the daemon, e.g. by hand in an editor. Temp files from atomic
// saves and anything matching an ignore pattern are skipped.
type Watcher struct {
	store     *Store
	fsWatcher *fsnotify.Watcher
	ignore    []string
	cancel    context.CancelFunc
}

func DefaultIgnorePatterns() []string {
	return []string{
		"*.tmp",
		"*-*.tmp",
		".*",
		"*.bak",
	}
}

func NewWatcher(s *Store, ignorePatterns []string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if ignorePatterns == nil {
		ignorePatterns = DefaultIgnorePatterns()
	}

	return &Watcher{
		store:     s,
		fsWatcher: fsWatcher,
		ignore:    ignorePatterns,
	}, nil
}

func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fsWatcher.Add(w.store.Dir()); err != nil {
		return err
	}

	ctx, w.cancel = context.WithCancel(ctx)
	go w.handleEvents(ctx)

	log.Info("watching data dir", "dir", w.store.Dir())
	return nil
}

func (w *Watcher) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if w.shouldIgnore(event.Name) {
				continue
			}
			log.Debug("file event", "path", event.Name, "op", event.Op.String())
			w.store.Invalidate(event.Name)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.ignore {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	return w.fsWatcher.Close()
}
