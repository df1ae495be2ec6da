package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads configuration when the watched files change on disk.
// It watches the parent directories rather than the files themselves so
// editors that replace-by-rename keep triggering events.
type Watcher struct {
	watcher  *fsnotify.Watcher
	paths    map[string]bool
	onChange func(path string)
	log      zerolog.Logger
}

// NewWatcher creates a watcher for the given files. onChange is called
// with the path of the file that changed, debounced per burst of events.
func NewWatcher(log zerolog.Logger, onChange func(path string), paths ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		paths:    make(map[string]bool, len(paths)),
		onChange: onChange,
		log:      log,
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		w.paths[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			w.log.Warn().Str("dir", dir).Err(err).Msg("cannot watch config directory")
		}
	}
	return w, nil
}

// Run processes filesystem events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	// Writers tend to emit several events per save; coalesce them so a
	// single save triggers a single reload.
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				abs = event.Name
			}
			if w.paths[abs] {
				pending[abs] = time.Now()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("config watch error")
		case now := <-ticker.C:
			for path, at := range pending {
				if now.Sub(at) < 200*time.Millisecond {
					continue
				}
				delete(pending, path)
				w.log.Info().Str("path", path).Msg("config file changed, reloading")
				w.onChange(path)
			}
		}
	}
}
