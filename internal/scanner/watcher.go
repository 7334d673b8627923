package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher subscribes to filesystem change signals for the workspace and
// incrementally repairs the index: created and modified files are
// invalidated (a rescan follows when they contribute annotations),
// deleted files are dropped from the store. Watcher failures are logged
// and never propagate to the caller.
type Watcher struct {
	watcher     *fsnotify.Watcher
	root        string
	svc         *Service
	debounceDur time.Duration
	log         zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a watcher rooted at the workspace directory and
// starts its event loop. Returns nil if fsnotify is unavailable or the
// root cannot be watched.
func NewWatcher(root string, svc *Service, log zerolog.Logger) *Watcher {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn().Err(err).Msg("failed to create fsnotify watcher")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher:     fsw,
		root:        root,
		svc:         svc,
		debounceDur: 200 * time.Millisecond,
		log:         log.With().Str("component", "watcher").Logger(),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	if err := w.addRecursive(root); err != nil {
		w.log.Warn().Err(err).Str("root", root).Msg("cannot watch workspace root")
		_ = fsw.Close()
		cancel()
		return nil
	}

	go w.run()

	return w
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	<-w.done
	return err
}

// run processes filesystem events: collect during a debounce window,
// classify into changed and deleted sets, then hand them to the
// service.
func (w *Watcher) run() {
	defer close(w.done)
	defer func() {
		// A panic in event handling must not take the process down.
		if r := recover(); r != nil {
			w.log.Error().Any("panic", r).Msg("watcher event loop panicked")
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.shouldIgnore(event.Name) {
				continue
			}

			// Track new directories for recursive watching
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(event.Name)
				}
			}

			changed := map[string]bool{}
			deleted := map[string]bool{}
			w.classifyEvent(event, changed, deleted)

			// Drain queued events until the debounce timer fires
			debounce := time.NewTimer(w.debounceDur)
		debounceLoop:
			for {
				select {
				case e, ok := <-w.watcher.Events:
					if !ok {
						break debounceLoop
					}
					if !w.shouldIgnore(e.Name) {
						w.classifyEvent(e, changed, deleted)
					}
					if !debounce.Stop() {
						<-debounce.C
					}
					debounce.Reset(w.debounceDur)
				case <-debounce.C:
					break debounceLoop
				}
			}

			// Deletion wins when both were observed for a path
			for p := range deleted {
				delete(changed, p)
			}

			w.dispatch(changed, deleted)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) dispatch(changed, deleted map[string]bool) {
	for p := range deleted {
		if rel, ok := w.rel(p); ok {
			w.log.Debug().Str("file", rel).Msg("file deleted")
			w.svc.HandleFileDeleted(rel)
		}
	}
	for p := range changed {
		if info, err := os.Stat(p); err != nil || info.IsDir() {
			continue
		}
		if rel, ok := w.rel(p); ok {
			w.log.Debug().Str("file", rel).Msg("file changed")
			w.svc.HandleFileChanged(w.ctx, rel)
		}
	}
}

// rel converts an absolute event path to the workspace-relative form
// the index is keyed by.
func (w *Watcher) rel(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (w *Watcher) classifyEvent(event fsnotify.Event, changed, deleted map[string]bool) {
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		deleted[event.Name] = true
	} else {
		changed[event.Name] = true
	}
}

func (w *Watcher) addRecursive(path string) error {
	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			w.log.Debug().Err(err).Str("path", p).Msg("skipping path during walk")
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != path {
				return filepath.SkipDir
			}
			return w.watcher.Add(p)
		}
		return nil
	})
}

func (w *Watcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}

	for _, ext := range []string{".tmp", ".lock", ".swp", ".swx", "~"} {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}

	return false
}
