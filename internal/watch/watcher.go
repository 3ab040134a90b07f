package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/yacobolo/windsync/internal/logging"
)

// Event is a change to a content file.
type Event struct {
	ID      string // module id, "/" + root-relative path
	Path    string // absolute path
	Text    string
	Removed bool
}

// Watcher reports changes to content files under a matcher's root.
type Watcher struct {
	matcher *Matcher
	fsw     *fsnotify.Watcher
	log     *slog.Logger
}

// New watches every directory under the root that is not ignored.
// Directories created later are picked up as they appear.
func New(m *Matcher, log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = logging.Logger()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	w := &Watcher{matcher: m, fsw: fsw, log: log}
	if err := w.addTree(m.Root()); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run delivers events to fn until ctx is canceled or fn fails.
func (w *Watcher) Run(ctx context.Context, fn func(Event) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("file watcher error", "error", err)
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			out, ok := w.translate(ev)
			if !ok {
				continue
			}
			if err := fn(out); err != nil {
				return err
			}
		}
	}
}

// translate turns a raw notification into a content event.
func (w *Watcher) translate(ev fsnotify.Event) (Event, bool) {
	rel, ok := w.matcher.Rel(ev.Name)
	if !ok || rel == "." {
		return Event{}, false
	}

	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		if !w.matcher.Match(rel) {
			return Event{}, false
		}
		return Event{ID: ID(rel), Path: ev.Name, Removed: true}, true
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return Event{}, false
	}

	info, err := os.Stat(ev.Name)
	if err != nil {
		return Event{}, false
	}
	if info.IsDir() {
		if ev.Has(fsnotify.Create) && !w.matcher.Ignored(rel+"/") {
			if err := w.addTree(ev.Name); err != nil {
				w.log.Warn("watching new directory", "path", ev.Name, "error", err)
			}
		}
		return Event{}, false
	}
	if !w.matcher.Match(rel) {
		return Event{}, false
	}

	data, err := os.ReadFile(ev.Name)
	if err != nil {
		w.log.Debug("reading changed file", "path", ev.Name, "error", err)
		return Event{}, false
	}
	return Event{ID: ID(rel), Path: ev.Name, Text: string(data)}, true
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, ok := w.matcher.Rel(p); ok && rel != "." && w.matcher.Ignored(rel+"/") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}
