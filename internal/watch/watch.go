// Package watch reports changes to vault documents and images made on disk,
// whether by the engine itself, an editor or a git checkout.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/chronicle/internal/assets"
	"github.com/starford/chronicle/internal/storage"
)

// Kind is the type of change reported for a path.
type Kind string

// Change kinds.
const (
	Created Kind = "created"
	Updated Kind = "updated"
	Deleted Kind = "deleted"
)

// Debounce is the quiet period after which pending changes are reported.
// Bursts of events for one path within it collapse into a single change.
var Debounce = 150 * time.Millisecond

// Event is one reported change. Path is vault-relative.
type Event struct {
	Kind Kind
	Path string
}

// IsAsset reports whether the event concerns an image rather than a document.
func (e Event) IsAsset() bool { return storage.InAssets(e.Path) }

// Callback receives changes in path order after each quiet period.
type Callback func(Event)

// Tracked reports whether rel is a document or an image the watcher reports.
func Tracked(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if storage.IsHidden(part) {
			return false
		}
	}
	if storage.InAssets(rel) {
		return path.Dir(rel) == storage.ImagesDir && assets.Allowed(rel)
	}
	return strings.HasSuffix(rel, storage.DocExt)
}

type watcher struct {
	root    string
	w       *fsnotify.Watcher
	logger  *slog.Logger
	known   map[string]struct{}
	pending map[string]Kind
}

// Run watches root recursively until ctx is cancelled. Hidden directories are
// skipped and directories created later are added as they appear. root must
// be the canonical vault root.
func Run(ctx context.Context, root string, logger *slog.Logger, cb Callback) error {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	wt := &watcher{
		root:    root,
		w:       fw,
		logger:  logger,
		known:   make(map[string]struct{}),
		pending: make(map[string]Kind),
	}
	if err := wt.addDirsRecursive(root, false); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root), slog.Int("tracked", len(wt.known)))

	var flushTimer *time.Timer
	var flushCh <-chan time.Time
	scheduleFlush := func() {
		if flushTimer == nil {
			flushTimer = time.NewTimer(Debounce)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-flushCh:
			wt.flush(cb)

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if wt.handle(ev) {
				scheduleFlush()
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// handle records the change ev implies and reports whether anything is now
// pending.
func (wt *watcher) handle(ev fsnotify.Event) bool {
	rel, err := filepath.Rel(wt.root, ev.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)

	if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		info, statErr := os.Lstat(ev.Name)
		if statErr != nil {
			return false
		}
		if info.IsDir() {
			if storage.IsHidden(info.Name()) {
				return false
			}
			if addErr := wt.addDirsRecursive(ev.Name, true); addErr != nil {
				wt.logger.Warn("watcher: add new dir failed",
					slog.String("path", rel),
					slog.String("error", addErr.Error()))
			}
			return len(wt.pending) > 0
		}
		if !info.Mode().IsRegular() || !Tracked(rel) {
			return false
		}
		wt.touch(rel)
		return true
	}

	if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		// A renamed directory reports only its old path; forget everything
		// beneath it. The new location arrives as a Create.
		removed := false
		prefix := rel + "/"
		for p := range wt.known {
			if p == rel || strings.HasPrefix(p, prefix) {
				wt.forget(p)
				removed = true
			}
		}
		return removed
	}
	return false
}

func (wt *watcher) touch(rel string) {
	_, seen := wt.known[rel]
	wt.known[rel] = struct{}{}
	switch prev, pending := wt.pending[rel]; {
	case pending && prev == Created:
	case pending && prev == Deleted:
		wt.pending[rel] = Updated
	case seen:
		wt.pending[rel] = Updated
	default:
		wt.pending[rel] = Created
	}
}

func (wt *watcher) forget(rel string) {
	delete(wt.known, rel)
	if wt.pending[rel] == Created {
		delete(wt.pending, rel)
		return
	}
	wt.pending[rel] = Deleted
}

func (wt *watcher) flush(cb Callback) {
	paths := make([]string, 0, len(wt.pending))
	for p := range wt.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		ev := Event{Kind: wt.pending[p], Path: p}
		delete(wt.pending, p)
		wt.logger.Debug("watcher: change", slog.String("path", p), slog.String("kind", string(ev.Kind)))
		if cb != nil {
			cb(ev)
		}
	}
}

// addDirsRecursive watches dir and its visible subdirectories and records the
// tracked files found. When report is set those files are reported as
// created, which covers directories moved into the vault.
func (wt *watcher) addDirsRecursive(dir string, report bool) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if p != wt.root && storage.IsHidden(d.Name()) {
				return filepath.SkipDir
			}
			return wt.w.Add(p)
		}
		rel, relErr := filepath.Rel(wt.root, p)
		if relErr != nil || !d.Type().IsRegular() {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !Tracked(rel) {
			return nil
		}
		if report {
			wt.touch(rel)
		} else {
			wt.known[rel] = struct{}{}
		}
		return nil
	})
}
