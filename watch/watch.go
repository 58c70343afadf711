// Package watch reports changes below a memory root as virtual paths, so a
// host can react when the agent (or anything else) edits its memories.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/deepnoodle-ai/memfs/fileops"
	"github.com/deepnoodle-ai/memfs/log"
	"github.com/deepnoodle-ai/memfs/vpath"
	"github.com/fsnotify/fsnotify"
)

// Op is the kind of change observed.
type Op string

const (
	OpCreate Op = "create"
	OpWrite  Op = "write"
	OpRemove Op = "remove"
	OpRename Op = "rename"
)

// Event is one change, named by its virtual path.
type Event struct {
	Path vpath.VirtualPath `json:"path"`
	Op   Op                `json:"op"`
}

// Watcher watches a memory root recursively. Directories created after the
// watcher starts are added as they appear.
type Watcher struct {
	watcher *fsnotify.Watcher
	root    string
	prefix  string
	logger  log.Logger
	events  chan Event
}

// New starts watching the resolver's root and every directory below it.
func New(resolver *vpath.Resolver, logger log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.NewNullLogger()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher: fsw,
		root:    resolver.Root(),
		prefix:  resolver.Prefix(),
		logger:  logger,
		events:  make(chan Event, 64),
	}
	if err := w.addTree(w.root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Events returns the event stream. It is closed when Run returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run delivers events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("memory watcher error", "error", err)
		}
	}
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if fileops.IsTempName(filepath.Base(event.Name)) {
		return
	}
	virtual, ok := w.virtual(event.Name)
	if !ok {
		return
	}
	var op Op
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", virtual, "error", err)
			}
		}
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}
	w.logger.Debug("memory change detected", "path", virtual, "op", op)
	select {
	case w.events <- Event{Path: virtual, Op: op}:
	case <-ctx.Done():
	}
}

func (w *Watcher) virtual(name string) (vpath.VirtualPath, bool) {
	rel, err := filepath.Rel(w.root, name)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	if rel == "." {
		return vpath.VirtualPath(w.prefix), true
	}
	return vpath.VirtualPath(w.prefix + "/" + filepath.ToSlash(rel)), true
}

// addTree watches dir and all directories below it. Symlinks are not
// followed.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.watcher.Add(path)
	})
}
