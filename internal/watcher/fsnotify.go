package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	dwerrors "github.com/Aman-CERP/docwatch/internal/errors"
)

// FsnotifyNotifier delivers events from inotify/kqueue through fsnotify.
// Each event is delivered to the handle of the entry's parent directory.
type FsnotifyNotifier struct {
	fsWatcher *fsnotify.Watcher
	q         *queue

	mu     sync.Mutex
	byPath map[string]Handle
	paths  map[Handle]string
	next   Handle

	overflows atomic.Uint64
	done      chan struct{}
	closeOnce sync.Once
}

var _ Notifier = (*FsnotifyNotifier)(nil)

// NewFsnotifyNotifier creates a notifier backed by fsnotify.
// Failure to create the OS watcher is returned as a NotifierError.
func NewFsnotifyNotifier() (*FsnotifyNotifier, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, dwerrors.NotifierError(err)
	}

	n := &FsnotifyNotifier{
		fsWatcher: fsw,
		q:         newQueue(),
		byPath:    make(map[string]Handle),
		paths:     make(map[Handle]string),
		done:      make(chan struct{}),
	}
	go n.run()
	return n, nil
}

// Add implements Notifier. A directory whose previous handle was
// invalidated, for example one deleted and created again, gets a new handle.
func (n *FsnotifyNotifier) Add(dir string) (Handle, error) {
	dir = filepath.Clean(dir)

	n.mu.Lock()
	defer n.mu.Unlock()

	if h, ok := n.byPath[dir]; ok && !n.q.isInvalid(h) {
		return h, nil
	}
	if err := n.fsWatcher.Add(dir); err != nil {
		return 0, dwerrors.FSAccessError(dir, err)
	}

	n.next++
	h := n.next
	n.byPath[dir] = h
	n.paths[h] = dir
	return h, nil
}

// Wait implements Notifier.
func (n *FsnotifyNotifier) Wait(ctx context.Context) (Handle, error) {
	return n.q.wait(ctx)
}

// Drain implements Notifier.
func (n *FsnotifyNotifier) Drain(h Handle) []Event {
	return n.q.drain(h)
}

// Reset implements Notifier. A handle whose directory can no longer be
// stat'ed as a directory is invalid.
func (n *FsnotifyNotifier) Reset(h Handle) bool {
	n.mu.Lock()
	path, ok := n.paths[h]
	n.mu.Unlock()
	if !ok {
		return false
	}

	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		n.q.invalidate(h)
	}
	return n.q.reset(h)
}

// Remove implements Notifier.
func (n *FsnotifyNotifier) Remove(h Handle) {
	n.mu.Lock()
	path, ok := n.paths[h]
	current := false
	if ok {
		delete(n.paths, h)
		if n.byPath[path] == h {
			delete(n.byPath, path)
			current = true
		}
	}
	n.mu.Unlock()

	// A newer handle for the same path keeps the OS watch
	if current {
		// The kernel drops watches on deleted directories by itself
		if err := n.fsWatcher.Remove(path); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			slog.Debug("watch_remove_failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}
	n.q.forget(h)
}

// Close implements Notifier.
func (n *FsnotifyNotifier) Close() error {
	var err error
	n.closeOnce.Do(func() {
		err = n.fsWatcher.Close()
		<-n.done
		n.q.close()
	})
	return err
}

// Overflows returns how many kernel queue overflows were reported.
func (n *FsnotifyNotifier) Overflows() uint64 {
	return n.overflows.Load()
}

func (n *FsnotifyNotifier) run() {
	defer close(n.done)

	for {
		select {
		case ev, ok := <-n.fsWatcher.Events:
			if !ok {
				return
			}
			n.handle(ev)
		case err, ok := <-n.fsWatcher.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				count := n.overflows.Add(1)
				slog.Warn("event_queue_overflow",
					slog.Uint64("total_overflows", count),
					slog.String("hint", "events were lost; run docwatch --reindex to resynchronize"))
				continue
			}
			slog.Warn("notifier_error", slog.String("error", err.Error()))
		}
	}
}

// handle converts one fsnotify event and queues it on the parent's handle.
func (n *FsnotifyNotifier) handle(ev fsnotify.Event) {
	name := filepath.Clean(ev.Name)

	var kind Kind
	switch {
	case ev.Has(fsnotify.Create):
		kind = Created
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		kind = Deleted
	case ev.Has(fsnotify.Write):
		kind = Modified
	default:
		// Chmod only
		return
	}

	n.mu.Lock()
	self, isWatched := n.byPath[name]
	parent, parentWatched := n.byPath[filepath.Dir(name)]
	n.mu.Unlock()

	// A watched directory that went away invalidates its own handle
	if kind == Deleted && isWatched {
		n.q.invalidate(self)
	}
	if !parentWatched || name == filepath.Dir(name) {
		return
	}

	n.q.push(parent, Event{
		Kind: kind,
		Dir:  filepath.Dir(name),
		Name: filepath.Base(name),
	})
}
