package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	dwerrors "github.com/Aman-CERP/docwatch/internal/errors"
	"github.com/Aman-CERP/docwatch/internal/ignore"
)

// Tree maps watch handles to the directories they observe.
// Tree is not safe for concurrent use; the synchronizer owns it.
type Tree struct {
	notifier Notifier
	exclude  *ignore.Matcher
	byHandle map[Handle]string
	byPath   map[string]Handle
}

// NewTree creates an empty Tree over n. Directories matching exclude are
// not registered.
func NewTree(n Notifier, exclude *ignore.Matcher) *Tree {
	return &Tree{
		notifier: n,
		exclude:  exclude,
		byHandle: make(map[Handle]string),
		byPath:   make(map[string]Handle),
	}
}

// RegisterRoot registers root and every directory below it, depth-first in
// pre-order, and returns how many registrations are new.
//
// Only failure to register root itself is returned. A failure further down
// stops the traversal: directories registered so far stay watched and the
// rest of the subtree is not observed.
func (t *Tree) RegisterRoot(root string) (int, error) {
	root = filepath.Clean(root)

	info, err := os.Stat(root)
	if err != nil {
		return 0, dwerrors.FSAccessError(root, err)
	}
	if !info.IsDir() {
		return 0, dwerrors.InvalidPathError(root, "not a directory")
	}
	isNew, err := t.register(root)
	if err != nil {
		return 0, err
	}
	added := 0
	if isNew {
		added++
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || path == root {
			return nil
		}
		if t.exclude.Match(path) {
			return filepath.SkipDir
		}
		isNew, err := t.register(path)
		if err != nil {
			return err
		}
		if isNew {
			added++
		}
		return nil
	})
	if walkErr != nil {
		slog.Warn("watch_registration_incomplete",
			slog.String("root", root),
			slog.Int("registered", added),
			slog.String("error", walkErr.Error()))
	}
	return added, nil
}

// HandleDirectoryCreated registers a directory that appeared under a
// watched one. The whole subtree is registered so that content moved in
// together with the directory is observed from now on.
func (t *Tree) HandleDirectoryCreated(path string) (int, error) {
	return t.RegisterRoot(path)
}

// Discard drops the registration of h.
func (t *Tree) Discard(h Handle) {
	if path, ok := t.byHandle[h]; ok {
		delete(t.byHandle, h)
		if t.byPath[path] == h {
			delete(t.byPath, path)
		}
	}
	t.notifier.Remove(h)
}

// DiscardInvalid drops h after its directory became unreachable. When h
// still names its directory, every registration below it goes too: a
// renamed or removed directory takes its subdirectories' watches with it.
// It returns how many registrations were dropped.
func (t *Tree) DiscardInvalid(h Handle) int {
	path, ok := t.byHandle[h]
	if !ok || t.byPath[path] != h {
		t.Discard(h)
		if ok {
			return 1
		}
		return 0
	}
	return t.DiscardUnder(path)
}

// DiscardUnder drops every registration whose directory is path or lies
// below it and returns how many were dropped.
func (t *Tree) DiscardUnder(path string) int {
	path = filepath.Clean(path)
	prefix := path + string(filepath.Separator)

	var stale []Handle
	for h, dir := range t.byHandle {
		if dir == path || strings.HasPrefix(dir, prefix) {
			stale = append(stale, h)
		}
	}
	for _, h := range stale {
		t.Discard(h)
	}
	return len(stale)
}

// Lookup returns the directory observed through h.
func (t *Tree) Lookup(h Handle) (string, bool) {
	path, ok := t.byHandle[h]
	return path, ok
}

// Watching reports whether path is registered.
func (t *Tree) Watching(path string) bool {
	_, ok := t.byPath[filepath.Clean(path)]
	return ok
}

// Len returns the number of live registrations.
func (t *Tree) Len() int {
	return len(t.byHandle)
}

// Paths returns the registered directories, sorted.
func (t *Tree) Paths() []string {
	out := make([]string, 0, len(t.byPath))
	for p := range t.byPath {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// register adds one directory and reports whether its handle is new.
func (t *Tree) register(dir string) (bool, error) {
	h, err := t.notifier.Add(dir)
	if err != nil {
		return false, err
	}
	if _, known := t.byHandle[h]; known {
		return false, nil
	}
	t.byHandle[h] = dir
	t.byPath[dir] = h
	return true, nil
}
