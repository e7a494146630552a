// Package registry manages the set of watched root directories.
//
// The registry has no storage of its own: each root is a marker document in
// the index, written in the same session as the root's file documents.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	dwerrors "github.com/Aman-CERP/docwatch/internal/errors"
	"github.com/Aman-CERP/docwatch/internal/store"
)

var (
	// ErrAlreadyRegistered is returned by AddRoot for a registered root.
	ErrAlreadyRegistered = errors.New("directory already indexed")

	// ErrNotRegistered is returned by RemoveRoot for an unknown root.
	ErrNotRegistered = errors.New("directory not indexed")
)

// Registry adds, removes and rebuilds watched roots.
type Registry struct {
	index store.Index

	// OnRootIndexed, when set, is called after each root's subtree has been
	// indexed by AddRoot or ReindexAll.
	OnRootIndexed func(root string, res store.TreeResult)
}

// New creates a Registry over index.
func New(index store.Index) *Registry {
	return &Registry{index: index}
}

// Normalize makes path absolute and clean, so that "docs" and "./docs/"
// name the same root.
func Normalize(path string) (string, error) {
	if path == "" {
		return "", dwerrors.InvalidPathError(path, "empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", dwerrors.InvalidPathError(path, err.Error())
	}
	return filepath.Clean(abs), nil
}

// ListRoots returns the registered roots, sorted.
func (r *Registry) ListRoots(ctx context.Context) ([]string, error) {
	return r.index.Roots(ctx)
}

// AddRoot registers path and indexes its subtree in one session.
// path must be an existing directory.
func (r *Registry) AddRoot(ctx context.Context, path string) error {
	root, err := Normalize(path)
	if err != nil {
		return err
	}
	registered, err := r.isRoot(ctx, root)
	if err != nil {
		return err
	}
	if registered {
		return ErrAlreadyRegistered
	}
	if err := checkDir(root); err != nil {
		return err
	}

	var res store.TreeResult
	err = r.index.WithSession(ctx, func(sess *store.Session) error {
		if err := sess.AddRootMarker(root); err != nil {
			return err
		}
		res, err = sess.IndexTree(root)
		return err
	})
	if err != nil {
		return err
	}

	slog.Info("root_added",
		slog.String("root", root),
		slog.Int("indexed", res.Indexed),
		slog.Int("skipped", res.Skipped))
	r.notify(root, res)
	return nil
}

// RemoveRoot unregisters path and deletes every document at or below it.
// Other roots nested inside path are reindexed in the same session so
// they keep their documents.
func (r *Registry) RemoveRoot(ctx context.Context, path string) error {
	root, err := Normalize(path)
	if err != nil {
		return err
	}
	roots, err := r.index.Roots(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(roots, root) {
		return ErrNotRegistered
	}

	var removed int
	err = r.index.WithSession(ctx, func(sess *store.Session) error {
		if err := sess.DeleteRootMarker(root); err != nil {
			return err
		}
		if removed, err = sess.DeleteByPathPrefix(root); err != nil {
			return err
		}
		for _, other := range roots {
			if other == root || !isBelow(other, root) {
				continue
			}
			if _, err := sess.IndexTree(other); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("root_removed", slog.String("root", root), slog.Int("removed", removed))
	return nil
}

// PurgeAll deletes every document, root markers included.
func (r *Registry) PurgeAll(ctx context.Context) error {
	var removed int
	err := r.index.WithSession(ctx, func(sess *store.Session) error {
		var err error
		removed, err = sess.DeleteAll()
		return err
	})
	if err != nil {
		return err
	}
	slog.Info("index_purged", slog.Int("removed", removed))
	return nil
}

// ClearFiles deletes every file document and keeps the registered roots,
// so a later reindex or watch start rebuilds from an empty index. It
// returns how many documents were removed.
func (r *Registry) ClearFiles(ctx context.Context) (int, error) {
	var removed int
	err := r.index.WithSession(ctx, func(sess *store.Session) error {
		var err error
		removed, err = sess.DeleteFiles()
		return err
	})
	if err != nil {
		return 0, err
	}
	slog.Info("index_cleared", slog.Int("removed", removed))
	return removed, nil
}

// ReindexAll rebuilds the index from the current roots and returns them.
// The root set is read before anything is deleted. A root that is no
// longer a directory keeps its marker and gets no documents.
func (r *Registry) ReindexAll(ctx context.Context) ([]string, error) {
	roots, err := r.index.Roots(ctx)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, nil
	}

	results := make([]store.TreeResult, len(roots))
	err = r.index.WithSession(ctx, func(sess *store.Session) error {
		if _, err := sess.DeleteAll(); err != nil {
			return err
		}
		for i, root := range roots {
			if err := sess.AddRootMarker(root); err != nil {
				return err
			}
			if err := checkDir(root); err != nil {
				slog.Warn("root_unavailable",
					append([]any{slog.String("root", root)}, dwerrors.LogAttrs(err)...)...)
				continue
			}
			if results[i], err = sess.IndexTree(root); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var total store.TreeResult
	for i, root := range roots {
		total.Add(results[i])
		r.notify(root, results[i])
	}
	slog.Info("index_rebuilt",
		slog.Int("roots", len(roots)),
		slog.Int("indexed", total.Indexed),
		slog.Int("skipped", total.Skipped))
	return roots, nil
}

func (r *Registry) isRoot(ctx context.Context, root string) (bool, error) {
	roots, err := r.index.Roots(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(roots, root), nil
}

func (r *Registry) notify(root string, res store.TreeResult) {
	if r.OnRootIndexed != nil {
		r.OnRootIndexed(root, res)
	}
}

func checkDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return dwerrors.FSAccessError(path, err)
	}
	if !info.IsDir() {
		return dwerrors.InvalidPathError(path, "not a directory")
	}
	return nil
}

// isBelow reports whether path lies strictly under dir.
func isBelow(path, dir string) bool {
	return strings.HasPrefix(path, strings.TrimSuffix(dir, string(filepath.Separator))+string(filepath.Separator))
}
