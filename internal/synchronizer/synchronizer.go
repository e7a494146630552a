// Package synchronizer keeps the index in step with the watched directories.
//
// A Synchronizer is the single consumer of a watcher.Notifier. Each ready
// handle's events are drained as one batch and applied inside one index
// session, so a reader never sees a file deleted but not yet reindexed.
package synchronizer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"

	dwerrors "github.com/Aman-CERP/docwatch/internal/errors"
	"github.com/Aman-CERP/docwatch/internal/ignore"
	"github.com/Aman-CERP/docwatch/internal/store"
	"github.com/Aman-CERP/docwatch/internal/watcher"
)

// Options configures a Synchronizer.
type Options struct {
	// Exclude skips indexing and watching of matching paths. Deletions are
	// applied regardless so that stale documents never survive.
	Exclude *ignore.Matcher

	// Logger receives event and lifecycle logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Stats counts what a Synchronizer processed.
type Stats struct {
	Batches uint64
	Events  uint64
	Errors  uint64
}

// Synchronizer applies filesystem events to the index.
type Synchronizer struct {
	notifier watcher.Notifier
	tree     *watcher.Tree
	index    store.Index
	exclude  *ignore.Matcher
	logger   *slog.Logger

	batches atomic.Uint64
	events  atomic.Uint64
	errors  atomic.Uint64
}

// New creates a Synchronizer. tree must be built over notifier.
func New(notifier watcher.Notifier, tree *watcher.Tree, index store.Index, opts Options) *Synchronizer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		notifier: notifier,
		tree:     tree,
		index:    index,
		exclude:  opts.Exclude,
		logger:   logger,
	}
}

// WatchRoots registers every root recorded in the index with the watch
// tree. Roots that cannot be watched are logged and skipped; their
// documents stay in the index until the next reindex. It returns how many
// roots are watched.
func (s *Synchronizer) WatchRoots(ctx context.Context) (int, error) {
	roots, err := s.index.Roots(ctx)
	if err != nil {
		return 0, err
	}

	watched := 0
	for _, root := range roots {
		dirs, err := s.tree.RegisterRoot(root)
		if err != nil {
			s.logger.Warn("root_unwatchable",
				append([]any{slog.String("root", root)}, dwerrors.LogAttrs(err)...)...)
			continue
		}
		watched++
		docs, err := s.index.CountByPrefix(ctx, root)
		if err != nil {
			return watched, err
		}
		s.logger.Info("root_watched",
			slog.String("root", root),
			slog.Int("directories", dirs),
			slog.Int("documents", docs))
	}
	return watched, nil
}

// Run processes events until no directory is watched any more, the
// notifier is closed or ctx is cancelled. It returns nil when the watch
// set became empty and ctx.Err() on cancellation.
func (s *Synchronizer) Run(ctx context.Context) error {
	defer s.logStats()

	s.logger.Info("sync_started", slog.Int("directories", s.tree.Len()))

	for s.tree.Len() > 0 {
		h, err := s.notifier.Wait(ctx)
		if err != nil {
			return err
		}

		events := s.notifier.Drain(h)
		dir, known := s.tree.Lookup(h)
		if !known {
			s.logger.Debug("unknown_watch_handle", slog.Uint64("handle", uint64(h)))
			s.tree.Discard(h)
			continue
		}

		if len(events) > 0 {
			if err := s.HandleBatch(ctx, dir, events); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.errors.Add(1)
				s.logger.Error("batch_failed",
					append([]any{slog.String("dir", dir), slog.Int("events", len(events))},
						dwerrors.LogAttrs(err)...)...)
			}
		}

		if !s.notifier.Reset(h) {
			dropped := s.tree.DiscardInvalid(h)
			s.logger.Info("watch_invalidated",
				slog.String("dir", dir),
				slog.Int("dropped", dropped),
				slog.Int("remaining", s.tree.Len()))
		}
	}

	s.logger.Info("watch_set_empty")
	return nil
}

// HandleBatch applies the events drained for dir inside one index session.
// Extraction failures are logged and skipped. Any other failure discards
// the whole batch and is returned.
func (s *Synchronizer) HandleBatch(ctx context.Context, dir string, events []watcher.Event) error {
	s.batches.Add(1)

	return s.index.WithSession(ctx, func(sess *store.Session) error {
		for _, ev := range events {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.handleEvent(sess, ev); err != nil {
				return err
			}
			s.events.Add(1)
		}
		return nil
	})
}

// handleEvent applies one event: deleted and modified remove everything
// at or below the path, created and modified index what is there now.
func (s *Synchronizer) handleEvent(sess *store.Session, ev watcher.Event) error {
	path := ev.Path()
	attrs := []any{
		slog.String("event", ev.Kind.String()),
		slog.String("path", path),
		slog.String("session", sess.ID()),
	}

	if ev.Kind == watcher.Deleted || ev.Kind == watcher.Modified {
		removed, err := sess.DeleteByPathPrefix(path)
		if err != nil {
			return err
		}
		attrs = append(attrs, slog.Int("removed", removed))
	}

	// A watched directory that moved away or vanished leaves registrations
	// for its whole subtree behind; a later created event re-registers
	// whatever is there now
	if ev.Kind == watcher.Deleted && s.tree.Watching(path) {
		attrs = append(attrs, slog.Int("unwatched", s.tree.DiscardUnder(path)))
	}

	if ev.Kind == watcher.Created || ev.Kind == watcher.Modified {
		indexed, err := s.indexPath(sess, ev, path)
		if err != nil {
			return err
		}
		attrs = append(attrs, slog.Int("indexed", indexed))
	}

	s.logger.Info("fs_event", attrs...)
	return nil
}

// indexPath indexes the file or subtree at path and returns the number of
// documents written.
func (s *Synchronizer) indexPath(sess *store.Session, ev watcher.Event, path string) (int, error) {
	if s.exclude.Match(path) {
		s.logger.Debug("event_excluded", slog.String("path", path))
		return 0, nil
	}

	// Lstat so that symlinks are neither followed nor indexed
	info, err := os.Lstat(path)
	if err != nil {
		// Gone again before the batch was processed; a later deleted
		// event in this or the next batch covers it
		s.logger.Debug("event_target_missing",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return 0, nil
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		s.logger.Debug("symlink_skipped", slog.String("path", path))
		return 0, nil

	case info.IsDir():
		if ev.Kind == watcher.Created {
			if added, err := s.tree.HandleDirectoryCreated(path); err != nil {
				s.logger.Warn("directory_unwatchable",
					append([]any{slog.String("path", path)}, dwerrors.LogAttrs(err)...)...)
			} else {
				s.logger.Debug("directory_watched",
					slog.String("path", path),
					slog.Int("new_directories", added))
			}
		}
		res, err := sess.IndexTree(path)
		if err != nil {
			return res.Indexed, err
		}
		return res.Indexed, nil

	case info.Mode().IsRegular():
		if err := sess.IndexFile(path); err != nil {
			if isSkippable(err) {
				s.logger.Warn("file_skipped",
					append([]any{slog.String("path", path)}, dwerrors.LogAttrs(err)...)...)
				return 0, nil
			}
			return 0, err
		}
		return 1, nil

	default:
		s.logger.Debug("special_file_skipped", slog.String("path", path))
		return 0, nil
	}
}

// Stats returns the counters accumulated so far.
func (s *Synchronizer) Stats() Stats {
	return Stats{
		Batches: s.batches.Load(),
		Events:  s.events.Load(),
		Errors:  s.errors.Load(),
	}
}

func (s *Synchronizer) logStats() {
	st := s.Stats()
	s.logger.Info("sync_stopped",
		slog.Uint64("batches", st.Batches),
		slog.Uint64("events", st.Events),
		slog.Uint64("errors", st.Errors))
}

// isSkippable reports whether err only affects the one file being read.
func isSkippable(err error) bool {
	return errors.Is(err, dwerrors.ErrExtraction) || errors.Is(err, dwerrors.ErrFSAccess)
}
