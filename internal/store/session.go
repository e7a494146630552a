package store

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	dwerrors "github.com/Aman-CERP/docwatch/internal/errors"
)

// pendingDoc is a document written in the current, uncommitted batch.
type pendingDoc struct {
	kind string
	path string
}

// Session buffers index mutations for one unit of work.
// A Session is only valid inside the WithSession callback that created it
// and must not be used from more than one goroutine.
type Session struct {
	ctx   context.Context
	id    string
	store *Store
	batch *bleve.Batch

	// pending lets deletes see documents added earlier in this batch
	pending map[string]pendingDoc

	flushes int
	ops     int
}

func newSession(ctx context.Context, s *Store) *Session {
	return &Session{
		ctx:     ctx,
		id:      uuid.NewString(),
		store:   s,
		batch:   s.index.NewBatch(),
		pending: make(map[string]pendingDoc),
	}
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// DeleteByPathPrefix removes every file document whose path is prefix or
// starts with prefix followed by a separator. It returns how many distinct
// documents were removed.
func (s *Session) DeleteByPathPrefix(prefix string) (int, error) {
	prefix = filepath.Clean(prefix)

	hits, err := s.store.collect(s.ctx, scopeQuery(prefix), nil)
	if err != nil {
		return 0, dwerrors.IndexWriteError("prefix delete failed", err).WithDetail("path", prefix)
	}

	deleted := make(map[string]struct{}, len(hits))
	for _, hit := range hits {
		s.batch.Delete(hit.ID)
		deleted[hit.ID] = struct{}{}
	}
	for id, doc := range s.pending {
		if doc.kind == KindFile && underPrefix(doc.path, prefix) {
			s.batch.Delete(id)
			delete(s.pending, id)
			deleted[id] = struct{}{}
		}
	}

	s.ops += len(deleted)
	return len(deleted), s.maybeFlush()
}

// IndexFile extracts, classifies and writes the file at path, replacing
// any document with the same path. Excluded paths are ignored.
// Extraction failures are returned as ExtractionError or FSAccessError and
// leave the batch untouched.
func (s *Session) IndexFile(path string) error {
	path = filepath.Clean(path)
	if s.store.opts.Exclude.Match(path) {
		slog.Debug("index_file_excluded", slog.String("path", path))
		return nil
	}

	text, err := s.store.opts.Extractor.Extract(s.ctx, path)
	if err != nil {
		return err
	}
	return s.write(path, text)
}

// IndexTree indexes every regular file under root in pre-order, skipping
// excluded paths with their subtrees. Files are extracted concurrently and
// written in walk order. Files that cannot be read or extracted are skipped
// and counted; a write failure stops the walk.
func (s *Session) IndexTree(root string) (TreeResult, error) {
	root = filepath.Clean(root)

	files, skipped := s.walk(root)
	res := TreeResult{Skipped: skipped}

	window := s.store.opts.Workers * 4
	for start := 0; start < len(files); start += window {
		chunk := files[start:min(start+window, len(files))]

		texts, errs := s.extractAll(chunk)
		if err := s.ctx.Err(); err != nil {
			return res, err
		}

		for i, path := range chunk {
			if errs[i] != nil {
				res.Skipped++
				slog.Warn("file_skipped", append([]any{slog.String("path", path)}, dwerrors.LogAttrs(errs[i])...)...)
				continue
			}
			if err := s.write(path, texts[i]); err != nil {
				return res, err
			}
			res.Indexed++
		}
	}

	slog.Debug("tree_indexed",
		slog.String("session", s.id),
		slog.String("root", root),
		slog.Int("indexed", res.Indexed),
		slog.Int("skipped", res.Skipped))
	return res, nil
}

// AddRootMarker writes the registry marker for root.
func (s *Session) AddRootMarker(root string) error {
	root = filepath.Clean(root)
	id := RootID(root)
	if err := s.batch.Index(id, rootDoc{Kind: KindRoot, Path: root}); err != nil {
		return dwerrors.IndexWriteError("cannot add root marker", err).WithDetail("path", root)
	}
	s.pending[id] = pendingDoc{kind: KindRoot, path: root}
	s.ops++
	return s.maybeFlush()
}

// DeleteRootMarker removes the registry marker for root.
func (s *Session) DeleteRootMarker(root string) error {
	id := RootID(filepath.Clean(root))
	s.batch.Delete(id)
	delete(s.pending, id)
	s.ops++
	return s.maybeFlush()
}

// DeleteAll removes every document, root markers included.
func (s *Session) DeleteAll() (int, error) {
	return s.deleteMatching(bleve.NewMatchAllQuery(), "")
}

// DeleteFiles removes every file document and keeps the root markers.
func (s *Session) DeleteFiles() (int, error) {
	return s.deleteMatching(kindQuery(KindFile), KindFile)
}

// deleteMatching deletes committed hits of q and pending documents of kind
// (any kind when empty).
func (s *Session) deleteMatching(q query.Query, kind string) (int, error) {
	hits, err := s.store.collect(s.ctx, q, nil)
	if err != nil {
		return 0, dwerrors.IndexWriteError("bulk delete failed", err)
	}

	deleted := make(map[string]struct{}, len(hits))
	for _, hit := range hits {
		s.batch.Delete(hit.ID)
		deleted[hit.ID] = struct{}{}
	}
	for id, doc := range s.pending {
		if kind == "" || doc.kind == kind {
			s.batch.Delete(id)
			delete(s.pending, id)
			deleted[id] = struct{}{}
		}
	}

	s.ops += len(deleted)
	return len(deleted), s.maybeFlush()
}

func (s *Session) write(path, text string) error {
	doc := newFileDoc(path, s.store.opts.Classifier.Classify(text), text)
	id := FileID(path)
	if err := s.batch.Index(id, doc); err != nil {
		return dwerrors.IndexWriteError("cannot index document", err).WithDetail("path", path)
	}
	s.pending[id] = pendingDoc{kind: KindFile, path: path}
	s.ops++
	return s.maybeFlush()
}

// walk lists regular files under root in pre-order.
// Unreadable directories are logged, counted and skipped.
func (s *Session) walk(root string) ([]string, int) {
	var files []string
	skipped := 0
	exclude := s.store.opts.Exclude

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			skipped++
			slog.Warn("walk_failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if exclude.Match(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	return files, skipped
}

// extractAll extracts paths concurrently, bounded by Options.Workers.
// Per-file errors are returned positionally.
func (s *Session) extractAll(paths []string) ([]string, []error) {
	texts := make([]string, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(s.ctx)
	g.SetLimit(s.store.opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			texts[i], errs[i] = s.store.opts.Extractor.Extract(gctx, path)
			return nil
		})
	}
	_ = g.Wait()
	return texts, errs
}

// maybeFlush applies the batch early once it holds BatchLimit operations.
func (s *Session) maybeFlush() error {
	if s.batch.Size() < s.store.opts.BatchLimit {
		return nil
	}
	if err := s.apply(); err != nil {
		return err
	}
	s.flushes++
	slog.Debug("session_flushed",
		slog.String("session", s.id),
		slog.Int("flushes", s.flushes))
	return nil
}

func (s *Session) apply() error {
	if s.batch.Size() == 0 {
		return nil
	}
	if err := s.store.index.Batch(s.batch); err != nil {
		return dwerrors.IndexWriteError("index commit failed", err)
	}
	s.batch.Reset()
	clear(s.pending)
	return nil
}

func (s *Session) commit() error {
	if err := s.apply(); err != nil {
		s.discard("commit failed")
		return err
	}
	slog.Debug("session_committed",
		slog.String("session", s.id),
		slog.Int("ops", s.ops),
		slog.Int("flushes", s.flushes))
	return nil
}

func (s *Session) discard(reason string) {
	dropped := s.batch.Size()
	s.batch.Reset()
	clear(s.pending)
	if dropped > 0 {
		slog.Debug("session_discarded",
			slog.String("session", s.id),
			slog.String("reason", reason),
			slog.Int("dropped", dropped))
	}
}
