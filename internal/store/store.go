// Package store keeps docwatch's documents in a bleve index.
//
// One index holds two record kinds: file documents, keyed by path, and
// root markers, whose set is the registry of watched directories. All
// mutations go through a Session obtained from Store.WithSession, which
// buffers them in a bleve batch and commits once.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	dwerrors "github.com/Aman-CERP/docwatch/internal/errors"
	"github.com/Aman-CERP/docwatch/internal/extract"
	"github.com/Aman-CERP/docwatch/internal/ignore"
	"github.com/Aman-CERP/docwatch/internal/router"
)

// DefaultBatchLimit is used when Options.BatchLimit is not set.
const DefaultBatchLimit = 2000

// pageSize is the hit window used when collecting all matches of a query.
const pageSize = 1000

// Options configures a Store.
type Options struct {
	// Extractor reads file content. Defaults to a TextExtractor.
	Extractor extract.Extractor
	// Classifier picks each document's language. Defaults to a whatlanggo router.
	Classifier Classifier
	// Exclude skips matching paths while indexing.
	Exclude *ignore.Matcher
	// BatchLimit is the buffered-operation count after which a session
	// flushes between files.
	BatchLimit int
	// Workers bounds concurrent extraction in IndexTree.
	Workers int
}

func (o Options) withDefaults() Options {
	if o.Extractor == nil {
		o.Extractor = extract.NewTextExtractor(0)
	}
	if o.Classifier == nil {
		o.Classifier = router.New(router.Config{}, nil)
	}
	if o.BatchLimit <= 0 {
		o.BatchLimit = DefaultBatchLimit
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	return o
}

// Store wraps a bleve index. Sessions are serialized; reads are not.
type Store struct {
	mu     sync.Mutex
	index  bleve.Index
	path   string
	opts   Options
	closed bool
}

var _ Index = (*Store)(nil)

// Open opens the index at path, creating it if it does not exist.
// A corrupt index is removed and recreated empty; its roots are lost and a
// warning is logged.
func Open(path string, opts Options) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, dwerrors.IndexOpenError(path, err)
	}

	if validErr := validateIndexIntegrity(path); validErr != nil {
		if !looksLikeIndex(path) {
			return nil, dwerrors.IndexOpenError(path, validErr).
				WithSuggestion("point --index at an empty or docwatch-owned directory")
		}
		slog.Warn("index_corrupted",
			slog.String("path", path),
			slog.String("error", validErr.Error()))
		if err := os.RemoveAll(path); err != nil {
			return nil, dwerrors.IndexOpenError(path, fmt.Errorf("cannot clear corrupt index: %w", err))
		}
		slog.Warn("index_cleared",
			slog.String("path", path),
			slog.String("reason", "corruption detected, registered roots must be added again"))
	}

	idx, err := bleve.Open(path)
	switch {
	case errors.Is(err, bleve.ErrorIndexPathDoesNotExist):
		idx, err = bleve.New(path, newIndexMapping())
	case err != nil && isCorruptionError(err):
		slog.Warn("index_open_failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		if removeErr := os.RemoveAll(path); removeErr != nil {
			return nil, dwerrors.IndexOpenError(path, fmt.Errorf("cannot clear corrupt index: %w (original: %v)", removeErr, err))
		}
		idx, err = bleve.New(path, newIndexMapping())
	}
	if err != nil {
		return nil, dwerrors.IndexOpenError(path, err)
	}

	slog.Debug("index_opened", slog.String("path", path))
	return &Store{index: idx, path: path, opts: opts.withDefaults()}, nil
}

// OpenMem creates an in-memory index, for tests.
func OpenMem(opts Options) (*Store, error) {
	idx, err := bleve.NewMemOnly(newIndexMapping())
	if err != nil {
		return nil, dwerrors.IndexOpenError("memory", err)
	}
	return &Store{index: idx, opts: opts.withDefaults()}, nil
}

// Path returns the index location, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// Bleve exposes the underlying index to the search package.
func (s *Store) Bleve() bleve.Index {
	return s.index
}

// Close closes the index. Safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.index.Close()
}

// WithSession runs fn with a fresh Session.
// The session commits when fn returns nil and ctx is still live. On error,
// cancellation or panic the buffered mutations are discarded; operations
// already flushed past the batch limit stay applied.
func (s *Store) WithSession(ctx context.Context, fn func(*Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return dwerrors.IndexWriteError("index is closed", nil)
	}

	sess := newSession(ctx, s)
	defer func() {
		if r := recover(); r != nil {
			sess.discard("panic")
			panic(r)
		}
	}()

	if err := fn(sess); err != nil {
		sess.discard("error")
		return err
	}
	if err := ctx.Err(); err != nil {
		sess.discard("canceled")
		return err
	}
	return sess.commit()
}

// Roots returns the registered root paths, sorted.
func (s *Store) Roots(ctx context.Context) ([]string, error) {
	hits, err := s.collect(ctx, kindQuery(KindRoot), []string{FieldPath})
	if err != nil {
		return nil, fmt.Errorf("list roots: %w", err)
	}

	roots := make([]string, 0, len(hits))
	for _, hit := range hits {
		if p, ok := hit.Fields[FieldPath].(string); ok {
			roots = append(roots, p)
		}
	}
	sort.Strings(roots)
	return roots, nil
}

// CountByPrefix counts file documents whose path is prefix or lies under it.
func (s *Store) CountByPrefix(ctx context.Context, prefix string) (int, error) {
	return s.count(ctx, scopeQuery(filepath.Clean(prefix)))
}

// Has reports whether a file document exists for path.
func (s *Store) Has(ctx context.Context, path string) (bool, error) {
	n, err := s.count(ctx, fileQuery(filepath.Clean(path)))
	return n > 0, err
}

// DocCount returns the number of documents, markers included.
func (s *Store) DocCount() (uint64, error) {
	return s.index.DocCount()
}

// File returns the stored document for path, or nil if there is none.
func (s *Store) File(ctx context.Context, path string) (*FileDoc, error) {
	req := bleve.NewSearchRequestOptions(fileQuery(filepath.Clean(path)), 1, 0, false)
	req.Fields = []string{FieldPath, FieldName, FieldLanguage, FieldBucket, FieldContent}
	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	if len(res.Hits) == 0 {
		return nil, nil
	}

	hit := res.Hits[0]
	str := func(field string) string {
		v, _ := hit.Fields[field].(string)
		return v
	}
	return &FileDoc{
		Kind:     KindFile,
		Path:     str(FieldPath),
		Name:     str(FieldName),
		Language: str(FieldLanguage),
		Bucket:   str(FieldBucket),
		Content:  str(FieldContent),
	}, nil
}

func (s *Store) count(ctx context.Context, q query.Query) (int, error) {
	req := bleve.NewSearchRequestOptions(q, 0, 0, false)
	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return int(res.Total), nil
}

// collect returns every hit of q, paging in ID order.
func (s *Store) collect(ctx context.Context, q query.Query, fields []string) ([]*search.DocumentMatch, error) {
	var out []*search.DocumentMatch
	for from := 0; ; from += pageSize {
		req := bleve.NewSearchRequestOptions(q, pageSize, from, false)
		req.Fields = fields
		req.SortBy([]string{"_id"})

		res, err := s.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, err
		}
		out = append(out, res.Hits...)
		if len(res.Hits) < pageSize {
			return out, nil
		}
	}
}

func termQuery(field, value string) *query.TermQuery {
	q := bleve.NewTermQuery(value)
	q.SetField(field)
	return q
}

func kindQuery(kind string) query.Query {
	return termQuery(FieldKind, kind)
}

// fileQuery matches the file document at exactly path.
func fileQuery(path string) query.Query {
	return bleve.NewConjunctionQuery(kindQuery(KindFile), termQuery(FieldPath, path))
}

// scopeQuery matches file documents at or under prefix.
func scopeQuery(prefix string) query.Query {
	below := prefix + string(filepath.Separator)
	if prefix == string(filepath.Separator) {
		below = prefix
	}
	under := bleve.NewPrefixQuery(below)
	under.SetField(FieldPath)

	return bleve.NewConjunctionQuery(
		kindQuery(KindFile),
		bleve.NewDisjunctionQuery(termQuery(FieldPath, prefix), under),
	)
}

// validateIndexIntegrity checks an existing index directory before opening.
// Returns nil if the directory is absent or looks valid.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing (corrupted index)")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

// looksLikeIndex reports whether path is safe to clear: an empty directory
// or one holding bleve's files.
func looksLikeIndex(path string) bool {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false
	}
	if len(entries) == 0 {
		return true
	}
	for _, e := range entries {
		switch e.Name() {
		case "index_meta.json", "store":
			return true
		}
	}
	return false
}

// isCorruptionError checks if an error from bleve.Open indicates corruption.
func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, bleve.ErrorIndexMetaCorrupt) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "unexpected end of JSON") ||
		strings.Contains(msg, "error parsing mapping JSON") ||
		strings.Contains(msg, "failed to load segment") ||
		strings.Contains(msg, "error opening bolt")
}
