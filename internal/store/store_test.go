package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dwerrors "github.com/Aman-CERP/docwatch/internal/errors"
	"github.com/Aman-CERP/docwatch/internal/extract"
	"github.com/Aman-CERP/docwatch/internal/ignore"
)

// fixedClassifier labels every text with one language.
type fixedClassifier string

func (c fixedClassifier) Classify(string) string { return string(c) }

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	if opts.Classifier == nil {
		opts.Classifier = fixedClassifier("en")
	}
	s, err := OpenMem(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func session(t *testing.T, s *Store, fn func(*Session) error) {
	t.Helper()
	require.NoError(t, s.WithSession(context.Background(), fn))
}

func TestSession_IndexFile(t *testing.T) {
	// Given: a file on disk
	s := newTestStore(t, Options{})
	path := writeFile(t, filepath.Join(t.TempDir(), "docs", "a.txt"), "hello")

	// When: it is indexed
	session(t, s, func(sess *Session) error { return sess.IndexFile(path) })

	// Then: one document with its fields exists
	doc, err := s.File(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, path, doc.Path)
	assert.Equal(t, "a.txt", doc.Name)
	assert.Equal(t, "en", doc.Language)
	assert.Equal(t, "en", doc.Bucket)
	assert.Equal(t, "hello", doc.Content)
}

func TestSession_IndexFile_ReplacesExisting(t *testing.T) {
	s := newTestStore(t, Options{})
	path := writeFile(t, filepath.Join(t.TempDir(), "a.txt"), "first")
	session(t, s, func(sess *Session) error { return sess.IndexFile(path) })

	writeFile(t, path, "second")
	session(t, s, func(sess *Session) error { return sess.IndexFile(path) })

	n, err := s.CountByPrefix(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	doc, err := s.File(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "second", doc.Content)
}

func TestSession_IndexFile_ExtractionErrorLeavesBatch(t *testing.T) {
	s := newTestStore(t, Options{})
	dir := t.TempDir()
	good := writeFile(t, filepath.Join(dir, "good.txt"), "ok")
	binary := writeFile(t, filepath.Join(dir, "bin.dat"), "a\x00b")

	session(t, s, func(sess *Session) error {
		require.NoError(t, sess.IndexFile(good))
		err := sess.IndexFile(binary)
		assert.ErrorIs(t, err, dwerrors.ErrExtraction)
		return nil
	})

	has, err := s.Has(context.Background(), good)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestSession_IndexFile_Excluded(t *testing.T) {
	m, err := ignore.New([]string{"*.swp"})
	require.NoError(t, err)
	s := newTestStore(t, Options{Exclude: m})
	path := writeFile(t, filepath.Join(t.TempDir(), "a.swp"), "swap")

	session(t, s, func(sess *Session) error { return sess.IndexFile(path) })

	count, err := s.DocCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSession_DeleteByPathPrefix_Scoping(t *testing.T) {
	// Given: files under /docs, /docs/sub and a sibling /docs2
	s := newTestStore(t, Options{})
	base := t.TempDir()
	docs := filepath.Join(base, "docs")
	writeFile(t, filepath.Join(docs, "a.txt"), "a")
	writeFile(t, filepath.Join(docs, "sub", "b.txt"), "b")
	sibling := writeFile(t, filepath.Join(base, "docs2", "c.txt"), "c")
	session(t, s, func(sess *Session) error {
		_, err := sess.IndexTree(base)
		return err
	})

	// When: deleting by the /docs prefix
	var deleted int
	session(t, s, func(sess *Session) error {
		var err error
		deleted, err = sess.DeleteByPathPrefix(docs)
		return err
	})

	// Then: only documents under /docs are gone
	assert.Equal(t, 2, deleted)
	n, err := s.CountByPrefix(context.Background(), docs)
	require.NoError(t, err)
	assert.Zero(t, n)
	has, err := s.Has(context.Background(), sibling)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestSession_DeleteByPathPrefix_ExactFileKeepsNamesakes(t *testing.T) {
	s := newTestStore(t, Options{})
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a.txt"), "a")
	namesake := writeFile(t, filepath.Join(dir, "a.txt.bak"), "backup")
	session(t, s, func(sess *Session) error {
		_, err := sess.IndexTree(dir)
		return err
	})

	session(t, s, func(sess *Session) error {
		_, err := sess.DeleteByPathPrefix(a)
		return err
	})

	hasA, _ := s.Has(context.Background(), a)
	hasBak, _ := s.Has(context.Background(), namesake)
	assert.False(t, hasA)
	assert.True(t, hasBak)
}

func TestSession_DeleteByPathPrefix_SeesPendingAdds(t *testing.T) {
	// Given: a file indexed and deleted inside one session
	s := newTestStore(t, Options{})
	path := writeFile(t, filepath.Join(t.TempDir(), "a.txt"), "a")

	session(t, s, func(sess *Session) error {
		require.NoError(t, sess.IndexFile(path))
		n, err := sess.DeleteByPathPrefix(path)
		assert.Equal(t, 1, n)
		return err
	})

	// Then: nothing was committed for it
	has, err := s.Has(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSession_DeleteThenReindexIsOneCommit(t *testing.T) {
	s := newTestStore(t, Options{})
	path := writeFile(t, filepath.Join(t.TempDir(), "a.txt"), "old")
	session(t, s, func(sess *Session) error { return sess.IndexFile(path) })
	writeFile(t, path, "new")

	session(t, s, func(sess *Session) error {
		if _, err := sess.DeleteByPathPrefix(path); err != nil {
			return err
		}
		// Not committed yet: the old document is still visible
		doc, err := s.File(context.Background(), path)
		require.NoError(t, err)
		require.NotNil(t, doc)
		assert.Equal(t, "old", doc.Content)
		return sess.IndexFile(path)
	})

	doc, err := s.File(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "new", doc.Content)
}

func TestSession_DeletePrefixKeepsRootMarkers(t *testing.T) {
	s := newTestStore(t, Options{})
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	session(t, s, func(sess *Session) error {
		if err := sess.AddRootMarker(root); err != nil {
			return err
		}
		_, err := sess.IndexTree(root)
		return err
	})

	session(t, s, func(sess *Session) error {
		_, err := sess.DeleteByPathPrefix(root)
		return err
	})

	roots, err := s.Roots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{root}, roots)
}

func TestWithSession_ErrorDiscards(t *testing.T) {
	s := newTestStore(t, Options{})
	path := writeFile(t, filepath.Join(t.TempDir(), "a.txt"), "a")
	boom := errors.New("boom")

	err := s.WithSession(context.Background(), func(sess *Session) error {
		require.NoError(t, sess.IndexFile(path))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	has, _ := s.Has(context.Background(), path)
	assert.False(t, has)
}

func TestWithSession_PanicDiscardsAndReleases(t *testing.T) {
	s := newTestStore(t, Options{})
	path := writeFile(t, filepath.Join(t.TempDir(), "a.txt"), "a")

	assert.Panics(t, func() {
		_ = s.WithSession(context.Background(), func(sess *Session) error {
			require.NoError(t, sess.IndexFile(path))
			panic("mid-batch")
		})
	})

	// The session lock was released and nothing was committed
	has, _ := s.Has(context.Background(), path)
	assert.False(t, has)
	session(t, s, func(sess *Session) error { return sess.IndexFile(path) })
	has, _ = s.Has(context.Background(), path)
	assert.True(t, has)
}

func TestWithSession_CanceledContextDiscards(t *testing.T) {
	s := newTestStore(t, Options{})
	path := writeFile(t, filepath.Join(t.TempDir(), "a.txt"), "a")
	ctx, cancel := context.WithCancel(context.Background())

	err := s.WithSession(ctx, func(sess *Session) error {
		require.NoError(t, sess.IndexFile(path))
		cancel()
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	has, _ := s.Has(context.Background(), path)
	assert.False(t, has)
}

func TestWithSession_FlushesPastBatchLimit(t *testing.T) {
	// Given: a batch limit of 2 and five files
	s := newTestStore(t, Options{BatchLimit: 2})
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		writeFile(t, filepath.Join(dir, fmt.Sprintf("f%d.txt", i)), "x")
	}

	// When: the session fails after indexing them all
	err := s.WithSession(context.Background(), func(sess *Session) error {
		res, err := sess.IndexTree(dir)
		require.NoError(t, err)
		assert.Equal(t, 5, res.Indexed)
		return errors.New("late failure")
	})

	// Then: flushed files stay, only the unflushed tail is lost
	require.Error(t, err)
	n, err := s.CountByPrefix(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestSession_IndexTree_PartialFailure(t *testing.T) {
	// Given: three files, one of which cannot be extracted, and an excluded directory
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "bad.txt"), "bad")
	writeFile(t, filepath.Join(dir, "sub", "c.txt"), "c")
	writeFile(t, filepath.Join(dir, ".git", "HEAD"), "ref")

	text := extract.NewTextExtractor(0)
	failing := extract.ExtractorFunc(func(ctx context.Context, path string) (string, error) {
		if filepath.Base(path) == "bad.txt" {
			return "", dwerrors.ExtractionError(path, errors.New("unreadable"))
		}
		return text.Extract(ctx, path)
	})
	m, err := ignore.New([]string{"**/.git"})
	require.NoError(t, err)
	s := newTestStore(t, Options{Extractor: failing, Exclude: m, Workers: 2})

	// When: indexing the tree
	var res TreeResult
	session(t, s, func(sess *Session) error {
		var err error
		res, err = sess.IndexTree(dir)
		return err
	})

	// Then: N-1 files are indexed and the excluded directory is ignored
	assert.Equal(t, TreeResult{Indexed: 2, Skipped: 1}, res)
	n, err := s.CountByPrefix(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSession_IndexTree_SingleFile(t *testing.T) {
	s := newTestStore(t, Options{})
	path := writeFile(t, filepath.Join(t.TempDir(), "only.txt"), "x")

	var res TreeResult
	session(t, s, func(sess *Session) error {
		var err error
		res, err = sess.IndexTree(path)
		return err
	})

	assert.Equal(t, 1, res.Indexed)
}

func TestSession_RootMarkers(t *testing.T) {
	s := newTestStore(t, Options{})

	session(t, s, func(sess *Session) error {
		require.NoError(t, sess.AddRootMarker("/srv/b"))
		require.NoError(t, sess.AddRootMarker("/srv/a/"))
		return sess.AddRootMarker("/srv/b")
	})

	roots, err := s.Roots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/a", "/srv/b"}, roots)

	session(t, s, func(sess *Session) error { return sess.DeleteRootMarker("/srv/a") })
	roots, err = s.Roots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/b"}, roots)
}

func TestSession_DeleteAllAndDeleteFiles(t *testing.T) {
	s := newTestStore(t, Options{})
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "b.txt"), "b")
	session(t, s, func(sess *Session) error {
		require.NoError(t, sess.AddRootMarker(root))
		_, err := sess.IndexTree(root)
		return err
	})

	// DeleteFiles keeps the registry
	session(t, s, func(sess *Session) error {
		n, err := sess.DeleteFiles()
		assert.Equal(t, 2, n)
		return err
	})
	roots, err := s.Roots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{root}, roots)

	// DeleteAll clears everything
	session(t, s, func(sess *Session) error {
		_, err := sess.DeleteAll()
		return err
	})
	count, err := s.DocCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSession_DeleteAllThenReAdd(t *testing.T) {
	s := newTestStore(t, Options{})
	session(t, s, func(sess *Session) error { return sess.AddRootMarker("/srv/a") })

	session(t, s, func(sess *Session) error {
		if _, err := sess.DeleteAll(); err != nil {
			return err
		}
		return sess.AddRootMarker("/srv/a")
	})

	roots, err := s.Roots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/a"}, roots)
}

func TestUnderPrefix(t *testing.T) {
	assert.True(t, underPrefix("/docs", "/docs"))
	assert.True(t, underPrefix("/docs/a.txt", "/docs"))
	assert.False(t, underPrefix("/docs2/a.txt", "/docs"))
	assert.True(t, underPrefix("/anything", "/"))
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	// Given: an on-disk index with one root
	path := filepath.Join(t.TempDir(), "index")
	s, err := Open(path, Options{Classifier: fixedClassifier("en")})
	require.NoError(t, err)
	session(t, s, func(sess *Session) error { return sess.AddRootMarker("/srv/docs") })
	require.NoError(t, s.Close())

	// When: reopening it
	s, err = Open(path, Options{Classifier: fixedClassifier("en")})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	// Then: the root survived
	roots, err := s.Roots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/docs"}, roots)
	assert.Equal(t, path, s.Path())
}

func TestOpen_RecoversCorruptIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")
	writeFile(t, filepath.Join(path, "index_meta.json"), "{not json")

	s, err := Open(path, Options{})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	count, err := s.DocCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestOpen_RefusesForeignDirectory(t *testing.T) {
	path := t.TempDir()
	writeFile(t, filepath.Join(path, "notes.txt"), "keep me")

	_, err := Open(path, Options{})

	require.Error(t, err)
	assert.ErrorIs(t, err, dwerrors.ErrIndexOpen)
	assert.FileExists(t, filepath.Join(path, "notes.txt"))
}

func TestWithSession_ClosedStore(t *testing.T) {
	s, err := OpenMem(Options{})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	err = s.WithSession(context.Background(), func(*Session) error { return nil })

	assert.ErrorIs(t, err, dwerrors.ErrIndexWrite)
}
