package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dwerrors "github.com/Aman-CERP/docwatch/internal/errors"
	"github.com/Aman-CERP/docwatch/internal/lock"
)

// testEnv isolates config, home and index directories for one test.
type testEnv struct {
	index string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("NO_COLOR", "1")
	for _, v := range []string{"DOCWATCH_INDEX_PATH", "DOCWATCH_DEFAULT_LANGUAGE", "DOCWATCH_LOG_LEVEL", "DOCWATCH_WATCH_MODE", "DOCWATCH_INDEX_WORKERS"} {
		t.Setenv(v, "")
	}
	return &testEnv{index: filepath.Join(t.TempDir(), "index")}
}

func (e *testEnv) run(ctx context.Context, args ...string) (string, error) {
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--index", e.index}, args...))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(context.Background(), args...)
	require.NoError(t, err)
	return out
}

func docs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("the quick brown fox"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("lazy dog"), 0o644))
	return dir
}

func TestRoot_AdminRoundTrip(t *testing.T) {
	// Given: an empty index
	env := newTestEnv(t)
	dir := docs(t)

	// When/Then: list, add, add again, list, remove, remove again
	assert.Contains(t, env.mustRun(t, "--list"), "No indexed directories.")
	assert.Contains(t, env.mustRun(t, "--add", dir), "Added "+dir+" (2 files indexed)")
	assert.Contains(t, env.mustRun(t, "--add", dir), dir+" is already indexed")
	assert.Equal(t, dir+"\n", env.mustRun(t, "--list"))
	assert.Contains(t, env.mustRun(t, "--rm", dir), "Removed "+dir)
	assert.Contains(t, env.mustRun(t, "--rm", dir), dir+" is not indexed")
}

func TestRoot_ReindexAndPurge(t *testing.T) {
	env := newTestEnv(t)

	assert.Contains(t, env.mustRun(t, "--reindex"), "No directories to reindex.")

	env.mustRun(t, "--add", docs(t))
	assert.Contains(t, env.mustRun(t, "--reindex"), "Reindexed 1 directory")
	assert.Contains(t, env.mustRun(t, "--purge"), "Index purged")
	assert.Contains(t, env.mustRun(t, "--list"), "No indexed directories.")
}

func TestRoot_ClearKeepsRoots(t *testing.T) {
	env := newTestEnv(t)
	dir := docs(t)
	env.mustRun(t, "--add", dir)

	assert.Contains(t, env.mustRun(t, "--clear"), "Cleared 2 documents")
	assert.Equal(t, dir+"\n", env.mustRun(t, "--list"))
	assert.Contains(t, env.mustRun(t, "search", "fox"), "Files count: 0")
}

func TestRoot_AdminFlagsMutuallyExclusive(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(context.Background(), "--list", "--purge")

	assert.Error(t, err)
}

func TestRoot_AddMissingDirectory(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(context.Background(), "--add", filepath.Join(t.TempDir(), "missing"))

	assert.ErrorIs(t, err, dwerrors.ErrFSAccess)
}

func TestRoot_LockedIndex(t *testing.T) {
	// Given: another process holds the index lock
	env := newTestEnv(t)
	held := lock.ForIndex(env.index)
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _ = held.Unlock() }()

	// When: an admin command runs
	_, err = env.run(context.Background(), "--list")

	// Then: it fails fast
	assert.ErrorIs(t, err, dwerrors.ErrIndexLocked)
	assert.True(t, dwerrors.IsFatal(err))
}

func TestRoot_InvalidConfigIsFatal(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("DOCWATCH_WATCH_MODE", "carrier-pigeon")

	_, err := env.run(context.Background(), "--list")

	assert.ErrorIs(t, err, dwerrors.ErrConfig)
}

func TestRoot_ProfileFlags(t *testing.T) {
	// Given: a heap profile requested for an admin command
	env := newTestEnv(t)
	heap := filepath.Join(t.TempDir(), "heap.prof")

	// When: the command finishes
	env.mustRun(t, "--profile-mem", heap, "--list")

	// Then: the profile was written on teardown
	info, err := os.Stat(heap)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRoot_WatchWithoutRoots(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t)

	assert.Contains(t, out, "No indexed directories to watch")
}

func TestRoot_WatchStopsOnCancel(t *testing.T) {
	// Given: a registered directory watched by polling
	env := newTestEnv(t)
	t.Setenv("DOCWATCH_WATCH_MODE", "poll")
	env.mustRun(t, "--add", docs(t))

	// When: the watch loop is interrupted
	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(300*time.Millisecond, cancel)
	defer timer.Stop()
	_, err := env.run(ctx)

	// Then: it exits cleanly and releases the index
	require.NoError(t, err)
	assert.Contains(t, env.mustRun(t, "--list"), string(filepath.Separator))
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	dir := docs(t)
	env.mustRun(t, "--add", dir)

	out := env.mustRun(t, "search", "fox")

	assert.Contains(t, out, "Files count: 1")
	assert.Contains(t, out, filepath.Join(dir, "a.txt"))
}

func TestSearch_JSONWithDetails(t *testing.T) {
	env := newTestEnv(t)
	dir := docs(t)
	env.mustRun(t, "--add", dir)

	out := env.mustRun(t, "search", "lazy", "--details", "--format", "json")

	var res struct {
		Total uint64 `json:"total"`
		Hits  []struct {
			Path      string   `json:"path"`
			Fragments []string `json:"fragments"`
		} `json:"hits"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, uint64(1), res.Total)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, filepath.Join(dir, "sub", "b.txt"), res.Hits[0].Path)
	require.NotEmpty(t, res.Hits[0].Fragments)
	assert.Contains(t, res.Hits[0].Fragments[0], "**lazy**")
}

func TestSearch_BadMode(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(context.Background(), "search", "x", "--mode", "regex")

	assert.Error(t, err)
}

func TestSearch_WhileWatcherHoldsLock(t *testing.T) {
	// Given: a watcher holds the index lock
	env := newTestEnv(t)
	held := lock.ForIndex(env.index)
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _ = held.Unlock() }()

	// When: searching
	_, err = env.run(context.Background(), "search", "fox")

	// Then: the error names the watcher as the holder
	require.ErrorIs(t, err, dwerrors.ErrIndexLocked)
	assert.Contains(t, dwerrors.FormatForCLI(err), "running `docwatch` watch holds the index")
}

func TestInspect(t *testing.T) {
	env := newTestEnv(t)
	dir := docs(t)
	env.mustRun(t, "--add", dir)
	path := filepath.Join(dir, "a.txt")

	out := env.mustRun(t, "inspect", path)
	assert.Contains(t, out, path)
	assert.Contains(t, out, "language: ")
	assert.Contains(t, out, "bytes")
	assert.NotContains(t, out, "quick brown")

	out = env.mustRun(t, "inspect", path, "--content")
	assert.Contains(t, out, "quick brown fox")
}

func TestInspect_JSON(t *testing.T) {
	env := newTestEnv(t)
	dir := docs(t)
	env.mustRun(t, "--add", dir)
	path := filepath.Join(dir, "sub", "b.txt")

	out := env.mustRun(t, "inspect", path, "--format", "json", "--content")

	var doc struct {
		Kind    string `json:"kind"`
		Path    string `json:"path"`
		Name    string `json:"name"`
		Bucket  string `json:"bucket"`
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, path, doc.Path)
	assert.Equal(t, "b.txt", doc.Name)
	assert.NotEmpty(t, doc.Bucket)
	assert.Contains(t, doc.Content, "lazy dog")
}

func TestInspect_NotIndexed(t *testing.T) {
	env := newTestEnv(t)
	dir := docs(t)

	_, err := env.run(context.Background(), "inspect", filepath.Join(dir, "a.txt"))

	assert.ErrorIs(t, err, dwerrors.ErrInvalidPath)
}

func TestConfig_InitAndShow(t *testing.T) {
	env := newTestEnv(t)

	assert.Contains(t, env.mustRun(t, "config", "init"), "Created user configuration")
	assert.Contains(t, env.mustRun(t, "config", "init"), "already exists")
	assert.Contains(t, env.mustRun(t, "config", "init", "--force"), "Backup:")

	shown := env.mustRun(t, "config", "show")
	assert.Contains(t, shown, "mode: fsnotify")
	assert.Contains(t, shown, "index:")
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)

	assert.NotEmpty(t, env.mustRun(t, "version", "--short"))
	assert.Contains(t, env.mustRun(t, "version"), "docwatch ")

	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "version", "--json")), &info))
	assert.Contains(t, info, "go_version")

	_, err := env.run(context.Background(), "version", "--json", "--short")
	assert.Error(t, err)
}
