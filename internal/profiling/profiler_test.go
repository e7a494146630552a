package profiling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nonEmpty(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestOptions_Enabled(t *testing.T) {
	assert.False(t, Options{}.Enabled())
	assert.True(t, Options{Heap: "heap.prof"}.Enabled())
}

func TestRun_WritesAllProfiles(t *testing.T) {
	// Given: every profile requested
	dir := t.TempDir()
	opts := Options{
		CPU:   filepath.Join(dir, "cpu.prof"),
		Heap:  filepath.Join(dir, "heap.prof"),
		Trace: filepath.Join(dir, "trace.out"),
	}

	// When: a run does some work and stops
	run, err := Start(opts)
	require.NoError(t, err)
	sum := 0
	for i := 0; i < 1000000; i++ {
		sum += i
	}
	_ = sum
	require.NoError(t, run.Stop())

	// Then: each file holds data
	nonEmpty(t, opts.CPU)
	nonEmpty(t, opts.Heap)
	nonEmpty(t, opts.Trace)
}

func TestRun_HeapOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.prof")

	run, err := Start(Options{Heap: path})
	require.NoError(t, err)
	require.NoError(t, run.Stop())

	nonEmpty(t, path)
}

func TestStart_BadPath(t *testing.T) {
	_, err := Start(Options{CPU: filepath.Join(t.TempDir(), "missing", "cpu.prof")})
	assert.Error(t, err)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    uint64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1024 * 1024, "1.00 MB"},
		{1024 * 1024 * 1024, "1.00 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatBytes(tt.bytes))
		})
	}
}
