package lock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dwerrors "github.com/Aman-CERP/docwatch/internal/errors"
)

func TestForIndex_PathBesideIndex(t *testing.T) {
	l := ForIndex("/var/lib/docwatch/index/")

	assert.Equal(t, "/var/lib/docwatch/index.lock", l.Path())
}

func TestFileLock_LockUnlock(t *testing.T) {
	// Given: a lock in a directory that does not exist yet
	l := New(filepath.Join(t.TempDir(), "nested", "index.lock"))

	// When: locking and unlocking
	require.NoError(t, l.Lock())
	assert.True(t, l.IsLocked())
	require.NoError(t, l.Unlock())

	// Then: the lock is released and a second unlock is harmless
	assert.False(t, l.IsLocked())
	assert.NoError(t, l.Unlock())
}

func TestFileLock_TryLockContended(t *testing.T) {
	// Given: one holder of the index lock
	index := filepath.Join(t.TempDir(), "index")
	holder := ForIndex(index)
	require.NoError(t, holder.Lock())
	defer func() { _ = holder.Unlock() }()

	// When: a second lock tries without blocking
	other := ForIndex(index)
	ok, err := other.TryLock()

	// Then: it fails without error
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, other.IsLocked())
}

func TestFileLock_AcquireReportsLocked(t *testing.T) {
	index := filepath.Join(t.TempDir(), "index")
	holder := ForIndex(index)
	require.NoError(t, holder.Acquire(index))
	defer func() { _ = holder.Unlock() }()

	err := ForIndex(index).Acquire(index)

	require.Error(t, err)
	assert.ErrorIs(t, err, dwerrors.ErrIndexLocked)
	assert.Equal(t, dwerrors.ErrCodeIndexLocked, dwerrors.GetCode(err))
}

func TestFileLock_AcquireAfterRelease(t *testing.T) {
	index := filepath.Join(t.TempDir(), "index")
	first := ForIndex(index)
	require.NoError(t, first.Acquire(index))
	require.NoError(t, first.Unlock())

	second := ForIndex(index)
	require.NoError(t, second.Acquire(index))
	assert.True(t, second.IsLocked())
	require.NoError(t, second.Unlock())
}
