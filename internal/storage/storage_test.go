package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trueai-org/ultrakv/internal/storage"
)

func Test_Open_ReportsIsNew_ForFreshPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fresh.ukv")
	f, isNew, err := storage.Open(storage.Config{Path: path, Logger: zap.NewNop().Sugar()})
	require.NoError(t, err)
	defer f.Close()

	assert.True(t, isNew)
}

func Test_Open_ReportsNotNew_OnSecondOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "existing.ukv")
	f, _, err := storage.Open(storage.Config{Path: path, Logger: zap.NewNop().Sugar()})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f2, isNew, err := storage.Open(storage.Config{Path: path, Logger: zap.NewNop().Sugar()})
	require.NoError(t, err)
	defer f2.Close()

	assert.False(t, isNew)
}

func Test_WriteAt_ThenReadAt_RoundTrips(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.ukv")
	f, _, err := storage.Open(storage.Config{Path: path, Logger: zap.NewNop().Sugar()})
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Grow(100))
	_, err = f.WriteAt([]byte("hello"), 10)
	require.NoError(t, err)

	buf := make([]byte, 5)
	_, err = f.ReadAt(buf, 10)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
}

func Test_Grow_IsNoOp_WhenAlreadyLargeEnough(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "grow.ukv")
	f, _, err := storage.Open(storage.Config{Path: path, Logger: zap.NewNop().Sugar()})
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Grow(200))
	size, err := f.Size()
	require.NoError(t, err)
	require.Equal(t, int64(200), size)

	require.NoError(t, f.Grow(50))
	size, err = f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(200), size)
}

func Test_Close_IsIdempotentAndRejectsFurtherUse(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "closed.ukv")
	f, _, err := storage.Open(storage.Config{Path: path, Logger: zap.NewNop().Sugar()})
	require.NoError(t, err)

	require.NoError(t, f.Close())
	assert.ErrorIs(t, f.Close(), storage.ErrFileClosed)

	_, err = f.Size()
	assert.ErrorIs(t, err, storage.ErrFileClosed)
}

func Test_ReplaceWithTempFile_SwapsContent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "db.ukv")
	tmpPath := path + ".tmp"

	require.NoError(t, os.WriteFile(path, []byte("old content"), 0644))
	require.NoError(t, os.WriteFile(tmpPath, []byte("new content"), 0644))

	require.NoError(t, storage.ReplaceWithTempFile(tmpPath, path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new content", string(got))
}

func Test_Remove_IsNoOp_WhenFileAbsent(t *testing.T) {
	t.Parallel()
	assert.NoError(t, storage.Remove(filepath.Join(t.TempDir(), "absent.tmp")))
}
