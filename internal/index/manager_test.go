package index_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trueai-org/ultrakv/internal/index"
)

type memFile struct {
	buf []byte
}

func newMemFile() *memFile { return &memFile{} }

func (f *memFile) WriteAt(p []byte, off int64) (int, error) {
	need := int(off) + len(p)
	if need > len(f.buf) {
		grown := make([]byte, need)
		copy(grown, f.buf)
		f.buf = grown
	}
	copy(f.buf[off:], p)
	return len(p), nil
}

func (f *memFile) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, f.buf[off:]), nil
}

func (f *memFile) Size() (int64, error) { return int64(len(f.buf)), nil }

func identity(key string) ([]byte, error) { return []byte(key), nil }
func unidentity(b []byte) (string, error) { return string(b), nil }

func newTestManager(t *testing.T) *index.Manager {
	t.Helper()
	m, err := index.Open(index.Config{
		Logger:              zap.NewNop().Sugar(),
		File:                newMemFile(),
		FreeSpaceRegionSize: 64 * 1024,
		DefaultPageSizeKB:   4,
		EncodeKey:           identity,
		DecodeKey:           unidentity,
	}, true)
	require.NoError(t, err)
	return m
}

func confirmPut(t *testing.T, m *index.Manager, key string, position int64) {
	t.Helper()
	r, err := m.Reserve(key)
	require.NoError(t, err)
	entry := r.Entry
	entry.ValuePosition = position
	entry.ValueLength = 10
	entry.ValueAllocatedLength = 10
	require.NoError(t, m.Confirm(key, entry))
}

func Test_ReserveConfirm_MakesKeyVisibleAndContained(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	confirmPut(t, m, "alpha", 1000)

	assert.True(t, m.Contains("alpha"))
	entry, ok := m.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, int64(1000), entry.ValuePosition)
}

func Test_Rollback_RemovesFreshReservation(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	r, err := m.Reserve("beta")
	require.NoError(t, err)

	require.NoError(t, m.Rollback(r))

	assert.False(t, m.Contains("beta"))
	_, ok := m.Get("beta")
	assert.False(t, ok)
}

func Test_Delete_TombstonesAndRemovesFromCache(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	confirmPut(t, m, "gamma", 2000)

	entry, existed, err := m.Delete("gamma")
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, int64(2000), entry.ValuePosition)

	assert.False(t, m.Contains("gamma"))

	_, existedAgain, err := m.Delete("gamma")
	require.NoError(t, err)
	assert.False(t, existedAgain)
}

func Test_Keys_ReturnsOnlyLiveEntries(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	confirmPut(t, m, "k1", 100)
	confirmPut(t, m, "k2", 200)
	_, _, err := m.Delete("k1")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"k2"}, m.Keys())
}

func Test_Reserve_CreatesNewPageWhenPageFull(t *testing.T) {
	t.Parallel()

	m, err := index.Open(index.Config{
		Logger:              zap.NewNop().Sugar(),
		File:                newMemFile(),
		FreeSpaceRegionSize: 64 * 1024,
		DefaultPageSizeKB:   1, // 1KiB: small enough to fill quickly
		EncodeKey:           identity,
		DecodeKey:           unidentity,
	}, true)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key-padded-to-use-some-space-%04d", i)
		confirmPut(t, m, key, int64(i*10))
	}

	stats := m.Stats()
	assert.Greater(t, stats.PageCount, 1)
}

func Test_ConsolidatePages_MergesIntoSinglePage(t *testing.T) {
	t.Parallel()

	m, err := index.Open(index.Config{
		Logger:              zap.NewNop().Sugar(),
		File:                newMemFile(),
		FreeSpaceRegionSize: 64 * 1024,
		DefaultPageSizeKB:   1,
		EncodeKey:           identity,
		DecodeKey:           unidentity,
	}, true)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("consolidate-key-%04d", i)
		confirmPut(t, m, key, int64(i*10))
	}
	require.Greater(t, m.Stats().PageCount, 1)

	newLength, err := m.ConsolidatePages()
	require.NoError(t, err)
	assert.Greater(t, newLength, int64(0))
	assert.Equal(t, 1, m.Stats().PageCount)
	assert.Equal(t, uint32(50), m.Stats().ActiveEntries)
}

func Test_Flush_ClearsDirtyFlag(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	confirmPut(t, m, "delta", 500)
	assert.True(t, m.Dirty())

	require.NoError(t, m.Flush())
	assert.False(t, m.Dirty())
}

func Test_Clear_EmptiesCacheAndPages(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	confirmPut(t, m, "epsilon", 900)

	m.Clear()

	assert.False(t, m.Contains("epsilon"))
	assert.Equal(t, 0, m.Stats().PageCount)
}
