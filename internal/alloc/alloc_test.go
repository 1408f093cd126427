package alloc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trueai-org/ultrakv/internal/alloc"
)

func Test_TryReserve_ReturnsFalse_WhenDisabled(t *testing.T) {
	t.Parallel()

	a := alloc.New(false, 1024, 4096)
	a.Release(2000, 100)

	_, ok := a.TryReserve(50)
	assert.False(t, ok)
}

func Test_TryReserve_BestFit_PicksSmallestSufficientBlock(t *testing.T) {
	t.Parallel()

	a := alloc.New(true, 1024, 4096)
	a.Release(2000, 500)
	a.Release(3000, 100)
	a.Release(4000, 1000)

	block, ok := a.TryReserve(80)
	require.True(t, ok)
	assert.Equal(t, int64(3000), block.Position)
}

func Test_TryReserve_SplitsBlock_WhenRemainderExceedsWasteThreshold(t *testing.T) {
	t.Parallel()

	a := alloc.New(true, 1024, 4096)
	a.Release(2000, 1000) // remainder after taking 100 is 900 > max(64, 100/4)

	block, ok := a.TryReserve(100)
	require.True(t, ok)
	assert.Equal(t, int64(100), block.Size)

	// The 900-byte remainder should still be reservable.
	remainder, ok := a.TryReserve(900)
	require.True(t, ok)
	assert.Equal(t, int64(2100), remainder.Position)
}

func Test_TryReserve_HandsOutWholeBlock_WhenRemainderBelowWasteThreshold(t *testing.T) {
	t.Parallel()

	a := alloc.New(true, 1024, 4096)
	a.Release(2000, 110) // remainder after taking 100 is 10, below max(64, 100/4)=64

	block, ok := a.TryReserve(100)
	require.True(t, ok)
	assert.Equal(t, int64(110), block.Size)
}

func Test_Release_MergesAdjacentBlocks(t *testing.T) {
	t.Parallel()

	a := alloc.New(true, 1024, 4096)
	a.Release(2000, 100)
	a.Release(2100, 100) // adjacent to the previous block

	stats := a.Stats()
	require.Equal(t, 1, stats.BlockCount)
	assert.Equal(t, int64(200), stats.TotalFreeBytes)
}

func Test_Release_IgnoresPositionsBelowDataStart(t *testing.T) {
	t.Parallel()

	a := alloc.New(true, 1024, 4096)
	a.Release(500, 100) // below dataStart=1024

	assert.Equal(t, 0, a.Stats().BlockCount)
}

func Test_Stats_Fragmentation_ZeroWithNoBlocks(t *testing.T) {
	t.Parallel()

	a := alloc.New(true, 1024, 4096)
	assert.Equal(t, float64(0), a.Stats().Fragmentation())
}

func Test_SaveThenLoad_RoundTripsBlockList(t *testing.T) {
	t.Parallel()

	a := alloc.New(true, 1024, 4096)
	a.Release(2000, 100)
	a.Release(5000, 300)

	buf := newFakeFile(16 * 1024)
	require.NoError(t, a.Save(buf))

	loaded := alloc.New(true, 1024, 4096)
	ok, err := loaded.Load(buf)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, a.Stats().TotalFreeBytes, loaded.Stats().TotalFreeBytes)
	assert.Equal(t, a.Stats().BlockCount, loaded.Stats().BlockCount)
}

// fakeFile is a minimal in-memory io.ReaderAt/io.WriterAt for exercising
// Save/Load without touching the filesystem.
type fakeFile struct {
	buf []byte
}

func newFakeFile(size int) *fakeFile {
	return &fakeFile{buf: make([]byte, size)}
}

func (f *fakeFile) WriteAt(p []byte, off int64) (int, error) {
	need := int(off) + len(p)
	if need > len(f.buf) {
		grown := make([]byte, need)
		copy(grown, f.buf)
		f.buf = grown
	}
	copy(f.buf[off:], p)
	return len(p), nil
}

func (f *fakeFile) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, f.buf[off:])
	return n, nil
}
