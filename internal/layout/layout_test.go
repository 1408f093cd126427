package layout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trueai-org/ultrakv/internal/codec"
	"github.com/trueai-org/ultrakv/internal/layout"
)

func Test_FNV1a_MatchesKnownVector(t *testing.T) {
	t.Parallel()
	// "" hashes to the offset basis itself.
	assert.Equal(t, uint32(2166136261), layout.FNV1a(nil))
}

func Test_DatabaseHeader_RoundTripsThroughMarshalBinary(t *testing.T) {
	t.Parallel()

	h := &layout.DatabaseHeader{
		Magic:                   layout.MagicDatabaseHeader,
		Version:                 layout.CurrentVersion,
		Compression:             codec.CompressionZstd,
		Encryption:              codec.EncryptionAES256GCM,
		EnableFreeSpaceReuse:    true,
		EnableUpdateValidation:  true,
		FreeSpaceRegionSizeKB:   64,
		AllocationMultiplier:    20,
		WriteBufferSizeKB:       64,
		ReadBufferSizeKB:        64,
		CreatedAtMs:             1000,
		LastAccessMs:            2000,
		LastGCAtMs:              3000,
		GCMinFileSizeKB:         1024,
		GCFreeSpaceThresholdPct: 30,
		GCMinRecordCount:        100,
		GCFlushIntervalSeconds:  300,
		GCAutoRecycleEnabled:    true,
		TotalGCCount:            5,
		MaxKeyLength:            4096,
		DefaultIndexPageSizeKB:  64,
	}

	buf := h.MarshalBinary()
	require.Len(t, buf, int(layout.DatabaseHeaderSize))
	require.True(t, layout.IsValidDatabaseHeader(buf))

	got := layout.UnmarshalDatabaseHeader(buf)
	assert.Equal(t, h, got)
}

func Test_DatabaseHeader_InvalidWhenChecksumCorrupted(t *testing.T) {
	t.Parallel()

	h := &layout.DatabaseHeader{Magic: layout.MagicDatabaseHeader, Version: layout.CurrentVersion}
	buf := h.MarshalBinary()
	buf[124] ^= 0xFF // corrupt a stored checksum byte; magic and version stay valid

	assert.False(t, layout.IsValidDatabaseHeader(buf))
}

func Test_IndexEntry_RoundTripsThroughMarshalBinary(t *testing.T) {
	t.Parallel()

	e := layout.IndexEntry{
		IsDeleted:            false,
		PageIndex:            3,
		KeyLength:            10,
		ValuePosition:        2048,
		ValueLength:          100,
		ValueAllocatedLength: 128,
		Timestamp:            123456,
	}

	buf := e.MarshalBinary()
	require.Len(t, buf, int(layout.IndexEntrySize))
	assert.Equal(t, e, layout.UnmarshalIndexEntry(buf))
}

func Test_FirstIndexDataStartPosition_GrowsWithRegionSize(t *testing.T) {
	t.Parallel()

	small := layout.FirstIndexDataStartPosition(64 * 1024)
	large := layout.FirstIndexDataStartPosition(128 * 1024)

	assert.Greater(t, large, small)
	assert.Equal(t, large-small, int64(64*1024))
}

func Test_MaxFreeBlocks_DividesRegionByBlockSize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 4096, layout.MaxFreeBlocks(64*1024))
	assert.Equal(t, 0, layout.MaxFreeBlocks(0))
}
