package layout

// File-level constants normatively fixed by §6 of the spec.
const (
	MagicDatabaseHeader  uint32 = 0x554B5644 // "UKVD"
	MagicFreeSpaceHeader uint32 = 0x46535053 // "FSPS"
	MagicIndexHeader     uint32 = 0x49445848 // "IDXH"
	MagicIndexPage       uint32 = 0x49445850 // "IDXP"

	CurrentVersion uint32 = 1

	DatabaseHeaderOffset  int64 = 0
	DatabaseHeaderSize    int64 = 128
	FreeSpaceHeaderOffset int64 = 128
	FreeSpaceHeaderSize   int64 = 64

	// FreeSpaceRegionOffset is the fixed absolute start of the free-block
	// array. §9 Open Question 1 fixes this at 1024 regardless of header
	// sizes, leaving [192,1024) as reserved padding.
	FreeSpaceRegionOffset int64 = 1024

	FreeBlockSize int64 = 16

	IndexHeaderSize int64 = 64
	IndexBlockSize  int64 = 16
	MaxIndexPages   int   = 32

	IndexPageHeaderSize int64 = 32
	IndexEntrySize      int64 = 32

	RecordHeaderSize        int64 = 17
	EncryptedDataHeaderSize int64 = 12

	// EncryptedIsDeletedOffset / PlainIsDeletedOffset are the fixed byte
	// offsets of the tombstone flag within a value record, used to flip a
	// single byte on Delete without touching the payload (§4.6).
	EncryptedIsDeletedOffset int64 = 8
	PlainIsDeletedOffset     int64 = 16
)

// IndexHeaderOffset returns the absolute file offset of the IndexHeader,
// which sits immediately after the free-space block region in the
// canonical layout chosen by §3 ("canonical choice: after free-space
// region").
func IndexHeaderOffset(freeSpaceRegionSizeBytes int64) int64 {
	return FreeSpaceRegionOffset + freeSpaceRegionSizeBytes
}

// IndexBlocksOffset returns the absolute file offset of the IndexBlock[32]
// pointer array, which directly follows the IndexHeader.
func IndexBlocksOffset(freeSpaceRegionSizeBytes int64) int64 {
	return IndexHeaderOffset(freeSpaceRegionSizeBytes) + IndexHeaderSize
}

// FirstIndexDataStartPosition returns the absolute file offset where the
// first index page (and, after it, the value heap) begins.
func FirstIndexDataStartPosition(freeSpaceRegionSizeBytes int64) int64 {
	return IndexBlocksOffset(freeSpaceRegionSizeBytes) + int64(MaxIndexPages)*IndexBlockSize
}

// MaxFreeBlocks returns how many FreeBlock records fit in a free-space
// region of the given byte size.
func MaxFreeBlocks(freeSpaceRegionSizeBytes int64) int {
	return int(freeSpaceRegionSizeBytes / FreeBlockSize)
}
