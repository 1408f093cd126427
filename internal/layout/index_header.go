package layout

import "encoding/binary"

// IndexHeader is the 64-byte header describing the paged primary index as
// a whole (page count, region bounds, entry counts).
type IndexHeader struct {
	Magic   uint32
	Version uint32

	PageCount       uint8
	TotalIndexBytes int64
	RegionStart     int64

	CreatedAtMs  int64
	LastUpdateMs int64

	TotalEntries   uint32
	ActiveEntries  uint32
	DeletedEntries uint32
}

// MarshalBinary encodes h into a fresh IndexHeaderSize-byte buffer with a
// trailing FNV-1a checksum.
func (h *IndexHeader) MarshalBinary() []byte {
	buf := make([]byte, IndexHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	buf[8] = h.PageCount
	binary.LittleEndian.PutUint64(buf[9:17], uint64(h.TotalIndexBytes))
	binary.LittleEndian.PutUint64(buf[17:25], uint64(h.RegionStart))
	binary.LittleEndian.PutUint64(buf[25:33], uint64(h.CreatedAtMs))
	binary.LittleEndian.PutUint64(buf[33:41], uint64(h.LastUpdateMs))
	binary.LittleEndian.PutUint32(buf[41:45], h.TotalEntries)
	binary.LittleEndian.PutUint32(buf[45:49], h.ActiveEntries)
	binary.LittleEndian.PutUint32(buf[49:53], h.DeletedEntries)
	// bytes [53:60) reserved.
	checksum := FNV1a(buf[:60])
	binary.LittleEndian.PutUint32(buf[60:64], checksum)
	return buf
}

// UnmarshalIndexHeader parses an IndexHeaderSize-byte buffer.
func UnmarshalIndexHeader(buf []byte) *IndexHeader {
	h := &IndexHeader{}
	h.Magic = binary.LittleEndian.Uint32(buf[0:4])
	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	h.PageCount = buf[8]
	h.TotalIndexBytes = int64(binary.LittleEndian.Uint64(buf[9:17]))
	h.RegionStart = int64(binary.LittleEndian.Uint64(buf[17:25]))
	h.CreatedAtMs = int64(binary.LittleEndian.Uint64(buf[25:33]))
	h.LastUpdateMs = int64(binary.LittleEndian.Uint64(buf[33:41]))
	h.TotalEntries = binary.LittleEndian.Uint32(buf[41:45])
	h.ActiveEntries = binary.LittleEndian.Uint32(buf[45:49])
	h.DeletedEntries = binary.LittleEndian.Uint32(buf[49:53])
	return h
}

// IsValidIndexHeader reports whether buf's magic, version and checksum all
// check out.
func IsValidIndexHeader(buf []byte) bool {
	if len(buf) != int(IndexHeaderSize) {
		return false
	}
	magic := binary.LittleEndian.Uint32(buf[0:4])
	version := binary.LittleEndian.Uint32(buf[4:8])
	if magic != MagicIndexHeader || version > CurrentVersion {
		return false
	}
	want := binary.LittleEndian.Uint32(buf[60:64])
	got := FNV1a(buf[:60])
	return want == got
}

// IndexBlock is a single 16-byte pointer-array entry locating one index
// page within the file.
type IndexBlock struct {
	PagePosition int64
	PageSize     int64
}

// MarshalBinary encodes b into a fresh 16-byte buffer.
func (b IndexBlock) MarshalBinary() []byte {
	buf := make([]byte, IndexBlockSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(b.PagePosition))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(b.PageSize))
	return buf
}

// UnmarshalIndexBlock parses a 16-byte buffer into an IndexBlock.
func UnmarshalIndexBlock(buf []byte) IndexBlock {
	return IndexBlock{
		PagePosition: int64(binary.LittleEndian.Uint64(buf[0:8])),
		PageSize:     int64(binary.LittleEndian.Uint64(buf[8:16])),
	}
}

// IsZero reports whether b is the zero-valued (unused) block.
func (b IndexBlock) IsZero() bool {
	return b.PagePosition == 0 && b.PageSize == 0
}

// IndexPageHeader is the 32-byte header at the start of every index page.
type IndexPageHeader struct {
	Magic        uint32
	EntryCount   uint32
	MaxEntries   uint32
	UsedBytes    uint32
	FreeBytes    uint32
	LastUpdateMs int64
}

// MarshalBinary encodes h into a fresh IndexPageHeaderSize-byte buffer.
func (h *IndexPageHeader) MarshalBinary() []byte {
	buf := make([]byte, IndexPageHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.EntryCount)
	binary.LittleEndian.PutUint32(buf[8:12], h.MaxEntries)
	binary.LittleEndian.PutUint32(buf[12:16], h.UsedBytes)
	binary.LittleEndian.PutUint32(buf[16:20], h.FreeBytes)
	binary.LittleEndian.PutUint64(buf[20:28], uint64(h.LastUpdateMs))
	// bytes [28:32) reserved.
	return buf
}

// UnmarshalIndexPageHeader parses an IndexPageHeaderSize-byte buffer.
func UnmarshalIndexPageHeader(buf []byte) *IndexPageHeader {
	h := &IndexPageHeader{}
	h.Magic = binary.LittleEndian.Uint32(buf[0:4])
	h.EntryCount = binary.LittleEndian.Uint32(buf[4:8])
	h.MaxEntries = binary.LittleEndian.Uint32(buf[8:12])
	h.UsedBytes = binary.LittleEndian.Uint32(buf[12:16])
	h.FreeBytes = binary.LittleEndian.Uint32(buf[16:20])
	h.LastUpdateMs = int64(binary.LittleEndian.Uint64(buf[20:28]))
	return h
}

// IsValidIndexPageHeader checks only the magic (page headers carry no
// checksum of their own; beyond this check, a page is only guarded by the
// bounds checks applied while its tuples are loaded).
func IsValidIndexPageHeader(buf []byte) bool {
	if len(buf) != int(IndexPageHeaderSize) {
		return false
	}
	return binary.LittleEndian.Uint32(buf[0:4]) == MagicIndexPage
}
