package layout

import (
	"encoding/binary"

	"github.com/trueai-org/ultrakv/internal/codec"
)

// DatabaseHeader is the 128-byte header at offset 0 of every UltraKV file.
type DatabaseHeader struct {
	Magic       uint32
	Version     uint32
	Compression codec.CompressionKind
	Encryption  codec.EncryptionKind

	EnableFreeSpaceReuse   bool
	EnableMemoryMode       bool
	EnableUpdateValidation bool

	FreeSpaceRegionSizeKB int32
	AllocationMultiplier  uint8 // actual multiplier = 1 + n/100

	WriteBufferSizeKB int32
	ReadBufferSizeKB  int32

	CreatedAtMs  int64
	LastAccessMs int64
	LastGCAtMs   int64

	GCMinFileSizeKB         uint32
	GCFreeSpaceThresholdPct uint8
	GCMinRecordCount        uint16
	GCFlushIntervalSeconds  uint16
	GCAutoRecycleEnabled    bool
	TotalGCCount            uint32

	MaxKeyLength           int32
	DefaultIndexPageSizeKB int32
}

// AllocationFactor returns the effective preallocation multiplier
// (1 + n/100) described by §3.
func (h *DatabaseHeader) AllocationFactor() float64 {
	return 1 + float64(h.AllocationMultiplier)/100
}

// MarshalBinary encodes h into a fresh DatabaseHeaderSize-byte buffer with
// the checksum computed and written into the final 4 bytes.
func (h *DatabaseHeader) MarshalBinary() []byte {
	buf := make([]byte, DatabaseHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	buf[8] = byte(h.Compression)
	buf[9] = byte(h.Encryption)
	buf[10] = boolByte(h.EnableFreeSpaceReuse)
	buf[11] = boolByte(h.EnableMemoryMode)
	buf[12] = boolByte(h.EnableUpdateValidation)
	binary.LittleEndian.PutUint32(buf[13:17], uint32(h.FreeSpaceRegionSizeKB))
	buf[17] = h.AllocationMultiplier
	binary.LittleEndian.PutUint32(buf[18:22], uint32(h.WriteBufferSizeKB))
	binary.LittleEndian.PutUint32(buf[22:26], uint32(h.ReadBufferSizeKB))
	binary.LittleEndian.PutUint64(buf[26:34], uint64(h.CreatedAtMs))
	binary.LittleEndian.PutUint64(buf[34:42], uint64(h.LastAccessMs))
	binary.LittleEndian.PutUint64(buf[42:50], uint64(h.LastGCAtMs))
	binary.LittleEndian.PutUint32(buf[50:54], h.GCMinFileSizeKB)
	buf[54] = h.GCFreeSpaceThresholdPct
	binary.LittleEndian.PutUint16(buf[55:57], h.GCMinRecordCount)
	binary.LittleEndian.PutUint16(buf[57:59], h.GCFlushIntervalSeconds)
	buf[59] = boolByte(h.GCAutoRecycleEnabled)
	binary.LittleEndian.PutUint32(buf[60:64], h.TotalGCCount)
	binary.LittleEndian.PutUint32(buf[64:68], uint32(h.MaxKeyLength))
	binary.LittleEndian.PutUint32(buf[68:72], uint32(h.DefaultIndexPageSizeKB))
	// bytes [72:124) are reserved and left zero.
	checksum := FNV1a(buf[:124])
	binary.LittleEndian.PutUint32(buf[124:128], checksum)
	return buf
}

// UnmarshalDatabaseHeader parses a DatabaseHeaderSize-byte buffer into a
// DatabaseHeader. It does not validate the checksum; call
// IsValidDatabaseHeader for that.
func UnmarshalDatabaseHeader(buf []byte) *DatabaseHeader {
	h := &DatabaseHeader{}
	h.Magic = binary.LittleEndian.Uint32(buf[0:4])
	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	h.Compression = codec.CompressionKind(buf[8])
	h.Encryption = codec.EncryptionKind(buf[9])
	h.EnableFreeSpaceReuse = buf[10] != 0
	h.EnableMemoryMode = buf[11] != 0
	h.EnableUpdateValidation = buf[12] != 0
	h.FreeSpaceRegionSizeKB = int32(binary.LittleEndian.Uint32(buf[13:17]))
	h.AllocationMultiplier = buf[17]
	h.WriteBufferSizeKB = int32(binary.LittleEndian.Uint32(buf[18:22]))
	h.ReadBufferSizeKB = int32(binary.LittleEndian.Uint32(buf[22:26]))
	h.CreatedAtMs = int64(binary.LittleEndian.Uint64(buf[26:34]))
	h.LastAccessMs = int64(binary.LittleEndian.Uint64(buf[34:42]))
	h.LastGCAtMs = int64(binary.LittleEndian.Uint64(buf[42:50]))
	h.GCMinFileSizeKB = binary.LittleEndian.Uint32(buf[50:54])
	h.GCFreeSpaceThresholdPct = buf[54]
	h.GCMinRecordCount = binary.LittleEndian.Uint16(buf[55:57])
	h.GCFlushIntervalSeconds = binary.LittleEndian.Uint16(buf[57:59])
	h.GCAutoRecycleEnabled = buf[59] != 0
	h.TotalGCCount = binary.LittleEndian.Uint32(buf[60:64])
	h.MaxKeyLength = int32(binary.LittleEndian.Uint32(buf[64:68]))
	h.DefaultIndexPageSizeKB = int32(binary.LittleEndian.Uint32(buf[68:72]))
	return h
}

// IsValidDatabaseHeader reports whether buf's magic, version and checksum all check out
// for a DatabaseHeader, per §4.1.
func IsValidDatabaseHeader(buf []byte) bool {
	if len(buf) != int(DatabaseHeaderSize) {
		return false
	}
	magic := binary.LittleEndian.Uint32(buf[0:4])
	version := binary.LittleEndian.Uint32(buf[4:8])
	if magic != MagicDatabaseHeader || version > CurrentVersion {
		return false
	}
	want := binary.LittleEndian.Uint32(buf[124:128])
	got := FNV1a(buf[:124])
	return want == got
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
