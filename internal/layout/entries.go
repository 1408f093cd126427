package layout

import "encoding/binary"

// IndexEntry is the 32-byte on-disk descriptor for one key. Invariants
// (§3): KeyLength>0; ValuePosition>=0 once confirmed; ValueLength <=
// ValueAllocatedLength; PageIndex equals the page storing this tuple.
type IndexEntry struct {
	IsDeleted            bool
	PageIndex            uint8
	KeyLength            int32
	ValuePosition        int64 // -1 until confirmed
	ValueLength          int32
	ValueAllocatedLength int32
	Timestamp            int64
}

// NewReservation builds the tentative IndexEntry written to a page before
// the value is placed: ValuePosition is -1 and all size fields are zero.
func NewReservation(pageIndex uint8, keyLength int32, timestampMs int64) IndexEntry {
	return IndexEntry{
		PageIndex:     pageIndex,
		KeyLength:     keyLength,
		ValuePosition: -1,
		Timestamp:     timestampMs,
	}
}

// MarshalBinary encodes e into a fresh IndexEntrySize-byte buffer.
func (e IndexEntry) MarshalBinary() []byte {
	buf := make([]byte, IndexEntrySize)
	buf[0] = boolByte(e.IsDeleted)
	buf[1] = e.PageIndex
	binary.LittleEndian.PutUint32(buf[2:6], uint32(e.KeyLength))
	binary.LittleEndian.PutUint64(buf[6:14], uint64(e.ValuePosition))
	binary.LittleEndian.PutUint32(buf[14:18], uint32(e.ValueLength))
	binary.LittleEndian.PutUint32(buf[18:22], uint32(e.ValueAllocatedLength))
	binary.LittleEndian.PutUint64(buf[22:30], uint64(e.Timestamp))
	// bytes [30:32) reserved.
	return buf
}

// UnmarshalIndexEntry parses an IndexEntrySize-byte buffer into an
// IndexEntry.
func UnmarshalIndexEntry(buf []byte) IndexEntry {
	return IndexEntry{
		IsDeleted:            buf[0] != 0,
		PageIndex:            buf[1],
		KeyLength:            int32(binary.LittleEndian.Uint32(buf[2:6])),
		ValuePosition:        int64(binary.LittleEndian.Uint64(buf[6:14])),
		ValueLength:          int32(binary.LittleEndian.Uint32(buf[14:18])),
		ValueAllocatedLength: int32(binary.LittleEndian.Uint32(buf[18:22])),
		Timestamp:            int64(binary.LittleEndian.Uint64(buf[22:30])),
	}
}

// RecordHeader is the 17-byte on-disk header used for a value record when
// neither compression nor encryption is active.
type RecordHeader struct {
	KeyLength   uint32
	ValueLength uint32
	Timestamp   int64
	IsDeleted   bool
}

// MarshalBinary encodes h into a fresh RecordHeaderSize-byte buffer.
func (h RecordHeader) MarshalBinary() []byte {
	buf := make([]byte, RecordHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.KeyLength)
	binary.LittleEndian.PutUint32(buf[4:8], h.ValueLength)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(h.Timestamp))
	buf[16] = boolByte(h.IsDeleted)
	return buf
}

// UnmarshalRecordHeader parses a RecordHeaderSize-byte buffer.
func UnmarshalRecordHeader(buf []byte) RecordHeader {
	return RecordHeader{
		KeyLength:   binary.LittleEndian.Uint32(buf[0:4]),
		ValueLength: binary.LittleEndian.Uint32(buf[4:8]),
		Timestamp:   int64(binary.LittleEndian.Uint64(buf[8:16])),
		IsDeleted:   buf[16] != 0,
	}
}

// EncryptedDataHeader is the 12-byte on-disk header used for a value
// record when a codec (compression and/or encryption) is active.
type EncryptedDataHeader struct {
	OriginalSize  uint32
	EncryptedSize uint32
	IsDeleted     bool
}

// MarshalBinary encodes h into a fresh EncryptedDataHeaderSize-byte buffer.
func (h EncryptedDataHeader) MarshalBinary() []byte {
	buf := make([]byte, EncryptedDataHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.OriginalSize)
	binary.LittleEndian.PutUint32(buf[4:8], h.EncryptedSize)
	buf[8] = boolByte(h.IsDeleted)
	// bytes [9:12) reserved.
	return buf
}

// UnmarshalEncryptedDataHeader parses an EncryptedDataHeaderSize-byte
// buffer.
func UnmarshalEncryptedDataHeader(buf []byte) EncryptedDataHeader {
	return EncryptedDataHeader{
		OriginalSize:  binary.LittleEndian.Uint32(buf[0:4]),
		EncryptedSize: binary.LittleEndian.Uint32(buf[4:8]),
		IsDeleted:     buf[8] != 0,
	}
}
