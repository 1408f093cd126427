// Package heap implements C6: reading and writing value records in the
// append-only value heap that follows the index pages in the database
// file. Every record is addressed by the position, length and allocated
// length carried in its IndexEntry — the heap itself never needs to scan
// for a key (§4.6).
package heap

import (
	"github.com/trueai-org/ultrakv/internal/codec"
	"github.com/trueai-org/ultrakv/internal/layout"
	"github.com/trueai-org/ultrakv/pkg/errors"
)

// FileHandle is the slice of file operations the heap needs.
type FileHandle interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
}

// Heap reads and writes value records against a file, optionally passing
// the raw value bytes through a codec pipeline.
type Heap struct {
	file     FileHandle
	pipeline *codec.Pipeline // nil when no codec is configured
}

// New returns a Heap bound to file, applying pipeline (which may be nil)
// to every written/read value.
func New(file FileHandle, pipeline *codec.Pipeline) *Heap {
	return &Heap{file: file, pipeline: pipeline}
}

// Record is a fully decoded value record as read back from the heap.
type Record struct {
	Value     []byte
	IsDeleted bool
}

// Encoded is the result of preparing a value for the heap: the bytes
// ready to write plus their length, which the caller stores as
// IndexEntry.ValueLength (the allocator is asked for however many bytes
// the caller chooses to preallocate around this).
type Encoded struct {
	Bytes []byte
}

// EncodeValue prepares raw key/value bytes for the heap, applying the
// codec pipeline when configured. The key is included in the plain
// (no-codec) layout per RecordHeader, but is NOT re-stored when a codec is
// active — EncryptedDataHeader carries only the encoded value, since the
// index page already owns the authoritative encoded key (§4.6).
func (h *Heap) EncodeValue(key string, value []byte, timestampMs int64) (Encoded, error) {
	if h.pipeline == nil || !h.pipeline.Active() {
		hdr := layout.RecordHeader{
			KeyLength:   uint32(len(key)),
			ValueLength: uint32(len(value)),
			Timestamp:   timestampMs,
			IsDeleted:   false,
		}
		buf := make([]byte, 0, layout.RecordHeaderSize+int64(len(key))+int64(len(value)))
		buf = append(buf, hdr.MarshalBinary()...)
		buf = append(buf, []byte(key)...)
		buf = append(buf, value...)
		return Encoded{Bytes: buf}, nil
	}

	encoded, err := h.pipeline.Encode(value)
	if err != nil {
		return Encoded{}, err
	}
	hdr := layout.EncryptedDataHeader{
		OriginalSize:  uint32(len(value)),
		EncryptedSize: uint32(len(encoded)),
		IsDeleted:     false,
	}
	buf := make([]byte, 0, layout.EncryptedDataHeaderSize+int64(len(encoded)))
	buf = append(buf, hdr.MarshalBinary()...)
	buf = append(buf, encoded...)
	return Encoded{Bytes: buf}, nil
}

// Write writes an already-encoded record at position.
func (h *Heap) Write(position int64, encoded Encoded) error {
	_, err := h.file.WriteAt(encoded.Bytes, position)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to write value record").
			WithOffset(int(position))
	}
	return nil
}

// Read reads and decodes the value record at position. recordLength is
// the IndexEntry's ValueLength, which this package defines as the total
// on-disk record size (record header included) — the same quantity
// EncodeValue returns in Encoded.Bytes' length, so callers never need to
// separately track key or header sizes.
func (h *Heap) Read(position, recordLength int64) (Record, error) {
	if h.pipeline == nil || !h.pipeline.Active() {
		buf := make([]byte, recordLength)
		if _, err := h.file.ReadAt(buf, position); err != nil {
			return Record{}, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read value record").
				WithOffset(int(position))
		}
		hdr := layout.UnmarshalRecordHeader(buf[:layout.RecordHeaderSize])
		valueStart := layout.RecordHeaderSize + int64(hdr.KeyLength)
		value := buf[valueStart : valueStart+int64(hdr.ValueLength)]
		return Record{Value: value, IsDeleted: hdr.IsDeleted}, nil
	}

	buf := make([]byte, recordLength)
	if _, err := h.file.ReadAt(buf, position); err != nil {
		return Record{}, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to read encoded value record").
			WithOffset(int(position))
	}
	hdr := layout.UnmarshalEncryptedDataHeader(buf[:layout.EncryptedDataHeaderSize])
	if hdr.IsDeleted {
		return Record{IsDeleted: true}, nil
	}
	encoded := buf[layout.EncryptedDataHeaderSize : layout.EncryptedDataHeaderSize+int64(hdr.EncryptedSize)]
	value, err := h.pipeline.Decode(encoded)
	if err != nil {
		return Record{}, err
	}
	return Record{Value: value, IsDeleted: false}, nil
}

// RecordLength returns the length of encoded.Bytes, the value callers
// should store as IndexEntry.ValueLength.
func (e Encoded) RecordLength() int64 { return int64(len(e.Bytes)) }

// MarkDeleted flips the tombstone byte at its fixed offset without
// touching the payload (§4.6).
func (h *Heap) MarkDeleted(position int64) error {
	offset := layout.PlainIsDeletedOffset
	if h.pipeline != nil && h.pipeline.Active() {
		offset = layout.EncryptedIsDeletedOffset
	}
	if _, err := h.file.WriteAt([]byte{1}, position+offset); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to mark value tombstone").
			WithOffset(int(position + offset))
	}
	return nil
}
