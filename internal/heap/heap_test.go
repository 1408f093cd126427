package heap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trueai-org/ultrakv/internal/codec"
	"github.com/trueai-org/ultrakv/internal/heap"
)

type memFile struct {
	buf []byte
}

func newMemFile(size int) *memFile { return &memFile{buf: make([]byte, size)} }

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

func Test_Heap_PlainLayout_RoundTrips(t *testing.T) {
	t.Parallel()

	file := newMemFile(0)
	h := heap.New(file, nil)

	encoded, err := h.EncodeValue("key-1", []byte("hello world"), 12345)
	require.NoError(t, err)

	require.NoError(t, h.Write(0, encoded))

	record, err := h.Read(0, encoded.RecordLength())
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), record.Value)
	assert.False(t, record.IsDeleted)
}

func Test_Heap_CodecLayout_RoundTrips(t *testing.T) {
	t.Parallel()

	pipeline, err := codec.New(codec.CompressionZstd, codec.EncryptionAES256GCM, []byte("0123456789abcdef"))
	require.NoError(t, err)

	file := newMemFile(0)
	h := heap.New(file, pipeline)

	encoded, err := h.EncodeValue("key-1", []byte("hello encrypted world"), 12345)
	require.NoError(t, err)
	require.NoError(t, h.Write(0, encoded))

	record, err := h.Read(0, encoded.RecordLength())
	require.NoError(t, err)
	assert.Equal(t, []byte("hello encrypted world"), record.Value)
}

func Test_Heap_MarkDeleted_FlipsTombstoneWithoutCorruptingPayload(t *testing.T) {
	t.Parallel()

	file := newMemFile(0)
	h := heap.New(file, nil)

	encoded, err := h.EncodeValue("key-1", []byte("still here"), 1)
	require.NoError(t, err)
	require.NoError(t, h.Write(0, encoded))

	require.NoError(t, h.MarkDeleted(0))

	record, err := h.Read(0, encoded.RecordLength())
	require.NoError(t, err)
	assert.True(t, record.IsDeleted)
	assert.Equal(t, []byte("still here"), record.Value)
}
