package codec

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz/lzma"

	ukerrors "github.com/trueai-org/ultrakv/pkg/errors"
)

// Compressor is the narrow collaborator interface the pipeline composes
// with an Encryptor. Implementations must be byte-preserving round trips:
// Decode(Encode(x)) == x for every x.
type Compressor interface {
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// noneCompressor passes bytes through unchanged.
type noneCompressor struct{}

func (noneCompressor) Encode(data []byte) ([]byte, error) { return data, nil }
func (noneCompressor) Decode(data []byte) ([]byte, error) { return data, nil }

// gzipCompressor wraps klauspost/compress/gzip, a drop-in faster
// replacement for the standard library's gzip package.
type gzipCompressor struct{}

func (gzipCompressor) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, wrapEncode(err, "gzip", len(data))
	}
	if err := w.Close(); err != nil {
		return nil, wrapEncode(err, "gzip", len(data))
	}
	return buf.Bytes(), nil
}

func (gzipCompressor) Decode(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, wrapDecode(err, "gzip", len(data))
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, wrapDecode(err, "gzip", len(data))
	}
	return out, nil
}

// deflateCompressor wraps klauspost/compress/flate (raw DEFLATE, no gzip
// framing).
type deflateCompressor struct{}

func (deflateCompressor) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, wrapEncode(err, "deflate", len(data))
	}
	if _, err := w.Write(data); err != nil {
		return nil, wrapEncode(err, "deflate", len(data))
	}
	if err := w.Close(); err != nil {
		return nil, wrapEncode(err, "deflate", len(data))
	}
	return buf.Bytes(), nil
}

func (deflateCompressor) Decode(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, wrapDecode(err, "deflate", len(data))
	}
	return out, nil
}

// brotliCompressor wraps andybalholm/brotli.
type brotliCompressor struct{}

func (brotliCompressor) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, wrapEncode(err, "brotli", len(data))
	}
	if err := w.Close(); err != nil {
		return nil, wrapEncode(err, "brotli", len(data))
	}
	return buf.Bytes(), nil
}

func (brotliCompressor) Decode(data []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, wrapDecode(err, "brotli", len(data))
	}
	return out, nil
}

// lz4Compressor wraps pierrec/lz4/v4.
type lz4Compressor struct{}

func (lz4Compressor) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, wrapEncode(err, "lz4", len(data))
	}
	if err := w.Close(); err != nil {
		return nil, wrapEncode(err, "lz4", len(data))
	}
	return buf.Bytes(), nil
}

func (lz4Compressor) Decode(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, wrapDecode(err, "lz4", len(data))
	}
	return out, nil
}

// zstdCompressor wraps klauspost/compress/zstd. Encoders/decoders are
// expensive to build, so one of each is kept per compressor instance; calls
// into them are serialized by Pipeline's mutex.
type zstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstdCompressor() (*zstdCompressor, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &zstdCompressor{enc: enc, dec: dec}, nil
}

func (z *zstdCompressor) Encode(data []byte) ([]byte, error) {
	return z.enc.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func (z *zstdCompressor) Decode(data []byte) ([]byte, error) {
	out, err := z.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, wrapDecode(err, "zstd", len(data))
	}
	return out, nil
}

// snappyCompressor wraps klauspost/compress/s2 in its Snappy-compatible
// framing mode, which klauspost/compress documents as a faster drop-in
// replacement that can still emit (and read) the classic Snappy frame
// format.
type snappyCompressor struct{}

func (snappyCompressor) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := s2.NewWriter(&buf, s2.WriterSnappyCompat())
	if _, err := w.Write(data); err != nil {
		return nil, wrapEncode(err, "snappy", len(data))
	}
	if err := w.Close(); err != nil {
		return nil, wrapEncode(err, "snappy", len(data))
	}
	return buf.Bytes(), nil
}

func (snappyCompressor) Decode(data []byte) ([]byte, error) {
	r := s2.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, wrapDecode(err, "snappy", len(data))
	}
	return out, nil
}

// lzmaCompressor wraps ulikunitz/xz/lzma.
type lzmaCompressor struct{}

func (lzmaCompressor) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := lzma.NewWriter(&buf)
	if err != nil {
		return nil, wrapEncode(err, "lzma", len(data))
	}
	if _, err := w.Write(data); err != nil {
		return nil, wrapEncode(err, "lzma", len(data))
	}
	if err := w.Close(); err != nil {
		return nil, wrapEncode(err, "lzma", len(data))
	}
	return buf.Bytes(), nil
}

func (lzmaCompressor) Decode(data []byte) ([]byte, error) {
	r, err := lzma.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, wrapDecode(err, "lzma", len(data))
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, wrapDecode(err, "lzma", len(data))
	}
	return out, nil
}

// NewCompressor returns the Compressor implementing kind, or an error if
// kind is unknown. CompressionNone returns a pass-through compressor rather
// than nil so callers never need a nil check.
func NewCompressor(kind CompressionKind) (Compressor, error) {
	switch kind {
	case CompressionNone:
		return noneCompressor{}, nil
	case CompressionGzip:
		return gzipCompressor{}, nil
	case CompressionDeflate:
		return deflateCompressor{}, nil
	case CompressionBrotli:
		return brotliCompressor{}, nil
	case CompressionLZ4:
		return lz4Compressor{}, nil
	case CompressionZstd:
		return newZstdCompressor()
	case CompressionSnappy:
		return snappyCompressor{}, nil
	case CompressionLZMA:
		return lzmaCompressor{}, nil
	default:
		return nil, ukerrors.NewConfigurationValidationError(
			"compressionType", "unknown compression kind",
		)
	}
}

func wrapEncode(err error, algorithm string, size int) error {
	return ukerrors.NewCodecError(err, ukerrors.ErrorCodeCodecEncode, "compression encode failed").
		WithKind("compression").WithAlgorithm(algorithm).WithInputSize(size)
}

func wrapDecode(err error, algorithm string, size int) error {
	return ukerrors.NewCodecError(err, ukerrors.ErrorCodeCodecDecode, "compression decode failed").
		WithKind("compression").WithAlgorithm(algorithm).WithInputSize(size)
}
