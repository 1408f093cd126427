// Package codec implements C2 of the UltraKV design: a composable
// compress-then-encrypt pipeline applied to value (and, when a codec is
// active, key) byte buffers. Concrete algorithms are external collaborators
// behind the narrow Compressor and Encryptor interfaces, which Pipeline
// composes; this package only owns composition,
// kind validation, and the on-disk kind identifiers stamped into the
// DatabaseHeader.
package codec

// CompressionKind identifies which compression algorithm, if any, a
// database was created with. The numeric values are persisted in the
// DatabaseHeader and must never be renumbered.
type CompressionKind uint8

const (
	CompressionNone CompressionKind = iota
	CompressionGzip
	CompressionDeflate
	CompressionBrotli
	CompressionLZ4
	CompressionZstd
	CompressionSnappy
	CompressionLZMA
)

// String returns the lowercase config-file-friendly name of the kind.
func (k CompressionKind) String() string {
	switch k {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionDeflate:
		return "deflate"
	case CompressionBrotli:
		return "brotli"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	case CompressionSnappy:
		return "snappy"
	case CompressionLZMA:
		return "lzma"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the defined compression kinds.
func (k CompressionKind) Valid() bool {
	return k <= CompressionLZMA
}

// EncryptionKind identifies which AEAD cipher, if any, a database was
// created with. Persisted in the DatabaseHeader alongside CompressionKind.
type EncryptionKind uint8

const (
	EncryptionNone EncryptionKind = iota
	EncryptionAES256GCM
)

// String returns the lowercase config-file-friendly name of the kind.
func (k EncryptionKind) String() string {
	switch k {
	case EncryptionNone:
		return "none"
	case EncryptionAES256GCM:
		return "aes-256-gcm"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the defined encryption kinds.
func (k EncryptionKind) Valid() bool {
	return k <= EncryptionAES256GCM
}
