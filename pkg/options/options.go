// Package options provides the data structures and functional-option
// constructors for configuring an UltraKV database. Most fields are stamped
// into the persisted DatabaseHeader (§6) when the file is created. On
// reopen the engine rejects a compression/encryption mismatch with
// ConfigMismatch and rebuilds the file when the free-space settings
// differ; the other fields are taken from the incoming Options.
package options

import (
	"strings"

	"github.com/trueai-org/ultrakv/internal/codec"
	"github.com/trueai-org/ultrakv/pkg/errors"
)

// Options controls storage behavior, the codec pipeline, and background
// GC for a single UltraKV database file.
type Options struct {
	// Path is the database file's location on disk.
	//
	// Default: "/var/lib/ultrakv/data.ukv"
	Path string `json:"path"`

	// EnableFreeSpaceReuse turns the free-space allocator on. When false,
	// every value is appended at end-of-file and deleted slots are never
	// reclaimed until a shrink.
	//
	// Default: true
	EnableFreeSpaceReuse bool `json:"enableFreeSpaceReuse"`

	// EnableMemoryMode preserves an in-memory cache of values for Get, on
	// top of the always-present key index. Out of scope for the core
	// read/write path except as a flag carried in the header.
	//
	// Default: false
	EnableMemoryMode bool `json:"enableMemoryMode"`

	// EnableUpdateValidation makes every Put round-trip through a Get of
	// the just-written bytes, failing with ValidationFailed on mismatch.
	//
	// Default: false
	EnableUpdateValidation bool `json:"enableUpdateValidation"`

	// MaxKeyLength bounds a key's encoded byte length.
	//
	// Default: 4096
	MaxKeyLength int32 `json:"maxKeyLength"`

	// DefaultIndexPageSizeKB sizes the very first index page.
	//
	// Default: 64; Minimum: 1
	DefaultIndexPageSizeKB int32 `json:"defaultIndexPageSizeKB"`

	// FreeSpaceRegionSizeKB sizes the fixed free-block region. 0 disables
	// reuse regardless of EnableFreeSpaceReuse.
	//
	// Default: 64
	FreeSpaceRegionSizeKB int32 `json:"freeSpaceRegionSizeKB"`

	// AllocationMultiplier is the preallocation overshoot applied when the
	// allocator must grow the file: actual factor = 1 + n/100.
	//
	// Default: 20 (1.2x)
	AllocationMultiplier uint8 `json:"allocationMultiplier"`

	// CompressionType and EncryptionType select the codec pipeline. Fixed
	// at database creation; reopening with a different pair fails with
	// ConfigMismatch.
	CompressionType codec.CompressionKind `json:"compressionType"`
	EncryptionType  codec.EncryptionKind  `json:"encryptionType"`

	// EncryptionKey must be at least 16 bytes when EncryptionType != None.
	EncryptionKey []byte `json:"-"`

	// WriteBufferSizeKB / ReadBufferSizeKB are recorded in the
	// DatabaseHeader; the file I/O path does not buffer and does not use
	// them.
	//
	// Default: 64; Minimum: 4
	WriteBufferSizeKB int32 `json:"writeBufferSizeKB"`
	ReadBufferSizeKB  int32 `json:"readBufferSizeKB"`

	// GCMinFileSizeKB / GCFreeSpaceThresholdPct / GCMinRecordCount gate
	// should_trigger_gc (§4.7): the file must be at least this large, at
	// least this many live records, and at least this fraction free.
	GCMinFileSizeKB         uint32 `json:"gcMinFileSizeKB"`
	GCFreeSpaceThresholdPct uint8  `json:"gcFreeSpaceThresholdPct"`
	GCMinRecordCount        uint16 `json:"gcMinRecordCount"`

	// GCAutoRecycleEnabled arms the background timer to call shrink(force
	// = false) when should_trigger_gc holds.
	GCAutoRecycleEnabled bool `json:"gcAutoRecycleEnabled"`

	// GCFlushIntervalSeconds is the period of the background flush/GC
	// timer; 0 disables it entirely.
	GCFlushIntervalSeconds uint16 `json:"gcFlushIntervalSeconds"`
}

// OptionFunc mutates an Options value under construction.
type OptionFunc func(*Options)

// WithDefaultOptions seeds o with NewDefaultOptions's values.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		*o = NewDefaultOptions()
	}
}

// WithPath sets the database file path.
func WithPath(path string) OptionFunc {
	return func(o *Options) {
		path = strings.TrimSpace(path)
		if path != "" {
			o.Path = path
		}
	}
}

// WithFreeSpaceReuse toggles the allocator.
func WithFreeSpaceReuse(enabled bool) OptionFunc {
	return func(o *Options) { o.EnableFreeSpaceReuse = enabled }
}

// WithMemoryMode toggles the in-memory value cache flag.
func WithMemoryMode(enabled bool) OptionFunc {
	return func(o *Options) { o.EnableMemoryMode = enabled }
}

// WithUpdateValidation toggles Put read-back verification.
func WithUpdateValidation(enabled bool) OptionFunc {
	return func(o *Options) { o.EnableUpdateValidation = enabled }
}

// WithMaxKeyLength overrides the maximum encoded key length.
func WithMaxKeyLength(n int32) OptionFunc {
	return func(o *Options) {
		if n > 0 {
			o.MaxKeyLength = n
		}
	}
}

// WithIndexPageSizeKB overrides the first index page's size.
func WithIndexPageSizeKB(kb int32) OptionFunc {
	return func(o *Options) {
		if kb >= MinIndexPageSizeKB {
			o.DefaultIndexPageSizeKB = kb
		}
	}
}

// WithFreeSpaceRegionSizeKB overrides the free-block region's size. 0
// disables reuse.
func WithFreeSpaceRegionSizeKB(kb int32) OptionFunc {
	return func(o *Options) {
		if kb >= 0 {
			o.FreeSpaceRegionSizeKB = kb
		}
	}
}

// WithAllocationMultiplier overrides the preallocation overshoot percent.
func WithAllocationMultiplier(n uint8) OptionFunc {
	return func(o *Options) { o.AllocationMultiplier = n }
}

// WithCodec selects the compression and encryption kinds and key.
func WithCodec(compression codec.CompressionKind, encryption codec.EncryptionKind, key []byte) OptionFunc {
	return func(o *Options) {
		o.CompressionType = compression
		o.EncryptionType = encryption
		o.EncryptionKey = key
	}
}

// WithBufferSizesKB overrides the write/read buffer sizes.
func WithBufferSizesKB(writeKB, readKB int32) OptionFunc {
	return func(o *Options) {
		if writeKB >= MinBufferSizeKB {
			o.WriteBufferSizeKB = writeKB
		}
		if readKB >= MinBufferSizeKB {
			o.ReadBufferSizeKB = readKB
		}
	}
}

// WithGC overrides the background GC thresholds and timer period.
func WithGC(minFileSizeKB uint32, freeSpaceThresholdPct uint8, minRecordCount uint16, autoRecycle bool, flushIntervalSeconds uint16) OptionFunc {
	return func(o *Options) {
		o.GCMinFileSizeKB = minFileSizeKB
		o.GCFreeSpaceThresholdPct = freeSpaceThresholdPct
		o.GCMinRecordCount = minRecordCount
		o.GCAutoRecycleEnabled = autoRecycle
		o.GCFlushIntervalSeconds = flushIntervalSeconds
	}
}

// New builds an Options starting from defaults and applies fns in order.
func New(fns ...OptionFunc) *Options {
	o := NewDefaultOptions()
	for _, fn := range fns {
		fn(&o)
	}
	return &o
}

// Validate checks the invariants §6 states explicitly: a non-empty path,
// a sufficiently long encryption key when encryption is enabled, and
// buffer sizes that meet the documented minimums.
func (o *Options) Validate() error {
	if strings.TrimSpace(o.Path) == "" {
		return errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "path is required").
			WithField("path").WithRule("required")
	}
	if !o.CompressionType.Valid() {
		return errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "unknown compression type").
			WithField("compressionType").WithRule("valid_enum").WithProvided(o.CompressionType)
	}
	if !o.EncryptionType.Valid() {
		return errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "unknown encryption type").
			WithField("encryptionType").WithRule("valid_enum").WithProvided(o.EncryptionType)
	}
	if o.EncryptionType != codec.EncryptionNone && len(o.EncryptionKey) < codec.MinEncryptionKeyLength {
		return errors.NewFieldRangeError("encryptionKey", len(o.EncryptionKey), codec.MinEncryptionKeyLength, 0).
			WithMessage("encryption key must be at least 16 bytes when encryption is enabled")
	}
	if o.MaxKeyLength <= 0 {
		return errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "maxKeyLength must be positive").
			WithField("maxKeyLength").WithRule("min").WithProvided(o.MaxKeyLength)
	}
	if o.DefaultIndexPageSizeKB < MinIndexPageSizeKB {
		return errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "defaultIndexPageSizeKB below minimum").
			WithField("defaultIndexPageSizeKB").WithRule("min").WithProvided(o.DefaultIndexPageSizeKB)
	}
	if o.FreeSpaceRegionSizeKB < 0 {
		return errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "freeSpaceRegionSizeKB cannot be negative").
			WithField("freeSpaceRegionSizeKB").WithRule("min").WithProvided(o.FreeSpaceRegionSizeKB)
	}
	if o.WriteBufferSizeKB < MinBufferSizeKB || o.ReadBufferSizeKB < MinBufferSizeKB {
		return errors.NewValidationError(nil, errors.ErrorCodeInvalidInput, "buffer sizes below minimum").
			WithField("writeBufferSizeKB/readBufferSizeKB").WithRule("min").
			WithProvided([2]int32{o.WriteBufferSizeKB, o.ReadBufferSizeKB})
	}
	return nil
}
