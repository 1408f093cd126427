package options

import "github.com/trueai-org/ultrakv/internal/codec"

const (
	// DefaultPath is used when no path option is supplied.
	DefaultPath = "/var/lib/ultrakv/data.ukv"

	// DefaultMaxKeyLength is the default maximum encoded key length in
	// bytes (§6).
	DefaultMaxKeyLength int32 = 4096

	// MinIndexPageSizeKB / DefaultIndexPageSizeKB bound and default the
	// first index page's size.
	MinIndexPageSizeKB     int32 = 1
	DefaultIndexPageSizeKB int32 = 64

	// DefaultFreeSpaceRegionSizeKB sizes the free-block region; 0 disables
	// reuse regardless of EnableFreeSpaceReuse.
	DefaultFreeSpaceRegionSizeKB int32 = 64

	// DefaultAllocationMultiplier is a 20% preallocation overshoot
	// (factor 1.20).
	DefaultAllocationMultiplier uint8 = 20

	// MinBufferSizeKB / DefaultBufferSizeKB bound and default the
	// read/write buffer sizes.
	MinBufferSizeKB     int32 = 4
	DefaultBufferSizeKB int32 = 64

	// Background GC defaults: a 64 MiB file, at least 1000 live records,
	// and 30% free space trigger an automatic shrink; the timer ticks
	// every 5 minutes.
	DefaultGCMinFileSizeKB         uint32 = 64 * 1024
	DefaultGCFreeSpaceThresholdPct uint8  = 30
	DefaultGCMinRecordCount        uint16 = 1000
	DefaultGCFlushIntervalSeconds  uint16 = 300
)

// NewDefaultOptions returns the baseline Options every constructor starts
// from.
func NewDefaultOptions() Options {
	return Options{
		Path:                    DefaultPath,
		EnableFreeSpaceReuse:    true,
		EnableMemoryMode:        false,
		EnableUpdateValidation:  false,
		MaxKeyLength:            DefaultMaxKeyLength,
		DefaultIndexPageSizeKB:  DefaultIndexPageSizeKB,
		FreeSpaceRegionSizeKB:   DefaultFreeSpaceRegionSizeKB,
		AllocationMultiplier:    DefaultAllocationMultiplier,
		CompressionType:         codec.CompressionNone,
		EncryptionType:          codec.EncryptionNone,
		WriteBufferSizeKB:       DefaultBufferSizeKB,
		ReadBufferSizeKB:        DefaultBufferSizeKB,
		GCMinFileSizeKB:         DefaultGCMinFileSizeKB,
		GCFreeSpaceThresholdPct: DefaultGCFreeSpaceThresholdPct,
		GCMinRecordCount:        DefaultGCMinRecordCount,
		GCAutoRecycleEnabled:    true,
		GCFlushIntervalSeconds:  DefaultGCFlushIntervalSeconds,
	}
}
