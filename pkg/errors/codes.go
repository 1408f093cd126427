package errors

// ErrorCode represents a standardized way to categorize different types of errors.
type ErrorCode string

// Base error codes represent the fundamental categories of failures that can
// occur across any software system. These codes provide the foundation layer
// of error classification.
const (
	// ErrorCodeIO represents failures in input/output operations across any
	// system boundary. This includes file system operations like reading or
	// writing segment files, network operations when communicating with remote
	// systems, and device I/O when accessing storage hardware.
	ErrorCodeIO ErrorCode = "IO_ERROR"

	// ErrorCodeInvalidInput represents client-side errors where the provided
	// data doesn't meet the system's requirements or constraints. This maps
	// to HTTP 400-series errors and indicates problems with the request itself
	// rather than system failures.
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrorCodeInternal represents unexpected system failures that don't fit
	// into other categories. These are the equivalent of HTTP 500 errors and
	// indicate bugs, assertion failures, or other programming errors that
	// shouldn't occur during normal operation.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Storage-specific error codes extend the base error taxonomy to handle the
// unique failure modes that occur in persistent storage systems. These codes
// represent problems that are specific to the storage layer of your key-value
// store, particularly focusing on segment file management and data persistence.
const (
	// ErrorCodeSegmentCorrupted indicates that a segment file's data has been
	// damaged or is in an inconsistent state.
	ErrorCodeSegmentCorrupted ErrorCode = "SEGMENT_CORRUPTED"

	// ErrorCodeHeaderReadFailure occurs when the system cannot read the header
	// portion of a segment file. Headers contain critical metadata about the
	// segment's structure, so header read failures prevent access to the
	// entire segment and all data it contains.
	ErrorCodeHeaderReadFailure ErrorCode = "HEADER_READ_FAILURE"

	// ErrorCodePayloadReadFailure indicates problems reading the actual data
	// content from segment files after successfully reading the header. This
	// represents a more localized failure compared to header problems, as the
	// segment structure is intact but specific data regions are inaccessible.
	ErrorCodePayloadReadFailure ErrorCode = "PAYLOAD_READ_FAILURE"

	// ErrorCodeRecoveryFailed indicates that the storage system's attempt to
	// recover from a previous failure was unsuccessful. This represents a
	// compound failure where both the original problem and the recovery
	// mechanism have failed, creating a more serious operational situation.
	ErrorCodeRecoveryFailed ErrorCode = "STORAGE_RECOVERY_FAILED"

	// ErrorCodePermissionDenied indicates insufficient permissions to access a resource.
	// This is distinct from generic IO errors because it has a specific resolution path:
	// the user needs to adjust file/directory permissions or run with elevated privileges.
	ErrorCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// ErrorCodeDiskFull indicates that the storage device has run out of space.
	// This requires specific handling like cleanup operations or alerting administrators.
	ErrorCodeDiskFull ErrorCode = "DISK_FULL"

	// ErrorCodeFilesystemReadonly indicates that the filesystem is mounted read-only.
	// This requires administrative intervention to remount the filesystem with write permissions.
	ErrorCodeFilesystemReadonly ErrorCode = "FILESYSTEM_READONLY"

	// ErrorCodeConfigMismatch indicates the compression/encryption configuration
	// supplied at Open disagrees with what is recorded in the database header.
	// A free-space configuration change triggers a rebuild instead.
	ErrorCodeConfigMismatch ErrorCode = "CONFIG_MISMATCH"

	// ErrorCodeValidationFailed indicates a Put read-back check (enable_update_validation)
	// found the persisted bytes did not match what was written.
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// ErrorCodeShrinkFailed indicates a compaction rebuild could not complete;
	// the original file is left untouched.
	ErrorCodeShrinkFailed ErrorCode = "SHRINK_FAILED"

	// ErrorCodeBadKey indicates an empty key, or one whose encoded length
	// exceeds max_key_length.
	ErrorCodeBadKey ErrorCode = "BAD_KEY"

	// ErrorCodeCorruptHeader indicates a header failed its magic, version,
	// or checksum check.
	ErrorCodeCorruptHeader ErrorCode = "CORRUPT_HEADER"

	// ErrorCodeAllocFailure indicates the allocator could not grow the file
	// to satisfy a reservation.
	ErrorCodeAllocFailure ErrorCode = "ALLOC_FAILURE"
)

// Index-specific error codes describe failure modes of the in-memory key
// directory and its on-disk paged representation.
const (
	// ErrorCodeIndexKeyNotFound indicates a lookup found no live entry for a key.
	ErrorCodeIndexKeyNotFound ErrorCode = "INDEX_KEY_NOT_FOUND"

	// ErrorCodeIndexInvalidSegmentID indicates an entry referenced a page index
	// that does not correspond to any loaded index page.
	ErrorCodeIndexInvalidSegmentID ErrorCode = "INDEX_INVALID_SEGMENT_ID"

	// ErrorCodeIndexTimestampExtraction indicates a filename could not be parsed
	// for its embedded timestamp/sequence components.
	ErrorCodeIndexTimestampExtraction ErrorCode = "INDEX_TIMESTAMP_EXTRACTION_FAILED"

	// ErrorCodeIndexCorrupted indicates an index page or header failed its
	// magic/version/checksum validation.
	ErrorCodeIndexCorrupted ErrorCode = "INDEX_CORRUPTED"

	// ErrorCodeIndexFull indicates a 33rd index page was requested; the manager
	// caps the page count at 32 (see layout.MaxIndexPages).
	ErrorCodeIndexFull ErrorCode = "INDEX_FULL"
)

// Codec-specific error codes cover compression and authenticated-encryption failures.
const (
	// ErrorCodeCodecEncode indicates a compress or encrypt step failed.
	ErrorCodeCodecEncode ErrorCode = "CODEC_ENCODE_FAILED"

	// ErrorCodeCodecDecode indicates a decompress or decrypt step failed for a
	// reason other than authentication (bad stream, truncated input).
	ErrorCodeCodecDecode ErrorCode = "CODEC_DECODE_FAILED"

	// ErrorCodeAuthFailed indicates AEAD tag verification failed during decode.
	ErrorCodeAuthFailed ErrorCode = "AUTH_FAILED"
)
