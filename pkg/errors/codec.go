package errors

// CodecError is a specialized error type for compression and authenticated
// encryption failures in the codec pipeline (internal/codec).
type CodecError struct {
	*baseError
	kind      string // "compression" or "encryption"
	algorithm string // e.g. "gzip", "aes-256-gcm"
	inputSize int    // size of the buffer handed to the codec step
}

// NewCodecError creates a new codec-specific error.
func NewCodecError(err error, code ErrorCode, msg string) *CodecError {
	return &CodecError{baseError: NewBaseError(err, code, msg)}
}

// WithKind records whether the failing step was compression or encryption.
func (ce *CodecError) WithKind(kind string) *CodecError {
	ce.kind = kind
	return ce
}

// WithAlgorithm records which concrete codec algorithm failed.
func (ce *CodecError) WithAlgorithm(algorithm string) *CodecError {
	ce.algorithm = algorithm
	return ce
}

// WithInputSize records the size of the buffer that was being processed.
func (ce *CodecError) WithInputSize(size int) *CodecError {
	ce.inputSize = size
	return ce
}

// Kind returns "compression" or "encryption".
func (ce *CodecError) Kind() string { return ce.kind }

// Algorithm returns the concrete codec algorithm name.
func (ce *CodecError) Algorithm() string { return ce.algorithm }

// InputSize returns the size of the buffer that was being processed.
func (ce *CodecError) InputSize() int { return ce.inputSize }
