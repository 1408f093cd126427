package storage

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
)

// File is the engine's single owned handle to the on-disk database file.
// Every other component (allocator, index manager, value heap) reads and
// writes through this handle; per §5's shared-resource policy, none of
// them open the file directly.
type File struct {
	path   string
	handle *os.File
	log    *zap.SugaredLogger
	closed atomic.Bool
}

// Config configures Open.
type Config struct {
	// Path is the database file's path on disk.
	Path string
	// Logger receives structured diagnostics for file lifecycle events.
	Logger *zap.SugaredLogger
}
