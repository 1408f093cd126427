// Package storage owns the single on-disk file that backs an UltraKV
// database. Unlike a segmented log, there is exactly one file: headers,
// the free-space region, the index pages and the value heap all live at
// fixed or computed offsets within it (§6). This package is deliberately
// thin — it only opens, grows, reads, writes and atomically replaces the
// file; every byte-layout decision belongs to internal/layout and every
// higher-level policy belongs to internal/engine.
package storage

import (
	stdErrors "errors"
	"os"

	"github.com/natefinch/atomic"

	"github.com/trueai-org/ultrakv/pkg/errors"
)

var ErrFileClosed = stdErrors.New("operation failed: cannot access closed database file")

// Open opens the database file at cfg.Path, creating it if absent. The
// second return value reports whether the file was just created (size 0)
// so the engine knows to write fresh headers.
func Open(cfg Config) (*File, bool, error) {
	if cfg.Path == "" || cfg.Logger == nil {
		return nil, false, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "storage configuration is incomplete",
		).WithField("config").WithRule("required")
	}

	_, statErr := os.Stat(cfg.Path)
	isNew := os.IsNotExist(statErr)

	handle, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, false, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to open database file").
			WithPath(cfg.Path).WithDetail("flags", []string{"O_CREATE", "O_RDWR"})
	}

	cfg.Logger.Infow("database file opened", "path", cfg.Path, "isNew", isNew)

	return &File{path: cfg.Path, handle: handle, log: cfg.Logger}, isNew, nil
}

// Path returns the file's path on disk.
func (f *File) Path() string { return f.path }

// ReadAt reads len(p) bytes starting at off.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if f.closed.Load() {
		return 0, ErrFileClosed
	}
	return f.handle.ReadAt(p, off)
}

// WriteAt writes p starting at off.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	if f.closed.Load() {
		return 0, ErrFileClosed
	}
	return f.handle.WriteAt(p, off)
}

// Size returns the current file length.
func (f *File) Size() (int64, error) {
	if f.closed.Load() {
		return 0, ErrFileClosed
	}
	info, err := f.handle.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Grow extends the file to at least newLength bytes via Truncate (the Go
// equivalent of set_length), a no-op if the file is already that long or
// longer.
func (f *File) Grow(newLength int64) error {
	if f.closed.Load() {
		return ErrFileClosed
	}
	size, err := f.Size()
	if err != nil {
		return err
	}
	if newLength <= size {
		return nil
	}
	return f.handle.Truncate(newLength)
}

// Truncate sets the file to exactly newLength bytes, used by Clear and by
// shrink's consolidated rebuild.
func (f *File) Truncate(newLength int64) error {
	if f.closed.Load() {
		return ErrFileClosed
	}
	return f.handle.Truncate(newLength)
}

// Sync flushes the file's in-kernel buffers to stable storage.
func (f *File) Sync() error {
	if f.closed.Load() {
		return ErrFileClosed
	}
	return f.handle.Sync()
}

// Close syncs and closes the underlying handle. Safe to call once;
// subsequent calls return ErrFileClosed.
func (f *File) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return ErrFileClosed
	}
	if err := f.handle.Sync(); err != nil {
		f.log.Warnw("sync before close failed", "path", f.path, "error", err)
	}
	return f.handle.Close()
}

// Remove deletes the file at path, used to discard a temp file after a
// failed shrink attempt (§4.8 step 6: "path.tmp is deleted").
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to remove temp database file").
			WithPath(path)
	}
	return nil
}

// ReplaceWithTempFile atomically replaces the file at path with the
// already-written file at tmpPath, used by shrink's final rename step
// (§4.8 step 6). It defers to natefinch/atomic so the swap is safe on
// platforms (Windows) where a plain rename over an existing file fails.
func ReplaceWithTempFile(tmpPath, path string) error {
	if err := atomic.ReplaceFile(tmpPath, path); err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "atomic replace of database file failed").
			WithPath(path).WithDetail("tmpPath", tmpPath)
	}
	return nil
}
