// Package engine provides the core database engine implementation for the
// UltraKV storage system.
//
// The engine serves as the central coordinator and entry point for all
// database operations. It orchestrates the interaction between the on-disk
// file (internal/storage), the free-space allocator (internal/alloc), the
// codec pipeline (internal/codec), the paged primary index (internal/index)
// and the value heap (internal/heap).
//
// A single exclusive write mutex serializes Put, Delete, DeleteBatch,
// Clear, Flush, Shrink and ConsolidatePages; Get takes the same mutex too,
// trading a little read/read parallelism for a single, easy-to-reason-about
// file access pattern (§5 option (a)). Contains and GetAllKeys do not take
// it: they only read the index manager's cache, which its own lock guards.
package engine

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/trueai-org/ultrakv/internal/alloc"
	"github.com/trueai-org/ultrakv/internal/codec"
	"github.com/trueai-org/ultrakv/internal/gc"
	"github.com/trueai-org/ultrakv/internal/heap"
	"github.com/trueai-org/ultrakv/internal/index"
	"github.com/trueai-org/ultrakv/internal/layout"
	"github.com/trueai-org/ultrakv/internal/storage"
	"github.com/trueai-org/ultrakv/pkg/errors"
)

// ErrEngineClosed is returned when attempting to perform operations on a
// closed engine.
var ErrEngineClosed = stdErrors.New("operation failed: cannot access closed engine")

// New opens (or creates) the database file named by config.Options.Path and
// wires every subsystem around it. This is the C7 orchestrator's entry
// point, implementing §4.7's open contract.
func New(ctx context.Context, config *Config) (*Engine, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "engine configuration is incomplete",
		).WithField("config").WithRule("required")
	}

	opts := config.Options
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	pipeline, err := codec.New(opts.CompressionType, opts.EncryptionType, opts.EncryptionKey)
	if err != nil {
		return nil, err
	}

	file, isNew, err := storage.Open(storage.Config{Path: opts.Path, Logger: config.Logger})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		log:      config.Logger,
		opts:     opts,
		file:     file,
		pipeline: pipeline,
	}

	if isNew {
		if err := e.initFresh(); err != nil {
			file.Close()
			return nil, err
		}
	} else {
		if err := e.loadExisting(); err != nil {
			file.Close()
			return nil, err
		}
	}

	e.heap = heap.New(e.file, e.pipeline)

	if opts.GCFlushIntervalSeconds > 0 {
		interval := time.Duration(opts.GCFlushIntervalSeconds) * time.Second
		e.gcWorker = gc.Start(interval, e.backgroundTick)
	}

	return e, nil
}

// initFresh writes the headers for a brand-new empty database file and
// constructs empty in-memory subsystems around it (§4.7 "creates the file
// if missing").
func (e *Engine) initFresh() error {
	now := nowMs()
	regionSize := int64(e.opts.FreeSpaceRegionSizeKB) * 1024
	e.dataStart = layout.FirstIndexDataStartPosition(regionSize)

	e.header = &layout.DatabaseHeader{
		Magic:                   layout.MagicDatabaseHeader,
		Version:                 layout.CurrentVersion,
		Compression:             e.opts.CompressionType,
		Encryption:              e.opts.EncryptionType,
		EnableFreeSpaceReuse:    e.opts.EnableFreeSpaceReuse,
		EnableMemoryMode:        e.opts.EnableMemoryMode,
		EnableUpdateValidation:  e.opts.EnableUpdateValidation,
		FreeSpaceRegionSizeKB:   e.opts.FreeSpaceRegionSizeKB,
		AllocationMultiplier:    e.opts.AllocationMultiplier,
		WriteBufferSizeKB:       e.opts.WriteBufferSizeKB,
		ReadBufferSizeKB:        e.opts.ReadBufferSizeKB,
		CreatedAtMs:             now,
		LastAccessMs:            now,
		GCMinFileSizeKB:         e.opts.GCMinFileSizeKB,
		GCFreeSpaceThresholdPct: e.opts.GCFreeSpaceThresholdPct,
		GCMinRecordCount:        e.opts.GCMinRecordCount,
		GCFlushIntervalSeconds:  e.opts.GCFlushIntervalSeconds,
		GCAutoRecycleEnabled:    e.opts.GCAutoRecycleEnabled,
		MaxKeyLength:            e.opts.MaxKeyLength,
		DefaultIndexPageSizeKB:  e.opts.DefaultIndexPageSizeKB,
	}

	if err := e.file.Grow(e.dataStart); err != nil {
		return err
	}
	if _, err := e.file.WriteAt(e.header.MarshalBinary(), layout.DatabaseHeaderOffset); err != nil {
		return err
	}

	e.alloc = alloc.New(e.opts.EnableFreeSpaceReuse, e.dataStart, regionSize)
	if err := e.alloc.Save(e.file); err != nil {
		return err
	}

	idx, err := index.Open(e.indexConfig(regionSize), true)
	if err != nil {
		return err
	}
	e.idx = idx
	if err := e.idx.Flush(); err != nil {
		return err
	}

	return e.file.Sync()
}

// loadExisting reads the headers of an already-populated database file,
// validates them, and reconstructs every subsystem from persisted state. A
// free-space configuration mismatch against the incoming options triggers
// an automatic rebuild (§4.7, §4.8).
func (e *Engine) loadExisting() error {
	hbuf := make([]byte, layout.DatabaseHeaderSize)
	if _, err := e.file.ReadAt(hbuf, layout.DatabaseHeaderOffset); err != nil {
		return err
	}
	if !layout.IsValidDatabaseHeader(hbuf) {
		return errors.NewStorageError(nil, errors.ErrorCodeCorruptHeader, "database header failed validation").
			WithPath(e.opts.Path)
	}
	e.header = layout.UnmarshalDatabaseHeader(hbuf)

	if e.header.Compression != e.opts.CompressionType || e.header.Encryption != e.opts.EncryptionType {
		return errors.NewValidationError(nil, errors.ErrorCodeConfigMismatch,
			"codec configuration disagrees with the database header").
			WithField("compressionType/encryptionType").
			WithProvided([2]uint8{uint8(e.opts.CompressionType), uint8(e.opts.EncryptionType)}).
			WithExpected([2]uint8{uint8(e.header.Compression), uint8(e.header.Encryption)})
	}

	regionSize := int64(e.header.FreeSpaceRegionSizeKB) * 1024
	e.dataStart = layout.FirstIndexDataStartPosition(regionSize)

	e.alloc = alloc.New(e.header.EnableFreeSpaceReuse, e.dataStart, regionSize)
	if _, err := e.alloc.Load(e.file); err != nil {
		return err
	}

	idx, err := index.Open(e.indexConfig(regionSize), false)
	if err != nil {
		return err
	}
	e.idx = idx

	freeSpaceConfigChanged := e.header.EnableFreeSpaceReuse != e.opts.EnableFreeSpaceReuse ||
		e.header.FreeSpaceRegionSizeKB != e.opts.FreeSpaceRegionSizeKB
	if freeSpaceConfigChanged {
		e.log.Infow("free-space configuration changed, triggering automatic rebuild", "path", e.opts.Path)
		if _, err := e.shrinkLocked(true); err != nil {
			return err
		}
	}

	return nil
}

// indexConfig builds the index.Config shared by both the fresh and
// existing-file open paths.
func (e *Engine) indexConfig(regionSize int64) index.Config {
	return index.Config{
		Logger:              e.log,
		File:                e.file,
		FreeSpaceRegionSize: regionSize,
		DefaultPageSizeKB:   e.opts.DefaultIndexPageSizeKB,
		EncodeKey:           e.encodeKey,
		DecodeKey:           e.decodeKey,
	}
}

// encodeKey turns a plaintext key into its on-disk bytes, applying the
// codec pipeline when active so the index never carries plaintext
// alongside an encrypted value (§9 Open Question 2).
func (e *Engine) encodeKey(key string) ([]byte, error) {
	if !e.pipeline.Active() {
		return []byte(key), nil
	}
	return e.pipeline.Encode([]byte(key))
}

// decodeKey reverses encodeKey.
func (e *Engine) decodeKey(encoded []byte) (string, error) {
	if !e.pipeline.Active() {
		return string(encoded), nil
	}
	decoded, err := e.pipeline.Decode(encoded)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// Flush fsyncs the file and persists the free-space region and every dirty
// index page, block array and header (§4.7).
func (e *Engine) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushLocked()
}

func (e *Engine) flushLocked() error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	if e.alloc.Dirty() {
		if err := e.alloc.Save(e.file); err != nil {
			return err
		}
	}
	if e.idx.Dirty() {
		if err := e.idx.Flush(); err != nil {
			return err
		}
	}

	e.header.LastAccessMs = nowMs()
	if _, err := e.file.WriteAt(e.header.MarshalBinary(), layout.DatabaseHeaderOffset); err != nil {
		return err
	}

	return e.file.Sync()
}

// Clear empties the cache and index pages, truncates the file back to the
// data-start boundary, and resets the free-space region (§4.7).
func (e *Engine) Clear() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return ErrEngineClosed
	}

	e.idx.Clear()
	if err := e.idx.Flush(); err != nil {
		return err
	}

	regionSize := int64(e.header.FreeSpaceRegionSizeKB) * 1024
	e.alloc = alloc.New(e.header.EnableFreeSpaceReuse, e.dataStart, regionSize)
	if err := e.alloc.Save(e.file); err != nil {
		return err
	}

	if err := e.file.Truncate(e.dataStart); err != nil {
		return err
	}

	return e.flushLocked()
}

// ConsolidatePages merges every index page's active entries into a single
// fresh first page (§4.5 consolidate_pages), without touching the value
// heap. It is the standalone, lighter-weight counterpart to a full Shrink
// rebuild: stray pages created by page growth are folded back into page 0,
// but the space they occupied on disk is only reclaimed by a later Shrink.
func (e *Engine) ConsolidatePages() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return ErrEngineClosed
	}

	if _, err := e.idx.ConsolidatePages(); err != nil {
		return err
	}
	return e.idx.Flush()
}

// Stats returns a snapshot combining the index manager's and allocator's
// counters plus the current file size.
func (e *Engine) Stats() (Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return Stats{}, ErrEngineClosed
	}

	idxStats := e.idx.Stats()
	allocStats := e.alloc.Stats()
	fileSize, err := e.file.Size()
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		PageCount:       idxStats.PageCount,
		MaxPages:        idxStats.MaxPages,
		TotalIndexBytes: idxStats.TotalIndexBytes,
		TotalEntries:    idxStats.TotalEntries,
		ActiveEntries:   idxStats.ActiveEntries,
		DeletedEntries:  idxStats.DeletedEntries,
		FileSize:        fileSize,
		FreeBytes:       allocStats.TotalFreeBytes,
		FreeBlockCount:  allocStats.BlockCount,
		Fragmentation:   allocStats.Fragmentation(),
	}, nil
}

// Dispose performs a final flush, stamps the access timestamp, joins the
// background GC worker, and closes the underlying file (§4.7).
func (e *Engine) Dispose() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}

	if e.gcWorker != nil {
		e.gcWorker.Stop()
	}

	e.mu.Lock()
	if e.alloc.Dirty() {
		if err := e.alloc.Save(e.file); err != nil {
			e.log.Warnw("final allocator save failed during dispose", "error", err)
		}
	}
	if e.idx.Dirty() {
		if err := e.idx.Flush(); err != nil {
			e.log.Warnw("final index flush failed during dispose", "error", err)
		}
	}
	e.header.LastAccessMs = nowMs()
	if _, err := e.file.WriteAt(e.header.MarshalBinary(), layout.DatabaseHeaderOffset); err != nil {
		e.log.Warnw("final header write failed during dispose", "error", err)
	}
	e.mu.Unlock()

	return e.file.Close()
}

func nowMs() int64 { return time.Now().UnixMilli() }
