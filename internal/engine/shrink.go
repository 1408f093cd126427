package engine

import (
	"time"

	"github.com/trueai-org/ultrakv/internal/alloc"
	"github.com/trueai-org/ultrakv/internal/heap"
	"github.com/trueai-org/ultrakv/internal/index"
	"github.com/trueai-org/ultrakv/internal/layout"
	"github.com/trueai-org/ultrakv/internal/storage"
	"github.com/trueai-org/ultrakv/pkg/errors"
)

const gcAutoShrinkMinIntervalMs = 60_000

// Shrink runs a crash-tolerant compaction rebuild (§4.8). With force=false
// it is a no-op, returning a zero-saving result, unless should_trigger_gc
// already holds for the current state.
func (e *Engine) Shrink(force bool) (ShrinkResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return ShrinkResult{}, ErrEngineClosed
	}
	return e.shrinkLocked(force)
}

// ShouldShrink is the user-facing advisory from §4.8: free/data > 0.5 and
// the file is larger than 1 MiB.
func (e *Engine) ShouldShrink() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fileSize, err := e.file.Size()
	if err != nil {
		return false, err
	}
	if fileSize <= 1<<20 {
		return false, nil
	}
	free := e.alloc.Stats().TotalFreeBytes
	dataSize := fileSize - free
	if dataSize <= 0 {
		return true, nil
	}
	return float64(free)/float64(dataSize) > 0.5, nil
}

func (e *Engine) shouldTriggerGC() bool {
	fileSize, err := e.file.Size()
	if err != nil {
		return false
	}
	idxStats := e.idx.Stats()
	allocStats := e.alloc.Stats()

	if fileSize < int64(e.opts.GCMinFileSizeKB)*1024 {
		return false
	}
	if idxStats.ActiveEntries < uint32(e.opts.GCMinRecordCount) {
		return false
	}
	if fileSize == 0 {
		return false
	}
	return float64(allocStats.TotalFreeBytes)/float64(fileSize) >= float64(e.opts.GCFreeSpaceThresholdPct)/100
}

// backgroundTick is the periodic callback driven by internal/gc's timer. It
// implements §4.7's background GC: throttled to at most one auto-shrink per
// minute, and swallowing/logging its own errors since a timer callback has
// no caller to report to.
func (e *Engine) backgroundTick() {
	if e.closed.Load() {
		return
	}

	if !e.gcRunning.CompareAndSwap(false, true) {
		return // a previous tick's shrink is still running
	}
	defer e.gcRunning.Store(false)

	e.mu.Lock()
	flushErr := e.flushLocked()
	e.mu.Unlock()
	if flushErr != nil {
		e.log.Warnw("background flush failed", "error", flushErr)
	}

	if !e.opts.GCAutoRecycleEnabled {
		return
	}

	last := e.lastAutoShrinkMs.Load()
	if nowMs()-last < gcAutoShrinkMinIntervalMs {
		return
	}

	e.mu.Lock()
	trigger := e.shouldTriggerGC()
	e.mu.Unlock()
	if !trigger {
		return
	}

	e.lastAutoShrinkMs.Store(nowMs())
	if _, err := e.Shrink(false); err != nil {
		e.log.Warnw("background auto-shrink failed", "error", err)
	}
}

// shrinkLocked implements §4.8's seven steps. Caller must hold e.mu.
func (e *Engine) shrinkLocked(force bool) (ShrinkResult, error) {
	start := time.Now()

	if !force && !e.shouldTriggerGC() {
		return ShrinkResult{}, nil
	}

	originalSize, err := e.file.Size()
	if err != nil {
		return ShrinkResult{}, err
	}

	path := e.opts.Path
	tmpPath := path + ".tmp"

	result, rebuildErr := e.rebuildInto(tmpPath)
	if rebuildErr != nil {
		if err := storage.Remove(tmpPath); err != nil {
			e.log.Warnw("failed to remove temp file after aborted shrink", "path", tmpPath, "error", err)
		}
		return ShrinkResult{}, rebuildErr
	}

	if err := e.file.Close(); err != nil {
		if rmErr := storage.Remove(tmpPath); rmErr != nil {
			e.log.Warnw("failed to remove temp file after aborted shrink", "path", tmpPath, "error", rmErr)
		}
		return ShrinkResult{}, err
	}

	if err := storage.ReplaceWithTempFile(tmpPath, path); err != nil {
		// The original file handle is already closed; reopen it so the
		// engine is left usable even though the rebuild did not take.
		if reopenErr := e.reopenCurrent(); reopenErr != nil {
			e.log.Warnw("failed to reopen original file after aborted shrink", "error", reopenErr)
		}
		return ShrinkResult{}, errors.NewStorageError(err, errors.ErrorCodeShrinkFailed,
			"failed to atomically replace database file during shrink").WithPath(path)
	}

	if err := e.reopenCurrent(); err != nil {
		return ShrinkResult{}, err
	}

	result.NewSize, err = e.file.Size()
	if err != nil {
		return ShrinkResult{}, err
	}
	result.OriginalSize = originalSize
	result.SavedBytes = originalSize - result.NewSize
	if originalSize > 0 {
		result.SavedPercent = float64(result.SavedBytes) / float64(originalSize) * 100
	}
	result.ElapsedMs = time.Since(start).Milliseconds()

	return result, nil
}

// rebuildInto performs §4.8 steps 2-5: write a fresh, consolidated database
// to tmpPath without touching the live file or its in-memory state.
func (e *Engine) rebuildInto(tmpPath string) (ShrinkResult, error) {
	tmpFile, _, err := storage.Open(storage.Config{Path: tmpPath, Logger: e.log})
	if err != nil {
		return ShrinkResult{}, err
	}
	if err := tmpFile.Truncate(0); err != nil {
		tmpFile.Close()
		return ShrinkResult{}, err
	}

	regionSize := int64(e.opts.FreeSpaceRegionSizeKB) * 1024
	dataStart := layout.FirstIndexDataStartPosition(regionSize)
	now := nowMs()

	newHeader := *e.header
	newHeader.LastGCAtMs = now
	newHeader.TotalGCCount++
	newHeader.FreeSpaceRegionSizeKB = e.opts.FreeSpaceRegionSizeKB
	newHeader.EnableFreeSpaceReuse = e.opts.EnableFreeSpaceReuse

	if err := tmpFile.Grow(dataStart); err != nil {
		tmpFile.Close()
		return ShrinkResult{}, err
	}
	if _, err := tmpFile.WriteAt(newHeader.MarshalBinary(), layout.DatabaseHeaderOffset); err != nil {
		tmpFile.Close()
		return ShrinkResult{}, err
	}

	newAlloc := alloc.New(e.opts.EnableFreeSpaceReuse, dataStart, regionSize)
	if err := newAlloc.Save(tmpFile); err != nil {
		tmpFile.Close()
		return ShrinkResult{}, err
	}

	newIdx, err := index.Open(index.Config{
		Logger:              e.log,
		File:                tmpFile,
		FreeSpaceRegionSize: regionSize,
		DefaultPageSizeKB:   e.opts.DefaultIndexPageSizeKB,
		EncodeKey:           e.encodeKey,
		DecodeKey:           e.decodeKey,
	}, true)
	if err != nil {
		tmpFile.Close()
		return ShrinkResult{}, err
	}

	keys := e.idx.Keys()
	validRecords := 0
	for _, key := range keys {
		entry, ok := e.idx.Get(key)
		if !ok {
			continue
		}

		buf := make([]byte, entry.ValueAllocatedLength)
		if _, err := e.file.ReadAt(buf, entry.ValuePosition); err != nil {
			tmpFile.Close()
			return ShrinkResult{}, err
		}

		// Reserve (and, for a brand-new key, create its index page) before
		// measuring where the value heap currently ends: a page is written
		// at a fixed position and would otherwise collide with a value
		// written to that same offset first (§4.8 steps 3→4 run in that
		// order, mirroring how Put always reserves before placing a value).
		reservation, err := newIdx.Reserve(key)
		if err != nil {
			tmpFile.Close()
			return ShrinkResult{}, err
		}

		newPosition, err := tmpFile.Size()
		if err != nil {
			tmpFile.Close()
			return ShrinkResult{}, err
		}
		if err := tmpFile.Grow(newPosition + int64(len(buf))); err != nil {
			tmpFile.Close()
			return ShrinkResult{}, err
		}
		if _, err := tmpFile.WriteAt(buf, newPosition); err != nil {
			tmpFile.Close()
			return ShrinkResult{}, err
		}

		newEntry := entry
		newEntry.PageIndex = reservation.PageIndex
		newEntry.ValuePosition = newPosition
		if err := newIdx.Confirm(key, newEntry); err != nil {
			tmpFile.Close()
			return ShrinkResult{}, err
		}
		validRecords++
	}

	if err := newIdx.Flush(); err != nil {
		tmpFile.Close()
		return ShrinkResult{}, err
	}
	if err := newAlloc.Save(tmpFile); err != nil {
		tmpFile.Close()
		return ShrinkResult{}, err
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return ShrinkResult{}, err
	}
	if err := tmpFile.Close(); err != nil {
		return ShrinkResult{}, err
	}

	return ShrinkResult{ValidRecords: validRecords, TotalProcessed: len(keys)}, nil
}

// reopenCurrent reopens e.opts.Path and rebuilds every in-memory subsystem
// from what is now on disk, used after a successful (or aborted) shrink's
// rename (§4.8 step 6: "Open the new file").
func (e *Engine) reopenCurrent() error {
	file, _, err := storage.Open(storage.Config{Path: e.opts.Path, Logger: e.log})
	if err != nil {
		return err
	}
	e.file = file

	if err := e.loadExisting(); err != nil {
		return err
	}
	e.heap = heap.New(e.file, e.pipeline)
	return nil
}
