package engine

import (
	"bytes"

	"github.com/trueai-org/ultrakv/internal/index"
	"github.com/trueai-org/ultrakv/internal/layout"
	"github.com/trueai-org/ultrakv/pkg/errors"
)

// Put inserts or updates key's value. A key-length violation fails fast
// with BadKey before anything is reserved; a failure during encoding,
// allocation or writing rolls the index reservation back so a failed Put
// never leaves a half-confirmed tuple behind (§4.7).
func (e *Engine) Put(key string, value []byte) error {
	if key == "" || int32(len(key)) > e.opts.MaxKeyLength {
		return errors.NewValidationError(nil, errors.ErrorCodeBadKey, "key is empty or exceeds max_key_length").
			WithField("key").WithRule("length").WithProvided(len(key)).WithExpected(e.opts.MaxKeyLength)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return ErrEngineClosed
	}

	reservation, err := e.idx.Reserve(key)
	if err != nil {
		return err
	}

	now := nowMs()
	encoded, err := e.heap.EncodeValue(key, value, now)
	if err != nil {
		e.rollback(key, reservation)
		return err
	}

	position, allocatedLength, err := e.placeValue(reservation.Entry, encoded.RecordLength())
	if err != nil {
		e.rollback(key, reservation)
		return err
	}

	if err := e.heap.Write(position, encoded); err != nil {
		e.rollback(key, reservation)
		return err
	}

	entry := reservation.Entry
	entry.ValuePosition = position
	entry.ValueLength = int32(encoded.RecordLength())
	entry.ValueAllocatedLength = int32(allocatedLength)
	entry.Timestamp = now
	entry.IsDeleted = false

	if err := e.idx.Confirm(key, entry); err != nil {
		return err
	}

	if e.opts.EnableUpdateValidation {
		record, err := e.heap.Read(position, encoded.RecordLength())
		if err != nil || !bytes.Equal(record.Value, value) {
			return errors.NewValidationError(err, errors.ErrorCodeValidationFailed,
				"read-back of the just-written value did not match").
				WithField("value").WithDetail("key", key)
		}
	}

	return nil
}

// rollback undoes a reservation after a failed Put step, logging rather
// than propagating a rollback failure itself (the original error is what
// the caller needs to see).
func (e *Engine) rollback(key string, r *index.Reservation) {
	if err := e.idx.Rollback(r); err != nil {
		e.log.Warnw("put: rollback failed", "key", key, "error", err)
	}
}

// placeValue decides where a newly encoded record of needed bytes will
// live: reuse the previous slot in place when it still fits, release and
// reallocate when it doesn't, or hand out fresh space for a brand-new key
// (§4.6 update strategy, §4.3 allocator contract).
func (e *Engine) placeValue(existing layout.IndexEntry, needed int64) (position int64, allocatedLength int64, err error) {
	reuseInPlace := existing.ValuePosition >= 0 && needed <= int64(existing.ValueAllocatedLength)
	if reuseInPlace {
		return existing.ValuePosition, int64(existing.ValueAllocatedLength), nil
	}

	if existing.ValuePosition >= 0 {
		e.alloc.Release(existing.ValuePosition, int64(existing.ValueAllocatedLength))
	}

	if block, ok := e.alloc.TryReserve(needed); ok {
		return block.Position, block.Size, nil
	}

	fileSize, err := e.file.Size()
	if err != nil {
		return 0, 0, err
	}
	allocatedLength = int64(float64(needed) * e.header.AllocationFactor())
	if allocatedLength < needed {
		allocatedLength = needed
	}
	if err := e.file.Grow(fileSize + allocatedLength); err != nil {
		return 0, 0, errors.NewStorageError(err, errors.ErrorCodeAllocFailure, "failed to grow file for new value").
			WithOffset(int(fileSize))
	}
	return fileSize, allocatedLength, nil
}

// Get looks up key and, if live, reads and decodes its value. Per-Get
// failures (short read, codec failure) are logged and reported as a miss
// rather than propagated. Get never modifies the cache: a record whose
// stored tombstone is set is also reported as a miss, and its cache entry
// is left in place (§4.7 failure semantics).
func (e *Engine) Get(key string) ([]byte, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return nil, false
	}

	entry, ok := e.idx.Get(key)
	if !ok {
		return nil, false
	}

	record, err := e.heap.Read(entry.ValuePosition, int64(entry.ValueLength))
	if err != nil {
		e.log.Warnw("get: failed to read value record", "key", key, "error", err)
		return nil, false
	}
	if record.IsDeleted {
		return nil, false
	}
	return record.Value, true
}

// Contains is a pure cache check; it never touches the file (§4.7).
func (e *Engine) Contains(key string) bool {
	return e.idx.Contains(key)
}

// GetAllKeys returns a snapshot of every live key, order unspecified.
func (e *Engine) GetAllKeys() []string {
	return e.idx.Keys()
}

// Delete tombstones key's on-disk entry and value record and releases its
// allocation. Returns true iff the key existed live.
func (e *Engine) Delete(key string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deleteLocked(key)
}

func (e *Engine) deleteLocked(key string) (bool, error) {
	if e.closed.Load() {
		return false, ErrEngineClosed
	}

	entry, existed, err := e.idx.Delete(key)
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}

	if err := e.heap.MarkDeleted(entry.ValuePosition); err != nil {
		e.log.Warnw("delete: failed to mark value tombstone", "key", key, "error", err)
	}

	e.alloc.Release(entry.ValuePosition, int64(entry.ValueAllocatedLength))
	return true, nil
}

// DeleteBatch deletes every key in keys within a single critical section,
// with the same per-key semantics as Delete, and returns how many existed.
func (e *Engine) DeleteBatch(keys []string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return 0, ErrEngineClosed
	}

	count := 0
	for _, key := range keys {
		existed, err := e.deleteLocked(key)
		if err != nil {
			return count, err
		}
		if existed {
			count++
		}
	}
	return count, nil
}
