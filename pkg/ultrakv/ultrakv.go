// Package ultrakv provides a high-performance, embedded key/value data
// store, inspired by Bitcask. It combines an in-memory hash table
// (the index) with a single append-capable on-disk file to achieve
// high-throughput reads and writes, with a crash-tolerant compaction
// rebuild to reclaim space occupied by deleted or stale values.
//
// DB is the primary entry point: Open a database file, then Put, Get,
// Delete and Shrink against the returned instance.
package ultrakv

import (
	"context"
	"path/filepath"

	"github.com/trueai-org/ultrakv/internal/engine"
	"github.com/trueai-org/ultrakv/pkg/filesys"
	"github.com/trueai-org/ultrakv/pkg/logger"
	"github.com/trueai-org/ultrakv/pkg/options"
)

// DB is an open UltraKV database file, wrapping the internal engine with
// the public, stable API.
type DB struct {
	engine  *engine.Engine
	options *options.Options
}

// Stats mirrors engine.Stats for callers that don't want to import the
// internal package.
type Stats = engine.Stats

// ShrinkResult mirrors engine.ShrinkResult.
type ShrinkResult = engine.ShrinkResult

// Open creates or opens the database file named by the combined options,
// creating its parent directory if necessary.
func Open(ctx context.Context, service string, opts ...options.OptionFunc) (*DB, error) {
	log := logger.New(service)
	o := options.New(opts...)

	if dir := filepath.Dir(o.Path); dir != "." {
		if err := filesys.CreateDir(dir, 0755, true); err != nil {
			return nil, err
		}
	}

	eng, err := engine.New(ctx, &engine.Config{Logger: log, Options: o})
	if err != nil {
		return nil, err
	}

	return &DB{engine: eng, options: o}, nil
}

// Put inserts or updates key's value.
func (db *DB) Put(key string, value []byte) error {
	return db.engine.Put(key, value)
}

// Get retrieves key's value. ok is false when the key is absent or
// deleted.
func (db *DB) Get(key string) (value []byte, ok bool) {
	return db.engine.Get(key)
}

// Delete removes key. existed reports whether it was present and live.
func (db *DB) Delete(key string) (existed bool, err error) {
	return db.engine.Delete(key)
}

// DeleteBatch deletes every key in keys within one critical section and
// returns how many existed.
func (db *DB) DeleteBatch(keys []string) (count int, err error) {
	return db.engine.DeleteBatch(keys)
}

// Contains reports whether key is present and live, without reading its
// value.
func (db *DB) Contains(key string) bool {
	return db.engine.Contains(key)
}

// GetAllKeys returns a snapshot of every live key, order unspecified.
func (db *DB) GetAllKeys() []string {
	return db.engine.GetAllKeys()
}

// Clear removes every key and reclaims the file back to its empty state.
func (db *DB) Clear() error {
	return db.engine.Clear()
}

// ConsolidatePages merges every index page into a single fresh first page
// without touching the value heap; a lighter-weight alternative to Shrink.
// The disk space the other pages occupied is not reclaimed until a Shrink.
func (db *DB) ConsolidatePages() error {
	return db.engine.ConsolidatePages()
}

// Flush persists all in-memory state (index, allocator, header) to disk.
func (db *DB) Flush() error {
	return db.engine.Flush()
}

// Shrink runs a compaction rebuild. With force=false it only runs when
// the background GC thresholds are already met.
func (db *DB) Shrink(force bool) (ShrinkResult, error) {
	return db.engine.Shrink(force)
}

// ShouldShrink reports the user-facing shrink advisory: more than half
// the file is free space, and the file is larger than 1 MiB.
func (db *DB) ShouldShrink() (bool, error) {
	return db.engine.ShouldShrink()
}

// Stats reports a snapshot of index, allocator and file-size counters.
func (db *DB) Stats() (Stats, error) {
	return db.engine.Stats()
}

// Close flushes pending state, stops the background GC worker, and
// closes the underlying file handle.
func (db *DB) Close() error {
	return db.engine.Dispose()
}
