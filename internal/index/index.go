// Package index implements C4 (index page) and C5 (index manager) of the
// UltraKV design: up to 32 fixed-size on-disk pages, each a contiguous
// append-only sequence of (IndexEntry, encoded key) tuples, plus the
// in-memory key -> IndexEntry cache that is authoritative for liveness
// once a database is open.
//
// The reserve -> confirm protocol (§4.5) keeps a Put's index mutation and
// its value write decoupled: Reserve places a tentative tuple with
// value_position = -1, the caller then writes the value heap record, and
// Confirm rewrites the same tuple with the real location. A value write
// that fails calls Rollback instead.
package index

import stdErrors "errors"

var ErrManagerClosed = stdErrors.New("operation failed: index manager is closed")

// Open loads the index manager for an existing database file, or creates a
// fresh one when isNew is true.
func Open(cfg Config, isNew bool) (*Manager, error) {
	if isNew {
		return New(cfg)
	}
	return Load(cfg)
}

// Close releases the manager's in-memory state. The underlying file is
// owned and closed by the engine, not by the manager.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pages == nil && m.cache == nil {
		return ErrManagerClosed
	}

	clear(m.cache)
	m.cache = nil
	m.pages = nil
	return nil
}
