package index

import (
	"time"

	ukerrors "github.com/trueai-org/ultrakv/pkg/errors"

	"github.com/trueai-org/ultrakv/internal/layout"
)

// minPageSize / maxPageSize clamp create_new_page's doubling growth
// (§4.5 step 4).
const (
	minPageSize int64 = 1 << 10       // 1 KiB
	maxPageSize int64 = 2 << 30       // 2 GiB
)

// New constructs a Manager for a brand-new (empty) database file: a fresh
// IndexHeader is prepared in memory and no pages exist yet. Pages are
// created lazily on the first Reserve.
func New(cfg Config) (*Manager, error) {
	if cfg.File == nil || cfg.Logger == nil || cfg.EncodeKey == nil || cfg.DecodeKey == nil {
		return nil, ukerrors.NewValidationError(
			nil, ukerrors.ErrorCodeInvalidInput, "index manager configuration is incomplete",
		).WithField("config").WithRule("required")
	}

	now := nowMs()
	m := &Manager{
		log:                 cfg.Logger,
		file:                cfg.File,
		freeSpaceRegionSize: cfg.FreeSpaceRegionSize,
		defaultPageSizeKB:   cfg.DefaultPageSizeKB,
		encodeKey:           cfg.EncodeKey,
		decodeKey:           cfg.DecodeKey,
		cache:               make(map[string]layout.IndexEntry, 1024),
		header: &layout.IndexHeader{
			Magic:        layout.MagicIndexHeader,
			Version:      layout.CurrentVersion,
			PageCount:    0,
			RegionStart:  0,
			CreatedAtMs:  now,
			LastUpdateMs: now,
		},
	}
	m.header.RegionStart = m.FirstIndexDataStartPosition()
	return m, nil
}

// Load reconstructs a Manager from an existing file: reads the IndexHeader
// and IndexBlock array, loads every referenced page, and rebuilds the
// key -> IndexEntry cache by scanning all pages.
func Load(cfg Config) (*Manager, error) {
	m, err := New(cfg)
	if err != nil {
		return nil, err
	}

	hbuf := make([]byte, layout.IndexHeaderSize)
	if _, err := cfg.File.ReadAt(hbuf, m.indexHeaderOffset()); err != nil {
		return nil, err
	}
	if !layout.IsValidIndexHeader(hbuf) {
		return nil, ukerrors.NewIndexError(nil, ukerrors.ErrorCodeIndexCorrupted, "index header failed validation")
	}
	m.header = layout.UnmarshalIndexHeader(hbuf)

	blocksBuf := make([]byte, int64(MaxPages)*layout.IndexBlockSize)
	if _, err := cfg.File.ReadAt(blocksBuf, m.indexBlocksOffset()); err != nil {
		return nil, err
	}
	for i := 0; i < MaxPages; i++ {
		off := int64(i) * layout.IndexBlockSize
		m.blocks[i] = layout.UnmarshalIndexBlock(blocksBuf[off : off+layout.IndexBlockSize])
	}

	m.pages = make([]*Page, 0, m.header.PageCount)
	for i := uint8(0); i < m.header.PageCount; i++ {
		block := m.blocks[i]
		if block.IsZero() {
			return nil, ukerrors.NewIndexError(nil, ukerrors.ErrorCodeIndexCorrupted, "index block missing for declared page")
		}
		buf := make([]byte, block.PageSize)
		if _, err := cfg.File.ReadAt(buf, block.PagePosition); err != nil {
			return nil, err
		}
		page, err := LoadPage(i, block.PagePosition, buf)
		if err != nil {
			return nil, ukerrors.NewIndexError(err, ukerrors.ErrorCodeIndexCorrupted, "failed to parse index page")
		}
		m.pages = append(m.pages, page)

		keys, entries, err := page.Entries(m.decodeKey)
		if err != nil {
			return nil, err
		}
		for i, k := range keys {
			m.cache[k] = entries[i]
		}
	}

	return m, nil
}

func nowMs() int64 { return time.Now().UnixMilli() }

// Stats returns the manager's current aggregate statistics.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int64
	for _, p := range m.pages {
		total += p.Size
	}

	var active, deleted uint32
	for _, p := range m.pages {
		active += uint32(p.ActiveCount())
		deleted += uint32(p.DeletedCount())
	}

	return Stats{
		PageCount:       len(m.pages),
		MaxPages:        MaxPages,
		TotalIndexBytes: total,
		TotalEntries:    active + deleted,
		ActiveEntries:   active,
		DeletedEntries:  deleted,
	}
}

// Contains is a pure cache check (§4.7): the cache is authoritative for
// liveness once the manager is loaded.
func (m *Manager) Contains(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.cache[key]
	return ok && !e.IsDeleted
}

// Get returns the cached entry for key, if live.
func (m *Manager) Get(key string) (layout.IndexEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.cache[key]
	if !ok || e.IsDeleted {
		return layout.IndexEntry{}, false
	}
	return e, true
}

// Keys returns a snapshot of every live key, order unspecified (§4.7
// get_all_keys).
func (m *Manager) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.cache))
	for k, e := range m.cache {
		if !e.IsDeleted {
			keys = append(keys, k)
		}
	}
	return keys
}

// Reserve implements the Reserve step of the reserve->confirm protocol
// (§4.5). If key already has a live reservation, it is returned verbatim
// so the caller can attempt an in-place overwrite of the existing slot.
func (m *Manager) Reserve(key string) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.cache[key]; ok && !existing.IsDeleted {
		return &Reservation{Key: key, Entry: existing, PageIndex: existing.PageIndex, IsNew: false}, nil
	}

	encodedKey, err := m.encodeKey(key)
	if err != nil {
		return nil, err
	}

	reservation := layout.NewReservation(0, int32(len(encodedKey)), nowMs())

	pageIdx, err := m.selectPageForInsert(key, encodedKey)
	if err != nil {
		return nil, err
	}
	reservation.PageIndex = pageIdx

	page := m.pages[pageIdx]
	ok, present, err := page.AddOrUpdate(key, reservation, encodedKey, m.decodeKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ukerrors.NewIndexError(nil, ukerrors.ErrorCodeIndexFull, "selected page unexpectedly out of space")
	}
	if present {
		// The page already holds a tuple for key. If it is live, treat the
		// call as an update of that tuple; a tombstoned tuple falls through
		// to a new reservation, which Confirm later writes over it in place.
		entry, found, err := page.Find(key, m.decodeKey)
		if err == nil && found {
			return &Reservation{Key: key, Entry: entry, PageIndex: pageIdx, IsNew: false}, nil
		}
	}

	m.cache[key] = reservation
	m.header.TotalEntries++
	m.header.LastUpdateMs = nowMs()
	m.dirty.Store(true)

	return &Reservation{Key: key, EncodedKey: encodedKey, PageIndex: pageIdx, Entry: reservation, IsNew: true}, nil
}

// selectPageForInsert implements §4.5 step 3's ordering: (a) a page
// already containing this key, (b) any page with enough free space,
// (c) any page that, after compact, has enough free space, (d) otherwise
// create_new_page.
func (m *Manager) selectPageForInsert(key string, encodedKey []byte) (uint8, error) {
	needed := layout.IndexEntrySize + int64(len(encodedKey))

	for i, p := range m.pages {
		if ok, _ := p.Contains(key, m.decodeKey); ok {
			return uint8(i), nil
		}
	}
	for i, p := range m.pages {
		if idx, _ := p.find(key, m.decodeKey); idx >= 0 {
			return uint8(i), nil
		}
	}
	for i, p := range m.pages {
		if p.FreeBytes() >= needed {
			return uint8(i), nil
		}
	}
	for i, p := range m.pages {
		if p.ShouldCompact() {
			if err := p.Compact(m.decodeKey, nowMs()); err != nil {
				return 0, err
			}
			if p.FreeBytes() >= needed {
				return uint8(i), nil
			}
		}
	}
	return m.createNewPageLocked()
}

// createNewPageLocked implements §4.5 step 4. Caller must hold m.mu.
func (m *Manager) createNewPageLocked() (uint8, error) {
	if len(m.pages) >= MaxPages {
		return 0, ukerrors.NewIndexError(nil, ukerrors.ErrorCodeIndexFull, "all 32 index pages are in use")
	}

	var size int64
	if len(m.pages) == 0 {
		size = int64(m.defaultPageSizeKB) * 1024
	} else {
		var prevTotal int64
		for _, p := range m.pages {
			prevTotal += p.Size
		}
		size = prevTotal * 2
	}
	if size < minPageSize {
		size = minPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	var position int64
	if len(m.pages) == 0 {
		position = m.FirstIndexDataStartPosition()
	} else {
		fileSize, err := m.file.Size()
		if err != nil {
			return 0, err
		}
		position = fileSize
	}

	idx := uint8(len(m.pages))
	page := NewPage(idx, position, size, nowMs())
	if _, err := m.file.WriteAt(page.MarshalBinary(), position); err != nil {
		return 0, err
	}
	page.ClearDirty()

	m.pages = append(m.pages, page)
	m.blocks[idx] = layout.IndexBlock{PagePosition: position, PageSize: size}
	m.header.PageCount = uint8(len(m.pages))
	m.dirty.Store(true)

	return idx, nil
}

// Confirm rewrites the reserved tuple in place with the real value
// location and refreshes the cache (§4.5 step 5).
func (m *Manager) Confirm(key string, entry layout.IndexEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.cache[key]
	if !ok {
		return ukerrors.NewIndexError(nil, ukerrors.ErrorCodeIndexKeyNotFound, "confirm called for unknown key")
	}
	entry.PageIndex = existing.PageIndex

	page := m.pages[entry.PageIndex]
	updated, err := page.UpdateConfirmed(key, entry, m.decodeKey)
	if err != nil {
		return err
	}
	if !updated {
		return ukerrors.NewIndexError(nil, ukerrors.ErrorCodeIndexKeyNotFound, "confirm target tuple not found on page")
	}

	m.cache[key] = entry
	m.header.LastUpdateMs = nowMs()
	m.dirty.Store(true)
	return nil
}

// Rollback undoes a failed Put. For a freshly reserved key it physically
// removes the tuple; for an update of an existing live key it leaves the
// old slot untouched (§4.5 step 6).
func (m *Manager) Rollback(r *Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !r.IsNew {
		return nil
	}

	page := m.pages[r.PageIndex]
	if _, err := page.RemoveReservation(r.Key, m.decodeKey); err != nil {
		return err
	}
	delete(m.cache, r.Key)
	if m.header.TotalEntries > 0 {
		m.header.TotalEntries--
	}
	m.dirty.Store(true)
	return nil
}

// Delete tombstones key's on-disk tuple and removes it from the cache.
// Returns true iff the key existed live.
func (m *Manager) Delete(key string) (layout.IndexEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.cache[key]
	if !ok || entry.IsDeleted {
		return layout.IndexEntry{}, false, nil
	}

	page := m.pages[entry.PageIndex]
	removed, err := page.Remove(key, m.decodeKey)
	if err != nil {
		return layout.IndexEntry{}, false, err
	}
	if !removed {
		return layout.IndexEntry{}, false, nil
	}

	delete(m.cache, key)
	m.header.DeletedEntries++
	m.header.LastUpdateMs = nowMs()
	m.dirty.Store(true)

	if page.ShouldCompact() {
		if err := page.Compact(m.decodeKey, nowMs()); err != nil {
			m.log.Warnw("index page compact failed after delete", "page", entry.PageIndex, "error", err)
		}
	}

	return entry, true, nil
}

// ConsolidatePages implements §4.5's consolidate_pages: collect every
// active entry from every page into one list, rebuild a single first
// page, and report the file length the caller should truncate to.
func (m *Manager) ConsolidatePages() (newFileLength int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	type kv struct {
		key   string
		entry layout.IndexEntry
	}
	var all []kv
	for _, p := range m.pages {
		keys, entries, err := p.Entries(m.decodeKey)
		if err != nil {
			return 0, err
		}
		for i, k := range keys {
			all = append(all, kv{key: k, entry: entries[i]})
		}
	}

	size := int64(m.defaultPageSizeKB) * 1024
	position := m.FirstIndexDataStartPosition()
	page := NewPage(0, position, size, nowMs())

	cache := make(map[string]layout.IndexEntry, len(all))
	for _, e := range all {
		encodedKey, err := m.encodeKey(e.key)
		if err != nil {
			return 0, err
		}
		needed := layout.IndexEntrySize + int64(len(encodedKey))
		if page.FreeBytes() < needed {
			// Grow the consolidated page rather than create a second one;
			// consolidation's contract is a single resulting page.
			grown := NewPage(0, position, page.Size*2, nowMs())
			for _, t := range page.tuples {
				k, _ := m.decodeKey(t.key)
				_, _, _ = grown.AddOrUpdate(k, t.entry, t.key, m.decodeKey)
			}
			page = grown
		}
		entry := e.entry
		entry.PageIndex = 0
		if _, _, err := page.AddOrUpdate(e.key, entry, encodedKey, m.decodeKey); err != nil {
			return 0, err
		}
		cache[e.key] = entry
	}

	if _, err := m.file.WriteAt(page.MarshalBinary(), position); err != nil {
		return 0, err
	}
	page.ClearDirty()

	m.pages = []*Page{page}
	m.blocks = [MaxPages]layout.IndexBlock{}
	m.blocks[0] = layout.IndexBlock{PagePosition: position, PageSize: page.Size}
	m.header.PageCount = 1
	m.header.TotalEntries = uint32(len(all))
	m.header.ActiveEntries = uint32(len(all))
	m.header.DeletedEntries = 0
	m.header.LastUpdateMs = nowMs()
	m.cache = cache
	m.dirty.Store(true)

	return position + page.Size, nil
}

// Flush persists all dirty pages plus the header and block array.
func (m *Manager) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushLocked()
}

func (m *Manager) flushLocked() error {
	for _, p := range m.pages {
		if !p.Dirty() {
			continue
		}
		if _, err := m.file.WriteAt(p.MarshalBinary(), p.Position); err != nil {
			return err
		}
		p.ClearDirty()
	}

	var active, deleted uint32
	for _, p := range m.pages {
		active += uint32(p.ActiveCount())
		deleted += uint32(p.DeletedCount())
	}
	m.header.ActiveEntries = active
	m.header.DeletedEntries = deleted
	m.header.TotalEntries = active + deleted

	blocksBuf := make([]byte, int64(MaxPages)*layout.IndexBlockSize)
	for i, b := range m.blocks {
		copy(blocksBuf[int64(i)*layout.IndexBlockSize:], b.MarshalBinary())
	}
	if _, err := m.file.WriteAt(blocksBuf, m.indexBlocksOffset()); err != nil {
		return err
	}
	if _, err := m.file.WriteAt(m.header.MarshalBinary(), m.indexHeaderOffset()); err != nil {
		return err
	}

	m.dirty.Store(false)
	return nil
}

// Dirty reports whether any page or the header changed since the last
// Flush.
func (m *Manager) Dirty() bool {
	return m.dirty.Load()
}

// Clear empties the cache and every page in memory, ready for a fresh
// single empty first page to be (re)created lazily on the next Reserve.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = nil
	m.blocks = [MaxPages]layout.IndexBlock{}
	m.cache = make(map[string]layout.IndexEntry)
	m.header.PageCount = 0
	m.header.TotalEntries = 0
	m.header.ActiveEntries = 0
	m.header.DeletedEntries = 0
	m.header.LastUpdateMs = nowMs()
	m.dirty.Store(true)
}
