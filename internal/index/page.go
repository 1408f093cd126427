package index

import (
	"fmt"

	"github.com/trueai-org/ultrakv/internal/layout"
)

// compactThreshold triggers Page.Compact when deleted entries reach this
// fraction of the total (§4.4).
const compactThreshold = 0.3

// tuple is one (IndexEntry, encoded key bytes) pair as it appears on disk,
// in insertion order.
type tuple struct {
	entry  layout.IndexEntry
	key    []byte
	offset int64 // byte offset of this tuple within the page, relative to page start
}

// Page is a fixed-size in-memory mirror of one on-disk index page: a
// 32-byte IndexPageHeader followed by an append-only sequence of
// (IndexEntry, key_bytes) tuples (§4.4).
type Page struct {
	Index    uint8
	Position int64 // absolute file offset of the page start
	Size     int64 // total page size including the header

	header  layout.IndexPageHeader
	tuples  []tuple
	dirty   bool
}

// NewPage allocates a fresh, empty page of the given size at position,
// stamped with an IDXP header.
func NewPage(index uint8, position, size int64, nowMs int64) *Page {
	p := &Page{
		Index:    index,
		Position: position,
		Size:     size,
		header: layout.IndexPageHeader{
			Magic:        layout.MagicIndexPage,
			EntryCount:   0,
			MaxEntries:   0,
			UsedBytes:    uint32(layout.IndexPageHeaderSize),
			FreeBytes:    uint32(size - layout.IndexPageHeaderSize),
			LastUpdateMs: nowMs,
		},
		dirty: true,
	}
	return p
}

// LoadPage parses a page of buf (len(buf) == size) previously read from
// disk at position.
func LoadPage(index uint8, position int64, buf []byte) (*Page, error) {
	if int64(len(buf)) < layout.IndexPageHeaderSize {
		return nil, fmt.Errorf("index: page %d buffer too small (%d bytes)", index, len(buf))
	}
	hdrBuf := buf[:layout.IndexPageHeaderSize]
	if !layout.IsValidIndexPageHeader(hdrBuf) {
		return nil, fmt.Errorf("index: page %d has invalid header magic", index)
	}
	hdr := layout.UnmarshalIndexPageHeader(hdrBuf)

	p := &Page{
		Index:    index,
		Position: position,
		Size:     int64(len(buf)),
		header:   *hdr,
	}

	cursor := layout.IndexPageHeaderSize
	for i := uint32(0); i < hdr.EntryCount; i++ {
		if cursor+layout.IndexEntrySize > int64(len(buf)) {
			return nil, fmt.Errorf("index: page %d truncated at entry %d", index, i)
		}
		entry := layout.UnmarshalIndexEntry(buf[cursor : cursor+layout.IndexEntrySize])
		keyStart := cursor + layout.IndexEntrySize
		keyEnd := keyStart + int64(entry.KeyLength)
		if keyEnd > int64(len(buf)) {
			return nil, fmt.Errorf("index: page %d entry %d key overruns page", index, i)
		}
		key := append([]byte(nil), buf[keyStart:keyEnd]...)
		p.tuples = append(p.tuples, tuple{entry: entry, key: key, offset: cursor})
		cursor = keyEnd
	}

	return p, nil
}

// usedBytes returns the header plus every tuple's encoded size.
func (p *Page) usedBytes() int64 {
	used := layout.IndexPageHeaderSize
	for _, t := range p.tuples {
		used += layout.IndexEntrySize + int64(len(t.key))
	}
	return used
}

// FreeBytes returns the remaining space in the page.
func (p *Page) FreeBytes() int64 {
	return p.Size - p.usedBytes()
}

// EntryCount returns the number of tuples the page currently holds
// (including tombstoned ones); Compact and RemoveReservation lower it.
func (p *Page) EntryCount() int {
	return len(p.tuples)
}

// ActiveCount and DeletedCount report live vs. tombstoned tuple counts.
func (p *Page) ActiveCount() int {
	n := 0
	for _, t := range p.tuples {
		if !t.entry.IsDeleted {
			n++
		}
	}
	return n
}

func (p *Page) DeletedCount() int {
	return len(p.tuples) - p.ActiveCount()
}

// Dirty reports whether the page has unpersisted changes.
func (p *Page) Dirty() bool { return p.dirty }

// ClearDirty marks the page as persisted.
func (p *Page) ClearDirty() { p.dirty = false }

// find returns the index of the tuple matching key (decoded via decodeKey),
// or -1.
func (p *Page) find(key string, decodeKey DecodeKeyFunc) (int, error) {
	for i, t := range p.tuples {
		decoded, err := decodeKey(t.key)
		if err != nil {
			return -1, err
		}
		if decoded == key {
			return i, nil
		}
	}
	return -1, nil
}

// Contains reports whether a non-deleted tuple for key exists on this page.
func (p *Page) Contains(key string, decodeKey DecodeKeyFunc) (bool, error) {
	idx, err := p.find(key, decodeKey)
	if err != nil || idx < 0 {
		return false, err
	}
	return !p.tuples[idx].entry.IsDeleted, nil
}

// Find returns the entry for key if present and not deleted.
func (p *Page) Find(key string, decodeKey DecodeKeyFunc) (layout.IndexEntry, bool, error) {
	idx, err := p.find(key, decodeKey)
	if err != nil || idx < 0 {
		return layout.IndexEntry{}, false, err
	}
	if p.tuples[idx].entry.IsDeleted {
		return layout.IndexEntry{}, false, nil
	}
	return p.tuples[idx].entry, true, nil
}

// AddOrUpdate implements §4.4's add_or_update: if key is already present
// (deleted or not) it returns (true, true) without modifying anything —
// the caller updates via UpdateConfirmed. Otherwise it appends the tuple
// when there is room, returning (true, false); it returns (false, false)
// when free space is insufficient.
func (p *Page) AddOrUpdate(key string, entry layout.IndexEntry, encodedKey []byte, decodeKey DecodeKeyFunc) (ok bool, alreadyPresent bool, err error) {
	idx, err := p.find(key, decodeKey)
	if err != nil {
		return false, false, err
	}
	if idx >= 0 {
		return true, true, nil
	}

	needed := layout.IndexEntrySize + int64(len(encodedKey))
	if p.FreeBytes() < needed {
		return false, false, nil
	}

	offset := p.usedBytes()
	p.tuples = append(p.tuples, tuple{entry: entry, key: append([]byte(nil), encodedKey...), offset: offset})
	p.header.EntryCount++
	p.header.UsedBytes = uint32(p.usedBytes())
	p.header.FreeBytes = uint32(p.FreeBytes())
	p.dirty = true
	return true, false, nil
}

// Remove tombstones the matching tuple in place. Returns true if a
// non-deleted match was found and marked.
func (p *Page) Remove(key string, decodeKey DecodeKeyFunc) (bool, error) {
	idx, err := p.find(key, decodeKey)
	if err != nil || idx < 0 || p.tuples[idx].entry.IsDeleted {
		return false, err
	}
	p.tuples[idx].entry.IsDeleted = true
	p.dirty = true
	return true, nil
}

// UpdateConfirmed overwrites the 32-byte entry of the matching tuple in
// place (used after a Put completes to replace reserved fields, §4.5
// step 5).
func (p *Page) UpdateConfirmed(key string, newEntry layout.IndexEntry, decodeKey DecodeKeyFunc) (bool, error) {
	idx, err := p.find(key, decodeKey)
	if err != nil || idx < 0 {
		return false, err
	}
	p.tuples[idx].entry = newEntry
	p.dirty = true
	return true, nil
}

// RemoveReservation physically drops a freshly reserved tuple (used by
// Manager.Rollback for a brand-new key whose value write failed); unlike
// Remove, this shrinks the tuple list instead of tombstoning so the slot
// never counts against deleted_entries.
func (p *Page) RemoveReservation(key string, decodeKey DecodeKeyFunc) (bool, error) {
	idx, err := p.find(key, decodeKey)
	if err != nil || idx < 0 {
		return false, err
	}
	p.tuples = append(p.tuples[:idx], p.tuples[idx+1:]...)
	p.header.EntryCount--
	p.header.UsedBytes = uint32(p.usedBytes())
	p.header.FreeBytes = uint32(p.FreeBytes())
	p.dirty = true
	return true, nil
}

// ShouldCompact reports whether deleted tuples have crossed compactThreshold
// of the total.
func (p *Page) ShouldCompact() bool {
	total := len(p.tuples)
	if total == 0 {
		return false
	}
	return float64(p.DeletedCount())/float64(total) >= compactThreshold
}

// Compact rebuilds the tuple list keeping only non-deleted entries,
// resetting entry_count/used_space/free_space/last_update_time (§4.4).
// Surviving tuples get new page-relative offsets; it returns only an
// error and does not report which keys survived.
func (p *Page) Compact(decodeKey DecodeKeyFunc, nowMs int64) error {
	kept := make([]tuple, 0, p.ActiveCount())
	offset := layout.IndexPageHeaderSize
	for _, t := range p.tuples {
		if t.entry.IsDeleted {
			continue
		}
		t.offset = offset
		kept = append(kept, t)
		offset += layout.IndexEntrySize + int64(len(t.key))
	}
	p.tuples = kept
	p.header.EntryCount = uint32(len(kept))
	p.header.UsedBytes = uint32(p.usedBytes())
	p.header.FreeBytes = uint32(p.FreeBytes())
	p.header.LastUpdateMs = nowMs
	p.dirty = true
	return nil
}

// Entries returns a snapshot of (key, entry) pairs for every non-deleted
// tuple, used by consolidation and shrink.
func (p *Page) Entries(decodeKey DecodeKeyFunc) ([]string, []layout.IndexEntry, error) {
	keys := make([]string, 0, len(p.tuples))
	entries := make([]layout.IndexEntry, 0, len(p.tuples))
	for _, t := range p.tuples {
		if t.entry.IsDeleted {
			continue
		}
		k, err := decodeKey(t.key)
		if err != nil {
			return nil, nil, err
		}
		keys = append(keys, k)
		entries = append(entries, t.entry)
	}
	return keys, entries, nil
}

// MarshalBinary serializes the page header and tuples into a Size-byte
// buffer, zero-padded beyond the used region.
func (p *Page) MarshalBinary() []byte {
	buf := make([]byte, p.Size)
	copy(buf, p.header.MarshalBinary())
	cursor := layout.IndexPageHeaderSize
	for _, t := range p.tuples {
		copy(buf[cursor:], t.entry.MarshalBinary())
		cursor += layout.IndexEntrySize
		copy(buf[cursor:], t.key)
		cursor += int64(len(t.key))
	}
	return buf
}
