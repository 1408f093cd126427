// Package alloc implements C3 of the UltraKV design: the free-space
// allocator. It tracks freed byte ranges in memory, services size requests
// best-fit, merges adjacent blocks on release, and persists its state into
// the file's fixed free-space region.
package alloc

import (
	"io"
	"sort"
	"sync"
	"time"

	"github.com/trueai-org/ultrakv/internal/layout"
)

// Block is a free byte range available for reuse.
type Block struct {
	Position int64
	Size     int64
}

func (b Block) end() int64 { return b.Position + b.Size }

// Stats is a snapshot of the allocator's persisted counters, used for
// GC triggering and the fragmentation metric reported (not acted on) by
// §4.3.
type Stats struct {
	Enabled              bool
	BlockCount           int
	TotalFreeBytes       int64
	LargestBlock         int64
	AllocationCount      uint32
	RecycleCount         uint32
	LastUsedMs           int64
	TotalBytesRecycled   int64
	LargestBlockEverSeen int64
}

// Fragmentation returns 1 - largest/(total/count), the advisory metric
// from §4.3. Returns 0 when there are no blocks.
func (s Stats) Fragmentation() float64 {
	if s.BlockCount == 0 || s.TotalFreeBytes == 0 {
		return 0
	}
	avg := float64(s.TotalFreeBytes) / float64(s.BlockCount)
	if avg == 0 {
		return 0
	}
	return 1 - float64(s.LargestBlock)/avg
}

// Allocator is the in-memory free-block list plus its persistence state.
// All methods are safe for concurrent use; callers normally also hold the
// engine's write mutex, but Allocator does not depend on that.
type Allocator struct {
	mu sync.Mutex

	enabled    bool
	dataStart  int64 // positions below this are never released (header/index region)
	maxBlocks  int   // capacity of the persisted region, floor(regionSize/16)

	blocks []Block // kept sorted ascending by Size

	dirty bool

	allocationCount      uint32
	recycleCount         uint32
	lastUsedMs           int64
	totalBytesRecycled   int64
	largestBlockEverSeen int64
}

// New creates an allocator. When enabled is false, TryReserve always
// returns (Block{}, false) and Release is a no-op, matching §4.3's
// "disabled mode".
func New(enabled bool, dataStart int64, regionSizeBytes int64) *Allocator {
	return &Allocator{
		enabled:   enabled,
		dataStart: dataStart,
		maxBlocks: layout.MaxFreeBlocks(regionSizeBytes),
	}
}

// wasteThreshold implements max(64, size/4) from §4.3.
func wasteThreshold(size int64) int64 {
	t := size / 4
	if t < 64 {
		return 64
	}
	return t
}

// TryReserve returns a freed region of at least size bytes using best-fit
// selection, splitting the block when the leftover would exceed the waste
// threshold. Returns (Block{}, false) when no block is large enough or the
// allocator is disabled; the caller must then append at end-of-file.
func (a *Allocator) TryReserve(size int64) (Block, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.enabled || size <= 0 {
		return Block{}, false
	}

	idx := sort.Search(len(a.blocks), func(i int) bool { return a.blocks[i].Size >= size })
	if idx == len(a.blocks) {
		return Block{}, false
	}

	chosen := a.blocks[idx]
	a.blocks = append(a.blocks[:idx], a.blocks[idx+1:]...)

	result := Block{Position: chosen.Position, Size: size}

	if remainder := chosen.Size - size; remainder > wasteThreshold(size) {
		a.insertSorted(Block{Position: chosen.Position + size, Size: remainder})
	} else {
		// The whole block is handed out even though it may be larger than
		// requested; the caller's ValueAllocatedLength records the true size.
		result.Size = chosen.Size
	}

	a.allocationCount++
	a.lastUsedMs = nowMs()
	a.dirty = true
	return result, true
}

// Release returns [position, position+size) to the free list, merging it
// with any adjacent block. A no-op when the allocator is disabled, size is
// non-positive, or position is below the data-start boundary (§4.3).
func (a *Allocator) Release(position, size int64) {
	if size <= 0 || position < a.dataStart {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.enabled {
		return
	}

	block := Block{Position: position, Size: size}

	merged := true
	for merged {
		merged = false
		for i, b := range a.blocks {
			if b.end() == block.Position {
				block = Block{Position: b.Position, Size: b.Size + block.Size}
				a.blocks = append(a.blocks[:i], a.blocks[i+1:]...)
				merged = true
				break
			}
			if block.end() == b.Position {
				block = Block{Position: block.Position, Size: block.Size + b.Size}
				a.blocks = append(a.blocks[:i], a.blocks[i+1:]...)
				merged = true
				break
			}
		}
	}

	a.insertSorted(block)

	a.recycleCount++
	a.totalBytesRecycled += size
	if block.Size > a.largestBlockEverSeen {
		a.largestBlockEverSeen = block.Size
	}
	a.lastUsedMs = nowMs()
	a.dirty = true

	a.evictSmallestIfOverCapacity()
}

// insertSorted inserts b keeping a.blocks sorted ascending by Size.
func (a *Allocator) insertSorted(b Block) {
	idx := sort.Search(len(a.blocks), func(i int) bool { return a.blocks[i].Size >= b.Size })
	a.blocks = append(a.blocks, Block{})
	copy(a.blocks[idx+1:], a.blocks[idx:])
	a.blocks[idx] = b
}

// evictSmallestIfOverCapacity drops the smallest blocks once the list would
// no longer fit in the persisted region (§4.3: "If the list exceeds
// capacity, the smallest blocks are evicted").
func (a *Allocator) evictSmallestIfOverCapacity() {
	if a.maxBlocks <= 0 {
		a.blocks = nil
		return
	}
	if len(a.blocks) > a.maxBlocks {
		a.blocks = a.blocks[len(a.blocks)-a.maxBlocks:]
	}
}

// Stats returns a snapshot of the allocator's counters.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	var total, largest int64
	for _, b := range a.blocks {
		total += b.Size
		if b.Size > largest {
			largest = b.Size
		}
	}

	return Stats{
		Enabled:              a.enabled,
		BlockCount:           len(a.blocks),
		TotalFreeBytes:       total,
		LargestBlock:         largest,
		AllocationCount:      a.allocationCount,
		RecycleCount:         a.recycleCount,
		LastUsedMs:           a.lastUsedMs,
		TotalBytesRecycled:   a.totalBytesRecycled,
		LargestBlockEverSeen: a.largestBlockEverSeen,
	}
}

// Enabled reports whether this allocator services reservations.
func (a *Allocator) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// Blocks returns a snapshot copy of the current free list, ascending by
// size, for persistence or testing.
func (a *Allocator) Blocks() []Block {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Block, len(a.blocks))
	copy(out, a.blocks)
	return out
}

// LoadBlocks replaces the in-memory free list, e.g. after reading it back
// from the persisted region on Open. Blocks are expected to already be
// disjoint and non-adjacent; they are re-sorted by size.
func (a *Allocator) LoadBlocks(blocks []Block) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blocks = append([]Block(nil), blocks...)
	sort.Slice(a.blocks, func(i, j int) bool { return a.blocks[i].Size < a.blocks[j].Size })
}

// Dirty reports whether the allocator state has changed since the last
// ClearDirty call.
func (a *Allocator) Dirty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dirty
}

// ClearDirty marks the allocator state as persisted.
func (a *Allocator) ClearDirty() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dirty = false
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}

// Save writes the FreeSpaceHeader and the current block list into the
// fixed free-space region starting at layout.FreeSpaceRegionOffset. Blocks
// beyond regionSizeBytes' capacity are silently dropped; evictSmallest
// already keeps the in-memory list within that bound, so this only matters
// if regionSizeBytes shrank since New.
func (a *Allocator) Save(w io.WriterAt) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	capacity := a.maxBlocks
	blocks := a.blocks
	if len(blocks) > capacity {
		blocks = blocks[len(blocks)-capacity:]
	}

	region := make([]byte, int64(capacity)*layout.FreeBlockSize)
	for i, b := range blocks {
		fb := layout.FreeBlock{Position: b.Position, Size: b.Size}
		copy(region[int64(i)*layout.FreeBlockSize:], fb.MarshalBinary())
	}
	if _, err := w.WriteAt(region, layout.FreeSpaceRegionOffset); err != nil {
		return err
	}

	hdr := &layout.FreeSpaceHeader{
		Magic:                layout.MagicFreeSpaceHeader,
		Version:              layout.CurrentVersion,
		Enabled:              a.enabled,
		RegionByteSize:       int64(capacity) * layout.FreeBlockSize,
		BlockCount:           uint32(len(blocks)),
		AllocationCount:      a.allocationCount,
		RecycleCount:         a.recycleCount,
		LastUsedMs:           a.lastUsedMs,
		TotalBytesRecycled:   a.totalBytesRecycled,
		LargestBlockEverSeen: a.largestBlockEverSeen,
	}
	if _, err := w.WriteAt(hdr.MarshalBinary(), layout.FreeSpaceHeaderOffset); err != nil {
		return err
	}

	a.dirty = false
	return nil
}

// Load reads the FreeSpaceHeader and block array back from r and replaces
// the in-memory state. Returns false without error when the header is
// absent or invalid (fresh file), leaving the allocator empty.
func (a *Allocator) Load(r io.ReaderAt) (bool, error) {
	hbuf := make([]byte, layout.FreeSpaceHeaderSize)
	if _, err := r.ReadAt(hbuf, layout.FreeSpaceHeaderOffset); err != nil {
		return false, err
	}
	if !layout.IsValidFreeSpaceHeader(hbuf) {
		return false, nil
	}
	hdr := layout.UnmarshalFreeSpaceHeader(hbuf)

	region := make([]byte, hdr.RegionByteSize)
	if hdr.RegionByteSize > 0 {
		if _, err := r.ReadAt(region, layout.FreeSpaceRegionOffset); err != nil {
			return false, err
		}
	}

	blocks := make([]Block, 0, hdr.BlockCount)
	for i := uint32(0); i < hdr.BlockCount; i++ {
		off := int64(i) * layout.FreeBlockSize
		if off+layout.FreeBlockSize > int64(len(region)) {
			break
		}
		fb := layout.UnmarshalFreeBlock(region[off : off+layout.FreeBlockSize])
		if fb.IsZero() {
			continue
		}
		blocks = append(blocks, Block{Position: fb.Position, Size: fb.Size})
	}

	a.mu.Lock()
	a.enabled = hdr.Enabled
	a.blocks = blocks
	sort.Slice(a.blocks, func(i, j int) bool { return a.blocks[i].Size < a.blocks[j].Size })
	a.allocationCount = hdr.AllocationCount
	a.recycleCount = hdr.RecycleCount
	a.lastUsedMs = hdr.LastUsedMs
	a.totalBytesRecycled = hdr.TotalBytesRecycled
	a.largestBlockEverSeen = hdr.LargestBlockEverSeen
	a.dirty = false
	a.mu.Unlock()

	return true, nil
}
