package engine

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/trueai-org/ultrakv/internal/alloc"
	"github.com/trueai-org/ultrakv/internal/codec"
	"github.com/trueai-org/ultrakv/internal/gc"
	"github.com/trueai-org/ultrakv/internal/heap"
	"github.com/trueai-org/ultrakv/internal/index"
	"github.com/trueai-org/ultrakv/internal/layout"
	"github.com/trueai-org/ultrakv/internal/storage"
	"github.com/trueai-org/ultrakv/pkg/options"
)

// Engine is the C7 orchestrator: the single owner of the database file,
// coordinating the allocator (C3), codec pipeline (C2), index manager
// (C4/C5) and value heap (C6) behind one write mutex (§5).
type Engine struct {
	mu     sync.Mutex // serializes Put, Delete, DeleteBatch, Clear, Flush, Shrink, ConsolidatePages
	log    *zap.SugaredLogger
	closed atomic.Bool

	opts *options.Options
	file *storage.File

	header   *layout.DatabaseHeader
	alloc    *alloc.Allocator
	idx      *index.Manager
	heap     *heap.Heap
	pipeline *codec.Pipeline

	dataStart int64 // first_index_data_start_position; the allocator release floor

	gcWorker         *gc.Worker
	gcRunning        atomic.Bool
	lastAutoShrinkMs atomic.Int64
}

// Config holds the parameters needed to open an Engine.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// Stats mirrors §4.5's manager stats plus the allocator's, surfaced
// through the engine for observability and GC decisions.
type Stats struct {
	PageCount       int
	MaxPages        int
	TotalIndexBytes int64
	TotalEntries    uint32
	ActiveEntries   uint32
	DeletedEntries  uint32

	FileSize       int64
	FreeBytes      int64
	FreeBlockCount int
	Fragmentation  float64
}

// ShrinkResult reports the outcome of a compaction rebuild (§4.8).
type ShrinkResult struct {
	OriginalSize   int64
	NewSize        int64
	SavedBytes     int64
	SavedPercent   float64
	ValidRecords   int
	TotalProcessed int
	ElapsedMs      int64
}
