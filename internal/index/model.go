package index

import (
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/trueai-org/ultrakv/internal/layout"
)

// MaxPages is the hard ceiling on index pages (§4.5); the 33rd
// create-new-page attempt fails with IndexFull.
const MaxPages = layout.MaxIndexPages

// FileHandle is the slice of file operations the index manager needs. The
// engine supplies its single owned *os.File (or an equivalent) satisfying
// this; the manager never opens or closes the file itself.
type FileHandle interface {
	io.ReaderAt
	io.WriterAt
	Size() (int64, error)
}

// EncodeKeyFunc turns a plaintext key into the bytes stored on disk. When a
// codec is active this applies compress-then-encrypt so the on-disk index
// never carries plaintext (§9 Open Question 2); otherwise it is the
// identity UTF-8 conversion.
type EncodeKeyFunc func(key string) ([]byte, error)

// DecodeKeyFunc reverses EncodeKeyFunc.
type DecodeKeyFunc func(encoded []byte) (string, error)

// Config configures a Manager.
type Config struct {
	Logger *zap.SugaredLogger
	File   FileHandle

	// FreeSpaceRegionSize is the configured byte size of the free-space
	// block region; together with layout's fixed offsets it determines
	// where the index header and first page live.
	FreeSpaceRegionSize int64

	// DefaultPageSizeKB sizes the very first index page when none exists
	// yet (§4.5 step 4).
	DefaultPageSizeKB int32

	EncodeKey EncodeKeyFunc
	DecodeKey DecodeKeyFunc
}

// Reservation is the tentative state produced by Manager.Reserve, carried
// by the caller through the value write and back into Confirm or Rollback.
type Reservation struct {
	Key        string
	EncodedKey []byte
	PageIndex  uint8
	Entry      layout.IndexEntry
	IsNew      bool // true if this reservation created a fresh tuple (vs. reusing an existing live entry)
}

// Stats is the snapshot returned by Manager.Stats (§4.5).
type Stats struct {
	PageCount      int
	MaxPages       int
	TotalIndexBytes int64
	TotalEntries   uint32
	ActiveEntries  uint32
	DeletedEntries uint32
}

// Utilization returns ActiveEntries/TotalEntries, or 0 when there are no
// entries.
func (s Stats) Utilization() float64 {
	if s.TotalEntries == 0 {
		return 0
	}
	return float64(s.ActiveEntries) / float64(s.TotalEntries)
}

// Manager is the in-memory owner of up to MaxPages index pages plus the
// authoritative key -> IndexEntry cache (§4.5). The engine's write mutex
// serializes all mutating calls; Get/Contains only need the manager's own
// read lock.
type Manager struct {
	log *zap.SugaredLogger
	mu  sync.RWMutex

	file                FileHandle
	freeSpaceRegionSize int64
	defaultPageSizeKB   int32

	encodeKey EncodeKeyFunc
	decodeKey DecodeKeyFunc

	header *layout.IndexHeader
	blocks [MaxPages]layout.IndexBlock
	pages  []*Page

	cache map[string]layout.IndexEntry

	dirty atomic.Bool
}

func (m *Manager) indexHeaderOffset() int64 {
	return layout.IndexHeaderOffset(m.freeSpaceRegionSize)
}

func (m *Manager) indexBlocksOffset() int64 {
	return layout.IndexBlocksOffset(m.freeSpaceRegionSize)
}

// FirstIndexDataStartPosition returns the absolute offset where the first
// index page (and the value heap beyond it) begins.
func (m *Manager) FirstIndexDataStartPosition() int64 {
	return layout.FirstIndexDataStartPosition(m.freeSpaceRegionSize)
}
