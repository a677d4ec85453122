// Package regread is the read-only registry hive reader the Amcache decoders
// walk. It exposes keys and values by path over a mapped file or an in-memory
// image, skipping free cells, and can surface deleted keys still present in
// unallocated space.
package regread

import (
	"errors"
	"fmt"
	"time"

	"github.com/joshuapare/amcachekit/internal/format"
	"github.com/joshuapare/amcachekit/internal/mmfile"
	"github.com/joshuapare/amcachekit/pkg/types"
)

// DefaultMaxCellSize bounds any single cell the reader will accept.
const DefaultMaxCellSize = 64 << 20

// Options controls how a hive is opened. The zero value is usable.
type Options struct {
	// RecoverDeleted attaches deleted keys found in free cells to their
	// parent when the parent is still live.
	RecoverDeleted bool
	// MaxCellSize caps cell sizes; zero means DefaultMaxCellSize.
	MaxCellSize int
}

// Hive is an open registry hive.
type Hive struct {
	buf    []byte
	file   *mmfile.File
	opts   Options
	head   format.Header
	bins   []binEntry
	closed bool

	// Populated when RecoverDeleted is set.
	orphans  []*Key
	attached map[uint32][]uint32
}

type binEntry struct {
	offset int
	size   int
}

// Open maps the hive at path.
func Open(path string, opts Options) (*Hive, error) {
	f, err := mmfile.Open(path)
	if err != nil {
		return nil, wrapIOErr(fmt.Errorf("open hive: %w", err))
	}
	h, err := newHive(f.Bytes(), opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	h.file = f
	return h, nil
}

// OpenBytes creates a hive backed by b. The buffer must not change while the
// hive is in use.
func OpenBytes(b []byte, opts Options) (*Hive, error) {
	return newHive(b, opts)
}

func newHive(b []byte, opts Options) (*Hive, error) {
	head, err := format.ParseHeader(b)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	if opts.MaxCellSize <= 0 {
		opts.MaxCellSize = DefaultMaxCellSize
	}
	h := &Hive{buf: b, opts: opts, head: head}
	if err := h.indexBins(); err != nil {
		return nil, err
	}
	if opts.RecoverDeleted {
		h.scanDeleted()
	}
	return h, nil
}

// Close releases the mapping. It is safe to call more than once.
func (h *Hive) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if h.file != nil {
		return h.file.Close()
	}
	return nil
}

// Header returns the parsed base block.
func (h *Hive) Header() format.Header { return h.head }

// LastWrite returns the base block timestamp.
func (h *Hive) LastWrite() time.Time { return format.FiletimeToTime(h.head.LastWriteRaw) }

// Image returns the bytes backing the hive. They must not be modified.
func (h *Hive) Image() []byte { return h.buf }

// Mapped reports whether the hive is backed by a memory mapping.
func (h *Hive) Mapped() bool { return h.file != nil && h.file.Mapped() }

// Root returns the root key.
func (h *Hive) Root() (*Key, error) {
	if err := h.ensureOpen(); err != nil {
		return nil, err
	}
	return h.key(h.head.RootCellOffset, "", false)
}

// DeletedKeys returns the deleted keys whose parent is no longer live. Keys
// with a live parent are reachable through that parent's SubKeys.
func (h *Hive) DeletedKeys() []*Key { return h.orphans }

// DeletedCount is the number of deleted keys found, attached or orphaned.
func (h *Hive) DeletedCount() int {
	n := len(h.orphans)
	for _, offs := range h.attached {
		n += len(offs)
	}
	return n
}

func (h *Hive) ensureOpen() error {
	if h.closed {
		return &types.Error{Kind: types.ErrKindState, Msg: "hive is closed"}
	}
	return nil
}

// indexBins walks the hbin chain once so cell lookups can bound each cell by
// the bin that holds it.
func (h *Hive) indexBins() error {
	off := format.HeaderSize
	end := format.HeaderSize + int(h.head.HiveBinsDataSize)
	for off < end && off < len(h.buf) {
		bin, next, err := format.NextHBIN(h.buf, off)
		if err != nil {
			// A short tail is tolerated; logs may not have been replayed.
			if len(h.bins) > 0 && errors.Is(err, format.ErrTruncated) {
				return nil
			}
			return &types.Error{Kind: types.ErrKindCorrupt, Msg: err.Error(), Err: types.ErrCorrupt}
		}
		h.bins = append(h.bins, binEntry{offset: off, size: int(bin.Size)})
		off = next
	}
	if len(h.bins) == 0 {
		return &types.Error{Kind: types.ErrKindCorrupt, Msg: "hive has no hive bins", Err: types.ErrCorrupt}
	}
	return nil
}

func (h *Hive) binFor(abs int) (binEntry, bool) {
	for _, b := range h.bins {
		if abs >= b.offset && abs < b.offset+b.size {
			return b, true
		}
	}
	return binEntry{}, false
}

// cell returns the cell at a hive-relative offset. Free cells are returned
// with Free set; callers decide whether to skip them.
func (h *Hive) cell(offset uint32) (format.Cell, error) {
	if offset == format.InvalidOffset {
		return format.Cell{}, &types.Error{Kind: types.ErrKindCorrupt, Msg: "invalid cell offset", Err: types.ErrCorrupt}
	}
	abs := format.HeaderSize + int(offset)
	bin, ok := h.binFor(abs)
	if !ok {
		return format.Cell{}, &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("cell offset %#x not in any hive bin", offset),
			Err:  types.ErrCorrupt,
		}
	}
	c, err := format.ParseCell(h.buf[abs : bin.offset+bin.size])
	if err != nil {
		return format.Cell{}, wrapFormatErr(fmt.Errorf("cell %#x: %w", offset, err))
	}
	if c.Size > h.opts.MaxCellSize {
		return format.Cell{}, &types.Error{Kind: types.ErrKindCorrupt, Msg: "cell exceeds MaxCellSize", Err: types.ErrCorrupt}
	}
	c.Offset = int(offset)
	return c, nil
}

// Error helpers --------------------------------------------------------------

func wrapIOErr(err error) error {
	return &types.Error{Kind: types.ErrKindState, Msg: err.Error(), Err: err}
}

func wrapFormatErr(err error) error {
	switch {
	case errors.Is(err, format.ErrSignatureMismatch):
		return &types.Error{Kind: types.ErrKindFormat, Msg: err.Error(), Err: types.ErrNotHive}
	case errors.Is(err, format.ErrTruncated):
		return &types.Error{Kind: types.ErrKindFormat, Msg: "hive truncated", Err: err}
	case errors.Is(err, format.ErrFreeCell):
		return &types.Error{Kind: types.ErrKindCorrupt, Msg: "cell marked free", Err: err}
	case errors.Is(err, format.ErrUnsupported):
		return &types.Error{Kind: types.ErrKindUnsupported, Msg: err.Error(), Err: types.ErrUnsupported}
	default:
		return &types.Error{Kind: types.ErrKindCorrupt, Msg: err.Error(), Err: types.ErrCorrupt}
	}
}
