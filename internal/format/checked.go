package format

import (
	"fmt"

	"github.com/joshuapare/amcachekit/internal/buf"
)

// Upper bounds used to reject garbage before allocating for it.
const (
	MaxSubkeyCount  = 1 << 20
	MaxValueCount   = 1 << 20
	MaxNameLen      = 0x7FFF
	MaxClassLen     = 0x7FFF
	MaxValueDataLen = 1 << 30
)

// CheckedReadU16 reads a little-endian uint16 at off, failing with ErrTruncated.
func CheckedReadU16(b []byte, off int) (uint16, error) {
	s, ok := buf.Slice(b, off, 2)
	if !ok {
		return 0, fmt.Errorf("u16 at %#x: %w", off, ErrTruncated)
	}
	return buf.U16LE(s), nil
}

// CheckedReadU32 reads a little-endian uint32 at off, failing with ErrTruncated.
func CheckedReadU32(b []byte, off int) (uint32, error) {
	s, ok := buf.Slice(b, off, 4)
	if !ok {
		return 0, fmt.Errorf("u32 at %#x: %w", off, ErrTruncated)
	}
	return buf.U32LE(s), nil
}

// CheckedReadU64 reads a little-endian uint64 at off, failing with ErrTruncated.
func CheckedReadU64(b []byte, off int) (uint64, error) {
	s, ok := buf.Slice(b, off, 8)
	if !ok {
		return 0, fmt.Errorf("u64 at %#x: %w", off, ErrTruncated)
	}
	return buf.U64LE(s), nil
}
