package format

import (
	"errors"
	"fmt"

	"github.com/joshuapare/amcachekit/internal/buf"
)

// Cell represents a single allocation (free or in-use) within an HBIN.
//
//	Offset  Size  Description
//	0x00    4     Signed size. Negative => allocated, positive => free.
//	              The absolute value includes the 4-byte header.
//	0x04    ...   Payload. The first two bytes are the record tag.
type Cell struct {
	Offset int
	Size   int
	Free   bool
	Tag    [SignatureSize]byte
	Data   []byte
}

// TagIs reports whether the payload begins with sig.
func (c Cell) TagIs(sig []byte) bool {
	return len(sig) == SignatureSize && c.Tag[0] == sig[0] && c.Tag[1] == sig[1]
}

// ParseCell decodes the cell whose header starts at b[0].
func ParseCell(b []byte) (Cell, error) {
	if len(b) < CellHeaderSize {
		return Cell{}, fmt.Errorf("cell: %w", ErrTruncated)
	}
	raw := buf.I32LE(b)
	if raw == 0 {
		return Cell{}, errors.New("cell: zero length")
	}
	free := raw > 0
	size := int(raw)
	if !free {
		size = -size
	}
	if size < CellHeaderSize || size > len(b) {
		return Cell{}, fmt.Errorf("cell: %w", ErrTruncated)
	}
	c := Cell{Size: size, Free: free, Data: b[CellHeaderSize:size]}
	if len(c.Data) >= SignatureSize {
		c.Tag[0], c.Tag[1] = c.Data[0], c.Data[1]
	}
	return c, nil
}

// NextCell decodes the cell at off inside the bin that starts at binOff and
// spans h.Size bytes, returning the offset of the following cell.
func NextCell(b []byte, binOff int, h HBIN, off int) (Cell, int, error) {
	binEnd := binOff + int(h.Size)
	if off < binOff+HBINHeaderSize || off+CellHeaderSize > binEnd || binEnd > len(b) {
		return Cell{}, 0, fmt.Errorf("cell at %#x: outside hbin", off)
	}
	c, err := ParseCell(b[off:binEnd])
	if err != nil {
		return Cell{}, 0, fmt.Errorf("cell at %#x: %w", off, err)
	}
	c.Offset = off
	return c, off + c.Size, nil
}
