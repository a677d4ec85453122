package format

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/amcachekit/internal/buf"
)

// LogFormat identifies the layout of a transaction log file.
type LogFormat int

const (
	// LogFormatUnknown is returned for logs that carry no recognizable payload.
	LogFormatUnknown LogFormat = iota
	// LogFormatOld is the DIRT bitmap layout used before Windows 8.1.
	LogFormatOld
	// LogFormatNew is the HvLE entry layout used since Windows 8.1.
	LogFormatNew
)

func (f LogFormat) String() string {
	switch f {
	case LogFormatOld:
		return "old"
	case LogFormatNew:
		return "new"
	default:
		return "unknown"
	}
}

// DirtyPage is a run of hive bin bytes recorded by a log. Offset is relative to
// the first hive bin.
type DirtyPage struct {
	Offset uint32
	Data   []byte
}

// LogEntry is one HvLE record of a new-format log.
//
//	Offset  Size  Field
//	0x00    4     'H' 'v' 'L' 'E'
//	0x04    4     Entry size (multiple of 512)
//	0x08    4     Flags
//	0x0C    4     Sequence number
//	0x10    4     Hive bins data size
//	0x14    4     Dirty page count
//	0x18    8     Hash-1: Marvin32 of bytes 0x28..size
//	0x20    8     Hash-2: Marvin32 of bytes 0x00..0x20
//	0x28    8*n   Dirty page references {offset, size}
//	...           Page data, in reference order
type LogEntry struct {
	FileOffset       int
	Size             uint32
	Flags            uint32
	Sequence         uint32
	HiveBinsDataSize uint32
	Hash1            uint64
	Hash2            uint64
	Pages            []DirtyPage
	// HashOK is set when both hashes verify.
	HashOK bool
}

// LogFile is a decoded transaction log of either format.
type LogFile struct {
	Header Header
	Format LogFormat
	// Entries holds new-format entries in file order.
	Entries []LogEntry
	// Pages holds the dirty pages of an old-format log.
	Pages []DirtyPage
}

// ParseLog decodes a transaction log. The base block must carry a valid
// signature; the payload format is chosen by the marker at offset 0x200.
func ParseLog(b []byte) (LogFile, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return LogFile{}, fmt.Errorf("log base block: %w", err)
	}
	lf := LogFile{Header: h}
	marker, ok := buf.Slice(b, BaseBlockSectorSize, 4)
	switch {
	case !ok:
		return lf, nil
	case bytes.Equal(marker, HvLESignature):
		lf.Format = LogFormatNew
		lf.Entries = ParseLogEntries(b)
		return lf, nil
	case bytes.Equal(marker, DIRTSignature):
		lf.Format = LogFormatOld
		if h.IsDirty() {
			return lf, fmt.Errorf("log base block sequences %d/%d: %w",
				h.PrimarySequence, h.SecondarySequence, ErrChecksum)
		}
		pages, err := ParseDirtyVector(b, h.HiveBinsDataSize)
		if err != nil {
			return lf, err
		}
		lf.Pages = pages
		return lf, nil
	default:
		return lf, nil
	}
}

// ParseLogEntries walks HvLE entries starting at 0x200 until the data no
// longer holds a structurally valid entry. Entries whose hashes fail are
// still returned with HashOK unset so the caller decides how to react.
func ParseLogEntries(b []byte) []LogEntry {
	var out []LogEntry
	off := BaseBlockSectorSize
	for {
		e, ok := parseLogEntry(b, off)
		if !ok {
			return out
		}
		out = append(out, e)
		off += int(e.Size)
	}
}

func parseLogEntry(b []byte, off int) (LogEntry, bool) {
	head, ok := buf.Slice(b, off, HvLEMinSize)
	if !ok || !bytes.Equal(head[:4], HvLESignature) {
		return LogEntry{}, false
	}
	size := buf.U32LE(head[HvLESizeOffset:])
	if size < HvLEMinSize || size%LogSectorSize != 0 {
		return LogEntry{}, false
	}
	raw, ok := buf.Slice(b, off, int(size))
	if !ok {
		return LogEntry{}, false
	}
	e := LogEntry{
		FileOffset:       off,
		Size:             size,
		Flags:            buf.U32LE(raw[HvLEFlagsOffset:]),
		Sequence:         buf.U32LE(raw[HvLESequenceOffset:]),
		HiveBinsDataSize: buf.U32LE(raw[HvLEDataSizeOffset:]),
		Hash1:            buf.U64LE(raw[HvLEHash1Offset:]),
		Hash2:            buf.U64LE(raw[HvLEHash2Offset:]),
	}
	if e.HiveBinsDataSize%HBINAlignment != 0 {
		return LogEntry{}, false
	}
	count := int(buf.U32LE(raw[HvLEDirtyCountOffset:]))
	dataOff, err := buf.CheckListBounds(len(raw), HvLERefsOffset, count, HvLERefSize)
	if err != nil {
		return LogEntry{}, false
	}
	e.HashOK = Marvin32(raw[HvLERefsOffset:], LogEntrySeed) == e.Hash1 &&
		Marvin32(raw[:HvLEHash2Covered], LogEntrySeed) == e.Hash2

	e.Pages = make([]DirtyPage, 0, count)
	for i := 0; i < count; i++ {
		ref := raw[HvLERefsOffset+i*HvLERefSize:]
		pageOff := buf.U32LE(ref)
		pageSize := int(buf.U32LE(ref[4:]))
		data, ok := buf.Slice(raw, dataOff, pageSize)
		if !ok || pageSize%LogSectorSize != 0 {
			return LogEntry{}, false
		}
		e.Pages = append(e.Pages, DirtyPage{Offset: pageOff, Data: data})
		dataOff += pageSize
	}
	return e, true
}

// ParseDirtyVector decodes an old-format log: a DIRT marker at 0x200, one bit
// per 512-byte page of the hive bins data, then the dirty pages themselves
// starting at the next sector boundary.
func ParseDirtyVector(b []byte, dataSize uint32) ([]DirtyPage, error) {
	pageCount := int(dataSize) / LogSectorSize
	bitmapLen := (pageCount + 7) / 8
	bitmap, ok := buf.Slice(b, BaseBlockSectorSize+len(DIRTSignature), bitmapLen)
	if !ok {
		return nil, fmt.Errorf("dirty vector: %w", ErrTruncated)
	}
	pagesAt := buf.AlignUp(BaseBlockSectorSize+len(DIRTSignature)+bitmapLen, LogSectorSize)

	var out []DirtyPage
	next := pagesAt
	for i := 0; i < pageCount; i++ {
		if bitmap[i/8]&(1<<(i%8)) == 0 {
			continue
		}
		data, ok := buf.Slice(b, next, LogSectorSize)
		if !ok {
			return nil, fmt.Errorf("dirty page %d: %w", i, ErrTruncated)
		}
		out = append(out, DirtyPage{Offset: uint32(i * LogSectorSize), Data: data})
		next += LogSectorSize
	}
	return out, nil
}
