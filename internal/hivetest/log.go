package hivetest

import (
	"bytes"
	"encoding/binary"

	"github.com/joshuapare/amcachekit/internal/buf"
	"github.com/joshuapare/amcachekit/internal/format"
)

// Page is a run of hive bins bytes. Offset is relative to the first hive bin
// and Data must be a whole number of 512-byte sectors.
type Page = format.DirtyPage

// Diff returns the 512-byte sectors of next's hive bins area that differ from
// prev's. Sectors beyond the end of prev count as changed.
func Diff(prev, next []byte) []Page {
	var out []Page
	for off := format.HeaderSize; off+format.LogSectorSize <= len(next); off += format.LogSectorSize {
		cur := next[off : off+format.LogSectorSize]
		if off+format.LogSectorSize <= len(prev) && bytes.Equal(prev[off:off+format.LogSectorSize], cur) {
			continue
		}
		page := append([]byte(nil), cur...)
		out = append(out, Page{Offset: uint32(off - format.HeaderSize), Data: page})
	}
	return out
}

// SetSequences rewrites an image's sequence numbers and checksum in place.
func SetSequences(img []byte, primary, secondary uint32) []byte {
	_ = format.SetSequences(img, primary, secondary)
	return img
}

// LogEntry encodes one HvLE entry with valid hashes.
func LogEntry(seq, dataSize uint32, pages ...Page) []byte {
	size := format.HvLERefsOffset + format.HvLERefSize*len(pages)
	size = buf.AlignUp(size, format.LogSectorSize)
	for _, p := range pages {
		size += len(p.Data)
	}
	e := make([]byte, size)
	copy(e, format.HvLESignature)
	binary.LittleEndian.PutUint32(e[format.HvLESizeOffset:], uint32(size))
	binary.LittleEndian.PutUint32(e[format.HvLESequenceOffset:], seq)
	binary.LittleEndian.PutUint32(e[format.HvLEDataSizeOffset:], dataSize)
	binary.LittleEndian.PutUint32(e[format.HvLEDirtyCountOffset:], uint32(len(pages)))
	dataOff := format.HvLERefsOffset + format.HvLERefSize*len(pages)
	for i, p := range pages {
		ref := e[format.HvLERefsOffset+i*format.HvLERefSize:]
		binary.LittleEndian.PutUint32(ref, p.Offset)
		binary.LittleEndian.PutUint32(ref[4:], uint32(len(p.Data)))
		copy(e[dataOff:], p.Data)
		dataOff += len(p.Data)
	}
	SealLogEntry(e)
	return e
}

// SealLogEntry recomputes both hashes of an encoded entry.
func SealLogEntry(e []byte) {
	binary.LittleEndian.PutUint64(e[format.HvLEHash1Offset:], format.Marvin32(e[format.HvLERefsOffset:], format.LogEntrySeed))
	binary.LittleEndian.PutUint64(e[format.HvLEHash2Offset:], format.Marvin32(e[:format.HvLEHash2Covered], format.LogEntrySeed))
}

// NewLog builds a new-format log: a 512-byte base block followed by entries.
func NewLog(seq uint32, entries ...[]byte) []byte {
	out := logBaseBlock(seq, seq, format.FileTypeLogNew, 0)
	for _, e := range entries {
		out = append(out, e...)
	}
	return out
}

// OldLog builds a DIRT-format log covering dataSize bytes of hive bins.
func OldLog(seq, dataSize uint32, pages ...Page) []byte {
	out := logBaseBlock(seq, seq, format.FileTypeLog, dataSize)
	sectors := int(dataSize) / format.LogSectorSize
	bitmap := make([]byte, (sectors+7)/8)
	bySector := make(map[int][]byte)
	for _, p := range pages {
		for i := 0; i < len(p.Data); i += format.LogSectorSize {
			s := (int(p.Offset) + i) / format.LogSectorSize
			bitmap[s/8] |= 1 << (s % 8)
			bySector[s] = p.Data[i : i+format.LogSectorSize]
		}
	}
	out = append(out, format.DIRTSignature...)
	out = append(out, bitmap...)
	out = append(out, make([]byte, buf.AlignUp(len(out), format.LogSectorSize)-len(out))...)
	for s := 0; s < sectors; s++ {
		if data, ok := bySector[s]; ok {
			out = append(out, data...)
		}
	}
	return out
}

func logBaseBlock(primary, secondary, fileType, dataSize uint32) []byte {
	b := make([]byte, format.BaseBlockSectorSize)
	copy(b, format.REGFSignature)
	buf.PutU32LE(b, format.REGFPrimarySeqOffset, primary)
	buf.PutU32LE(b, format.REGFSecondarySeqOffset, secondary)
	buf.PutU32LE(b, format.REGFMajorVersionOffset, 1)
	buf.PutU32LE(b, format.REGFMinorVersionOffset, 5)
	buf.PutU32LE(b, format.REGFTypeOffset, fileType)
	buf.PutU32LE(b, format.REGFFormatOffset, 1)
	buf.PutU32LE(b, format.REGFDataSizeOffset, dataSize)
	buf.PutU32LE(b, format.REGFCheckSumOffset, format.HeaderChecksum(b))
	return b
}
