// Package hivetest synthesizes registry hive images and transaction logs for
// tests. Images are built in memory from a key tree; no fixture files are
// needed.
package hivetest

import (
	"encoding/binary"
	"time"
	"unicode/utf16"

	"github.com/joshuapare/amcachekit/internal/buf"
	"github.com/joshuapare/amcachekit/internal/format"
)

// ListKind selects the subkey list layout written for keys with children.
type ListKind int

const (
	ListLF ListKind = iota
	ListLH
	ListLI
	// ListRI writes an ri index over lf lists of at most two entries.
	ListRI
)

// DefaultTime is the last-write time given to keys that do not set one.
var DefaultTime = time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)

// Value is one value to write.
type Value struct {
	Name string
	Type uint32
	Data []byte
}

// Key is one key to write.
type Key struct {
	Name      string
	LastWrite time.Time
	Values    []Value
	Children  []*Key

	// Tombstoned keys are listed by their parent but stored in a free cell.
	Tombstoned bool
	// Deleted keys are stored in a free cell and not listed by their parent;
	// only their parent offset links them back.
	Deleted bool
}

// NewKey returns an empty key.
func NewKey(name string) *Key { return &Key{Name: name} }

// Add appends and returns a new child key.
func (k *Key) Add(name string) *Key {
	c := NewKey(name)
	k.Children = append(k.Children, c)
	return c
}

// At sets the key's last-write time.
func (k *Key) At(t time.Time) *Key {
	k.LastWrite = t
	return k
}

// Set appends a raw value.
func (k *Key) Set(name string, typ uint32, data []byte) *Key {
	k.Values = append(k.Values, Value{Name: name, Type: typ, Data: data})
	return k
}

// SZ appends a NUL-terminated REG_SZ value.
func (k *Key) SZ(name, s string) *Key {
	return k.Set(name, format.REGSZ, UTF16(s, true))
}

// MultiSZ appends a REG_MULTI_SZ value.
func (k *Key) MultiSZ(name string, ss ...string) *Key {
	var out []byte
	for _, s := range ss {
		out = append(out, UTF16(s, true)...)
	}
	out = append(out, 0, 0)
	return k.Set(name, format.REGMultiSZ, out)
}

// DWORD appends a REG_DWORD value.
func (k *Key) DWORD(name string, v uint32) *Key {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return k.Set(name, format.REGDWORD, b)
}

// QWORD appends a REG_QWORD value.
func (k *Key) QWORD(name string, v uint64) *Key {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return k.Set(name, format.REGQWORD, b)
}

// Binary appends a REG_BINARY value.
func (k *Key) Binary(name string, b []byte) *Key {
	return k.Set(name, format.REGBinary, b)
}

// UTF16 encodes s as UTF-16LE, optionally with a NUL terminator.
func UTF16(s string, nul bool) []byte {
	units := utf16.Encode([]rune(s))
	if nul {
		units = append(units, 0)
	}
	out := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[i*2:], u)
	}
	return out
}

// Options controls the base block and list layout.
type Options struct {
	List ListKind
	// PrimarySequence and SecondarySequence default to 1.
	PrimarySequence   uint32
	SecondarySequence uint32
	LastWrite         time.Time
	// MinDataSize pads the hive bins area to at least this many bytes.
	MinDataSize int
}

type builder struct {
	data []byte // hive bins area, starting with the hbin header
	opts Options
}

// Build writes root and its descendants into a complete hive image.
func Build(root *Key, opts Options) []byte {
	if opts.PrimarySequence == 0 {
		opts.PrimarySequence = 1
	}
	if opts.SecondarySequence == 0 {
		opts.SecondarySequence = opts.PrimarySequence
	}
	if opts.LastWrite.IsZero() {
		opts.LastWrite = DefaultTime
	}
	b := &builder{data: make([]byte, format.HBINHeaderSize), opts: opts}
	rootOff := b.writeKey(root, format.InvalidOffset, true)

	size := buf.AlignUp(len(b.data), format.HBINAlignment)
	if opts.MinDataSize > size {
		size = buf.AlignUp(opts.MinDataSize, format.HBINAlignment)
	}
	if pad := size - len(b.data); pad > 0 {
		free := make([]byte, pad)
		binary.LittleEndian.PutUint32(free, uint32(pad))
		b.data = append(b.data, free...)
	}
	copy(b.data, format.HBINSignature)
	buf.PutU32LE(b.data, format.HBINFileOffsetField, 0)
	buf.PutU32LE(b.data, format.HBINSizeOffset, uint32(size))

	img := make([]byte, format.HeaderSize+size)
	writeBaseBlock(img, rootOff, uint32(size), opts)
	copy(img[format.HeaderSize:], b.data)
	return img
}

func writeBaseBlock(img []byte, rootOff, dataSize uint32, opts Options) {
	copy(img, format.REGFSignature)
	buf.PutU32LE(img, format.REGFPrimarySeqOffset, opts.PrimarySequence)
	buf.PutU32LE(img, format.REGFSecondarySeqOffset, opts.SecondarySequence)
	buf.PutU64LE(img, format.REGFTimeStampOffset, format.TimeToFiletime(opts.LastWrite))
	buf.PutU32LE(img, format.REGFMajorVersionOffset, 1)
	buf.PutU32LE(img, format.REGFMinorVersionOffset, 5)
	buf.PutU32LE(img, format.REGFTypeOffset, format.FileTypePrimary)
	buf.PutU32LE(img, format.REGFFormatOffset, 1)
	buf.PutU32LE(img, format.REGFRootCellOffset, rootOff)
	buf.PutU32LE(img, format.REGFDataSizeOffset, dataSize)
	buf.PutU32LE(img, format.REGFClusterOffset, 1)
	copy(img[format.REGFFileNameOffset:], UTF16(`\??\C:\Windows\AppCompat\Programs\Amcache.hve`, false)[:format.REGFFileNameSize])
	buf.PutU32LE(img, format.REGFCheckSumOffset, format.HeaderChecksum(img))
}

// alloc appends a cell holding payload and returns its hive-relative offset.
func (b *builder) alloc(payload []byte, free bool) uint32 {
	off := len(b.data)
	size := buf.AlignUp(format.CellHeaderSize+len(payload), format.CellAlignment)
	cell := make([]byte, size)
	raw := int32(size)
	if !free {
		raw = -raw
	}
	binary.LittleEndian.PutUint32(cell, uint32(raw))
	copy(cell[format.CellHeaderSize:], payload)
	b.data = append(b.data, cell...)
	return uint32(off)
}

func (b *builder) patch(cellOff uint32, field int, v uint32) {
	buf.PutU32LE(b.data, int(cellOff)+format.CellHeaderSize+field, v)
}

func encodeName(name string) ([]byte, bool) {
	for _, r := range name {
		if r >= 0x80 {
			return UTF16(name, false), false
		}
	}
	return []byte(name), true
}

func (b *builder) writeKey(k *Key, parent uint32, root bool) uint32 {
	name, compressed := encodeName(k.Name)
	nk := make([]byte, format.NKFixedHeaderSize+len(name))
	copy(nk, format.NKSignature)
	var flags uint16
	if compressed {
		flags |= format.NKFlagCompressedName
	}
	if root {
		flags |= format.NKFlagRootKey
	}
	lw := k.LastWrite
	if lw.IsZero() {
		lw = DefaultTime
	}
	binary.LittleEndian.PutUint16(nk[format.NKFlagsOffset:], flags)
	binary.LittleEndian.PutUint64(nk[format.NKLastWriteOffset:], format.TimeToFiletime(lw))
	binary.LittleEndian.PutUint32(nk[format.NKParentOffset:], parent)
	binary.LittleEndian.PutUint32(nk[format.NKSubkeyListOffset:], format.InvalidOffset)
	binary.LittleEndian.PutUint32(nk[format.NKVolSubkeyListOffset:], format.InvalidOffset)
	binary.LittleEndian.PutUint32(nk[format.NKValueListOffset:], format.InvalidOffset)
	binary.LittleEndian.PutUint32(nk[format.NKSecurityOffset:], format.InvalidOffset)
	binary.LittleEndian.PutUint32(nk[format.NKClassNameOffset:], format.InvalidOffset)
	binary.LittleEndian.PutUint16(nk[format.NKNameLenOffset:], uint16(len(name)))
	copy(nk[format.NKNameOffset:], name)
	off := b.alloc(nk, k.Tombstoned || k.Deleted)

	if len(k.Values) > 0 {
		list := make([]byte, 4*len(k.Values))
		for i, v := range k.Values {
			binary.LittleEndian.PutUint32(list[i*4:], b.writeValue(v))
		}
		b.patch(off, format.NKValueCountOffset, uint32(len(k.Values)))
		b.patch(off, format.NKValueListOffset, b.alloc(list, false))
	}

	var listed []uint32
	var names []string
	for _, c := range k.Children {
		childOff := b.writeKey(c, off, false)
		if c.Deleted {
			continue
		}
		listed = append(listed, childOff)
		names = append(names, c.Name)
	}
	if len(listed) > 0 {
		b.patch(off, format.NKSubkeyCountOffset, uint32(len(listed)))
		b.patch(off, format.NKSubkeyListOffset, b.writeList(listed, names))
	}
	return off
}

func (b *builder) writeList(offs []uint32, names []string) uint32 {
	switch b.opts.List {
	case ListLI:
		return b.alloc(leafList(format.LISignature, offs, names), false)
	case ListLH:
		return b.alloc(leafList(format.LHSignature, offs, names), false)
	case ListRI:
		var subs []uint32
		for i := 0; i < len(offs); i += 2 {
			end := min(i+2, len(offs))
			subs = append(subs, b.alloc(leafList(format.LFSignature, offs[i:end], names[i:end]), false))
		}
		ri := make([]byte, format.ListHeaderSize+4*len(subs))
		copy(ri, format.RISignature)
		binary.LittleEndian.PutUint16(ri[format.SignatureSize:], uint16(len(subs)))
		for i, s := range subs {
			binary.LittleEndian.PutUint32(ri[format.ListHeaderSize+i*4:], s)
		}
		return b.alloc(ri, false)
	default:
		return b.alloc(leafList(format.LFSignature, offs, names), false)
	}
}

func leafList(sig []byte, offs []uint32, names []string) []byte {
	stride := format.LFEntrySize
	if sig[0] == 'l' && sig[1] == 'i' {
		stride = format.OffsetFieldSize
	}
	out := make([]byte, format.ListHeaderSize+stride*len(offs))
	copy(out, sig)
	binary.LittleEndian.PutUint16(out[format.SignatureSize:], uint16(len(offs)))
	for i, o := range offs {
		e := out[format.ListHeaderSize+i*stride:]
		binary.LittleEndian.PutUint32(e, o)
		if stride == format.LFEntrySize {
			binary.LittleEndian.PutUint32(e[4:], nameHint(names[i], sig[1] == 'h'))
		}
	}
	return out
}

func nameHint(name string, hash bool) uint32 {
	if hash {
		var h uint32
		for _, r := range name {
			if r >= 'a' && r <= 'z' {
				r -= 'a' - 'A'
			}
			h = h*37 + uint32(r)
		}
		return h
	}
	var hint [4]byte
	copy(hint[:], name)
	return binary.LittleEndian.Uint32(hint[:])
}

func (b *builder) writeValue(v Value) uint32 {
	name, compressed := encodeName(v.Name)
	vk := make([]byte, format.VKMinSize+len(name))
	copy(vk, format.VKSignature)
	binary.LittleEndian.PutUint16(vk[format.VKNameLenOffset:], uint16(len(name)))
	binary.LittleEndian.PutUint32(vk[format.VKTypeOffset:], v.Type)
	if compressed {
		binary.LittleEndian.PutUint16(vk[format.VKFlagsOffset:], format.VKFlagASCIIName)
	}
	copy(vk[format.VKNameOffset:], name)

	n := len(v.Data)
	switch {
	case n <= format.OffsetFieldSize:
		binary.LittleEndian.PutUint32(vk[format.VKDataLenOffset:], uint32(n)|format.VKDataInlineBit)
		copy(vk[format.VKDataOffOffset:format.VKDataOffOffset+4], v.Data)
	case n > format.DBChunkSize:
		binary.LittleEndian.PutUint32(vk[format.VKDataLenOffset:], uint32(n))
		binary.LittleEndian.PutUint32(vk[format.VKDataOffOffset:], b.writeDB(v.Data))
	default:
		binary.LittleEndian.PutUint32(vk[format.VKDataLenOffset:], uint32(n))
		binary.LittleEndian.PutUint32(vk[format.VKDataOffOffset:], b.alloc(v.Data, false))
	}
	return b.alloc(vk, false)
}

// writeDB splits data into big-data blocks. Each block cell carries the
// trailing padding Windows leaves after the chunk.
func (b *builder) writeDB(data []byte) uint32 {
	var blocks []uint32
	for i := 0; i < len(data); i += format.DBChunkSize {
		end := min(i+format.DBChunkSize, len(data))
		chunk := make([]byte, end-i+format.DBBlockPadding)
		copy(chunk, data[i:end])
		blocks = append(blocks, b.alloc(chunk, false))
	}
	list := make([]byte, 4*len(blocks))
	for i, o := range blocks {
		binary.LittleEndian.PutUint32(list[i*4:], o)
	}
	listOff := b.alloc(list, false)
	db := make([]byte, format.DBMinSize)
	copy(db, format.DBSignature)
	binary.LittleEndian.PutUint16(db[format.DBCountOffset:], uint16(len(blocks)))
	binary.LittleEndian.PutUint32(db[format.DBListOffset:], listOff)
	return b.alloc(db, false)
}
