// Package format decodes the on-disk structures of Windows registry hives and
// their transaction logs: the REGF base block, hive bins, cells, key and value
// records, subkey lists, big-data records, and the two log formats (HvLE
// entries and DIRT bitmaps). The decoders work on byte slices and never
// allocate more than the result they return.
package format

var (
	// REGFSignature opens every hive and every transaction log base block.
	REGFSignature = []byte{'r', 'e', 'g', 'f'}
	// HBINSignature opens every hive bin.
	HBINSignature = []byte{'h', 'b', 'i', 'n'}

	NKSignature = []byte{'n', 'k'}
	VKSignature = []byte{'v', 'k'}
	LFSignature = []byte{'l', 'f'}
	LHSignature = []byte{'l', 'h'}
	LISignature = []byte{'l', 'i'}
	RISignature = []byte{'r', 'i'}
	DBSignature = []byte{'d', 'b'}

	// HvLESignature opens each entry of a new-format (Windows 8.1+) log.
	HvLESignature = []byte{'H', 'v', 'L', 'E'}
	// DIRTSignature opens the dirty vector of an old-format log.
	DIRTSignature = []byte{'D', 'I', 'R', 'T'}
)

const (
	// HeaderSize is the size of the base block in a primary hive file.
	HeaderSize = 0x1000
	// BaseBlockSectorSize is the part of the base block that carries data and
	// the only part backed up into transaction logs.
	BaseBlockSectorSize = 0x200

	// HiveDataBase is the file offset of the first hive bin. Cell offsets are
	// relative to it.
	HiveDataBase = 0x1000

	HBINHeaderSize = 0x20
	HBINAlignment  = 0x1000

	CellHeaderSize = 4
	CellAlignment  = 8

	SignatureSize   = 2
	ListHeaderSize  = 4
	OffsetFieldSize = 4
	LFEntrySize     = 8

	// InvalidOffset marks an unused cell reference.
	InvalidOffset = 0xFFFFFFFF

	// LogSectorSize is the page granularity of both log formats.
	LogSectorSize = 0x200
)

// Base block field offsets.
const (
	REGFPrimarySeqOffset   = 0x004
	REGFSecondarySeqOffset = 0x008
	REGFTimeStampOffset    = 0x00C
	REGFMajorVersionOffset = 0x014
	REGFMinorVersionOffset = 0x018
	REGFTypeOffset         = 0x01C
	REGFFormatOffset       = 0x020
	REGFRootCellOffset     = 0x024
	REGFDataSizeOffset     = 0x028
	REGFClusterOffset      = 0x02C
	REGFFileNameOffset     = 0x030
	REGFFileNameSize       = 64
	REGFFlagsOffset        = 0x090
	REGFCheckSumOffset     = 0x1FC

	// REGFChecksumDwords is the number of dwords XORed into the checksum.
	REGFChecksumDwords = 127
)

// File types stored at REGFTypeOffset.
const (
	FileTypePrimary = 0
	FileTypeLog     = 1
	FileTypeLogAlt  = 2
	FileTypeLogNew  = 6
)

// HBIN header offsets.
const (
	HBINFileOffsetField = 0x04
	HBINSizeOffset      = 0x08
)

// NK record offsets (payload starts at the signature).
const (
	NKFlagsOffset          = 0x02
	NKLastWriteOffset      = 0x04
	NKAccessBitsOffset     = 0x0C
	NKParentOffset         = 0x10
	NKSubkeyCountOffset    = 0x14
	NKVolSubkeyCountOffset = 0x18
	NKSubkeyListOffset     = 0x1C
	NKVolSubkeyListOffset  = 0x20
	NKValueCountOffset     = 0x24
	NKValueListOffset      = 0x28
	NKSecurityOffset       = 0x2C
	NKClassNameOffset      = 0x30
	NKNameLenOffset        = 0x48
	NKClassLenOffset       = 0x4A
	NKNameOffset           = 0x4C

	NKFixedHeaderSize = NKNameOffset

	NKFlagCompressedName = 0x20
	NKFlagRootKey        = 0x04
)

// VK record offsets.
const (
	VKNameLenOffset = 0x02
	VKDataLenOffset = 0x04
	VKDataOffOffset = 0x08
	VKTypeOffset    = 0x0C
	VKFlagsOffset   = 0x10
	VKNameOffset    = 0x14

	VKMinSize = VKNameOffset

	VKFlagASCIIName  = 0x0001
	VKDataInlineBit  = 0x80000000
	VKDataLengthMask = 0x7FFFFFFF
)

// DB record offsets.
const (
	DBCountOffset    = 0x02
	DBListOffset     = 0x04
	DBUnknown1Offset = 0x08
	DBMinSize        = 0x0C

	// DBChunkSize is the payload carried by each big-data block.
	DBChunkSize = 16344
	// DBBlockPadding trails every big-data block and is not value data.
	DBBlockPadding = 4
)

// HvLE entry offsets.
const (
	HvLESizeOffset       = 0x04
	HvLEFlagsOffset      = 0x08
	HvLESequenceOffset   = 0x0C
	HvLEDataSizeOffset   = 0x10
	HvLEDirtyCountOffset = 0x14
	HvLEHash1Offset      = 0x18
	HvLEHash2Offset      = 0x20
	HvLERefsOffset       = 0x28
	HvLERefSize          = 8

	// HvLEHash2Covered is the prefix of an entry covered by the second hash.
	HvLEHash2Covered = 0x20
	HvLEMinSize      = HvLERefsOffset
)

// Registry value types.
const (
	REGNone     uint32 = 0
	REGSZ       uint32 = 1
	REGExpandSZ uint32 = 2
	REGBinary   uint32 = 3
	REGDWORD    uint32 = 4
	REGDWORDBE  uint32 = 5
	REGLink     uint32 = 6
	REGMultiSZ  uint32 = 7
	REGQWORD    uint32 = 11
)
