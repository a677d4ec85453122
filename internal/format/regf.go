package format

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/amcachekit/internal/buf"
)

// Header captures the REGF base block fields used for traversal and recovery.
// Primary hives and both log formats share the first sector of this layout.
//
//	Offset  Size  Description
//	------  ----  ----------------------------------------------------------
//	 0x000   4    'r' 'e' 'g' 'f'
//	 0x004   4    Primary sequence number
//	 0x008   4    Secondary sequence number
//	 0x00C   8    Last write timestamp (FILETIME)
//	 0x014   4    Major version
//	 0x018   4    Minor version
//	 0x01C   4    File type (0 = primary, 1/2 = old log, 6 = new log)
//	 0x020   4    File format (1 = direct memory load)
//	 0x024   4    Root cell offset (relative to first HBIN)
//	 0x028   4    Hive bins data size
//	 0x02C   4    Clustering factor
//	 0x090   4    Flags
//	 0x1FC   4    Checksum (XOR of the preceding 127 dwords)
type Header struct {
	PrimarySequence   uint32
	SecondarySequence uint32
	LastWriteRaw      uint64
	MajorVersion      uint32
	MinorVersion      uint32
	Type              uint32
	Format            uint32
	RootCellOffset    uint32
	HiveBinsDataSize  uint32
	ClusteringFactor  uint32
	Flags             uint32
	Checksum          uint32
	// ChecksumOK is set when Checksum matches the computed value.
	ChecksumOK bool
}

// IsDirty reports whether the last write to the hive did not complete.
func (h Header) IsDirty() bool {
	return h.PrimarySequence != h.SecondarySequence
}

// ParseHeader validates and extracts the base block. Only the first sector is
// required so the same call serves transaction log base blocks.
//
// The signature is checked before the length, so short input that is not a
// hive reports ErrSignatureMismatch rather than ErrTruncated.
func ParseHeader(b []byte) (Header, error) {
	n := min(len(b), len(REGFSignature))
	if !bytes.Equal(b[:n], REGFSignature[:n]) {
		return Header{}, fmt.Errorf("regf header: %w", ErrSignatureMismatch)
	}
	if len(b) < BaseBlockSectorSize {
		return Header{}, fmt.Errorf("regf header: %w", ErrTruncated)
	}
	sum := buf.U32LE(b[REGFCheckSumOffset:])
	return Header{
		PrimarySequence:   buf.U32LE(b[REGFPrimarySeqOffset:]),
		SecondarySequence: buf.U32LE(b[REGFSecondarySeqOffset:]),
		LastWriteRaw:      buf.U64LE(b[REGFTimeStampOffset:]),
		MajorVersion:      buf.U32LE(b[REGFMajorVersionOffset:]),
		MinorVersion:      buf.U32LE(b[REGFMinorVersionOffset:]),
		Type:              buf.U32LE(b[REGFTypeOffset:]),
		Format:            buf.U32LE(b[REGFFormatOffset:]),
		RootCellOffset:    buf.U32LE(b[REGFRootCellOffset:]),
		HiveBinsDataSize:  buf.U32LE(b[REGFDataSizeOffset:]),
		ClusteringFactor:  buf.U32LE(b[REGFClusterOffset:]),
		Flags:             buf.U32LE(b[REGFFlagsOffset:]),
		Checksum:          sum,
		ChecksumOK:        sum == HeaderChecksum(b),
	}, nil
}

// HeaderChecksum computes the base block checksum over the first 508 bytes.
// The values 0 and 0xFFFFFFFF are reserved and remapped as Windows does.
func HeaderChecksum(b []byte) uint32 {
	if len(b) < REGFCheckSumOffset {
		return 0
	}
	var sum uint32
	for i := 0; i < REGFChecksumDwords; i++ {
		sum ^= buf.U32LE(b[i*4:])
	}
	switch sum {
	case 0:
		return 1
	case 0xFFFFFFFF:
		return 0xFFFFFFFE
	default:
		return sum
	}
}

// SetSequences writes both sequence numbers and refreshes the checksum.
func SetSequences(b []byte, primary, secondary uint32) error {
	if len(b) < BaseBlockSectorSize {
		return fmt.Errorf("regf header: %w", ErrTruncated)
	}
	buf.PutU32LE(b, REGFPrimarySeqOffset, primary)
	buf.PutU32LE(b, REGFSecondarySeqOffset, secondary)
	buf.PutU32LE(b, REGFCheckSumOffset, HeaderChecksum(b))
	return nil
}

// SetHiveBinsDataSize writes the data size field and refreshes the checksum.
func SetHiveBinsDataSize(b []byte, size uint32) error {
	if len(b) < BaseBlockSectorSize {
		return fmt.Errorf("regf header: %w", ErrTruncated)
	}
	buf.PutU32LE(b, REGFDataSizeOffset, size)
	buf.PutU32LE(b, REGFCheckSumOffset, HeaderChecksum(b))
	return nil
}
