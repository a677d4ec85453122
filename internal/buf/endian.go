// Package buf holds the bounds-aware little-endian helpers shared by the
// hive, log and test-image code.
package buf

import "encoding/binary"

// U16LE reads a little-endian uint16 from b. Returns 0 when b is too short.
func U16LE(b []byte) uint16 {
	if len(b) < 2 {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// U32LE reads a little-endian uint32 from b. Returns 0 when b is too short.
func U32LE(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// U64LE reads a little-endian uint64 from b. Returns 0 when b is too short.
func U64LE(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// I32LE reads a little-endian int32 from b. Returns 0 when b is too short.
func I32LE(b []byte) int32 {
	if len(b) < 4 {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

// PutU16LE writes v at b[off:]. It reports false when the write would not fit.
func PutU16LE(b []byte, off int, v uint16) bool {
	if !Has(b, off, 2) {
		return false
	}
	binary.LittleEndian.PutUint16(b[off:], v)
	return true
}

// PutU32LE writes v at b[off:]. It reports false when the write would not fit.
func PutU32LE(b []byte, off int, v uint32) bool {
	if !Has(b, off, 4) {
		return false
	}
	binary.LittleEndian.PutUint32(b[off:], v)
	return true
}

// PutU64LE writes v at b[off:]. It reports false when the write would not fit.
func PutU64LE(b []byte, off int, v uint64) bool {
	if !Has(b, off, 8) {
		return false
	}
	binary.LittleEndian.PutUint64(b[off:], v)
	return true
}

// AlignUp rounds n up to the next multiple of align (a power of two).
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
