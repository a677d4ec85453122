package format

import (
	"math/bits"

	"github.com/joshuapare/amcachekit/internal/buf"
)

// LogEntrySeed is the Marvin32 seed Windows uses for HvLE entry hashes.
const LogEntrySeed uint64 = 0x82EF4D887A4E55C5

// Marvin32 computes the 64-bit Marvin hash of data with the given seed.
func Marvin32(data []byte, seed uint64) uint64 {
	p0 := uint32(seed)
	p1 := uint32(seed >> 32)

	for len(data) >= 4 {
		p0 += buf.U32LE(data)
		p0, p1 = marvinBlock(p0, p1)
		data = data[4:]
	}

	switch len(data) {
	case 0:
		p0 += 0x80
	case 1:
		p0 += 0x8000 | uint32(data[0])
	case 2:
		p0 += 0x800000 | uint32(buf.U16LE(data))
	case 3:
		p0 += 0x80000000 | uint32(buf.U16LE(data)) | uint32(data[2])<<16
	}

	p0, p1 = marvinBlock(p0, p1)
	p0, p1 = marvinBlock(p0, p1)
	return uint64(p1)<<32 | uint64(p0)
}

func marvinBlock(p0, p1 uint32) (uint32, uint32) {
	p1 ^= p0
	p0 = bits.RotateLeft32(p0, 20)
	p0 += p1
	p1 = bits.RotateLeft32(p1, 9)
	p1 ^= p0
	p0 = bits.RotateLeft32(p0, 27)
	p0 += p1
	p1 = bits.RotateLeft32(p1, 19)
	return p0, p1
}
