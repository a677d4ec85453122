package buf

import "testing"

func TestEndianHelpers(t *testing.T) {
	data := []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}

	if got := U16LE(data); got != 0x2301 {
		t.Fatalf("U16LE = 0x%x, want 0x2301", got)
	}
	if got := U32LE(data); got != 0x67452301 {
		t.Fatalf("U32LE = 0x%x, want 0x67452301", got)
	}
	if got := U64LE(data); got != 0xefcdab8967452301 {
		t.Fatalf("U64LE = 0x%x, want 0xefcdab8967452301", got)
	}
	if got := I32LE([]byte{0xfc, 0xff, 0xff, 0xff}); got != -4 {
		t.Fatalf("I32LE = %d, want -4", got)
	}

	short := []byte{0xAA}
	if U16LE(short) != 0 || U32LE(short) != 0 || U64LE(short) != 0 || I32LE(short) != 0 {
		t.Fatalf("short reads should return 0")
	}
}

func TestPutHelpers(t *testing.T) {
	b := make([]byte, 8)
	if !PutU32LE(b, 4, 0xdeadbeef) {
		t.Fatalf("PutU32LE should fit")
	}
	if got := U32LE(b[4:]); got != 0xdeadbeef {
		t.Fatalf("round trip = 0x%x", got)
	}
	if PutU64LE(b, 1, 1) {
		t.Fatalf("PutU64LE at 1 must not fit in 8 bytes")
	}
	if PutU16LE(b, -1, 1) {
		t.Fatalf("negative offset must be rejected")
	}
}

func TestAlignUp(t *testing.T) {
	cases := map[int]int{0: 0, 1: 512, 512: 512, 513: 1024}
	for in, want := range cases {
		if got := AlignUp(in, 512); got != want {
			t.Fatalf("AlignUp(%d) = %d, want %d", in, got, want)
		}
	}
}
