// Package mftref recovers an approximate NTFS file reference from the name of
// a legacy Amcache file sub-key.
//
// The name is up to eight hex digits. After left-padding to eight, the last
// four digits are the MFT entry number. The first four, with trailing zeros
// trimmed, are the sequence number. The trim makes a sequence that really ends
// in zero indistinguishable from a shorter one; the split is kept as Windows
// forensic tools have always reported it.
package mftref

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Width is the padded name length in hex digits.
const Width = 8

// ErrInvalidName is returned for names that are empty, too long or not hex.
var ErrInvalidName = errors.New("mftref: invalid file key name")

// Ref is a decoded file reference.
type Ref struct {
	Entry    uint32
	Sequence uint32
}

// Decode splits name into entry and sequence numbers. Decode is pure: names
// that differ only in leading zeros decode identically.
func Decode(name string) (Ref, error) {
	if name == "" || len(name) > Width {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	padded := strings.Repeat("0", Width-len(name)) + name

	seq := strings.TrimRight(padded[:4], "0")
	if seq == "" {
		seq = "0"
	}
	s, err := strconv.ParseUint(seq, 16, 32)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	e, err := strconv.ParseUint(padded[4:], 16, 32)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return Ref{Entry: uint32(e), Sequence: uint32(s)}, nil
}

func (r Ref) String() string {
	return fmt.Sprintf("%d-%d", r.Entry, r.Sequence)
}
