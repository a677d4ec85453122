package format

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/amcachekit/internal/buf"
)

// DecodeSubkeyList extracts NK offsets from leaf lists (li, lf, lh). lf/lh
// entries carry a name hint or hash after each offset which is skipped; callers
// compare names themselves.
func DecodeSubkeyList(b []byte) ([]uint32, error) {
	if len(b) < ListHeaderSize {
		return nil, fmt.Errorf("subkey list: %w", ErrTruncated)
	}
	sig := b[:SignatureSize]
	count := int(buf.U16LE(b[SignatureSize:]))
	stride := 0
	switch {
	case bytes.Equal(sig, LISignature):
		stride = OffsetFieldSize
	case bytes.Equal(sig, LFSignature), bytes.Equal(sig, LHSignature):
		stride = LFEntrySize
	default:
		return nil, fmt.Errorf("subkey list %q: %w", sig, ErrUnsupported)
	}
	if _, err := buf.CheckListBounds(len(b), ListHeaderSize, count, stride); err != nil {
		return nil, fmt.Errorf("subkey list: %w: %w", ErrTruncated, err)
	}
	out := make([]uint32, count)
	for i := 0; i < count; i++ {
		out[i] = buf.U32LE(b[ListHeaderSize+i*stride:])
	}
	return out, nil
}

// IsRIList reports whether b holds an ri (indirect) list.
func IsRIList(b []byte) bool {
	return len(b) >= SignatureSize && bytes.Equal(b[:SignatureSize], RISignature)
}

// DecodeRIList returns the offsets of the leaf lists referenced by an ri list.
func DecodeRIList(b []byte) ([]uint32, error) {
	if len(b) < ListHeaderSize {
		return nil, fmt.Errorf("ri list: %w", ErrTruncated)
	}
	if !IsRIList(b) {
		return nil, fmt.Errorf("ri list: %w", ErrSignatureMismatch)
	}
	count := int(buf.U16LE(b[SignatureSize:]))
	if _, err := buf.CheckListBounds(len(b), ListHeaderSize, count, OffsetFieldSize); err != nil {
		return nil, fmt.Errorf("ri list: %w: %w", ErrTruncated, err)
	}
	out := make([]uint32, count)
	for i := 0; i < count; i++ {
		out[i] = buf.U32LE(b[ListHeaderSize+i*OffsetFieldSize:])
	}
	return out, nil
}

// DecodeValueList decodes a value list containing offsets to VK records.
func DecodeValueList(b []byte, count uint32) ([]uint32, error) {
	if count == 0 {
		return nil, nil
	}
	if _, err := buf.CheckListBounds(len(b), 0, int(count), OffsetFieldSize); err != nil {
		return nil, fmt.Errorf("value list: %w: %w", ErrTruncated, err)
	}
	out := make([]uint32, count)
	for i := 0; i < int(count); i++ {
		out[i] = buf.U32LE(b[i*OffsetFieldSize:])
	}
	return out, nil
}
