// Package fieldconv holds the value-data conversions shared by the legacy and
// modern decoders. Integer conversions return errors; the caller decides
// whether a failure makes the record malformed.
package fieldconv

import (
	"fmt"
	"strconv"
	"strings"
)

// Int32 parses a signed decimal that must fit 32 bits.
func Int32(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("integer %q: %w", s, err)
	}
	return n, nil
}

// Int64 parses a signed decimal.
func Int64(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("integer %q: %w", s, err)
	}
	return n, nil
}

// Uint64 parses an unsigned decimal.
func Uint64(s string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("integer %q: %w", s, err)
	}
	return n, nil
}

// Size parses a size written either as plain decimal or with a 0x prefix.
func Size(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if rest, ok := cutHexPrefix(s); ok {
		n, err := strconv.ParseInt(rest, 16, 64)
		if err != nil {
			return 0, fmt.Errorf("hex size %q: %w", s, err)
		}
		return n, nil
	}
	return Int64(s)
}

func cutHexPrefix(s string) (string, bool) {
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:], true
	}
	return s, false
}

// Bool is true only for the literal "1".
func Bool(s string) bool { return s == "1" }

// Int32Ptr is Int32 returning a pointer, for optional fields.
func Int32Ptr(s string) (*int64, error) {
	n, err := Int32(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Int64Ptr is Int64 returning a pointer, for optional fields.
func Int64Ptr(s string) (*int64, error) {
	n, err := Int64(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// SHA1 strips the four-character prefix Windows stores before the hex digest
// and lower-cases the rest. Values of four characters or fewer are empty.
func SHA1(raw string) string {
	if len(raw) <= 4 {
		return ""
	}
	return strings.ToLower(raw[4:])
}

// Extension returns the extension of a Windows path including the dot. It is
// empty when the last element has no dot or ends with one.
func Extension(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		switch path[i] {
		case '\\', '/', ':':
			return ""
		case '.':
			if i == len(path)-1 {
				return ""
			}
			return path[i:]
		}
	}
	return ""
}
