package regread

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/joshuapare/amcachekit/internal/format"
)

func decodeKeyName(nk format.NKRecord) (string, error) {
	if nk.NameIsCompressed() {
		return decodeLatin(nk.NameRaw)
	}
	if len(nk.NameRaw)%2 != 0 {
		return "", errors.New("nk name has odd length")
	}
	return decodeUTF16(nk.NameRaw), nil
}

func decodeValueName(vk format.VKRecord) (string, error) {
	if vk.NameIsASCII() {
		return decodeLatin(vk.NameRaw)
	}
	if len(vk.NameRaw)%2 != 0 {
		return "", errors.New("vk name has odd length")
	}
	return decodeUTF16(vk.NameRaw), nil
}

// decodeLatin decodes a compressed name. Compressed names are Windows-1252,
// which matches UTF-8 for the ASCII range.
func decodeLatin(b []byte) (string, error) {
	if isASCII(b) {
		return string(b), nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode Windows-1252 name: %w", err)
	}
	return string(out), nil
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}

// decodeUTF16 decodes little-endian UTF-16. A leading BOM overrides the
// byte order. Invalid sequences become U+FFFD.
func decodeUTF16(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if asciiUTF16(b) {
		var sb strings.Builder
		sb.Grow(len(b) / 2)
		for i := 0; i < len(b); i += 2 {
			sb.WriteByte(b[i])
		}
		return sb.String()
	}
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return string(out)
}

func asciiUTF16(b []byte) bool {
	if len(b)%2 != 0 {
		return false
	}
	for i := 0; i < len(b); i += 2 {
		if b[i+1] != 0 || b[i] >= 0x80 {
			return false
		}
	}
	return true
}

// decodeUTF16String decodes REG_SZ data: an odd trailing byte is dropped and
// the string ends at the first NUL.
func decodeUTF16String(b []byte) string {
	b = b[:len(b)&^1]
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			b = b[:i]
			break
		}
	}
	return decodeUTF16(b)
}

// decodeMultiString splits REG_MULTI_SZ data on NUL code units, stopping at
// the first empty string. A missing final terminator is tolerated.
func decodeMultiString(b []byte) []string {
	b = b[:len(b)&^1]
	var out []string
	start := 0
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] != 0 || b[i+1] != 0 {
			continue
		}
		if i == start {
			return out
		}
		out = append(out, decodeUTF16(b[start:i]))
		start = i + 2
	}
	if start < len(b) {
		out = append(out, decodeUTF16(b[start:]))
	}
	return out
}
