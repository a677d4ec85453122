package hivetest

import (
	"bytes"

	"github.com/joshuapare/amcachekit/internal/buf"
	"github.com/joshuapare/amcachekit/internal/format"
)

// SetValueDataOffset points the data of the first value named name at off.
// It reports whether such a value was found. Only values with ASCII names
// and out-of-line data are matched.
func SetValueDataOffset(img []byte, name string, off uint32) bool {
	i := findRecord(img, format.VKSignature, format.VKNameLenOffset, format.VKNameOffset, name)
	if i < 0 {
		return false
	}
	buf.PutU32LE(img, i+format.VKDataOffOffset, off)
	return true
}

// CorruptKey overwrites the signature of the first key named name so its
// cell no longer decodes. It reports whether such a key was found.
func CorruptKey(img []byte, name string) bool {
	i := findRecord(img, format.NKSignature, format.NKNameLenOffset, format.NKNameOffset, name)
	if i < 0 {
		return false
	}
	copy(img[i:], "xx")
	return true
}

func findRecord(img, sig []byte, lenField, nameField int, name string) int {
	want := []byte(name)
	for i := format.HeaderSize; i+nameField+len(want) <= len(img); i++ {
		if !bytes.Equal(img[i:i+len(sig)], sig) {
			continue
		}
		if int(buf.U16LE(img[i+lenField:])) != len(want) {
			continue
		}
		if bytes.Equal(img[i+nameField:i+nameField+len(want)], want) {
			return i
		}
	}
	return -1
}
