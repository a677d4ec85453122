package regread

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/joshuapare/amcachekit/internal/buf"
	"github.com/joshuapare/amcachekit/internal/format"
	"github.com/joshuapare/amcachekit/pkg/types"
)

// Value is one registry value with its data already assembled.
type Value struct {
	name string
	typ  types.RegType
	raw  []byte
}

// Name returns the value name; the default value has an empty name.
func (v *Value) Name() string { return v.name }

// Type returns the registry type.
func (v *Value) Type() types.RegType { return v.typ }

// Raw returns the value bytes. The slice may alias the hive buffer and must
// not be modified.
func (v *Value) Raw() []byte { return v.raw }

// Data renders the value as text:
//   - REG_SZ, REG_EXPAND_SZ and REG_LINK decode as UTF-16LE without the NUL;
//   - REG_MULTI_SZ joins its strings with a single space;
//   - REG_DWORD, REG_DWORD_BE and REG_QWORD render as unsigned decimal;
//   - everything else renders as dash-separated upper-case hex.
func (v *Value) Data() string {
	switch v.typ {
	case types.REG_SZ, types.REG_EXPAND_SZ, types.REG_LINK:
		return decodeUTF16String(v.raw)
	case types.REG_MULTI_SZ:
		return strings.Join(decodeMultiString(v.raw), " ")
	case types.REG_DWORD:
		if len(v.raw) >= 4 {
			return strconv.FormatUint(uint64(binary.LittleEndian.Uint32(v.raw)), 10)
		}
	case types.REG_DWORD_BE:
		if len(v.raw) >= 4 {
			return strconv.FormatUint(uint64(binary.BigEndian.Uint32(v.raw)), 10)
		}
	case types.REG_QWORD:
		if len(v.raw) >= 8 {
			return strconv.FormatUint(buf.U64LE(v.raw), 10)
		}
	}
	return hexDashed(v.raw)
}

func hexDashed(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(b) * 3)
	for i, c := range b {
		if i > 0 {
			sb.WriteByte('-')
		}
		fmt.Fprintf(&sb, "%02X", c)
	}
	return sb.String()
}

func (h *Hive) value(offset uint32, allowFree bool) (*Value, error) {
	c, err := h.cell(offset)
	if err != nil {
		return nil, err
	}
	if c.Free && !allowFree {
		return nil, fmt.Errorf("value %#x: %w", offset, format.ErrFreeCell)
	}
	vk, err := format.DecodeVK(c.Data)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	name, err := decodeValueName(vk)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	data, err := h.valueData(vk)
	if err != nil {
		return nil, fmt.Errorf("value %q: %w", name, err)
	}
	return &Value{name: name, typ: types.RegType(vk.Type), raw: data}, nil
}

func (h *Hive) valueData(vk format.VKRecord) ([]byte, error) {
	length := vk.Length()
	if vk.DataInline() {
		if length > format.OffsetFieldSize {
			return nil, &types.Error{Kind: types.ErrKindCorrupt, Msg: "inline length exceeds field", Err: types.ErrCorrupt}
		}
		var field [format.OffsetFieldSize]byte
		binary.LittleEndian.PutUint32(field[:], vk.DataOffset)
		out := make([]byte, length)
		copy(out, field[:length])
		return out, nil
	}
	if length == 0 {
		return nil, nil
	}
	dc, err := h.cell(vk.DataOffset)
	if err != nil {
		return nil, err
	}
	if format.IsDBRecord(dc.Data) && length > format.DBChunkSize {
		return h.valueDB(dc.Data, length)
	}
	if len(dc.Data) < length {
		return nil, &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("data cell holds %d bytes, value needs %d", len(dc.Data), length),
			Err:  types.ErrCorrupt,
		}
	}
	return dc.Data[:length], nil
}

// valueDB assembles a big-data value. Each block carries trailing padding that
// is not part of the value.
func (h *Hive) valueDB(dbData []byte, expected int) ([]byte, error) {
	db, err := format.DecodeDB(dbData)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	list, err := h.cell(db.BlocklistOffset)
	if err != nil {
		return nil, fmt.Errorf("db blocklist: %w", err)
	}
	if _, err := buf.CheckListBounds(len(list.Data), 0, int(db.NumBlocks), format.OffsetFieldSize); err != nil {
		return nil, &types.Error{Kind: types.ErrKindCorrupt, Msg: "db blocklist truncated", Err: types.ErrCorrupt}
	}

	out := make([]byte, 0, expected)
	for i := 0; i < int(db.NumBlocks); i++ {
		block, err := h.cell(buf.U32LE(list.Data[i*format.OffsetFieldSize:]))
		if err != nil {
			return nil, fmt.Errorf("db block %d: %w", i, err)
		}
		data := block.Data
		if len(data) > format.DBBlockPadding {
			data = data[:len(data)-format.DBBlockPadding]
		}
		if room := expected - len(out); len(data) > room {
			data = data[:room]
		}
		out = append(out, data...)
		if len(out) >= expected {
			break
		}
	}
	if len(out) != expected {
		return nil, &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("db data size mismatch: expected %d bytes, got %d", expected, len(out)),
			Err:  types.ErrCorrupt,
		}
	}
	return out, nil
}
