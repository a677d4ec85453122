package regread

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joshuapare/amcachekit/internal/format"
	"github.com/joshuapare/amcachekit/pkg/types"
)

// Key is one registry key. Keys are cheap handles; sub-keys and values are
// decoded on demand.
type Key struct {
	h       *Hive
	offset  uint32
	nk      format.NKRecord
	name    string
	path    string
	deleted bool
}

func (h *Hive) key(offset uint32, parentPath string, allowFree bool) (*Key, error) {
	c, err := h.cell(offset)
	if err != nil {
		return nil, err
	}
	if c.Free && !allowFree {
		return nil, fmt.Errorf("key %#x: %w", offset, format.ErrFreeCell)
	}
	nk, err := format.DecodeNK(c.Data)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	name, err := decodeKeyName(nk)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	path := name
	if parentPath != "" {
		path = parentPath + `\` + name
	}
	return &Key{h: h, offset: offset, nk: nk, name: name, path: path, deleted: c.Free}, nil
}

// Name returns the key name.
func (k *Key) Name() string { return k.name }

// Path returns the backslash-joined path from the root key.
func (k *Key) Path() string { return k.path }

// Offset returns the hive-relative cell offset of the key.
func (k *Key) Offset() uint32 { return k.offset }

// LastWriteTime returns the key's last-write timestamp in UTC.
func (k *Key) LastWriteTime() time.Time { return format.FiletimeToTime(k.nk.LastWriteRaw) }

// Deleted reports whether the key was recovered from a free cell.
func (k *Key) Deleted() bool { return k.deleted }

// SubKeyCount returns the count recorded in the key node.
func (k *Key) SubKeyCount() int { return int(k.nk.SubkeyCount) }

// SubKeys returns the child keys in list order. Entries pointing at free
// cells are skipped. With RecoverDeleted, deleted children follow the live
// ones.
//
// Children whose cells cannot be decoded are left out of the slice and
// reported together as a BrokenKeys error; the returned keys are still
// valid in that case.
func (k *Key) SubKeys() ([]*Key, error) {
	if err := k.h.ensureOpen(); err != nil {
		return nil, err
	}
	var (
		out    []*Key
		broken BrokenKeys
	)
	if !k.deleted && k.nk.SubkeyCount > 0 && k.nk.SubkeyListOffset != format.InvalidOffset {
		offs, err := k.h.subkeyList(k.nk.SubkeyListOffset, 0)
		if err != nil {
			return nil, fmt.Errorf("subkeys of %s: %w", k.path, err)
		}
		out = make([]*Key, 0, len(offs))
		for _, off := range offs {
			child, err := k.h.key(off, k.path, false)
			if errors.Is(err, format.ErrFreeCell) {
				continue
			}
			if err != nil {
				broken = append(broken, &BrokenKey{Parent: k.path, Offset: off, Err: err})
				continue
			}
			out = append(out, child)
		}
	}
	for _, off := range k.h.attached[k.offset] {
		child, err := k.h.key(off, k.path, true)
		if err != nil {
			// Recovered cells are best effort; a mangled one is not a record.
			continue
		}
		out = append(out, child)
	}
	if len(broken) > 0 {
		return out, broken
	}
	return out, nil
}

// BrokenKey is a child entry of a key list whose cell could not be decoded.
type BrokenKey struct {
	Parent string
	Offset uint32
	Err    error
}

// Path locates the broken child by its parent path and cell offset.
func (b *BrokenKey) Path() string {
	return fmt.Sprintf(`%s\<cell %#x>`, b.Parent, b.Offset)
}

func (b *BrokenKey) Error() string { return b.Path() + ": " + b.Err.Error() }

func (b *BrokenKey) Unwrap() error { return b.Err }

// BrokenKeys collects the children SubKeys could not decode.
type BrokenKeys []*BrokenKey

func (bs BrokenKeys) Error() string {
	if len(bs) == 1 {
		return bs[0].Error()
	}
	return fmt.Sprintf("%d undecodable subkeys, first: %v", len(bs), bs[0])
}

// Broken splits err from SubKeys. It returns the undecodable children and a
// nil error when only children failed, or err itself when the list could
// not be read at all.
func Broken(err error) (BrokenKeys, error) {
	var bs BrokenKeys
	if errors.As(err, &bs) {
		return bs, nil
	}
	return nil, err
}

// SubKey returns the direct child named name, compared case-insensitively.
func (k *Key) SubKey(name string) (*Key, error) {
	subs, err := k.SubKeys()
	if _, err := Broken(err); err != nil {
		return nil, err
	}
	for _, s := range subs {
		if strings.EqualFold(s.name, name) {
			return s, nil
		}
	}
	return nil, &types.Error{
		Kind: types.ErrKindNotFound,
		Msg:  fmt.Sprintf("subkey %q of %s not found", name, k.path),
		Err:  types.ErrNotFound,
	}
}

// Values returns the key's values in list order, skipping free cells. Any
// other value that cannot be decoded fails the whole call, so a record is
// never built from a partial set of values.
func (k *Key) Values() ([]*Value, error) {
	if err := k.h.ensureOpen(); err != nil {
		return nil, err
	}
	if k.nk.ValueCount == 0 || k.nk.ValueListOffset == format.InvalidOffset {
		return nil, nil
	}
	lc, err := k.h.cell(k.nk.ValueListOffset)
	if err != nil {
		return nil, fmt.Errorf("values of %s: %w", k.path, err)
	}
	if lc.Free && !k.deleted {
		return nil, nil
	}
	offs, err := format.DecodeValueList(lc.Data, k.nk.ValueCount)
	if err != nil {
		return nil, fmt.Errorf("values of %s: %w", k.path, wrapFormatErr(err))
	}
	out := make([]*Value, 0, len(offs))
	for _, off := range offs {
		v, err := k.h.value(off, k.deleted)
		if errors.Is(err, format.ErrFreeCell) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("values of %s: value cell %#x: %w", k.path, off, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Value returns the value named name, compared case-insensitively.
func (k *Key) Value(name string) (*Value, error) {
	vals, err := k.Values()
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		if strings.EqualFold(v.name, name) {
			return v, nil
		}
	}
	return nil, &types.Error{
		Kind: types.ErrKindNotFound,
		Msg:  fmt.Sprintf("value %q of %s not found", name, k.path),
		Err:  types.ErrNotFound,
	}
}

func (h *Hive) subkeyList(offset uint32, depth int) ([]uint32, error) {
	if depth > 2 {
		return nil, &types.Error{Kind: types.ErrKindCorrupt, Msg: "nested ri list", Err: types.ErrCorrupt}
	}
	c, err := h.cell(offset)
	if err != nil {
		return nil, err
	}
	if c.Free {
		return nil, nil
	}
	if format.IsRIList(c.Data) {
		subs, err := format.DecodeRIList(c.Data)
		if err != nil {
			return nil, wrapFormatErr(err)
		}
		var out []uint32
		for _, sub := range subs {
			list, err := h.subkeyList(sub, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, list...)
		}
		return out, nil
	}
	list, err := format.DecodeSubkeyList(c.Data)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	return list, nil
}
