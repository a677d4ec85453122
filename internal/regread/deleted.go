package regread

import (
	"github.com/joshuapare/amcachekit/internal/format"
)

// scanDeleted looks for key nodes in free cells. A deleted key whose parent
// is live is attached to that parent; the rest are kept as orphans.
func (h *Hive) scanDeleted() {
	h.attached = make(map[uint32][]uint32)
	for _, b := range h.bins {
		bin := format.HBIN{FileOffset: uint32(b.offset - format.HeaderSize), Size: uint32(b.size)}
		off := b.offset + format.HBINHeaderSize
		for off < b.offset+b.size {
			c, next, err := format.NextCell(h.buf, b.offset, bin, off)
			if err != nil {
				break
			}
			off = next
			if !c.Free || !c.TagIs(format.NKSignature) {
				continue
			}
			nk, err := format.DecodeNK(c.Data)
			if err != nil || nk.Flags&format.NKFlagRootKey != 0 {
				continue
			}
			rel := uint32(c.Offset - format.HeaderSize)
			if parent, err := h.key(nk.ParentOffset, "", false); err == nil && parent != nil {
				h.attached[nk.ParentOffset] = append(h.attached[nk.ParentOffset], rel)
				continue
			}
			if k, err := h.key(rel, "", true); err == nil {
				h.orphans = append(h.orphans, k)
			}
		}
	}
}
