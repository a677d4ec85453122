package regread

import (
	"errors"
	"strings"

	"github.com/joshuapare/amcachekit/pkg/types"
)

// GetKey resolves a backslash-separated path below the root key. Matching is
// case-insensitive, forward slashes are accepted, and a leading segment equal
// to the root key's own name is ignored, so `{root}\Root\File` and
// `Root\File` resolve to the same key. A missing key yields an error matching
// types.ErrNotFound.
func (h *Hive) GetKey(path string) (*Key, error) {
	root, err := h.Root()
	if err != nil {
		return nil, err
	}
	segments := normalizePath(path)
	if len(segments) > 0 && strings.EqualFold(segments[0], root.name) {
		segments = segments[1:]
	}
	cur := root
	for _, seg := range segments {
		next, err := cur.SubKey(seg)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// HasKey reports whether path resolves.
func (h *Hive) HasKey(path string) bool {
	_, err := h.GetKey(path)
	return err == nil
}

// Walk visits k and every live descendant depth-first, in list order.
func Walk(k *Key, fn func(*Key) error) error {
	if err := fn(k); err != nil {
		return err
	}
	subs, err := k.SubKeys()
	if err != nil {
		return err
	}
	for _, s := range subs {
		if err := Walk(s, fn); err != nil {
			return err
		}
	}
	return nil
}

func normalizePath(path string) []string {
	path = strings.TrimSpace(path)
	if path == "" || path == `\` || path == "/" {
		return nil
	}
	path = strings.ReplaceAll(path, "/", `\`)
	parts := strings.Split(path, `\`)
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// IsNotFound reports whether err means a key or value does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
