// Package hashfilter narrows file records by SHA-1 against an include or an
// exclude list. When both lists are given the include list is used.
package hashfilter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Mode says how a Filter treats its hashes.
type Mode int

const (
	// ModeNone keeps every record.
	ModeNone Mode = iota
	// ModeExclude drops records whose hash is listed.
	ModeExclude
	// ModeInclude keeps only records whose hash is listed.
	ModeInclude
)

func (m Mode) String() string {
	switch m {
	case ModeExclude:
		return "exclude"
	case ModeInclude:
		return "include"
	default:
		return "none"
	}
}

// Filter is an immutable hash list. The zero value and nil keep everything.
type Filter struct {
	mode   Mode
	hashes map[string]struct{}
}

// New builds a filter from in-memory lists.
func New(include, exclude []string) *Filter {
	switch {
	case len(include) > 0:
		return &Filter{mode: ModeInclude, hashes: toSet(include)}
	case len(exclude) > 0:
		return &Filter{mode: ModeExclude, hashes: toSet(exclude)}
	default:
		return &Filter{}
	}
}

// Load reads one hash per line from includePath, or from excludePath when
// includePath is empty. Empty paths on both sides yield a pass-through filter.
func Load(includePath, excludePath string) (*Filter, error) {
	path, mode := includePath, ModeInclude
	if path == "" {
		path, mode = excludePath, ModeExclude
	}
	if path == "" {
		return &Filter{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s list: %w", mode, err)
	}
	defer f.Close()

	hashes, err := readHashes(f)
	if err != nil {
		return nil, fmt.Errorf("read %s list %s: %w", mode, path, err)
	}
	return &Filter{mode: mode, hashes: toSet(hashes)}, nil
}

func readHashes(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out, sc.Err()
}

func toSet(hashes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			set[h] = struct{}{}
		}
	}
	return set
}

// Mode returns how the filter applies its list.
func (f *Filter) Mode() Mode {
	if f == nil {
		return ModeNone
	}
	return f.mode
}

// Len returns the number of distinct hashes loaded.
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.hashes)
}

// Active reports whether the filter can drop anything.
func (f *Filter) Active() bool { return f.Mode() != ModeNone }

// Keep reports whether a record with the given SHA-1 passes.
func (f *Filter) Keep(sha1 string) bool {
	if !f.Active() {
		return true
	}
	_, listed := f.hashes[strings.ToLower(sha1)]
	return listed == (f.mode == ModeInclude)
}

// Apply returns the records that pass, in order.
func Apply[T any](f *Filter, records []T, sha1 func(T) string) []T {
	if !f.Active() {
		return records
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		if f.Keep(sha1(r)) {
			out = append(out, r)
		}
	}
	return out
}
