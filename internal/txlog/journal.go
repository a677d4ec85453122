package txlog

import (
	"fmt"
	"strings"
)

// Applied records one log entry (or one old-format log) written into the image.
type Applied struct {
	Log      string
	Sequence uint32
	Pages    int
	Bytes    int
}

// Journal is the ordered record of everything Replay wrote.
type Journal struct {
	entries []Applied
}

func (j *Journal) add(a Applied) {
	j.entries = append(j.entries, a)
}

// Entries returns a copy of the applied entries in replay order.
func (j *Journal) Entries() []Applied {
	out := make([]Applied, len(j.entries))
	copy(out, j.entries)
	return out
}

// Len returns the number of applied entries.
func (j *Journal) Len() int { return len(j.entries) }

// PageCount returns the number of dirty pages written across all entries.
func (j *Journal) PageCount() int {
	n := 0
	for _, e := range j.entries {
		n += e.Pages
	}
	return n
}

// Summary renders the journal for logs and the CLI.
func (j *Journal) Summary() string {
	if len(j.entries) == 0 {
		return "replay: nothing applied"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "replay: %d entries, %d pages\n", len(j.entries), j.PageCount())
	for i, e := range j.entries {
		fmt.Fprintf(&sb, "  [%d] %s seq=%d pages=%d bytes=%d\n", i+1, e.Log, e.Sequence, e.Pages, e.Bytes)
	}
	return sb.String()
}
