package types

import "fmt"

// IssueKind classifies a recoverable problem met during a parse.
type IssueKind int

const (
	// IssueMalformedRecord: a sub-key failed to decode and was skipped.
	IssueMalformedRecord IssueKind = iota
	// IssueUnknownFieldName: a value name outside the known schema was ignored.
	IssueUnknownFieldName
	// IssueMissingPrimarySubtree: the keys that carry the inventory are absent.
	IssueMissingPrimarySubtree
	// IssueIncompleteHive: a dirty hive was parsed without replaying logs.
	IssueIncompleteHive
	// IssueLogReplay: a transaction log entry was rejected during replay.
	IssueLogReplay
)

func (k IssueKind) String() string {
	switch k {
	case IssueMalformedRecord:
		return "MalformedRecord"
	case IssueUnknownFieldName:
		return "UnknownFieldName"
	case IssueMissingPrimarySubtree:
		return "MissingPrimarySubtree"
	case IssueIncompleteHive:
		return "IncompleteHive"
	case IssueLogReplay:
		return "LogReplay"
	default:
		return fmt.Sprintf("IssueKind(%d)", int(k))
	}
}

// MarshalText renders the kind by name in JSON output.
func (k IssueKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (k *IssueKind) UnmarshalText(text []byte) error {
	for c := IssueMalformedRecord; c <= IssueLogReplay; c++ {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown issue kind %q", text)
}

// Issue is one recoverable problem. Path is the registry key path involved,
// Field the value name when one applies.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	Path    string    `json:"path,omitempty"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
}

func (i Issue) String() string {
	switch {
	case i.Path != "" && i.Field != "":
		return fmt.Sprintf("%s: %s [%s]: %s", i.Kind, i.Path, i.Field, i.Message)
	case i.Path != "":
		return fmt.Sprintf("%s: %s: %s", i.Kind, i.Path, i.Message)
	default:
		return fmt.Sprintf("%s: %s", i.Kind, i.Message)
	}
}

// Report collects the issues of one parse in the order they were met.
type Report struct {
	Issues []Issue          `json:"issues"`
	counts map[IssueKind]int
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{counts: make(map[IssueKind]int)}
}

// Add appends an issue.
func (r *Report) Add(i Issue) {
	if r.counts == nil {
		r.counts = make(map[IssueKind]int)
	}
	r.Issues = append(r.Issues, i)
	r.counts[i.Kind]++
}

// Count returns how many issues of kind were recorded.
func (r *Report) Count(kind IssueKind) int {
	if r == nil {
		return 0
	}
	return r.counts[kind]
}

// Len returns the total number of issues.
func (r *Report) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Issues)
}

// Summary maps each issue kind name to its count, for JSON summaries.
func (r *Report) Summary() map[string]int {
	out := make(map[string]int)
	if r == nil {
		return out
	}
	for k, n := range r.counts {
		out[k.String()] = n
	}
	return out
}
