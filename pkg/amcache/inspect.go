package amcache

import (
	"fmt"

	"github.com/joshuapare/amcachekit/internal/diag"
	"github.com/joshuapare/amcachekit/internal/recovery"
	"github.com/joshuapare/amcachekit/pkg/types"
)

// Inspection describes a hive without decoding its records.
type Inspection struct {
	Hive       types.HiveInfo   `json:"hive"`
	Generation types.Generation `json:"generation"`
	// DeletedKeys counts keys found in free cells. It is only filled in
	// when Options.RecoverDeleted is set.
	DeletedKeys int `json:"deleted_keys"`
	// Replay summarises the transaction log entries applied, if any.
	Replay string        `json:"replay,omitempty"`
	Report *types.Report `json:"report"`
}

// Inspect opens the hive at path, recovers it like Reconstruct does and
// reports what it found. A dirty hive without logs is reported rather than
// refused.
func Inspect(path string, opts *Options) (*Inspection, error) {
	o := opts.orDefault()
	o.AllowDirtyWithoutLogs = true
	sink := diag.New(o.Logger)
	s, err := recovery.Open(path, o.recovery(), sink)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer s.Close()

	in := &Inspection{
		Hive:       s.Info,
		Generation: s.Generation,
		Report:     sink.Report(),
	}
	if o.RecoverDeleted {
		in.DeletedKeys = s.Hive().DeletedCount()
	}
	if s.Journal.Len() > 0 {
		in.Replay = s.Journal.Summary()
	}
	return in, nil
}
