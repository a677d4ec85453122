package amcache

import (
	"fmt"

	"github.com/joshuapare/amcachekit/internal/diag"
	"github.com/joshuapare/amcachekit/internal/legacy"
	"github.com/joshuapare/amcachekit/internal/modern"
	"github.com/joshuapare/amcachekit/internal/recovery"
	"github.com/joshuapare/amcachekit/pkg/types"
)

// Reconstruct parses the Amcache hive at path. Transaction logs beside it
// are found and replayed when the hive is dirty.
//
// Example:
//
//	res, err := amcache.Reconstruct("Amcache.hve", &amcache.Options{Logger: log})
//	if err != nil {
//	    return err
//	}
//	for _, p := range res.Modern.Programs {
//	    fmt.Println(p.Name, len(p.FileEntries))
//	}
func Reconstruct(path string, opts *Options) (*Result, error) {
	o := opts.orDefault()
	sink := diag.New(o.Logger)
	s, err := recovery.Open(path, o.recovery(), sink)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer s.Close()
	return decode(s, sink)
}

// ReconstructBytes parses an in-memory hive image. logs are replayed if the
// image is dirty; name only labels diagnostics.
func ReconstructBytes(name string, image []byte, logs []Log, opts *Options) (*Result, error) {
	o := opts.orDefault()
	sink := diag.New(o.Logger)
	s, err := recovery.OpenBytes(name, image, logs, o.recovery(), sink)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer s.Close()
	return decode(s, sink)
}

func decode(s *recovery.Session, sink *diag.Sink) (*Result, error) {
	res := &types.Result{
		Generation: s.Generation,
		Hive:       s.Info,
		Report:     sink.Report(),
	}
	var err error
	switch s.Generation {
	case types.GenerationLegacy:
		res.Legacy, err = legacy.Decode(s.Hive(), sink)
	case types.GenerationModern:
		res.Modern, err = modern.Decode(s.Hive(), sink)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s inventory: %w", s.Generation, err)
	}
	return res, nil
}
