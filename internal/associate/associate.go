// Package associate links decoded file records to the program records that
// installed them.
package associate

import "github.com/joshuapare/amcachekit/pkg/types"

// Program is a record files can be attached to.
type Program[F any] interface {
	ID() string
	DisplayName() string
	Attach(F)
}

// File is a record that names its owning program.
type File interface {
	OwnerID() string
	SetApplicationName(string)
}

// Result is the outcome of one association pass.
type Result[F any] struct {
	Unassociated []F
	// Total counts every file passed in, associated or not.
	Total uint64
}

// Build attaches each file to the program whose ID matches its OwnerID
// exactly, in encounter order, and sets the file's application name to the
// program's display name. Files with no match, including an empty OwnerID,
// are returned as unassociated and named types.UnassociatedName. When two
// programs share an ID the first wins.
func Build[P Program[F], F File](programs []P, files []F) Result[F] {
	index := make(map[string]P, len(programs))
	for _, p := range programs {
		if _, dup := index[p.ID()]; !dup {
			index[p.ID()] = p
		}
	}
	res := Result[F]{Unassociated: make([]F, 0)}
	for _, f := range files {
		res.Total++
		id := f.OwnerID()
		if p, ok := index[id]; ok && id != "" {
			f.SetApplicationName(p.DisplayName())
			p.Attach(f)
			continue
		}
		f.SetApplicationName(types.UnassociatedName)
		res.Unassociated = append(res.Unassociated, f)
	}
	return res
}
