// Package legacy decodes the Windows 7 / 8 Amcache schema: programs under
// Root\Programs keyed by short numeric value names, and files under
// Root\File\<volume>\<entry> keyed by hexadecimal value ids.
package legacy

import (
	"fmt"

	"github.com/joshuapare/amcachekit/internal/associate"
	"github.com/joshuapare/amcachekit/internal/diag"
	"github.com/joshuapare/amcachekit/internal/regread"
	"github.com/joshuapare/amcachekit/pkg/types"
)

// Key paths relative to the hive root.
const (
	ProgramsPath = `Root\Programs`
	FilePath     = `Root\File`
)

// Decode walks both legacy sub-trees and links files to programs. A missing
// sub-tree yields an empty collection and a MissingPrimarySubtree issue.
// Errors are returned only when a sub-tree that exists cannot be listed.
func Decode(h *regread.Hive, sink *diag.Sink) (*types.LegacyInventory, error) {
	programs, err := decodePrograms(h, sink)
	if err != nil {
		return nil, err
	}
	files, err := decodeFiles(h, sink)
	if err != nil {
		return nil, err
	}
	linked := associate.Build(programs, files)
	if programs == nil {
		programs = []*types.LegacyProgram{}
	}
	sink.Log().WithField("programs", len(programs)).
		WithField("files", linked.Total).
		WithField("unassociated", len(linked.Unassociated)).
		Info("decoded legacy inventory")
	return &types.LegacyInventory{
		Programs:          programs,
		UnassociatedFiles: linked.Unassociated,
		TotalFileRecords:  linked.Total,
	}, nil
}

func decodePrograms(h *regread.Hive, sink *diag.Sink) ([]*types.LegacyProgram, error) {
	root, err := h.GetKey(ProgramsPath)
	if regread.IsNotFound(err) {
		sink.MissingSubtree(ProgramsPath)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ProgramsPath, err)
	}
	subs, err := subKeys(root, sink)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", ProgramsPath, err)
	}
	seen := make(map[string]bool, len(subs))
	out := make([]*types.LegacyProgram, 0, len(subs))
	for _, k := range subs {
		p, err := decodeProgram(k, sink)
		if err != nil {
			sink.Malformed(k.Path(), err)
			continue
		}
		if seen[p.ProgramID] {
			sink.Malformed(k.Path(), fmt.Errorf("duplicate program id %q", p.ProgramID))
			continue
		}
		seen[p.ProgramID] = true
		out = append(out, p)
	}
	return out, nil
}

func decodeFiles(h *regread.Hive, sink *diag.Sink) ([]*types.LegacyFile, error) {
	root, err := h.GetKey(FilePath)
	if regread.IsNotFound(err) {
		sink.MissingSubtree(FilePath)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", FilePath, err)
	}
	volumes, err := subKeys(root, sink)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", FilePath, err)
	}
	var out []*types.LegacyFile
	for _, vol := range volumes {
		entries, err := subKeys(vol, sink)
		if err != nil {
			sink.Malformed(vol.Path(), err)
			continue
		}
		for _, k := range entries {
			f, err := decodeFile(vol, k, sink)
			if err != nil {
				sink.Malformed(k.Path(), err)
				continue
			}
			if f == nil {
				continue
			}
			out = append(out, f)
		}
	}
	return out, nil
}

// subKeys lists k's children and reports the undecodable ones as malformed
// records. The error is non-nil only when the list itself is unreadable.
func subKeys(k *regread.Key, sink *diag.Sink) ([]*regread.Key, error) {
	subs, err := k.SubKeys()
	broken, err := regread.Broken(err)
	if err != nil {
		return nil, err
	}
	for _, b := range broken {
		sink.Malformed(b.Path(), b.Err)
	}
	return subs, nil
}
