package recovery

import (
	"github.com/joshuapare/amcachekit/internal/legacy"
	"github.com/joshuapare/amcachekit/internal/modern"
	"github.com/joshuapare/amcachekit/internal/regread"
	"github.com/joshuapare/amcachekit/pkg/types"
)

// Detect picks the decoder for h. Root\InventoryApplication selects the
// modern schema even when empty. Otherwise Root\Programs or Root\File
// selects the legacy one, and any other Inventory sub-tree falls back to
// modern.
func Detect(h *regread.Hive) types.Generation {
	switch {
	case h.HasKey(modern.ApplicationPath):
		return types.GenerationModern
	case h.HasKey(legacy.ProgramsPath), h.HasKey(legacy.FilePath):
		return types.GenerationLegacy
	}
	for _, p := range modern.Paths {
		if h.HasKey(p) {
			return types.GenerationModern
		}
	}
	return types.GenerationNone
}
