package types

import "fmt"

// Generation tags which Amcache schema a result was decoded from.
type Generation int

const (
	// GenerationNone: neither schema's keys were present.
	GenerationNone Generation = iota
	// GenerationLegacy: Root\Programs and Root\File (Windows 7 / 8).
	GenerationLegacy
	// GenerationModern: Root\InventoryApplication* (Windows 8.1+ / 10 / 11).
	GenerationModern
)

func (g Generation) String() string {
	switch g {
	case GenerationNone:
		return "none"
	case GenerationLegacy:
		return "legacy"
	case GenerationModern:
		return "modern"
	default:
		return fmt.Sprintf("Generation(%d)", int(g))
	}
}

// MarshalText renders the generation by name in JSON output.
func (g Generation) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (g *Generation) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none":
		*g = GenerationNone
	case "legacy":
		*g = GenerationLegacy
	case "modern":
		*g = GenerationModern
	default:
		return fmt.Errorf("unknown generation %q", text)
	}
	return nil
}

// LegacyInventory is the decoded content of a legacy hive.
type LegacyInventory struct {
	Programs          []*LegacyProgram
	UnassociatedFiles []*LegacyFile
	TotalFileRecords  uint64
}

// ModernInventory is the decoded content of a modern hive.
type ModernInventory struct {
	Programs          []*ModernProgram
	UnassociatedFiles []*ModernFile
	TotalFileRecords  uint64

	Shortcuts        []Shortcut
	DeviceContainers []DeviceContainer
	DevicePnps       []DevicePnp
	DriverBinaries   []DriverBinary
	DriverPackages   []DriverPackage
}

// Result is the outcome of one reconstruction. Exactly one of Legacy and
// Modern is set, matching Generation; both are nil for GenerationNone.
type Result struct {
	Generation Generation
	Hive       HiveInfo
	Legacy     *LegacyInventory
	Modern     *ModernInventory
	Report     *Report
}

// TotalFileRecords returns the decoded file record count of either generation.
func (r *Result) TotalFileRecords() uint64 {
	switch {
	case r.Legacy != nil:
		return r.Legacy.TotalFileRecords
	case r.Modern != nil:
		return r.Modern.TotalFileRecords
	default:
		return 0
	}
}

// ProgramCount returns the number of program records of either generation.
func (r *Result) ProgramCount() int {
	switch {
	case r.Legacy != nil:
		return len(r.Legacy.Programs)
	case r.Modern != nil:
		return len(r.Modern.Programs)
	default:
		return 0
	}
}

// UnassociatedCount returns the number of file records linked to no program.
func (r *Result) UnassociatedCount() int {
	switch {
	case r.Legacy != nil:
		return len(r.Legacy.UnassociatedFiles)
	case r.Modern != nil:
		return len(r.Modern.UnassociatedFiles)
	default:
		return 0
	}
}
