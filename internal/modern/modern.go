// Package modern decodes the Amcache schema used since Windows 8.1: named
// values under Root\InventoryApplication* and Root\InventoryDevice* /
// Root\InventoryDriver*. Each of the seven sub-trees is optional.
package modern

import (
	"fmt"
	"time"

	"github.com/joshuapare/amcachekit/internal/associate"
	"github.com/joshuapare/amcachekit/internal/diag"
	"github.com/joshuapare/amcachekit/internal/regread"
	"github.com/joshuapare/amcachekit/internal/timestamp"
	"github.com/joshuapare/amcachekit/pkg/types"
)

// Sub-tree paths relative to the hive root.
const (
	ApplicationPath     = `Root\InventoryApplication`
	ApplicationFilePath = `Root\InventoryApplicationFile`
	ShortcutPath        = `Root\InventoryApplicationShortcut`
	DeviceContainerPath = `Root\InventoryDeviceContainer`
	DevicePnpPath       = `Root\InventoryDevicePnp`
	DriverBinaryPath    = `Root\InventoryDriverBinary`
	DriverPackagePath   = `Root\InventoryDriverPackage`
)

// Paths lists every sub-tree the decoder reads, primary ones first.
var Paths = []string{
	ApplicationPath, ApplicationFilePath, ShortcutPath,
	DeviceContainerPath, DevicePnpPath, DriverBinaryPath, DriverPackagePath,
}

// Decode walks every modern sub-tree and links files to programs.
func Decode(h *regread.Hive, sink *diag.Sink) (*types.ModernInventory, error) {
	inv := &types.ModernInventory{}

	programs, err := walk(h, sink, ApplicationPath, true, decodeProgram)
	if err != nil {
		return nil, err
	}
	inv.Programs = uniquePrograms(programs, sink)

	files, err := walk(h, sink, ApplicationFilePath, true, decodeFile)
	if err != nil {
		return nil, err
	}
	linked := associate.Build(inv.Programs, files)
	inv.UnassociatedFiles = linked.Unassociated
	inv.TotalFileRecords = linked.Total

	if inv.Shortcuts, err = walk(h, sink, ShortcutPath, false, decodeShortcut); err != nil {
		return nil, err
	}
	if inv.DeviceContainers, err = walk(h, sink, DeviceContainerPath, false, decodeDeviceContainer); err != nil {
		return nil, err
	}
	if inv.DevicePnps, err = walk(h, sink, DevicePnpPath, false, decodeDevicePnp); err != nil {
		return nil, err
	}
	if inv.DriverBinaries, err = walk(h, sink, DriverBinaryPath, false, decodeDriverBinary); err != nil {
		return nil, err
	}
	if inv.DriverPackages, err = walk(h, sink, DriverPackagePath, false, decodeDriverPackage); err != nil {
		return nil, err
	}

	sink.Log().WithField("programs", len(inv.Programs)).
		WithField("files", inv.TotalFileRecords).
		WithField("unassociated", len(inv.UnassociatedFiles)).
		WithField("shortcuts", len(inv.Shortcuts)).
		WithField("device_containers", len(inv.DeviceContainers)).
		WithField("device_pnps", len(inv.DevicePnps)).
		WithField("driver_binaries", len(inv.DriverBinaries)).
		WithField("driver_packages", len(inv.DriverPackages)).
		Info("decoded modern inventory")
	return inv, nil
}

type decodeFunc[T any] func(k *regread.Key, sink *diag.Sink) (T, error)

// walk decodes every sub-key of path. A missing path yields an empty slice
// and, for primary sub-trees, a MissingPrimarySubtree issue. Failing
// sub-keys are reported and skipped.
func walk[T any](h *regread.Hive, sink *diag.Sink, path string, primary bool, fn decodeFunc[T]) ([]T, error) {
	out := make([]T, 0)
	root, err := h.GetKey(path)
	if regread.IsNotFound(err) {
		if primary {
			sink.MissingSubtree(path)
		} else {
			sink.Log().WithField("path", path).Debug("optional inventory key not present")
		}
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	subs, err := root.SubKeys()
	broken, err := regread.Broken(err)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	for _, b := range broken {
		sink.Malformed(b.Path(), b.Err)
	}
	for _, k := range subs {
		rec, err := fn(k, sink)
		if err != nil {
			sink.Malformed(k.Path(), err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func uniquePrograms(in []*types.ModernProgram, sink *diag.Sink) []*types.ModernProgram {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, p := range in {
		if seen[p.ProgramID] {
			sink.Malformed(ApplicationPath+`\`+p.KeyName, fmt.Errorf("duplicate program id %q", p.ProgramID))
			continue
		}
		seen[p.ProgramID] = true
		out = append(out, p)
	}
	return out
}

// date converts an invariant date string. Empty strings are absent without
// comment; unparseable ones are absent with a debug line.
func date(k *regread.Key, v *regread.Value, sink *diag.Sink) *time.Time {
	data := v.Data()
	if data == "" {
		return nil
	}
	t, ok := timestamp.FromInvariant(data)
	if !ok {
		sink.Conversion(k.Path(), v.Name(), data)
	}
	return timestamp.Ptr(t, ok)
}

func lastWrite(k *regread.Key) time.Time {
	return timestamp.Normalize(k.LastWriteTime())
}
