package store

import (
	"github.com/fatih/structs"
	"github.com/pkg/errors"

	"github.com/joshuapare/amcachekit/pkg/types"
)

// Element types written by Export.
const (
	TypeProgram         = "amcache_program"
	TypeFile            = "amcache_file"
	TypeShortcut        = "amcache_shortcut"
	TypeDeviceContainer = "amcache_device_container"
	TypeDevicePnp       = "amcache_device_pnp"
	TypeDriverBinary    = "amcache_driver_binary"
	TypeDriverPackage   = "amcache_driver_package"
)

// Export inserts one element per record of res inside a single transaction
// and returns the number of elements written per type.
func (s *Store) Export(res *types.Result) (counts map[string]int, err error) {
	if res == nil {
		return nil, errors.New("nil result")
	}
	if err := s.Begin(); err != nil {
		return nil, errors.Wrap(err, "begin export")
	}
	defer func() {
		if err != nil {
			s.Rollback()
		}
	}()

	e := &exporter{s: s, generation: res.Generation.String(), counts: map[string]int{}}
	switch {
	case res.Legacy != nil:
		e.legacy(res.Legacy)
	case res.Modern != nil:
		e.modern(res.Modern)
	}
	if e.err != nil {
		return nil, e.err
	}
	if err := s.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit export")
	}
	return e.counts, nil
}

type exporter struct {
	s          *Store
	generation string
	counts     map[string]int
	err        error
}

func (e *exporter) add(typ string, v interface{}) {
	if e.err != nil {
		return
	}
	m, ok := lower(structs.Map(v)).(map[string]interface{})
	if !ok {
		e.err = errors.Errorf("%s did not convert to a map", typ)
		return
	}
	m["generation"] = e.generation
	m[discriminator] = typ
	if _, err := e.s.insertMap(m); err != nil {
		e.err = errors.Wrapf(err, "insert %s", typ)
		return
	}
	e.counts[typ]++
}

func (e *exporter) legacy(inv *types.LegacyInventory) {
	for _, p := range inv.Programs {
		e.add(TypeProgram, p)
		for _, f := range p.FileEntries {
			e.add(TypeFile, f)
		}
	}
	for _, f := range inv.UnassociatedFiles {
		e.add(TypeFile, f)
	}
}

func (e *exporter) modern(inv *types.ModernInventory) {
	for _, p := range inv.Programs {
		e.add(TypeProgram, p)
		for _, f := range p.FileEntries {
			e.add(TypeFile, f)
		}
	}
	for _, f := range inv.UnassociatedFiles {
		e.add(TypeFile, f)
	}
	for i := range inv.Shortcuts {
		e.add(TypeShortcut, &inv.Shortcuts[i])
	}
	for i := range inv.DeviceContainers {
		e.add(TypeDeviceContainer, &inv.DeviceContainers[i])
	}
	for i := range inv.DevicePnps {
		e.add(TypeDevicePnp, &inv.DevicePnps[i])
	}
	for i := range inv.DriverBinaries {
		e.add(TypeDriverBinary, &inv.DriverBinaries[i])
	}
	for i := range inv.DriverPackages {
		e.add(TypeDriverPackage, &inv.DriverPackages[i])
	}
}
