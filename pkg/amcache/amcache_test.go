package amcache_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/amcachekit/internal/format"
	"github.com/joshuapare/amcachekit/internal/hivetest"
	"github.com/joshuapare/amcachekit/internal/timestamp"
	"github.com/joshuapare/amcachekit/pkg/amcache"
	"github.com/joshuapare/amcachekit/pkg/types"
)

const volume = "{d1bd2b4b-4e5a-11e6-80b4-806e6f6e6963}"

func hiveRoot() (*hivetest.Key, *hivetest.Key) {
	root := hivetest.NewKey("{11517B7C-E79D-4e20-961B-75A811715ADD}")
	return root, root.Add("Root")
}

func legacyHive() []byte {
	root, r := hiveRoot()
	programs := r.Add("Programs")
	programs.Add("prog1").SZ("0", "7-Zip").SZ("1", "9.20").QWORD("a", 1467367200)
	programs.Add("prog2").SZ("0", "Notepad++")
	vol := r.Add("File").Add(volume)
	vol.Add("1F").SZ("15", `C:\a.exe`)
	vol.Add("20").SZ("0", "no path")
	vol.Add("10").SZ("15", `C:\7z.exe`).SZ("100", "prog1").QWORD("11", 132514812340000000)
	vol.Add("11").SZ("15", `C:\7z.dll`).SZ("100", "prog1")
	vol.Add("12").SZ("15", `C:\npp.exe`).SZ("100", "prog2").SZ("101", "0000abcdef")
	return hivetest.Build(root, hivetest.Options{})
}

func modernHive() *hivetest.Key {
	root, r := hiveRoot()
	apps := r.Add("InventoryApplication")
	apps.Add("p1").SZ("ProgramId", "p1").SZ("Name", "Git").SZ("InstallDate", "")
	apps.Add("p2").SZ("ProgramId", "p2").SZ("Name", "Go").SZ("InstallDate", "05/01/2023 10:11:12")
	files := r.Add("InventoryApplicationFile")
	files.Add("git.exe|1").SZ("ProgramId", "p1").SZ("LowerCaseLongPath", `c:\git\git.exe`).SZ("LinkDate", "01/02/2020 03:04:05")
	files.Add("go.exe|2").SZ("ProgramId", "p2").SZ("LowerCaseLongPath", `c:\go\bin\go.exe`).SZ("Size", "0x100")
	files.Add("x.exe|3").SZ("LowerCaseLongPath", `c:\temp\x.exe`)
	r.Add("InventoryApplicationShortcut").Add("s").SZ("ShortcutPath", `c:\s.lnk`)
	r.Add("InventoryDriverBinary").Add("d.sys").SZ("DriverTimeStamp", "1575709710")
	return root
}

func TestScenarioLegacy(t *testing.T) {
	res, err := amcache.ReconstructBytes("Amcache.hve", legacyHive(), nil, nil)
	require.NoError(t, err)
	require.Equal(t, types.GenerationLegacy, res.Generation)
	require.NotNil(t, res.Legacy)
	assert.Nil(t, res.Modern)

	t.Run("A: no program id is unassociated", func(t *testing.T) {
		require.Len(t, res.Legacy.UnassociatedFiles, 1)
		f := res.Legacy.UnassociatedFiles[0]
		assert.Equal(t, `C:\a.exe`, f.FullPath)
		assert.Equal(t, "Unassociated", f.ApplicationName)
	})
	t.Run("B: no full path is dropped", func(t *testing.T) {
		assert.Equal(t, uint64(4), res.TotalFileRecords())
	})
	t.Run("E: identifier decode", func(t *testing.T) {
		f := res.Legacy.UnassociatedFiles[0]
		assert.Equal(t, uint32(31), f.MFTEntryNumber)
		assert.Equal(t, uint32(0), f.MFTSequenceNumber)
	})
	t.Run("F: shared program keeps order", func(t *testing.T) {
		p := res.Legacy.Programs[0]
		require.Len(t, p.FileEntries, 2)
		assert.Equal(t, `C:\7z.exe`, p.FileEntries[0].FullPath)
		assert.Equal(t, `C:\7z.dll`, p.FileEntries[1].FullPath)
	})
	checkLegacyProperties(t, res.Legacy)
}

func TestScenarioModern(t *testing.T) {
	res, err := amcache.ReconstructBytes("Amcache.hve", hivetest.Build(modernHive(), hivetest.Options{}), nil, nil)
	require.NoError(t, err)
	require.Equal(t, types.GenerationModern, res.Generation)
	require.NotNil(t, res.Modern)

	t.Run("C: empty install date is absent", func(t *testing.T) {
		assert.Nil(t, res.Modern.Programs[0].InstallDate)
		assert.NotNil(t, res.Modern.Programs[1].InstallDate)
		assert.Equal(t, 0, res.Report.Len())
	})
	assert.Equal(t, uint64(3), res.TotalFileRecords())
	assert.Equal(t, 2, res.ProgramCount())
	assert.Equal(t, 1, res.UnassociatedCount())
	assert.Len(t, res.Modern.Shortcuts, 1)
	assert.Len(t, res.Modern.DriverBinaries, 1)
	assert.Empty(t, res.Modern.DevicePnps)
	checkModernProperties(t, res.Modern)
}

func TestScenarioDirtyHiveNoLogs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Amcache.hve")
	img := hivetest.Build(modernHive(), hivetest.Options{PrimarySequence: 3, SecondarySequence: 2})
	require.NoError(t, os.WriteFile(path, img, 0o600))

	res, err := amcache.Reconstruct(path, nil)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, types.ErrDirtyHiveNoLogs)

	log, hook := test.NewNullLogger()
	res, err = amcache.Reconstruct(path, &amcache.Options{AllowDirtyWithoutLogs: true, Logger: log})
	require.NoError(t, err)
	assert.True(t, res.Hive.Dirty)
	assert.Equal(t, 1, res.Report.Count(types.IssueIncompleteHive))
	assert.Equal(t, 2, res.ProgramCount())
	assert.NotEmpty(t, hook.AllEntries())
}

func TestReconstructReplaysLogs(t *testing.T) {
	dirty := hivetest.Build(modernHive(), hivetest.Options{PrimarySequence: 8, SecondarySequence: 7})
	next := modernHive()
	apps, _ := findChild(next, "Root", "InventoryApplication")
	apps.Add("p3").SZ("ProgramId", "p3").SZ("Name", "Rust")
	flushed := hivetest.Build(next, hivetest.Options{})
	entry := hivetest.LogEntry(7, uint32(len(flushed)-format.HeaderSize), hivetest.Diff(dirty, flushed)...)

	dir := t.TempDir()
	path := filepath.Join(dir, "Amcache.hve")
	require.NoError(t, os.WriteFile(path, dirty, 0o600))
	require.NoError(t, os.WriteFile(path+".LOG1", hivetest.NewLog(7, entry), 0o600))

	res, err := amcache.Reconstruct(path, nil)
	require.NoError(t, err)
	assert.True(t, res.Hive.Dirty)
	assert.True(t, res.Hive.Recovered)
	assert.Equal(t, []string{"Amcache.hve.LOG1"}, res.Hive.LogFiles)
	assert.Equal(t, 3, res.ProgramCount())
	assert.Equal(t, "Rust", res.Modern.Programs[2].Name)
}

func TestReconstructEmptyHive(t *testing.T) {
	root, r := hiveRoot()
	r.Add("Something")
	res, err := amcache.ReconstructBytes("x", hivetest.Build(root, hivetest.Options{}), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, types.GenerationNone, res.Generation)
	assert.Nil(t, res.Legacy)
	assert.Nil(t, res.Modern)
	assert.Zero(t, res.TotalFileRecords())
	assert.Equal(t, 1, res.Report.Count(types.IssueMissingPrimarySubtree))
}

func TestReconstructNotAHive(t *testing.T) {
	_, err := amcache.ReconstructBytes("x", []byte("not a hive at all"), nil, nil)
	assert.ErrorIs(t, err, types.ErrNotHive)
}

func TestReconstructRecoverDeleted(t *testing.T) {
	root, r := hiveRoot()
	apps := r.Add("InventoryApplication")
	apps.Add("live").SZ("ProgramId", "live").SZ("Name", "Live")
	gone := apps.Add("gone").SZ("ProgramId", "gone").SZ("Name", "Gone")
	gone.Deleted = true
	r.Add("InventoryApplicationFile")
	img := hivetest.Build(root, hivetest.Options{})

	res, err := amcache.ReconstructBytes("x", img, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ProgramCount())

	res, err = amcache.ReconstructBytes("x", img, nil, &amcache.Options{RecoverDeleted: true})
	require.NoError(t, err)
	require.Equal(t, 2, res.ProgramCount())
	assert.Equal(t, "Gone", res.Modern.Programs[1].Name)
}

func findChild(k *hivetest.Key, path ...string) (*hivetest.Key, bool) {
	cur := k
	for _, name := range path {
		var next *hivetest.Key
		for _, c := range cur.Children {
			if c.Name == name {
				next = c
			}
		}
		if next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func checkLegacyProperties(t *testing.T, inv *types.LegacyInventory) {
	t.Helper()
	seen := map[string]bool{}
	placed := map[*types.LegacyFile]int{}
	total := len(inv.UnassociatedFiles)
	for _, p := range inv.Programs {
		assert.False(t, seen[p.ProgramID], "duplicate program id %q", p.ProgramID)
		seen[p.ProgramID] = true
		total += len(p.FileEntries)
		for _, f := range p.FileEntries {
			placed[f]++
			checkNormalized(t, f.LastModified, f.Created, f.LastModifiedStore, f.LinkDate)
		}
		checkNormalized(t, p.InstallDateEpochA, p.InstallDateEpochB)
	}
	for _, f := range inv.UnassociatedFiles {
		placed[f]++
	}
	for f, n := range placed {
		assert.Equal(t, 1, n, "file %s placed %d times", f.FullPath, n)
	}
	assert.Equal(t, inv.TotalFileRecords, uint64(total))
}

func checkModernProperties(t *testing.T, inv *types.ModernInventory) {
	t.Helper()
	seen := map[string]bool{}
	placed := map[*types.ModernFile]int{}
	total := len(inv.UnassociatedFiles)
	for _, p := range inv.Programs {
		assert.False(t, seen[p.ProgramID], "duplicate program id %q", p.ProgramID)
		seen[p.ProgramID] = true
		total += len(p.FileEntries)
		for _, f := range p.FileEntries {
			placed[f]++
			checkNormalized(t, f.LinkDate)
		}
		checkNormalized(t, p.InstallDate)
	}
	for _, f := range inv.UnassociatedFiles {
		placed[f]++
	}
	for f, n := range placed {
		assert.Equal(t, 1, n, "file %s placed %d times", f.FullPath, n)
	}
	assert.Equal(t, inv.TotalFileRecords, uint64(total))
	for _, d := range inv.DriverBinaries {
		checkNormalized(t, d.DriverTimeStamp, d.DriverLastWriteTime)
	}
}

func checkNormalized(t *testing.T, ts ...*time.Time) {
	t.Helper()
	for _, v := range ts {
		if v == nil {
			continue
		}
		assert.Equal(t, *v, timestamp.Normalize(*v))
		assert.Equal(t, time.UTC, v.Location())
	}
}

func TestReconstructUndecodableValueIsMalformed(t *testing.T) {
	root, r := hiveRoot()
	r.Add("Programs")
	vol := r.Add("File").Add(volume)
	vol.Add("1F").SZ("15", `C:\a.exe`).SZ("101", "0000da39a3ee5e6b4b0d3255bfef95601890afd80709")
	vol.Add("20").SZ("15", `C:\b.exe`)
	img := hivetest.Build(root, hivetest.Options{})
	require.True(t, hivetest.SetValueDataOffset(img, "101", 0x7FFFFFF0))

	log, hook := test.NewNullLogger()
	res, err := amcache.ReconstructBytes("Amcache.hve", img, nil, &amcache.Options{Logger: log})
	require.NoError(t, err)
	require.NotNil(t, res.Legacy)

	require.Len(t, res.Legacy.UnassociatedFiles, 1)
	assert.Equal(t, `C:\b.exe`, res.Legacy.UnassociatedFiles[0].FullPath)
	assert.Equal(t, uint64(1), res.TotalFileRecords())
	assert.Equal(t, 1, res.Report.Count(types.IssueMalformedRecord))
	var logged bool
	for _, e := range hook.AllEntries() {
		if path, ok := e.Data["path"].(string); ok && e.Level == logrus.ErrorLevel && strings.HasSuffix(path, `\1F`) {
			logged = true
		}
	}
	assert.True(t, logged, "expected the malformed file record to be logged with its key path")
}

func TestReconstructUndecodableSubkeyIsMalformed(t *testing.T) {
	img := hivetest.Build(modernHive(), hivetest.Options{})
	require.True(t, hivetest.CorruptKey(img, "go.exe|2"))

	res, err := amcache.ReconstructBytes("Amcache.hve", img, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Modern)
	assert.Equal(t, uint64(2), res.TotalFileRecords())
	assert.Equal(t, 1, res.Report.Count(types.IssueMalformedRecord))
	assert.Equal(t, 2, res.ProgramCount())
}
