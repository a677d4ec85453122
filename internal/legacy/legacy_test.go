package legacy

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/amcachekit/internal/diag"
	"github.com/joshuapare/amcachekit/internal/hivetest"
	"github.com/joshuapare/amcachekit/internal/regread"
	"github.com/joshuapare/amcachekit/pkg/types"
)

const volume = "{d1bd2b4b-4e5a-11e6-80b4-806e6f6e6963}"

func legacyRoot() (*hivetest.Key, *hivetest.Key, *hivetest.Key) {
	root := hivetest.NewKey("{11517B7C-E79D-4e20-961B-75A811715ADD}")
	r := root.Add("Root")
	return root, r.Add("Programs"), r.Add("File")
}

func decode(t *testing.T, root *hivetest.Key) (*types.LegacyInventory, *diag.Sink, *test.Hook) {
	t.Helper()
	h, err := regread.OpenBytes(hivetest.Build(root, hivetest.Options{}), regread.Options{})
	require.NoError(t, err)
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	sink := diag.New(log)
	inv, err := Decode(h, sink)
	require.NoError(t, err)
	return inv, sink, hook
}

func TestScenarioUnassociatedWithoutProgramID(t *testing.T) {
	root, _, files := legacyRoot()
	files.Add(volume).Add("1F").SZ("15", `C:\a.exe`)

	inv, _, _ := decode(t, root)
	require.Len(t, inv.UnassociatedFiles, 1)
	f := inv.UnassociatedFiles[0]
	assert.Equal(t, types.UnassociatedName, f.ApplicationName)
	assert.Equal(t, `C:\a.exe`, f.FullPath)
	assert.Equal(t, ".exe", f.FileExtension)
	assert.Equal(t, "", f.ProgramID)
	assert.Equal(t, uint64(1), inv.TotalFileRecords)
}

func TestScenarioMissingFullPathIsDropped(t *testing.T) {
	root, _, files := legacyRoot()
	vol := files.Add(volume)
	vol.Add("20").SZ("0", "no path here").SZ("100", "prog")
	vol.Add("21").SZ("15", `C:\kept.dll`)

	inv, sink, _ := decode(t, root)
	require.Len(t, inv.UnassociatedFiles, 1)
	assert.Equal(t, `C:\kept.dll`, inv.UnassociatedFiles[0].FullPath)
	assert.Equal(t, uint64(1), inv.TotalFileRecords)
	assert.Zero(t, sink.Report().Count(types.IssueMalformedRecord))
}

func TestScenarioIdentifierDecode(t *testing.T) {
	root, _, files := legacyRoot()
	files.Add(volume).Add("1F").SZ("15", `C:\x.exe`)
	files.Add("vol2").Add("0003a2b3").SZ("15", `C:\y.exe`)

	inv, _, _ := decode(t, root)
	require.Len(t, inv.UnassociatedFiles, 2)
	assert.Equal(t, uint32(31), inv.UnassociatedFiles[0].MFTEntryNumber)
	assert.Equal(t, uint32(0), inv.UnassociatedFiles[0].MFTSequenceNumber)
	assert.Equal(t, uint32(0xa2b3), inv.UnassociatedFiles[1].MFTEntryNumber)
	assert.Equal(t, uint32(3), inv.UnassociatedFiles[1].MFTSequenceNumber)
	assert.Equal(t, "vol2", inv.UnassociatedFiles[1].VolumeID)
}

func TestScenarioSharedProgramKeepsOrder(t *testing.T) {
	root, programs, files := legacyRoot()
	programs.Add("prog1").SZ("0", "7-Zip").SZ("1", "9.20").SZ("2", "Igor Pavlov")
	vol := files.Add(volume)
	vol.Add("10").SZ("15", `C:\7z.exe`).SZ("100", "prog1")
	vol.Add("11").SZ("15", `C:\7z.dll`).SZ("100", "prog1")

	inv, _, _ := decode(t, root)
	require.Len(t, inv.Programs, 1)
	p := inv.Programs[0]
	require.Len(t, p.FileEntries, 2)
	assert.Equal(t, `C:\7z.exe`, p.FileEntries[0].FullPath)
	assert.Equal(t, `C:\7z.dll`, p.FileEntries[1].FullPath)
	assert.Equal(t, "7-Zip", p.FileEntries[0].ApplicationName)
	assert.Empty(t, inv.UnassociatedFiles)
	assert.Equal(t, uint64(2), inv.TotalFileRecords)
}

func TestProgramFields(t *testing.T) {
	root, programs, _ := legacyRoot()
	when := time.Date(2016, 7, 1, 10, 0, 0, 0, time.UTC)
	programs.Add("0000f519feec486de87ed73cb92d3cac802400000000").At(when).
		SZ("0", "Microsoft Silverlight").
		SZ("1", "5.1.50907.0").
		SZ("2", "Microsoft Corporation").
		SZ("3", "1033").
		DWORD("5", 7).
		SZ("6", "AddRemoveProgramsKeys").
		SZ("7", `HKLM\Software\Uninstall\{89F4137D}`).
		QWORD("a", 1467367200).
		QWORD("b", 0).
		MultiSZ("d", `C:\Program Files\Microsoft Silverlight`).
		SZ("f", "{guid-f}").
		SZ("10", "{guid-10}").
		SZ("11", "{guid-11}").
		SZ("12", "{guid-12}").
		DWORD("13", 13).
		DWORD("14", 14).
		DWORD("15", 15).
		Binary("16", []byte{1, 2, 3, 4, 5}).
		QWORD("17", 1234567890123).
		DWORD("18", 18).
		MultiSZ("Files", "vol1@0000000a", "vol2@0000000b").
		SZ("zz", "forward compatible")

	inv, sink, hook := decode(t, root)
	require.Len(t, inv.Programs, 1)
	p := inv.Programs[0]
	assert.Equal(t, "0000f519feec486de87ed73cb92d3cac802400000000", p.ProgramID)
	assert.Equal(t, when, p.LastWriteTimestamp)
	assert.Equal(t, "Microsoft Silverlight", p.ProgramName)
	assert.Equal(t, "5.1.50907.0", p.ProgramVersion)
	assert.Equal(t, "Microsoft Corporation", p.VendorName)
	assert.Equal(t, "1033", p.LanguageCode)
	assert.Equal(t, int64(7), p.UnknownDword5)
	require.NotNil(t, p.InstallDateEpochA)
	assert.Equal(t, time.Unix(1467367200, 0).UTC(), *p.InstallDateEpochA)
	assert.Nil(t, p.InstallDateEpochB, "zero epoch is absent")
	assert.Equal(t, int64(13), p.UnknownDword13)
	assert.Equal(t, int64(14), p.UnknownDword14)
	assert.Equal(t, int64(15), p.UnknownDword15)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, p.UnknownBytes16)
	assert.Equal(t, int64(1234567890123), p.UnknownQword17)
	assert.Equal(t, int64(18), p.UnknownDword18)
	assert.Equal(t, []types.FileLink{
		{VolumeGUID: "vol1", FileID: "0000000a"},
		{VolumeGUID: "vol2", FileID: "0000000b"},
	}, p.FilesLinks)

	assert.Equal(t, 1, sink.Report().Count(types.IssueUnknownFieldName))
	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["value"] == "zz" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestEpochOverflowIsAbsent(t *testing.T) {
	root, programs, _ := legacyRoot()
	programs.Add("p").QWORD("a", 0xFFFFFFFFFFFFFFFF).QWORD("b", 99999999999999)

	inv, sink, _ := decode(t, root)
	require.Len(t, inv.Programs, 1)
	assert.Nil(t, inv.Programs[0].InstallDateEpochA)
	assert.Nil(t, inv.Programs[0].InstallDateEpochB)
	assert.Zero(t, sink.Report().Count(types.IssueMalformedRecord))
}

func TestFileFields(t *testing.T) {
	root, _, files := legacyRoot()
	ft := uint64(129067776000000000) // 2010-01-01
	files.Add(volume).Add("00020041").
		SZ("0", "Notepad").
		SZ("1", "Microsoft").
		SZ("2", "6.1.7600.16385").
		DWORD("3", 1033).
		SZ("4", "switch").
		SZ("5", "6.1.7600.16385 (win7_rtm.090713-1255)").
		DWORD("6", 193536).
		DWORD("7", 200704).
		SZ("8", "hash").
		DWORD("9", 0x3e2f1).
		QWORD("a", 281479271677952).
		QWORD("b", 1688849860263937).
		SZ("c", "Notepad").
		DWORD("d", 393217).
		DWORD("f", 1247527558).
		DWORD("10", 2).
		QWORD("11", ft).
		QWORD("12", ft+10_000_000).
		SZ("15", `C:\Windows\System32\notepad.exe`).
		DWORD("16", 1).
		QWORD("17", ft+20_000_000).
		SZ("100", "").
		SZ("101", "0000F00E1D0E9DB1D2B0E6A9A3B3C6F0E9F3B3A0B1C2").
		DWORD("106", 5).
		SZ("ff", "unknown id").
		SZ("nothex", "x")

	inv, sink, _ := decode(t, root)
	require.Len(t, inv.UnassociatedFiles, 1)
	f := inv.UnassociatedFiles[0]
	assert.Equal(t, "Notepad", f.ProductName)
	assert.Equal(t, "Microsoft", f.CompanyName)
	require.NotNil(t, f.LanguageID)
	assert.Equal(t, int64(1033), *f.LanguageID)
	require.NotNil(t, f.FileSize)
	assert.Equal(t, int64(193536), *f.FileSize)
	assert.Equal(t, int64(200704), *f.SizeOfImage)
	assert.Equal(t, int64(0x3e2f1), *f.PEHeaderChecksum)
	assert.Equal(t, int64(281479271677952), f.BinProductVersion)
	assert.Equal(t, uint64(1688849860263937), f.BinFileVersion)
	assert.Equal(t, int64(393217), f.LinkerVersion)
	require.NotNil(t, f.LinkDate)
	assert.Equal(t, time.Unix(1247527558, 0).UTC(), *f.LinkDate)
	assert.Equal(t, int64(2), f.BinaryType)
	assert.Equal(t, time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), *f.LastModified)
	assert.Equal(t, time.Date(2010, 1, 1, 0, 0, 1, 0, time.UTC), *f.Created)
	assert.Equal(t, time.Date(2010, 1, 1, 0, 0, 2, 0, time.UTC), *f.LastModifiedStore)
	assert.Equal(t, int64(1), f.IsLocal)
	assert.Equal(t, int64(5), f.GuessProgramID)
	assert.Equal(t, "f00e1d0e9db1d2b0e6a9a3b3c6f0e9f3b3a0b1c2", f.SHA1)
	assert.Equal(t, ".exe", f.FileExtension)
	assert.Equal(t, uint32(0x41), f.MFTEntryNumber)
	assert.Equal(t, uint32(2), f.MFTSequenceNumber)
	assert.Equal(t, "00020041", f.FileID)
	assert.Equal(t, 2, sink.Report().Count(types.IssueUnknownFieldName))
}

func TestMalformedRecordIsIsolated(t *testing.T) {
	root, programs, files := legacyRoot()
	programs.Add("bad").SZ("5", "not a number")
	programs.Add("good").SZ("0", "Good")
	vol := files.Add(volume)
	vol.Add("30").SZ("15", `C:\bad.exe`).SZ("6", "huge?")
	vol.Add("notahexname").SZ("15", `C:\bad2.exe`)
	vol.Add("31").SZ("15", `C:\good.exe`).SZ("100", "good")

	inv, sink, hook := decode(t, root)
	require.Len(t, inv.Programs, 1)
	assert.Equal(t, "good", inv.Programs[0].ProgramID)
	require.Len(t, inv.Programs[0].FileEntries, 1)
	assert.Equal(t, uint64(1), inv.TotalFileRecords)
	assert.Equal(t, 3, sink.Report().Count(types.IssueMalformedRecord))

	var paths []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			paths = append(paths, e.Data["path"].(string))
		}
	}
	assert.Contains(t, paths, `{11517B7C-E79D-4e20-961B-75A811715ADD}\Root\Programs\bad`)
}

func TestMissingSubtrees(t *testing.T) {
	root := hivetest.NewKey("R")
	root.Add("Root").Add("Programs").Add("p").SZ("0", "Only programs")

	inv, sink, _ := decode(t, root)
	require.Len(t, inv.Programs, 1)
	assert.Empty(t, inv.UnassociatedFiles)
	assert.NotNil(t, inv.UnassociatedFiles)
	assert.Equal(t, 1, sink.Report().Count(types.IssueMissingPrimarySubtree))
}

func TestParseFileLinks(t *testing.T) {
	links, err := parseFileLinks("a@1 b@2  c@3")
	require.NoError(t, err)
	assert.Len(t, links, 2, "stops at the first empty chunk")

	_, err = parseFileLinks("novolume")
	require.Error(t, err)

	links, err = parseFileLinks("")
	require.NoError(t, err)
	assert.Empty(t, links)
}
