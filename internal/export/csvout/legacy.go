package csvout

import (
	"strconv"

	"github.com/joshuapare/amcachekit/internal/hashfilter"
	"github.com/joshuapare/amcachekit/pkg/types"
)

var legacyFileHeader = []string{
	"ProgramName", "ProgramID", "VolumeID", "VolumeIDLastWriteTimestamp", "FileID",
	"FileIDLastWriteTimestamp", "SHA1", "FullPath", "FileExtension", "MFTEntryNumber",
	"MFTSequenceNumber", "FileSize", "FileVersionString", "FileVersionNumber",
	"FileDescription", "SizeOfImage", "PEHeaderHash", "PEHeaderChecksum", "BinProductVersion",
	"BinFileVersion", "LinkerVersion", "BinaryType", "IsLocal", "GuessProgramID", "Created",
	"LastModified", "LastModifiedStore", "LinkDate", "LanguageID", "ProductName",
	"CompanyName", "SwitchBackContext",
}

// Associated rows stop at LanguageID; the program row carries the rest.
var legacyAssociatedHeader = legacyFileHeader[:29]

var legacyProgramHeader = []string{
	"ProgramID", "LastWriteTimestamp", "ProgramName_0", "ProgramVersion_1", "VendorName_2",
	"InstallDateEpoch_a", "InstallDateEpoch_b", "LanguageCode_3", "InstallSource_6",
	"UninstallRegistryKey_7", "PathsList_d",
}

func legacySHA1(f *types.LegacyFile) string { return f.SHA1 }

func (w *writer) legacy(inv *types.LegacyInventory) error {
	unassociated := hashfilter.Apply(w.opts.Filter, inv.UnassociatedFiles, legacySHA1)
	var associated []*types.LegacyFile
	for _, p := range inv.Programs {
		associated = append(associated, hashfilter.Apply(w.opts.Filter, p.FileEntries, legacySHA1)...)
	}
	w.sum.UnassociatedShown = len(unassociated)
	w.sum.AssociatedShown = len(associated)

	if err := w.write(KindUnassociated, legacyFileHeader, rowsOf(unassociated, w.legacyFile)); err != nil {
		return err
	}
	if !w.opts.IncludePrograms {
		return nil
	}
	if err := w.write(KindPrograms, legacyProgramHeader, rowsOf(inv.Programs, w.legacyProgram)); err != nil {
		return err
	}
	return w.write(KindAssociated, legacyAssociatedHeader, rowsOf(associated, func(f *types.LegacyFile) []string {
		return w.legacyFile(f)[:len(legacyAssociatedHeader)]
	}))
}

func (w *writer) legacyFile(f *types.LegacyFile) []string {
	return []string{
		f.ApplicationName, f.ProgramID, f.VolumeID, w.ts(f.VolumeIDLastWriteTimestamp), f.FileID,
		w.ts(f.FileIDLastWriteTimestamp), f.SHA1, f.FullPath, f.FileExtension,
		strconv.FormatUint(uint64(f.MFTEntryNumber), 10),
		strconv.FormatUint(uint64(f.MFTSequenceNumber), 10),
		optInt(f.FileSize), f.FileVersionString, f.FileVersionNumber, f.FileDescription,
		optInt(f.SizeOfImage), f.PEHeaderHash, optInt(f.PEHeaderChecksum),
		itoa(f.BinProductVersion), strconv.FormatUint(f.BinFileVersion, 10),
		itoa(f.LinkerVersion), itoa(f.BinaryType), itoa(f.IsLocal), itoa(f.GuessProgramID),
		w.tsp(f.Created), w.tsp(f.LastModified), w.tsp(f.LastModifiedStore), w.tsp(f.LinkDate),
		optInt(f.LanguageID), f.ProductName, f.CompanyName, f.SwitchBackContext,
	}
}

func (w *writer) legacyProgram(p *types.LegacyProgram) []string {
	return []string{
		p.ProgramID, w.ts(p.LastWriteTimestamp), p.ProgramName, p.ProgramVersion, p.VendorName,
		w.tsp(p.InstallDateEpochA), w.tsp(p.InstallDateEpochB), p.LanguageCode,
		p.InstallSource, p.UninstallRegistryKey, p.PathsList,
	}
}
