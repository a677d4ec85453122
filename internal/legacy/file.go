package legacy

import (
	"fmt"
	"strconv"
	"time"

	"github.com/joshuapare/amcachekit/internal/diag"
	"github.com/joshuapare/amcachekit/internal/fieldconv"
	"github.com/joshuapare/amcachekit/internal/mftref"
	"github.com/joshuapare/amcachekit/internal/regread"
	"github.com/joshuapare/amcachekit/internal/timestamp"
	"github.com/joshuapare/amcachekit/pkg/types"
)

// File record value ids.
const (
	idProductName       = 0x0
	idCompanyName       = 0x1
	idFileVersionNumber = 0x2
	idLanguageCode      = 0x3
	idSwitchBackContext = 0x4
	idFileVersionString = 0x5
	idFileSize          = 0x6
	idSizeOfImage       = 0x7
	idPEHeaderHash      = 0x8
	idPEHeaderChecksum  = 0x9
	idBinProductVersion = 0xa
	idBinFileVersion    = 0xb
	idFileDescription   = 0xc
	idLinkerVersion     = 0xd
	idLinkDate          = 0xf
	idBinaryType        = 0x10
	idLastModified      = 0x11
	idCreated           = 0x12
	idFullPath          = 0x15
	idIsLocal           = 0x16
	idLastModifiedStore = 0x17
	idProgramID         = 0x100
	idSHA1              = 0x101
	idGuessProgramID    = 0x106
)

// decodeFile builds one file record from Root\File\<vol>\<k>. It returns a
// nil record without error when the entry has no full path; such entries are
// incomplete and are neither reported nor counted.
func decodeFile(vol, k *regread.Key, sink *diag.Sink) (*types.LegacyFile, error) {
	ref, err := mftref.Decode(k.Name())
	if err != nil {
		return nil, err
	}
	vals, err := k.Values()
	if err != nil {
		return nil, err
	}
	f := &types.LegacyFile{
		VolumeID:                   vol.Name(),
		VolumeIDLastWriteTimestamp: timestamp.Normalize(vol.LastWriteTime()),
		FileID:                     k.Name(),
		FileIDLastWriteTimestamp:   timestamp.Normalize(k.LastWriteTime()),
		MFTEntryNumber:             ref.Entry,
		MFTSequenceNumber:          ref.Sequence,
	}
	var sha string
	for _, v := range vals {
		id, perr := strconv.ParseUint(v.Name(), 16, 32)
		if perr != nil {
			sink.UnknownField(k.Path(), v.Name())
			continue
		}
		data := v.Data()
		switch id {
		case idProductName:
			f.ProductName = data
		case idCompanyName:
			f.CompanyName = data
		case idFileVersionNumber:
			f.FileVersionNumber = data
		case idLanguageCode:
			f.LanguageID, err = fieldconv.Int32Ptr(data)
		case idSwitchBackContext:
			f.SwitchBackContext = data
		case idFileVersionString:
			f.FileVersionString = data
		case idFileSize:
			f.FileSize, err = fieldconv.Int64Ptr(data)
		case idSizeOfImage:
			f.SizeOfImage, err = fieldconv.Int64Ptr(data)
		case idPEHeaderHash:
			f.PEHeaderHash = data
		case idPEHeaderChecksum:
			f.PEHeaderChecksum, err = fieldconv.Int64Ptr(data)
		case idBinProductVersion:
			f.BinProductVersion, err = fieldconv.Int64(data)
		case idBinFileVersion:
			f.BinFileVersion, err = fieldconv.Uint64(data)
		case idFileDescription:
			f.FileDescription = data
		case idLinkerVersion:
			err = setInt32(&f.LinkerVersion, data)
		case idLinkDate:
			f.LinkDate = epoch(k, v, sink)
		case idBinaryType:
			err = setInt32(&f.BinaryType, data)
		case idLastModified:
			f.LastModified = filetime(k, v, sink)
		case idCreated:
			f.Created = filetime(k, v, sink)
		case idFullPath:
			f.FullPath = data
		case idIsLocal:
			err = setInt32(&f.IsLocal, data)
		case idLastModifiedStore:
			f.LastModifiedStore = filetime(k, v, sink)
		case idProgramID:
			f.ProgramID = data
		case idSHA1:
			sha = data
		case idGuessProgramID:
			err = setInt32(&f.GuessProgramID, data)
		default:
			sink.UnknownField(k.Path(), fmt.Sprintf("0x%X", id))
		}
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", v.Name(), err)
		}
	}
	if f.FullPath == "" {
		return nil, nil
	}
	f.SHA1 = fieldconv.SHA1(sha)
	f.FileExtension = fieldconv.Extension(f.FullPath)
	return f, nil
}

func filetime(k *regread.Key, v *regread.Value, sink *diag.Sink) *time.Time {
	t, ok := timestamp.FromFiletimeString(v.Data())
	if !ok && v.Data() != "0" {
		sink.Conversion(k.Path(), v.Name(), v.Data())
	}
	return timestamp.Ptr(t, ok)
}
