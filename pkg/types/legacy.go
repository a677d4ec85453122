package types

import "time"

// UnassociatedName is the application name given to file records that do not
// link to any program record.
const UnassociatedName = "Unassociated"

// FileLink is one "volumeGuid@fileId" pair from a legacy program's Files blob.
type FileLink struct {
	VolumeGUID string
	FileID     string
}

// LegacyProgram is a Root\Programs sub-key. ProgramID is the sub-key name.
type LegacyProgram struct {
	ProgramID          string
	LastWriteTimestamp time.Time `structs:",omitnested"`

	ProgramName          string // "0"
	ProgramVersion       string // "1"
	VendorName           string // "2"
	LanguageCode         string // "3"
	UnknownDword5        int64  // "5"
	InstallSource        string // "6"
	UninstallRegistryKey string // "7"

	InstallDateEpochA *time.Time `structs:",omitnested"` // "a"
	InstallDateEpochB *time.Time `structs:",omitnested"` // "b"

	PathsList       string // "d"
	UninstallGUIDF  string // "f"
	UnknownGUID10   string // "10"
	UninstallGUID11 string // "11"
	UnknownGUID12   string // "12"
	UnknownDword13  int64  // "13"
	UnknownDword14  int64  // "14"
	UnknownDword15  int64  // "15"
	UnknownBytes16  []byte // "16"
	UnknownQword17  int64  // "17"
	UnknownDword18  int64  // "18"

	RawFiles   string // "Files"
	FilesLinks []FileLink

	FileEntries []*LegacyFile `structs:"-"`
}

// ID returns the identifier file records link to.
func (p *LegacyProgram) ID() string { return p.ProgramID }

// DisplayName returns the name copied into associated file records.
func (p *LegacyProgram) DisplayName() string { return p.ProgramName }

// Attach appends an associated file record.
func (p *LegacyProgram) Attach(f *LegacyFile) { p.FileEntries = append(p.FileEntries, f) }

// LegacyFile is a Root\File\<volume>\<entry> sub-key.
type LegacyFile struct {
	ApplicationName string

	VolumeID                   string
	VolumeIDLastWriteTimestamp time.Time `structs:",omitnested"`
	FileID                     string
	FileIDLastWriteTimestamp   time.Time `structs:",omitnested"`
	MFTEntryNumber             uint32
	MFTSequenceNumber          uint32

	ProductName       string // 0x0
	CompanyName       string // 0x1
	FileVersionNumber string // 0x2
	LanguageID        *int64 // 0x3
	SwitchBackContext string // 0x4
	FileVersionString string // 0x5
	FileSize          *int64 // 0x6
	SizeOfImage       *int64 // 0x7
	PEHeaderHash      string // 0x8
	PEHeaderChecksum  *int64 // 0x9
	BinProductVersion int64  // 0xa
	BinFileVersion    uint64 // 0xb
	FileDescription   string // 0xc
	LinkerVersion     int64  // 0xd
	BinaryType        int64  // 0x10
	IsLocal           int64  // 0x16
	GuessProgramID    int64  // 0x106

	LinkDate          *time.Time `structs:",omitnested"` // 0xf
	LastModified      *time.Time `structs:",omitnested"` // 0x11
	Created           *time.Time `structs:",omitnested"` // 0x12
	LastModifiedStore *time.Time `structs:",omitnested"` // 0x17

	FullPath      string // 0x15
	FileExtension string
	ProgramID     string // 0x100
	SHA1          string // 0x101
}

// OwnerID returns the program identifier this record links to.
func (f *LegacyFile) OwnerID() string { return f.ProgramID }

// SetApplicationName records the result of association.
func (f *LegacyFile) SetApplicationName(name string) { f.ApplicationName = name }
