package types

import "time"

// ModernProgram is a Root\InventoryApplication sub-key.
type ModernProgram struct {
	KeyName               string
	KeyLastWriteTimestamp time.Time `structs:",omitnested"`

	ProgramID              string
	ProgramInstanceID      string
	Name                   string
	Version                string
	Publisher              string
	InstallDate            *time.Time `structs:",omitnested"`
	OSVersionAtInstallTime string
	BundleManifestPath     string
	HiddenArp              bool
	InboxModernApp         bool
	Language               int64
	ManifestPath           string
	MsiPackageCode         string
	MsiProductCode         string
	PackageFullName        string
	RegistryKeyPath        string
	RootDirPath            string
	Type                   string
	Source                 string
	StoreAppType           string
	UninstallString        string

	FileEntries []*ModernFile `structs:"-"`
}

// ID returns the identifier file records link to.
func (p *ModernProgram) ID() string { return p.ProgramID }

// DisplayName returns the name copied into associated file records.
func (p *ModernProgram) DisplayName() string { return p.Name }

// Attach appends an associated file record.
func (p *ModernProgram) Attach(f *ModernFile) { p.FileEntries = append(p.FileEntries, f) }

// ModernFile is a Root\InventoryApplicationFile sub-key.
type ModernFile struct {
	ApplicationName string

	FileKey                   string
	FileKeyLastWriteTimestamp time.Time `structs:",omitnested"`

	ProgramID         string
	SHA1              string
	IsOsComponent     bool
	FullPath          string
	Name              string
	FileExtension     string
	LinkDate          *time.Time `structs:",omitnested"`
	ProductName       string
	Size              int64
	Version           string
	ProductVersion    string
	LongPathHash      string
	BinaryType        string
	IsPeFile          bool
	BinFileVersion    string
	BinProductVersion string
	Language          int64
	Publisher         string
}

// OwnerID returns the program identifier this record links to.
func (f *ModernFile) OwnerID() string { return f.ProgramID }

// SetApplicationName records the result of association.
func (f *ModernFile) SetApplicationName(name string) { f.ApplicationName = name }
