package modern

import (
	"fmt"

	"github.com/joshuapare/amcachekit/internal/diag"
	"github.com/joshuapare/amcachekit/internal/fieldconv"
	"github.com/joshuapare/amcachekit/internal/regread"
	"github.com/joshuapare/amcachekit/pkg/types"
)

// Names Windows writes that carry nothing the records model.
var ignoredProgramValues = map[string]bool{
	"InstallDateArpLastModified": true,
	"InstallDateMsi":             true,
	"InstallDateFromLinkFile":    true,
	"ManufacturerLink":           true,
	"HelpLink":                   true,
	"SupportUrl":                 true,
	"InventoryVersion":           true,
	"Hidden":                     true,
	"MsiInstallDate":             true,
	"Manufacturer":               true,
}

var ignoredFileValues = map[string]bool{
	"AppxPackageFullName":   true,
	"AppxPackageRelativeId": true,
	"Usn":                   true,
}

func decodeProgram(k *regread.Key, sink *diag.Sink) (*types.ModernProgram, error) {
	vals, err := k.Values()
	if err != nil {
		return nil, err
	}
	p := &types.ModernProgram{KeyName: k.Name(), KeyLastWriteTimestamp: lastWrite(k)}
	for _, v := range vals {
		data := v.Data()
		switch v.Name() {
		case "BundleManifestPath":
			p.BundleManifestPath = data
		case "HiddenArp":
			p.HiddenArp = fieldconv.Bool(data)
		case "InboxModernApp":
			p.InboxModernApp = fieldconv.Bool(data)
		case "InstallDate":
			p.InstallDate = date(k, v, sink)
		case "Language":
			p.Language, err = fieldconv.Int32(data)
		case "ManifestPath":
			p.ManifestPath = data
		case "MsiPackageCode":
			p.MsiPackageCode = data
		case "MsiProductCode":
			p.MsiProductCode = data
		case "Name":
			p.Name = data
		case "OSVersionAtInstallTime":
			p.OSVersionAtInstallTime = data
		case "PackageFullName":
			p.PackageFullName = data
		case "ProgramId":
			p.ProgramID = data
		case "ProgramInstanceId":
			p.ProgramInstanceID = data
		case "Publisher":
			p.Publisher = data
		case "RegistryKeyPath":
			p.RegistryKeyPath = data
		case "RootDirPath":
			p.RootDirPath = data
		case "Source":
			p.Source = data
		case "StoreAppType":
			p.StoreAppType = data
		case "Type":
			p.Type = data
		case "UninstallString":
			p.UninstallString = data
		case "Version":
			p.Version = data
		default:
			if !ignoredProgramValues[v.Name()] {
				sink.UnknownField(k.Path(), v.Name())
			}
		}
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", v.Name(), err)
		}
	}
	if p.ProgramID == "" {
		p.ProgramID = k.Name()
	}
	return p, nil
}

func decodeFile(k *regread.Key, sink *diag.Sink) (*types.ModernFile, error) {
	vals, err := k.Values()
	if err != nil {
		return nil, err
	}
	f := &types.ModernFile{FileKey: k.Name(), FileKeyLastWriteTimestamp: lastWrite(k)}
	var fileID string
	for _, v := range vals {
		data := v.Data()
		switch v.Name() {
		case "BinaryType":
			f.BinaryType = data
		case "BinFileVersion":
			f.BinFileVersion = data
		case "BinProductVersion":
			f.BinProductVersion = data
		case "FileId":
			fileID = data
		case "IsOsComponent":
			f.IsOsComponent = fieldconv.Bool(data)
		case "IsPeFile":
			f.IsPeFile = fieldconv.Bool(data)
		case "Language":
			f.Language, err = fieldconv.Int32(data)
		case "LinkDate":
			f.LinkDate = date(k, v, sink)
		case "LongPathHash":
			f.LongPathHash = data
		case "LowerCaseLongPath":
			f.FullPath = data
		case "Name":
			f.Name = data
		case "ProductName":
			f.ProductName = data
		case "ProductVersion":
			f.ProductVersion = data
		case "ProgramId":
			f.ProgramID = data
		case "Publisher":
			f.Publisher = data
		case "Size":
			f.Size, err = fieldconv.Size(data)
		case "Version":
			f.Version = data
		default:
			if !ignoredFileValues[v.Name()] {
				sink.UnknownField(k.Path(), v.Name())
			}
		}
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", v.Name(), err)
		}
	}
	f.SHA1 = fieldconv.SHA1(fileID)
	f.FileExtension = fieldconv.Extension(f.FullPath)
	return f, nil
}

func decodeShortcut(k *regread.Key, _ *diag.Sink) (types.Shortcut, error) {
	vals, err := k.Values()
	if err != nil {
		return types.Shortcut{}, err
	}
	s := types.Shortcut{KeyName: k.Name(), KeyLastWriteTimestamp: lastWrite(k)}
	if len(vals) > 0 {
		s.LnkName = vals[0].Data()
	}
	return s, nil
}
