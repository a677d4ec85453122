package csvout

import (
	"github.com/joshuapare/amcachekit/internal/hashfilter"
	"github.com/joshuapare/amcachekit/pkg/types"
)

var modernFileHeader = []string{
	"ApplicationName", "ProgramId", "FileKeyLastWriteTimestamp", "SHA1", "IsOsComponent",
	"FullPath", "Name", "FileExtension", "LinkDate", "ProductName", "Size", "Version",
	"ProductVersion", "LongPathHash", "BinaryType", "IsPeFile", "BinFileVersion",
	"BinProductVersion", "Language",
}

var modernProgramHeader = []string{
	"ProgramId", "KeyLastWriteTimestamp", "Name", "Version", "Publisher", "InstallDate",
	"OSVersionAtInstallTime", "BundleManifestPath", "HiddenArp", "InboxModernApp", "Language",
	"ManifestPath", "MsiPackageCode", "MsiProductCode", "PackageFullName", "ProgramInstanceId",
	"RegistryKeyPath", "RootDirPath", "Type", "Source", "StoreAppType", "UninstallString",
}

var shortcutHeader = []string{"KeyName", "LnkName", "KeyLastWriteTimestamp"}

var driverBinaryHeader = []string{
	"KeyName", "KeyLastWriteTimestamp", "DriverTimeStamp", "DriverLastWriteTime", "DriverName",
	"DriverInBox", "DriverIsKernelMode", "DriverSigned", "DriverCheckSum", "DriverCompany",
	"DriverId", "DriverPackageStrongName", "DriverType", "DriverVersion", "ImageSize", "Inf",
	"Product", "ProductVersion", "Service", "WdfVersion",
}

var deviceContainerHeader = []string{
	"KeyName", "KeyLastWriteTimestamp", "Categories", "DiscoveryMethod", "FriendlyName", "Icon",
	"IsActive", "IsConnected", "IsMachineContainer", "IsNetworked", "IsPaired", "Manufacturer",
	"ModelId", "ModelName", "ModelNumber", "PrimaryCategory", "State",
}

var driverPackageHeader = []string{
	"KeyName", "KeyLastWriteTimestamp", "Date", "Class", "Directory", "DriverInBox", "Hwids",
	"Inf", "Provider", "SubmissionId", "SYSFILE", "Version",
}

var devicePnpHeader = []string{
	"KeyName", "KeyLastWriteTimestamp", "BusReportedDescription", "Class", "ClassGuid", "Compid",
	"ContainerId", "Description", "DriverId", "DriverPackageStrongName", "DriverName",
	"DriverVerDate", "DriverVerVersion", "Enumerator", "HWID", "Inf", "InstallState",
	"Manufacturer", "MatchingId", "Model", "ParentId", "ProblemCode", "Provider", "Service",
	"Stackid",
}

func modernSHA1(f *types.ModernFile) string { return f.SHA1 }

func (w *writer) modern(inv *types.ModernInventory) error {
	unassociated := hashfilter.Apply(w.opts.Filter, inv.UnassociatedFiles, modernSHA1)
	var associated []*types.ModernFile
	for _, p := range inv.Programs {
		associated = append(associated, hashfilter.Apply(w.opts.Filter, p.FileEntries, modernSHA1)...)
	}
	w.sum.UnassociatedShown = len(unassociated)
	w.sum.AssociatedShown = len(associated)

	if err := w.write(KindUnassociated, modernFileHeader, rowsOf(unassociated, w.modernFile)); err != nil {
		return err
	}
	if w.opts.IncludePrograms {
		if err := w.write(KindPrograms, modernProgramHeader, rowsOf(inv.Programs, w.modernProgram)); err != nil {
			return err
		}
		if err := w.write(KindAssociated, modernFileHeader, rowsOf(associated, w.modernFile)); err != nil {
			return err
		}
	}
	if err := w.write(KindShortcuts, shortcutHeader, rowsOf(inv.Shortcuts, w.shortcut)); err != nil {
		return err
	}
	if err := w.write(KindDriverBinaries, driverBinaryHeader, rowsOf(inv.DriverBinaries, w.driverBinary)); err != nil {
		return err
	}
	if err := w.write(KindDeviceContainers, deviceContainerHeader, rowsOf(inv.DeviceContainers, w.deviceContainer)); err != nil {
		return err
	}
	if err := w.write(KindDriverPackages, driverPackageHeader, rowsOf(inv.DriverPackages, w.driverPackage)); err != nil {
		return err
	}
	return w.write(KindDevicePnps, devicePnpHeader, rowsOf(inv.DevicePnps, w.devicePnp))
}

func (w *writer) modernFile(f *types.ModernFile) []string {
	return []string{
		f.ApplicationName, f.ProgramID, w.ts(f.FileKeyLastWriteTimestamp), f.SHA1,
		boolText(f.IsOsComponent), f.FullPath, f.Name, f.FileExtension, w.tsp(f.LinkDate),
		f.ProductName, itoa(f.Size), f.Version, f.ProductVersion, f.LongPathHash, f.BinaryType,
		boolText(f.IsPeFile), f.BinFileVersion, f.BinProductVersion, itoa(f.Language),
	}
}

func (w *writer) modernProgram(p *types.ModernProgram) []string {
	return []string{
		p.ProgramID, w.ts(p.KeyLastWriteTimestamp), p.Name, p.Version, p.Publisher,
		w.tsp(p.InstallDate), p.OSVersionAtInstallTime, p.BundleManifestPath,
		boolText(p.HiddenArp), boolText(p.InboxModernApp), itoa(p.Language), p.ManifestPath,
		p.MsiPackageCode, p.MsiProductCode, p.PackageFullName, p.ProgramInstanceID,
		p.RegistryKeyPath, p.RootDirPath, p.Type, p.Source, p.StoreAppType, p.UninstallString,
	}
}

func (w *writer) shortcut(s types.Shortcut) []string {
	return []string{s.KeyName, s.LnkName, w.ts(s.KeyLastWriteTimestamp)}
}

func (w *writer) driverBinary(d types.DriverBinary) []string {
	return []string{
		d.KeyName, w.ts(d.KeyLastWriteTimestamp), w.tsp(d.DriverTimeStamp),
		w.tsp(d.DriverLastWriteTime), d.DriverName, boolText(d.DriverInBox),
		boolText(d.DriverIsKernelMode), boolText(d.DriverSigned), itoa(d.DriverCheckSum),
		d.DriverCompany, d.DriverID, d.DriverPackageStrongName, d.DriverType, d.DriverVersion,
		itoa(d.ImageSize), d.Inf, d.Product, d.ProductVersion, d.Service, d.WdfVersion,
	}
}

func (w *writer) deviceContainer(d types.DeviceContainer) []string {
	return []string{
		d.KeyName, w.ts(d.KeyLastWriteTimestamp), d.Categories, d.DiscoveryMethod,
		d.FriendlyName, d.Icon, boolText(d.IsActive), boolText(d.IsConnected),
		boolText(d.IsMachineContainer), boolText(d.IsNetworked), boolText(d.IsPaired),
		d.Manufacturer, d.ModelID, d.ModelName, d.ModelNumber, d.PrimaryCategory, d.State,
	}
}

func (w *writer) driverPackage(d types.DriverPackage) []string {
	return []string{
		d.KeyName, w.ts(d.KeyLastWriteTimestamp), w.tsp(d.Date), d.Class, d.Directory,
		boolText(d.DriverInBox), d.Hwids, d.Inf, d.Provider, d.SubmissionID, d.SysFile, d.Version,
	}
}

func (w *writer) devicePnp(d types.DevicePnp) []string {
	return []string{
		d.KeyName, w.ts(d.KeyLastWriteTimestamp), d.BusReportedDescription, d.Class,
		d.ClassGUID, d.Compid, d.ContainerID, d.Description, d.DriverID,
		d.DriverPackageStrongName, d.DriverName, d.DriverVerDate, d.DriverVerVersion,
		d.Enumerator, d.HWID, d.Inf, d.InstallState, d.Manufacturer, d.MatchingID, d.Model,
		d.ParentID, d.ProblemCode, d.Provider, d.Service, d.StackID,
	}
}
