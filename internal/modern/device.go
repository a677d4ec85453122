package modern

import (
	"fmt"

	"github.com/joshuapare/amcachekit/internal/diag"
	"github.com/joshuapare/amcachekit/internal/fieldconv"
	"github.com/joshuapare/amcachekit/internal/regread"
	"github.com/joshuapare/amcachekit/internal/timestamp"
	"github.com/joshuapare/amcachekit/pkg/types"
)

var ignoredPnpValues = map[string]bool{
	"LowerClassFilters": true,
	"LowerFilters":      true,
	"UpperClassFilters": true,
	"UpperFilters":      true,
}

var ignoredPackageValues = map[string]bool{
	"IsActive":    true,
	"FlightIds":   true,
	"RecoveryIds": true,
}

func decodeDeviceContainer(k *regread.Key, sink *diag.Sink) (types.DeviceContainer, error) {
	d := types.DeviceContainer{KeyName: k.Name(), KeyLastWriteTimestamp: lastWrite(k)}
	vals, err := k.Values()
	if err != nil {
		return d, err
	}
	for _, v := range vals {
		data := v.Data()
		switch v.Name() {
		case "Categories":
			d.Categories = data
		case "DiscoveryMethod":
			d.DiscoveryMethod = data
		case "FriendlyName":
			d.FriendlyName = data
		case "Icon":
			d.Icon = data
		case "IsActive":
			d.IsActive = fieldconv.Bool(data)
		case "IsConnected":
			d.IsConnected = fieldconv.Bool(data)
		case "IsMachineContainer":
			d.IsMachineContainer = fieldconv.Bool(data)
		case "IsNetworked":
			d.IsNetworked = fieldconv.Bool(data)
		case "IsPaired":
			d.IsPaired = fieldconv.Bool(data)
		case "Manufacturer":
			d.Manufacturer = data
		case "ModelId":
			d.ModelID = data
		case "ModelName":
			d.ModelName = data
		case "ModelNumber":
			d.ModelNumber = data
		case "PrimaryCategory":
			d.PrimaryCategory = data
		case "State":
			d.State = data
		default:
			sink.UnknownField(k.Path(), v.Name())
		}
	}
	return d, nil
}

func decodeDevicePnp(k *regread.Key, sink *diag.Sink) (types.DevicePnp, error) {
	d := types.DevicePnp{KeyName: k.Name(), KeyLastWriteTimestamp: lastWrite(k)}
	vals, err := k.Values()
	if err != nil {
		return d, err
	}
	for _, v := range vals {
		data := v.Data()
		switch v.Name() {
		case "BusReportedDescription":
			d.BusReportedDescription = data
		case "Class":
			d.Class = data
		case "ClassGuid":
			d.ClassGUID = data
		case "COMPID":
			d.Compid = data
		case "ContainerId":
			d.ContainerID = data
		case "Description":
			d.Description = data
		case "DeviceState":
			d.DeviceState = data
		case "DriverId":
			d.DriverID = data
		case "DriverName":
			d.DriverName = data
		case "DriverPackageStrongName":
			d.DriverPackageStrongName = data
		case "DriverVerDate":
			d.DriverVerDate = data
		case "DriverVerVersion":
			d.DriverVerVersion = data
		case "Enumerator":
			d.Enumerator = data
		case "HWID":
			d.HWID = data
		case "Inf":
			d.Inf = data
		case "InstallState":
			d.InstallState = data
		case "Manufacturer":
			d.Manufacturer = data
		case "MatchingID":
			d.MatchingID = data
		case "Model":
			d.Model = data
		case "ParentId":
			d.ParentID = data
		case "ProblemCode":
			d.ProblemCode = data
		case "Provider":
			d.Provider = data
		case "Service":
			d.Service = data
		case "STACKID":
			d.StackID = data
		default:
			if !ignoredPnpValues[v.Name()] {
				sink.UnknownField(k.Path(), v.Name())
			}
		}
	}
	return d, nil
}

func decodeDriverBinary(k *regread.Key, sink *diag.Sink) (types.DriverBinary, error) {
	d := types.DriverBinary{KeyName: k.Name(), KeyLastWriteTimestamp: lastWrite(k)}
	vals, err := k.Values()
	if err != nil {
		return d, err
	}
	for _, v := range vals {
		data := v.Data()
		switch v.Name() {
		case "DriverCheckSum":
			d.DriverCheckSum, err = fieldconv.Size(data)
		case "DriverCompany":
			d.DriverCompany = data
		case "DriverId":
			d.DriverID = data
		case "DriverInBox":
			d.DriverInBox = fieldconv.Bool(data)
		case "DriverIsKernelMode":
			d.DriverIsKernelMode = fieldconv.Bool(data)
		case "DriverLastWriteTime":
			d.DriverLastWriteTime = date(k, v, sink)
		case "DriverName":
			d.DriverName = data
		case "DriverPackageStrongName":
			d.DriverPackageStrongName = data
		case "DriverSigned":
			d.DriverSigned = fieldconv.Bool(data)
		case "DriverTimeStamp":
			t, ok := timestamp.FromUnixSeconds(data)
			if !ok && data != "" && data != "0" {
				sink.Conversion(k.Path(), v.Name(), data)
			}
			d.DriverTimeStamp = timestamp.Ptr(t, ok)
		case "DriverType":
			d.DriverType = data
		case "DriverVersion":
			d.DriverVersion = data
		case "ImageSize":
			d.ImageSize, err = fieldconv.Size(data)
		case "Inf":
			d.Inf = data
		case "Product":
			d.Product = data
		case "ProductVersion":
			d.ProductVersion = data
		case "Service":
			d.Service = data
		case "WdfVersion":
			d.WdfVersion = data
		default:
			sink.UnknownField(k.Path(), v.Name())
		}
		if err != nil {
			return d, fmt.Errorf("value %q: %w", v.Name(), err)
		}
	}
	return d, nil
}

func decodeDriverPackage(k *regread.Key, sink *diag.Sink) (types.DriverPackage, error) {
	d := types.DriverPackage{KeyName: k.Name(), KeyLastWriteTimestamp: lastWrite(k)}
	vals, err := k.Values()
	if err != nil {
		return d, err
	}
	for _, v := range vals {
		data := v.Data()
		switch v.Name() {
		case "Class":
			d.Class = data
		case "ClassGuid":
			d.ClassGUID = data
		case "Date":
			d.Date = date(k, v, sink)
		case "Directory":
			d.Directory = data
		case "DriverInBox":
			d.DriverInBox = fieldconv.Bool(data)
		case "Hwids":
			d.Hwids = data
		case "Inf":
			d.Inf = data
		case "Provider":
			d.Provider = data
		case "SubmissionId":
			d.SubmissionID = data
		case "SYSFILE":
			d.SysFile = data
		case "Version":
			d.Version = data
		default:
			if !ignoredPackageValues[v.Name()] {
				sink.UnknownField(k.Path(), v.Name())
			}
		}
	}
	return d, nil
}
