package types

import "time"

// Shortcut is a Root\InventoryApplicationShortcut sub-key.
type Shortcut struct {
	KeyName               string
	LnkName               string
	KeyLastWriteTimestamp time.Time `structs:",omitnested"`
}

// DeviceContainer is a Root\InventoryDeviceContainer sub-key.
type DeviceContainer struct {
	KeyName               string
	KeyLastWriteTimestamp time.Time `structs:",omitnested"`

	Categories         string
	DiscoveryMethod    string
	FriendlyName       string
	Icon               string
	IsActive           bool
	IsConnected        bool
	IsMachineContainer bool
	IsNetworked        bool
	IsPaired           bool
	Manufacturer       string
	ModelID            string
	ModelName          string
	ModelNumber        string
	PrimaryCategory    string
	State              string
}

// DevicePnp is a Root\InventoryDevicePnp sub-key.
type DevicePnp struct {
	KeyName               string
	KeyLastWriteTimestamp time.Time `structs:",omitnested"`

	BusReportedDescription  string
	Class                   string
	ClassGUID               string
	Compid                  string
	ContainerID             string
	Description             string
	DeviceState             string
	DriverID                string
	DriverName              string
	DriverPackageStrongName string
	DriverVerDate           string
	DriverVerVersion        string
	Enumerator              string
	HWID                    string
	Inf                     string
	InstallState            string
	Manufacturer            string
	MatchingID              string
	Model                   string
	ParentID                string
	ProblemCode             string
	Provider                string
	Service                 string
	StackID                 string
}

// DriverBinary is a Root\InventoryDriverBinary sub-key.
type DriverBinary struct {
	KeyName               string
	KeyLastWriteTimestamp time.Time `structs:",omitnested"`

	DriverCheckSum          int64
	DriverCompany           string
	DriverID                string
	DriverInBox             bool
	DriverIsKernelMode      bool
	DriverLastWriteTime     *time.Time `structs:",omitnested"`
	DriverName              string
	DriverPackageStrongName string
	DriverSigned            bool
	DriverTimeStamp         *time.Time `structs:",omitnested"`
	DriverType              string
	DriverVersion           string
	ImageSize               int64
	Inf                     string
	Product                 string
	ProductVersion          string
	Service                 string
	WdfVersion              string
}

// DriverPackage is a Root\InventoryDriverPackage sub-key.
type DriverPackage struct {
	KeyName               string
	KeyLastWriteTimestamp time.Time `structs:",omitnested"`

	Class        string
	ClassGUID    string
	Date         *time.Time `structs:",omitnested"`
	Directory    string
	DriverInBox  bool
	Hwids        string
	Inf          string
	Provider     string
	SubmissionID string
	SysFile      string
	Version      string
}
