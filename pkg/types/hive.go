package types

import "time"

// HiveInfo exposes base block metadata and the recovery applied to it.
type HiveInfo struct {
	Path              string    `json:"path"`
	PrimarySequence   uint32    `json:"primary_sequence"`
	SecondarySequence uint32    `json:"secondary_sequence"`
	LastWrite         time.Time `json:"last_write"`
	MajorVersion      uint32    `json:"major_version"`
	MinorVersion      uint32    `json:"minor_version"`
	RootCellOffset    uint32    `json:"root_cell_offset"`
	HiveBinsDataSize  uint32    `json:"hive_bins_data_size"`
	ChecksumOK        bool      `json:"checksum_ok"`

	// Dirty reports the state found on disk, before any log replay.
	Dirty bool `json:"dirty"`
	// Recovered is set when transaction logs were replayed into the image.
	Recovered bool `json:"recovered"`
	// RawCopy is set when the hive was read through the locked-file fallback.
	RawCopy bool `json:"raw_copy"`
	// LogFiles lists the transaction logs found next to the hive.
	LogFiles []string `json:"log_files,omitempty"`
}
