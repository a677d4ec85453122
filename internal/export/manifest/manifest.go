// Package manifest records one run: who ran it where, which inputs were read
// and which files were produced, each with a SHA-256 and a BLAKE3 digest.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/shirou/gopsutil/v4/host"
	"lukechampine.com/blake3"

	"github.com/joshuapare/amcachekit/pkg/types"
)

// Digest identifies one file by content.
type Digest struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`
}

// Host describes the examiner machine.
type Host struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform,omitempty"`
	PlatformVersion string `json:"platform_version,omitempty"`
	KernelVersion   string `json:"kernel_version,omitempty"`
	KernelArch      string `json:"kernel_arch,omitempty"`
}

// Counts summarises the records of a result.
type Counts struct {
	Programs         int    `json:"programs"`
	FileRecords      uint64 `json:"file_records"`
	Unassociated     int    `json:"unassociated"`
	Shortcuts        int    `json:"shortcuts,omitempty"`
	DeviceContainers int    `json:"device_containers,omitempty"`
	DevicePnps       int    `json:"device_pnps,omitempty"`
	DriverBinaries   int    `json:"driver_binaries,omitempty"`
	DriverPackages   int    `json:"driver_packages,omitempty"`
}

// Manifest is the JSON document written next to the exports.
type Manifest struct {
	RunID      string           `json:"run_id"`
	Tool       string           `json:"tool"`
	Version    string           `json:"version"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Elevated   bool             `json:"elevated"`
	Host       *Host            `json:"host,omitempty"`
	Generation types.Generation `json:"generation"`
	Hive       types.HiveInfo   `json:"hive"`
	Counts     Counts           `json:"counts"`
	Issues     map[string]int   `json:"issues"`
	Inputs     []Digest         `json:"inputs"`
	Outputs    []Digest         `json:"outputs"`
}

// NewRunID returns a time-sortable run identifier.
func NewRunID() string {
	return ksuid.New().String()
}

// New starts a manifest for res.
func New(runID, tool, version string, started time.Time, res *types.Result) *Manifest {
	m := &Manifest{
		RunID:     runID,
		Tool:      tool,
		Version:   version,
		StartedAt: started.UTC(),
		Issues:    map[string]int{},
		Inputs:    []Digest{},
		Outputs:   []Digest{},
	}
	if res != nil {
		m.Generation = res.Generation
		m.Hive = res.Hive
		m.Counts = CountsOf(res)
		m.Issues = res.Report.Summary()
	}
	return m
}

// CountsOf tallies the records of res.
func CountsOf(res *types.Result) Counts {
	c := Counts{
		Programs:     res.ProgramCount(),
		FileRecords:  res.TotalFileRecords(),
		Unassociated: res.UnassociatedCount(),
	}
	if inv := res.Modern; inv != nil {
		c.Shortcuts = len(inv.Shortcuts)
		c.DeviceContainers = len(inv.DeviceContainers)
		c.DevicePnps = len(inv.DevicePnps)
		c.DriverBinaries = len(inv.DriverBinaries)
		c.DriverPackages = len(inv.DriverPackages)
	}
	return c
}

// CollectHost reads the examiner host description.
func CollectHost() (*Host, error) {
	info, err := host.Info()
	if err != nil {
		return nil, fmt.Errorf("host info: %w", err)
	}
	return &Host{
		Hostname:        info.Hostname,
		OS:              info.OS,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelVersion:   info.KernelVersion,
		KernelArch:      info.KernelArch,
	}, nil
}

// HashFile digests the file at path.
func HashFile(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	s := sha256.New()
	b := blake3.New(32, nil)
	n, err := io.Copy(io.MultiWriter(s, b), f)
	if err != nil {
		return Digest{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return Digest{
		Path:   path,
		Size:   n,
		SHA256: hex.EncodeToString(s.Sum(nil)),
		BLAKE3: hex.EncodeToString(b.Sum(nil)),
	}, nil
}

// AddInputs digests and records files that were read.
func (m *Manifest) AddInputs(paths ...string) error {
	return addDigests(&m.Inputs, paths)
}

// AddOutputs digests and records files that were produced.
func (m *Manifest) AddOutputs(paths ...string) error {
	return addDigests(&m.Outputs, paths)
}

func addDigests(dst *[]Digest, paths []string) error {
	for _, p := range paths {
		d, err := HashFile(p)
		if err != nil {
			return err
		}
		*dst = append(*dst, d)
	}
	return nil
}

// Write stamps the finish time and stores the manifest as indented JSON.
func (m *Manifest) Write(path string, finished time.Time) error {
	m.FinishedAt = finished.UTC()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Read loads a manifest written by Write.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
