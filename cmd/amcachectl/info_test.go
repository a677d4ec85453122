package main

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/amcachekit/internal/hivetest"
	"github.com/joshuapare/amcachekit/pkg/amcache"
	"github.com/joshuapare/amcachekit/pkg/types"
)

func TestInfoCommand(t *testing.T) {
	tests := []struct {
		name        string
		opts        hivetest.Options
		deleted     bool
		wantContain []string
	}{
		{
			name:        "clean hive",
			wantContain: []string{"Hive Information:", "Format: modern", "Checksum valid: true", "Dirty: false"},
		},
		{
			name:        "dirty hive without logs",
			opts:        hivetest.Options{PrimarySequence: 4, SecondarySequence: 3},
			wantContain: []string{"Dirty: true", "Sequence numbers: 4 / 3", "Issues:"},
		},
		{
			name:        "deleted key count",
			deleted:     true,
			wantContain: []string{"Deleted keys: 0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quiet = false
			jsonOut = false
			infoDeleted = tt.deleted
			useTestLogger(t)
			path := writeHive(t, tt.opts)

			output, err := captureOutput(t, func() error { return runInfo([]string{path}) })
			require.NoError(t, err)
			assertContains(t, output, tt.wantContain)
		})
	}
}

func TestInfoJSON(t *testing.T) {
	quiet = false
	jsonOut = true
	infoDeleted = false
	t.Cleanup(func() { jsonOut = false })
	path := writeHive(t, hivetest.Options{})

	output, err := captureOutput(t, func() error { return runInfo([]string{path}) })
	require.NoError(t, err)

	var in amcache.Inspection
	require.NoError(t, json.Unmarshal([]byte(output), &in))
	assert.Equal(t, types.GenerationModern, in.Generation)
	assert.True(t, in.Hive.ChecksumOK)
}

func TestInfoMissingFile(t *testing.T) {
	jsonOut = false
	_, err := captureOutput(t, func() error {
		return runInfo([]string{filepath.Join(t.TempDir(), "missing.hve")})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to inspect hive")
}
