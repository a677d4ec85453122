package amcache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/amcachekit/internal/hivetest"
	"github.com/joshuapare/amcachekit/pkg/amcache"
	"github.com/joshuapare/amcachekit/pkg/types"
)

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Amcache.hve")
	require.NoError(t, os.WriteFile(path, legacyHive(), 0o600))

	in, err := amcache.Inspect(path, nil)
	require.NoError(t, err)
	assert.Equal(t, types.GenerationLegacy, in.Generation)
	assert.False(t, in.Hive.Dirty)
	assert.True(t, in.Hive.ChecksumOK)
	assert.Zero(t, in.DeletedKeys)
	assert.Empty(t, in.Replay)
}

func TestInspectDirtyWithoutLogs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Amcache.hve")
	img := hivetest.Build(modernHive(), hivetest.Options{PrimarySequence: 5, SecondarySequence: 4})
	require.NoError(t, os.WriteFile(path, img, 0o600))

	in, err := amcache.Inspect(path, nil)
	require.NoError(t, err)
	assert.True(t, in.Hive.Dirty)
	assert.Equal(t, types.GenerationModern, in.Generation)
	assert.Equal(t, 1, in.Report.Count(types.IssueIncompleteHive))
}

func TestInspectDeletedKeys(t *testing.T) {
	root, r := hiveRoot()
	apps := r.Add("InventoryApplication")
	apps.Add("gone").SZ("ProgramId", "gone").Deleted = true
	dir := t.TempDir()
	path := filepath.Join(dir, "Amcache.hve")
	require.NoError(t, os.WriteFile(path, hivetest.Build(root, hivetest.Options{}), 0o600))

	in, err := amcache.Inspect(path, &amcache.Options{RecoverDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, 1, in.DeletedKeys)
}
