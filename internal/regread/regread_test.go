package regread

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/amcachekit/internal/format"
	"github.com/joshuapare/amcachekit/internal/hivetest"
	"github.com/joshuapare/amcachekit/pkg/types"
)

func sampleTree() *hivetest.Key {
	root := hivetest.NewKey("{11517B7C-E79D-4e20-961B-75A811715ADD}")
	r := root.Add("Root")
	app := r.Add("InventoryApplication")
	app.Add("0000a1").
		SZ("Name", "Notepad++").
		SZ("Publisher", "Don Ho").
		DWORD("Language", 1033).
		QWORD("Stamp", 132223104000000000).
		Binary("Blob", []byte{0x01, 0xAB, 0xFF}).
		MultiSZ("Paths", `C:\a`, `C:\b`)
	app.Add("0000a2").At(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)).SZ("Name", "Café")
	r.Add("File")
	return root
}

func openSample(t *testing.T, opts hivetest.Options) *Hive {
	t.Helper()
	h, err := OpenBytes(hivetest.Build(sampleTree(), opts), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestGetKeyCaseInsensitive(t *testing.T) {
	h := openSample(t, hivetest.Options{})

	tests := []struct {
		name string
		path string
	}{
		{"relative", `Root\InventoryApplication`},
		{"lower", `root\inventoryapplication`},
		{"with root name", `{11517B7C-E79D-4e20-961B-75A811715ADD}\Root\InventoryApplication`},
		{"slashes", `/Root/InventoryApplication/`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := h.GetKey(tt.path)
			require.NoError(t, err)
			assert.Equal(t, "InventoryApplication", k.Name())
			assert.Equal(t, `{11517B7C-E79D-4e20-961B-75A811715ADD}\Root\InventoryApplication`, k.Path())
		})
	}

	_, err := h.GetKey(`Root\Programs`)
	require.ErrorIs(t, err, types.ErrNotFound)
	require.True(t, IsNotFound(err))
	require.False(t, h.HasKey(`Root\Programs`))
	require.True(t, h.HasKey(`Root\File`))
}

func TestListKinds(t *testing.T) {
	for _, kind := range []hivetest.ListKind{hivetest.ListLF, hivetest.ListLH, hivetest.ListLI, hivetest.ListRI} {
		h := openSample(t, hivetest.Options{List: kind})
		k, err := h.GetKey(`Root\InventoryApplication`)
		require.NoError(t, err)
		subs, err := k.SubKeys()
		require.NoError(t, err)
		require.Len(t, subs, 2, "list kind %d", kind)
		assert.Equal(t, "0000a1", subs[0].Name())
		assert.Equal(t, "0000a2", subs[1].Name())
	}
}

func TestValueRendering(t *testing.T) {
	h := openSample(t, hivetest.Options{})
	k, err := h.GetKey(`Root\InventoryApplication\0000a1`)
	require.NoError(t, err)

	vals, err := k.Values()
	require.NoError(t, err)
	require.Len(t, vals, 6)

	want := map[string]string{
		"Name":      "Notepad++",
		"Publisher": "Don Ho",
		"Language":  "1033",
		"Stamp":     "132223104000000000",
		"Blob":      "01-AB-FF",
		"Paths":     `C:\a C:\b`,
	}
	for _, v := range vals {
		assert.Equal(t, want[v.Name()], v.Data(), v.Name())
	}

	v, err := k.Value("language")
	require.NoError(t, err)
	assert.Equal(t, types.REG_DWORD, v.Type())
	assert.Equal(t, []byte{0x09, 0x04, 0, 0}, v.Raw())

	_, err = k.Value("missing")
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestNonASCIINamesAndData(t *testing.T) {
	h := openSample(t, hivetest.Options{})
	k, err := h.GetKey(`Root\InventoryApplication\0000a2`)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC), k.LastWriteTime())
	v, err := k.Value("Name")
	require.NoError(t, err)
	assert.Equal(t, "Café", v.Data())

	root := hivetest.NewKey("R")
	root.Add("Ünïcode").SZ("Ключ", "значение")
	h2, err := OpenBytes(hivetest.Build(root, hivetest.Options{}), Options{})
	require.NoError(t, err)
	k2, err := h2.GetKey("ünïcode")
	require.NoError(t, err)
	v2, err := k2.Value("Ключ")
	require.NoError(t, err)
	assert.Equal(t, "значение", v2.Data())
}

func TestBigDataRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789abcdef"), 3000) // spans three db blocks
	root := hivetest.NewKey("R")
	root.Add("K").Binary("Big", payload)
	h, err := OpenBytes(hivetest.Build(root, hivetest.Options{}), Options{})
	require.NoError(t, err)

	k, err := h.GetKey("K")
	require.NoError(t, err)
	v, err := k.Value("Big")
	require.NoError(t, err)
	require.Equal(t, payload, v.Raw())
}

func TestTombstonedSubkeysAreSkipped(t *testing.T) {
	root := hivetest.NewKey("R")
	parent := root.Add("P")
	parent.Add("live")
	parent.Add("gone").Tombstoned = true

	h, err := OpenBytes(hivetest.Build(root, hivetest.Options{}), Options{})
	require.NoError(t, err)
	k, err := h.GetKey("P")
	require.NoError(t, err)
	subs, err := k.SubKeys()
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, "live", subs[0].Name())
}

func TestRecoverDeleted(t *testing.T) {
	root := hivetest.NewKey("R")
	parent := root.Add("P")
	parent.Add("live")
	d := parent.Add("removed")
	d.Deleted = true
	d.SZ("Name", "old")
	img := hivetest.Build(root, hivetest.Options{})

	plain, err := OpenBytes(img, Options{})
	require.NoError(t, err)
	k, err := plain.GetKey("P")
	require.NoError(t, err)
	subs, err := k.SubKeys()
	require.NoError(t, err)
	require.Len(t, subs, 1)

	rec, err := OpenBytes(img, Options{RecoverDeleted: true})
	require.NoError(t, err)
	k, err = rec.GetKey("P")
	require.NoError(t, err)
	subs, err = k.SubKeys()
	require.NoError(t, err)
	require.Len(t, subs, 2)
	require.Equal(t, "removed", subs[1].Name())
	require.True(t, subs[1].Deleted())
	require.Equal(t, `R\P\removed`, subs[1].Path())
	v, err := subs[1].Value("Name")
	require.NoError(t, err)
	require.Equal(t, "old", v.Data())
	require.Empty(t, rec.DeletedKeys())
}

func TestOpenRejectsNonHive(t *testing.T) {
	_, err := OpenBytes(make([]byte, 4096), Options{})
	require.ErrorIs(t, err, types.ErrNotHive)

	_, err = OpenBytes([]byte("regf"), Options{})
	require.Error(t, err)
	require.NotErrorIs(t, err, types.ErrNotHive)

	_, err = OpenBytes([]byte("short and not a hive"), Options{})
	require.ErrorIs(t, err, types.ErrNotHive)
}

func TestOpenFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Amcache.hve")
	require.NoError(t, os.WriteFile(path, hivetest.Build(sampleTree(), hivetest.Options{}), 0o600))

	h, err := Open(path, Options{})
	require.NoError(t, err)
	k, err := h.GetKey(`Root\File`)
	require.NoError(t, err)
	require.Equal(t, "File", k.Name())
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	_, err = h.Root()
	require.Error(t, err)
}

func TestWalk(t *testing.T) {
	h := openSample(t, hivetest.Options{List: hivetest.ListRI})
	root, err := h.Root()
	require.NoError(t, err)
	var names []string
	require.NoError(t, Walk(root, func(k *Key) error {
		names = append(names, k.Name())
		return nil
	}))
	require.Equal(t, []string{
		"{11517B7C-E79D-4e20-961B-75A811715ADD}", "Root", "InventoryApplication", "0000a1", "0000a2", "File",
	}, names)
}

func TestDecodeMultiString(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []string
	}{
		{"empty", nil, nil},
		{"terminated", append(append(hivetest.UTF16("a", true), hivetest.UTF16("bc", true)...), 0, 0), []string{"a", "bc"}},
		{"no final terminator", append(hivetest.UTF16("a", true), hivetest.UTF16("b", false)...), []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeMultiString(tt.in))
		})
	}
}

func TestUndecodableValueFailsValues(t *testing.T) {
	root := hivetest.NewKey("R")
	root.Add("K").SZ("Path", `C:\a.exe`).SZ("Hash", "0000da39a3ee5e6b4b0d3255bfef95601890afd80709")
	img := hivetest.Build(root, hivetest.Options{})
	require.True(t, hivetest.SetValueDataOffset(img, "Hash", 0x7FFFFFF0))

	h, err := OpenBytes(img, Options{})
	require.NoError(t, err)
	k, err := h.GetKey("K")
	require.NoError(t, err)

	vals, err := k.Values()
	require.Error(t, err)
	assert.Nil(t, vals)
	assert.ErrorIs(t, err, types.ErrCorrupt)
	assert.Contains(t, err.Error(), `values of K`)

	_, err = k.Value("Path")
	assert.ErrorIs(t, err, types.ErrCorrupt)
}

func TestShortDataCellFailsValues(t *testing.T) {
	root := hivetest.NewKey("R")
	root.Add("K").SZ("Long", "a value long enough to sit outside the vk")
	img := hivetest.Build(root, hivetest.Options{})

	// Point the value at its own vk cell, which is shorter than the string.
	vk := bytes.Index(img, []byte{'v', 'k', 4, 0})
	require.Positive(t, vk)
	require.True(t, hivetest.SetValueDataOffset(img, "Long", uint32(vk-format.HeaderSize-format.CellHeaderSize)))

	h, err := OpenBytes(img, Options{})
	require.NoError(t, err)
	k, err := h.GetKey("K")
	require.NoError(t, err)
	_, err = k.Values()
	assert.ErrorIs(t, err, types.ErrCorrupt)
}

func TestUndecodableSubkeyIsReported(t *testing.T) {
	root := hivetest.NewKey("R")
	parent := root.Add("P")
	parent.Add("first")
	parent.Add("mangled")
	parent.Add("last")
	parent.Add("gone").Tombstoned = true
	img := hivetest.Build(root, hivetest.Options{})
	require.True(t, hivetest.CorruptKey(img, "mangled"))

	h, err := OpenBytes(img, Options{})
	require.NoError(t, err)
	k, err := h.GetKey("P")
	require.NoError(t, err)

	subs, err := k.SubKeys()
	require.Error(t, err)
	names := make([]string, 0, len(subs))
	for _, s := range subs {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"first", "last"}, names)

	broken, err := Broken(err)
	require.NoError(t, err)
	require.Len(t, broken, 1)
	assert.Contains(t, broken[0].Path(), `P\<cell `)
	assert.Contains(t, broken[0].Error(), "nk")

	last, err := k.SubKey("last")
	require.NoError(t, err)
	assert.Equal(t, `P\last`, last.Path())
}
