package fieldconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1024", 1024, false},
		{"0x400", 1024, false},
		{"0X1f", 31, false},
		{"0", 0, false},
		{"0x", 0, true},
		{"0xzz", 0, true},
		{"", 0, true},
		{"12kb", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Size(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInts(t *testing.T) {
	n, err := Int32("-12")
	require.NoError(t, err)
	assert.Equal(t, int64(-12), n)

	_, err = Int32("4294967296")
	require.Error(t, err)

	u, err := Uint64("18446744073709551615")
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), u)

	p, err := Int32Ptr("1033")
	require.NoError(t, err)
	assert.Equal(t, int64(1033), *p)
}

func TestBool(t *testing.T) {
	assert.True(t, Bool("1"))
	for _, s := range []string{"0", "", "true", "01", " 1"} {
		assert.False(t, Bool(s), s)
	}
}

func TestSHA1(t *testing.T) {
	assert.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", SHA1("0000DA39A3EE5E6B4B0D3255BFEF95601890AFD80709"))
	assert.Equal(t, "", SHA1("0000"))
	assert.Equal(t, "", SHA1(""))
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		`C:\Windows\notepad.exe`:   ".exe",
		`C:\dir.v2\README`:         "",
		`c:\program files\a.b.DLL`: ".DLL",
		`C:\trailing.`:             "",
		`noext`:                    "",
		`C:x.sys`:                  ".sys",
		`\\server\share\file.msi`:  ".msi",
	}
	for in, want := range tests {
		assert.Equal(t, want, Extension(in), in)
	}
}
