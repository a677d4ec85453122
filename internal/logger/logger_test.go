package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevels(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want logrus.Level
	}{
		{"default", Options{}, logrus.InfoLevel},
		{"debug", Options{Debug: true}, logrus.DebugLevel},
		{"trace wins", Options{Debug: true, Trace: true}, logrus.TraceLevel},
		{"quiet wins", Options{Trace: true, Quiet: true}, logrus.ErrorLevel},
		{"configured", Options{Level: "warn"}, logrus.WarnLevel},
		{"flag over config", Options{Level: "warn", Debug: true}, logrus.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.GetLevel())
		})
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Format: "json", Output: &buf})
	require.NoError(t, err)
	l.WithField("hive", "Amcache.hve").Warn("unknown value name")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Amcache.hve", entry["hive"])
	assert.Equal(t, "warning", entry["level"])
}

func TestBadOptions(t *testing.T) {
	_, err := New(Options{Format: "xml"})
	assert.Error(t, err)
	_, err = New(Options{Level: "loud"})
	assert.Error(t, err)
	assert.Error(t, Init(Options{Format: "xml"}))
}

func TestInitReplacesGlobal(t *testing.T) {
	old := L
	t.Cleanup(func() { L = old })

	var buf bytes.Buffer
	require.NoError(t, Init(Options{Output: &buf}))
	L.Info("hello")
	assert.Contains(t, buf.String(), "hello")
}
