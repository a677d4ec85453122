package main

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	// Drain concurrently so large summaries cannot block on a full pipe.
	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.String()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	return <-done, fnErr
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}

// resetParseFlags puts every parse option back to its default.
func resetParseFlags() {
	quiet = false
	jsonOut = false
	parseFile = ""
	parseCSVDir = ""
	parseCSVFile = ""
	parseInclude = false
	parseDateTime = ""
	parsePrecise = false
	parseNoLogs = false
	parseAllowDirty = false
	parseRecoverDeleted = false
	parseStrictLogs = false
	parseExcludeList = ""
	parseIncludeList = ""
	parseStore = ""
	parseManifest = false
	parseRunIDPrefix = false
	parseAgeRecipients = nil
}
