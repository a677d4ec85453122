package txlog

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/amcachekit/internal/diag"
	"github.com/joshuapare/amcachekit/internal/format"
	"github.com/joshuapare/amcachekit/internal/hivetest"
	"github.com/joshuapare/amcachekit/internal/regread"
	"github.com/joshuapare/amcachekit/pkg/types"
)

func tree(programs ...string) *hivetest.Key {
	root := hivetest.NewKey("{11517B7C-E79D-4e20-961B-75A811715ADD}")
	apps := root.Add("Root").Add("InventoryApplication")
	for _, p := range programs {
		apps.Add(p).SZ("ProgramId", p).SZ("Name", "name of "+p)
	}
	return root
}

func newSink() *diag.Sink {
	log, _ := test.NewNullLogger()
	return diag.New(log)
}

func bins(img []byte) []byte { return img[format.HeaderSize:] }

func dataSize(img []byte) uint32 { return uint32(len(img) - format.HeaderSize) }

func programCount(t *testing.T, img []byte) int {
	t.Helper()
	h, err := regread.OpenBytes(img, regread.Options{})
	require.NoError(t, err)
	k, err := h.GetKey(`Root\InventoryApplication`)
	require.NoError(t, err)
	subs, err := k.SubKeys()
	require.NoError(t, err)
	return len(subs)
}

func TestReplayNewFormat(t *testing.T) {
	dirty := hivetest.Build(tree("a"), hivetest.Options{PrimarySequence: 6, SecondarySequence: 5})
	flushed := hivetest.Build(tree("a", "b"), hivetest.Options{})
	original := append([]byte(nil), dirty...)

	log := hivetest.NewLog(5, hivetest.LogEntry(5, dataSize(flushed), hivetest.Diff(dirty, flushed)...))
	res, err := Replay(dirty, []Log{{Name: "Amcache.hve.LOG1", Data: log}}, true, newSink())
	require.NoError(t, err)

	assert.Equal(t, original, dirty, "input image must not be modified")
	assert.Equal(t, bins(flushed), bins(res.Image))
	assert.Equal(t, uint32(6), res.Sequence)
	require.Equal(t, 1, res.Journal.Len())
	assert.Equal(t, "Amcache.hve.LOG1", res.Journal.Entries()[0].Log)

	h, err := format.ParseHeader(res.Image)
	require.NoError(t, err)
	assert.True(t, h.ChecksumOK)
	assert.False(t, h.IsDirty())
	assert.Equal(t, uint32(6), h.PrimarySequence)
	assert.Equal(t, 2, programCount(t, res.Image))
}

func TestReplaySinglePage(t *testing.T) {
	img := hivetest.Build(tree("a"), hivetest.Options{PrimarySequence: 3, SecondarySequence: 2})
	page := hivetest.Page{Offset: dataSize(img) - format.LogSectorSize, Data: bytes.Repeat([]byte{0x5A}, format.LogSectorSize)}

	log := hivetest.NewLog(2, hivetest.LogEntry(2, dataSize(img), page))
	res, err := Replay(img, []Log{{Name: "x.LOG1", Data: log}}, true, newSink())
	require.NoError(t, err)

	at := format.HeaderSize + int(page.Offset)
	assert.Equal(t, page.Data, res.Image[at:at+format.LogSectorSize])
	assert.Equal(t, img[format.HeaderSize:at], res.Image[format.HeaderSize:at])

	h, err := format.ParseHeader(res.Image)
	require.NoError(t, err)
	assert.True(t, h.ChecksumOK)
	assert.Equal(t, uint32(3), h.PrimarySequence)
	assert.Equal(t, uint32(3), h.SecondarySequence)
}

func TestReplayAcrossLogsInSequenceOrder(t *testing.T) {
	dirty := hivetest.Build(tree("a"), hivetest.Options{PrimarySequence: 11, SecondarySequence: 10})
	step1 := hivetest.Build(tree("a", "b"), hivetest.Options{})
	step2 := hivetest.Build(tree("a", "b", "c"), hivetest.Options{})

	e10 := hivetest.LogEntry(10, dataSize(step1), hivetest.Diff(dirty, step1)...)
	e11 := hivetest.LogEntry(11, dataSize(step2), hivetest.Diff(step1, step2)...)
	stale := hivetest.LogEntry(8, dataSize(dirty), hivetest.Diff(step2, dirty)...)

	logs := []Log{
		{Name: "Amcache.hve.LOG1", Data: hivetest.NewLog(11, e11)},
		{Name: "Amcache.hve.LOG2", Data: hivetest.NewLog(8, stale, e10)},
	}
	res, err := Replay(dirty, logs, true, newSink())
	require.NoError(t, err)

	assert.Equal(t, bins(step2), bins(res.Image))
	assert.Equal(t, uint32(12), res.Sequence)
	entries := res.Journal.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, uint32(10), entries[0].Sequence)
	assert.Equal(t, "Amcache.hve.LOG2", entries[0].Log)
	assert.Equal(t, uint32(11), entries[1].Sequence)
	assert.Equal(t, 3, programCount(t, res.Image))
}

func TestReplayDuplicateEntryTakenOnce(t *testing.T) {
	dirty := hivetest.Build(tree("a"), hivetest.Options{PrimarySequence: 2, SecondarySequence: 1})
	flushed := hivetest.Build(tree("a", "b"), hivetest.Options{})
	e := hivetest.LogEntry(1, dataSize(flushed), hivetest.Diff(dirty, flushed)...)

	logs := []Log{
		{Name: "h.LOG1", Data: hivetest.NewLog(1, e)},
		{Name: "h.LOG2", Data: hivetest.NewLog(1, e)},
	}
	res, err := Replay(dirty, logs, true, newSink())
	require.NoError(t, err)
	require.Equal(t, 1, res.Journal.Len())
	assert.Equal(t, "h.LOG1", res.Journal.Entries()[0].Log)
	assert.Equal(t, uint32(2), res.Sequence)
}

func TestReplayGrowsImage(t *testing.T) {
	dirty := hivetest.Build(tree("a"), hivetest.Options{PrimarySequence: 2, SecondarySequence: 1})
	flushed := hivetest.Build(tree("a", "b"), hivetest.Options{MinDataSize: 3 * format.HBINAlignment})
	require.Greater(t, len(flushed), len(dirty))

	log := hivetest.NewLog(1, hivetest.LogEntry(1, dataSize(flushed), hivetest.Diff(dirty, flushed)...))
	res, err := Replay(dirty, []Log{{Name: "h.LOG1", Data: log}}, true, newSink())
	require.NoError(t, err)
	require.Len(t, res.Image, len(flushed))
	assert.Equal(t, bins(flushed), bins(res.Image))

	h, err := format.ParseHeader(res.Image)
	require.NoError(t, err)
	assert.Equal(t, dataSize(flushed), h.HiveBinsDataSize)
	assert.Equal(t, 2, programCount(t, res.Image))
}

func TestReplayCorruptHash(t *testing.T) {
	dirty := hivetest.Build(tree("a"), hivetest.Options{PrimarySequence: 6, SecondarySequence: 5})
	flushed := hivetest.Build(tree("a", "b"), hivetest.Options{})
	e := hivetest.LogEntry(5, dataSize(flushed), hivetest.Diff(dirty, flushed)...)
	e[len(e)-1] ^= 0xFF
	logs := []Log{{Name: "h.LOG1", Data: hivetest.NewLog(5, e)}}

	t.Run("strict", func(t *testing.T) {
		_, err := Replay(dirty, logs, true, newSink())
		require.Error(t, err)
		var rerr *ReplayError
		require.True(t, errors.As(err, &rerr))
		assert.Equal(t, uint32(5), rerr.Sequence)
		assert.ErrorIs(t, err, errHash)
	})

	t.Run("lenient", func(t *testing.T) {
		sink := newSink()
		res, err := Replay(dirty, logs, false, sink)
		require.NoError(t, err)
		assert.Equal(t, dirty, res.Image)
		assert.Zero(t, res.Sequence)
		assert.Zero(t, res.Journal.Len())
		assert.Equal(t, 1, sink.Report().Count(types.IssueLogReplay))
	})
}

func TestReplayStopsAtFirstProblem(t *testing.T) {
	dirty := hivetest.Build(tree("a"), hivetest.Options{PrimarySequence: 21, SecondarySequence: 20})
	step1 := hivetest.Build(tree("a", "b"), hivetest.Options{})
	step2 := hivetest.Build(tree("a", "b", "c"), hivetest.Options{})

	e20 := hivetest.LogEntry(20, dataSize(step1), hivetest.Diff(dirty, step1)...)
	e21 := hivetest.LogEntry(21, dataSize(step2), hivetest.Diff(step1, step2)...)
	e21[len(e21)-1] ^= 0xFF
	gap := hivetest.LogEntry(22, dataSize(step2), hivetest.Diff(step1, step2)...)

	tests := []struct {
		name    string
		entries [][]byte
		cause   error
	}{
		{"bad hash", [][]byte{e20, e21}, errHash},
		{"sequence gap", [][]byte{e20, gap}, errGap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := []Log{{Name: "h.LOG1", Data: hivetest.NewLog(20, tt.entries...)}}

			sink := newSink()
			res, err := Replay(dirty, logs, false, sink)
			require.NoError(t, err)
			assert.Equal(t, bins(step1), bins(res.Image))
			assert.Equal(t, uint32(21), res.Sequence)
			assert.Equal(t, 1, sink.Report().Count(types.IssueLogReplay))

			_, err = Replay(dirty, logs, true, newSink())
			assert.ErrorIs(t, err, tt.cause)
		})
	}
}

func TestReplayPageOutsideData(t *testing.T) {
	img := hivetest.Build(tree("a"), hivetest.Options{PrimarySequence: 2, SecondarySequence: 1})
	page := hivetest.Page{Offset: dataSize(img), Data: make([]byte, format.LogSectorSize)}
	log := hivetest.NewLog(1, hivetest.LogEntry(1, dataSize(img), page))

	_, err := Replay(img, []Log{{Name: "h.LOG1", Data: log}}, true, newSink())
	assert.ErrorIs(t, err, errPage)
}

func TestReplayOldFormat(t *testing.T) {
	dirty := hivetest.Build(tree("a"), hivetest.Options{PrimarySequence: 9, SecondarySequence: 8})
	flushed := hivetest.Build(tree("a", "b"), hivetest.Options{})
	log := hivetest.OldLog(9, dataSize(flushed), hivetest.Diff(dirty, flushed)...)

	res, err := Replay(dirty, []Log{{Name: "Amcache.hve.LOG", Data: log}}, true, newSink())
	require.NoError(t, err)
	assert.Equal(t, bins(flushed), bins(res.Image))
	assert.Equal(t, uint32(9), res.Sequence)
	assert.Equal(t, 2, programCount(t, res.Image))
}

func TestReplayOldFormatTooOld(t *testing.T) {
	dirty := hivetest.Build(tree("a"), hivetest.Options{PrimarySequence: 9, SecondarySequence: 8})
	log := hivetest.OldLog(3, dataSize(dirty))

	_, err := Replay(dirty, []Log{{Name: "h.LOG", Data: log}}, true, newSink())
	var rerr *ReplayError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "h.LOG", rerr.Log)
}

func TestReplayUnreadableLog(t *testing.T) {
	dirty := hivetest.Build(tree("a"), hivetest.Options{PrimarySequence: 2, SecondarySequence: 1})
	logs := []Log{{Name: "h.LOG1", Data: []byte("definitely not a log")}}

	_, err := Replay(dirty, logs, true, newSink())
	require.Error(t, err)

	sink := newSink()
	res, err := Replay(dirty, logs, false, sink)
	require.NoError(t, err)
	assert.Equal(t, dirty, res.Image)
	assert.Equal(t, 1, sink.Report().Count(types.IssueLogReplay))
}

func TestReplayNotAHive(t *testing.T) {
	_, err := Replay([]byte("nope"), nil, false, newSink())
	require.Error(t, err)
}

func TestJournalSummary(t *testing.T) {
	var j Journal
	assert.Equal(t, "replay: nothing applied", j.Summary())

	j.add(Applied{Log: "a.LOG1", Sequence: 4, Pages: 2, Bytes: 1024})
	j.add(Applied{Log: "a.LOG2", Sequence: 5, Pages: 1, Bytes: 512})
	assert.Equal(t, 3, j.PageCount())
	assert.Equal(t,
		"replay: 2 entries, 3 pages\n"+
			"  [1] a.LOG1 seq=4 pages=2 bytes=1024\n"+
			"  [2] a.LOG2 seq=5 pages=1 bytes=512\n",
		j.Summary())
}
