// Package txlog replays registry transaction logs (.LOG, .LOG1, .LOG2) into
// an in-memory hive image so a dirty hive can be read as Windows would have
// left it after a clean flush.
//
// Both log formats are handled. New-format logs (Windows 8.1 and later) carry
// HvLE entries that are applied in ascending sequence order starting at the
// hive's secondary sequence number, across all supplied logs. Old-format
// logs carry a single DIRT bitmap of dirty pages.
package txlog

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/joshuapare/amcachekit/internal/diag"
	"github.com/joshuapare/amcachekit/internal/format"
)

// Log is one transaction log read into memory.
type Log struct {
	Name string
	Data []byte
}

// Result is the outcome of a replay.
type Result struct {
	// Image is a private copy of the input with all applicable entries
	// written. It is returned even when nothing could be applied.
	Image []byte
	// Journal lists what was written, in order.
	Journal Journal
	// Sequence is the sequence number now stored in both header fields, or
	// zero when the header was left untouched.
	Sequence uint32
}

var (
	errHash = errors.New("entry hash mismatch")
	errGap  = errors.New("sequence gap")
	errPage = errors.New("dirty page outside hive bins data")
)

type entry struct {
	log string
	format.LogEntry
}

type oldLog struct {
	name string
	format.LogFile
}

// Replay applies logs to a copy of image. With strict set any unparseable
// log, failed hash, sequence gap or out-of-range page is returned as a
// *ReplayError. Otherwise replay stops at the first such problem, records a
// LogReplay issue on sink, and the entries applied so far are kept.
func Replay(image []byte, logs []Log, strict bool, sink *diag.Sink) (Result, error) {
	head, err := format.ParseHeader(image)
	if err != nil {
		return Result{}, fmt.Errorf("hive base block: %w", err)
	}
	r := &replayer{
		img:    append([]byte(nil), image...),
		head:   head,
		strict: strict,
		sink:   sink,
	}

	var entries []entry
	var old []oldLog
	for _, l := range logs {
		lf, err := format.ParseLog(l.Data)
		if err != nil {
			if ferr := r.fail(&ReplayError{Log: l.Name, Message: "unreadable log", Cause: err}); ferr != nil {
				return Result{}, ferr
			}
			continue
		}
		switch lf.Format {
		case format.LogFormatNew:
			for _, e := range lf.Entries {
				entries = append(entries, entry{log: l.Name, LogEntry: e})
			}
		case format.LogFormatOld:
			old = append(old, oldLog{name: l.Name, LogFile: lf})
		default:
			sink.Log().WithField("log", l.Name).Debug("log carries no payload")
		}
	}

	switch {
	case len(entries) > 0:
		err = r.replayNew(entries)
	case len(old) > 0:
		err = r.replayOld(old)
	case !r.stopped:
		err = r.fail(&ReplayError{Message: "no log carried replayable data"})
	}
	if err != nil {
		return Result{}, err
	}

	res := Result{Image: r.img, Journal: r.journal, Sequence: r.seq}
	if r.journal.Len() > 0 {
		sink.Log().WithField("entries", r.journal.Len()).
			WithField("pages", r.journal.PageCount()).
			WithField("sequence", r.seq).
			Info("transaction logs replayed")
	}
	return res, nil
}

type replayer struct {
	img     []byte
	head    format.Header
	strict  bool
	sink    *diag.Sink
	journal Journal
	seq     uint32
	stopped bool
}

// fail returns err in strict mode. Otherwise it records the issue, stops
// further replay and returns nil.
func (r *replayer) fail(err *ReplayError) error {
	if r.strict {
		return err
	}
	msg := err.Message
	if err.Cause != nil {
		msg += ": " + err.Cause.Error()
	}
	if err.Sequence != 0 {
		msg = fmt.Sprintf("seq %d: %s", err.Sequence, msg)
	}
	r.sink.LogReplay(err.Log, msg)
	r.stopped = true
	return nil
}

func (r *replayer) replayNew(entries []entry) error {
	// Stable so that an entry present in both LOG1 and LOG2 is taken from
	// the first log supplied.
	slices.SortStableFunc(entries, func(a, b entry) int {
		return cmp.Compare(a.Sequence, b.Sequence)
	})

	next := r.head.SecondarySequence
	for _, e := range entries {
		if e.Sequence < next {
			continue
		}
		var rerr *ReplayError
		switch {
		case e.Sequence != next:
			rerr = &ReplayError{Log: e.log, Sequence: e.Sequence, Message: fmt.Sprintf("expected %d", next), Cause: errGap}
		case !e.HashOK:
			rerr = &ReplayError{Log: e.log, Sequence: e.Sequence, Message: "rejected", Cause: errHash}
		default:
			rerr = r.apply(e.log, e.Sequence, e.HiveBinsDataSize, e.Pages)
		}
		if rerr != nil {
			if err := r.fail(rerr); err != nil {
				return err
			}
			break
		}
		next++
	}
	if r.journal.Len() == 0 {
		if r.stopped {
			return nil
		}
		return r.fail(&ReplayError{Sequence: next, Message: "no entry at the hive's secondary sequence"})
	}
	return r.seal(next)
}

// replayOld applies the most recent old-format log that is not older than
// the hive's last completed write.
func (r *replayer) replayOld(logs []oldLog) error {
	var best *oldLog
	for i := range logs {
		l := &logs[i]
		if l.Header.PrimarySequence < r.head.SecondarySequence {
			continue
		}
		if best == nil || l.Header.PrimarySequence > best.Header.PrimarySequence {
			best = l
		}
	}
	if best == nil {
		return r.fail(&ReplayError{Log: logs[0].name, Message: "old-format logs predate the hive"})
	}
	if best.Header.HiveBinsDataSize == 0 {
		return r.fail(&ReplayError{Log: best.name, Message: "log records no hive bins data size"})
	}
	if rerr := r.apply(best.name, 0, best.Header.HiveBinsDataSize, best.Pages); rerr != nil {
		return r.fail(rerr)
	}
	return r.seal(max(best.Header.PrimarySequence, r.head.PrimarySequence))
}

// apply writes one set of dirty pages. Pages are checked against dataSize
// before anything is written so a rejected entry leaves the image untouched.
func (r *replayer) apply(log string, seq, dataSize uint32, pages []format.DirtyPage) *ReplayError {
	for _, p := range pages {
		if uint64(p.Offset)+uint64(len(p.Data)) > uint64(dataSize) {
			return &ReplayError{Log: log, Sequence: seq,
				Message: fmt.Sprintf("page at 0x%X size %d", p.Offset, len(p.Data)), Cause: errPage}
		}
	}
	if want := format.HeaderSize + int(dataSize); want > len(r.img) {
		r.img = append(r.img, make([]byte, want-len(r.img))...)
	}
	if err := format.SetHiveBinsDataSize(r.img, dataSize); err != nil {
		return &ReplayError{Log: log, Sequence: seq, Message: "set data size", Cause: err}
	}
	written := 0
	for _, p := range pages {
		copy(r.img[format.HeaderSize+int(p.Offset):], p.Data)
		written += len(p.Data)
	}
	r.journal.add(Applied{Log: log, Sequence: seq, Pages: len(pages), Bytes: written})
	r.sink.Log().WithField("log", log).WithField("sequence", seq).
		WithField("pages", len(pages)).Debug("applied log entry")
	return nil
}

func (r *replayer) seal(seq uint32) error {
	if err := format.SetSequences(r.img, seq, seq); err != nil {
		return fmt.Errorf("seal hive header: %w", err)
	}
	r.seq = seq
	return nil
}
