// Package recovery brings an Amcache hive into a consistent state and decides
// which schema generation it carries. A Session owns the hive until Close.
package recovery

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/joshuapare/amcachekit/internal/diag"
	"github.com/joshuapare/amcachekit/internal/rawcopy"
	"github.com/joshuapare/amcachekit/internal/regread"
	"github.com/joshuapare/amcachekit/internal/timestamp"
	"github.com/joshuapare/amcachekit/internal/txlog"
	"github.com/joshuapare/amcachekit/pkg/types"
)

// Options controls recovery. The zero value replays logs leniently and
// refuses dirty hives that have none.
type Options struct {
	// RecoverDeleted surfaces keys found in free cells.
	RecoverDeleted bool
	// SkipTransactionLogs parses a dirty hive as found on disk, with or
	// without logs next to it.
	SkipTransactionLogs bool
	// AllowDirtyWithoutLogs parses a dirty hive that has no logs instead of
	// failing with ErrDirtyHiveNoLogs.
	AllowDirtyWithoutLogs bool
	// StrictLogReplay fails on the first unusable log entry instead of
	// stopping there with a LogReplay issue.
	StrictLogReplay bool
}

func (o Options) reader() regread.Options {
	return regread.Options{RecoverDeleted: o.RecoverDeleted}
}

// Session is an open, recovered hive.
type Session struct {
	Info       types.HiveInfo
	Generation types.Generation
	// Journal lists the log entries replayed, if any.
	Journal txlog.Journal

	hive *regread.Hive
	opts Options
	sink *diag.Sink
}

// Open opens the hive at path. Logs are the files in the same directory
// whose names start with the hive's name followed by ".LOG". A hive locked
// by another process is read through rawcopy when the process is elevated.
func Open(path string, opts Options, sink *diag.Sink) (*Session, error) {
	logPaths, err := FindLogs(path)
	if err != nil {
		return nil, err
	}
	h, err := regread.Open(path, opts.reader())
	if err != nil {
		if rawcopy.IsSharingViolation(err) {
			return openLocked(path, logPaths, opts, sink)
		}
		return nil, err
	}
	s := newSession(path, h, opts, sink)
	s.Info.LogFiles = baseNames(logPaths)
	if err := s.recover(func() ([]txlog.Log, error) { return readLogs(logPaths) }); err != nil {
		_ = s.Close()
		return nil, err
	}
	s.detect()
	return s, nil
}

// OpenBytes opens an in-memory hive image with its logs. name is used for
// diagnostics only.
func OpenBytes(name string, image []byte, logs []txlog.Log, opts Options, sink *diag.Sink) (*Session, error) {
	h, err := regread.OpenBytes(image, opts.reader())
	if err != nil {
		return nil, err
	}
	s := newSession(name, h, opts, sink)
	for _, l := range logs {
		s.Info.LogFiles = append(s.Info.LogFiles, l.Name)
	}
	if err := s.recover(func() ([]txlog.Log, error) { return logs, nil }); err != nil {
		_ = s.Close()
		return nil, err
	}
	s.detect()
	return s, nil
}

func openLocked(path string, logPaths []string, opts Options, sink *diag.Sink) (*Session, error) {
	if !rawcopy.IsElevated() {
		return nil, &types.Error{Kind: types.ErrKindAccess, Msg: path, Err: types.ErrLockedFileAccessDenied}
	}
	sink.Log().WithField("hive", path).Info("hive is locked, reading through raw copy")
	files, err := rawcopy.Copy(append([]string{path}, logPaths...))
	if err != nil {
		return nil, &types.Error{
			Kind: types.ErrKindAccess,
			Msg:  fmt.Sprintf("raw copy %s: %v", path, err),
			Err:  types.ErrLockedFileAccessDenied,
		}
	}
	logs := make([]txlog.Log, 0, len(files)-1)
	for _, f := range files[1:] {
		logs = append(logs, txlog.Log{Name: filepath.Base(f.Path), Data: f.Data})
	}
	s, err := OpenBytes(path, files[0].Data, logs, opts, sink)
	if err != nil {
		return nil, err
	}
	s.Info.RawCopy = true
	return s, nil
}

func newSession(path string, h *regread.Hive, opts Options, sink *diag.Sink) *Session {
	head := h.Header()
	return &Session{
		Info: types.HiveInfo{
			Path:              path,
			PrimarySequence:   head.PrimarySequence,
			SecondarySequence: head.SecondarySequence,
			LastWrite:         timestamp.Normalize(h.LastWrite()),
			MajorVersion:      head.MajorVersion,
			MinorVersion:      head.MinorVersion,
			RootCellOffset:    head.RootCellOffset,
			HiveBinsDataSize:  head.HiveBinsDataSize,
			ChecksumOK:        head.ChecksumOK,
			Dirty:             head.IsDirty(),
		},
		hive: h,
		opts: opts,
		sink: sink.With(logrus.Fields{"hive": path}),
	}
}

// recover replays logs into a dirty hive, or applies the configured
// override when that is not possible.
func (s *Session) recover(load func() ([]txlog.Log, error)) error {
	if !s.Info.Dirty {
		return nil
	}
	log := s.sink.Log().WithFields(logrus.Fields{
		"primary":   s.Info.PrimarySequence,
		"secondary": s.Info.SecondarySequence,
		"logs":      len(s.Info.LogFiles),
	})
	log.Info("hive is dirty")

	switch {
	case len(s.Info.LogFiles) == 0 && !s.opts.AllowDirtyWithoutLogs && !s.opts.SkipTransactionLogs:
		return &types.Error{
			Kind: types.ErrKindDirty,
			Msg:  fmt.Sprintf("%s (sequence %d/%d)", s.Info.Path, s.Info.PrimarySequence, s.Info.SecondarySequence),
			Err:  types.ErrDirtyHiveNoLogs,
		}
	case len(s.Info.LogFiles) == 0:
		s.sink.IncompleteHive(s.Info.Path, "no transaction logs found")
		return nil
	case s.opts.SkipTransactionLogs:
		s.sink.IncompleteHive(s.Info.Path, "transaction logs present but skipped")
		return nil
	}

	logs, err := load()
	if err != nil {
		return err
	}
	res, err := txlog.Replay(s.hive.Image(), logs, s.opts.StrictLogReplay, s.sink)
	if err != nil {
		return &types.Error{Kind: types.ErrKindCorrupt, Msg: "replay transaction logs", Err: err}
	}
	if res.Journal.Len() == 0 {
		s.sink.IncompleteHive(s.Info.Path, "no transaction log entry could be applied")
		return nil
	}
	h, err := regread.OpenBytes(res.Image, s.opts.reader())
	if err != nil {
		return fmt.Errorf("reopen recovered hive: %w", err)
	}
	_ = s.hive.Close()
	s.hive = h
	s.Info.Recovered = true
	s.Journal = res.Journal
	log.WithField("entries", res.Journal.Len()).Info("hive recovered from transaction logs")
	return nil
}

func (s *Session) detect() {
	s.Generation = Detect(s.hive)
	if s.Generation == types.GenerationNone {
		s.sink.MissingSubtree(`Root\InventoryApplication, Root\Programs, Root\File`)
		return
	}
	s.sink.Log().WithField("generation", s.Generation.String()).Info("schema generation detected")
}

// Hive returns the recovered hive.
func (s *Session) Hive() *regread.Hive { return s.hive }

// Close releases the hive. It is safe to call more than once.
func (s *Session) Close() error {
	if s.hive == nil {
		return nil
	}
	err := s.hive.Close()
	s.hive = nil
	return err
}

// FindLogs returns the transaction logs next to the hive at path, sorted by
// name. Names are compared without regard to case.
func FindLogs(path string) ([]string, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	prefix := strings.ToUpper(base + ".LOG")
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(strings.ToUpper(e.Name()), prefix) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	slices.Sort(out)
	return out, nil
}

func readLogs(paths []string) ([]txlog.Log, error) {
	out := make([]txlog.Log, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read transaction log: %w", err)
		}
		out = append(out, txlog.Log{Name: filepath.Base(p), Data: data})
	}
	return out, nil
}

func baseNames(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}
