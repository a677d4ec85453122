// Package csvout writes a reconstruction result as one CSV file per record
// kind, using the column layout analysts already import into their tooling.
package csvout

import (
	"bufio"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/joshuapare/amcachekit/internal/hashfilter"
	"github.com/joshuapare/amcachekit/pkg/types"
)

const (
	// DefaultTimeLayout renders instants to the second.
	DefaultTimeLayout = "2006-01-02 15:04:05"
	// PreciseTimeLayout keeps the full FILETIME resolution.
	PreciseTimeLayout = "2006-01-02 15:04:05.0000000"
	// StampLayout names output files when no explicit file name is given.
	StampLayout = "20060102150405"
)

// Record kinds, used as file name suffixes.
const (
	KindUnassociated     = "UnassociatedFileEntries"
	KindAssociated       = "AssociatedFileEntries"
	KindPrograms         = "ProgramEntries"
	KindShortcuts        = "ShortCuts"
	KindDriverBinaries   = "DriveBinaries"
	KindDeviceContainers = "DeviceContainers"
	KindDriverPackages   = "DriverPackages"
	KindDevicePnps       = "DevicePnps"
)

// Options controls one export.
type Options struct {
	// Dir receives the files. It is created when missing.
	Dir string
	// FileName replaces the "<stamp>_<hive>" base. The kind is inserted
	// before its extension: "out.csv" gives "out_ShortCuts.csv".
	FileName string
	// Stamp prefixes generated names. Empty means the current local time.
	Stamp string
	// TimeLayout formats instants. Empty means DefaultTimeLayout.
	TimeLayout string
	// IncludePrograms also writes program records and associated files.
	IncludePrograms bool
	// Filter drops file records by SHA-1. Nil keeps everything.
	Filter *hashfilter.Filter
}

// File describes one written file.
type File struct {
	Kind string
	Path string
	Rows int
}

// Summary reports what an export wrote.
type Summary struct {
	Files []File
	// UnassociatedShown and AssociatedShown count file records that passed
	// the hash filter.
	UnassociatedShown int
	AssociatedShown   int
}

type writer struct {
	opts   Options
	base   string
	layout string
	sum    *Summary
}

// Write exports res into opts.Dir. hivePath only contributes the file names.
func Write(res *types.Result, hivePath string, opts Options) (*Summary, error) {
	if res == nil {
		return nil, errors.New("csvout: nil result")
	}
	if opts.Dir == "" {
		return nil, errors.New("csvout: output directory is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", opts.Dir)
	}

	w := &writer{opts: opts, layout: opts.TimeLayout, sum: &Summary{}}
	if w.layout == "" {
		w.layout = DefaultTimeLayout
	}
	stamp := opts.Stamp
	if stamp == "" {
		stamp = time.Now().Format(StampLayout)
	}
	w.base = stamp + "_" + stem(hivePath)

	var err error
	switch {
	case res.Legacy != nil:
		err = w.legacy(res.Legacy)
	case res.Modern != nil:
		err = w.modern(res.Modern)
	}
	if err != nil {
		return nil, err
	}
	return w.sum, nil
}

// fileName returns the output name for kind.
func (w *writer) fileName(kind string) string {
	if w.opts.FileName != "" {
		return stem(w.opts.FileName) + "_" + kind + filepath.Ext(baseName(w.opts.FileName))
	}
	return w.base + "_" + kind + ".csv"
}

// baseName returns the last element of p. Both separators are honoured so
// Windows paths are split on any host.
func baseName(p string) string {
	if i := strings.LastIndexAny(p, `\/`); i >= 0 {
		return p[i+1:]
	}
	return p
}

// stem is baseName without its extension.
func stem(p string) string {
	name := baseName(p)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func (w *writer) write(kind string, header []string, rows [][]string) (err error) {
	path := filepath.Join(w.opts.Dir, w.fileName(kind))
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", kind)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()

	buf := bufio.NewWriter(f)
	cw := csv.NewWriter(buf)
	if err := cw.Write(header); err != nil {
		return errors.Wrapf(err, "write %s header", kind)
	}
	if err := cw.WriteAll(rows); err != nil {
		return errors.Wrapf(err, "write %s rows", kind)
	}
	if err := buf.Flush(); err != nil {
		return errors.Wrapf(err, "flush %s", path)
	}
	w.sum.Files = append(w.sum.Files, File{Kind: kind, Path: path, Rows: len(rows)})
	return nil
}

func rowsOf[T any](records []T, fn func(T) []string) [][]string {
	out := make([][]string, 0, len(records))
	for _, r := range records {
		out = append(out, fn(r))
	}
	return out
}

func (w *writer) ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(w.layout)
}

func (w *writer) tsp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return w.ts(*t)
}

func boolText(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func optInt(p *int64) string {
	if p == nil {
		return ""
	}
	return itoa(*p)
}
