package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/joshuapare/amcachekit/internal/export/csvout"
	"github.com/joshuapare/amcachekit/internal/export/manifest"
	"github.com/joshuapare/amcachekit/internal/export/seal"
	"github.com/joshuapare/amcachekit/internal/export/store"
	"github.com/joshuapare/amcachekit/internal/hashfilter"
	"github.com/joshuapare/amcachekit/internal/logger"
	"github.com/joshuapare/amcachekit/internal/rawcopy"
	"github.com/joshuapare/amcachekit/pkg/amcache"
	"github.com/joshuapare/amcachekit/pkg/types"
)

var (
	parseFile           string
	parseCSVDir         string
	parseCSVFile        string
	parseInclude        bool
	parseDateTime       string
	parsePrecise        bool
	parseNoLogs         bool
	parseAllowDirty     bool
	parseRecoverDeleted bool
	parseStrictLogs     bool
	parseExcludeList    string
	parseIncludeList    string
	parseStore          string
	parseManifest       bool
	parseRunIDPrefix    bool
	parseAgeRecipients  []string
)

func init() {
	rootCmd.AddCommand(newParseCmd())
}

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse -f <hive> --csv <dir>",
		Short: "Reconstruct an Amcache hive and export its records",
		Long: `The parse command reconstructs programs, files, shortcuts, devices and
drivers from an Amcache hive and writes one CSV file per record kind.

A dirty hive is repaired from the .LOG1/.LOG2 files next to it. Hash lists
narrow the file records written: -b keeps only listed SHA-1s, -w drops them.
When both are given -b wins.

Example:
  amcachectl parse -f C:\Windows\appcompat\Programs\Amcache.hve --csv out
  amcachectl parse -f Amcache.hve --csv out -i --mp -w known-good.txt
  amcachectl parse -f Amcache.hve --csv out --store case.sqlite --manifest`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyConfig(cmd)
			return runParse()
		},
	}
	f := cmd.Flags()
	f.StringVarP(&parseFile, "file", "f", "", "Amcache.hve file to parse")
	f.StringVar(&parseCSVDir, "csv", "", "Directory to save CSV formatted results to")
	f.StringVar(&parseCSVFile, "csvf", "", "File name to save CSV formatted results to. The record kind is appended")
	f.BoolVarP(&parseInclude, "include", "i", false, "Include file entries for program entries")
	f.StringVar(&parseDateTime, "dt", "", "Go time layout for timestamps (default \""+csvout.DefaultTimeLayout+"\")")
	f.BoolVar(&parsePrecise, "mp", false, "Display higher precision for timestamps")
	f.BoolVar(&parseNoLogs, "nl", false, "Ignore transaction log files for dirty hives")
	f.BoolVar(&parseAllowDirty, "allow-dirty", false, "Parse a dirty hive that has no transaction logs")
	f.BoolVar(&parseRecoverDeleted, "recover-deleted", false, "Include keys recovered from free cells")
	f.BoolVar(&parseStrictLogs, "strict-logs", false, "Fail on the first transaction log entry that cannot be applied")
	f.StringVarP(&parseExcludeList, "exclude", "w", "", "File of SHA-1 hashes to leave out of the results")
	f.StringVarP(&parseIncludeList, "include-list", "b", "", "File of SHA-1 hashes to keep. Wins over -w")
	f.StringVar(&parseStore, "store", "", "Also write every record to this SQLite element store")
	f.BoolVar(&parseManifest, "manifest", false, "Write a run manifest with input and output digests")
	f.BoolVar(&parseRunIDPrefix, "run-id-prefix", false, "Prefix output files with the run id instead of a timestamp")
	f.StringArrayVar(&parseAgeRecipients, "age-recipient", nil, "Encrypt outputs to this age public key (repeatable)")
	return cmd
}

// applyConfig fills parse options the command line left unset.
func applyConfig(cmd *cobra.Command) {
	f := cmd.Flags()
	if !f.Changed("csv") {
		parseCSVDir = cfg.CSVDir
	}
	if !f.Changed("csvf") {
		parseCSVFile = cfg.CSVFile
	}
	if !f.Changed("dt") && cfg.DateTimeFormat != "" {
		parseDateTime = cfg.DateTimeFormat
	}
	if !f.Changed("include") {
		parseInclude = cfg.IncludeProgramFiles
	}
	if !f.Changed("include-list") {
		parseIncludeList = cfg.AllowList
	}
	if !f.Changed("exclude") {
		parseExcludeList = cfg.DenyList
	}
	if !f.Changed("store") {
		parseStore = cfg.StorePath
	}
	if !f.Changed("manifest") {
		parseManifest = cfg.Manifest
	}
	if !f.Changed("age-recipient") {
		parseAgeRecipients = cfg.AgeRecipients
	}
}

// parseSummary is the --json form of the run summary.
type parseSummary struct {
	RunID             string           `json:"run_id"`
	Hive              string           `json:"hive"`
	Generation        types.Generation `json:"generation"`
	Counts            manifest.Counts  `json:"counts"`
	UnassociatedShown int              `json:"unassociated_shown"`
	AssociatedShown   int              `json:"associated_shown"`
	Issues            map[string]int   `json:"issues"`
	Outputs           []string         `json:"outputs"`
	Seconds           float64          `json:"seconds"`
}

func runParse() error {
	if parseFile == "" {
		return fmt.Errorf("-f is required")
	}
	if parseCSVDir == "" {
		return fmt.Errorf("--csv is required")
	}
	if _, err := os.Stat(parseFile); err != nil {
		return fmt.Errorf("file %q not found: %w", parseFile, err)
	}
	log := logger.L
	started := time.Now()

	elevated := rawcopy.IsElevated()
	if runtime.GOOS == "windows" && !elevated {
		log.Warn("Warning: Administrator privileges not found! Locked hives cannot be read")
	}

	recipients, err := seal.ParseRecipients(parseAgeRecipients)
	if err != nil {
		return err
	}

	filter, err := hashfilter.Load(parseIncludeList, parseExcludeList)
	if errors.Is(err, fs.ErrNotExist) {
		log.WithError(err).Warn("hash list does not exist, writing all file entries")
		filter = nil
	} else if err != nil {
		return err
	}

	res, err := amcache.Reconstruct(parseFile, &amcache.Options{
		RecoverDeleted:        parseRecoverDeleted,
		SkipTransactionLogs:   parseNoLogs,
		AllowDirtyWithoutLogs: parseAllowDirty,
		StrictLogReplay:       parseStrictLogs,
		Logger:                log,
	})
	if err != nil {
		if errors.Is(err, types.ErrDirtyHiveNoLogs) {
			return fmt.Errorf("%w (use --allow-dirty to parse it as found)", err)
		}
		return err
	}
	if res.ProgramCount() == 0 && res.UnassociatedCount() == 0 {
		log.Warn("Hive did not contain program entries nor file entries.")
	}

	runID := manifest.NewRunID()
	layout := parseDateTime
	if parsePrecise {
		layout = csvout.PreciseTimeLayout
	}
	stamp := ""
	if parseRunIDPrefix {
		stamp = runID
	}

	bar := newStageBar(stageCount(len(recipients) > 0))

	bar.Describe("Writing CSV")
	sum, err := csvout.Write(res, parseFile, csvout.Options{
		Dir:             parseCSVDir,
		FileName:        parseCSVFile,
		Stamp:           stamp,
		TimeLayout:      layout,
		IncludePrograms: parseInclude,
		Filter:          filter,
	})
	if err != nil {
		return err
	}
	_ = bar.Add(1)

	outputs := make([]string, 0, len(sum.Files)+1)
	for _, f := range sum.Files {
		outputs = append(outputs, f.Path)
	}

	if parseStore != "" {
		bar.Describe("Writing store")
		if err := writeStore(parseStore, runID, res); err != nil {
			return err
		}
		outputs = append(outputs, parseStore)
		_ = bar.Add(1)
	}

	if len(recipients) > 0 {
		bar.Describe("Sealing outputs")
		outputs, err = seal.Files(outputs, recipients, true)
		if err != nil {
			return err
		}
		_ = bar.Add(1)
	}

	if parseManifest {
		bar.Describe("Writing manifest")
		path, err := writeManifest(runID, started, elevated, res, outputs)
		if err != nil {
			return err
		}
		outputs = append(outputs, path)
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	elapsed := time.Since(started)
	if jsonOut {
		return printJSON(parseSummary{
			RunID:             runID,
			Hive:              parseFile,
			Generation:        res.Generation,
			Counts:            manifest.CountsOf(res),
			UnassociatedShown: sum.UnassociatedShown,
			AssociatedShown:   sum.AssociatedShown,
			Issues:            res.Report.Summary(),
			Outputs:           outputs,
			Seconds:           elapsed.Seconds(),
		})
	}
	printSummary(res, sum, filter, elapsed)
	return nil
}

func writeStore(path, runID string, res *types.Result) error {
	st, err := store.Create(path)
	if err != nil {
		return fmt.Errorf("store %s: %w", path, err)
	}
	st.SetRunID(runID)
	counts, err := st.Export(res)
	if cerr := st.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("store %s: %w", path, err)
	}
	logger.L.WithField("path", path).Debugf("store written: %v", counts)
	return nil
}

func writeManifest(runID string, started time.Time, elevated bool, res *types.Result, outputs []string) (string, error) {
	m := manifest.New(runID, "amcachectl", version, started, res)
	m.Elevated = elevated
	if h, err := manifest.CollectHost(); err != nil {
		logger.L.WithError(err).Warn("host information unavailable")
	} else {
		m.Host = h
	}

	inputs := []string{parseFile}
	dir := filepath.Dir(parseFile)
	for _, name := range res.Hive.LogFiles {
		inputs = append(inputs, filepath.Join(dir, name))
	}
	if err := m.AddInputs(inputs...); err != nil {
		return "", err
	}
	if err := m.AddOutputs(outputs...); err != nil {
		return "", err
	}

	path := filepath.Join(parseCSVDir, runID+"_manifest.json")
	if err := m.Write(path, time.Now()); err != nil {
		return "", err
	}
	return path, nil
}

func stageCount(sealing bool) int {
	n := 1
	if parseStore != "" {
		n++
	}
	if sealing {
		n++
	}
	if parseManifest {
		n++
	}
	return n
}

func newStageBar(stages int) *progressbar.ProgressBar {
	visible := !quiet && !jsonOut && term.IsTerminal(int(os.Stderr.Fd()))
	return progressbar.NewOptions(stages,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Exporting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetVisibility(visible),
		progressbar.OptionClearOnFinish(),
	)
}

func printSummary(res *types.Result, sum *csvout.Summary, filter *hashfilter.Filter, elapsed time.Duration) {
	printInfo("\n'%s' is in %s format\n\n", parseFile, res.Generation)
	printInfo("Total file entries found: %s\n", count(res.TotalFileRecords()))

	if inv := res.Modern; inv != nil {
		collections := []struct {
			name string
			n    int
		}{
			{"shortcuts", len(inv.Shortcuts)},
			{"device containers", len(inv.DeviceContainers)},
			{"device PnPs", len(inv.DevicePnps)},
			{"drive binaries", len(inv.DriverBinaries)},
			{"driver packages", len(inv.DriverPackages)},
		}
		for _, c := range collections {
			if c.n > 0 {
				printInfo("Total %s found: %s\n", c.name, count(c.n))
			}
		}
	}

	suffix := "ies"
	if sum.UnassociatedShown == 1 {
		suffix = "y"
	}
	linked := ""
	if parseInclude {
		linked = fmt.Sprintf(" and %s program file entries (across %s program entries)",
			count(sum.AssociatedShown), count(res.ProgramCount()))
	}
	printInfo("\nFound %s unassociated file entr%s%s\n", count(sum.UnassociatedShown), suffix, linked)

	if filter.Active() && res.TotalFileRecords() > 0 {
		per := float64(sum.AssociatedShown+sum.UnassociatedShown) / float64(res.TotalFileRecords())
		printInfo("\n%s list hash count: %s\n", titleMode(filter.Mode()), count(filter.Len()))
		printInfo("Percentage of total shown based on %s list: %.3f%% (%.3f%% savings)\n",
			filter.Mode(), per*100, (1-per)*100)
	}
	if n := res.Report.Len(); n > 0 {
		printInfo("\n%s issue(s) recorded: %v\n", count(n), res.Report.Summary())
	}

	printInfo("\nResults saved to: %s\n", parseCSVDir)
	printInfo("\nTotal parsing time: %.3f seconds\n", elapsed.Seconds())
}

func titleMode(m hashfilter.Mode) string {
	if m == hashfilter.ModeInclude {
		return "Include"
	}
	return "Exclude"
}
