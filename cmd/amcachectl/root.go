package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/amcachekit/internal/config"
	"github.com/joshuapare/amcachekit/internal/logger"
)

var (
	// Global flags
	debug      bool
	trace      bool
	quiet      bool
	jsonOut    bool
	logFormat  string
	configPath string

	// cfg is loaded before every command runs.
	cfg = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "amcachectl",
	Short: "Reconstruct installed programs and devices from Amcache hives",
	Long: `amcachectl parses a Windows Amcache.hve hive (Windows 7 through 11),
replays its transaction logs when the hive is dirty and exports programs,
files, shortcuts, devices and drivers as CSV files. An SQLite element store
and a run manifest with input and output digests can be written alongside.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Show debug information during processing")
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false, "Show trace information during processing")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Print the result summary as JSON")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "JSON configuration file")
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	format := cfg.LogFormat
	if logFormat != "" {
		format = logFormat
	}
	return logger.Init(logger.Options{
		Debug:  debug,
		Trace:  trace,
		Quiet:  quiet,
		Level:  cfg.LogLevel,
		Format: format,
	})
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Helper functions for output

var numbers = message.NewPrinter(language.English)

// count renders n with thousands separators.
func count[T ~int | ~int64 | ~uint64](n T) string {
	return numbers.Sprintf("%d", n)
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
