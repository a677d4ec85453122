// Package logger builds the CLI's logrus logger from command-line options.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// L is the CLI logger. It discards all output until Init is called.
var L = discard()

// Options configures Init.
type Options struct {
	Debug bool // Debug level
	Trace bool // Trace level, wins over Debug
	Quiet bool // Errors only, wins over both
	// Level names a logrus level ("warn", "debug", ...). Flags win over it.
	Level string
	// Format is "text" (default) or "json".
	Format string
	// Output defaults to stderr.
	Output io.Writer
}

// Init replaces L according to opts.
func Init(opts Options) error {
	l, err := New(opts)
	if err != nil {
		return err
	}
	L = l
	return nil
}

// New builds a logger without touching L.
func New(opts Options) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	if opts.Output != nil {
		l.SetOutput(opts.Output)
	}

	switch strings.ToLower(opts.Format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = parsed
	}
	switch {
	case opts.Quiet:
		level = logrus.ErrorLevel
	case opts.Trace:
		level = logrus.TraceLevel
	case opts.Debug:
		level = logrus.DebugLevel
	}
	l.SetLevel(level)
	return l, nil
}

func discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
