// Package config loads the optional JSON configuration file of amcachectl.
// Values start from defaults, the file overrides them and command-line flags
// override the file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Time layouts accepted by DateTimeFormat besides custom Go layouts.
const (
	DefaultDateTimeFormat = "2006-01-02 15:04:05"
	PreciseDateTimeFormat = "2006-01-02 15:04:05.0000000"
)

// Config mirrors the parse command's flags.
type Config struct {
	CSVDir              string   `json:"csv_dir"`
	CSVFile             string   `json:"csv_file"`
	DateTimeFormat      string   `json:"datetime_format"`
	IncludeProgramFiles bool     `json:"include_program_files"`
	AllowList           string   `json:"allow_list"`
	DenyList            string   `json:"deny_list"`
	StorePath           string   `json:"store_path"`
	Manifest            bool     `json:"manifest"`
	AgeRecipients       []string `json:"age_recipients"`
	LogLevel            string   `json:"log_level"`
	LogFormat           string   `json:"log_format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DateTimeFormat: DefaultDateTimeFormat,
		AgeRecipients:  []string{},
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load returns the defaults overlaid with the file at path. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if err := cfg.loadFromFile(path); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid config file format: %w", err)
	}
	return nil
}

func (cfg *Config) validate() error {
	if strings.TrimSpace(cfg.DateTimeFormat) == "" {
		cfg.DateTimeFormat = DefaultDateTimeFormat
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log_format: %s", cfg.LogFormat)
	}
	for _, r := range cfg.AgeRecipients {
		if !strings.HasPrefix(strings.TrimSpace(r), "age1") {
			return fmt.Errorf("invalid age recipient: %s", r)
		}
	}
	return nil
}
