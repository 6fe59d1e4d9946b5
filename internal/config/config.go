// Package config holds the engine's small set of tunables: page store
// frame count, database file path, and result output format. Grounded on
// the teacher's cmd/repl/main.go flag set (-dsn, -format) and its
// testhelper's use of gopkg.in/yaml.v3 for fixture files — this module
// reuses that same library for an optional on-disk config file.
package config

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the engine's full set of runtime tunables.
type Config struct {
	// DBPath is the database file to open (created if it does not exist).
	DBPath string `yaml:"db_path"`
	// BufferFrames is the number of fixed-size frames in the buffer pool.
	BufferFrames int `yaml:"buffer_frames"`
	// Format is the REPL's result rendering format: table, csv, or tsv.
	Format string `yaml:"format"`
	// AutoFlush enables the background cron-driven flush ticker (off by
	// default, see internal/service.Ticker).
	AutoFlush bool `yaml:"auto_flush"`
	// AutoFlushInterval is the cron spec the ticker runs on, only
	// consulted when AutoFlush is true.
	AutoFlushInterval string `yaml:"auto_flush_interval"`
}

// Default returns the engine's out-of-the-box configuration.
func Default() Config {
	return Config{
		DBPath:            "nimbus.db",
		BufferFrames:      128,
		Format:            "table",
		AutoFlush:         false,
		AutoFlushInterval: "@every 30s",
	}
}

// Load reads a YAML config file at path, starting from Default() so any
// field the file omits keeps its default.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// ParseFlags builds a Config from command-line flags, optionally seeded by
// a -config YAML file named among args. Flags always win over the file.
func ParseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	var configPath string
	fs.StringVar(&configPath, "config", "", "path to a YAML config file")

	cfg := Default()
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "database file path")
	fs.IntVar(&cfg.BufferFrames, "frames", cfg.BufferFrames, "buffer pool frame count")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "output format: table, csv, tsv")
	fs.BoolVar(&cfg.AutoFlush, "auto-flush", cfg.AutoFlush, "enable background auto-flush ticker")
	fs.StringVar(&cfg.AutoFlushInterval, "auto-flush-interval", cfg.AutoFlushInterval, "cron spec for the auto-flush ticker")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if configPath == "" {
		return cfg, nil
	}

	fileCfg, err := Load(configPath)
	if err != nil {
		return Config{}, err
	}
	// Command-line flags that were explicitly set override the file;
	// anything left at its flag default falls back to the file's value.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db":
			fileCfg.DBPath = cfg.DBPath
		case "frames":
			fileCfg.BufferFrames = cfg.BufferFrames
		case "format":
			fileCfg.Format = cfg.Format
		case "auto-flush":
			fileCfg.AutoFlush = cfg.AutoFlush
		case "auto-flush-interval":
			fileCfg.AutoFlushInterval = cfg.AutoFlushInterval
		}
	})
	return fileCfg, nil
}
