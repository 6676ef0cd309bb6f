package main

import (
	"log/slog"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/reugn/procstat/extension"
	"github.com/reugn/procstat/process"
)

const (
	defaultInterval      = time.Second
	defaultDisplayPeriod = time.Second
)

// Config holds the session settings that can be read from a TOML file.
type Config struct {
	Delimiter     string        `toml:"delimiter"`
	OutputDir     string        `toml:"output_dir"`
	LogLevel      string        `toml:"log_level"`
	Attempts      int           `toml:"attempts"`
	AttemptDelay  time.Duration `toml:"attempt_delay"`
	DisplayPeriod time.Duration `toml:"display_period"`
}

func defaultConfig() Config {
	return Config{
		Delimiter:     string(extension.DefaultDelimiter),
		OutputDir:     ".",
		LogLevel:      "info",
		Attempts:      process.DefaultStabilizeAttempts,
		AttemptDelay:  process.DefaultStabilizeDelay,
		DisplayPeriod: defaultDisplayPeriod,
	}
}

// loadConfigFile overlays the values defined in the TOML file at path.
func loadConfigFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return errors.Wrapf(err, "failed to read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return errors.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// flagSet reports which command line flags were set explicitly.
type flagSet interface {
	Changed(name string) bool
}

// applyFlags overrides the config with the flags set on the command line.
func applyFlags(cfg *Config, flags flagSet, values *cliFlags) {
	if flags.Changed(flagDelimiter) {
		cfg.Delimiter = values.delimiter
	}
	if flags.Changed(flagOutputDir) {
		cfg.OutputDir = values.outputDir
	}
	if flags.Changed(flagLogLevel) {
		cfg.LogLevel = values.logLevel
	}
	if flags.Changed(flagAttempts) {
		cfg.Attempts = values.attempts
	}
	if flags.Changed(flagAttemptDelay) {
		cfg.AttemptDelay = values.attemptDelay
	}
	if flags.Changed(flagDisplayPeriod) {
		cfg.DisplayPeriod = values.displayPeriod
	}
}

func (c *Config) validate() error {
	if c.Delimiter != ";" && c.Delimiter != "," {
		return errors.Errorf("unsupported delimiter %q, expected ';' or ','", c.Delimiter)
	}
	if c.OutputDir == "" {
		return errors.New("output directory is empty")
	}
	if _, err := c.level(); err != nil {
		return err
	}
	if c.Attempts <= 0 {
		return errors.Errorf("invalid stabilization attempts: %d", c.Attempts)
	}
	if c.AttemptDelay <= 0 {
		return errors.Errorf("invalid stabilization delay: %s", c.AttemptDelay)
	}
	if c.DisplayPeriod <= 0 {
		return errors.Errorf("invalid display period: %s", c.DisplayPeriod)
	}
	return nil
}

func (c *Config) delimiter() rune {
	return rune(c.Delimiter[0])
}

func (c *Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, errors.Wrapf(err, "invalid log level %q", c.LogLevel)
	}
	return level, nil
}
