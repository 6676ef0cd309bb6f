package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reugn/procstat/internal/assert"
)

type changed map[string]bool

func (c changed) Changed(name string) bool {
	return c[name]
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "procstat.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfig_Defaults(t *testing.T) {
	cfg := defaultConfig()
	assert.NoError(t, cfg.validate())
	assert.Equal(t, ';', cfg.delimiter())
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, 30, cfg.Attempts)
	assert.Equal(t, time.Second, cfg.AttemptDelay)
	assert.Equal(t, time.Second, cfg.DisplayPeriod)
}

func TestConfig_Precedence(t *testing.T) {
	path := writeConfig(t, `
delimiter = ","
output_dir = "/var/log/procstat"
log_level = "debug"
attempts = 5
attempt_delay = "250ms"
`)
	cfg := defaultConfig()
	assert.NoError(t, loadConfigFile(&cfg, path))

	// the file overrides the defaults
	assert.Equal(t, ",", cfg.Delimiter)
	assert.Equal(t, "/var/log/procstat", cfg.OutputDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5, cfg.Attempts)
	assert.Equal(t, 250*time.Millisecond, cfg.AttemptDelay)
	assert.Equal(t, time.Second, cfg.DisplayPeriod)

	// explicit flags override the file, unset flags do not
	values := &cliFlags{
		delimiter:     ";",
		outputDir:     "ignored",
		attempts:      7,
		displayPeriod: 2 * time.Second,
	}
	applyFlags(&cfg, changed{
		flagDelimiter:     true,
		flagAttempts:      true,
		flagDisplayPeriod: true,
	}, values)

	assert.Equal(t, ";", cfg.Delimiter)
	assert.Equal(t, "/var/log/procstat", cfg.OutputDir)
	assert.Equal(t, 7, cfg.Attempts)
	assert.Equal(t, 250*time.Millisecond, cfg.AttemptDelay)
	assert.Equal(t, 2*time.Second, cfg.DisplayPeriod)
	assert.NoError(t, cfg.validate())
}

func TestConfig_FileErrors(t *testing.T) {
	cfg := defaultConfig()
	err := loadConfigFile(&cfg, filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "failed to read config")

	err = loadConfigFile(&cfg, writeConfig(t, `delimiter = `))
	assert.ErrorContains(t, err, "failed to read config")

	err = loadConfigFile(&cfg, writeConfig(t, "interval = 10\n"))
	assert.ErrorContains(t, err, "unknown keys")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		err    string
	}{
		{"tab delimiter", func(c *Config) { c.Delimiter = "\t" }, "unsupported delimiter"},
		{"long delimiter", func(c *Config) { c.Delimiter = ";;" }, "unsupported delimiter"},
		{"empty output dir", func(c *Config) { c.OutputDir = "" }, "output directory"},
		{"log level", func(c *Config) { c.LogLevel = "verbose" }, "invalid log level"},
		{"attempts", func(c *Config) { c.Attempts = 0 }, "invalid stabilization attempts"},
		{"attempt delay", func(c *Config) { c.AttemptDelay = -time.Second }, "invalid stabilization delay"},
		{"display period", func(c *Config) { c.DisplayPeriod = 0 }, "invalid display period"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.modify(&cfg)
			assert.ErrorContains(t, cfg.validate(), tt.err)
		})
	}
}
