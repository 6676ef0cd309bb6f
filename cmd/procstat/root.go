package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	flagConfig        = "config"
	flagDelimiter     = "delimiter"
	flagOutputDir     = "output-dir"
	flagLogLevel      = "log-level"
	flagAttempts      = "attempts"
	flagAttemptDelay  = "attempt-delay"
	flagDisplayPeriod = "display-period"
)

// errUsage routes malformed invocations to the help output.
var errUsage = errors.New("usage requested")

type cliFlags struct {
	config        string
	delimiter     string
	outputDir     string
	logLevel      string
	attempts      int
	attemptDelay  time.Duration
	displayPeriod time.Duration
}

// app carries the process environment of a single CLI invocation.
type app struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	flags    cliFlags
	exitCode int
}

func newRootCommand(a *app) *cobra.Command {
	defaults := defaultConfig()

	cmd := &cobra.Command{
		Use:   "procstat <executable-path> [sample-interval-ms] [-- args...]",
		Short: "Launch a process and record its resource usage",
		Long: `procstat launches an executable and samples its CPU usage, working set,
private bytes and handle count every interval (1000ms by default).
Every sample is appended to procstat_<date>_<time>.csv in the output directory.

While running:
  p, P    toggle the live display of the latest sample
  x, X    stop observing and terminate the process`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.run,
	}
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		// "-5" reads as a flag, so a negative interval lands here too
		fmt.Fprintf(c.ErrOrStderr(), "Error: %v\n", err)
		return errUsage
	})

	flags := cmd.Flags()
	flags.StringVarP(&a.flags.config, flagConfig, "c", "",
		"TOML file with default settings, overridden by explicit flags")
	flags.StringVarP(&a.flags.delimiter, flagDelimiter, "d", defaults.Delimiter,
		"field delimiter of the output file, ';' or ','")
	flags.StringVarP(&a.flags.outputDir, flagOutputDir, "o", defaults.OutputDir,
		"directory the output file is created in")
	flags.StringVar(&a.flags.logLevel, flagLogLevel, defaults.LogLevel,
		"log level. One of debug, info, warn, error")
	flags.IntVar(&a.flags.attempts, flagAttempts, defaults.Attempts,
		"number of checks for the started process to report CPU time")
	flags.DurationVar(&a.flags.attemptDelay, flagAttemptDelay, defaults.AttemptDelay,
		"delay between the start checks")
	flags.DurationVar(&a.flags.displayPeriod, flagDisplayPeriod, defaults.DisplayPeriod,
		"how often the live display prints the latest sample")

	return cmd
}

// execute runs the CLI with the given arguments and returns the process
// exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	cmd := newRootCommand(a)

	if wantsHelp(args) {
		_ = cmd.Help()
		return 0
	}

	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	switch {
	case errors.Is(err, errUsage):
		_ = cmd.Help()
		return 0
	case err != nil:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	default:
		return a.exitCode
	}
}

// wantsHelp reports whether the arguments ask for help. The child
// arguments after "--" are not inspected.
func wantsHelp(args []string) bool {
	if len(args) == 0 {
		return true
	}
	for _, arg := range args {
		switch arg {
		case "--":
			return false
		case "-h", "--h", "-help", "--help":
			return true
		}
	}
	return false
}

// splitArgs separates the positional arguments from the arguments passed
// through to the launched executable.
func splitArgs(args []string, dash int) (positional, child []string) {
	if dash < 0 {
		return args, nil
	}
	return args[:dash], args[dash:]
}

// parseInterval parses the optional sampling interval in milliseconds.
func parseInterval(args []string) (time.Duration, bool) {
	if len(args) == 0 {
		return defaultInterval, true
	}
	ms, err := strconv.Atoi(args[0])
	if err != nil || ms <= 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

func (a *app) run(cmd *cobra.Command, args []string) error {
	positional, childArgs := splitArgs(args, cmd.ArgsLenAtDash())
	if len(positional) == 0 {
		return errUsage
	}
	if len(positional) > 2 {
		return errors.Errorf("unexpected arguments: %v", positional[2:])
	}
	interval, ok := parseInterval(positional[1:])
	if !ok {
		return errUsage
	}

	cfg := defaultConfig()
	if a.flags.config != "" {
		if err := loadConfigFile(&cfg, a.flags.config); err != nil {
			return err
		}
	}
	applyFlags(&cfg, cmd.Flags(), &a.flags)
	if err := cfg.validate(); err != nil {
		return err
	}

	keys, raw, restore := startKeyReader(cmd.Context(), a.stdin)
	defer restore()

	// a terminal in raw mode does not return the carriage on a line feed
	stdout := newlineWriter(a.stdout, raw)
	level, _ := cfg.level()
	logger := slog.New(slog.NewTextHandler(newlineWriter(a.stderr, raw),
		&slog.HandlerOptions{Level: level}))

	s := &session{
		path:     positional[0],
		args:     childArgs,
		interval: interval,
		cfg:      cfg,
		keys:     keys,
		stdout:   stdout,
		logger:   logger,
	}
	a.exitCode = s.run(cmd.Context())
	return nil
}
