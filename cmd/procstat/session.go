package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/reugn/procstat"
	"github.com/reugn/procstat/extension"
	"github.com/reugn/procstat/monitor"
	"github.com/reugn/procstat/process"
)

const (
	// controlPeriod is how often the control loop refreshes the display.
	controlPeriod = 250 * time.Millisecond
	// outputLayout names the output file after the session start time.
	outputLayout = "20060102_150405"
)

// session observes a single process from launch to the final report.
type session struct {
	path     string
	args     []string
	interval time.Duration
	cfg      Config

	keys   <-chan byte
	stdout io.Writer
	logger *slog.Logger
}

// stopReason describes why the control loop ended.
type stopReason string

const (
	stopRequested   stopReason = "stop requested"
	stopInterrupted stopReason = "interrupted"
	stopSampler     stopReason = "sampling ended"
)

// outputFileName returns the name of the output file for a session
// started at the given time.
func outputFileName(dir string, start time.Time) string {
	return filepath.Join(dir, "procstat_"+start.Format(outputLayout)+".csv")
}

// run executes the session and returns the process exit code.
func (s *session) run(ctx context.Context) int {
	start := time.Now()
	fmt.Fprintf(s.stdout, "Process %s observing...\n", s.path)

	handle := process.New(s.path,
		process.WithArgs(s.args...),
		process.WithStabilization(s.cfg.Attempts, s.cfg.AttemptDelay),
		process.WithLogger(s.logger),
	)
	defer s.stopHandle(handle)

	if err := s.start(ctx, handle); err != nil {
		fmt.Fprintln(s.stdout, err)
		return 1
	}

	sink, err := s.openSink(start)
	if err != nil {
		fmt.Fprintln(s.stdout, err)
		return 1
	}

	sampler := monitor.NewSampler(handle, sink, monitor.WithLogger(s.logger))
	go func() {
		// the outcome is recorded in the sampler state and error log
		_ = sampler.Run(ctx, s.interval)
	}()

	reason := s.control(ctx, sampler)
	s.logger.Info("Finishing session", slog.String("reason", string(reason)))

	sampler.Stop()
	s.stopHandle(handle)
	<-sampler.Done()
	if err := sink.Close(); err != nil {
		fmt.Fprintln(s.stdout, err)
	}

	writeReport(s.stdout, report{
		path:         s.path,
		pid:          handle.Pid(),
		processState: handle.State(),
		samplerState: sampler.State(),
		reason:       reason,
		samples:      sampler.Published(),
		rows:         sink.Rows(),
		output:       sink.Name(),
		elapsed:      time.Since(start),
		errorLog:     sampler.ErrorLog(),
	})
	return 0
}

// start launches the process and waits for it to stabilize. Stop keys
// abort the wait: a terminal in raw mode delivers Ctrl-C as a key press
// instead of an interrupt.
func (s *session) start(ctx context.Context, handle *process.Handle) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		result <- handle.Start(ctx)
	}()

	keys := s.keys
	for {
		select {
		case err := <-result:
			return err
		case key, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			if isStopKey(key) {
				s.logger.Info("Launch aborted", slog.String("reason", string(stopRequested)))
				cancel()
			}
		}
	}
}

func isStopKey(key byte) bool {
	switch key {
	case 'x', 'X', ctrlC:
		return true
	}
	return false
}

func (s *session) openSink(start time.Time) (*extension.CsvSink, error) {
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return nil, &procstat.SinkError{Op: "open", Name: s.cfg.OutputDir, Err: err}
	}
	return extension.NewCsvSink(outputFileName(s.cfg.OutputDir, start),
		extension.WithDelimiter(s.cfg.delimiter()),
		extension.WithHeader([]string{s.path}, procstat.Header()),
		extension.WithLogger(s.logger),
	)
}

func (s *session) stopHandle(handle *process.Handle) {
	if err := handle.Stop(); err != nil {
		s.logger.Error("Failed to stop process", slog.Any("error", err))
		fmt.Fprintln(s.stdout, err)
	}
}

// control runs the interactive loop until the operator asks to stop, the
// context is cancelled or the sampler ends on its own.
func (s *session) control(ctx context.Context, sampler *monitor.Sampler) stopReason {
	display := extension.NewConsoleDisplay(s.stdout, s.path, extension.WithLogger(s.logger))
	ticker := time.NewTicker(controlPeriod)
	defer ticker.Stop()

	keys := s.keys
	showing := false
	var lastShown time.Time
	for {
		select {
		case <-ctx.Done():
			return stopInterrupted
		case <-sampler.Done():
			if ctx.Err() != nil {
				return stopInterrupted
			}
			return stopSampler
		case key, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			if isStopKey(key) {
				return stopRequested
			}
			if key == 'p' || key == 'P' {
				showing = !showing
				lastShown = time.Time{}
			}
		case now := <-ticker.C:
			if !showing || now.Sub(lastShown) < s.cfg.DisplayPeriod {
				continue
			}
			if sample, ok := sampler.LatestSample(); ok {
				if err := display.Show(sample); err != nil {
					s.logger.Warn("Failed to display sample", slog.Any("error", err))
				}
			}
			lastShown = now
		}
	}
}
