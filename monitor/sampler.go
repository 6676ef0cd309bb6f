// Package monitor implements the sampling engine: periodic computation of
// process resource samples and their thread-safe publication.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/reugn/procstat"
)

// maxCPUUsage is the upper bound of CPU usage once normalized over all
// logical cores.
const maxCPUUsage = 100.0

var (
	errInvalidInterval = errors.New("invalid sample interval")
	errAlreadyRunning  = errors.New("sampler is already running")
)

// Source provides the raw counters of the observed process.
type Source interface {
	// Counters reads the current counters. Errors matching
	// procstat.ErrProcessExited are terminal.
	Counters(ctx context.Context) (procstat.Counters, error)
	// Baseline returns the reference the first sampling window starts from.
	Baseline() procstat.Baseline
}

// Sampler periodically samples a Source, publishes the latest sample for
// concurrent readers and appends every sample to a RecordSink.
//
// The sink is used only by the goroutine executing Run until Done is closed.
type Sampler struct {
	source Source
	sink   procstat.RecordSink
	opts   options

	// CPU baseline, mutated only by Tick
	tickMu       sync.Mutex
	lastCPUTime  time.Duration
	lastSampleAt time.Time

	running atomic.Bool
	done    chan struct{}

	// published state, guarded by mu
	mu        sync.RWMutex
	latest    procstat.Sample
	published int
	errorLog  []string
	state     procstat.State
	stop      chan struct{}
}

// NewSampler returns a new Sampler for a running source. The sampling
// window starts at the source baseline.
func NewSampler(source Source, sink procstat.RecordSink, opts ...Option) *Sampler {
	if source == nil {
		panic("source cannot be nil")
	}
	if sink == nil {
		panic("sink cannot be nil")
	}

	s := &Sampler{
		source: source,
		sink:   sink,
		opts:   makeDefaultOptions(),
		done:   make(chan struct{}),
		state:  procstat.StateRunning,
		stop:   make(chan struct{}),
	}

	// apply functional options to configure the sampler
	for _, opt := range opts {
		opt(&s.opts)
	}
	s.opts.resolve()

	baseline := source.Baseline()
	s.lastCPUTime = baseline.CPUTime
	s.lastSampleAt = baseline.At
	if s.lastSampleAt.IsZero() {
		s.lastSampleAt = s.opts.clock.Now()
	}

	return s
}

// CPUUsagePercent returns the CPU consumed over a window as a percentage of
// the capacity of all logical cores. It returns NaN for an empty window.
func CPUUsagePercent(deltaCPU, deltaWall time.Duration, cores int) float64 {
	if deltaWall <= 0 || cores <= 0 {
		return math.NaN()
	}
	return 100.0 * float64(deltaCPU) / (float64(cores) * float64(deltaWall))
}

// Tick takes a single sample measuring the CPU consumed since the previous
// successful tick.
//
// The baseline is left untouched when the window is empty or the counters
// cannot be read, so the next window accumulates correctly.
func (s *Sampler) Tick(ctx context.Context) (procstat.Sample, error) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	now := s.opts.clock.Now()
	deltaWall := now.Sub(s.lastSampleAt)
	if deltaWall <= 0 {
		return procstat.Sample{}, &procstat.SampleError{Kind: procstat.ErrWindowTooShort}
	}

	counters, err := s.source.Counters(ctx)
	if err != nil {
		return procstat.Sample{}, readError(err)
	}

	deltaCPU := counters.CPUTime - s.lastCPUTime
	usage := CPUUsagePercent(deltaCPU, deltaWall, s.opts.logicalCores)

	s.lastCPUTime = counters.CPUTime
	s.lastSampleAt = now

	sample := procstat.Sample{
		Time:         now,
		CPUUsage:     usage,
		WorkingSet:   counters.WorkingSet,
		PrivateBytes: counters.PrivateBytes,
		HandleCount:  counters.HandleCount,
	}

	if math.IsNaN(usage) || usage < 0 || usage > maxCPUUsage {
		return procstat.Sample{}, &procstat.SampleError{
			Kind:   procstat.ErrImplausibleUsage,
			Sample: sample,
		}
	}

	return sample, nil
}

func readError(err error) error {
	kind := procstat.ErrReadFailure
	if errors.Is(err, procstat.ErrProcessExited) {
		kind = procstat.ErrProcessExited
	}
	return &procstat.SampleError{Kind: kind, Err: err}
}

// Run samples the source every interval until Stop is called, ctx is
// cancelled or a fatal error occurs. The interval is measured from the end
// of one tick to the start of the next.
//
// Run returns nil when stopped externally, otherwise the error that ended
// the session. Only the first call samples; Done is closed when it returns.
func (s *Sampler) Run(ctx context.Context, interval time.Duration) error {
	if !s.running.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}
	defer close(s.done)

	if interval <= 0 {
		err := errors.Wrapf(errInvalidInterval, "%v", interval)
		s.appendError(err.Error())
		s.finish(procstat.StateFailed)
		return err
	}

	for {
		if s.stopRequested(ctx) {
			s.finish(procstat.StateStopped)
			return nil
		}

		if err := s.step(ctx); err != nil {
			if s.stopRequested(ctx) {
				// the process is killed on stop, the failure is expected
				s.finish(procstat.StateStopped)
				return nil
			}
			s.appendError(err.Error())
			s.opts.logger.Error("Sampling stopped", slog.Any("error", err))
			s.finish(terminalState(err))
			return err
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-s.stop:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// step runs a single tick and delivers its sample. It returns an error
// only if the session must end.
func (s *Sampler) step(ctx context.Context) error {
	sample, err := s.Tick(ctx)
	if err != nil {
		var sampleErr *procstat.SampleError
		if errors.As(err, &sampleErr) && !sampleErr.Fatal() {
			s.appendError(err.Error())
			s.opts.logger.Warn("Sample rejected", slog.Any("error", err))
			return nil
		}
		return err
	}

	s.publish(sample)

	if err := s.sink.Append(sample.Record()); err != nil {
		return err
	}

	s.opts.logger.Debug("Sampled",
		slog.Time("time", sample.Time),
		slog.String("cpu", fmt.Sprintf("%.2f%%", sample.CPUUsage)),
		slog.Uint64("working_set", sample.WorkingSet),
		slog.Uint64("private_bytes", sample.PrivateBytes),
		slog.Int("handles", int(sample.HandleCount)))

	return nil
}

func terminalState(err error) procstat.State {
	if errors.Is(err, procstat.ErrProcessExited) {
		return procstat.StateStopped
	}
	return procstat.StateFailed
}

// Stop signals the sampling loop to halt at its next tick boundary.
// It is safe to call more than once.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.stop:
		// Already stopped
	default:
		close(s.stop)
	}
}

func (s *Sampler) stopRequested(ctx context.Context) bool {
	select {
	case <-s.stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed when Run returns.
func (s *Sampler) Done() <-chan struct{} {
	return s.done
}

func (s *Sampler) publish(sample procstat.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = sample
	s.published++
}

func (s *Sampler) appendError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorLog = append(s.errorLog, msg)
}

func (s *Sampler) finish(state procstat.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// LatestSample returns the most recently published sample. The second
// return value is false until the first successful tick.
func (s *Sampler) LatestSample() (procstat.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.published > 0
}

// Published returns the number of samples published so far.
func (s *Sampler) Published() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.published
}

// ErrorLog returns a copy of the accumulated error messages.
func (s *Sampler) ErrorLog() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.errorLog...)
}

// State returns the lifecycle state of the sampling session.
func (s *Sampler) State() procstat.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
