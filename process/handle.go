// Package process launches and owns the observed OS process and reads its
// resource counters.
package process

import (
	"context"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	psprocess "github.com/shirou/gopsutil/v4/process"

	"github.com/reugn/procstat"
)

// exitGrace is how long a failed counter read waits for the reaper to
// report an exit before the failure is classified as transient.
const exitGrace = 100 * time.Millisecond

var errNotStarted = errors.New("process is not started")

// Handle owns a single launched process for the duration of a monitoring
// session. Stop must be called on every exit path to release it.
type Handle struct {
	path string
	opts options

	state atomic.Int32 // procstat.State

	mu       sync.Mutex
	cmd      *exec.Cmd
	proc     *psprocess.Process
	baseline procstat.Baseline
	exited   chan struct{} // closed when the process is reaped
}

// New returns a Handle for the executable at path. The process is not
// started until Start is called.
func New(path string, opts ...Option) *Handle {
	h := &Handle{
		path:   path,
		opts:   makeDefaultOptions(),
		exited: make(chan struct{}),
	}

	// apply functional options to configure the handle
	for _, opt := range opts {
		opt(&h.opts)
	}

	return h
}

// Path returns the path of the executable.
func (h *Handle) Path() string {
	return h.path
}

// State returns the lifecycle state of the handle.
func (h *Handle) State() procstat.State {
	return procstat.State(h.state.Load())
}

func (h *Handle) setState(state procstat.State) {
	h.state.Store(int32(state))
}

// Pid returns the OS process id, or 0 if the process was never launched.
func (h *Handle) Pid() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pidLocked()
}

func (h *Handle) pidLocked() int {
	if h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Baseline returns the processor time recorded when the process stabilized.
func (h *Handle) Baseline() procstat.Baseline {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.baseline
}

// Exited returns a channel that is closed once the launched process has
// exited and been reaped.
func (h *Handle) Exited() <-chan struct{} {
	return h.exited
}

// IsAlive reports whether the process was launched and has not exited.
func (h *Handle) IsAlive() bool {
	h.mu.Lock()
	launched := h.cmd != nil && h.cmd.Process != nil
	h.mu.Unlock()
	if !launched {
		return false
	}

	select {
	case <-h.exited:
		return false
	default:
		return true
	}
}

// Start launches the process without a shell and waits until the OS reports
// a resolvable process with non-zero processor time. The wait is bounded by
// the stabilization budget. On failure the launched process is killed and a
// *procstat.LaunchError is returned.
func (h *Handle) Start(ctx context.Context) error {
	h.mu.Lock()
	if !h.state.CompareAndSwap(int32(procstat.StateNotStarted), int32(procstat.StateStarting)) {
		h.mu.Unlock()
		return &procstat.LaunchError{
			Path: h.path,
			Err:  errors.Errorf("handle is %s", h.State()),
		}
	}

	cmd := exec.Command(h.path, h.opts.args...)
	cmd.SysProcAttr = sysProcAttr()
	if err := cmd.Start(); err != nil {
		h.setState(procstat.StateFailed)
		h.mu.Unlock()
		return &procstat.LaunchError{Path: h.path, Err: err}
	}
	h.cmd = cmd
	h.mu.Unlock()

	pid := cmd.Process.Pid
	h.opts.logger.Info("Started process",
		slog.String("path", h.path),
		slog.Int("pid", pid))

	// reap the process as soon as it exits
	go func() {
		err := cmd.Wait()
		h.opts.logger.Info("Process exited",
			slog.Int("pid", pid),
			slog.Any("status", err))
		close(h.exited)
	}()

	// the lock is not held while waiting, so Stop can cut the wait short
	proc, baseline, err := h.stabilize(ctx, pid)

	h.mu.Lock()
	defer h.mu.Unlock()

	if err != nil {
		h.setState(procstat.StateFailed)
		if killErr := h.killLocked(); killErr != nil {
			h.opts.logger.Error("Failed to kill unstable process",
				slog.Int("pid", pid),
				slog.Any("error", killErr))
		}
		return &procstat.LaunchError{Path: h.path, Err: err}
	}

	h.proc = proc
	h.baseline = baseline
	h.setState(procstat.StateRunning)
	h.opts.logger.Info("Process is running",
		slog.Int("pid", pid),
		slog.Duration("cpu_time", baseline.CPUTime))

	return nil
}

// stabilize polls the process until it accrues processor time. Reading
// counters earlier would make the first CPU delta meaningless.
func (h *Handle) stabilize(ctx context.Context, pid int) (*psprocess.Process, procstat.Baseline, error) {
	if pid < 0 || pid > math.MaxInt32 {
		return nil, procstat.Baseline{}, errors.Errorf("invalid PID: %d", pid)
	}

	attempts := h.opts.stabilizeAttempts
	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-h.exited:
			return nil, procstat.Baseline{}, errors.Wrapf(procstat.ErrProcessExited, "pid %d", pid)
		default:
		}

		proc, err := psprocess.NewProcessWithContext(ctx, int32(pid))
		if err == nil {
			var cpuTime time.Duration
			cpuTime, err = readCPUTime(ctx, proc)
			if err == nil && cpuTime > 0 {
				return proc, procstat.Baseline{
					CPUTime: cpuTime,
					At:      h.opts.clock.Now(),
				}, nil
			}
		}

		h.opts.logger.Debug("Process is not stable yet",
			slog.Int("pid", pid),
			slog.Int("attempt", attempt),
			slog.Any("error", err))

		if attempt == attempts {
			break
		}

		timer := time.NewTimer(h.opts.stabilizeDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, procstat.Baseline{}, ctx.Err()
		case <-h.exited:
			timer.Stop()
			return nil, procstat.Baseline{}, errors.Wrapf(procstat.ErrProcessExited, "pid %d", pid)
		case <-timer.C:
		}
	}

	return nil, procstat.Baseline{}, errors.Wrapf(procstat.ErrNotStabilized, "after %d attempts", attempts)
}

// Stop forcibly terminates the process if it is still running. Stopping a
// process that has already exited, or was never launched, is a no-op.
func (h *Handle) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.killLocked(); err != nil {
		return err
	}

	h.state.CompareAndSwap(int32(procstat.StateRunning), int32(procstat.StateStopped))
	return nil
}

func (h *Handle) killLocked() error {
	if h.cmd == nil || h.cmd.Process == nil {
		return nil
	}

	select {
	case <-h.exited:
		return nil
	default:
	}

	pid := h.cmd.Process.Pid
	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		select {
		case <-h.exited:
			return nil
		default:
			return &procstat.StopError{Pid: pid, Err: err}
		}
	}

	timer := time.NewTimer(h.opts.killTimeout)
	defer timer.Stop()
	select {
	case <-h.exited:
		h.opts.logger.Info("Stopped process", slog.Int("pid", pid))
		return nil
	case <-timer.C:
		return &procstat.StopError{
			Pid: pid,
			Err: errors.Errorf("process did not exit within %s", h.opts.killTimeout),
		}
	}
}

// Counters reads the current resource counters of the process.
// Failures are reported as *procstat.ReadError, with Exited set when the
// process is gone.
func (h *Handle) Counters(ctx context.Context) (procstat.Counters, error) {
	h.mu.Lock()
	proc := h.proc
	h.mu.Unlock()

	if proc == nil {
		return procstat.Counters{}, &procstat.ReadError{Err: errNotStarted}
	}

	if !h.IsAlive() {
		return procstat.Counters{}, &procstat.ReadError{
			Pid:    proc.Pid,
			Exited: true,
			Err:    procstat.ErrProcessExited,
		}
	}

	counters, err := readCounters(ctx, proc)
	if err != nil {
		timer := time.NewTimer(exitGrace)
		defer timer.Stop()
		select {
		case <-h.exited:
			return procstat.Counters{}, &procstat.ReadError{Pid: proc.Pid, Exited: true, Err: err}
		case <-timer.C:
			return procstat.Counters{}, &procstat.ReadError{Pid: proc.Pid, Err: err}
		}
	}

	return counters, nil
}
