package procstat

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrLaunch is matched by every LaunchError.
	ErrLaunch = errors.New("error starting process")
	// ErrNotStabilized means the process never reported processor time
	// within the stabilization budget.
	ErrNotStabilized = errors.New("process did not start")
	// ErrProcessExited means the observed process is finished.
	ErrProcessExited = errors.New("observed process is finished")
	// ErrReadFailure is a failure to read counters of a live process.
	ErrReadFailure = errors.New("can't get observed process data")
	// ErrWindowTooShort means no wall time elapsed since the previous sample.
	ErrWindowTooShort = errors.New("too short observer sample time")
	// ErrImplausibleUsage means the computed CPU usage is outside 0-100.
	ErrImplausibleUsage = errors.New("cpu usage out of range")
	// ErrStop is matched by every StopError.
	ErrStop = errors.New("error stopping process")
	// ErrSink is matched by every SinkError.
	ErrSink = errors.New("record sink failure")
	// ErrSinkClosed is returned when appending to a closed sink.
	ErrSinkClosed = errors.New("record sink is closed")
)

// LaunchError is returned when the process could not be created or did not
// stabilize.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("error starting process %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Is makes every LaunchError match ErrLaunch.
func (e *LaunchError) Is(target error) bool { return target == ErrLaunch }

// ReadError is returned when the process counters could not be read.
type ReadError struct {
	Pid int32
	// Exited is set when the process is gone, which is terminal for the
	// session. Otherwise the failure is transient.
	Exited bool
	Err    error
}

func (e *ReadError) Error() string {
	if e.Exited {
		return fmt.Sprintf("%v (pid %d)", ErrProcessExited, e.Pid)
	}
	return fmt.Sprintf("%v (pid %d): %v", ErrReadFailure, e.Pid, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Is matches ErrProcessExited or ErrReadFailure depending on Exited.
func (e *ReadError) Is(target error) bool {
	if e.Exited {
		return target == ErrProcessExited
	}
	return target == ErrReadFailure
}

// SampleError is returned by a rejected sampling tick.
type SampleError struct {
	// Kind is one of ErrWindowTooShort, ErrImplausibleUsage,
	// ErrProcessExited or ErrReadFailure.
	Kind error
	// Sample holds the fields collected before the rejection. It is only
	// populated for ErrImplausibleUsage.
	Sample Sample
	Err    error
}

func (e *SampleError) Error() string {
	switch {
	case e.Kind == ErrImplausibleUsage:
		return fmt.Sprintf("%v: %.2f%%", e.Kind, e.Sample.CPUUsage)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.Error()
	}
}

func (e *SampleError) Unwrap() error { return e.Err }

// Is matches the error kind.
func (e *SampleError) Is(target error) bool { return target == e.Kind }

// Fatal reports whether the error ends the sampling session.
func (e *SampleError) Fatal() bool { return e.Kind != ErrWindowTooShort }

// StopError is returned when the process could not be terminated.
type StopError struct {
	Pid int
	Err error
}

func (e *StopError) Error() string {
	return fmt.Sprintf("error stopping process %d: %v", e.Pid, e.Err)
}

func (e *StopError) Unwrap() error { return e.Err }

// Is makes every StopError match ErrStop.
func (e *StopError) Is(target error) bool { return target == ErrStop }

// SinkError is returned when a record sink operation fails.
type SinkError struct {
	Op   string
	Name string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// Is makes every SinkError match ErrSink.
func (e *SinkError) Is(target error) bool { return target == ErrSink }
