// Package procstat defines the data model shared by the process observer:
// resource samples, raw process counters, lifecycle states and the record
// sink contract.
package procstat

import (
	"strconv"
	"time"
)

// TimeLayout is the layout used to render sample timestamps in records.
const TimeLayout = "2006-01-02 15:04:05.000"

// RecordSink is an append-only destination for sample rows.
type RecordSink interface {
	// Append writes a single row. A failed append is fatal to the session.
	Append(row []string) error
	// Close releases the sink. It is safe to call more than once.
	Close() error
}

// Clock provides the current time for computing sample windows.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now. The returned values carry a monotonic clock
// reading, so differences between them are not affected by wall clock changes.
type SystemClock struct{}

var _ Clock = SystemClock{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Counters are the raw resource counters of a process as reported by the OS.
type Counters struct {
	// CPUTime is the cumulative user and system processor time.
	CPUTime      time.Duration
	WorkingSet   uint64
	PrivateBytes uint64
	HandleCount  int32
}

// Baseline is the processor time reference a sampling window starts from.
type Baseline struct {
	CPUTime time.Duration
	At      time.Time
}

// Sample is a single timestamped resource usage reading.
type Sample struct {
	Time time.Time
	// CPUUsage is normalized over all logical cores, 0-100.
	CPUUsage     float64
	WorkingSet   uint64
	PrivateBytes uint64
	HandleCount  int32
}

// Header returns the column names matching Sample.Record.
func Header() []string {
	return []string{"Time", "CpuUsage", "WorkingSet", "PrivateBytes", "HandleCount"}
}

// Record renders the sample as a row of fields in a locale independent form.
func (s Sample) Record() []string {
	return []string{
		s.Time.Format(TimeLayout),
		strconv.FormatFloat(s.CPUUsage, 'f', 2, 64),
		strconv.FormatUint(s.WorkingSet, 10),
		strconv.FormatUint(s.PrivateBytes, 10),
		strconv.FormatInt(int64(s.HandleCount), 10),
	}
}

// State is the coarse status of the observed process as tracked by the
// monitoring session.
type State int32

const (
	StateNotStarted State = iota
	StateStarting
	StateRunning
	StateStopped
	StateFailed
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not started"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateFailed
}
