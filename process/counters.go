package process

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	psprocess "github.com/shirou/gopsutil/v4/process"

	"github.com/reugn/procstat"
)

// errNotImplemented matches the message of the gopsutil error returned for
// counters a platform does not provide.
const errNotImplemented = "not implemented yet"

func isNotImplemented(err error) bool {
	return err != nil && err.Error() == errNotImplemented
}

// readCounters reads all counters of the process.
func readCounters(ctx context.Context, proc *psprocess.Process) (procstat.Counters, error) {
	cpuTime, err := readCPUTime(ctx, proc)
	if err != nil {
		return procstat.Counters{}, err
	}

	memInfo, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return procstat.Counters{}, errors.Wrap(err, "failed to get memory info")
	}

	private, err := privateBytes(ctx, proc, memInfo)
	if err != nil {
		return procstat.Counters{}, errors.Wrap(err, "failed to get private bytes")
	}

	handles, err := handleCount(ctx, proc)
	if err != nil {
		return procstat.Counters{}, errors.Wrap(err, "failed to get handle count")
	}

	return procstat.Counters{
		CPUTime:      cpuTime,
		WorkingSet:   memInfo.RSS,
		PrivateBytes: private,
		HandleCount:  handles,
	}, nil
}

// readCPUTime returns the cumulative user and system time of the process.
func readCPUTime(ctx context.Context, proc *psprocess.Process) (time.Duration, error) {
	times, err := proc.TimesWithContext(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get CPU times")
	}
	return secondsToDuration(times.User + times.System), nil
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 || math.IsNaN(seconds) {
		return 0
	}
	return time.Duration(math.Round(seconds * float64(time.Second)))
}

// handleCount returns the number of open handles (file descriptors on
// Unix). Platforms without the counter report 0.
func handleCount(ctx context.Context, proc *psprocess.Process) (int32, error) {
	n, err := proc.NumFDsWithContext(ctx)
	if isNotImplemented(err) {
		return 0, nil
	}
	return n, err
}
