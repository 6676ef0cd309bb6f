package sysmonitor

import (
	"context"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v4/cpu"
)

var (
	logicalCores     int
	logicalCoresOnce sync.Once
)

// LogicalCores returns the number of logical processors on the host.
// It is resolved once; when the host cannot be queried it falls back to
// runtime.NumCPU. The result is always at least 1.
func LogicalCores() int {
	logicalCoresOnce.Do(func() {
		logicalCores = countLogicalCores(context.Background(), cpu.CountsWithContext)
	})
	return logicalCores
}

// countLogicalCores queries the host using the given counter.
func countLogicalCores(ctx context.Context,
	counter func(ctx context.Context, logical bool) (int, error)) int {
	n, err := counter(ctx, true)
	if err != nil || n <= 0 {
		n = runtime.NumCPU()
	}
	if n <= 0 {
		n = 1 // Safety check
	}
	return n
}
