//go:build linux

package process

import (
	"context"

	psprocess "github.com/shirou/gopsutil/v4/process"
)

// privateBytes returns the resident memory not shared with other processes.
func privateBytes(ctx context.Context, proc *psprocess.Process, memInfo *psprocess.MemoryInfoStat) (uint64, error) {
	ex, err := proc.MemoryInfoExWithContext(ctx)
	if err != nil {
		return 0, err
	}
	if ex.Shared > memInfo.RSS {
		return 0, nil
	}
	return memInfo.RSS - ex.Shared, nil
}
