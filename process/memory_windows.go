//go:build windows

package process

import (
	"context"

	psprocess "github.com/shirou/gopsutil/v4/process"
)

// privateBytes returns the commit charge of the process. gopsutil reports
// PagefileUsage, which equals PrivateUsage, as VMS on Windows.
func privateBytes(_ context.Context, _ *psprocess.Process, memInfo *psprocess.MemoryInfoStat) (uint64, error) {
	return memInfo.VMS, nil
}
