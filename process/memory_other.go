//go:build !linux && !windows

package process

import (
	"context"

	psprocess "github.com/shirou/gopsutil/v4/process"
)

// privateBytes falls back to the resident size where the platform does not
// expose private memory.
func privateBytes(_ context.Context, _ *psprocess.Process, memInfo *psprocess.MemoryInfoStat) (uint64, error) {
	return memInfo.RSS, nil
}
