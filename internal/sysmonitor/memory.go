package sysmonitor

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/mem"
)

// SystemMemory represents system memory information in bytes
type SystemMemory struct {
	Total     uint64
	Available uint64
}

// HostMemory returns the current host memory statistics. Inside a memory
// limited control group the limit is reported as the total.
func HostMemory(ctx context.Context) (SystemMemory, error) {
	m, err := readVirtualMemory(ctx)
	if err != nil {
		return m, err
	}
	if limit, ok := memoryLimit(); ok {
		m = m.capTo(limit)
	}
	return m, nil
}

// capTo bounds the memory by the given limit.
func (m SystemMemory) capTo(limit uint64) SystemMemory {
	if limit >= m.Total {
		return m
	}
	m.Total = limit
	if m.Available > limit {
		m.Available = limit
	}
	return m
}

func readVirtualMemory(ctx context.Context) (SystemMemory, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return SystemMemory{}, errors.Wrap(err, "failed to read host memory")
	}
	if vm.Total == 0 {
		return SystemMemory{}, errors.New("host reported zero total memory")
	}

	available := vm.Available
	if available > vm.Total {
		available = vm.Total
	}
	return SystemMemory{
		Total:     vm.Total,
		Available: available,
	}, nil
}

// Share returns the given byte count as a percentage of total memory,
// capped to 0-100. It returns 0 if total memory is unknown.
func (m SystemMemory) Share(bytes uint64) float64 {
	if m.Total == 0 {
		return 0
	}
	percent := float64(bytes) / float64(m.Total) * 100
	if percent > 100 {
		return 100
	}
	return percent
}
