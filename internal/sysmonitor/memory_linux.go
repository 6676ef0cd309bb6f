//go:build linux

package sysmonitor

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	cgroupV2MemoryMax   = "/sys/fs/cgroup/memory.max"
	cgroupV1MemoryLimit = "/sys/fs/cgroup/memory/memory.limit_in_bytes"
	// cgroup v1 reports an unlimited group as a huge page-aligned number
	cgroupV1Unlimited = 1 << 60
)

// memoryLimit returns the memory limit of the control group this process
// runs in. Launched processes inherit the group, so the limit bounds them
// as well.
func memoryLimit() (uint64, bool) {
	return memoryLimitWithReader(os.ReadFile)
}

func memoryLimitWithReader(readFile func(string) ([]byte, error)) (uint64, bool) {
	for _, path := range []string{cgroupV2MemoryMax, cgroupV1MemoryLimit} {
		limit, err := readCgroupValue(readFile, path)
		if err == nil && limit > 0 && limit < cgroupV1Unlimited {
			return limit, true
		}
	}
	return 0, false
}

func readCgroupValue(readFile func(string) ([]byte, error), path string) (uint64, error) {
	data, err := readFile(path)
	if err != nil {
		return 0, err
	}
	str := strings.TrimSpace(string(data))
	if str == "max" {
		return 0, os.ErrNotExist
	}
	val, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to parse value %q from %s", str, path)
	}
	return val, nil
}
