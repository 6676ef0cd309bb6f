//go:build !linux

package sysmonitor

// memoryLimit reports no limit outside Linux control groups.
func memoryLimit() (uint64, bool) {
	return 0, false
}
