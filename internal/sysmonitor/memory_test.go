package sysmonitor

import (
	"context"
	"testing"
)

func TestHostMemory(t *testing.T) {
	m, err := HostMemory(context.Background())
	if err != nil {
		t.Skipf("host memory is not available: %v", err)
	}

	if m.Total == 0 {
		t.Error("total memory should be > 0")
	}
	if m.Available > m.Total {
		t.Errorf("available %d should not exceed total %d", m.Available, m.Total)
	}
}

func TestSystemMemory_Share(t *testing.T) {
	tests := []struct {
		name     string
		memory   SystemMemory
		bytes    uint64
		expected float64
	}{
		{"unknown total", SystemMemory{}, 1024, 0},
		{"quarter", SystemMemory{Total: 4096}, 1024, 25},
		{"zero bytes", SystemMemory{Total: 4096}, 0, 0},
		{"capped", SystemMemory{Total: 1024}, 4096, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.memory.Share(tt.bytes); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestSystemMemory_CapTo(t *testing.T) {
	tests := []struct {
		name     string
		memory   SystemMemory
		limit    uint64
		expected SystemMemory
	}{
		{"above total", SystemMemory{Total: 4096, Available: 2048}, 8192, SystemMemory{Total: 4096, Available: 2048}},
		{"below available", SystemMemory{Total: 4096, Available: 2048}, 1024, SystemMemory{Total: 1024, Available: 1024}},
		{"between", SystemMemory{Total: 4096, Available: 1024}, 2048, SystemMemory{Total: 2048, Available: 1024}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.memory.capTo(tt.limit); got != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}
