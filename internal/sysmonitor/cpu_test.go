package sysmonitor

import (
	"context"
	"errors"
	"runtime"
	"testing"
)

func TestLogicalCores(t *testing.T) {
	n := LogicalCores()
	if n < 1 {
		t.Fatalf("LogicalCores should be at least 1, got %d", n)
	}

	// Resolved once
	if LogicalCores() != n {
		t.Error("LogicalCores should return a stable value")
	}
}

func TestCountLogicalCores(t *testing.T) {
	tests := []struct {
		name     string
		counter  func(context.Context, bool) (int, error)
		expected int
	}{
		{
			name:     "host value",
			counter:  func(context.Context, bool) (int, error) { return 12, nil },
			expected: 12,
		},
		{
			name: "error falls back to runtime",
			counter: func(context.Context, bool) (int, error) {
				return 0, errors.New("not implemented yet")
			},
			expected: runtime.NumCPU(),
		},
		{
			name:     "zero falls back to runtime",
			counter:  func(context.Context, bool) (int, error) { return 0, nil },
			expected: runtime.NumCPU(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := countLogicalCores(context.Background(), tt.counter)
			if got != tt.expected {
				t.Errorf("expected %d cores, got %d", tt.expected, got)
			}
		})
	}
}

func TestCountLogicalCores_RequestsLogical(t *testing.T) {
	var requested bool
	countLogicalCores(context.Background(), func(_ context.Context, logical bool) (int, error) {
		requested = logical
		return 1, nil
	})
	if !requested {
		t.Error("logical core count should be requested")
	}
}
