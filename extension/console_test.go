package extension_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/c2h5oh/datasize"

	"github.com/reugn/procstat/extension"
	"github.com/reugn/procstat/internal/assert"
	"github.com/reugn/procstat/internal/sysmonitor"
)

func TestConsoleDisplay_Format(t *testing.T) {
	sample := testSample()
	tests := []struct {
		name       string
		hostMemory func(context.Context) (sysmonitor.SystemMemory, error)
		share      string
	}{
		{
			name: "with host memory",
			hostMemory: func(context.Context) (sysmonitor.SystemMemory, error) {
				return sysmonitor.SystemMemory{Total: 4 << 20, Available: 1 << 20}, nil
			},
			share: " (25.00% of RAM)",
		},
		{
			name: "host memory error",
			hostMemory: func(context.Context) (sysmonitor.SystemMemory, error) {
				return sysmonitor.SystemMemory{}, errors.New("unavailable")
			},
		},
		{
			name: "host memory disabled",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			display := extension.NewConsoleDisplay(&bytes.Buffer{}, "/usr/bin/app",
				extension.WithHostMemory(tt.hostMemory),
				extension.WithLogger(discardLogger))

			expected := "12:30:45 /usr/bin/app Cpu Load(%)=12.25 Working Set=" +
				datasize.ByteSize(sample.WorkingSet).HumanReadable() + tt.share +
				" Private bytes=" + datasize.ByteSize(sample.PrivateBytes).HumanReadable() +
				" Handle count=42"
			assert.Equal(t, expected, display.Format(sample))
		})
	}
}

func TestConsoleDisplay_Show(t *testing.T) {
	var buf bytes.Buffer
	display := extension.NewConsoleDisplay(&buf, "app",
		extension.WithHostMemory(nil),
		extension.WithLogger(discardLogger))

	assert.NoError(t, display.Show(testSample()))
	assert.NoError(t, display.Show(testSample()))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Equal(t, 2, len(lines))
	assert.Equal(t, display.Format(testSample()), lines[0])
}

func TestConsoleDisplay_NilWriter(t *testing.T) {
	assert.Panics(t, func() {
		extension.NewConsoleDisplay(nil, "app")
	})
}
