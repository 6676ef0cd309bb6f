package extension

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"

	"github.com/reugn/procstat"
)

// hostMemoryTimeout bounds the host memory query made for every line.
const hostMemoryTimeout = 500 * time.Millisecond

// ConsoleDisplay renders samples as single human readable lines.
type ConsoleDisplay struct {
	writer io.Writer
	path   string

	opts options
}

// NewConsoleDisplay returns a new ConsoleDisplay writing lines about the
// process at path to the given writer.
func NewConsoleDisplay(writer io.Writer, path string, opts ...Opt) *ConsoleDisplay {
	if writer == nil {
		panic("writer cannot be nil")
	}
	return &ConsoleDisplay{
		writer: writer,
		path:   path,
		opts:   applyOptions(opts),
	}
}

// Show writes a line describing the sample.
func (d *ConsoleDisplay) Show(sample procstat.Sample) error {
	_, err := io.WriteString(d.writer, d.Format(sample)+"\n")
	return err
}

// Format returns the line describing the sample, without a line terminator.
func (d *ConsoleDisplay) Format(sample procstat.Sample) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s Cpu Load(%%)=%.2f Working Set=%s",
		sample.Time.Format(time.TimeOnly), d.path, sample.CPUUsage,
		datasize.ByteSize(sample.WorkingSet).HumanReadable())

	if share, ok := d.memoryShare(sample.WorkingSet); ok {
		fmt.Fprintf(&b, " (%.2f%% of RAM)", share)
	}

	fmt.Fprintf(&b, " Private bytes=%s Handle count=%d",
		datasize.ByteSize(sample.PrivateBytes).HumanReadable(), sample.HandleCount)
	return b.String()
}

func (d *ConsoleDisplay) memoryShare(bytes uint64) (float64, bool) {
	if d.opts.hostMemory == nil {
		return 0, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), hostMemoryTimeout)
	defer cancel()

	memory, err := d.opts.hostMemory(ctx)
	if err != nil {
		d.opts.logger.Debug("Host memory is unavailable", slog.Any("error", err))
		return 0, false
	}
	return memory.Share(bytes), true
}
