package extension

import (
	"context"
	"log/slog"

	"github.com/reugn/procstat/internal/sysmonitor"
)

// DefaultDelimiter is the default field delimiter of the CSV sink.
const DefaultDelimiter = ';'

// options represents configuration options for the record sinks and the
// console display.
type options struct {
	logger     *slog.Logger
	delimiter  rune
	header     [][]string
	hostMemory func(context.Context) (sysmonitor.SystemMemory, error)
}

// makeDefaultOptions returns an options with default values.
func makeDefaultOptions() options {
	return options{
		logger:     slog.Default(),
		delimiter:  DefaultDelimiter,
		hostMemory: sysmonitor.HostMemory,
	}
}

// Opt is a functional option type used to configure an options.
type Opt func(*options)

// WithLogger configures the options with a custom logger.
// If not specified, the default slog.Default() will be used.
func WithLogger(logger *slog.Logger) Opt {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDelimiter configures the CSV field delimiter. Only ';' and ','
// are supported.
func WithDelimiter(delimiter rune) Opt {
	return func(o *options) {
		o.delimiter = delimiter
	}
}

// WithHeader configures the rows written after the delimiter hint, before
// any record.
func WithHeader(rows ...[]string) Opt {
	return func(o *options) {
		o.header = append(o.header, rows...)
	}
}

// WithHostMemory configures how the console display reads host memory.
// A nil function disables the share of host memory.
func WithHostMemory(hostMemory func(context.Context) (sysmonitor.SystemMemory, error)) Opt {
	return func(o *options) {
		o.hostMemory = hostMemory
	}
}
