package monitor

import (
	"log/slog"

	"github.com/reugn/procstat"
	"github.com/reugn/procstat/internal/sysmonitor"
)

// options represents configuration options for a Sampler.
type options struct {
	clock        procstat.Clock
	logicalCores int
	logger       *slog.Logger
}

// makeDefaultOptions returns an options with default values.
func makeDefaultOptions() options {
	return options{
		clock:  procstat.SystemClock{},
		logger: slog.Default(),
	}
}

// Option is a functional option type used to configure a Sampler.
type Option func(*options)

// WithClock configures the clock used to measure sample windows.
// It must be the same clock the Source uses to timestamp its baseline.
func WithClock(clock procstat.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLogicalCores configures the number of logical cores CPU usage is
// normalized over. If not specified, or not positive, the host value is used.
func WithLogicalCores(n int) Option {
	return func(o *options) {
		o.logicalCores = n
	}
}

// WithLogger configures the options with a custom logger.
// If not specified, the default slog.Default() will be used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func (o *options) resolve() {
	if o.logicalCores <= 0 {
		o.logicalCores = sysmonitor.LogicalCores()
	}
	if o.clock == nil {
		o.clock = procstat.SystemClock{}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
}
