package process

import (
	"log/slog"
	"time"

	"github.com/reugn/procstat"
)

const (
	// DefaultStabilizeAttempts is the default number of stabilization attempts.
	DefaultStabilizeAttempts = 30
	// DefaultStabilizeDelay is the default delay between stabilization attempts.
	DefaultStabilizeDelay = time.Second
	// DefaultKillTimeout is the default time to wait for a killed process
	// to be reaped.
	DefaultKillTimeout = 5 * time.Second
)

// options represents configuration options for a process Handle.
type options struct {
	args              []string
	stabilizeAttempts int
	stabilizeDelay    time.Duration
	killTimeout       time.Duration
	clock             procstat.Clock
	logger            *slog.Logger
}

// makeDefaultOptions returns an options with default values.
func makeDefaultOptions() options {
	return options{
		stabilizeAttempts: DefaultStabilizeAttempts,
		stabilizeDelay:    DefaultStabilizeDelay,
		killTimeout:       DefaultKillTimeout,
		clock:             procstat.SystemClock{},
		logger:            slog.Default(),
	}
}

// Option is a functional option type used to configure a Handle.
type Option func(*options)

// WithArgs configures the arguments passed to the executable.
func WithArgs(args ...string) Option {
	return func(o *options) {
		o.args = args
	}
}

// WithStabilization configures how many times, and how often, a started
// process is checked for a resolvable identity and non-zero processor time.
// Non-positive values keep the defaults.
func WithStabilization(attempts int, delay time.Duration) Option {
	return func(o *options) {
		if attempts > 0 {
			o.stabilizeAttempts = attempts
		}
		if delay > 0 {
			o.stabilizeDelay = delay
		}
	}
}

// WithKillTimeout configures how long Stop waits for a killed process
// to exit.
func WithKillTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.killTimeout = timeout
		}
	}
}

// WithClock configures the clock used to timestamp the baseline.
func WithClock(clock procstat.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLogger configures the options with a custom logger.
// If not specified, the default slog.Default() will be used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
