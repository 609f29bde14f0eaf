package discovery

import (
	"time"

	"github.com/ZettaScaleLabs/zplugin-ros2/filter"
	"github.com/ZettaScaleLabs/zplugin-ros2/logger"
)

const (
	// DefaultGracePeriod bounds how long an incomplete service/action
	// endpoint group may wait for its missing endpoints.
	DefaultGracePeriod = 10 * time.Second
	// DefaultQueriesTimeout bounds each peer bridge query.
	DefaultQueriesTimeout = 5 * time.Second
	// DefaultQueryPeriod is the interval between periodic peer query cycles.
	DefaultQueryPeriod = 30 * time.Second
)

type options struct {
	logger  logger.Logger
	filter  *filter.Filter
	grace   time.Duration
	timeout time.Duration
	period  time.Duration
}

type Option func(opts *options)

func LoggerOption(log logger.Logger) Option {
	return func(opts *options) {
		opts.logger = log
	}
}

// FilterOption sets the interface filter applied before any event reaches
// the route table.
func FilterOption(f *filter.Filter) Option {
	return func(opts *options) {
		opts.filter = f
	}
}

// GracePeriodOption sets the pending-group expiry of the scanner.
func GracePeriodOption(d time.Duration) Option {
	return func(opts *options) {
		if d > 0 {
			opts.grace = d
		}
	}
}

// QueriesTimeoutOption sets the per-peer query timeout.
func QueriesTimeoutOption(d time.Duration) Option {
	return func(opts *options) {
		if d > 0 {
			opts.timeout = d
		}
	}
}

// QueryPeriodOption sets the periodic peer query interval.
func QueryPeriodOption(d time.Duration) Option {
	return func(opts *options) {
		if d > 0 {
			opts.period = d
		}
	}
}

func parseOptions(opts ...Option) options {
	o := options{
		grace:   DefaultGracePeriod,
		timeout: DefaultQueriesTimeout,
		period:  DefaultQueryPeriod,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Default()
	}
	return o
}
