package route

import (
	"time"

	"github.com/ZettaScaleLabs/zplugin-ros2/limiter"
	"github.com/ZettaScaleLabs/zplugin-ros2/logger"
)

const (
	// DefaultQueriesTimeout bounds peer and historical-data queries.
	DefaultQueriesTimeout = 5 * time.Second
)

type options struct {
	logger         logger.Logger
	limiter        *limiter.Limiter
	blocking       bool
	queriesTimeout time.Duration
	adminPrefix    string

	// resolved per route
	gate *limiter.Gate
	mode DeliveryMode
}

type Option func(opts *options)

func LoggerOption(log logger.Logger) Option {
	return func(opts *options) {
		opts.logger = log
	}
}

// LimiterOption sets the frequency rule table routes are gated by.
func LimiterOption(l *limiter.Limiter) Option {
	return func(opts *options) {
		opts.limiter = l
	}
}

// BlockingOption sets the reliable_routes_blocking flag feeding the
// delivery mode of reliable routes.
func BlockingOption(blocking bool) Option {
	return func(opts *options) {
		opts.blocking = blocking
	}
}

func QueriesTimeoutOption(d time.Duration) Option {
	return func(opts *options) {
		if d > 0 {
			opts.queriesTimeout = d
		}
	}
}

// AdminPrefixOption sets the admin-space prefix ("@ros2/<id>") under which
// route liveliness tokens are declared. Empty disables route tokens.
func AdminPrefixOption(prefix string) Option {
	return func(opts *options) {
		opts.adminPrefix = prefix
	}
}

// GateOption sets the frequency gate of a single route, overriding the
// rule table lookup.
func GateOption(g *limiter.Gate) Option {
	return func(opts *options) {
		opts.gate = g
	}
}

// ModeOption sets the delivery mode of a single route, overriding the
// QoS-derived mode.
func ModeOption(mode DeliveryMode) Option {
	return func(opts *options) {
		opts.mode = mode
	}
}

func parseOptions(opts ...Option) options {
	o := options{
		queriesTimeout: DefaultQueriesTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Default()
	}
	return o
}
