// Package bridge assembles the ROS2/zenoh bridge: configuration
// validation, the route table, the graph scanner, the remote discovery
// protocol, the admin space and the optional API and metrics services.
package bridge

import (
	"context"
	"errors"
	"fmt"

	apiservice "github.com/ZettaScaleLabs/zplugin-ros2/api/service"
	"github.com/ZettaScaleLabs/zplugin-ros2/config"
	parsinglogger "github.com/ZettaScaleLabs/zplugin-ros2/config/parsing/logger"
	"github.com/ZettaScaleLabs/zplugin-ros2/dds"
	"github.com/ZettaScaleLabs/zplugin-ros2/discovery"
	"github.com/ZettaScaleLabs/zplugin-ros2/filter"
	"github.com/ZettaScaleLabs/zplugin-ros2/limiter"
	"github.com/ZettaScaleLabs/zplugin-ros2/logger"
	"github.com/ZettaScaleLabs/zplugin-ros2/metrics"
	metricsservice "github.com/ZettaScaleLabs/zplugin-ros2/metrics/service"
	"github.com/ZettaScaleLabs/zplugin-ros2/route"
	"github.com/ZettaScaleLabs/zplugin-ros2/service"
	"github.com/ZettaScaleLabs/zplugin-ros2/zenoh"
)

// Version of the bridge, reported in the admin space.
const Version = "0.1.0"

// Bridge bridges the local ROS graph to zenoh according to its
// configuration. Collaborators are injected: the zenoh session and the
// DDS participant are opened by the caller.
type Bridge struct {
	config      *config.Config
	session     zenoh.Session
	participant dds.Participant

	adminPrefix string
	table       *route.Table
	scanner     *discovery.Scanner
	remote      *discovery.Remote
	log         logger.Logger
}

// New validates cfg and assembles a bridge. Invalid policy (a bad filter
// regex or frequency rule) is fatal: the bridge must not run with a
// configuration it cannot honor.
func New(cfg *config.Config, sess zenoh.Session, part dds.Participant) (*Bridge, error) {
	f, err := filter.NewFilter(
		filter.AllowOption(cfg.Allow),
		filter.DenyOption(cfg.Deny),
	)
	if err != nil {
		return nil, fmt.Errorf("interface filter: %w", err)
	}
	rules, err := limiter.ParseRules(cfg.PubMaxFrequencies)
	if err != nil {
		return nil, fmt.Errorf("frequency rules: %w", err)
	}

	if l := parsinglogger.ParseLogger(cfg.Log); l != nil {
		logger.SetDefault(l)
	}
	log := logger.Default().WithFields(map[string]any{"bridge": cfg.BridgeID()})
	adminPrefix := zenoh.AdminPrefix(cfg.BridgeID())
	timeout := cfg.QueriesTimeoutDuration()

	table := route.NewTable(sess, part,
		route.LoggerOption(log),
		route.LimiterOption(limiter.NewLimiter(rules)),
		route.BlockingOption(cfg.ReliableRoutesBlocking),
		route.QueriesTimeoutOption(timeout),
		route.AdminPrefixOption(adminPrefix),
	)
	scanner := discovery.NewScanner(table,
		discovery.LoggerOption(log),
		discovery.FilterOption(f),
	)
	remote := discovery.NewRemote(sess, cfg.BridgeID(), table, table,
		discovery.LoggerOption(log),
		discovery.QueriesTimeoutOption(timeout),
	)

	return &Bridge{
		config:      cfg,
		session:     sess,
		participant: part,
		adminPrefix: adminPrefix,
		table:       table,
		scanner:     scanner,
		remote:      remote,
		log:         log,
	}, nil
}

// Table exposes the route table, read-only use intended.
func (b *Bridge) Table() *route.Table {
	return b.table
}

// Run serves the bridge until ctx is done. Discovery processing and the
// remote protocol run as independent concurrency domains sharing only
// the route table.
func (b *Bridge) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	qbl, err := b.session.DeclareQueryable(b.adminPrefix+"/**", b.handleAdminQuery)
	if err != nil {
		return fmt.Errorf("admin space: %w", err)
	}
	defer qbl.Close()

	services, err := b.startServices()
	if err != nil {
		return err
	}
	defer func() {
		for _, s := range services {
			s.Close()
		}
	}()

	b.log.Infof("bridge %s up (version %s)", b.config.BridgeID(), Version)
	defer b.table.Close()

	errc := make(chan error, 2)
	go func() {
		errc <- b.remote.Run(ctx)
	}()
	go func() {
		errc <- b.scanner.Run(ctx, b.participant)
	}()

	var firstErr error
	for i := 0; i < 2; i++ {
		err := <-errc
		cancel()
		if firstErr == nil && err != nil && !errors.Is(err, context.Canceled) {
			firstErr = err
		}
	}
	return firstErr
}

func (b *Bridge) startServices() ([]service.Service, error) {
	var services []service.Service

	if c := b.config.API; c != nil && c.Addr != "" {
		s, err := apiservice.NewService("tcp", c.Addr,
			apiservice.PathPrefixOption(c.PathPrefix),
			apiservice.AccessLogOption(c.AccessLog),
			apiservice.RoutesOption(b.table),
		)
		if err != nil {
			return services, fmt.Errorf("api service: %w", err)
		}
		b.log.Infof("api service on %s", s.Addr())
		go s.Serve()
		services = append(services, s)
	}

	if c := b.config.Metrics; c != nil && c.Addr != "" {
		metrics.SetGlobal(metrics.NewMetrics())
		s, err := metricsservice.NewService("tcp", c.Addr,
			metricsservice.PathOption(c.Path),
		)
		if err != nil {
			return services, fmt.Errorf("metrics service: %w", err)
		}
		b.log.Infof("metrics service on %s", s.Addr())
		go s.Serve()
		services = append(services, s)
	}

	return services, nil
}
