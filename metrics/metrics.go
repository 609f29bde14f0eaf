package metrics

import "sync/atomic"

type MetricName string

const (
	// MetricRoutesGauge is the number of active routes.
	MetricRoutesGauge MetricName = "ros2_routes"
	// MetricForwardedSamplesCounter is the total of forwarded samples.
	MetricForwardedSamplesCounter MetricName = "ros2_forwarded_samples_total"
	// MetricDroppedSamplesCounter is the total of dropped samples,
	// labeled by reason (downsampled|congestion).
	MetricDroppedSamplesCounter MetricName = "ros2_dropped_samples_total"
	// MetricGraphEntitiesGauge is the number of discovered DDS entities,
	// by entity kind.
	MetricGraphEntitiesGauge MetricName = "ros2_graph_entities"
	// MetricDiscoveryEventsCounter is the total of DDS discovery events.
	MetricDiscoveryEventsCounter MetricName = "ros2_discovery_events_total"
	// MetricPeerQueryErrorsCounter is the total of failed or timed-out
	// peer bridge queries.
	MetricPeerQueryErrorsCounter MetricName = "ros2_peer_query_errors_total"
	// MetricRouteRetriesCounter is the total of route creation retries.
	MetricRouteRetriesCounter MetricName = "ros2_route_retries_total"
)

type Labels map[string]string

type Gauge interface {
	Inc()
	Dec()
	Add(v float64)
	Set(v float64)
}

type Counter interface {
	Inc()
	Add(v float64)
}

type Metrics interface {
	Counter(name MetricName, labels Labels) Counter
	Gauge(name MetricName, labels Labels) Gauge
}

var global atomic.Value

func init() {
	global.Store(Noop())
}

func SetGlobal(m Metrics) {
	if m != nil {
		global.Store(m)
	}
}

func Enabled() bool {
	_, ok := global.Load().(*promMetrics)
	return ok
}

func GetCounter(name MetricName, labels Labels) Counter {
	if c := global.Load().(Metrics).Counter(name, labels); c != nil {
		return c
	}
	return Noop().Counter(name, labels)
}

func GetGauge(name MetricName, labels Labels) Gauge {
	if g := global.Load().(Metrics).Gauge(name, labels); g != nil {
		return g
	}
	return Noop().Gauge(name, labels)
}
