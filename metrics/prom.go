package metrics

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
)

type promMetrics struct {
	host     string
	gauges   map[MetricName]*prometheus.GaugeVec
	counters map[MetricName]*prometheus.CounterVec
}

func NewMetrics() Metrics {
	host, _ := os.Hostname()
	m := &promMetrics{
		host: host,
		gauges: map[MetricName]*prometheus.GaugeVec{
			MetricRoutesGauge: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: string(MetricRoutesGauge),
					Help: "Current number of active routes",
				},
				[]string{"host", "kind"}),
			MetricGraphEntitiesGauge: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: string(MetricGraphEntitiesGauge),
					Help: "Current number of discovered DDS entities",
				},
				[]string{"host", "entity"}),
		},
		counters: map[MetricName]*prometheus.CounterVec{
			MetricForwardedSamplesCounter: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: string(MetricForwardedSamplesCounter),
					Help: "Total number of forwarded samples",
				},
				[]string{"host", "kind"}),
			MetricDroppedSamplesCounter: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: string(MetricDroppedSamplesCounter),
					Help: "Total number of dropped samples",
				},
				[]string{"host", "kind", "reason"}),
			MetricDiscoveryEventsCounter: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: string(MetricDiscoveryEventsCounter),
					Help: "Total number of DDS discovery events",
				},
				[]string{"host", "event"}),
			MetricPeerQueryErrorsCounter: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: string(MetricPeerQueryErrorsCounter),
					Help: "Total number of failed or timed-out peer bridge queries",
				},
				[]string{"host", "peer"}),
			MetricRouteRetriesCounter: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: string(MetricRouteRetriesCounter),
					Help: "Total number of route creation retries",
				},
				[]string{"host", "kind"}),
		},
	}
	for k := range m.gauges {
		prometheus.MustRegister(m.gauges[k])
	}
	for k := range m.counters {
		prometheus.MustRegister(m.counters[k])
	}

	return m
}

func (m *promMetrics) Gauge(name MetricName, labels Labels) Gauge {
	v, ok := m.gauges[name]
	if !ok {
		return nil
	}
	if labels == nil {
		labels = Labels{}
	}
	labels["host"] = m.host
	return v.With(prometheus.Labels(labels))
}

func (m *promMetrics) Counter(name MetricName, labels Labels) Counter {
	v, ok := m.counters[name]
	if !ok {
		return nil
	}
	if labels == nil {
		labels = Labels{}
	}
	labels["host"] = m.host
	return v.With(prometheus.Labels(labels))
}
