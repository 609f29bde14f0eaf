// Package route implements the forwarding routes bridging discovered ROS
// interfaces to zenoh, and the table owning their lifecycle.
package route

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZettaScaleLabs/zplugin-ros2/dds"
	"github.com/ZettaScaleLabs/zplugin-ros2/limiter"
	"github.com/ZettaScaleLabs/zplugin-ros2/logger"
	"github.com/ZettaScaleLabs/zplugin-ros2/metrics"
	"github.com/ZettaScaleLabs/zplugin-ros2/ros2"
	"github.com/ZettaScaleLabs/zplugin-ros2/stats"
	"github.com/ZettaScaleLabs/zplugin-ros2/zenoh"
)

// State is the lifecycle state of a route.
type State int32

const (
	// StatePending: the zenoh or DDS side is still being established.
	StatePending State = iota
	// StateActive: both sides exist and forwarding occurs.
	StateActive
	// StateDraining: teardown in flight, in-flight samples may complete.
	StateDraining
	// StateClosed is terminal. A rediscovery of the same identity
	// creates a fresh route.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Route is an active forwarding pipeline for one ROS interface. It owns
// the zenoh and DDS resources it was built from; they are released
// exactly once, on Close.
type Route struct {
	identity ros2.Identity
	keyExpr  string
	mode     DeliveryMode
	gate     *limiter.Gate
	stats    stats.Stats
	state    atomic.Int32

	log logger.Logger

	mu      sync.Mutex
	closers []io.Closer
}

func newRoute(id ros2.Identity, o options) *Route {
	return &Route{
		identity: id,
		keyExpr:  id.KeyExpr(),
		mode:     o.mode,
		gate:     o.gate,
		log: o.logger.WithFields(map[string]any{
			"kind":  id.Kind.String(),
			"route": id.Name,
		}),
	}
}

func (r *Route) Identity() ros2.Identity { return r.identity }
func (r *Route) KeyExpr() string         { return r.keyExpr }
func (r *Route) Mode() DeliveryMode      { return r.mode }
func (r *Route) State() State            { return State(r.state.Load()) }
func (r *Route) Stats() *stats.Stats     { return &r.stats }

func (r *Route) transition(from, to State) bool {
	return r.state.CompareAndSwap(int32(from), int32(to))
}

func (r *Route) activate() {
	if r.transition(StatePending, StateActive) {
		r.log.Infof("route up: %s -> %s (%s)", r.identity, r.keyExpr, r.mode)
	}
}

func (r *Route) addCloser(c io.Closer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closers = append(r.closers, c)
}

// Close drains and releases the route's resources. It never awaits a
// network round-trip: in-flight forwards complete or are dropped by the
// state check, they are not waited for. Closed is terminal.
func (r *Route) Close() error {
	if !r.transition(StateActive, StateDraining) &&
		!r.transition(StatePending, StateDraining) {
		return nil
	}

	r.mu.Lock()
	closers := r.closers
	r.closers = nil
	r.mu.Unlock()

	var err error
	// release in reverse creation order: ingress resources were added
	// last, closing them first stops new samples entering the pipeline
	for i := len(closers) - 1; i >= 0; i-- {
		err = errors.Join(err, closers[i].Close())
	}
	r.state.Store(int32(StateClosed))
	r.log.Infof("route down: %s", r.identity)
	return err
}

// forwardToZenoh runs on the DDS reader callback path. With ModeBlock the
// Put may stall; no lock shared with discovery processing is held here.
func (r *Route) forwardToZenoh(pub zenoh.Publisher, payload []byte) {
	if r.State() != StateActive {
		return
	}
	if !r.gate.Allow(time.Now()) {
		r.stats.Add(stats.KindDroppedDownsampled, 1)
		r.droppedMetric("downsampled")
		return
	}
	if err := pub.Put(payload); err != nil {
		if errors.Is(err, zenoh.ErrCongestion) {
			r.stats.Add(stats.KindDroppedCongestion, 1)
			r.droppedMetric("congestion")
			return
		}
		r.stats.Add(stats.KindErrors, 1)
		r.log.Warnf("publication to %s failed: %v", pub.KeyExpr(), err)
		return
	}
	r.forwarded()
}

// forwardToDDS runs on the zenoh subscriber callback path.
func (r *Route) forwardToDDS(w dds.Writer, payload []byte) {
	if r.State() != StateActive {
		return
	}
	if !r.gate.Allow(time.Now()) {
		r.stats.Add(stats.KindDroppedDownsampled, 1)
		r.droppedMetric("downsampled")
		return
	}
	if err := w.Write(payload); err != nil {
		r.stats.Add(stats.KindErrors, 1)
		r.log.Warnf("write to DDS failed: %v", err)
		return
	}
	r.forwarded()
}

func (r *Route) forwarded() {
	r.stats.Add(stats.KindForwarded, 1)
	if metrics.Enabled() {
		metrics.GetCounter(metrics.MetricForwardedSamplesCounter,
			metrics.Labels{"kind": r.identity.Kind.String()}).Inc()
	}
}

func (r *Route) droppedMetric(reason string) {
	if metrics.Enabled() {
		metrics.GetCounter(metrics.MetricDroppedSamplesCounter,
			metrics.Labels{"kind": r.identity.Kind.String(), "reason": reason}).Inc()
	}
}

// Info is a read-only route descriptor, served by the admin space and the
// REST API.
type Info struct {
	Kind               string   `json:"kind" yaml:"kind"`
	Name               string   `json:"name" yaml:"name"`
	Type               string   `json:"type" yaml:"type"`
	KeyExpr            string   `json:"key_expr" yaml:"keyExpr"`
	Mode               string   `json:"mode" yaml:"mode"`
	State              string   `json:"state" yaml:"state"`
	References         int      `json:"references" yaml:"references"`
	Nodes              []string `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Forwarded          uint64   `json:"forwarded" yaml:"forwarded"`
	DroppedDownsampled uint64   `json:"dropped_downsampled" yaml:"droppedDownsampled"`
	DroppedCongestion  uint64   `json:"dropped_congestion" yaml:"droppedCongestion"`
	Errors             uint64   `json:"errors" yaml:"errors"`
}

func (r *Route) info(refs int, nodes []string) Info {
	return Info{
		Kind:               r.identity.Kind.String(),
		Name:               r.identity.Name,
		Type:               r.identity.Type,
		KeyExpr:            r.keyExpr,
		Mode:               r.mode.String(),
		State:              r.State().String(),
		References:         refs,
		Nodes:              nodes,
		Forwarded:          r.stats.Get(stats.KindForwarded),
		DroppedDownsampled: r.stats.Get(stats.KindDroppedDownsampled),
		DroppedCongestion:  r.stats.Get(stats.KindDroppedCongestion),
		Errors:             r.stats.Get(stats.KindErrors),
	}
}
