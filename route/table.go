package route

import (
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ZettaScaleLabs/zplugin-ros2/dds"
	"github.com/ZettaScaleLabs/zplugin-ros2/limiter"
	"github.com/ZettaScaleLabs/zplugin-ros2/logger"
	"github.com/ZettaScaleLabs/zplugin-ros2/metrics"
	"github.com/ZettaScaleLabs/zplugin-ros2/ros2"
	"github.com/ZettaScaleLabs/zplugin-ros2/zenoh"
)

const (
	createRetryInitialInterval = 250 * time.Millisecond
	createRetryMaxInterval     = 5 * time.Second
	createRetryMaxAttempts     = 8
)

// Table is the authoritative map from interface identity to live route.
// It is the sole owner of route objects and the sole mutator of their
// lifecycle. Entries are locked per identity: one identity's
// create/update/remove sequence is linearized, different identities
// proceed in parallel.
type Table struct {
	session     zenoh.Session
	participant dds.Participant
	options     options
	log         logger.Logger

	entries sync.Map // ros2.Identity -> *entry

	remoteMu sync.RWMutex
	remote   map[string]map[ros2.Identity]struct{} // peer id -> advertised identities
}

type entry struct {
	mu       sync.Mutex
	route    *Route
	creating bool
	dead     bool               // removed from the table, do not reuse
	refs     map[dds.Gid]string // contributing entity -> node name
}

func NewTable(sess zenoh.Session, part dds.Participant, opts ...Option) *Table {
	o := parseOptions(opts...)
	return &Table{
		session:     sess,
		participant: part,
		options:     o,
		log:         o.logger.WithFields(map[string]any{"kind": "route-table"}),
		remote:      make(map[string]map[ros2.Identity]struct{}),
	}
}

// lockEntry returns the live entry for an identity with its lock held.
// A dead entry (removed from the table while we were acquiring it) is
// skipped and a fresh one stored, so late lookups never resurrect a
// torn-down route.
func (t *Table) lockEntry(id ros2.Identity) *entry {
	for {
		v, _ := t.entries.LoadOrStore(id, &entry{refs: make(map[dds.Gid]string)})
		e := v.(*entry)
		e.mu.Lock()
		if !e.dead {
			return e
		}
		e.mu.Unlock()
	}
}

// remove deletes the entry from the table. Caller holds e.mu; marking the
// entry dead and unmapping it under the same lock keeps removal inside
// the per-identity critical section.
func (t *Table) remove(id ros2.Identity, e *entry) {
	if e.dead {
		// already unmapped; the identity may map to a fresh entry now
		return
	}
	e.dead = true
	t.entries.Delete(id)
}

// OnInterfaceDiscovered records one contributing DDS entity for the given
// identity. The first entity triggers route creation; further entities
// only increment the reference count (N local subscribers to one topic
// collapse to one route and one zenoh resource).
func (t *Table) OnInterfaceDiscovered(id ros2.Identity, node string, key dds.Gid, ep dds.Endpoint, parts map[string]dds.Endpoint) {
	e := t.lockEntry(id)
	e.refs[key] = node
	if e.route != nil || e.creating {
		refs := len(e.refs)
		e.mu.Unlock()
		t.log.Debugf("%s: %d contributing entities", id, refs)
		return
	}
	e.creating = true
	e.mu.Unlock()

	go t.createWithRetry(e, id, ep, parts)
}

// OnInterfaceUndiscovered drops one contributing DDS entity; the route is
// drained and closed when the last one disappears. Teardown runs outside
// the entry lock and never awaits a network round-trip.
func (t *Table) OnInterfaceUndiscovered(id ros2.Identity, key dds.Gid) {
	v, ok := t.entries.Load(id)
	if !ok {
		return
	}
	e := v.(*entry)

	e.mu.Lock()
	if e.dead {
		e.mu.Unlock()
		return
	}
	delete(e.refs, key)
	if len(e.refs) > 0 || e.creating {
		e.mu.Unlock()
		return
	}
	r := e.route
	e.route = nil
	t.remove(id, e)
	e.mu.Unlock()

	if r != nil {
		r.Close()
		t.routesGauge(id.Kind).Dec()
	}
}

// Lookup returns the live route for an identity, if any.
func (t *Table) Lookup(id ros2.Identity) (*Route, bool) {
	v, ok := t.entries.Load(id)
	if !ok {
		return nil, false
	}
	e := v.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.route == nil {
		return nil, false
	}
	return e.route, true
}

// Advertisement returns the identities of this bridge's active routes,
// exchanged with peer bridges.
func (t *Table) Advertisement() []ros2.Identity {
	var ids []ros2.Identity
	t.entries.Range(func(_, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		if e.route != nil && e.route.State() == StateActive {
			ids = append(ids, e.route.Identity())
		}
		e.mu.Unlock()
		return true
	})
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Kind != ids[j].Kind {
			return ids[i].Kind < ids[j].Kind
		}
		return ids[i].Name < ids[j].Name
	})
	return ids
}

// Snapshot returns read-only descriptors of all routes, for the admin
// space and the REST API.
func (t *Table) Snapshot() []Info {
	var infos []Info
	t.entries.Range(func(_, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		if e.route != nil {
			infos = append(infos, e.route.info(len(e.refs), refNodes(e.refs)))
		}
		e.mu.Unlock()
		return true
	})
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Kind != infos[j].Kind {
			return infos[i].Kind < infos[j].Kind
		}
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// Close drains and closes all routes.
func (t *Table) Close() error {
	t.entries.Range(func(k, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		r := e.route
		e.route = nil
		t.remove(k.(ros2.Identity), e)
		e.mu.Unlock()
		if r != nil {
			r.Close()
			t.routesGauge(r.Identity().Kind).Dec()
		}
		return true
	})
	return nil
}

func (t *Table) createWithRetry(e *entry, id ros2.Identity, ep dds.Endpoint, parts map[string]dds.Endpoint) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = createRetryInitialInterval
	bo.MaxInterval = createRetryMaxInterval

	var r *Route
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		var err error
		if r, err = t.createRoute(id, ep, parts); err != nil {
			t.log.Debugf("route creation for %s failed (attempt %d): %v", id, attempts, err)
			if metrics.Enabled() {
				metrics.GetCounter(metrics.MetricRouteRetriesCounter,
					metrics.Labels{"kind": id.Kind.String()}).Inc()
			}
			return err
		}
		return nil
	}, backoff.WithMaxRetries(bo, createRetryMaxAttempts-1))

	e.mu.Lock()
	e.creating = false
	if err != nil {
		if len(e.refs) == 0 {
			t.remove(id, e)
		}
		// otherwise the identity stays un-routed until the next
		// discovery event
		e.mu.Unlock()
		t.log.Warnf("giving up route creation for %s after %d attempts: %v", id, attempts, err)
		return
	}
	if e.dead || len(e.refs) == 0 {
		// the table closed, or every contributing entity disappeared
		// while we were creating
		t.remove(id, e)
		e.mu.Unlock()
		r.Close()
		return
	}
	e.route = r
	e.mu.Unlock()
	t.routesGauge(id.Kind).Inc()
}

func (t *Table) createRoute(id ros2.Identity, ep dds.Endpoint, parts map[string]dds.Endpoint) (*Route, error) {
	opts := []Option{
		LoggerOption(t.options.logger),
		QueriesTimeoutOption(t.options.queriesTimeout),
		GateOption(t.routeGate(id)),
		ModeOption(t.routeMode(id.Kind, ep.QoS)),
	}

	var (
		r   *Route
		err error
	)
	switch id.Kind {
	case ros2.Publisher:
		r, err = NewPublisherRoute(t.session, t.participant, id, ep, opts...)
	case ros2.Subscriber:
		r, err = NewSubscriberRoute(t.session, t.participant, id, ep, opts...)
	case ros2.ServiceServer:
		r, err = NewServiceServerRoute(t.session, t.participant, id, opts...)
	case ros2.ServiceClient:
		r, err = NewServiceClientRoute(t.session, t.participant, id, opts...)
	case ros2.ActionServer:
		r, err = NewActionServerRoute(t.session, t.participant, id, parts, opts...)
	case ros2.ActionClient:
		r, err = NewActionClientRoute(t.session, t.participant, id, parts, opts...)
	}
	if err != nil {
		return nil, err
	}

	if t.options.adminPrefix != "" {
		ke := t.options.adminPrefix + "/" + id.AdminKeyExpr() +
			"/" + zenoh.QoSToKeyExpr(ep.Keyless, ep.QoS)
		token, err := t.session.Liveliness().DeclareToken(ke)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.addCloser(tokenCloser{token})
	}
	return r, nil
}

func (t *Table) routeGate(id ros2.Identity) *limiter.Gate {
	if t.options.gate != nil {
		return t.options.gate
	}
	return t.options.limiter.GateFor(id.Name)
}

func (t *Table) routeMode(kind ros2.InterfaceKind, q dds.QoS) DeliveryMode {
	switch kind {
	case ros2.Publisher:
		return DeliveryModeFor(dds.IsWriterReliable(q), t.options.blocking)
	case ros2.Subscriber:
		return DeliveryModeFor(dds.IsReaderReliable(q), t.options.blocking)
	default:
		// service request/reply endpoints are RELIABLE
		return DeliveryModeFor(true, t.options.blocking)
	}
}

func (t *Table) routesGauge(kind ros2.InterfaceKind) metrics.Gauge {
	return metrics.GetGauge(metrics.MetricRoutesGauge,
		metrics.Labels{"kind": kind.String()})
}

// OnRemoteAdvertisement records the routes a peer bridge advertises.
func (t *Table) OnRemoteAdvertisement(peer string, ids []ros2.Identity) {
	t.remoteMu.Lock()
	defer t.remoteMu.Unlock()
	set := make(map[ros2.Identity]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	t.remote[peer] = set
}

// OnPeerGone forgets everything a departed peer bridge advertised.
func (t *Table) OnPeerGone(peer string) {
	t.remoteMu.Lock()
	defer t.remoteMu.Unlock()
	delete(t.remote, peer)
}

// RemoteRoutes returns, per peer bridge, the identities it advertises.
func (t *Table) RemoteRoutes() map[string][]ros2.Identity {
	t.remoteMu.RLock()
	defer t.remoteMu.RUnlock()
	out := make(map[string][]ros2.Identity, len(t.remote))
	for peer, set := range t.remote {
		ids := make([]ros2.Identity, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i].Name < ids[j].Name })
		out[peer] = ids
	}
	return out
}

// refNodes returns the distinct node names behind a route's references.
func refNodes(refs map[dds.Gid]string) []string {
	seen := make(map[string]struct{}, len(refs))
	var nodes []string
	for _, n := range refs {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes
}

type tokenCloser struct {
	t zenoh.Token
}

func (c tokenCloser) Close() error {
	return c.t.Undeclare()
}
