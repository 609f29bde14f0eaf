// Package discovery watches the local DDS graph and the zenoh network:
// the scanner classifies DDS discovery events into typed interface events
// for the route table, the remote protocol exchanges advertised route
// sets with peer bridges.
package discovery

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/patrickmn/go-cache"

	"github.com/ZettaScaleLabs/zplugin-ros2/dds"
	"github.com/ZettaScaleLabs/zplugin-ros2/filter"
	"github.com/ZettaScaleLabs/zplugin-ros2/logger"
	"github.com/ZettaScaleLabs/zplugin-ros2/metrics"
	"github.com/ZettaScaleLabs/zplugin-ros2/ros2"
)

// RouteSink receives classified interface events. For grouped interfaces
// (services, actions) parts carries the discovered sub-endpoints by role.
type RouteSink interface {
	OnInterfaceDiscovered(id ros2.Identity, node string, key dds.Gid, ep dds.Endpoint, parts map[string]dds.Endpoint)
	OnInterfaceUndiscovered(id ros2.Identity, key dds.Gid)
}

const (
	roleRequest  = "request"
	roleReply    = "reply"
	roleStatus   = "status"
	roleFeedback = "feedback"
)

var actionServiceSubs = []string{"send_goal", "cancel_goal", "get_result"}

// Scanner consumes DDS discovery events and drives the route sink.
// Topic endpoints map to interface events directly; service and action
// endpoints are buffered in an expiring pending-group cache until every
// expected sub-endpoint has been seen. Repeated discovery of a known
// entity is a no-op.
type Scanner struct {
	sink   RouteSink
	filter *filter.Filter
	graph  *Graph
	log    logger.Logger

	mu      sync.Mutex
	pending *cache.Cache               // group key -> *group
	members map[dds.Gid]ros2.Identity  // routed entity -> its interface
	grouped map[dds.Gid]string         // pending entity -> group key
}

type group struct {
	id    ros2.Identity
	parts map[string]dds.Endpoint // role -> endpoint
	keys  map[dds.Gid]member
	done  atomic.Bool
}

type member struct {
	role string
	node string
}

func NewScanner(sink RouteSink, opts ...Option) *Scanner {
	o := parseOptions(opts...)
	s := &Scanner{
		sink:    sink,
		filter:  o.filter,
		graph:   NewGraph(),
		log:     o.logger.WithFields(map[string]any{"kind": "scanner"}),
		pending: cache.New(o.grace, o.grace),
		members: make(map[dds.Gid]ros2.Identity),
		grouped: make(map[dds.Gid]string),
	}
	s.pending.OnEvicted(s.onGroupExpired)
	return s
}

// Graph returns the scanner's view of the discovered DDS entities.
func (s *Scanner) Graph() *Graph {
	return s.graph
}

// Run consumes discovery events until ctx is done or the event stream is
// closed by the participant.
func (s *Scanner) Run(ctx context.Context, part dds.Participant) error {
	ch, err := part.DiscoveryEvents(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			s.Handle(ev)
		}
	}
}

// Handle processes one discovery event.
func (s *Scanner) Handle(ev dds.Event) {
	if metrics.Enabled() {
		metrics.GetCounter(metrics.MetricDiscoveryEventsCounter,
			metrics.Labels{"event": ev.Kind.String()}).Inc()
	}

	switch ev.Kind {
	case dds.DiscoveredParticipant:
		s.graph.AddParticipant(ev.Key)
	case dds.UndiscoveredParticipant:
		s.graph.RemoveParticipant(ev.Key)
	case dds.DiscoveredWriter:
		if s.graph.AddWriter(ev.Endpoint) {
			s.discovered(ev.Endpoint, true)
		}
	case dds.UndiscoveredWriter:
		if _, ok := s.graph.RemoveWriter(ev.Key); ok {
			s.undiscovered(ev.Key)
		}
	case dds.DiscoveredReader:
		if s.graph.AddReader(ev.Endpoint) {
			s.discovered(ev.Endpoint, false)
		}
	case dds.UndiscoveredReader:
		if _, ok := s.graph.RemoveReader(ev.Key); ok {
			s.undiscovered(ev.Key)
		}
	}

	if metrics.Enabled() {
		parts, writers, readers := s.graph.Counts()
		metrics.GetGauge(metrics.MetricGraphEntitiesGauge,
			metrics.Labels{"entity": "participants"}).Set(float64(parts))
		metrics.GetGauge(metrics.MetricGraphEntitiesGauge,
			metrics.Labels{"entity": "writers"}).Set(float64(writers))
		metrics.GetGauge(metrics.MetricGraphEntitiesGauge,
			metrics.Labels{"entity": "readers"}).Set(float64(readers))
	}
}

func (s *Scanner) discovered(ep dds.Endpoint, isWriter bool) {
	if name, ok := ros2.DemangleTopic(ep.TopicName); ok {
		if action, sub, ok := ros2.SplitAction(name); ok && (sub == roleStatus || sub == roleFeedback) {
			kind := ros2.ActionClient
			if isWriter {
				kind = ros2.ActionServer
			}
			typeHint := ""
			if sub == roleFeedback {
				typeHint = ros2.ActionType(ep.TypeName)
			}
			s.contribute(kind, action, sub, typeHint, ep)
			return
		}
		kind := ros2.Subscriber
		if isWriter {
			kind = ros2.Publisher
		}
		s.immediate(ros2.Identity{Kind: kind, Name: name, Type: ros2.DemangleType(ep.TypeName)}, ep)
		return
	}

	if name, isRequest, ok := ros2.DemangleService(ep.TopicName); ok {
		// a service server reads requests and writes replies,
		// a service client is the mirror
		server := isRequest != isWriter
		role := roleReply
		if isRequest {
			role = roleRequest
		}
		if action, sub, ok := ros2.SplitAction(name); ok && isActionServiceSub(sub) {
			kind := ros2.ActionClient
			if server {
				kind = ros2.ActionServer
			}
			// cancel_goal uses the shared CancelGoal type, it does
			// not name the action
			typeHint := ""
			if sub != "cancel_goal" {
				typeHint = ros2.ActionType(ep.TypeName)
			}
			s.contribute(kind, action, sub+"/"+role, typeHint, ep)
			return
		}
		kind := ros2.ServiceClient
		if server {
			kind = ros2.ServiceServer
		}
		s.contribute(kind, name, role, ros2.ServiceType(ep.TypeName), ep)
		return
	}

	// DDS-internal topic (e.g. ros_discovery_info), nothing to route
	s.log.Tracef("ignoring endpoint %s (%s)", ep.TopicName, ep.TypeName)
}

func (s *Scanner) immediate(id ros2.Identity, ep dds.Endpoint) {
	if !s.admit(id) {
		return
	}
	s.mu.Lock()
	if _, ok := s.members[ep.Key]; ok {
		s.mu.Unlock()
		return
	}
	s.members[ep.Key] = id
	s.mu.Unlock()
	s.sink.OnInterfaceDiscovered(id, string(ep.Participant), ep.Key, ep, nil)
}

func (s *Scanner) contribute(kind ros2.InterfaceKind, name, role, typeHint string, ep dds.Endpoint) {
	id := ros2.Identity{Kind: kind, Name: name, Type: typeHint}
	if !s.admit(id) {
		return
	}

	s.mu.Lock()
	ck := groupKey(kind, name)
	var g *group
	if v, ok := s.pending.Get(ck); ok {
		g = v.(*group)
	} else {
		g = &group{
			id:    ros2.Identity{Kind: kind, Name: name},
			parts: make(map[string]dds.Endpoint),
			keys:  make(map[dds.Gid]member),
		}
		s.pending.Set(ck, g, cache.DefaultExpiration)
	}
	if _, ok := g.keys[ep.Key]; ok {
		s.mu.Unlock()
		return
	}
	g.keys[ep.Key] = member{role: role, node: string(ep.Participant)}
	if _, ok := g.parts[role]; !ok {
		g.parts[role] = ep
	}
	if g.id.Type == "" && typeHint != "" {
		g.id.Type = typeHint
	}
	if !g.complete() {
		s.grouped[ep.Key] = ck
		s.mu.Unlock()
		return
	}
	g.done.Store(true)
	members := make(map[dds.Gid]member, len(g.keys))
	for key, m := range g.keys {
		delete(s.grouped, key)
		s.members[key] = g.id
		members[key] = m
	}
	s.mu.Unlock()
	s.pending.Delete(ck)

	primary := g.primary()
	for key, m := range members {
		s.sink.OnInterfaceDiscovered(g.id, m.node, key, primary, g.parts)
	}
}

func (s *Scanner) undiscovered(key dds.Gid) {
	s.mu.Lock()
	if id, ok := s.members[key]; ok {
		delete(s.members, key)
		s.mu.Unlock()
		s.sink.OnInterfaceUndiscovered(id, key)
		return
	}
	if ck, ok := s.grouped[key]; ok {
		delete(s.grouped, key)
		if v, ok := s.pending.Get(ck); ok {
			g := v.(*group)
			m := g.keys[key]
			delete(g.keys, key)
			if part, ok := g.parts[m.role]; ok && part.Key == key {
				delete(g.parts, m.role)
			}
		}
	}
	s.mu.Unlock()
}

func (s *Scanner) admit(id ros2.Identity) bool {
	if s.filter.Admit(id.Kind, id.Name) {
		return true
	}
	s.log.Debugf("%s %s rejected by filter", id.Kind, id.Name)
	return false
}

func (s *Scanner) onGroupExpired(ck string, v any) {
	g, ok := v.(*group)
	if !ok || g.done.Load() {
		return
	}
	s.mu.Lock()
	for key := range g.keys {
		delete(s.grouped, key)
	}
	s.mu.Unlock()
	s.log.Warnf("discarding incomplete %s group %s: %d of the expected endpoints never appeared",
		g.id.Kind, g.id.Name, len(g.missing()))
}

func (g *group) expected() []string {
	switch g.id.Kind {
	case ros2.ServiceServer, ros2.ServiceClient:
		return []string{roleRequest, roleReply}
	case ros2.ActionServer, ros2.ActionClient:
		roles := make([]string, 0, 8)
		for _, sub := range actionServiceSubs {
			roles = append(roles, sub+"/"+roleRequest, sub+"/"+roleReply)
		}
		return append(roles, roleStatus, roleFeedback)
	}
	return nil
}

func (g *group) complete() bool {
	return len(g.missing()) == 0
}

func (g *group) missing() []string {
	var missing []string
	for _, role := range g.expected() {
		if _, ok := g.parts[role]; !ok {
			missing = append(missing, role)
		}
	}
	return missing
}

// primary returns the endpoint whose QoS represents the group: the
// request endpoint for services, the status endpoint for actions.
func (g *group) primary() dds.Endpoint {
	for _, role := range []string{roleRequest, roleStatus, actionServiceSubs[0] + "/" + roleRequest} {
		if ep, ok := g.parts[role]; ok {
			return ep
		}
	}
	for _, ep := range g.parts {
		return ep
	}
	return dds.Endpoint{}
}

func isActionServiceSub(sub string) bool {
	for _, s := range actionServiceSubs {
		if s == sub {
			return true
		}
	}
	return false
}

func groupKey(kind ros2.InterfaceKind, name string) string {
	return fmt.Sprintf("%d:%s", kind, name)
}
