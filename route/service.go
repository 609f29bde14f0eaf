package route

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ZettaScaleLabs/zplugin-ros2/dds"
	"github.com/ZettaScaleLabs/zplugin-ros2/ros2"
	"github.com/ZettaScaleLabs/zplugin-ros2/stats"
	"github.com/ZettaScaleLabs/zplugin-ros2/zenoh"
)

// NewServiceServerRoute bridges a discovered local ROS service server to
// zenoh: a queryable receives remote requests, a forwarding DDS requester
// submits them to the local server and replies to the pending query when
// the matching reply arrives. Pending queries expire after the queries
// timeout, the remote querier then times out on its own side.
func NewServiceServerRoute(sess zenoh.Session, part dds.Participant, id ros2.Identity, opts ...Option) (*Route, error) {
	o := parseOptions(opts...)
	r := newRoute(id, o)

	if err := attachServiceServerLeg(r, sess, part, id.Name, id.Type, r.keyExpr, o.queriesTimeout); err != nil {
		r.Close()
		return nil, err
	}

	r.activate()
	return r, nil
}

// NewServiceClientRoute bridges a discovered local ROS service client to
// zenoh: a forwarding DDS replier receives its requests, queries the
// remote queryable and writes back the first reply. A query that times
// out loses that request only, the client's own timeout applies.
func NewServiceClientRoute(sess zenoh.Session, part dds.Participant, id ros2.Identity, opts ...Option) (*Route, error) {
	o := parseOptions(opts...)
	r := newRoute(id, o)

	if err := attachServiceClientLeg(r, sess, part, id.Name, id.Type, r.keyExpr, o.queriesTimeout); err != nil {
		r.Close()
		return nil, err
	}

	r.activate()
	return r, nil
}

func attachServiceServerLeg(r *Route, sess zenoh.Session, part dds.Participant, service, typeName, keyExpr string, timeout time.Duration) error {
	pending := newPendingQueries()

	req, err := part.CreateRequester(service, typeName, dds.ServiceQoS(),
		func(seq int64, payload []byte) {
			q, ok := pending.take(seq)
			if !ok {
				return
			}
			if err := q.Reply(keyExpr, payload); err != nil {
				r.stats.Add(stats.KindErrors, 1)
				r.log.Warnf("reply on %s failed: %v", keyExpr, err)
				return
			}
			r.forwarded()
		})
	if err != nil {
		return fmt.Errorf("create requester %s: %w", service, err)
	}
	r.addCloser(req)

	qbl, err := sess.DeclareQueryable(keyExpr, func(q zenoh.Query) {
		if r.State() != StateActive {
			return
		}
		seq, err := req.Request(q.Payload())
		if err != nil {
			r.stats.Add(stats.KindErrors, 1)
			r.log.Warnf("request to %s failed: %v", service, err)
			return
		}
		pending.put(seq, q, timeout, func() {
			r.log.Debugf("request %d on %s timed out", seq, service)
		})
	})
	if err != nil {
		return fmt.Errorf("declare queryable %s: %w", keyExpr, err)
	}
	r.addCloser(qbl)
	return nil
}

func attachServiceClientLeg(r *Route, sess zenoh.Session, part dds.Participant, service, typeName, keyExpr string, timeout time.Duration) error {
	var rep dds.Replier
	rep, err := part.CreateReplier(service, typeName, dds.ServiceQoS(),
		func(seq int64, payload []byte) {
			if r.State() != StateActive {
				return
			}
			go func() {
				ch, err := sess.Get(context.Background(), keyExpr, payload, timeout)
				if err != nil {
					r.stats.Add(stats.KindErrors, 1)
					r.log.Warnf("query %s failed: %v", keyExpr, err)
					return
				}
				replied := false
				for s := range ch {
					if replied {
						continue
					}
					if err := rep.Reply(seq, s.Payload); err != nil {
						r.stats.Add(stats.KindErrors, 1)
						r.log.Warnf("reply to DDS request %d failed: %v", seq, err)
						return
					}
					replied = true
					r.forwarded()
				}
				if !replied {
					r.log.Debugf("query %s for request %d: no reply within %v", keyExpr, seq, timeout)
				}
			}()
		})
	if err != nil {
		return fmt.Errorf("create replier %s: %w", service, err)
	}
	r.addCloser(rep)
	return nil
}

// pendingQueries correlates in-flight zenoh queries with the DDS request
// sequence numbers they were forwarded under.
type pendingQueries struct {
	mu sync.Mutex
	m  map[int64]pendingQuery
}

type pendingQuery struct {
	query zenoh.Query
	timer *time.Timer
}

func newPendingQueries() *pendingQueries {
	return &pendingQueries{m: make(map[int64]pendingQuery)}
}

func (p *pendingQueries) put(seq int64, q zenoh.Query, timeout time.Duration, onExpire func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[seq] = pendingQuery{
		query: q,
		timer: time.AfterFunc(timeout, func() {
			if _, ok := p.take(seq); ok {
				onExpire()
			}
		}),
	}
}

func (p *pendingQueries) take(seq int64) (zenoh.Query, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pq, ok := p.m[seq]
	if !ok {
		return nil, false
	}
	delete(p.m, seq)
	pq.timer.Stop()
	return pq.query, true
}
