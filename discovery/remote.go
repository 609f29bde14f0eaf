package discovery

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/ZettaScaleLabs/zplugin-ros2/logger"
	"github.com/ZettaScaleLabs/zplugin-ros2/metrics"
	"github.com/ZettaScaleLabs/zplugin-ros2/ros2"
	"github.com/ZettaScaleLabs/zplugin-ros2/zenoh"
)

// AdvertisementSource provides this bridge's advertised route set.
type AdvertisementSource interface {
	Advertisement() []ros2.Identity
}

// RemoteSink receives peer bridge advertisements.
type RemoteSink interface {
	OnRemoteAdvertisement(peer string, ids []ros2.Identity)
	OnPeerGone(peer string)
}

const routesSuffix = "/routes"

// Remote implements the cross-bridge discovery protocol: it announces
// this bridge's presence with a liveliness token, serves its advertised
// route set on a queryable, tracks peer bridges through their tokens and
// queries their advertisements with independent per-peer timeouts.
type Remote struct {
	session  zenoh.Session
	bridgeID string
	source   AdvertisementSource
	sink     RemoteSink
	timeout  time.Duration
	period   time.Duration
	log      logger.Logger

	mu    sync.Mutex
	peers map[string]struct{}
}

func NewRemote(sess zenoh.Session, bridgeID string, source AdvertisementSource, sink RemoteSink, opts ...Option) *Remote {
	o := parseOptions(opts...)
	return &Remote{
		session:  sess,
		bridgeID: bridgeID,
		source:   source,
		sink:     sink,
		timeout:  o.timeout,
		period:   o.period,
		log:      o.logger.WithFields(map[string]any{"kind": "remote-discovery"}),
		peers:    make(map[string]struct{}),
	}
}

// Run announces the bridge and keeps querying peers until ctx is done.
func (r *Remote) Run(ctx context.Context) error {
	live := r.session.Liveliness()

	token, err := live.DeclareToken(zenoh.AdminPrefix(r.bridgeID))
	if err != nil {
		return err
	}
	defer token.Undeclare()

	qbl, err := r.session.DeclareQueryable(zenoh.AdminPrefix(r.bridgeID)+routesSuffix, r.handleQuery)
	if err != nil {
		return err
	}
	defer qbl.Close()

	sub, err := live.SubscribeTokens(zenoh.KeyPrefixAdmin+"/*", func(ke string, alive bool) {
		r.onPeerToken(ctx, ke, alive)
	})
	if err != nil {
		return err
	}
	defer sub.Close()

	ticker := time.NewTicker(r.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.QueryPeers(ctx)
		}
	}
}

// Peers returns the currently known peer bridges.
func (r *Remote) Peers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	peers := make([]string, 0, len(r.peers))
	for p := range r.peers {
		peers = append(peers, p)
	}
	sort.Strings(peers)
	return peers
}

// QueryPeers fans out one advertisement query per known peer. Each query
// has its own timeout; a slow or silent peer never delays the others.
func (r *Remote) QueryPeers(ctx context.Context) {
	for _, peer := range r.Peers() {
		go r.queryPeer(ctx, peer)
	}
}

func (r *Remote) onPeerToken(ctx context.Context, ke string, alive bool) {
	peer, ok := strings.CutPrefix(ke, zenoh.KeyPrefixAdmin+"/")
	if !ok || peer == "" || strings.Contains(peer, "/") {
		// not a bridge presence token (route tokens live deeper)
		return
	}
	if peer == r.bridgeID {
		return
	}

	if !alive {
		r.mu.Lock()
		delete(r.peers, peer)
		r.mu.Unlock()
		r.log.Infof("peer bridge %s is gone", peer)
		r.sink.OnPeerGone(peer)
		return
	}

	r.mu.Lock()
	_, known := r.peers[peer]
	r.peers[peer] = struct{}{}
	r.mu.Unlock()
	if !known {
		r.log.Infof("discovered peer bridge %s", peer)
		go r.queryPeer(ctx, peer)
	}
}

func (r *Remote) queryPeer(ctx context.Context, peer string) {
	qid := xid.New().String()
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ch, err := r.session.Get(ctx, zenoh.AdminPrefix(peer)+routesSuffix, nil, r.timeout)
	if err != nil {
		r.peerError(peer)
		r.log.Warnf("advertisement query %s to peer %s failed: %v", qid, peer, err)
		return
	}

	got := false
	for s := range ch {
		var ids []ros2.Identity
		if err := json.Unmarshal(s.Payload, &ids); err != nil {
			r.peerError(peer)
			r.log.Warnf("advertisement query %s: bad reply from peer %s: %v", qid, peer, err)
			return
		}
		r.sink.OnRemoteAdvertisement(peer, ids)
		got = true
	}
	if !got {
		// no reply within the timeout: the peer currently has no
		// advertisement for us, the next periodic cycle will retry
		r.peerError(peer)
		r.log.Debugf("advertisement query %s to peer %s timed out after %v", qid, peer, r.timeout)
	}
}

func (r *Remote) handleQuery(q zenoh.Query) {
	b, err := json.Marshal(r.source.Advertisement())
	if err != nil {
		r.log.Errorf("encoding advertisement: %v", err)
		return
	}
	if err := q.Reply(zenoh.AdminPrefix(r.bridgeID)+routesSuffix, b); err != nil {
		r.log.Warnf("replying advertisement: %v", err)
	}
}

func (r *Remote) peerError(peer string) {
	if metrics.Enabled() {
		metrics.GetCounter(metrics.MetricPeerQueryErrorsCounter,
			metrics.Labels{"peer": peer}).Inc()
	}
}
