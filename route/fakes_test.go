package route

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZettaScaleLabs/zplugin-ros2/dds"
	"github.com/ZettaScaleLabs/zplugin-ros2/zenoh"
)

type fakeSession struct {
	mu           sync.Mutex
	declareErrs  int // injected failures for the next declarations
	declareEnter chan struct{}
	declareHold  chan struct{}
	pubs         []*fakePublisher
	subs         []*fakeSubscriber
	queryables   map[string]func(zenoh.Query)
	live         *fakeLiveliness
	getFn        func(ctx context.Context, selector string, payload []byte, timeout time.Duration) (<-chan zenoh.Sample, error)
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		queryables: make(map[string]func(zenoh.Query)),
		live:       &fakeLiveliness{},
	}
}

func (s *fakeSession) ZID() string { return "fake-zid" }

func (s *fakeSession) failNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declareErrs = n
}

// holdDeclares parks subsequent declarations: each one signals enter and
// then blocks until hold is closed.
func (s *fakeSession) holdDeclares(enter, hold chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declareEnter = enter
	s.declareHold = hold
}

func (s *fakeSession) takeErr() error {
	s.mu.Lock()
	enter, hold := s.declareEnter, s.declareHold
	s.mu.Unlock()
	if hold != nil {
		if enter != nil {
			enter <- struct{}{}
		}
		<-hold
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.declareErrs > 0 {
		s.declareErrs--
		return errors.New("declaration failed")
	}
	return nil
}

func (s *fakeSession) DeclarePublisher(ke string, cc zenoh.CongestionControl) (zenoh.Publisher, error) {
	if err := s.takeErr(); err != nil {
		return nil, err
	}
	p := &fakePublisher{ke: ke, cc: cc}
	s.mu.Lock()
	s.pubs = append(s.pubs, p)
	s.mu.Unlock()
	return p, nil
}

func (s *fakeSession) DeclarePublicationCache(ke string, history int, queryablePrefix string) (zenoh.Publisher, error) {
	if err := s.takeErr(); err != nil {
		return nil, err
	}
	p := &fakePublisher{ke: ke, cached: true, history: history}
	s.mu.Lock()
	s.pubs = append(s.pubs, p)
	s.mu.Unlock()
	return p, nil
}

func (s *fakeSession) DeclareSubscriber(ke string, cb func(zenoh.Sample)) (zenoh.Subscriber, error) {
	if err := s.takeErr(); err != nil {
		return nil, err
	}
	sub := &fakeSubscriber{ke: ke, cb: cb}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	return sub, nil
}

func (s *fakeSession) DeclareQueryingSubscriber(ke, selector string, timeout time.Duration, cb func(zenoh.Sample)) (zenoh.Subscriber, error) {
	if err := s.takeErr(); err != nil {
		return nil, err
	}
	sub := &fakeSubscriber{ke: ke, selector: selector, cb: cb}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	return sub, nil
}

func (s *fakeSession) DeclareQueryable(ke string, handler func(zenoh.Query)) (zenoh.Queryable, error) {
	if err := s.takeErr(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.queryables[ke] = handler
	s.mu.Unlock()
	return &fakeQueryable{ke: ke}, nil
}

func (s *fakeSession) Get(ctx context.Context, selector string, payload []byte, timeout time.Duration) (<-chan zenoh.Sample, error) {
	if s.getFn != nil {
		return s.getFn(ctx, selector, payload, timeout)
	}
	ch := make(chan zenoh.Sample)
	close(ch)
	return ch, nil
}

func (s *fakeSession) Liveliness() zenoh.Liveliness { return s.live }

func (s *fakeSession) openPublishers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.pubs {
		if !p.closed() {
			n++
		}
	}
	return n
}

func (s *fakeSession) openSubscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sub := range s.subs {
		if !sub.closed.Load() {
			n++
		}
	}
	return n
}

type fakePublisher struct {
	ke       string
	cc       zenoh.CongestionControl
	cached   bool
	history  int
	putErr   error
	mu       sync.Mutex
	payloads [][]byte
	isClosed bool
}

func (p *fakePublisher) KeyExpr() string { return p.ke }

func (p *fakePublisher) Put(payload []byte) error {
	if p.putErr != nil {
		return p.putErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *fakePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isClosed = true
	return nil
}

func (p *fakePublisher) closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isClosed
}

func (p *fakePublisher) puts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

type fakeSubscriber struct {
	ke       string
	selector string
	cb       func(zenoh.Sample)
	closed   atomic.Bool
}

func (s *fakeSubscriber) KeyExpr() string { return s.ke }
func (s *fakeSubscriber) Close() error    { s.closed.Store(true); return nil }

type fakeQueryable struct {
	ke     string
	closed atomic.Bool
}

func (q *fakeQueryable) KeyExpr() string { return q.ke }
func (q *fakeQueryable) Close() error    { q.closed.Store(true); return nil }

type fakeLiveliness struct {
	mu     sync.Mutex
	tokens []string
	cb     func(ke string, alive bool)
}

func (l *fakeLiveliness) DeclareToken(ke string) (zenoh.Token, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens = append(l.tokens, ke)
	return &fakeToken{ke: ke}, nil
}

func (l *fakeLiveliness) SubscribeTokens(ke string, cb func(ke string, alive bool)) (zenoh.Subscriber, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cb = cb
	return &fakeSubscriber{ke: ke}, nil
}

type fakeToken struct {
	ke string
}

func (t *fakeToken) KeyExpr() string  { return t.ke }
func (t *fakeToken) Undeclare() error { return nil }

type fakeParticipant struct {
	mu         sync.Mutex
	events     chan dds.Event
	readers    []*fakeReader
	writers    []*fakeWriter
	requesters []*fakeRequester
	repliers   []*fakeReplier
	nextGUID   int
}

func newFakeParticipant() *fakeParticipant {
	return &fakeParticipant{events: make(chan dds.Event, 64)}
}

func (p *fakeParticipant) GUID() dds.Gid { return "participant-0" }

func (p *fakeParticipant) DiscoveryEvents(ctx context.Context) (<-chan dds.Event, error) {
	return p.events, nil
}

func (p *fakeParticipant) guid(prefix string) dds.Gid {
	p.nextGUID++
	return dds.Gid(fmt.Sprintf("%s-%d", prefix, p.nextGUID))
}

func (p *fakeParticipant) CreateReader(topic, typeName string, keyless bool, qos dds.QoS, cb func(payload []byte)) (dds.Reader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := &fakeReader{gid: p.guid("reader"), topic: topic, cb: cb}
	p.readers = append(p.readers, r)
	return r, nil
}

func (p *fakeParticipant) CreateWriter(topic, typeName string, keyless bool, qos dds.QoS) (dds.Writer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w := &fakeWriter{gid: p.guid("writer"), topic: topic}
	p.writers = append(p.writers, w)
	return w, nil
}

func (p *fakeParticipant) CreateRequester(service, typeName string, qos dds.QoS, cb func(seq int64, payload []byte)) (dds.Requester, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := &fakeRequester{gid: p.guid("requester"), service: service, cb: cb}
	p.requesters = append(p.requesters, r)
	return r, nil
}

func (p *fakeParticipant) CreateReplier(service, typeName string, qos dds.QoS, cb func(seq int64, payload []byte)) (dds.Replier, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := &fakeReplier{gid: p.guid("replier"), service: service, cb: cb}
	p.repliers = append(p.repliers, r)
	return r, nil
}

func (p *fakeParticipant) Close() error { return nil }

func (p *fakeParticipant) reader(topic string) *fakeReader {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.readers {
		if r.topic == topic {
			return r
		}
	}
	return nil
}

type fakeReader struct {
	gid   dds.Gid
	topic string
	cb    func(payload []byte)
}

func (r *fakeReader) GUID() dds.Gid { return r.gid }
func (r *fakeReader) Close() error  { return nil }

type fakeWriter struct {
	gid      dds.Gid
	topic    string
	mu       sync.Mutex
	payloads [][]byte
}

func (w *fakeWriter) GUID() dds.Gid { return w.gid }

func (w *fakeWriter) Write(payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.payloads = append(w.payloads, payload)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.payloads)
}

type fakeRequester struct {
	gid     dds.Gid
	service string
	cb      func(seq int64, payload []byte)
	mu      sync.Mutex
	nextSeq int64
}

func (r *fakeRequester) GUID() dds.Gid { return r.gid }

func (r *fakeRequester) Request(payload []byte) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSeq++
	return r.nextSeq, nil
}

func (r *fakeRequester) Close() error { return nil }

type fakeReplier struct {
	gid     dds.Gid
	service string
	cb      func(seq int64, payload []byte)
	mu      sync.Mutex
	replies map[int64][]byte
}

func (r *fakeReplier) GUID() dds.Gid { return r.gid }

func (r *fakeReplier) Reply(seq int64, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replies == nil {
		r.replies = make(map[int64][]byte)
	}
	r.replies[seq] = payload
	return nil
}

func (r *fakeReplier) Close() error { return nil }


type fakeQuery struct {
	selector string
	payload  []byte
	mu       sync.Mutex
	replies  [][]byte
}

func (q *fakeQuery) Selector() string { return q.selector }
func (q *fakeQuery) Payload() []byte  { return q.payload }

func (q *fakeQuery) Reply(keyExpr string, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.replies = append(q.replies, payload)
	return nil
}

func (q *fakeQuery) replied() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.replies)
}
