// Package zenoh defines the interfaces the bridge consumes from a zenoh
// session: publication, subscription, queryables, queries with timeout and
// the liveliness primitive used for peer bridge presence.
package zenoh

import (
	"context"
	"errors"
	"time"
)

// ErrCongestion is returned by Publisher.Put when a publication declared
// with CongestionDrop was discarded under congestion.
var ErrCongestion = errors.New("publication dropped: congestion")

// CongestionControl selects the behavior of a publisher under congestion.
type CongestionControl int

const (
	// CongestionDrop allows publications to be discarded under congestion.
	CongestionDrop CongestionControl = iota
	// CongestionBlock stalls the Put call until congestion clears.
	CongestionBlock
)

func (c CongestionControl) String() string {
	if c == CongestionBlock {
		return "block"
	}
	return "drop"
}

// SampleKind discriminates puts from deletes (liveliness token removal).
type SampleKind int

const (
	SampleKindPut SampleKind = iota
	SampleKindDelete
)

// Sample is a received publication or query reply.
type Sample struct {
	KeyExpr string
	Payload []byte
	Kind    SampleKind
}

// Query is a received query on a declared queryable.
type Query interface {
	Selector() string
	Payload() []byte
	Reply(keyExpr string, payload []byte) error
}

// Publisher is a declared zenoh publisher. Put honors the congestion
// control it was declared with: with CongestionBlock it may stall.
type Publisher interface {
	KeyExpr() string
	Put(payload []byte) error
	Close() error
}

// Subscriber is a declared zenoh subscriber. Samples are delivered to the
// callback passed at declaration time.
type Subscriber interface {
	KeyExpr() string
	Close() error
}

// Queryable is a declared zenoh queryable.
type Queryable interface {
	KeyExpr() string
	Close() error
}

// Token is a declared liveliness token.
type Token interface {
	KeyExpr() string
	Undeclare() error
}

// Liveliness exposes the liveliness primitive: declaring this bridge's
// presence and observing peers. The subscriber callback receives alive=true
// for token declarations (including the initial query of existing tokens)
// and alive=false for token removals.
type Liveliness interface {
	DeclareToken(keyExpr string) (Token, error)
	SubscribeTokens(keyExpr string, cb func(keyExpr string, alive bool)) (Subscriber, error)
}

// Session is the bridge's handle on the zenoh runtime.
type Session interface {
	// ZID is the session's unique identifier.
	ZID() string

	DeclarePublisher(keyExpr string, cc CongestionControl) (Publisher, error)

	// DeclarePublicationCache declares a publisher whose last publications
	// are retained and served to queries, for TRANSIENT_LOCAL semantics.
	// history <= 0 means unlimited.
	DeclarePublicationCache(keyExpr string, history int, queryablePrefix string) (Publisher, error)

	DeclareSubscriber(keyExpr string, cb func(Sample)) (Subscriber, error)

	// DeclareQueryingSubscriber declares a subscriber that first fetches
	// historical publications matching selector, bounded by timeout, then
	// behaves as a regular subscriber.
	DeclareQueryingSubscriber(keyExpr string, selector string, timeout time.Duration, cb func(Sample)) (Subscriber, error)

	DeclareQueryable(keyExpr string, handler func(Query)) (Queryable, error)

	// Get issues a query for selector. Replies are delivered on the
	// returned channel, which is closed on completion, timeout or ctx
	// cancellation. A timeout is not an error: the channel just closes.
	Get(ctx context.Context, selector string, payload []byte, timeout time.Duration) (<-chan Sample, error)

	Liveliness() Liveliness
}
