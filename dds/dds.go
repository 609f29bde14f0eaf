// Package dds defines the interfaces the bridge consumes from a DDS
// implementation: discovery events, endpoint QoS introspection, and
// creation of forwarding readers/writers for opaque payloads.
package dds

import "context"

// Gid is the hex form of a DDS entity GUID.
type Gid string

// Endpoint describes a discovered DDS reader or writer. The bridge holds
// only this descriptor plus the QoS fields it needs; the entity itself is
// owned by the DDS implementation.
type Endpoint struct {
	Key         Gid
	Participant Gid
	TopicName   string
	TypeName    string
	Keyless     bool
	QoS         QoS
}

// EventKind enumerates DDS discovery event types.
type EventKind int

const (
	DiscoveredParticipant EventKind = iota
	UndiscoveredParticipant
	DiscoveredWriter
	UndiscoveredWriter
	DiscoveredReader
	UndiscoveredReader
)

func (k EventKind) String() string {
	switch k {
	case DiscoveredParticipant:
		return "discovered participant"
	case UndiscoveredParticipant:
		return "undiscovered participant"
	case DiscoveredWriter:
		return "discovered writer"
	case UndiscoveredWriter:
		return "undiscovered writer"
	case DiscoveredReader:
		return "discovered reader"
	case UndiscoveredReader:
		return "undiscovered reader"
	}
	return "unknown"
}

// Event is a single discovery notification. For Undiscovered* kinds only
// Key is meaningful; for Discovered* kinds Endpoint carries the full
// descriptor (Endpoint.Key == Key).
type Event struct {
	Kind     EventKind
	Key      Gid
	Endpoint Endpoint
}

// Reader is a local forwarding DDS reader created to serve a route.
type Reader interface {
	GUID() Gid
	Close() error
}

// Writer is a local forwarding DDS writer created to serve a route.
type Writer interface {
	GUID() Gid
	// Write re-publishes an opaque payload to DDS.
	Write(payload []byte) error
	Close() error
}

// Participant is the bridge's handle on the local DDS domain participant.
type Participant interface {
	GUID() Gid

	// DiscoveryEvents returns the stream of discovery callbacks. The
	// channel is closed when ctx is done or the participant is closed.
	DiscoveryEvents(ctx context.Context) (<-chan Event, error)

	// CreateReader creates a forwarding reader on the given topic; cb is
	// invoked for every received sample with the opaque serialized payload.
	CreateReader(topic, typeName string, keyless bool, qos QoS, cb func(payload []byte)) (Reader, error)

	// CreateWriter creates a forwarding writer on the given topic.
	CreateWriter(topic, typeName string, keyless bool, qos QoS) (Writer, error)

	// CreateRequester creates a forwarding service client on the given
	// service; cb is invoked for every reply with its sequence number.
	CreateRequester(service, typeName string, qos QoS, cb func(seq int64, payload []byte)) (Requester, error)

	// CreateReplier creates a forwarding service server on the given
	// service; cb is invoked for every request with its sequence number.
	CreateReplier(service, typeName string, qos QoS, cb func(seq int64, payload []byte)) (Replier, error)

	Close() error
}
