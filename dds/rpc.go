package dds

// Requester is a local forwarding service client endpoint. Replies are
// delivered to the callback passed at creation, correlated by the
// sequence number returned from Request.
type Requester interface {
	GUID() Gid
	// Request publishes an opaque serialized request and returns the
	// sequence number that identifies the matching reply.
	Request(payload []byte) (int64, error)
	Close() error
}

// Replier is a local forwarding service server endpoint. Requests are
// delivered to the callback passed at creation; Reply answers the
// request carrying the given sequence number.
type Replier interface {
	GUID() Gid
	Reply(seq int64, payload []byte) error
	Close() error
}

// ServiceQoS is the QoS profile of ROS service request/reply endpoints:
// reliable, volatile, keep-last 10.
func ServiceQoS() QoS {
	return QoS{
		Reliability: &Reliability{Kind: Reliable},
		History:     &History{Kind: KeepLast, Depth: 10},
	}
}
