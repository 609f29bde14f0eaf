package route

import (
	"fmt"
	"time"

	"github.com/ZettaScaleLabs/zplugin-ros2/dds"
	"github.com/ZettaScaleLabs/zplugin-ros2/ros2"
	"github.com/ZettaScaleLabs/zplugin-ros2/zenoh"
)

// NewPublisherRoute bridges a discovered local DDS writer (a ROS
// publisher) to zenoh: a forwarding DDS reader feeds a zenoh publisher.
// TRANSIENT_LOCAL writers get a publication cache instead, so late-joining
// remote readers can query the retained history.
func NewPublisherRoute(sess zenoh.Session, part dds.Participant, id ros2.Identity, ep dds.Endpoint, opts ...Option) (*Route, error) {
	o := parseOptions(opts...)
	r := newRoute(id, o)

	if err := attachTopicPubLeg(r, sess, part, ep, r.keyExpr); err != nil {
		r.Close()
		return nil, err
	}

	r.activate()
	return r, nil
}

// NewSubscriberRoute bridges zenoh to a discovered local DDS reader (a ROS
// subscriber): a zenoh subscriber feeds a forwarding DDS writer. For a
// TRANSIENT_LOCAL reader a querying subscriber first fetches the history
// retained by remote publication caches.
func NewSubscriberRoute(sess zenoh.Session, part dds.Participant, id ros2.Identity, ep dds.Endpoint, opts ...Option) (*Route, error) {
	o := parseOptions(opts...)
	r := newRoute(id, o)

	if err := attachTopicSubLeg(r, sess, part, ep, r.keyExpr, o.queriesTimeout); err != nil {
		r.Close()
		return nil, err
	}

	r.activate()
	return r, nil
}

func attachTopicPubLeg(r *Route, sess zenoh.Session, part dds.Participant, ep dds.Endpoint, keyExpr string) error {
	var (
		pub zenoh.Publisher
		err error
	)
	if dds.IsTransientLocal(ep.QoS) {
		pub, err = sess.DeclarePublicationCache(keyExpr,
			transientLocalHistory(ep.QoS),
			zenoh.KeyPrefixPubCache+"/"+sess.ZID())
	} else {
		pub, err = sess.DeclarePublisher(keyExpr, r.mode.CongestionControl())
	}
	if err != nil {
		return fmt.Errorf("declare publisher %s: %w", keyExpr, err)
	}
	r.addCloser(pub)

	rd, err := part.CreateReader(ep.TopicName, ep.TypeName, ep.Keyless,
		dds.AdaptWriterQoSForReader(ep.QoS),
		func(payload []byte) {
			r.forwardToZenoh(pub, payload)
		})
	if err != nil {
		return fmt.Errorf("create reader %s: %w", ep.TopicName, err)
	}
	r.addCloser(rd)
	return nil
}

func attachTopicSubLeg(r *Route, sess zenoh.Session, part dds.Participant, ep dds.Endpoint, keyExpr string, timeout time.Duration) error {
	w, err := part.CreateWriter(ep.TopicName, ep.TypeName, ep.Keyless,
		dds.AdaptReaderQoSForWriter(ep.QoS))
	if err != nil {
		return fmt.Errorf("create writer %s: %w", ep.TopicName, err)
	}
	r.addCloser(w)

	cb := func(s zenoh.Sample) {
		if s.Kind != zenoh.SampleKindPut {
			return
		}
		r.forwardToDDS(w, s.Payload)
	}

	var sub zenoh.Subscriber
	if dds.IsTransientLocal(ep.QoS) {
		sub, err = sess.DeclareQueryingSubscriber(keyExpr,
			zenoh.KeyPrefixPubCache+"/*/"+keyExpr, timeout, cb)
	} else {
		sub, err = sess.DeclareSubscriber(keyExpr, cb)
	}
	if err != nil {
		return fmt.Errorf("declare subscriber %s: %w", keyExpr, err)
	}
	r.addCloser(sub)
	return nil
}

// transientLocalHistory computes the publication cache depth for a
// TRANSIENT_LOCAL writer: keep-last depth times the durability service's
// max instances for keyed topics. 0 means unlimited.
func transientLocalHistory(q dds.QoS) int {
	h := dds.HistoryOrDefault(q)
	if h.Kind != dds.KeepLast || h.Depth <= 0 {
		return 0
	}
	depth := int(h.Depth)
	if ds := dds.DurabilityServiceOrDefault(q); ds.MaxInstances > 1 {
		depth *= int(ds.MaxInstances)
	}
	return depth
}
