package route

import (
	"context"
	"testing"
	"time"

	"github.com/ZettaScaleLabs/zplugin-ros2/dds"
	"github.com/ZettaScaleLabs/zplugin-ros2/limiter"
	"github.com/ZettaScaleLabs/zplugin-ros2/ros2"
	"github.com/ZettaScaleLabs/zplugin-ros2/stats"
	"github.com/ZettaScaleLabs/zplugin-ros2/zenoh"
)

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", d)
}

func scanTopicEndpoint(qos dds.QoS) (ros2.Identity, dds.Endpoint) {
	id := ros2.Identity{Kind: ros2.Publisher, Name: "/chatter", Type: "std_msgs/msg/String"}
	ep := dds.Endpoint{
		Key:         "writer-chatter",
		Participant: "participant-1",
		TopicName:   "rt/chatter",
		TypeName:    "std_msgs::msg::dds_::String_",
		Keyless:     true,
		QoS:         qos,
	}
	return id, ep
}

func TestPublisherRouteForwards(t *testing.T) {
	sess := newFakeSession()
	part := newFakeParticipant()
	id, ep := scanTopicEndpoint(dds.QoS{})

	r, err := NewPublisherRoute(sess, part, id, ep)
	if err != nil {
		t.Fatalf("NewPublisherRoute: %v", err)
	}
	if r.State() != StateActive {
		t.Fatalf("state = %v, want active", r.State())
	}

	rd := part.reader("rt/chatter")
	if rd == nil {
		t.Fatal("no forwarding reader created")
	}
	rd.cb([]byte("one"))
	rd.cb([]byte("two"))

	if got := sess.pubs[0].puts(); got != 2 {
		t.Errorf("forwarded %d samples, want 2", got)
	}
	if got := r.Stats().Get(stats.KindForwarded); got != 2 {
		t.Errorf("forwarded counter = %d, want 2", got)
	}
}

func TestPublisherRouteDownsamples(t *testing.T) {
	sess := newFakeSession()
	part := newFakeParticipant()
	id, ep := scanTopicEndpoint(dds.QoS{})

	r, err := NewPublisherRoute(sess, part, id, ep, GateOption(limiter.NewGate(5)))
	if err != nil {
		t.Fatalf("NewPublisherRoute: %v", err)
	}

	rd := part.reader("rt/chatter")
	for i := 0; i < 10; i++ {
		rd.cb([]byte("x"))
	}

	// 5 Hz allows one sample per 200ms: a burst passes exactly once
	if got := sess.pubs[0].puts(); got != 1 {
		t.Errorf("forwarded %d samples, want 1", got)
	}
	if got := r.Stats().Get(stats.KindDroppedDownsampled); got != 9 {
		t.Errorf("downsampled counter = %d, want 9", got)
	}
}

func TestPublisherRouteCongestionDrop(t *testing.T) {
	sess := newFakeSession()
	part := newFakeParticipant()
	id, ep := scanTopicEndpoint(dds.QoS{})

	r, err := NewPublisherRoute(sess, part, id, ep)
	if err != nil {
		t.Fatalf("NewPublisherRoute: %v", err)
	}

	sess.pubs[0].putErr = zenoh.ErrCongestion
	part.reader("rt/chatter").cb([]byte("x"))

	if got := r.Stats().Get(stats.KindDroppedCongestion); got != 1 {
		t.Errorf("congestion counter = %d, want 1", got)
	}
	if got := r.Stats().Get(stats.KindErrors); got != 0 {
		t.Errorf("errors counter = %d, want 0", got)
	}
}

func TestTransientLocalPublisherUsesCache(t *testing.T) {
	sess := newFakeSession()
	part := newFakeParticipant()
	id, ep := scanTopicEndpoint(dds.QoS{
		Durability: &dds.Durability{Kind: dds.TransientLocal},
		History:    &dds.History{Kind: dds.KeepLast, Depth: 7},
	})

	if _, err := NewPublisherRoute(sess, part, id, ep); err != nil {
		t.Fatalf("NewPublisherRoute: %v", err)
	}
	pub := sess.pubs[0]
	if !pub.cached {
		t.Error("expected a publication cache for a TRANSIENT_LOCAL writer")
	}
	if pub.history != 7 {
		t.Errorf("cache history = %d, want 7", pub.history)
	}
}

func TestSubscriberRouteForwards(t *testing.T) {
	sess := newFakeSession()
	part := newFakeParticipant()
	id := ros2.Identity{Kind: ros2.Subscriber, Name: "/cmd_vel", Type: "geometry_msgs/msg/Twist"}
	ep := dds.Endpoint{
		Key:       "reader-cmdvel",
		TopicName: "rt/cmd_vel",
		TypeName:  "geometry_msgs::msg::dds_::Twist_",
		Keyless:   true,
	}

	r, err := NewSubscriberRoute(sess, part, id, ep)
	if err != nil {
		t.Fatalf("NewSubscriberRoute: %v", err)
	}

	sess.subs[0].cb(zenoh.Sample{KeyExpr: "cmd_vel", Payload: []byte("twist")})
	if got := part.writers[0].writes(); got != 1 {
		t.Errorf("wrote %d samples to DDS, want 1", got)
	}
	if got := r.Stats().Get(stats.KindForwarded); got != 1 {
		t.Errorf("forwarded counter = %d, want 1", got)
	}
}

func TestSubscriberRouteTransientLocalQueriesHistory(t *testing.T) {
	sess := newFakeSession()
	part := newFakeParticipant()
	id := ros2.Identity{Kind: ros2.Subscriber, Name: "/map", Type: "nav_msgs/msg/OccupancyGrid"}
	ep := dds.Endpoint{
		Key:       "reader-map",
		TopicName: "rt/map",
		TypeName:  "nav_msgs::msg::dds_::OccupancyGrid_",
		QoS:       dds.QoS{Durability: &dds.Durability{Kind: dds.TransientLocal}},
	}

	if _, err := NewSubscriberRoute(sess, part, id, ep); err != nil {
		t.Fatalf("NewSubscriberRoute: %v", err)
	}
	if got, want := sess.subs[0].selector, zenoh.KeyPrefixPubCache+"/*/map"; got != want {
		t.Errorf("history selector = %q, want %q", got, want)
	}
}

func TestServiceServerRoute(t *testing.T) {
	sess := newFakeSession()
	part := newFakeParticipant()
	id := ros2.Identity{Kind: ros2.ServiceServer, Name: "/add_two_ints", Type: "example_interfaces/srv/AddTwoInts"}

	r, err := NewServiceServerRoute(sess, part, id)
	if err != nil {
		t.Fatalf("NewServiceServerRoute: %v", err)
	}

	handler := sess.queryables["add_two_ints"]
	if handler == nil {
		t.Fatal("no queryable declared")
	}

	q := &fakeQuery{selector: "add_two_ints", payload: []byte("request")}
	handler(q)

	// the local server replies over DDS
	part.requesters[0].cb(1, []byte("reply"))

	if q.replied() != 1 {
		t.Fatalf("query got %d replies, want 1", q.replied())
	}
	if got := r.Stats().Get(stats.KindForwarded); got != 1 {
		t.Errorf("forwarded counter = %d, want 1", got)
	}

	// a late duplicate reply has no pending query and is dropped
	part.requesters[0].cb(1, []byte("reply"))
	if q.replied() != 1 {
		t.Errorf("duplicate reply must not reach the query")
	}
}

func TestServiceClientRoute(t *testing.T) {
	sess := newFakeSession()
	part := newFakeParticipant()
	sess.getFn = func(ctx context.Context, selector string, payload []byte, timeout time.Duration) (<-chan zenoh.Sample, error) {
		ch := make(chan zenoh.Sample, 1)
		ch <- zenoh.Sample{KeyExpr: selector, Payload: []byte("reply")}
		close(ch)
		return ch, nil
	}
	id := ros2.Identity{Kind: ros2.ServiceClient, Name: "/add_two_ints", Type: "example_interfaces/srv/AddTwoInts"}

	if _, err := NewServiceClientRoute(sess, part, id); err != nil {
		t.Fatalf("NewServiceClientRoute: %v", err)
	}

	rep := part.repliers[0]
	rep.cb(42, []byte("request"))

	waitFor(t, time.Second, func() bool {
		rep.mu.Lock()
		defer rep.mu.Unlock()
		return len(rep.replies) == 1
	})
	rep.mu.Lock()
	defer rep.mu.Unlock()
	if string(rep.replies[42]) != "reply" {
		t.Errorf("reply = %q, want %q", rep.replies[42], "reply")
	}
}

func TestRouteCloseIsTerminal(t *testing.T) {
	sess := newFakeSession()
	part := newFakeParticipant()
	id, ep := scanTopicEndpoint(dds.QoS{})

	r, err := NewPublisherRoute(sess, part, id, ep)
	if err != nil {
		t.Fatalf("NewPublisherRoute: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if r.State() != StateClosed {
		t.Fatalf("state = %v, want closed", r.State())
	}
	if !sess.pubs[0].closed() {
		t.Error("zenoh resource not released on close")
	}

	// forwarding after close is a no-op
	part.reader("rt/chatter").cb([]byte("late"))
	if got := sess.pubs[0].puts(); got != 0 {
		t.Errorf("forwarded %d samples after close, want 0", got)
	}

	// closing again is a no-op
	if err := r.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestActionServerRouteLegs(t *testing.T) {
	sess := newFakeSession()
	part := newFakeParticipant()
	id := ros2.Identity{Kind: ros2.ActionServer, Name: "/fibonacci", Type: "test_msgs/action/Fibonacci"}

	if _, err := NewActionServerRoute(sess, part, id, nil); err != nil {
		t.Fatalf("NewActionServerRoute: %v", err)
	}

	for _, ke := range []string{
		"fibonacci/_action/send_goal",
		"fibonacci/_action/cancel_goal",
		"fibonacci/_action/get_result",
	} {
		if sess.queryables[ke] == nil {
			t.Errorf("missing queryable %s", ke)
		}
	}
	if len(part.requesters) != 3 {
		t.Errorf("created %d requesters, want 3", len(part.requesters))
	}
	// status and feedback flow out of the action server
	if len(part.readers) != 2 {
		t.Errorf("created %d topic readers, want 2", len(part.readers))
	}
	if sess.openPublishers() != 2 {
		t.Errorf("declared %d publishers, want 2", sess.openPublishers())
	}
}
