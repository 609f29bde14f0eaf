package zenoh

import (
	"testing"

	"github.com/ZettaScaleLabs/zplugin-ros2/dds"
)

func TestAdminPrefix(t *testing.T) {
	if got := AdminPrefix("bridge-1"); got != "@ros2/bridge-1" {
		t.Errorf("AdminPrefix = %q", got)
	}
}

func TestQoSKeyExprRoundTrip(t *testing.T) {
	cases := []struct {
		keyless bool
		qos     dds.QoS
		want    string
	}{
		{true, dds.QoS{}, ":::"},
		{false, dds.QoS{}, "K:::"},
		{
			true,
			dds.QoS{
				Reliability: &dds.Reliability{Kind: dds.Reliable},
				Durability:  &dds.Durability{Kind: dds.TransientLocal},
				History:     &dds.History{Kind: dds.KeepLast, Depth: 10},
			},
			":1:1:0,10",
		},
	}
	for _, c := range cases {
		ke := QoSToKeyExpr(c.keyless, c.qos)
		if ke != c.want {
			t.Errorf("QoSToKeyExpr(%v, %+v) = %q, want %q", c.keyless, c.qos, ke, c.want)
			continue
		}
		keyless, q, err := KeyExprToQoS(ke)
		if err != nil {
			t.Errorf("KeyExprToQoS(%q): %v", ke, err)
			continue
		}
		if keyless != c.keyless {
			t.Errorf("keyless round-trip of %q = %v", ke, keyless)
		}
		if (q.Reliability == nil) != (c.qos.Reliability == nil) ||
			(q.Reliability != nil && q.Reliability.Kind != c.qos.Reliability.Kind) {
			t.Errorf("reliability round-trip of %q = %+v", ke, q.Reliability)
		}
		if (q.Durability == nil) != (c.qos.Durability == nil) ||
			(q.Durability != nil && q.Durability.Kind != c.qos.Durability.Kind) {
			t.Errorf("durability round-trip of %q = %+v", ke, q.Durability)
		}
		if (q.History == nil) != (c.qos.History == nil) ||
			(q.History != nil && *q.History != *c.qos.History) {
			t.Errorf("history round-trip of %q = %+v", ke, q.History)
		}
	}
}

func TestKeyExprToQoSErrors(t *testing.T) {
	for _, ke := range []string{"", "::", "1:1:1:1:1", ":x::", "::x:", ":::x", ":::0"} {
		if _, _, err := KeyExprToQoS(ke); err == nil {
			t.Errorf("KeyExprToQoS(%q) accepted", ke)
		}
	}
}
