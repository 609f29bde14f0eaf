package zenoh

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ZettaScaleLabs/zplugin-ros2/dds"
)

// Key-expression prefixes shared between bridges.
const (
	// KeyPrefixAdmin is the admin-space prefix: "@ros2/<bridge-id>/...".
	KeyPrefixAdmin = "@ros2"
	// KeyPrefixPubCache is the queryable prefix under which publication
	// caches serve historical data: "@ros2_pub_cache/<bridge-id>/<key>".
	KeyPrefixPubCache = "@ros2_pub_cache"
)

// AdminPrefix returns the admin-space prefix of the bridge with the given id.
func AdminPrefix(bridgeID string) string {
	return KeyPrefixAdmin + "/" + bridgeID
}

// QoSToKeyExpr serializes the QoS significant for ROS2 as a key-expression
// chunk, for use in route liveliness keys.
//
// Format: "<keyless>:<ReliabilityKind>:<DurabilityKind>:<HistoryKind>,<HistoryDepth>"
// where each element is empty if the QoS is unset, and 'K' marks !keyless.
func QoSToKeyExpr(keyless bool, q dds.QoS) string {
	var b strings.Builder
	if !keyless {
		b.WriteByte('K')
	}
	b.WriteByte(':')
	if q.Reliability != nil {
		fmt.Fprintf(&b, "%d", q.Reliability.Kind)
	}
	b.WriteByte(':')
	if q.Durability != nil {
		fmt.Fprintf(&b, "%d", q.Durability.Kind)
	}
	b.WriteByte(':')
	if q.History != nil {
		fmt.Fprintf(&b, "%d,%d", q.History.Kind, q.History.Depth)
	}
	return b.String()
}

// KeyExprToQoS parses a key-expression chunk produced by QoSToKeyExpr.
func KeyExprToQoS(ke string) (keyless bool, q dds.QoS, err error) {
	elts := strings.Split(ke, ":")
	if len(elts) != 4 {
		return false, q, fmt.Errorf("unexpected QoS expression %q: 4 elements expected", ke)
	}
	keyless = elts[0] == ""
	if elts[1] != "" {
		i, err := strconv.ParseInt(elts[1], 10, 32)
		if err != nil {
			return false, q, fmt.Errorf("unexpected QoS expression %q: bad reliability: %w", ke, err)
		}
		q.Reliability = &dds.Reliability{Kind: dds.ReliabilityKind(i), MaxBlockingTime: 100 * time.Millisecond}
	}
	if elts[2] != "" {
		i, err := strconv.ParseInt(elts[2], 10, 32)
		if err != nil {
			return false, q, fmt.Errorf("unexpected QoS expression %q: bad durability: %w", ke, err)
		}
		q.Durability = &dds.Durability{Kind: dds.DurabilityKind(i)}
	}
	if elts[3] != "" {
		kind, depth, ok := strings.Cut(elts[3], ",")
		if !ok {
			return false, q, fmt.Errorf("unexpected QoS expression %q: bad history", ke)
		}
		k, err1 := strconv.ParseInt(kind, 10, 32)
		d, err2 := strconv.ParseInt(depth, 10, 32)
		if err1 != nil || err2 != nil {
			return false, q, fmt.Errorf("unexpected QoS expression %q: bad history", ke)
		}
		q.History = &dds.History{Kind: dds.HistoryKind(k), Depth: int32(d)}
	}
	return keyless, q, nil
}
