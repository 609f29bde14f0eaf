package route

import "github.com/ZettaScaleLabs/zplugin-ros2/zenoh"

// DeliveryMode is the congestion behavior of a route's zenoh-side writes,
// fixed at route creation from the DDS endpoint QoS.
type DeliveryMode int

const (
	// ModeDrop lets an outgoing publication be discarded under congestion.
	ModeDrop DeliveryMode = iota
	// ModeBlock stalls the publication until congestion clears, which in
	// turn stalls the DDS reader feeding it: backpressure propagates
	// end-to-end instead of silently losing RELIABLE data.
	ModeBlock
)

func (m DeliveryMode) String() string {
	if m == ModeBlock {
		return "block"
	}
	return "drop"
}

func (m DeliveryMode) CongestionControl() zenoh.CongestionControl {
	if m == ModeBlock {
		return zenoh.CongestionBlock
	}
	return zenoh.CongestionDrop
}

// DeliveryModeFor maps the reliability of the DDS endpoint feeding a
// route and the reliable_routes_blocking flag to the route's delivery
// mode. Only a RELIABLE endpoint with blocking enabled yields ModeBlock.
func DeliveryModeFor(reliable, blocking bool) DeliveryMode {
	if reliable && blocking {
		return ModeBlock
	}
	return ModeDrop
}
