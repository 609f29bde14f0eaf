package ros2

import (
	"fmt"
	"strings"
)

// InterfaceKind is the flavor of a routable ROS graph interface.
type InterfaceKind int

const (
	Publisher InterfaceKind = iota
	Subscriber
	ServiceServer
	ServiceClient
	ActionServer
	ActionClient
)

func (k InterfaceKind) String() string {
	switch k {
	case Publisher:
		return "publisher"
	case Subscriber:
		return "subscriber"
	case ServiceServer:
		return "service_server"
	case ServiceClient:
		return "service_client"
	case ActionServer:
		return "action_server"
	case ActionClient:
		return "action_client"
	}
	return "unknown"
}

// ParseKind parses the string form produced by String.
func ParseKind(s string) (InterfaceKind, bool) {
	for k := Publisher; k <= ActionClient; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// RoutePrefix is the admin-space key prefix for routes of this kind.
func (k InterfaceKind) RoutePrefix() string {
	switch k {
	case Publisher:
		return "route/topic/pub"
	case Subscriber:
		return "route/topic/sub"
	case ServiceServer:
		return "route/service/srv"
	case ServiceClient:
		return "route/service/cli"
	case ActionServer:
		return "route/action/srv"
	case ActionClient:
		return "route/action/cli"
	}
	return "route/unknown"
}

// Identity uniquely identifies a routable interface. Two DDS entities with
// the same identity are the same logical interface.
type Identity struct {
	Kind InterfaceKind `json:"kind"`
	// Name is the fully-qualified ROS name, e.g. "/cmd_vel".
	Name string `json:"name"`
	// Type is the ROS message/service/action type, e.g. "geometry_msgs/msg/Twist".
	Type string `json:"type"`
}

func (id Identity) String() string {
	return fmt.Sprintf("%s %s (%s)", id.Kind, id.Name, id.Type)
}

// KeyExpr is the zenoh key expression used for routing this interface.
// The leading '/' of the ROS name is stripped, zenoh keys have no empty chunks.
func (id Identity) KeyExpr() string {
	return strings.TrimPrefix(id.Name, "/")
}

// AdminKeyExpr is the key under which this route is exposed in the
// bridge's admin space, relative to the admin prefix.
func (id Identity) AdminKeyExpr() string {
	return id.Kind.RoutePrefix() + "/" + id.KeyExpr()
}

// DemangleType converts a DDS type name to its ROS form, e.g.
// "std_msgs::msg::dds_::String_" -> "std_msgs/msg/String".
// A name without DDS mangling is returned unchanged.
func DemangleType(ddsType string) string {
	t := strings.ReplaceAll(ddsType, "::dds_::", "::")
	t = strings.ReplaceAll(t, "::", "/")
	t = strings.TrimSuffix(t, "_")
	return t
}

// ServiceType derives the ROS service type from the type of one of its
// request/reply messages, e.g.
// "example_interfaces::srv::dds_::AddTwoInts_Request_" -> "example_interfaces/srv/AddTwoInts".
func ServiceType(ddsType string) string {
	t := DemangleType(ddsType)
	t = strings.TrimSuffix(t, "_Request")
	t = strings.TrimSuffix(t, "_Response")
	t = strings.TrimSuffix(t, "_Reply")
	return t
}

// ActionType derives the ROS action type from one of its underlying
// service or message types, e.g.
// "test_msgs/action/Fibonacci_SendGoal" -> "test_msgs/action/Fibonacci".
func ActionType(ddsType string) string {
	t := ServiceType(ddsType)
	for _, suffix := range []string{
		"_SendGoal", "_CancelGoal", "_GetResult", "_FeedbackMessage",
	} {
		t = strings.TrimSuffix(t, suffix)
	}
	return t
}
