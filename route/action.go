package route

import (
	"github.com/ZettaScaleLabs/zplugin-ros2/dds"
	"github.com/ZettaScaleLabs/zplugin-ros2/ros2"
	"github.com/ZettaScaleLabs/zplugin-ros2/zenoh"
)

// Action sub-interface names, as used in the DDS topics underlying a ROS
// action and mirrored in the route's zenoh key expressions.
const (
	actionSendGoal   = "send_goal"
	actionCancelGoal = "cancel_goal"
	actionGetResult  = "get_result"
	actionStatus     = "status"
	actionFeedback   = "feedback"

	cancelGoalType = "action_msgs/srv/CancelGoal"
	goalStatusType = "action_msgs/msg/GoalStatusArray"
)

// actionServiceLegs maps sub-interface name to service type for the three
// service pairs an action is built on.
func actionServiceLegs(actionType string) map[string]string {
	return map[string]string{
		actionSendGoal:   actionType + "_SendGoal",
		actionCancelGoal: cancelGoalType,
		actionGetResult:  actionType + "_GetResult",
	}
}

func actionStatusQoS() dds.QoS {
	return dds.QoS{
		Reliability: &dds.Reliability{Kind: dds.Reliable},
		Durability:  &dds.Durability{Kind: dds.TransientLocal},
		History:     &dds.History{Kind: dds.KeepLast, Depth: 1},
	}
}

func actionFeedbackQoS() dds.QoS {
	return dds.QoS{
		Reliability: &dds.Reliability{Kind: dds.Reliable},
		History:     &dds.History{Kind: dds.KeepLast, Depth: 10},
	}
}

// actionTopicLeg resolves the DDS endpoint descriptor of an action status
// or feedback topic, preferring the discovered endpoint when the scanner
// saw one.
func actionTopicLeg(id ros2.Identity, parts map[string]dds.Endpoint, sub string) dds.Endpoint {
	if ep, ok := parts[sub]; ok {
		return ep
	}
	ep := dds.Endpoint{
		TopicName: ros2.MangleTopic(id.Name + ros2.ActionSuffix + sub),
		Keyless:   true,
	}
	switch sub {
	case actionStatus:
		ep.TypeName = ros2.MangleType(goalStatusType)
		ep.QoS = actionStatusQoS()
	case actionFeedback:
		ep.TypeName = ros2.MangleType(id.Type + "_FeedbackMessage")
		ep.QoS = actionFeedbackQoS()
	}
	return ep
}

// NewActionServerRoute bridges a discovered local ROS action server to
// zenoh: one queryable per underlying service (send_goal, cancel_goal,
// get_result) plus publisher legs for the status and feedback topics, all
// managed as a single logical route.
func NewActionServerRoute(sess zenoh.Session, part dds.Participant, id ros2.Identity, parts map[string]dds.Endpoint, opts ...Option) (*Route, error) {
	o := parseOptions(opts...)
	r := newRoute(id, o)

	for sub, typeName := range actionServiceLegs(id.Type) {
		service := id.Name + ros2.ActionSuffix + sub
		ke := r.keyExpr + ros2.ActionSuffix + sub
		if err := attachServiceServerLeg(r, sess, part, service, typeName, ke, o.queriesTimeout); err != nil {
			r.Close()
			return nil, err
		}
	}

	for _, sub := range []string{actionStatus, actionFeedback} {
		if err := attachTopicPubLeg(r, sess, part, actionTopicLeg(id, parts, sub), r.keyExpr+ros2.ActionSuffix+sub); err != nil {
			r.Close()
			return nil, err
		}
	}

	r.activate()
	return r, nil
}

// NewActionClientRoute is the mirror of NewActionServerRoute for a
// discovered local ROS action client: replier legs for the three services
// plus subscriber legs for status and feedback.
func NewActionClientRoute(sess zenoh.Session, part dds.Participant, id ros2.Identity, parts map[string]dds.Endpoint, opts ...Option) (*Route, error) {
	o := parseOptions(opts...)
	r := newRoute(id, o)

	for sub, typeName := range actionServiceLegs(id.Type) {
		service := id.Name + ros2.ActionSuffix + sub
		ke := r.keyExpr + ros2.ActionSuffix + sub
		if err := attachServiceClientLeg(r, sess, part, service, typeName, ke, o.queriesTimeout); err != nil {
			r.Close()
			return nil, err
		}
	}

	for _, sub := range []string{actionStatus, actionFeedback} {
		if err := attachTopicSubLeg(r, sess, part, actionTopicLeg(id, parts, sub), r.keyExpr+ros2.ActionSuffix+sub, o.queriesTimeout); err != nil {
			r.Close()
			return nil, err
		}
	}

	r.activate()
	return r, nil
}
