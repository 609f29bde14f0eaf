package ros2

import "strings"

// DDS-level name mangling as performed by the ROS middleware: topics get a
// "rt" prefix, service request/reply topics get "rq"/"rr" prefixes and a
// "Request"/"Reply" suffix.
const (
	topicPrefix   = "rt"
	requestPrefix = "rq"
	replyPrefix   = "rr"
	requestSuffix = "Request"
	replySuffix   = "Reply"

	// ActionSuffix marks the DDS topics underlying a ROS action.
	ActionSuffix = "/_action/"
)

// MangleTopic converts a ROS topic name to its DDS topic name,
// e.g. "/chatter" -> "rt/chatter".
func MangleTopic(name string) string {
	return topicPrefix + name
}

// DemangleTopic converts a DDS topic name back to its ROS topic name.
// ok is false for DDS topics that do not carry ROS topic mangling.
func DemangleTopic(topic string) (name string, ok bool) {
	name, ok = strings.CutPrefix(topic, topicPrefix)
	if !ok || !strings.HasPrefix(name, "/") {
		return "", false
	}
	return name, true
}

// MangleService returns the DDS request and reply topic names of a ROS
// service, e.g. "/add_two_ints" -> "rq/add_two_intsRequest", "rr/add_two_intsReply".
func MangleService(name string) (request, reply string) {
	return requestPrefix + name + requestSuffix, replyPrefix + name + replySuffix
}

// DemangleService converts a DDS service request or reply topic name back
// to the ROS service name. isRequest reports which side the topic is;
// ok is false for topics without service mangling.
func DemangleService(topic string) (name string, isRequest, ok bool) {
	if s, found := strings.CutPrefix(topic, requestPrefix); found {
		if name, found = strings.CutSuffix(s, requestSuffix); found && strings.HasPrefix(name, "/") {
			return name, true, true
		}
		return "", false, false
	}
	if s, found := strings.CutPrefix(topic, replyPrefix); found {
		if name, found = strings.CutSuffix(s, replySuffix); found && strings.HasPrefix(name, "/") {
			return name, false, true
		}
	}
	return "", false, false
}

// SplitAction splits a name carrying the "/_action/" marker into the
// action name and the sub-interface name (e.g. "send_goal", "status").
// ok is false for names that are not action sub-interfaces.
func SplitAction(name string) (action, sub string, ok bool) {
	i := strings.LastIndex(name, ActionSuffix)
	if i < 0 {
		return "", "", false
	}
	return name[:i], name[i+len(ActionSuffix):], true
}

// MangleType converts a ROS type name to its DDS form,
// e.g. "std_msgs/msg/String" -> "std_msgs::msg::dds_::String_".
func MangleType(rosType string) string {
	i := strings.LastIndex(rosType, "/")
	if i < 0 {
		return rosType
	}
	return strings.ReplaceAll(rosType[:i], "/", "::") + "::dds_::" + rosType[i+1:] + "_"
}
