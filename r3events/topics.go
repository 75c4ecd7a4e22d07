package r3events

import "strings"

const (
	TOPIC_PREFIX    string = "realraum/fingerdoor/"
	CLIENTID_PREFIX string = "fingerdoor-"
)

const (
	TYPE_DETECTION  string = "detection"
	TYPE_ACCESS     string = "access"
	TYPE_DOORSTATUS string = "doorstatus"
	TYPE_ALARM      string = "alarm"
	TYPE_ONLINE     string = "online"
	TYPE_COMMAND    string = "command"
)

const (
	PAYLOAD_ONLINE  string = "ONLINE"
	PAYLOAD_OFFLINE string = "OFFLINE"
)

// Topic returns realraum/fingerdoor/<device>/<type>.
func Topic(device, eventtype string) string {
	return TOPIC_PREFIX + device + "/" + eventtype
}

func ClientID(device string) string {
	return CLIENTID_PREFIX + device
}

func TypeOfTopic(topic string) string {
	return topic[strings.LastIndex(topic, "/")+1:] //works for -1 as well
}

func DeviceOfTopic(topic string) string {
	if !strings.HasPrefix(topic, TOPIC_PREFIX) {
		return ""
	}
	rest := topic[len(TOPIC_PREFIX):]
	sep := strings.Index(rest, "/")
	if sep < 0 {
		return ""
	}
	return rest[:sep]
}
