package r3events

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"
)

var ErrUnknownTopic = errors.New("cannot unmarshal unknown type")

// NameOfStruct is the unqualified type name of an event, pointers included.
func NameOfStruct(evi interface{}) string {
	t := reflect.TypeOf(evi)
	if t == nil {
		return "nil"
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

func MarshalEvent2Byte(event_interface interface{}) ([]byte, error) {
	data, err := json.Marshal(event_interface)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", NameOfStruct(event_interface), err)
	}
	return data, nil
}

// UnmarshalTopicByte2Event decodes a payload by the last topic segment.
// Status events without a timestamp get the time of arrival.
func UnmarshalTopicByte2Event(topic string, data []byte) (event interface{}, err error) {
	switch TypeOfTopic(topic) {
	case TYPE_DETECTION, TYPE_ACCESS, TYPE_DOORSTATUS, TYPE_ALARM:
		newevent := new(AccessStatus)
		err = json.Unmarshal(data, newevent)
		if newevent.Timestamp == 0 {
			newevent.Timestamp = time.Now().Unix()
		}
		if newevent.Device == "" {
			newevent.Device = DeviceOfTopic(topic)
		}
		event = *newevent
	case TYPE_ONLINE:
		event = Online{Online: string(data) == PAYLOAD_ONLINE, Ts: time.Now().Unix()}
	case TYPE_COMMAND:
		newevent := new(RemoteCommand)
		err = json.Unmarshal(data, newevent)
		event = *newevent
	default:
		event = nil
		err = ErrUnknownTopic
	}
	return
}
