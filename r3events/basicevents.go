package r3events

// AccessStatus is published on the detection, access, doorstatus and alarm
// topics. Timestamp is in seconds since the epoch.
type AccessStatus struct {
	Device    string `json:"device"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// Online is the retained presence flag. On the wire it is the bare
// ONLINE/OFFLINE payload, Ts is local arrival time.
type Online struct {
	Online bool  `json:"online"`
	Ts     int64 `json:"ts"`
}

func (o Online) Payload() string {
	if o.Online {
		return PAYLOAD_ONLINE
	}
	return PAYLOAD_OFFLINE
}

// RemoteCommand is what operators publish on the command topic. Ts carries
// fractional seconds. Both fields are pointers so a missing key can be told
// apart from a zero value.
type RemoteCommand struct {
	Cmd *string  `json:"cmd"`
	Ts  *float64 `json:"ts"`
}
