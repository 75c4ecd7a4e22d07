package remotecmd

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

var now = time.Unix(1700000000, 0)

func payload(cmd string, ts int64) []byte {
	return []byte(fmt.Sprintf(`{"cmd":%q,"ts":%d}`, cmd, ts))
}

func TestValidateAccepts(t *testing.T) {
	tests := []struct {
		raw  []byte
		kind Kind
	}{
		{payload("OPEN_DOOR", now.Unix()-5), KindOpenDoor},
		{payload("open_door", now.Unix()), KindOpenDoor},
		{payload("ALARM_ON", now.Unix()+10), KindAlarmOn},
		{payload("Alarm_Off", now.Unix()-30), KindAlarmOff},
		{payload("REBOOT", now.Unix()), KindUnknown},
		{[]byte(`{"cmd":"ALARM_ON","ts":1700000000.75,"extra":true}`), KindAlarmOn},
	}
	var v Validator
	for _, tt := range tests {
		cmd, err := v.Validate(tt.raw, now)
		if err != nil {
			t.Fatalf("%s: unexpected rejection: %v", tt.raw, err)
		}
		if cmd.Kind != tt.kind {
			t.Fatalf("%s: kind %s, want %s", tt.raw, cmd.Kind, tt.kind)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		raw  []byte
		want error
	}{
		{[]byte(`not json`), ErrMalformed},
		{[]byte(`{"cmd":42,"ts":1700000000}`), ErrMalformed},
		{[]byte(`{"cmd":"OPEN_DOOR","ts":"1700000000"}`), ErrMalformed},
		{[]byte(`{"ts":1700000000}`), ErrMissingCommand},
		{[]byte(`{"cmd":"OPEN_DOOR"}`), ErrMissingTimestamp},
		{payload("OPEN_DOOR", now.Unix()-60), ErrStale},
		{payload("OPEN_DOOR", now.Unix()-31), ErrStale},
		{payload("ALARM_OFF", now.Unix()+31), ErrStale},
		{payload("OPEN_DOOR", 0), ErrStale},
	}
	var v Validator
	for _, tt := range tests {
		_, err := v.Validate(tt.raw, now)
		if !errors.Is(err, tt.want) {
			t.Fatalf("%s: got %v, want %v", tt.raw, err, tt.want)
		}
		if !errors.Is(err, ErrRejected) {
			t.Fatalf("%s: %v does not match ErrRejected", tt.raw, err)
		}
	}
}

func TestReplayedPayloadRejected(t *testing.T) {
	var v Validator
	fresh := Encode("OPEN_DOOR", now.Add(-5*time.Second))
	if _, err := v.Validate(fresh, now); err != nil {
		t.Fatalf("fresh command rejected: %v", err)
	}
	// the very same bytes a minute later
	if _, err := v.Validate(fresh, now.Add(55*time.Second)); !errors.Is(err, ErrStale) {
		t.Fatalf("replay accepted: %v", err)
	}
}

func TestCustomWindow(t *testing.T) {
	v := Validator{Window: 5 * time.Second}
	if _, err := v.Validate(payload("OPEN_DOOR", now.Unix()-6), now); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
}
