// Package remotecmd decodes control messages arriving on the command topic
// and rejects stale ones. It checks freshness and schema only; the channel
// itself has to be authenticated (mutual TLS towards the broker).
package remotecmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/realraum/fingerdoor/r3events"
)

const DefaultWindow = 30 * time.Second

var (
	// ErrRejected matches every validation failure below.
	ErrRejected         = errors.New("remotecmd: rejected")
	ErrMalformed        = fmt.Errorf("%w: malformed payload", ErrRejected)
	ErrMissingCommand   = fmt.Errorf("%w: cmd missing", ErrRejected)
	ErrMissingTimestamp = fmt.Errorf("%w: ts missing", ErrRejected)
	ErrStale            = fmt.Errorf("%w: outside freshness window", ErrRejected)
)

type Kind int

const (
	KindUnknown Kind = iota
	KindOpenDoor
	KindAlarmOn
	KindAlarmOff
)

var kindNames = map[string]Kind{
	"open_door": KindOpenDoor,
	"alarm_on":  KindAlarmOn,
	"alarm_off": KindAlarmOff,
}

func (k Kind) String() string {
	switch k {
	case KindOpenDoor:
		return "open_door"
	case KindAlarmOn:
		return "alarm_on"
	case KindAlarmOff:
		return "alarm_off"
	default:
		return "unknown"
	}
}

// Command is an accepted message. Kind is KindUnknown for well-formed,
// fresh messages naming a command we do not implement; Name keeps the
// original spelling for logging.
type Command struct {
	Kind     Kind
	Name     string
	IssuedAt time.Time
}

type Validator struct {
	// maximum |now - ts|, DefaultWindow if zero
	Window time.Duration
}

// Validate decodes {"cmd": string, "ts": seconds since epoch} and accepts it
// if ts lies within Window of now, in either direction.
func (v Validator) Validate(raw []byte, now time.Time) (Command, error) {
	var w r3events.RemoteCommand
	if err := json.Unmarshal(raw, &w); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.Cmd == nil {
		return Command{}, ErrMissingCommand
	}
	if w.Ts == nil {
		return Command{}, ErrMissingTimestamp
	}
	window := v.Window
	if window <= 0 {
		window = DefaultWindow
	}
	nowSec := float64(now.UnixNano()) / float64(time.Second)
	if skew := nowSec - *w.Ts; math.Abs(skew) > window.Seconds() {
		return Command{}, fmt.Errorf("%w: ts %.0f is %.0fs away from now", ErrStale, *w.Ts, skew)
	}
	sec, frac := math.Modf(*w.Ts)
	return Command{
		Kind:     kindNames[strings.ToLower(*w.Cmd)],
		Name:     *w.Cmd,
		IssuedAt: time.Unix(int64(sec), int64(frac*float64(time.Second))),
	}, nil
}

// Encode builds a payload Validate accepts; for clients and tests.
func Encode(name string, issued time.Time) []byte {
	ts := float64(issued.Unix())
	b, _ := json.Marshal(r3events.RemoteCommand{Cmd: &name, Ts: &ts})
	return b
}
