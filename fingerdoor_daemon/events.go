package main

import (
	"fmt"
	"sync"

	"github.com/btittelbach/pubsub"

	"github.com/realraum/fingerdoor/accessctl"
	"github.com/realraum/fingerdoor/clock"
	"github.com/realraum/fingerdoor/r3events"
)

// pubsub topics
const (
	PS_TELEMETRY = "telemetry"
	PS_DISPLAY   = "display"
)

type TelemetryEvent struct {
	Topic string                `json:"topic"`
	Event r3events.AccessStatus `json:"event"`
}

// EventBus is both the controller's event sink and its display. Everything
// it receives is republished on the in-process bus for the MQTT forwarder
// and the status page.
type EventBus struct {
	ps     *pubsub.PubSub
	device string
	// display timestamps; the machine's clock so they line up with events
	clock clock.Clock

	display_lock sync.RWMutex
	display      r3events.DisplayUpdate
}

func NewEventBus(ps *pubsub.PubSub, device string, clk clock.Clock) *EventBus {
	return &EventBus{ps: ps, device: device, clock: clk}
}

func (b *EventBus) Emit(ev accessctl.Event) error {
	eventtype := ev.Kind.String()
	switch eventtype {
	case r3events.TYPE_DETECTION, r3events.TYPE_ACCESS, r3events.TYPE_DOORSTATUS, r3events.TYPE_ALARM:
	default:
		return fmt.Errorf("no topic for event kind %d", int(ev.Kind))
	}
	Syslog_.Printf("%s: %s", eventtype, ev.Status)
	b.ps.Pub(TelemetryEvent{
		Topic: r3events.Topic(b.device, eventtype),
		Event: r3events.AccessStatus{Device: b.device, Status: ev.Status, Timestamp: ev.Time.Unix()},
	}, PS_TELEMETRY)
	return nil
}

func (b *EventBus) Show(line1, line2 string) {
	upd := r3events.DisplayUpdate{Line1: line1, Line2: line2, Rows: RenderDisplay(line1, line2), Ts: b.clock.Now().Unix()}
	b.display_lock.Lock()
	b.display = upd
	b.display_lock.Unlock()
	for _, row := range upd.Rows {
		Debug_.Printf("display |%-16s|", row)
	}
	b.ps.Pub(upd, PS_DISPLAY)
}

func (b *EventBus) LastDisplay() r3events.DisplayUpdate {
	b.display_lock.RLock()
	defer b.display_lock.RUnlock()
	return b.display
}
