package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/btittelbach/pubsub"
	"github.com/codegangsta/negroni"
	"github.com/gorilla/websocket"

	"github.com/realraum/fingerdoor/accessctl"
	"github.com/realraum/fingerdoor/r3events"
)

const (
	ws_write_wait   = 10 * time.Second
	ws_pong_wait    = 60 * time.Second
	ws_ping_period  = 50 * time.Second
	ws_message_type = "telemetry"
)

type statusSource interface {
	Status() accessctl.Status
}

type connectionState interface {
	IsConnected() bool
}

type StatusDocument struct {
	Device          string                 `json:"device"`
	Controller      accessctl.Status       `json:"controller"`
	Display         r3events.DisplayUpdate `json:"display"`
	BrokerConnected bool                   `json:"broker_connected"`
	Ts              int64                  `json:"ts"`
}

// wsMessage wraps everything sent to websocket clients.
type wsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type StatusServer struct {
	Device  string
	Machine statusSource
	Bus     *EventBus
	Broker  connectionState
	PS      *pubsub.PubSub

	upgrader websocket.Upgrader
}

func NewStatusServer(device string, machine statusSource, bus *EventBus, broker connectionState, ps *pubsub.PubSub) *StatusServer {
	return &StatusServer{
		Device:  device,
		Machine: machine,
		Bus:     bus,
		Broker:  broker,
		PS:      ps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (s *StatusServer) document() StatusDocument {
	doc := StatusDocument{
		Device:     s.Device,
		Controller: s.Machine.Status(),
		Ts:         time.Now().Unix(),
	}
	if s.Bus != nil {
		doc.Display = s.Bus.LastDisplay()
	}
	if s.Broker != nil {
		doc.BrokerConnected = s.Broker.IsConnected()
	}
	return doc
}

func (s *StatusServer) webServeStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Cache-Control", "no-cache")
	w.Header().Add("Pragma", "no-cache")
	w.Header().Add("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.document()); err != nil {
		Debug_.Print("webServeStatus: ", err)
	}
}

// webServeEvents streams telemetry and display updates to a websocket client.
// The subscription is taken before the upgrade so nothing published after the
// handshake is missed.
func (s *StatusServer) webServeEvents(w http.ResponseWriter, r *http.Request) {
	events_chan := s.PS.Sub(PS_TELEMETRY, PS_DISPLAY)
	defer func() {
		// keep the bus from blocking on us until the unsubscribe is processed
		go func() {
			for {
				select {
				case _, ok := <-events_chan:
					if !ok {
						return
					}
				case <-time.After(time.Second):
					return
				}
			}
		}()
		s.PS.Unsub(events_chan, PS_TELEMETRY, PS_DISPLAY)
	}()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		Syslog_.Printf("websocket upgrade failed: %s", err)
		return
	}
	defer conn.Close()
	Debug_.Printf("websocket client connected: %s", r.RemoteAddr)

	closed_chan := make(chan struct{})
	go func() {
		defer close(closed_chan)
		conn.SetReadDeadline(time.Now().Add(ws_pong_wait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(ws_pong_wait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					Debug_.Printf("websocket %s: %s", r.RemoteAddr, err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(ws_ping_period)
	defer ticker.Stop()
	for {
		select {
		case eventinterface, ok := <-events_chan:
			if !ok {
				conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(ws_write_wait))
				return
			}
			var msg wsMessage
			switch ev := eventinterface.(type) {
			case TelemetryEvent:
				msg = wsMessage{ws_message_type, ev}
			case r3events.DisplayUpdate:
				msg = wsMessage{PS_DISPLAY, ev}
			default:
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(ws_write_wait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(ws_write_wait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed_chan:
			return
		}
	}
}

func (s *StatusServer) Handler() http.Handler {
	n := negroni.Classic()
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.webServeStatus)
	mux.HandleFunc("/status.json", s.webServeStatus)
	mux.HandleFunc("/events", s.webServeEvents)
	n.UseHandler(mux)
	return n
}

func goRunWebserver(listen_on string, s *StatusServer) {
	if err := http.ListenAndServe(listen_on, s.Handler()); err != nil {
		Syslog_.Print("status webserver: ", err)
	}
}
