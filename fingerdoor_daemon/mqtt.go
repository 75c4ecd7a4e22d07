package main

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/btittelbach/pubsub"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/hishboy/gocommons/lang"

	"github.com/realraum/fingerdoor/r3events"
)

const MQTT_QOS_REQCONFIRMATION byte = 1

const (
	max_queued_commands   = 32
	mqtt_publish_timeout  = 2 * time.Second
	mqtt_disconnect_quiet = 250
)

var ErrNotConnected = errors.New("mqtt: not connected to broker")

// NewTLSConfig builds the mutual TLS configuration: the broker must present a
// certificate signed by cafile and we authenticate with certfile/keyfile.
func NewTLSConfig(cafile, certfile, keyfile string) (*tls.Config, error) {
	capem, err := os.ReadFile(cafile)
	if err != nil {
		return nil, fmt.Errorf("reading CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(capem) {
		return nil, fmt.Errorf("no certificates in %s", cafile)
	}
	cert, err := tls.LoadX509KeyPair(certfile, keyfile)
	if err != nil {
		return nil, fmt.Errorf("loading client certificate: %w", err)
	}
	return &tls.Config{
		RootCAs:      pool,
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// CommandQueue hands raw command payloads from the MQTT client goroutines to
// the control loop, which polls it.
type CommandQueue struct {
	q *lang.Queue
}

func NewCommandQueue() *CommandQueue {
	return &CommandQueue{q: lang.NewQueue()}
}

// Push returns false and drops the payload if the queue is full.
func (c *CommandQueue) Push(payload []byte) bool {
	if c.q.Len() >= max_queued_commands {
		return false
	}
	c.q.Push(append([]byte(nil), payload...))
	return true
}

func (c *CommandQueue) PollCommand() ([]byte, bool) {
	if c.q.Len() == 0 {
		return nil, false
	}
	payload, ok := c.q.Poll().([]byte)
	return payload, ok
}

// MQTTLink is the daemon's broker connection. Reconnects are driven by
// Maintain rather than by paho so they follow our backoff.
type MQTTLink struct {
	client    mqtt.Client
	device    string
	commands  *CommandQueue
	reconnect chan struct{}
}

func NewMQTTLink(broker, device string, tlsconf *tls.Config, commands *CommandQueue) *MQTTLink {
	l := &MQTTLink{
		device:    device,
		commands:  commands,
		reconnect: make(chan struct{}, 1),
	}
	options := mqtt.NewClientOptions().AddBroker(broker).SetClientID(r3events.ClientID(device)).SetAutoReconnect(false).SetProtocolVersion(4).SetCleanSession(true)
	options = options.SetKeepAlive(30 * time.Second).SetConnectTimeout(10 * time.Second).SetTLSConfig(tlsconf)
	options = options.SetWill(r3events.Topic(device, r3events.TYPE_ONLINE), r3events.Online{Online: false}.Payload(), MQTT_QOS_REQCONFIRMATION, true)
	options = options.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		Syslog_.Print("ERROR MQTT connection lost:", err)
		l.RequestReconnect()
	})
	options = options.SetOnConnectHandler(l.mqttOnConnectionHandler)
	l.client = mqtt.NewClient(options)
	return l
}

func (l *MQTTLink) mqttOnConnectionHandler(c mqtt.Client) {
	Syslog_.Print("MQTT connection to broker established. (re)subscribing command topic")
	c.Publish(r3events.Topic(l.device, r3events.TYPE_ONLINE), MQTT_QOS_REQCONFIRMATION, true, r3events.Online{Online: true}.Payload())
	filter := r3events.Topic(l.device, r3events.TYPE_COMMAND)
	tk := c.Subscribe(filter, MQTT_QOS_REQCONFIRMATION, l.onCommand)
	tk.Wait()
	if tk.Error() != nil {
		Syslog_.Printf("Error subscribing to %s: %s", filter, tk.Error())
		l.RequestReconnect()
	}
}

func (l *MQTTLink) onCommand(c mqtt.Client, msg mqtt.Message) {
	logCommand(msg.Topic(), msg.Payload())
	if !l.commands.Push(msg.Payload()) {
		Syslog_.Print("command queue full, dropping command")
	}
}

// logCommand only decodes for the debug log; validation is up to the
// control loop, so undecodable payloads are still queued.
func logCommand(topic string, payload []byte) string {
	evt, err := r3events.UnmarshalTopicByte2Event(topic, payload)
	var line string
	switch cmd, ok := evt.(r3events.RemoteCommand); {
	case err != nil:
		line = fmt.Sprintf("undecodable payload on %s: %s (%s)", topic, payload, err)
	case ok && cmd.Cmd != nil:
		line = fmt.Sprintf("%s on %s: %q", r3events.NameOfStruct(evt), topic, *cmd.Cmd)
	default:
		line = fmt.Sprintf("%s on %s: %s", r3events.NameOfStruct(evt), topic, payload)
	}
	Debug_.Print(line)
	return line
}

// RequestReconnect never blocks; requests coalesce while one is pending.
func (l *MQTTLink) RequestReconnect() {
	select {
	case l.reconnect <- struct{}{}:
	default:
	}
}

func (l *MQTTLink) IsConnected() bool { return l.client.IsConnectionOpen() }

// Maintain keeps the broker connection up until stop is closed, waiting
// 150ms << n between attempts.
func (l *MQTTLink) Maintain(stop <-chan struct{}) {
	backoff := NewBackoff()
	for {
		start_time := time.Now()
		tk := l.client.Connect()
		tk.Wait()
		if tk.Error() != nil {
			Syslog_.Print("Error connecting to MQTT broker: ", tk.Error())
		} else {
			select {
			case <-stop:
				return
			case <-l.reconnect:
			}
		}
		backoff.Ran(time.Since(start_time))
		if l.client.IsConnectionOpen() {
			l.client.Disconnect(mqtt_disconnect_quiet)
		}
		select {
		case <-stop:
			return
		case <-time.After(backoff.Next()):
		}
		// drop requests that piled up while we were waiting
		select {
		case <-l.reconnect:
		default:
		}
	}
}

// Publish waits up to mqtt_publish_timeout for the broker. On failure the
// message is lost and a reconnect is requested.
func (l *MQTTLink) Publish(topic string, retained bool, payload []byte) error {
	if !l.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	tk := l.client.Publish(topic, MQTT_QOS_REQCONFIRMATION, retained, payload)
	if !tk.WaitTimeout(mqtt_publish_timeout) {
		l.RequestReconnect()
		return fmt.Errorf("mqtt: publish to %s timed out", topic)
	}
	if tk.Error() != nil {
		l.RequestReconnect()
		return tk.Error()
	}
	return nil
}

// Shutdown announces that we go offline and disconnects.
func (l *MQTTLink) Shutdown() {
	if !l.client.IsConnectionOpen() {
		return
	}
	tk := l.client.Publish(r3events.Topic(l.device, r3events.TYPE_ONLINE), MQTT_QOS_REQCONFIRMATION, true, r3events.Online{Online: false}.Payload())
	tk.WaitTimeout(mqtt_publish_timeout)
	l.client.Disconnect(mqtt_disconnect_quiet)
}

type telemetryPublisher interface {
	Publish(topic string, retained bool, payload []byte) error
}

// ForwardTelemetryToMQTT publishes every telemetry event from the bus until
// the bus shuts down. Events that cannot be published are dropped.
func ForwardTelemetryToMQTT(ps *pubsub.PubSub, pub telemetryPublisher) {
	events_chan := ps.Sub(PS_TELEMETRY)
	for eventinterface := range events_chan {
		ev, ok := eventinterface.(TelemetryEvent)
		if !ok {
			continue
		}
		payload, err := r3events.MarshalEvent2Byte(ev.Event)
		if err == nil {
			err = pub.Publish(ev.Topic, false, payload)
		}
		if err != nil {
			Syslog_.Printf("telemetry %s %q dropped: %s", ev.Topic, ev.Event.Status, err)
		}
	}
}
