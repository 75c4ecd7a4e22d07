package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/btittelbach/pubsub"

	"github.com/realraum/fingerdoor/accessctl"
	"github.com/realraum/fingerdoor/clock"
	"github.com/realraum/fingerdoor/fpsensor"
	"github.com/realraum/fingerdoor/uart"
)

// ---------- Main Code -------------

var (
	enable_syslog_   bool
	enable_debug_    bool
	skip_setup_      bool
	envfile_         string
	syslog_facility_ string
)

func init() {
	flag.BoolVar(&enable_syslog_, "syslog", false, "enable logging to syslog")
	flag.BoolVar(&enable_debug_, "debug", false, "enable debug output")
	flag.BoolVar(&skip_setup_, "nosetup", false, "skip the boot time setup window")
	flag.StringVar(&syslog_facility_, "syslogfacility", DEFAULT_FINGERDOOR_SYSLOG_FACILITY, "syslog facility used with -syslog")
	flag.StringVar(&envfile_, "envfile", DEFAULT_FINGERDOOR_ENVFILE, "file with FINGERDOOR_* settings")
}

func main() {
	flag.Parse()
	if runDaemon() {
		// leave the restart to the service manager
		os.Exit(1)
	}
}

// runDaemon returns true if it stopped because the sensor's serial device went away.
func runDaemon() bool {
	// Logging
	if enable_syslog_ {
		if err := LogEnableSyslog(syslog_facility_); err != nil {
			panic(err)
		}
	}
	if enable_debug_ {
		LogEnableDebuglog()
	}
	Syslog_.Print("started")
	defer Syslog_.Print("exiting")

	if err := LoadEnvFile(envfile_); err != nil {
		Syslog_.Fatalf("reading %s: %s", envfile_, err)
	}
	cfg, err := LoadDaemonConfig()
	if err != nil {
		Syslog_.Fatal(err)
	}

	// Connection to the fingerprint sensor
	port, err := uart.Open(cfg.SensorDriver, cfg.SensorTTY, uart.DefaultBaud)
	if err != nil {
		panic(err)
	}
	defer port.Close()
	sensor := fpsensor.NewSensor(fpsensor.NewCodec(port))
	sensor.Password = cfg.SensorPassword
	if err := sensor.VerifyPassword(); err != nil {
		Syslog_.Printf("sensor handshake: %s", err)
	}

	hw, button, err := OpenHardware(cfg)
	if err != nil {
		panic(err)
	}

	ps := pubsub.New(50)
	defer ps.Shutdown()
	clk := clock.System
	bus := NewEventBus(ps, cfg.DeviceID, clk)
	commands := NewCommandQueue()

	// Connect to MQTT Broker
	tlsconf, err := NewTLSConfig(cfg.TLSCA, cfg.TLSCert, cfg.TLSKey)
	if err != nil {
		Syslog_.Fatal(err)
	}
	link := NewMQTTLink(cfg.Broker, cfg.DeviceID, tlsconf, commands)
	stop_mqtt := make(chan struct{})
	go link.Maintain(stop_mqtt)
	defer link.Shutdown()
	defer close(stop_mqtt)
	go ForwardTelemetryToMQTT(ps, link)

	machine := accessctl.NewMachine(sensor, hw, bus, bus, commands)
	machine.Log = Syslog_
	machine.Clock = clk

	go goRunWebserver(cfg.StatusHTTPListenOn, NewStatusServer(cfg.DeviceID, machine, bus, link, ps))

	var gate *accessctl.SetupGate
	if !skip_setup_ {
		gate = accessctl.NewSetupGate(button, newConsolePrompt(os.Stdin, os.Stdout), newBcryptChecker(cfg.SetupPasswordHash))
	}
	if err := machine.Boot(gate); err != nil {
		Syslog_.Printf("setup: %s", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	var device_lost atomic.Bool
	go func() {
		select {
		case <-port.Done():
			Syslog_.Printf("serial device disappeared: %s", port.Err())
			device_lost.Store(true)
			cancel()
		case <-ctx.Done():
		}
	}()
	machine.Run(ctx)
	return device_lost.Load()
}
