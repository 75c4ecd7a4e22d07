package main

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/realraum/fingerdoor/accessctl"
)

type gpioOutput struct {
	pin gpio.PinIO
}

func (o gpioOutput) Set(on bool) error {
	return o.pin.Out(gpio.Level(on))
}

type pirSensor struct {
	pin gpio.PinIO
}

func (p pirSensor) MotionDetected() bool {
	return p.pin.Read() == gpio.High
}

// setupButton is wired to ground with the internal pull-up enabled.
type setupButton struct {
	pin gpio.PinIO
}

func (b setupButton) Pressed() bool {
	return b.pin.Read() == gpio.Low
}

func lookupPin(name string) (gpio.PinIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio %s not found", name)
	}
	return pin, nil
}

func openOutput(name string) (gpioOutput, error) {
	pin, err := lookupPin(name)
	if err != nil {
		return gpioOutput{}, err
	}
	if err := pin.Out(gpio.Low); err != nil {
		return gpioOutput{}, fmt.Errorf("gpio %s as output: %w", name, err)
	}
	return gpioOutput{pin}, nil
}

func openInput(name string, pull gpio.Pull) (gpio.PinIO, error) {
	pin, err := lookupPin(name)
	if err != nil {
		return nil, err
	}
	if err := pin.In(pull, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("gpio %s as input: %w", name, err)
	}
	return pin, nil
}

// OpenHardware claims the PIR, both LEDs, the buzzer and the setup button.
// All outputs start low.
func OpenHardware(c DaemonConfig) (accessctl.Hardware, accessctl.Button, error) {
	var hw accessctl.Hardware
	if _, err := host.Init(); err != nil {
		return hw, nil, fmt.Errorf("gpio init: %w", err)
	}
	pir, err := openInput(c.PinPIR, gpio.PullDown)
	if err != nil {
		return hw, nil, err
	}
	hw.Motion = pirSensor{pir}
	green, err := openOutput(c.PinGreen)
	if err != nil {
		return hw, nil, err
	}
	hw.Lock = green
	red, err := openOutput(c.PinRed)
	if err != nil {
		return hw, nil, err
	}
	hw.Alarm = red
	buzzer, err := openOutput(c.PinBuzzer)
	if err != nil {
		return hw, nil, err
	}
	hw.Buzzer = buzzer
	button, err := openInput(c.PinSetupButton, gpio.PullUp)
	if err != nil {
		return hw, nil, err
	}
	Debug_.Printf("gpio: pir=%s green=%s red=%s buzzer=%s button=%s", c.PinPIR, c.PinGreen, c.PinRed, c.PinBuzzer, c.PinSetupButton)
	return hw, setupButton{button}, nil
}
