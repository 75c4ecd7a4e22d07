package accessctl

import (
	"errors"
	"fmt"
	"time"
)

var ErrWrongPassword = errors.New("accessctl: wrong setup password")

// SetupGate is the boot-time window in which an operator can press the setup
// button, type the setup password and enroll a new master finger.
type SetupGate struct {
	Button  Button
	Prompt  PasswordPrompt
	Checker PasswordChecker
	// defaults to one built from the machine
	Enroller *Enroller

	Window       time.Duration
	PollInterval time.Duration
	DeniedDelay  time.Duration
	WipeDelay    time.Duration
}

func NewSetupGate(button Button, prompt PasswordPrompt, checker PasswordChecker) *SetupGate {
	return &SetupGate{
		Button:       button,
		Prompt:       prompt,
		Checker:      checker,
		Window:       2 * time.Second,
		PollInterval: 20 * time.Millisecond,
		DeniedDelay:  2 * time.Second,
		WipeDelay:    1 * time.Second,
	}
}

// NewEnroller returns an Enroller sharing the machine's sensor, display,
// clock and log, blinking the lock LED on success.
func (m *Machine) NewEnroller() *Enroller {
	e := NewEnroller(m.Sensor, m.Display)
	e.Indicator = m.Hardware.Lock
	e.Clock = m.Clock
	e.Log = m.Log
	return e
}

// Boot runs the setup gate, if any, and arms the machine whatever the gate's
// result. The returned error only reports what happened during setup.
func (m *Machine) Boot(g *SetupGate) error {
	m.setMode(Booting)
	var err error
	if g != nil {
		err = m.runSetupGate(g)
	}
	m.Arm()
	return err
}

func (m *Machine) runSetupGate(g *SetupGate) error {
	m.show("System Booting", "Click BOOT for Setup")
	if !m.waitSetupButton(g) {
		m.Log.Print("normal startup")
		return nil
	}

	m.show("PASSWORD REQUIRED", "Check Terminal ->")
	password, err := g.Prompt.ReadPassword()
	if err != nil {
		m.show("ACCESS DENIED", "No Password")
		return fmt.Errorf("read setup password: %w", err)
	}
	if g.Checker == nil || !g.Checker.CheckPassword(password) {
		m.Log.Print("wrong setup password")
		m.show("ACCESS DENIED", "Wrong Password")
		m.Clock.Sleep(g.DeniedDelay)
		return ErrWrongPassword
	}

	m.Log.Print("setup password accepted")
	m.show("ACCESS GRANTED", "Wiping DB...")
	if err := m.Sensor.EraseAll(); err != nil {
		m.Log.Printf("erasing template library: %v", err)
	}
	m.Clock.Sleep(g.WipeDelay)

	m.setMode(Enrolling)
	e := g.Enroller
	if e == nil {
		e = m.NewEnroller()
	}
	if err := e.Enroll(); err != nil {
		m.Log.Printf("enrollment aborted: %v", err)
		m.setMode(Booting)
		return err
	}
	m.setMode(Booting)
	return nil
}

func (m *Machine) waitSetupButton(g *SetupGate) bool {
	if g.Button == nil {
		return false
	}
	start := m.Clock.Now()
	for m.Clock.Now().Sub(start) < g.Window {
		if g.Button.Pressed() {
			return true
		}
		m.Clock.Sleep(g.PollInterval)
	}
	return false
}
