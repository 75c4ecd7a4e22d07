package accessctl

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/realraum/fingerdoor/clock"
	"github.com/realraum/fingerdoor/fpsensor"
	"github.com/realraum/fingerdoor/remotecmd"
)

type Config struct {
	ScanWindow        time.Duration
	ScanPollInterval  time.Duration
	ArmedPollInterval time.Duration
	UnlockHold        time.Duration
	DeniedFlash       time.Duration
	TimeoutHold       time.Duration
	// reaching this many failed scans in one session starts a lockout
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	LockoutToggle     time.Duration
	PanicPulse        time.Duration
	CommandWindow     time.Duration
	// character buffer used for identification
	ScanSlot byte
}

func DefaultConfig() Config {
	return Config{
		ScanWindow:        10 * time.Second,
		ScanPollInterval:  10 * time.Millisecond,
		ArmedPollInterval: 100 * time.Millisecond,
		UnlockHold:        4 * time.Second,
		DeniedFlash:       1 * time.Second,
		TimeoutHold:       2 * time.Second,
		MaxFailedAttempts: 3,
		LockoutDuration:   5 * time.Second,
		LockoutToggle:     250 * time.Millisecond,
		PanicPulse:        500 * time.Millisecond,
		CommandWindow:     remotecmd.DefaultWindow,
		ScanSlot:          1,
	}
}

const maxCommandsPerStep = 16

// Status is a snapshot for observers outside the control loop.
type Status struct {
	Mode           Mode      `json:"mode"`
	Since          time.Time `json:"since"`
	FailedAttempts int       `json:"failed_attempts"`
	Session        *Session  `json:"session,omitempty"`
}

// Machine owns all controller state. Everything except Status must be called
// from the single goroutine that runs the loop.
type Machine struct {
	Config
	Sensor   Scanner
	Hardware Hardware
	Display  Display
	Events   EventSink
	Commands CommandSource
	Clock    clock.Clock
	Log      *log.Logger

	mode           Mode
	since          time.Time
	failedAttempts int
	session        *Session
	scanDeadline   time.Time
	lockoutUntil   time.Time
	lastMotion     bool
	pulseOn        bool

	statusMu sync.Mutex
	status   Status
}

func NewMachine(sensor Scanner, hw Hardware, display Display, events EventSink, commands CommandSource) *Machine {
	return &Machine{
		Config:   DefaultConfig(),
		Sensor:   sensor,
		Hardware: hw,
		Display:  display,
		Events:   events,
		Commands: commands,
		Clock:    clock.System,
		Log:      log.New(io.Discard, "", 0),
	}
}

func (m *Machine) Mode() Mode          { return m.mode }
func (m *Machine) FailedAttempts() int { return m.failedAttempts }

// Status may be called from any goroutine.
func (m *Machine) Status() Status {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	return m.status
}

func (m *Machine) storeStatus() {
	st := Status{Mode: m.mode, Since: m.since, FailedAttempts: m.failedAttempts}
	if m.session != nil {
		s := *m.session
		st.Session = &s
	}
	m.statusMu.Lock()
	m.status = st
	m.statusMu.Unlock()
}

func (m *Machine) setMode(mode Mode) {
	if mode != m.mode {
		m.Log.Printf("mode %s -> %s", m.mode, mode)
	}
	m.mode = mode
	m.since = m.Clock.Now()
	m.storeStatus()
}

// Arm turns the sensor dark and waits for motion.
func (m *Machine) Arm() {
	m.illuminate(false)
	m.arm()
}

func (m *Machine) arm() {
	m.setMode(Armed)
	m.showMode()
}

// Run steps the loop until ctx is cancelled. Cancellation is noticed between
// iterations only.
func (m *Machine) Run(ctx context.Context) error {
	if m.mode == Booting {
		m.Arm()
	}
	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return ctx.Err()
		default:
		}
		m.Step()
	}
}

// Step is one loop iteration: drain remote commands, then advance the
// current mode by one poll.
func (m *Machine) Step() {
	m.pollCommands()
	switch m.mode {
	case Armed:
		m.stepArmed()
	case Scanning:
		m.stepScanning()
	case Lockout:
		m.stepLockout()
	case Panic:
		m.stepPanic()
	default:
		m.Clock.Sleep(m.ArmedPollInterval)
	}
	m.storeStatus()
}

func (m *Machine) stepArmed() {
	motion := m.Hardware.Motion != nil && m.Hardware.Motion.MotionDetected()
	edge := motion && !m.lastMotion
	m.lastMotion = motion
	if !edge {
		m.Clock.Sleep(m.ArmedPollInterval)
		return
	}
	m.startScanning()
}

func (m *Machine) startScanning() {
	m.Log.Print("motion detected")
	now := m.Clock.Now()
	m.failedAttempts = 0
	m.session = &Session{Start: now}
	m.scanDeadline = now.Add(m.ScanWindow)
	m.setMode(Scanning)
	m.showMode()
	m.illuminate(true)
	m.emit(EventDetection, StatusMotionDetected)
}

func (m *Machine) stepScanning() {
	if !m.Clock.Now().Before(m.scanDeadline) {
		m.scanTimedOut()
		return
	}
	if err := m.Sensor.CaptureImage(); err != nil {
		if !fpsensor.IsNoFinger(err) {
			m.Log.Printf("capture failed: %v", err)
		}
		m.Clock.Sleep(m.ScanPollInterval)
		return
	}
	match, err := m.identify()
	if err != nil {
		m.rejectScan(err)
		return
	}
	m.Log.Printf("access granted: template %d, score %d", match.ID, match.Score)
	m.session.Outcome = OutcomeGranted
	m.show("ACCESS GRANTED", "Welcome Master")
	m.emit(EventAccess, StatusAccessGranted)
	m.unlock()
	m.endSession()
}

func (m *Machine) identify() (fpsensor.Match, error) {
	if err := m.Sensor.ImageToTemplate(m.ScanSlot); err != nil {
		return fpsensor.Match{}, err
	}
	return m.Sensor.Search()
}

func (m *Machine) rejectScan(cause error) {
	m.failedAttempts++
	m.session.FailedAttempts = m.failedAttempts
	m.session.Outcome = OutcomeDenied
	m.Log.Printf("access denied (%d/%d): %v", m.failedAttempts, m.MaxFailedAttempts, cause)
	// the miss that reaches the limit is reported as the lockout only
	if m.failedAttempts >= m.MaxFailedAttempts {
		m.enterLockout()
		return
	}
	m.emit(EventAccess, StatusAccessDenied)
	m.show("ACCESS DENIED", "Unknown Finger")
	m.setSwitch(m.Hardware.Alarm, true)
	m.Clock.Sleep(m.DeniedFlash)
	m.setSwitch(m.Hardware.Alarm, false)
	m.showMode()
	m.Clock.Sleep(m.ScanPollInterval)
}

func (m *Machine) scanTimedOut() {
	m.Log.Print("scan window elapsed")
	m.session.Outcome = OutcomeTimedOut
	m.show("TIMEOUT", "System Locked")
	m.emit(EventAccess, StatusScanTimeout)
	m.Clock.Sleep(m.TimeoutHold)
	m.endSession()
}

// endSession darkens the sensor and re-arms.
func (m *Machine) endSession() {
	m.closeSession()
	m.illuminate(false)
	m.arm()
}

func (m *Machine) closeSession() {
	if m.session == nil {
		return
	}
	m.session.End = m.Clock.Now()
	m.Log.Printf("session closed: %s after %d failed attempts", m.session.Outcome, m.session.FailedAttempts)
	m.session = nil
}

func (m *Machine) unlock() {
	m.setSwitch(m.Hardware.Lock, true)
	m.emit(EventDoorStatus, StatusUnlocked)
	m.Clock.Sleep(m.UnlockHold)
	m.setSwitch(m.Hardware.Lock, false)
	m.emit(EventDoorStatus, StatusLocked)
}

// enterLockout is only reached from a scan; the sensor goes dark before the
// mode changes so no sensor command is ever issued while locked out.
func (m *Machine) enterLockout() {
	m.illuminate(false)
	m.session.Outcome = OutcomeLockedOut
	m.closeSession()
	m.lockoutUntil = m.Clock.Now().Add(m.LockoutDuration)
	m.pulseOn = false
	m.setMode(Lockout)
	m.showMode()
	m.emit(EventAccess, StatusLimitOverpassed)
}

func (m *Machine) stepLockout() {
	now := m.Clock.Now()
	if !now.Before(m.lockoutUntil) {
		m.pulse(false)
		m.failedAttempts = 0
		m.Log.Print("lockout expired")
		m.emit(EventAccess, StatusLockoutExpired)
		m.arm()
		return
	}
	m.pulse(!m.pulseOn)
	wait := m.LockoutToggle
	if left := m.lockoutUntil.Sub(now); left < wait {
		wait = left
	}
	m.Clock.Sleep(wait)
}

func (m *Machine) stepPanic() {
	m.pulse(!m.pulseOn)
	m.Clock.Sleep(m.PanicPulse)
}

func (m *Machine) pulse(on bool) {
	m.pulseOn = on
	m.setSwitch(m.Hardware.Alarm, on)
	m.setSwitch(m.Hardware.Buzzer, on)
}

func (m *Machine) pollCommands() {
	if m.Commands == nil {
		return
	}
	v := remotecmd.Validator{Window: m.CommandWindow}
	for i := 0; i < maxCommandsPerStep; i++ {
		raw, ok := m.Commands.PollCommand()
		if !ok {
			return
		}
		cmd, err := v.Validate(raw, m.Clock.Now())
		if err != nil {
			m.Log.Printf("remote command dropped: %v", err)
			continue
		}
		m.handleCommand(cmd)
	}
}

func (m *Machine) handleCommand(cmd remotecmd.Command) {
	m.Log.Printf("remote command %q issued %s", cmd.Name, cmd.IssuedAt.Format(time.RFC3339))
	switch cmd.Kind {
	case remotecmd.KindOpenDoor:
		m.remoteOpen()
	case remotecmd.KindAlarmOn:
		m.enterPanic()
	case remotecmd.KindAlarmOff:
		m.exitPanic()
	default:
		m.Log.Printf("ignoring unknown remote command %q", cmd.Name)
	}
}

// remoteOpen runs the unlock sequence without a fingerprint. A running scan
// ends as granted; lockout and panic stay in force.
func (m *Machine) remoteOpen() {
	if m.mode != Armed && m.mode != Scanning && m.mode != Lockout && m.mode != Panic {
		m.Log.Printf("remote open ignored while %s", m.mode)
		return
	}
	m.show("ACCESS GRANTED", "Remote Open")
	m.emit(EventAccess, StatusRemoteOpen)
	m.unlock()
	if m.mode == Scanning {
		m.session.Outcome = OutcomeGranted
		m.endSession()
		return
	}
	m.showMode()
}

func (m *Machine) enterPanic() {
	switch m.mode {
	case Panic:
		return
	case Armed, Scanning, Lockout:
	default:
		m.Log.Printf("alarm ignored while %s", m.mode)
		return
	}
	if m.mode == Scanning {
		m.session.Outcome = OutcomeAborted
		m.closeSession()
		m.illuminate(false)
	}
	m.pulse(false)
	m.setMode(Panic)
	m.showMode()
	m.emit(EventAlarm, StatusPanicOn)
}

func (m *Machine) exitPanic() {
	if m.mode != Panic {
		m.Log.Printf("alarm off ignored while %s", m.mode)
		return
	}
	m.pulse(false)
	m.failedAttempts = 0
	m.emit(EventAlarm, StatusPanicOff)
	m.arm()
}

func (m *Machine) shutdown() {
	m.pulse(false)
	m.setSwitch(m.Hardware.Lock, false)
	if m.mode == Scanning {
		m.closeSession()
		m.illuminate(false)
	}
}

func (m *Machine) showMode() {
	switch m.mode {
	case Armed:
		m.show("SYSTEM ARMED", "Waiting for Motion")
	case Scanning:
		m.show("MOTION DETECTED", "Scan ID #1...")
	case Lockout:
		m.show("LIMIT OVERPASSED", "Locked Out")
	case Panic:
		m.show("!! ALARM !!", "Panic Mode")
	}
}

func (m *Machine) show(line1, line2 string) {
	if m.Display != nil {
		m.Display.Show(line1, line2)
	}
}

// illuminate failures do not affect access decisions.
func (m *Machine) illuminate(on bool) {
	if err := m.Sensor.Illuminate(on); err != nil {
		m.Log.Printf("sensor light %v: %v", on, err)
	}
}

func (m *Machine) setSwitch(s Switch, on bool) {
	if s == nil {
		return
	}
	if err := s.Set(on); err != nil {
		m.Log.Printf("output %v: %v", on, err)
	}
}

func (m *Machine) emit(kind EventKind, status string) {
	if m.Events == nil {
		return
	}
	if err := m.Events.Emit(Event{Kind: kind, Status: status, Time: m.Clock.Now()}); err != nil {
		m.Log.Printf("telemetry %s %q dropped: %v", kind, status, err)
	}
}
