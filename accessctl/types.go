// Package accessctl is the door's security state machine. It runs as one
// cooperative polling loop: every wait is a bounded Clock.Sleep, and inbound
// remote commands are drained at the start of every iteration, so a panic or
// open command can cut into a scan window or a lockout.
package accessctl

import (
	"time"

	"github.com/realraum/fingerdoor/fpsensor"
)

type Mode int

const (
	Booting Mode = iota
	Armed
	Scanning
	Lockout
	Panic
	Enrolling
)

func (m Mode) String() string {
	switch m {
	case Booting:
		return "booting"
	case Armed:
		return "armed"
	case Scanning:
		return "scanning"
	case Lockout:
		return "lockout"
	case Panic:
		return "panic"
	case Enrolling:
		return "enrolling"
	default:
		return "invalid"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeGranted
	OutcomeDenied
	OutcomeLockedOut
	OutcomeTimedOut
	// scan cut short by a panic command
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeGranted:
		return "granted"
	case OutcomeDenied:
		return "denied"
	case OutcomeLockedOut:
		return "locked_out"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeAborted:
		return "aborted"
	default:
		return "invalid"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Session is one detection episode, from the motion edge until the scan
// window closes or a terminal outcome is reached.
type Session struct {
	Start          time.Time `json:"start"`
	End            time.Time `json:"end,omitempty"`
	FailedAttempts int       `json:"failed_attempts"`
	Outcome        Outcome   `json:"outcome"`
}

type EventKind int

const (
	EventDetection EventKind = iota
	EventAccess
	EventDoorStatus
	EventAlarm
)

func (k EventKind) String() string {
	switch k {
	case EventDetection:
		return "detection"
	case EventAccess:
		return "access"
	case EventDoorStatus:
		return "doorstatus"
	case EventAlarm:
		return "alarm"
	default:
		return "invalid"
	}
}

const (
	StatusMotionDetected  = "Motion Detected"
	StatusAccessGranted   = "Access Granted"
	StatusRemoteOpen      = "Remote Open"
	StatusAccessDenied    = "Access Denied"
	StatusScanTimeout     = "Scan Timeout"
	StatusLimitOverpassed = "Limit Overpassed"
	StatusLockoutExpired  = "Lockout Expired"
	StatusUnlocked        = "Unlocked"
	StatusLocked          = "Locked"
	StatusPanicOn         = "Panic On"
	StatusPanicOff        = "Panic Off"
)

type Event struct {
	Kind   EventKind
	Status string
	Time   time.Time
}

// Scanner is the subset of the sensor instruction set the controller uses.
// *fpsensor.Sensor implements it.
type Scanner interface {
	CaptureImage() error
	ImageToTemplate(slot byte) error
	Search() (fpsensor.Match, error)
	CombineTemplates() error
	StoreTemplate(slot byte, id uint16) error
	EraseAll() error
	Illuminate(on bool) error
}

type MotionSensor interface {
	MotionDetected() bool
}

// Switch drives one digital output: LED, buzzer or door strike.
type Switch interface {
	Set(on bool) error
}

type Display interface {
	Show(line1, line2 string)
}

// EventSink receives telemetry. Errors are logged and the event is dropped.
type EventSink interface {
	Emit(Event) error
}

// CommandSource hands out raw inbound command payloads without blocking.
type CommandSource interface {
	PollCommand() ([]byte, bool)
}

type Button interface {
	Pressed() bool
}

type PasswordPrompt interface {
	ReadPassword() (string, error)
}

type PasswordChecker interface {
	CheckPassword(password string) bool
}

type Hardware struct {
	Motion MotionSensor
	// on = unlocked; the green LED on the original board
	Lock   Switch
	Alarm  Switch
	Buzzer Switch
}
