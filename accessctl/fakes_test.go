package accessctl

import (
	"time"

	"github.com/realraum/fingerdoor/clock"
	"github.com/realraum/fingerdoor/fpsensor"
	"github.com/realraum/fingerdoor/remotecmd"
)

type sensorCall struct {
	op   string
	mode Mode
}

// fakeScanner answers capture from a script of finger presence, falling back
// to Finger once the script is used up.
type fakeScanner struct {
	machine    *Machine
	calls      []sensorCall
	fingers    []bool
	Finger     bool
	Match      bool
	ConvertErr error
	CombineErr error
	StoreErr   error
	stored     []uint16
}

func (s *fakeScanner) record(op string) {
	mode := Booting
	if s.machine != nil {
		mode = s.machine.Mode()
	}
	s.calls = append(s.calls, sensorCall{op, mode})
}

func (s *fakeScanner) count(op string) int {
	n := 0
	for _, c := range s.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

func (s *fakeScanner) CaptureImage() error {
	s.record("capture")
	finger := s.Finger
	if len(s.fingers) > 0 {
		finger = s.fingers[0]
		s.fingers = s.fingers[1:]
	}
	if !finger {
		return &fpsensor.ConfirmationError{Op: "capture_image", Code: fpsensor.ConfirmNoFinger}
	}
	return nil
}

func (s *fakeScanner) ImageToTemplate(slot byte) error {
	s.record("convert")
	return s.ConvertErr
}

func (s *fakeScanner) Search() (fpsensor.Match, error) {
	s.record("search")
	if !s.Match {
		return fpsensor.Match{}, &fpsensor.ConfirmationError{Op: "search", Code: fpsensor.ConfirmNotFound}
	}
	return fpsensor.Match{ID: 1, Score: 120}, nil
}

func (s *fakeScanner) CombineTemplates() error {
	s.record("combine")
	return s.CombineErr
}

func (s *fakeScanner) StoreTemplate(slot byte, id uint16) error {
	s.record("store")
	if s.StoreErr == nil {
		s.stored = append(s.stored, id)
	}
	return s.StoreErr
}

func (s *fakeScanner) EraseAll() error {
	s.record("erase")
	return nil
}

func (s *fakeScanner) Illuminate(on bool) error {
	if on {
		s.record("light_on")
	} else {
		s.record("light_off")
	}
	return nil
}

type switchChange struct {
	on bool
	at time.Time
}

type fakeSwitch struct {
	clk     *clock.Fake
	on      bool
	changes []switchChange
}

func (s *fakeSwitch) Set(on bool) error {
	if on != s.on {
		s.changes = append(s.changes, switchChange{on, s.clk.Now()})
	}
	s.on = on
	return nil
}

type fakeMotion struct{ present bool }

func (f *fakeMotion) MotionDetected() bool { return f.present }

type fakeDisplay struct{ line1, line2 string }

func (d *fakeDisplay) Show(line1, line2 string) { d.line1, d.line2 = line1, line2 }

type fakeEvents struct{ events []Event }

func (e *fakeEvents) Emit(ev Event) error {
	e.events = append(e.events, ev)
	return nil
}

func (e *fakeEvents) count(status string) int {
	n := 0
	for _, ev := range e.events {
		if ev.Status == status {
			n++
		}
	}
	return n
}

type fakeCommands struct{ queue [][]byte }

func (c *fakeCommands) PollCommand() ([]byte, bool) {
	if len(c.queue) == 0 {
		return nil, false
	}
	raw := c.queue[0]
	c.queue = c.queue[1:]
	return raw, true
}

type rig struct {
	m       *Machine
	clk     *clock.Fake
	scanner *fakeScanner
	motion  *fakeMotion
	lock    *fakeSwitch
	alarm   *fakeSwitch
	buzzer  *fakeSwitch
	display *fakeDisplay
	events  *fakeEvents
	cmds    *fakeCommands
}

var rigStart = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func newRig() *rig {
	clk := clock.NewFake(rigStart)
	r := &rig{
		clk:     clk,
		scanner: &fakeScanner{},
		motion:  &fakeMotion{},
		lock:    &fakeSwitch{clk: clk},
		alarm:   &fakeSwitch{clk: clk},
		buzzer:  &fakeSwitch{clk: clk},
		display: &fakeDisplay{},
		events:  &fakeEvents{},
		cmds:    &fakeCommands{},
	}
	hw := Hardware{Motion: r.motion, Lock: r.lock, Alarm: r.alarm, Buzzer: r.buzzer}
	r.m = NewMachine(r.scanner, hw, r.display, r.events, r.cmds)
	r.m.Clock = clk
	r.scanner.machine = r.m
	r.m.Arm()
	return r
}

func (r *rig) command(name string, age time.Duration) {
	r.cmds.queue = append(r.cmds.queue, remotecmd.Encode(name, r.clk.Now().Add(-age)))
}

// stepUntil steps until cond holds, failing after max iterations.
func (r *rig) stepUntil(cond func() bool, max int) bool {
	for i := 0; i < max; i++ {
		if cond() {
			return true
		}
		r.m.Step()
	}
	return cond()
}

func (r *rig) inMode(mode Mode) func() bool {
	return func() bool { return r.m.Mode() == mode }
}
