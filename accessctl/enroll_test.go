package accessctl

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
)

func newTestEnroller(r *rig) *Enroller {
	e := r.m.NewEnroller()
	return e
}

func TestEnrollStoresTemplate(t *testing.T) {
	r := newRig()
	r.scanner.fingers = []bool{false, false, true, true, false, true}
	e := newTestEnroller(r)
	if err := e.Enroll(); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if len(r.scanner.stored) != 1 || r.scanner.stored[0] != 1 {
		t.Fatalf("stored %v", r.scanner.stored)
	}
	if r.scanner.count("convert") != 2 || r.scanner.count("combine") != 1 {
		t.Fatalf("calls %+v", r.scanner.calls)
	}
	if r.display.line1 != "SUCCESS!" || r.display.line2 != "ID #1 Saved" {
		t.Fatalf("display %q / %q", r.display.line1, r.display.line2)
	}
	if len(r.lock.changes) != 6 || r.lock.on {
		t.Fatalf("indicator changes %+v", r.lock.changes)
	}
}

type brokenSwitch struct{ calls int }

func (s *brokenSwitch) Set(on bool) error {
	s.calls++
	return errors.New("gpio write failed")
}

func TestEnrollLogsIndicatorFailure(t *testing.T) {
	r := newRig()
	r.scanner.fingers = []bool{true, false, true}
	var logbuf bytes.Buffer
	e := newTestEnroller(r)
	e.Log = log.New(&logbuf, "", 0)
	led := &brokenSwitch{}
	e.Indicator = led
	if err := e.Enroll(); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if led.calls != 6 {
		t.Fatalf("indicator set %d times", led.calls)
	}
	if strings.Count(logbuf.String(), "gpio write failed") != 6 {
		t.Fatalf("log %q", logbuf.String())
	}
}

func TestEnrollTimeoutStoresNothing(t *testing.T) {
	r := newRig()
	e := newTestEnroller(r)
	start := r.clk.Now()
	if err := e.Enroll(); !errors.Is(err, ErrCaptureTimeout) {
		t.Fatalf("Enroll returned %v", err)
	}
	if d := r.clk.Now().Sub(start); d < e.CaptureTimeout {
		t.Fatalf("gave up after %v", d)
	}
	if r.scanner.count("convert") != 0 || r.scanner.count("store") != 0 {
		t.Fatalf("calls %+v", r.scanner.calls)
	}
}

func TestEnrollFingerNeverRemoved(t *testing.T) {
	r := newRig()
	r.scanner.Finger = true
	e := newTestEnroller(r)
	if err := e.Enroll(); !errors.Is(err, ErrRemoveTimeout) {
		t.Fatalf("Enroll returned %v", err)
	}
	if r.scanner.count("convert") != 1 || r.scanner.count("store") != 0 {
		t.Fatalf("calls %+v", r.scanner.calls)
	}
}

func TestEnrollCombineFailureStoresNothing(t *testing.T) {
	r := newRig()
	r.scanner.fingers = []bool{true, false, true}
	r.scanner.CombineErr = errors.New("templates differ")
	e := newTestEnroller(r)
	if err := e.Enroll(); err == nil {
		t.Fatal("Enroll succeeded")
	}
	if r.scanner.count("store") != 0 {
		t.Fatal("partial template stored")
	}
	if r.display.line2 != "No Match" {
		t.Fatalf("display %q", r.display.line2)
	}
}
