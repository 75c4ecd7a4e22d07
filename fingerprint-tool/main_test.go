package main

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/realraum/fingerdoor/accessctl"
	"github.com/realraum/fingerdoor/clock"
	"github.com/realraum/fingerdoor/fpsensor"
)

type fakeSensor struct {
	ops     []string
	fingers []bool
	stored  []uint16
	lit     bool
	failOp  string
}

func (s *fakeSensor) do(op string) error {
	s.ops = append(s.ops, op)
	if op == s.failOp {
		return &fpsensor.ConfirmationError{Op: op, Code: 0x01}
	}
	return nil
}

func (s *fakeSensor) VerifyPassword() error { return s.do("verify") }
func (s *fakeSensor) EraseAll() error       { return s.do("erase") }
func (s *fakeSensor) CombineTemplates() error {
	return s.do("combine")
}
func (s *fakeSensor) ImageToTemplate(slot byte) error { return s.do("convert") }

func (s *fakeSensor) CaptureImage() error {
	s.ops = append(s.ops, "capture")
	if len(s.fingers) == 0 || !s.fingers[0] {
		if len(s.fingers) > 0 {
			s.fingers = s.fingers[1:]
		}
		return &fpsensor.ConfirmationError{Op: "capture_image", Code: fpsensor.ConfirmNoFinger}
	}
	s.fingers = s.fingers[1:]
	return nil
}

func (s *fakeSensor) Search() (fpsensor.Match, error) {
	if err := s.do("search"); err != nil {
		return fpsensor.Match{}, err
	}
	return fpsensor.Match{ID: 1, Score: 77}, nil
}

func (s *fakeSensor) StoreTemplate(slot byte, id uint16) error {
	if err := s.do("store"); err != nil {
		return err
	}
	s.stored = append(s.stored, id)
	return nil
}

func (s *fakeSensor) Illuminate(on bool) error {
	s.lit = on
	return s.do("led")
}

func newTestTool(s *fakeSensor, input string) (*tool, *bytes.Buffer) {
	var out bytes.Buffer
	return &tool{
		sensor:  s,
		clock:   clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		out:     &out,
		in:      bufio.NewReader(strings.NewReader(input)),
		timeout: 10 * time.Second,
	}, &out
}

func TestUsage(t *testing.T) {
	tl, _ := newTestTool(&fakeSensor{}, "")
	for _, args := range [][]string{nil, {"frobnicate"}, {"led"}, {"led", "blue"}} {
		if err := tl.run(args); !errors.Is(err, errUsage) {
			t.Errorf("run(%q) = %v", args, err)
		}
	}
}

func TestLedAndVerify(t *testing.T) {
	s := &fakeSensor{}
	tl, out := newTestTool(s, "")
	if err := tl.run([]string{"led", "on"}); err != nil || !s.lit {
		t.Fatalf("led on: %v, lit %v", err, s.lit)
	}
	if err := tl.run([]string{"verify"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "password ok") {
		t.Fatalf("output %q", out.String())
	}
	s.failOp = "verify"
	if err := tl.run([]string{"verify"}); !errors.Is(err, fpsensor.ErrSensorFailure) {
		t.Fatalf("failed verify returned %v", err)
	}
}

func TestSearchPrintsMatch(t *testing.T) {
	s := &fakeSensor{fingers: []bool{false, false, true}}
	tl, out := newTestTool(s, "")
	if err := tl.run([]string{"search"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "template 1, score 77") {
		t.Fatalf("output %q", out.String())
	}
	if s.lit {
		t.Fatal("sensor left lit")
	}
}

func TestSearchTimeout(t *testing.T) {
	tl, _ := newTestTool(&fakeSensor{}, "")
	if err := tl.run([]string{"search"}); !errors.Is(err, accessctl.ErrCaptureTimeout) {
		t.Fatalf("got %v", err)
	}
}

func TestEnrollCustomID(t *testing.T) {
	s := &fakeSensor{fingers: []bool{true, false, true}}
	tl, _ := newTestTool(s, "")
	if err := tl.run([]string{"enroll", "7"}); err != nil {
		t.Fatal(err)
	}
	if len(s.stored) != 1 || s.stored[0] != 7 {
		t.Fatalf("stored %v", s.stored)
	}
	if err := tl.run([]string{"enroll", "seven"}); err == nil {
		t.Fatal("bad id accepted")
	}
}

func TestShell(t *testing.T) {
	s := &fakeSensor{}
	tl, out := newTestTool(s, "verify\n\nled off\nbogus\nerase\n")
	if err := tl.run([]string{"shell"}); err != nil {
		t.Fatal(err)
	}
	oks := 0
	for _, line := range strings.Split(out.String(), "\n") {
		if line == "ok" {
			oks++
		}
	}
	if oks != 3 {
		t.Fatalf("%d ok lines in %q", oks, out.String())
	}
	if !strings.Contains(out.String(), "ERROR:") {
		t.Fatalf("bogus command not reported: %q", out.String())
	}
}

func TestHashPassword(t *testing.T) {
	tl, out := newTestTool(&fakeSensor{}, "aaaaaa\n")
	if err := tl.run([]string{"hashpw"}); err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSpace(out.String())
	hash := strings.TrimSuffix(strings.TrimPrefix(line, "FINGERDOOR_SETUP_PASSWORD_BCRYPT='"), "'")
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("aaaaaa")) != nil {
		t.Fatalf("hash %q does not match", hash)
	}
}

func TestSearchWarnsWhenLightFails(t *testing.T) {
	s := &fakeSensor{fingers: []bool{true}, failOp: "led"}
	tl, out := newTestTool(s, "")
	if err := tl.run([]string{"search"}); err != nil {
		t.Fatal(err)
	}
	if strings.Count(out.String(), "WARNING: sensor light:") != 2 {
		t.Fatalf("output %q", out.String())
	}
	if !strings.Contains(out.String(), "template 1, score 77") {
		t.Fatalf("output %q", out.String())
	}
}
