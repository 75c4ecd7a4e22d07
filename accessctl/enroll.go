package accessctl

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/realraum/fingerdoor/clock"
)

var (
	ErrCaptureTimeout = errors.New("accessctl: no finger placed in time")
	ErrRemoveTimeout  = errors.New("accessctl: finger not removed in time")
)

// Enroller records one fingerprint from two captures and stores it in a
// single library slot. Nothing is written to the sensor library unless both
// captures and the combine step succeed.
type Enroller struct {
	Sensor  Scanner
	Display Display
	// blinks on success, may be nil
	Indicator Switch
	Clock     clock.Clock
	Log       *log.Logger

	CaptureTimeout time.Duration
	RemoveTimeout  time.Duration
	SettleDelay    time.Duration
	PollInterval   time.Duration
	TemplateID     uint16
}

func NewEnroller(sensor Scanner, display Display) *Enroller {
	return &Enroller{
		Sensor:         sensor,
		Display:        display,
		Clock:          clock.System,
		Log:            log.New(io.Discard, "", 0),
		CaptureTimeout: 10 * time.Second,
		RemoveTimeout:  5 * time.Second,
		SettleDelay:    2 * time.Second,
		PollInterval:   10 * time.Millisecond,
		TemplateID:     1,
	}
}

func (e *Enroller) Enroll() error {
	e.Log.Print("starting enrollment")
	e.show("SETUP MODE", "Place New Finger")
	if err := e.waitFinger(); err != nil {
		e.show("Timeout", "Try Again")
		return err
	}
	if err := e.Sensor.ImageToTemplate(1); err != nil {
		e.show("Error", "Bad Image")
		return fmt.Errorf("first image: %w", err)
	}

	e.show("Remove Finger", "...")
	if err := e.waitRemoved(); err != nil {
		e.show("Timeout", "Remove Finger")
		return err
	}
	e.Clock.Sleep(e.SettleDelay)

	e.show("Place Same", "Finger Again")
	if err := e.waitFinger(); err != nil {
		e.show("Timeout", "Try Again")
		return err
	}
	if err := e.Sensor.ImageToTemplate(2); err != nil {
		e.show("Error", "Bad Image")
		return fmt.Errorf("second image: %w", err)
	}

	if err := e.Sensor.CombineTemplates(); err != nil {
		e.show("Error", "No Match")
		return fmt.Errorf("combine: %w", err)
	}
	if err := e.Sensor.StoreTemplate(1, e.TemplateID); err != nil {
		e.show("Error", "Save Failed")
		return fmt.Errorf("store: %w", err)
	}
	e.show("SUCCESS!", fmt.Sprintf("ID #%d Saved", e.TemplateID))
	e.Log.Printf("fingerprint stored as template %d", e.TemplateID)
	e.blink(3)
	return nil
}

func (e *Enroller) waitFinger() error {
	start := e.Clock.Now()
	for e.Sensor.CaptureImage() != nil {
		if e.Clock.Now().Sub(start) > e.CaptureTimeout {
			return ErrCaptureTimeout
		}
		e.Clock.Sleep(e.PollInterval)
	}
	return nil
}

// waitRemoved treats any failed capture as an empty sensor.
func (e *Enroller) waitRemoved() error {
	start := e.Clock.Now()
	for e.Sensor.CaptureImage() == nil {
		if e.Clock.Now().Sub(start) > e.RemoveTimeout {
			return ErrRemoveTimeout
		}
		e.Clock.Sleep(e.PollInterval)
	}
	return nil
}

func (e *Enroller) blink(n int) {
	if e.Indicator == nil {
		return
	}
	for i := 0; i < n; i++ {
		for _, on := range []bool{true, false} {
			if err := e.Indicator.Set(on); err != nil {
				e.Log.Printf("success indicator %v: %v", on, err)
			}
			e.Clock.Sleep(20 * time.Millisecond)
		}
	}
}

func (e *Enroller) show(line1, line2 string) {
	if e.Display != nil {
		e.Display.Show(line1, line2)
	}
}
