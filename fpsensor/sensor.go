package fpsensor

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Instruction codes.
const (
	CmdCaptureImage     byte = 0x01
	CmdImageToTemplate  byte = 0x02
	CmdSearch           byte = 0x04
	CmdCombineTemplates byte = 0x05
	CmdStoreTemplate    byte = 0x06
	CmdEraseAll         byte = 0x0D
	CmdVerifyPassword   byte = 0x13
	CmdIlluminate       byte = 0x50
)

// searchRange scans character buffer 1 against templates 0..0xA3.
var searchRange = []byte{0x01, 0x00, 0x00, 0x00, 0xA3}

// Match is the library slot a search hit and the sensor's confidence.
type Match struct {
	ID    uint16
	Score uint16
}

// Sensor wraps the instruction set. Every call is one Exchange; any error,
// timeout or nonzero confirmation alike, means the operation failed.
type Sensor struct {
	Codec    *Codec
	Password uint32
}

func NewSensor(codec *Codec) *Sensor {
	return &Sensor{Codec: codec}
}

func (s *Sensor) command(op string, code byte, args ...byte) (Frame, error) {
	reply, err := s.Codec.Exchange(code, args)
	if err != nil {
		return reply, fmt.Errorf("%s: %w", op, err)
	}
	if c := reply.Confirmation(); c != ConfirmOK {
		return reply, &ConfirmationError{Op: op, Code: c}
	}
	return reply, nil
}

// ParsePassword reads a handshake password given as hex, with or without 0x.
func ParsePassword(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("fpsensor: password %q: %w", s, err)
	}
	return uint32(v), nil
}

func (s *Sensor) VerifyPassword() error {
	pw := make([]byte, 4)
	binary.BigEndian.PutUint32(pw, s.Password)
	_, err := s.command("verify_password", CmdVerifyPassword, pw...)
	return err
}

// CaptureImage succeeds only with a finger on the glass and a usable image.
func (s *Sensor) CaptureImage() error {
	_, err := s.command("capture_image", CmdCaptureImage)
	return err
}

func (s *Sensor) ImageToTemplate(slot byte) error {
	_, err := s.command("image_to_template", CmdImageToTemplate, slot)
	return err
}

// Search looks up the template in buffer 1. Replies too short to carry the
// page id and score still count as a match with a zero Match.
func (s *Sensor) Search() (Match, error) {
	reply, err := s.command("search", CmdSearch, searchRange...)
	if err != nil {
		return Match{}, err
	}
	var m Match
	if len(reply.Content) >= 5 {
		m.ID = binary.BigEndian.Uint16(reply.Content[1:3])
		m.Score = binary.BigEndian.Uint16(reply.Content[3:5])
	}
	return m, nil
}

func (s *Sensor) CombineTemplates() error {
	_, err := s.command("combine_templates", CmdCombineTemplates)
	return err
}

func (s *Sensor) StoreTemplate(slot byte, id uint16) error {
	_, err := s.command("store_template", CmdStoreTemplate, slot, byte(id>>8), byte(id))
	return err
}

func (s *Sensor) EraseAll() error {
	_, err := s.command("erase_all", CmdEraseAll)
	return err
}

func (s *Sensor) Illuminate(on bool) error {
	var arg byte
	if on {
		arg = 1
	}
	_, err := s.command("illuminate", CmdIlluminate, arg)
	return err
}
