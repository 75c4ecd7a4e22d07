package fpsensor

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout means no complete packet arrived within the receive window.
	ErrTimeout = errors.New("fpsensor: timed out waiting for reply")
	// ErrMalformed covers bad magic, foreign address, impossible length and
	// checksum mismatch.
	ErrMalformed = errors.New("fpsensor: malformed packet")
	// ErrSensorFailure matches every ConfirmationError.
	ErrSensorFailure   = errors.New("fpsensor: sensor reported failure")
	ErrPayloadTooLarge = errors.New("fpsensor: payload too large")
)

// Confirmation codes as documented for the R30x family.
const (
	ConfirmOK               byte = 0x00
	ConfirmPacketError      byte = 0x01
	ConfirmNoFinger         byte = 0x02
	ConfirmImageFail        byte = 0x03
	ConfirmImageMessy       byte = 0x06
	ConfirmFeatureFail      byte = 0x07
	ConfirmNoMatch          byte = 0x08
	ConfirmNotFound         byte = 0x09
	ConfirmEnrollMismatch   byte = 0x0A
	ConfirmBadLocation      byte = 0x0B
	ConfirmReadTemplate     byte = 0x0C
	ConfirmUploadTemplate   byte = 0x0D
	ConfirmPacketResponse   byte = 0x0E
	ConfirmUploadImage      byte = 0x0F
	ConfirmDeleteFail       byte = 0x10
	ConfirmClearFail        byte = 0x11
	ConfirmWrongPassword    byte = 0x13
	ConfirmInvalidImage     byte = 0x15
	ConfirmFlashError       byte = 0x18
	ConfirmUndefined        byte = 0x19
	ConfirmInvalidRegister  byte = 0x1A
	ConfirmBadConfiguration byte = 0x1B
	ConfirmBadNotepadPage   byte = 0x1C
	ConfirmPortFailure      byte = 0x1D
)

var confirmationText = map[byte]string{
	ConfirmPacketError:      "error receiving packet",
	ConfirmNoFinger:         "no finger on sensor",
	ConfirmImageFail:        "failed to capture image",
	ConfirmImageMessy:       "image too disordered",
	ConfirmFeatureFail:      "too few feature points",
	ConfirmNoMatch:          "finger does not match",
	ConfirmNotFound:         "no matching finger found",
	ConfirmEnrollMismatch:   "failed to combine character files",
	ConfirmBadLocation:      "template index out of range",
	ConfirmReadTemplate:     "error reading template",
	ConfirmUploadTemplate:   "error uploading template",
	ConfirmPacketResponse:   "cannot receive following packets",
	ConfirmUploadImage:      "error uploading image",
	ConfirmDeleteFail:       "failed to delete template",
	ConfirmClearFail:        "failed to clear library",
	ConfirmWrongPassword:    "wrong password",
	ConfirmInvalidImage:     "no valid primary image",
	ConfirmFlashError:       "error writing flash",
	ConfirmUndefined:        "undefined error",
	ConfirmInvalidRegister:  "invalid register number",
	ConfirmBadConfiguration: "incorrect register configuration",
	ConfirmBadNotepadPage:   "wrong notepad page number",
	ConfirmPortFailure:      "failed to operate communication port",
}

// ConfirmationError is a well-formed reply carrying a nonzero confirmation code.
type ConfirmationError struct {
	Op   string
	Code byte
}

func (e *ConfirmationError) Error() string {
	text, ok := confirmationText[e.Code]
	if !ok {
		text = "vendor specific failure"
	}
	return fmt.Sprintf("fpsensor: %s: confirmation 0x%02x (%s)", e.Op, e.Code, text)
}

func (e *ConfirmationError) Is(target error) bool {
	return target == ErrSensorFailure
}

// IsNoFinger reports whether err says the capture found no finger.
func IsNoFinger(err error) bool {
	var ce *ConfirmationError
	return errors.As(err, &ce) && ce.Code == ConfirmNoFinger
}
