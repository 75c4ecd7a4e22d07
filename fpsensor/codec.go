package fpsensor

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/realraum/fingerdoor/clock"
)

const (
	DefaultTimeout      = 2000 * time.Millisecond
	DefaultPollInterval = 2 * time.Millisecond
)

// Port is a byte stream that can tell how much received data is waiting.
// Reads of up to Buffered() bytes must not block.
type Port interface {
	io.ReadWriter
	Buffered() int
}

// Codec exchanges packets over a Port by polling. It never blocks longer than
// Timeout per Receive and does all waiting through Clock.Sleep so the caller's
// loop stays single threaded.
type Codec struct {
	Port         Port
	Address      uint32
	Timeout      time.Duration
	PollInterval time.Duration
	Clock        clock.Clock
}

func NewCodec(port Port) *Codec {
	return &Codec{
		Port:         port,
		Address:      DefaultAddress,
		Timeout:      DefaultTimeout,
		PollInterval: DefaultPollInterval,
		Clock:        clock.System,
	}
}

// Drain discards every byte already received, returning how many were dropped.
func (c *Codec) Drain() int {
	dropped := 0
	buf := make([]byte, 64)
	for n := c.Port.Buffered(); n > 0; n = c.Port.Buffered() {
		if n > len(buf) {
			n = len(buf)
		}
		read, err := c.Port.Read(buf[:n])
		dropped += read
		if err != nil || read == 0 {
			break
		}
	}
	if f, ok := c.Port.(inputFlusher); ok {
		f.FlushInput()
	}
	return dropped
}

// implemented by ports that can also discard the driver's receive queue
type inputFlusher interface {
	FlushInput() error
}

// Send drains stale input and writes one command packet.
func (c *Codec) Send(cmd byte, payload []byte) error {
	c.Drain()
	packet, err := Encode(c.Address, cmd, payload)
	if err != nil {
		return err
	}
	if _, err := c.Port.Write(packet); err != nil {
		return fmt.Errorf("fpsensor: write command 0x%02x: %w", cmd, err)
	}
	return nil
}

// Receive waits for one reply packet. The header and the body share a single
// deadline of Timeout measured from the call. On a bad magic or a foreign
// address everything buffered is discarded before ErrMalformed is returned,
// so the next exchange starts on a packet boundary.
func (c *Codec) Receive() (Frame, error) {
	start := c.Clock.Now()
	if err := c.waitFor(HeaderSize, start); err != nil {
		return Frame{}, err
	}
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(c.Port, header); err != nil {
		return Frame{}, fmt.Errorf("fpsensor: read header: %w", err)
	}
	if binary.BigEndian.Uint16(header[0:2]) != Magic {
		c.Drain()
		return Frame{}, fmt.Errorf("%w: bad magic %02x%02x", ErrMalformed, header[0], header[1])
	}
	f := Frame{
		Address: binary.BigEndian.Uint32(header[2:6]),
		Type:    PacketType(header[6]),
	}
	if f.Address != c.Address {
		c.Drain()
		return Frame{}, fmt.Errorf("%w: address %08x, expected %08x", ErrMalformed, f.Address, c.Address)
	}
	length := binary.BigEndian.Uint16(header[7:9])
	if length < MinLength {
		c.Drain()
		return Frame{}, fmt.Errorf("%w: length field %d", ErrMalformed, length)
	}
	if err := c.waitFor(int(length), start); err != nil {
		return Frame{}, err
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(c.Port, body); err != nil {
		return Frame{}, fmt.Errorf("fpsensor: read body: %w", err)
	}
	return parseBody(f, length, body)
}

// Exchange sends a command and waits for its reply.
func (c *Codec) Exchange(cmd byte, payload []byte) (Frame, error) {
	if err := c.Send(cmd, payload); err != nil {
		return Frame{}, err
	}
	return c.Receive()
}

func (c *Codec) waitFor(n int, start time.Time) error {
	for c.Port.Buffered() < n {
		if c.Clock.Now().Sub(start) > c.Timeout {
			return ErrTimeout
		}
		c.Clock.Sleep(c.PollInterval)
	}
	return nil
}
