// Package uart turns a blocking serial device into the polling byte source
// the sensor codec expects: a reader goroutine moves incoming bytes into a
// buffer whose fill level can be queried without blocking.
package uart

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

const (
	DefaultBaud = 57600
	// oldest bytes are dropped beyond this, nobody is reading anyway
	maxBuffered = 4096
)

const (
	DriverSio    = "sio"
	DriverSerial = "serial"
)

var ErrUnknownDriver = errors.New("uart: unknown driver")

type BufferedPort struct {
	rwc   io.ReadWriteCloser
	flush func() error

	mu   sync.Mutex
	buf  []byte
	err  error
	done chan struct{}
}

func NewBufferedPort(rwc io.ReadWriteCloser) *BufferedPort {
	p := &BufferedPort{rwc: rwc, done: make(chan struct{})}
	go p.pump()
	return p
}

func (p *BufferedPort) pump() {
	defer close(p.done)
	chunk := make([]byte, 256)
	for {
		n, err := p.rwc.Read(chunk)
		p.mu.Lock()
		if n > 0 {
			p.buf = append(p.buf, chunk[:n]...)
			if over := len(p.buf) - maxBuffered; over > 0 {
				p.buf = p.buf[over:]
			}
		}
		if err != nil {
			p.err = err
		}
		p.mu.Unlock()
		if err != nil {
			return
		}
	}
}

// Buffered is the number of bytes Read returns without waiting.
func (p *BufferedPort) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf)
}

// Read never blocks. It returns the reader's terminal error only once the
// buffer is empty.
func (p *BufferedPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.buf) == 0 {
		return 0, p.err
	}
	n := copy(b, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

func (p *BufferedPort) Write(b []byte) (int, error) {
	return p.rwc.Write(b)
}

// FlushInput discards buffered bytes and, where the driver supports it, the
// operating system's receive queue.
func (p *BufferedPort) FlushInput() error {
	p.mu.Lock()
	p.buf = p.buf[:0]
	p.mu.Unlock()
	if p.flush != nil {
		return p.flush()
	}
	return nil
}

// Err reports why the reader stopped, nil while the device is alive.
func (p *BufferedPort) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Done is closed when the reader goroutine has exited.
func (p *BufferedPort) Done() <-chan struct{} {
	return p.done
}

func (p *BufferedPort) Close() error {
	return p.rwc.Close()
}

// Open picks a driver by name.
func Open(driver, device string, baud uint) (*BufferedPort, error) {
	switch driver {
	case DriverSio, "":
		return OpenSio(device, baud)
	case DriverSerial:
		return OpenSerial(device, baud)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
