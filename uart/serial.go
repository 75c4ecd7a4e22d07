package uart

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// short read timeout so Close is noticed by the reader goroutine
const serialReadTimeout = 50 * time.Millisecond

// OpenSerial opens a port through go.bug.st/serial, which also works off
// Linux and can flush the kernel receive queue.
func OpenSerial(device string, baud uint) (*BufferedPort, error) {
	port, err := serial.Open(device, &serial.Mode{
		BaudRate: int(baud),
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("uart: open %s: %w", device, err)
	}
	if err := port.SetReadTimeout(serialReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("uart: set read timeout on %s: %w", device, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("uart: flush %s: %w", device, err)
	}
	p := NewBufferedPort(port)
	p.flush = port.ResetInputBuffer
	return p, nil
}
