package uart

import (
	"fmt"
	"syscall"

	"github.com/schleibinger/sio"
)

var sioRates = map[uint]uint32{
	9600:   syscall.B9600,
	19200:  syscall.B19200,
	38400:  syscall.B38400,
	57600:  syscall.B57600,
	115200: syscall.B115200,
}

// OpenSio opens a tty in raw mode through schleibinger/sio.
func OpenSio(device string, baud uint) (*BufferedPort, error) {
	rate, ok := sioRates[baud]
	if !ok {
		return nil, fmt.Errorf("uart: unsupported baudrate %d", baud)
	}
	port, err := sio.Open(device, rate)
	if err != nil {
		return nil, fmt.Errorf("uart: open %s: %w", device, err)
	}
	return NewBufferedPort(port), nil
}
