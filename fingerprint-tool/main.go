package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/realraum/fingerdoor/accessctl"
	"github.com/realraum/fingerdoor/clock"
	"github.com/realraum/fingerdoor/fpsensor"
	"github.com/realraum/fingerdoor/uart"
)

var (
	sensortty_    string
	driver_       string
	password_     string
	scan_timeout_ time.Duration
)

const (
	DEFAULT_FINGERDOOR_SENSOR_TTY = "/dev/ttyS2"
	usage_commands                = "verify | erase | enroll [id] | search | led on|off | hashpw | shell"
)

func init() {
	flag.StringVar(&sensortty_, "tty", DEFAULT_FINGERDOOR_SENSOR_TTY, "fingerprint sensor tty device")
	flag.StringVar(&driver_, "driver", uart.DriverSio, "serial driver: sio or serial")
	flag.StringVar(&password_, "password", "00000000", "sensor handshake password (hex)")
	flag.DurationVar(&scan_timeout_, "timeout", 10*time.Second, "how long to wait for a finger")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] %s\n", os.Args[0], usage_commands)
		flag.PrintDefaults()
	}
}

var errUsage = errors.New("usage: " + usage_commands)

type toolSensor interface {
	accessctl.Scanner
	VerifyPassword() error
}

// printDisplay shows enrollment prompts on the terminal.
type printDisplay struct {
	out io.Writer
}

func (d printDisplay) Show(line1, line2 string) {
	fmt.Fprintf(d.out, "[ %s | %s ]\n", line1, line2)
}

type tool struct {
	sensor  toolSensor
	clock   clock.Clock
	out     io.Writer
	in      *bufio.Reader
	timeout time.Duration
}

func (t *tool) waitFinger() error {
	start := t.clock.Now()
	for {
		err := t.sensor.CaptureImage()
		if err == nil {
			return nil
		}
		if !fpsensor.IsNoFinger(err) {
			return err
		}
		if t.clock.Now().Sub(start) > t.timeout {
			return accessctl.ErrCaptureTimeout
		}
		t.clock.Sleep(10 * time.Millisecond)
	}
}

// light is best effort around a scan; a dark sensor still captures.
func (t *tool) light(on bool) {
	if err := t.sensor.Illuminate(on); err != nil {
		fmt.Fprintln(t.out, "WARNING: sensor light:", err)
	}
}

func (t *tool) run(args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "verify":
		if err := t.sensor.VerifyPassword(); err != nil {
			return err
		}
		fmt.Fprintln(t.out, "sensor password ok")
	case "erase":
		if err := t.sensor.EraseAll(); err != nil {
			return err
		}
		fmt.Fprintln(t.out, "template library erased")
	case "enroll":
		e := accessctl.NewEnroller(t.sensor, printDisplay{t.out})
		e.Clock = t.clock
		e.CaptureTimeout = t.timeout
		if len(args) > 1 {
			var id uint16
			if _, err := fmt.Sscan(args[1], &id); err != nil {
				return fmt.Errorf("template id %q: %w", args[1], err)
			}
			e.TemplateID = id
		}
		t.light(true)
		defer t.light(false)
		return e.Enroll()
	case "search":
		t.light(true)
		defer t.light(false)
		fmt.Fprintln(t.out, "place finger on the sensor")
		if err := t.waitFinger(); err != nil {
			return err
		}
		if err := t.sensor.ImageToTemplate(1); err != nil {
			return err
		}
		m, err := t.sensor.Search()
		if err != nil {
			return err
		}
		fmt.Fprintf(t.out, "match: template %d, score %d\n", m.ID, m.Score)
	case "led":
		if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
			return errUsage
		}
		return t.sensor.Illuminate(args[1] == "on")
	case "hashpw":
		line, err := t.in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimRight(line, "\r\n")), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		fmt.Fprintf(t.out, "FINGERDOOR_SETUP_PASSWORD_BCRYPT='%s'\n", hash)
	case "shell":
		return t.shell()
	default:
		return errUsage
	}
	return nil
}

// shell runs one command per input line until EOF.
func (t *tool) shell() error {
	linescanner := bufio.NewScanner(t.in)
	linescanner.Split(bufio.ScanLines)
	for linescanner.Scan() {
		text := strings.Fields(linescanner.Text())
		if len(text) == 0 {
			continue
		}
		if text[0] == "shell" || text[0] == "hashpw" {
			fmt.Fprintln(t.out, "ERROR:", text[0], "not available in shell")
			continue
		}
		if err := t.run(text); err != nil {
			fmt.Fprintln(t.out, "ERROR:", err)
		} else {
			fmt.Fprintln(t.out, "ok")
		}
	}
	return linescanner.Err()
}

func main() {
	flag.Parse()
	t := &tool{clock: clock.System, out: os.Stdout, in: bufio.NewReader(os.Stdin), timeout: scan_timeout_}
	args := flag.Args()
	if len(args) > 0 && args[0] == "hashpw" {
		if err := t.run(args); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	pw, err := fpsensor.ParsePassword(password_)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	port, err := uart.Open(driver_, sensortty_, uart.DefaultBaud)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	sensor := fpsensor.NewSensor(fpsensor.NewCodec(port))
	sensor.Password = pw
	t.sensor = sensor

	err = t.run(args)
	port.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}
