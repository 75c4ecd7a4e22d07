package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var ErrPromptTimeout = errors.New("no password entered in time")

// consolePrompt reads the setup password from the local console.
type consolePrompt struct {
	in      *bufio.Reader
	out     io.Writer
	timeout time.Duration
}

func newConsolePrompt(in io.Reader, out io.Writer) *consolePrompt {
	return &consolePrompt{in: bufio.NewReader(in), out: out, timeout: 60 * time.Second}
}

func (p *consolePrompt) ReadPassword() (string, error) {
	fmt.Fprintln(p.out, "--------------------------------")
	fmt.Fprintln(p.out, "--- ENTER SETUP PASSWORD ---")
	fmt.Fprintln(p.out, "--------------------------------")
	fmt.Fprint(p.out, "Password: ")

	type readresult struct {
		line string
		err  error
	}
	result_chan := make(chan readresult, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		result_chan <- readresult{line, err}
	}()
	select {
	case r := <-result_chan:
		if r.err != nil && !(errors.Is(r.err, io.EOF) && len(r.line) > 0) {
			return "", r.err
		}
		return strings.TrimRight(r.line, "\r\n"), nil
	case <-time.After(p.timeout):
		return "", ErrPromptTimeout
	}
}

// bcryptChecker compares against a bcrypt hash. An empty hash rejects every
// password so setup stays closed until one is configured.
type bcryptChecker struct {
	hash []byte
}

func newBcryptChecker(hash string) bcryptChecker {
	return bcryptChecker{hash: []byte(strings.TrimSpace(hash))}
}

func (c bcryptChecker) CheckPassword(password string) bool {
	if len(c.hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(c.hash, []byte(password)) == nil
}
