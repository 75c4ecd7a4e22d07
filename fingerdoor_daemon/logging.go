package main

import (
	"fmt"
	"io"
	"log"
	"log/syslog"
	"os"
	"strings"
)

const syslog_tag = "fingerdoor"

var (
	Syslog_ *log.Logger
	Debug_  *log.Logger
)

func init() {
	Syslog_ = log.New(os.Stdout, "", log.LstdFlags)
	Debug_ = log.New(io.Discard, "", 0)
}

var syslog_facilities = map[string]syslog.Priority{
	"daemon": syslog.LOG_DAEMON,
	"auth":   syslog.LOG_AUTH,
	"local0": syslog.LOG_LOCAL0,
	"local1": syslog.LOG_LOCAL1,
	"local2": syslog.LOG_LOCAL2,
	"local3": syslog.LOG_LOCAL3,
	"local4": syslog.LOG_LOCAL4,
	"local5": syslog.LOG_LOCAL5,
	"local6": syslog.LOG_LOCAL6,
	"local7": syslog.LOG_LOCAL7,
}

func ParseSyslogFacility(name string) (syslog.Priority, error) {
	f, ok := syslog_facilities[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown syslog facility %q", name)
	}
	return f, nil
}

// LogEnableSyslog sends Syslog_ to the named facility at level info.
func LogEnableSyslog(facility string) error {
	f, err := ParseSyslogFacility(facility)
	if err != nil {
		return err
	}
	w, err := syslog.New(syslog.LOG_INFO|f, syslog_tag)
	if err != nil {
		return err
	}
	Syslog_ = log.New(w, "", 0)
	return nil
}

func LogEnableDebuglog() {
	Debug_ = log.New(os.Stderr, "DEBUG ", log.LstdFlags)
}
