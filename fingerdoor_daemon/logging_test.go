package main

import (
	"log/syslog"
	"testing"
)

func TestParseSyslogFacility(t *testing.T) {
	for name, want := range map[string]syslog.Priority{
		"local2":  syslog.LOG_LOCAL2,
		"LOCAL2":  syslog.LOG_LOCAL2,
		" daemon": syslog.LOG_DAEMON,
		"auth":    syslog.LOG_AUTH,
	} {
		got, err := ParseSyslogFacility(name)
		if err != nil || got != want {
			t.Errorf("ParseSyslogFacility(%q) = %d, %v", name, got, err)
		}
	}
	if syslog.LOG_LOCAL2 != 18<<3 {
		t.Errorf("local2 is %d", syslog.LOG_LOCAL2)
	}
	if _, err := ParseSyslogFacility("kern2"); err == nil {
		t.Error("unknown facility accepted")
	}
}
