package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDaemonConfigDefaults(t *testing.T) {
	t.Setenv("FINGERDOOR_DEVICE_ID", "")
	t.Setenv("FINGERDOOR_SENSOR_PASSWORD", "")
	c, err := LoadDaemonConfig()
	if err != nil {
		t.Fatal(err)
	}
	if c.DeviceID != DEFAULT_FINGERDOOR_DEVICE_ID || c.SensorDriver != DEFAULT_FINGERDOOR_SENSOR_DRIVER {
		t.Errorf("config %+v", c)
	}
}

func TestLoadDaemonConfigRejectsWildcardDevice(t *testing.T) {
	t.Setenv("FINGERDOOR_DEVICE_ID", "front/+")
	if _, err := LoadDaemonConfig(); err == nil {
		t.Fatal("device id with wildcard accepted")
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file: %v", err)
	}

	path := filepath.Join(t.TempDir(), "fingerdoor.env")
	content := "FINGERDOOR_SENSOR_TTY=/dev/ttyUSB7\nFINGERDOOR_DEVICE_ID=fromfile\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FINGERDOOR_SENSOR_TTY", "")
	os.Unsetenv("FINGERDOOR_SENSOR_TTY")
	t.Setenv("FINGERDOOR_DEVICE_ID", "fromenv")
	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	c, err := LoadDaemonConfig()
	if err != nil {
		t.Fatal(err)
	}
	if c.SensorTTY != "/dev/ttyUSB7" {
		t.Errorf("tty %q not taken from env file", c.SensorTTY)
	}
	if c.DeviceID != "fromenv" {
		t.Errorf("env file overrode the environment: %q", c.DeviceID)
	}
}
