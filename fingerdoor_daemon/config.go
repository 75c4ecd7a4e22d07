package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/realraum/fingerdoor/fpsensor"
)

const (
	DEFAULT_FINGERDOOR_MQTT_BROKER           string = "ssl://mqtt.realraum.at:8883"
	DEFAULT_FINGERDOOR_DEVICE_ID             string = "frontdoor"
	DEFAULT_FINGERDOOR_TLS_CA                string = "/etc/fingerdoor/ca.pem"
	DEFAULT_FINGERDOOR_TLS_CERT              string = "/etc/fingerdoor/client.pem"
	DEFAULT_FINGERDOOR_TLS_KEY               string = "/etc/fingerdoor/client.key"
	DEFAULT_FINGERDOOR_SENSOR_TTY            string = "/dev/ttyS2"
	DEFAULT_FINGERDOOR_SENSOR_DRIVER         string = "sio"
	DEFAULT_FINGERDOOR_SENSOR_PASSWORD       string = "00000000"
	DEFAULT_FINGERDOOR_SETUP_PASSWORD_BCRYPT string = ""
	DEFAULT_FINGERDOOR_GPIO_PIR              string = "GPIO17"
	DEFAULT_FINGERDOOR_GPIO_GREEN            string = "GPIO27"
	DEFAULT_FINGERDOOR_GPIO_RED              string = "GPIO22"
	DEFAULT_FINGERDOOR_GPIO_BUZZER           string = "GPIO23"
	DEFAULT_FINGERDOOR_GPIO_SETUP_BUTTON     string = "GPIO24"
	DEFAULT_FINGERDOOR_STATUS_HTTP_INTERFACE string = "localhost:8089"
	DEFAULT_FINGERDOOR_ENVFILE               string = "/etc/fingerdoor.env"
	DEFAULT_FINGERDOOR_SYSLOG_FACILITY       string = "local2"
)

func EnvironOrDefault(envvarname, defvalue string) string {
	if len(os.Getenv(envvarname)) > 0 {
		return os.Getenv(envvarname)
	} else {
		return defvalue
	}
}

// LoadEnvFile adds the variables of an env file to the environment without
// overriding what is already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		Debug_.Printf("no env file at %s", path)
		return nil
	}
	return err
}

type DaemonConfig struct {
	Broker       string
	DeviceID     string
	TLSCA        string
	TLSCert      string
	TLSKey       string
	SensorTTY    string
	SensorDriver string
	// sensor handshake password
	SensorPassword     uint32
	SetupPasswordHash  string
	PinPIR             string
	PinGreen           string
	PinRed             string
	PinBuzzer          string
	PinSetupButton     string
	StatusHTTPListenOn string
}

func LoadDaemonConfig() (DaemonConfig, error) {
	c := DaemonConfig{
		Broker:             EnvironOrDefault("FINGERDOOR_MQTT_BROKER", DEFAULT_FINGERDOOR_MQTT_BROKER),
		DeviceID:           EnvironOrDefault("FINGERDOOR_DEVICE_ID", DEFAULT_FINGERDOOR_DEVICE_ID),
		TLSCA:              EnvironOrDefault("FINGERDOOR_TLS_CA", DEFAULT_FINGERDOOR_TLS_CA),
		TLSCert:            EnvironOrDefault("FINGERDOOR_TLS_CERT", DEFAULT_FINGERDOOR_TLS_CERT),
		TLSKey:             EnvironOrDefault("FINGERDOOR_TLS_KEY", DEFAULT_FINGERDOOR_TLS_KEY),
		SensorTTY:          EnvironOrDefault("FINGERDOOR_SENSOR_TTY", DEFAULT_FINGERDOOR_SENSOR_TTY),
		SensorDriver:       EnvironOrDefault("FINGERDOOR_SENSOR_DRIVER", DEFAULT_FINGERDOOR_SENSOR_DRIVER),
		SetupPasswordHash:  EnvironOrDefault("FINGERDOOR_SETUP_PASSWORD_BCRYPT", DEFAULT_FINGERDOOR_SETUP_PASSWORD_BCRYPT),
		PinPIR:             EnvironOrDefault("FINGERDOOR_GPIO_PIR", DEFAULT_FINGERDOOR_GPIO_PIR),
		PinGreen:           EnvironOrDefault("FINGERDOOR_GPIO_GREEN", DEFAULT_FINGERDOOR_GPIO_GREEN),
		PinRed:             EnvironOrDefault("FINGERDOOR_GPIO_RED", DEFAULT_FINGERDOOR_GPIO_RED),
		PinBuzzer:          EnvironOrDefault("FINGERDOOR_GPIO_BUZZER", DEFAULT_FINGERDOOR_GPIO_BUZZER),
		PinSetupButton:     EnvironOrDefault("FINGERDOOR_GPIO_SETUP_BUTTON", DEFAULT_FINGERDOOR_GPIO_SETUP_BUTTON),
		StatusHTTPListenOn: EnvironOrDefault("FINGERDOOR_STATUS_HTTP_INTERFACE", DEFAULT_FINGERDOOR_STATUS_HTTP_INTERFACE),
	}
	pw, err := fpsensor.ParsePassword(EnvironOrDefault("FINGERDOOR_SENSOR_PASSWORD", DEFAULT_FINGERDOOR_SENSOR_PASSWORD))
	if err != nil {
		return c, err
	}
	c.SensorPassword = pw
	if strings.ContainsAny(c.DeviceID, "/+#") {
		return c, fmt.Errorf("device id %q must not contain MQTT wildcards or separators", c.DeviceID)
	}
	return c, nil
}
