package env

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const DefaultBaud = 9600

type Environment struct {
	SerialPort string
	Baud       int
	Profile    string
	DeviceID   string
	// URI and Exchange enable AMQP telemetry when both are set.
	URI      string
	Exchange string
}

// Telemetry reports whether events should be published to a broker.
func (e *Environment) Telemetry() bool {
	return e.URI != "" && e.Exchange != ""
}

// LoadEnv reads .env, if present, and the process environment. Empty
// variables count as unset. A malformed SERIAL_BAUD is fatal.
func LoadEnv(logger *zap.Logger) *Environment {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Fatal("Error loading .env file", zap.Error(err))
	}
	environ := &Environment{
		SerialPort: os.Getenv("SERIAL_PORT"),
		Baud:       DefaultBaud,
		Profile:    os.Getenv("GANTRY_PROFILE"),
		DeviceID:   "gantry",
		URI:        os.Getenv("RABBITMQ_URI"),
		Exchange:   os.Getenv("AMQP_EXCHANGE"),
	}
	if deviceID := os.Getenv("DEVICE_ID"); deviceID != "" {
		environ.DeviceID = deviceID
	}
	if baud := os.Getenv("SERIAL_BAUD"); baud != "" {
		baudInt, err := strconv.ParseInt(baud, 10, 64)
		if err != nil {
			logger.Fatal("Failed to parse baud", zap.Error(err))
		}
		environ.Baud = int(baudInt)
	}
	if environ.URI != "" && environ.Exchange == "" {
		logger.Warn("RABBITMQ_URI set without AMQP_EXCHANGE, telemetry disabled")
	}
	return environ
}
