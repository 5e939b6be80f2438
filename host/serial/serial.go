package serial

import (
	"io"
	"runtime"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - In-memory pipes (for testing)
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (the instrument firmware runs at 115200)
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultBaud is the baud rate the Pillar Puller firmware opens Serial with
const DefaultBaud = 115200

// DefaultDevice returns the usual device name for the current platform
func DefaultDevice() string {
	if runtime.GOOS == "windows" {
		return "COM3"
	}
	return "/dev/ttyACM0"
}

// DefaultConfig returns a default configuration for the instrument
func DefaultConfig(device string) *Config {
	if device == "" {
		device = DefaultDevice()
	}
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100, // 100ms read timeout so Close can interrupt reads
	}
}
