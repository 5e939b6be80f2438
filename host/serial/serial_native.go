package serial

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/tarm/serial"
)

// NativePort wraps the tarm/serial implementation
type NativePort struct {
	port   *serial.Port
	cfg    *Config
	closed atomic.Bool
}

// Open opens a native serial port
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	serialConfig := &serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	}

	port, err := serial.OpenPort(serialConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	return &NativePort{
		port: port,
		cfg:  cfg,
	}, nil
}

// Read reads data from the serial port.
// With a read timeout configured, tarm/serial reports an expired timeout
// as an empty read (io.EOF on posix); those are retried here so line
// scanners never see them, until the port is closed.
func (p *NativePort) Read(b []byte) (int, error) {
	for {
		if p.closed.Load() {
			return 0, io.EOF
		}

		n, err := p.port.Read(b)
		if n > 0 || len(b) == 0 {
			return n, nil
		}
		if err == nil || (err == io.EOF && p.cfg.ReadTimeout > 0) {
			continue
		}
		if p.closed.Load() {
			return 0, io.EOF
		}
		return 0, err
	}
}

// Write writes data to the serial port
func (p *NativePort) Write(b []byte) (int, error) {
	if p.closed.Load() {
		return 0, fmt.Errorf("serial port %s is closed", p.cfg.Device)
	}
	return p.port.Write(b)
}

// Close closes the serial port
func (p *NativePort) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Flush discards any data received but not yet read
func (p *NativePort) Flush() error {
	return p.port.Flush()
}
