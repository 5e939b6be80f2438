// Package device manages the connection to a Pillar Puller instrument:
// it owns the serial link, runs the telemetry reader and issues motion
// commands.
package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"pillarpuller/host/serial"
	"pillarpuller/host/telemetry"
	"pillarpuller/protocol"
)

var (
	ErrNotConnected     = errors.New("not connected to device")
	ErrAlreadyConnected = errors.New("already connected to device")
)

// Device represents a connection to the instrument's microcontroller
type Device struct {
	buffer *telemetry.Buffer
	logger *slog.Logger

	// Connection state, guarded by mu
	mu        sync.Mutex
	port      io.ReadWriteCloser
	reader    *telemetry.Reader
	connected bool
	runErr    error
	done      chan struct{}
}

// New creates a new Device instance (not yet connected) that records
// into buffer
func New(buffer *telemetry.Buffer, logger *slog.Logger) *Device {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Device{
		buffer: buffer,
		logger: logger,
	}
}

// Connect connects to the instrument via serial port
func (d *Device) Connect(ctx context.Context, device string) error {
	return d.ConnectWithConfig(ctx, serial.DefaultConfig(device))
}

// ConnectWithConfig connects to the instrument with a custom serial config
func (d *Device) ConnectWithConfig(ctx context.Context, cfg *serial.Config) error {
	if d.IsConnected() {
		return ErrAlreadyConnected
	}

	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	if err := d.Attach(ctx, port); err != nil {
		port.Close()
		return err
	}

	d.logger.Info("connected to device", "port", cfg.Device, "baud", cfg.Baud)
	return nil
}

// Attach uses an already open link and starts reading telemetry from it.
// The device takes ownership of port and closes it on Close.
func (d *Device) Attach(ctx context.Context, port io.ReadWriteCloser) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return ErrAlreadyConnected
	}
	if d.port != nil {
		// Previous link whose reader already exited
		d.port.Close()
	}

	reader := telemetry.NewReader(port, d.buffer, d.logger)
	done := make(chan struct{})

	d.port = port
	d.reader = reader
	d.connected = true
	d.runErr = nil
	d.done = done
	d.buffer.SetLink(port)

	go d.readLoop(ctx, reader, done)

	return nil
}

// readLoop runs the telemetry reader and records how it ended
func (d *Device) readLoop(ctx context.Context, reader *telemetry.Reader, done chan struct{}) {
	err := reader.Run(ctx)

	d.mu.Lock()
	d.runErr = err
	d.connected = false
	d.mu.Unlock()

	if err != nil {
		d.logger.Warn("telemetry reader exited", "error", err)
	}
	close(done)
}

// Close stops the telemetry reader and closes the link
func (d *Device) Close() error {
	d.mu.Lock()
	port, reader, done := d.port, d.reader, d.done
	d.port = nil
	d.reader = nil
	d.mu.Unlock()

	if port == nil {
		return nil
	}

	reader.Stop()
	d.buffer.SetLink(nil)

	// Closing the port unblocks a reader waiting on the next line
	err := port.Close()
	<-done

	if err != nil {
		return fmt.Errorf("failed to close link: %w", err)
	}
	return nil
}

// Wait blocks until the telemetry reader exits, or ctx is done, and
// returns the reader's error
func (d *Device) Wait(ctx context.Context) error {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()

	if done == nil {
		return ErrNotConnected
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runErr
}

// Done is closed when the current telemetry reader exits. Nil before the
// first connection.
func (d *Device) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// Buffer returns the telemetry buffer the device records into
func (d *Device) Buffer() *telemetry.Buffer {
	return d.buffer
}

// ReaderStats returns line counts for the current connection
func (d *Device) ReaderStats() telemetry.ReaderStats {
	d.mu.Lock()
	reader := d.reader
	d.mu.Unlock()

	if reader == nil {
		return telemetry.ReaderStats{}
	}
	return reader.Stats()
}

// IsConnected returns whether the device is connected
func (d *Device) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// Send formats and sends a command to the device
func (d *Device) Send(cmd protocol.Command, value string) error {
	if !d.IsConnected() {
		return ErrNotConnected
	}

	line, err := protocol.FormatCommand(cmd, value)
	if err != nil {
		return err
	}

	if err := d.buffer.SendCommand(line); err != nil {
		return fmt.Errorf("failed to send %s: %w", cmd, err)
	}

	d.logger.Info("sent command", "command", line)
	return nil
}
