package telemetry

import (
	"errors"
	"fmt"
)

// ErrNoLink is returned when a command is sent on a buffer with no device link
var ErrNoLink = errors.New("no device link attached")

// LinkError reports a failure on the device link, either writing a
// command or reading telemetry.
type LinkError struct {
	Op  string // "send_command" or "read"
	Err error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("device link %s: %v", e.Op, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}
