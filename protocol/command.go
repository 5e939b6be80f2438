package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Command is a device command token
type Command string

// Commands understood by the Pillar Puller firmware
const (
	CmdOpen           Command = "open"
	CmdClose          Command = "close"
	CmdStop           Command = "stop"
	CmdHome           Command = "home"
	CmdBreak          Command = "break" // Open until a break is detected
	CmdZeroPosition   Command = "zero_position"
	CmdMoveToPosition Command = "move_to_position"
	CmdMoveToForce    Command = "move_to_force"
)

var (
	ErrUnknownCommand    = errors.New("unknown command")
	ErrEmptyCommandValue = errors.New("command value is empty")
	ErrUnexpectedValue   = errors.New("command does not take a value")
	ErrInvalidCommand    = errors.New("command contains a line terminator")
)

var knownCommands = map[Command]bool{
	CmdOpen:           false,
	CmdClose:          false,
	CmdStop:           false,
	CmdHome:           false,
	CmdBreak:          false,
	CmdZeroPosition:   false,
	CmdMoveToPosition: true,
	CmdMoveToForce:    true,
}

// TakesValue reports whether the command expects a value appended to it
func (c Command) TakesValue() bool {
	return knownCommands[c]
}

// Known reports whether the firmware understands the command
func (c Command) Known() bool {
	_, ok := knownCommands[c]
	return ok
}

// FormatCommand builds the command text sent to the device, without the
// line terminator. The value is concatenated onto the token as-is; the
// firmware does its own numeric conversion, so only emptiness is checked.
func FormatCommand(cmd Command, value string) (string, error) {
	if !cmd.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, string(cmd))
	}

	if strings.ContainsAny(value, "\r\n") {
		return "", ErrInvalidCommand
	}

	if !cmd.TakesValue() {
		if value != "" {
			return "", fmt.Errorf("%w: %s", ErrUnexpectedValue, cmd)
		}
		return string(cmd), nil
	}

	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyCommandValue, cmd)
	}

	return string(cmd) + value, nil
}

// EncodeCommand returns the newline-terminated wire form of a command line
func EncodeCommand(line string) ([]byte, error) {
	if strings.ContainsAny(line, "\r\n") {
		return nil, ErrInvalidCommand
	}
	return []byte(line + LineTerminator), nil
}
