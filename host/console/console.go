// Package console implements the interactive operator prompt: motion
// commands, session export and buffer inspection from a terminal.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/shlex"

	"pillarpuller/host/export"
	"pillarpuller/host/telemetry"
	"pillarpuller/protocol"
)

// ErrQuit is returned by Execute when the operator asks to exit
var ErrQuit = errors.New("quit")

// Commander sends device commands
type Commander interface {
	Send(cmd protocol.Command, value string) error
}

// Session is the part of the telemetry store the console inspects
type Session interface {
	FullHistory() []protocol.Sample
	HistoryLen() int
	Clear()
	Len() int
	Latest() (protocol.Sample, bool)
}

// Saver exports a session
type Saver interface {
	Save(name string, samples []protocol.Sample) (export.Result, error)
}

// Console reads operator commands line by line and executes them
type Console struct {
	Commander Commander
	Session   Session
	Saver     Saver

	// Stats reports reader line counts for "status"; optional
	Stats func() telemetry.ReaderStats

	In     io.Reader
	Out    io.Writer
	Logger *slog.Logger
}

// command words that map directly onto a device command
var deviceCommands = map[string]protocol.Command{
	"open":             protocol.CmdOpen,
	"close":            protocol.CmdClose,
	"stop":             protocol.CmdStop,
	"home":             protocol.CmdHome,
	"break":            protocol.CmdBreak,
	"zero":             protocol.CmdZeroPosition,
	"zero_position":    protocol.CmdZeroPosition,
	"move":             protocol.CmdMoveToPosition,
	"move_to_position": protocol.CmdMoveToPosition,
	"force":            protocol.CmdMoveToForce,
	"move_to_force":    protocol.CmdMoveToForce,
}

// Run prompts for and executes commands until input ends, the operator
// quits or ctx is cancelled. Command errors are reported to Out and do
// not stop the loop.
func (c *Console) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.In)

	for {
		fmt.Fprint(c.Out, "> ")
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			return nil
		}

		err := c.Execute(scanner.Text())
		if errors.Is(err, ErrQuit) {
			fmt.Fprintln(c.Out, "Goodbye!")
			return nil
		}
		if err != nil {
			fmt.Fprintf(c.Out, "Error: %v\n", err)
			c.logger().Warn("console command failed", "line", scanner.Text(), "error", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}
	return nil
}

// Execute runs a single console line
func (c *Console) Execute(line string) error {
	parts, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("failed to parse %q: %w", line, err)
	}
	if len(parts) == 0 {
		return nil
	}

	word, args := strings.ToLower(parts[0]), parts[1:]

	if cmd, ok := deviceCommands[word]; ok {
		return c.sendDevice(cmd, args)
	}

	switch word {
	case "quit", "exit", "q":
		return ErrQuit

	case "help", "?":
		printHelp(c.Out)
		return nil

	case "export", "save":
		if len(args) > 1 {
			return fmt.Errorf("usage: export [name]")
		}
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		return c.export(name)

	case "clear":
		c.Session.Clear()
		fmt.Fprintln(c.Out, "Buffer cleared, new session started")
		return nil

	case "status":
		c.printStatus()
		return nil

	case "latest":
		c.printLatest()
		return nil

	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", word)
	}
}

func (c *Console) sendDevice(cmd protocol.Command, args []string) error {
	value := ""
	switch {
	case cmd.TakesValue() && len(args) != 1:
		return fmt.Errorf("usage: %s <value>", cmd)
	case cmd.TakesValue():
		value = args[0]
	case len(args) != 0:
		return fmt.Errorf("%s takes no arguments", cmd)
	}

	if err := c.Commander.Send(cmd, value); err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Sent %s%s\n", cmd, value)
	return nil
}

func (c *Console) export(name string) error {
	samples := c.Session.FullHistory()

	result, err := c.Saver.Save(name, samples)
	if result.CSV != "" {
		fmt.Fprintf(c.Out, "Exported %d samples to %s\n", result.Samples, result.CSV)
		if result.Plot != "" {
			fmt.Fprintf(c.Out, "  plot:     %s\n", result.Plot)
		}
		if result.Metadata != "" {
			fmt.Fprintf(c.Out, "  metadata: %s\n", result.Metadata)
		}
		c.logger().Info("exported session", "file", result.CSV, "samples", result.Samples)
	}
	return err
}

func (c *Console) printStatus() {
	fmt.Fprintf(c.Out, "Display window: %d samples\n", c.Session.Len())
	fmt.Fprintf(c.Out, "Full history:   %d samples\n", c.Session.HistoryLen())
	if c.Stats != nil {
		stats := c.Stats()
		fmt.Fprintf(c.Out, "Lines accepted: %d\n", stats.Accepted)
		fmt.Fprintf(c.Out, "Lines rejected: %d\n", stats.Rejected)
	}
}

func (c *Console) printLatest() {
	sample, ok := c.Session.Latest()
	if !ok {
		fmt.Fprintln(c.Out, "No samples recorded")
		return
	}
	fmt.Fprintf(c.Out, "Time: %s, Force: %s, Platform Position: %s, Filtered Force: %s\n",
		protocol.FormatFloat(sample.Timestamp),
		protocol.FormatFloat(sample.Force),
		protocol.FormatFloat(sample.PlatformDistance),
		sample.FilteredForce)
}

func (c *Console) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "\nAvailable commands:")
	fmt.Fprintln(w, "  open              - Open the rig until another command is received")
	fmt.Fprintln(w, "  close             - Close the rig")
	fmt.Fprintln(w, "  stop              - Stop the motor")
	fmt.Fprintln(w, "  home              - Run the homing sequence")
	fmt.Fprintln(w, "  break             - Open until a break is detected")
	fmt.Fprintln(w, "  zero              - Zero the platform position")
	fmt.Fprintln(w, "  move <mm>         - Move the platform to a position")
	fmt.Fprintln(w, "  force <value>     - Move until the load cell reads a force")
	fmt.Fprintln(w, "  export [name]     - Export the session to CSV (timestamped if no name)")
	fmt.Fprintln(w, "  clear             - Clear the buffer and start a new session")
	fmt.Fprintln(w, "  status            - Show buffer and reader counters")
	fmt.Fprintln(w, "  latest            - Show the most recent sample")
	fmt.Fprintln(w, "  help              - Show this help message")
	fmt.Fprintln(w, "  quit/exit/q       - Exit the program")
	fmt.Fprintln(w)
}
