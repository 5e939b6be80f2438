// Package telemetry holds the host-side store for instrument samples.
//
// A Buffer keeps two views of the accepted samples: an unbounded full
// history used for export, and a bounded, optionally decimated display
// window used for live plotting. One goroutine (usually a Reader) feeds
// it; any number of goroutines may read snapshots concurrently.
package telemetry

import (
	"fmt"
	"io"
	"sync"

	"pillarpuller/protocol"
)

// DefaultMaxPoints is the display window length used when none is configured
const DefaultMaxPoints = 100

// Recorder is the capability set a front-end needs from the telemetry
// store. Any UI toolkit can be driven through it without touching the
// ingestion path.
type Recorder interface {
	Ingest(line string) error
	Snapshot() []protocol.Sample
	FullHistory() []protocol.Sample
	SendCommand(command string) error
	Clear()
	Len() int
}

// Options configures a Buffer
type Options struct {
	// MaxPoints bounds the display window. <= 0 selects DefaultMaxPoints.
	MaxPoints int

	// DecimationFactor k keeps every k-th accepted sample in the display
	// window. <= 1 keeps every sample. Full history is never decimated.
	DecimationFactor int

	// Link is the device link commands are written to. May be set later
	// with SetLink.
	Link io.Writer
}

// Buffer is the authoritative store of ingested samples
type Buffer struct {
	// Guards everything below up to linkMu. Held only to copy or mutate
	// the sequences, never while parsing or doing I/O.
	mu         sync.Mutex
	history    []protocol.Sample
	window     *sampleRing
	decimation uint64
	counter    uint64 // successful ingests since the last Clear

	// Serialises writes to the device link, independently of mu
	linkMu sync.Mutex
	link   io.Writer
}

var _ Recorder = (*Buffer)(nil)

// New creates a new Buffer
func New(opts Options) *Buffer {
	maxPoints := opts.MaxPoints
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}

	decimation := uint64(1)
	if opts.DecimationFactor > 1 {
		decimation = uint64(opts.DecimationFactor)
	}

	return &Buffer{
		window:     newSampleRing(maxPoints),
		decimation: decimation,
		link:       opts.Link,
	}
}

// Ingest parses a telemetry line and stores the resulting sample. A line
// that fails to parse leaves the buffer untouched and its
// *protocol.MalformedLine is returned.
func (b *Buffer) Ingest(line string) error {
	sample, err := protocol.ParseLine(line)
	if err != nil {
		return err
	}

	b.Append(sample)
	return nil
}

// Append stores an already parsed sample
func (b *Buffer) Append(sample protocol.Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.history = append(b.history, sample)

	b.counter++
	if b.counter%b.decimation == 0 {
		b.window.Write(sample)
	}
}

// Snapshot returns a copy of the display window, oldest first
func (b *Buffer) Snapshot() []protocol.Sample {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.window.Data()
}

// FullHistory returns a copy of every sample accepted since the last
// Clear, in arrival order
func (b *Buffer) FullHistory() []protocol.Sample {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := make([]protocol.Sample, len(b.history))
	copy(result, b.history)
	return result
}

// Latest returns the most recently accepted sample
func (b *Buffer) Latest() (protocol.Sample, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.history) == 0 {
		return protocol.Sample{}, false
	}
	return b.history[len(b.history)-1], true
}

// Len returns the number of samples in the display window
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.window.Available()
}

// HistoryLen returns the number of samples in the full history
func (b *Buffer) HistoryLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.history)
}

// Clear empties the full history and the display window and restarts
// the decimation count, for a new recording session
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.history = nil
	b.window.Reset()
	b.counter = 0
}

// MaxPoints returns the display window capacity
func (b *Buffer) MaxPoints() int {
	return b.window.size
}

// DecimationFactor returns the configured decimation factor
func (b *Buffer) DecimationFactor() int {
	return int(b.decimation)
}

// SetLink replaces the device link used by SendCommand. nil detaches it.
func (b *Buffer) SetLink(link io.Writer) {
	b.linkMu.Lock()
	defer b.linkMu.Unlock()

	b.link = link
}

// SendCommand writes command plus a newline to the device link, once.
// There is no retry and no queueing; any failure is returned as a
// *LinkError. The write does not hold the sample lock, so a stalled
// link cannot hold up ingestion or snapshots.
func (b *Buffer) SendCommand(command string) error {
	msg, err := protocol.EncodeCommand(command)
	if err != nil {
		return &LinkError{Op: "send_command", Err: err}
	}

	b.linkMu.Lock()
	defer b.linkMu.Unlock()

	if b.link == nil {
		return &LinkError{Op: "send_command", Err: ErrNoLink}
	}

	n, err := b.link.Write(msg)
	if err != nil {
		return &LinkError{Op: "send_command", Err: err}
	}
	if n != len(msg) {
		return &LinkError{Op: "send_command", Err: fmt.Errorf("incomplete write: %d/%d bytes", n, len(msg))}
	}

	return nil
}
