package telemetry

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"pillarpuller/protocol"
)

// Ingester consumes telemetry lines
type Ingester interface {
	Ingest(line string) error
}

// ReaderStats counts the lines a Reader has handled
type ReaderStats struct {
	Accepted uint64
	Rejected uint64
}

// Reader is the single producer for a Buffer: it reads newline
// delimited telemetry from a byte source and ingests each line.
type Reader struct {
	src    io.Reader
	sink   Ingester
	logger *slog.Logger

	accepted atomic.Uint64
	rejected atomic.Uint64

	// Stop channel for graceful shutdown
	started  atomic.Bool
	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewReader creates a Reader feeding sink from src
func NewReader(src io.Reader, sink Ingester, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reader{
		src:      src,
		sink:     sink,
		logger:   logger,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// MaxLineLength bounds a single telemetry line. A longer run of bytes
// without a newline is discarded up to the next newline and counted as
// rejected.
const MaxLineLength = 4096

// Run reads lines until the source ends, a read fails, ctx is cancelled
// or Stop is called. Malformed and over-long lines are counted, logged and
// skipped. A read failure is returned as a *LinkError; end of stream and
// stopping return nil.
//
// Run blocks in the source's Read between lines. Stop and ctx take effect
// at the next line boundary; closing the source unblocks a pending read.
func (r *Reader) Run(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return errors.New("telemetry reader already started")
	}
	defer close(r.doneChan)

	br := bufio.NewReaderSize(r.src, MaxLineLength)
	for {
		line, overlong, readErr := readLine(br)
		if r.stopping(ctx) {
			r.logger.Info("telemetry reader stopped")
			return nil
		}

		switch {
		case overlong:
			r.rejected.Add(1)
			r.logger.Debug("rejected telemetry line", "reason", "line too long", "max", MaxLineLength)
		case readErr == nil || line != "":
			if err := r.ingest(line); err != nil {
				return err
			}
		}

		if errors.Is(readErr, io.EOF) {
			r.logger.Info("telemetry stream ended")
			return nil
		}
		if readErr != nil {
			r.logger.Warn("telemetry read failed", "error", readErr)
			return &LinkError{Op: "read", Err: readErr}
		}
	}
}

// readLine returns the next line without its newline. A line that does not
// fit the reader's buffer is drained through its newline and reported as
// overlong. At end of stream a final unterminated line is returned together
// with io.EOF.
func readLine(br *bufio.Reader) (string, bool, error) {
	overlong := false
	for {
		chunk, err := br.ReadSlice('\n')
		switch {
		case err == nil:
			if overlong {
				return "", true, nil
			}
			return string(chunk[:len(chunk)-1]), false, nil
		case errors.Is(err, bufio.ErrBufferFull):
			overlong = true
		case errors.Is(err, io.EOF) && !overlong:
			return string(chunk), false, err
		default:
			return "", overlong, err
		}
	}
}

func (r *Reader) ingest(line string) error {
	line = strings.TrimSuffix(line, "\r")
	if err := r.sink.Ingest(line); err != nil {
		var malformed *protocol.MalformedLine
		if !errors.As(err, &malformed) {
			return err
		}
		r.rejected.Add(1)
		r.logRejected(malformed)
		return nil
	}
	r.accepted.Add(1)
	return nil
}

// logRejected logs a malformed line. The firmware also prints plain text
// status messages ("Invalid command", driver faults) on the same stream;
// those have no delimiter and are surfaced at info level.
func (r *Reader) logRejected(malformed *protocol.MalformedLine) {
	if malformed.Fields == 1 && strings.TrimSpace(malformed.Line) != "" {
		r.logger.Info("device message", "message", malformed.Line)
		return
	}
	r.logger.Debug("rejected telemetry line", "line", malformed.Line, "reason", malformed.Reason)
}

func (r *Reader) stopping(ctx context.Context) bool {
	select {
	case <-r.stopChan:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Stop asks Run to return. Safe to call from any goroutine, any number
// of times.
func (r *Reader) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
}

// Done is closed when Run returns
func (r *Reader) Done() <-chan struct{} {
	return r.doneChan
}

// Stats returns the accepted and rejected line counts
func (r *Reader) Stats() ReaderStats {
	return ReaderStats{
		Accepted: r.accepted.Load(),
		Rejected: r.rejected.Load(),
	}
}
