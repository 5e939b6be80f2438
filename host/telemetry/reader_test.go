package telemetry

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReaderIngestsUntilEOF(t *testing.T) {
	src := strings.NewReader("1,10.0,0.0\r\n2,11.5,0.1\nbad\n3,12.0,0.2,11.9\n\n")
	buf := New(Options{MaxPoints: 10})
	reader := NewReader(src, buf, nil)

	require.NoError(t, reader.Run(context.Background()))

	require.Equal(t, 3, buf.Len())
	require.Equal(t, []float64{1, 2, 3}, timestamps(buf.FullHistory()))
	require.Equal(t, ReaderStats{Accepted: 3, Rejected: 2}, reader.Stats())

	select {
	case <-reader.Done():
	default:
		t.Fatal("Done should be closed after Run returns")
	}
}

func TestReaderLogsDeviceMessages(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	src := strings.NewReader("Invalid command\n1,abc,2\n")
	reader := NewReader(src, New(Options{}), logger)
	require.NoError(t, reader.Run(context.Background()))

	out := logs.String()
	require.Contains(t, out, "device message")
	require.Contains(t, out, "Invalid command")
	require.Contains(t, out, "rejected telemetry line")
}

func TestReaderSkipsOverlongLines(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	garbage := strings.Repeat("x", 70000)
	src := strings.NewReader("1,1,1\n" + garbage + "\n2,2,2\n3,3,3\n")
	buf := New(Options{})
	reader := NewReader(src, buf, logger)

	require.NoError(t, reader.Run(context.Background()))

	require.Equal(t, []float64{1, 2, 3}, timestamps(buf.FullHistory()))
	require.Equal(t, ReaderStats{Accepted: 3, Rejected: 1}, reader.Stats())
	require.Contains(t, logs.String(), "line too long")
	require.NotContains(t, logs.String(), garbage[:MaxLineLength])
}

func TestReaderOverlongLineAtEOF(t *testing.T) {
	src := strings.NewReader("1,1,1\n" + strings.Repeat("9", MaxLineLength+1))
	buf := New(Options{})
	reader := NewReader(src, buf, nil)

	require.NoError(t, reader.Run(context.Background()))
	require.Equal(t, ReaderStats{Accepted: 1, Rejected: 1}, reader.Stats())
}

func TestReaderUnterminatedFinalLine(t *testing.T) {
	buf := New(Options{})
	reader := NewReader(strings.NewReader("1,1,1\n2,2,2"), buf, nil)

	require.NoError(t, reader.Run(context.Background()))
	require.Equal(t, []float64{1, 2}, timestamps(buf.FullHistory()))
}

type errReader struct {
	data []byte
	err  error
}

func (r *errReader) Read(p []byte) (int, error) {
	if len(r.data) > 0 {
		n := copy(p, r.data)
		r.data = r.data[n:]
		return n, nil
	}
	return 0, r.err
}

func TestReaderReadFailure(t *testing.T) {
	cause := errors.New("input/output error")
	src := &errReader{data: []byte("1,1,1\n2,2,2\n"), err: cause}
	buf := New(Options{})
	reader := NewReader(src, buf, nil)

	err := reader.Run(context.Background())
	var linkErr *LinkError
	require.True(t, errors.As(err, &linkErr))
	require.Equal(t, "read", linkErr.Op)
	require.ErrorIs(t, err, cause)
	require.Equal(t, 2, buf.HistoryLen())
}

func TestReaderStopFromAnotherGoroutine(t *testing.T) {
	pr, pw := io.Pipe()
	buf := New(Options{})
	reader := NewReader(pr, buf, nil)

	runErr := make(chan error, 1)
	go func() {
		runErr <- reader.Run(context.Background())
	}()

	_, err := pw.Write([]byte("1,1,1\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return buf.HistoryLen() == 1 }, time.Second, time.Millisecond)

	// Stop, then close the source to unblock the pending read
	reader.Stop()
	reader.Stop()
	require.NoError(t, pr.Close())

	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reader did not stop")
	}
	require.Equal(t, 1, buf.HistoryLen())
}

func TestReaderContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	buf := New(Options{})
	reader := NewReader(strings.NewReader("1,1,1\n2,2,2\n"), buf, nil)
	require.NoError(t, reader.Run(ctx))
	require.Zero(t, buf.HistoryLen())
}

func TestReaderRunTwice(t *testing.T) {
	reader := NewReader(strings.NewReader(""), New(Options{}), nil)
	require.NoError(t, reader.Run(context.Background()))
	require.Error(t, reader.Run(context.Background()))
}

type failingIngester struct{ err error }

func (f failingIngester) Ingest(string) error { return f.err }

func TestReaderPropagatesIngestErrors(t *testing.T) {
	cause := errors.New("store full")
	reader := NewReader(strings.NewReader("1,1,1\n"), failingIngester{err: cause}, nil)
	require.ErrorIs(t, reader.Run(context.Background()), cause)
}
