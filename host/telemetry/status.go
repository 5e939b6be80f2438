package telemetry

import (
	"context"
	"log/slog"
	"time"

	"pillarpuller/protocol"
)

// DefaultStatusInterval is how often StatusLogger reports by default
const DefaultStatusInterval = 5 * time.Second

// LatestSource provides the most recent sample
type LatestSource interface {
	Latest() (protocol.Sample, bool)
}

// StatusLogger periodically logs the most recent sample, giving the
// operator a low-rate view of the stream alongside the live plot.
type StatusLogger struct {
	src      LatestSource
	logger   *slog.Logger
	interval time.Duration
}

// NewStatusLogger creates a StatusLogger. A non-positive interval selects
// DefaultStatusInterval.
func NewStatusLogger(src LatestSource, logger *slog.Logger, interval time.Duration) *StatusLogger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if interval <= 0 {
		interval = DefaultStatusInterval
	}
	return &StatusLogger{
		src:      src,
		logger:   logger,
		interval: interval,
	}
}

// Run logs the latest sample every interval until ctx is cancelled
func (s *StatusLogger) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.LogLatest()
		}
	}
}

// LogLatest logs the latest sample, if any. Reports whether it logged.
func (s *StatusLogger) LogLatest() bool {
	sample, ok := s.src.Latest()
	if !ok {
		return false
	}

	s.logger.Info("latest sample",
		"time", sample.Timestamp,
		"force", sample.Force,
		"platform_position", sample.PlatformDistance,
		"filtered_force", sample.FilteredForce.String(),
	)
	return true
}
