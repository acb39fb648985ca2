package dispatch

import (
	"context"
	"time"

	"github.com/apsen86/ChatSystem/internal/metrics"
	"github.com/rs/zerolog"
)

// Monitor periodically runs the timeout service
type Monitor struct {
	timeouts *TimeoutService
	interval time.Duration
	logger   zerolog.Logger
}

// NewMonitor creates a monitor running the given timeout service
func NewMonitor(timeouts *TimeoutService, interval time.Duration, logger zerolog.Logger) *Monitor {
	return &Monitor{
		timeouts: timeouts,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the monitor loop until the context is cancelled
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info().Dur("interval", m.interval).Msg("monitor started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("monitor stopped")
			return
		case <-ticker.C:
			started := time.Now()
			if err := m.timeouts.ProcessTimeouts(ctx); err != nil {
				m.logger.Error().Err(err).Msg("timeout pass failed")
			}
			metrics.MonitorTickDuration.Observe(time.Since(started).Seconds())
		}
	}
}
