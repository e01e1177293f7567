package service

import (
	"context"
	"time"

	"github.com/medicab/medicab-backend/pkg/logger"
)

// AlertScheduler runs expiry scans on a fixed interval.
type AlertScheduler struct {
	scanner  *ExpiryScanner
	interval time.Duration
	logger   *logger.Logger
	cancel   context.CancelFunc
}

// NewAlertScheduler creates a new alert scheduler
func NewAlertScheduler(scanner *ExpiryScanner, interval time.Duration, log *logger.Logger) *AlertScheduler {
	return &AlertScheduler{
		scanner:  scanner,
		interval: interval,
		logger:   log,
	}
}

// Start starts the scheduler in a background goroutine.
func (s *AlertScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		s.logger.Info().Dur("interval", s.interval).Msg("alert scheduler started")

		// Run an initial scan immediately
		s.runScanCycle(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("alert scheduler stopped")
				return
			case <-ticker.C:
				s.runScanCycle(ctx)
			}
		}
	}()
}

// Stop stops the scheduler goroutine
func (s *AlertScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *AlertScheduler) runScanCycle(ctx context.Context) {
	start := time.Now()

	created, err := s.scanner.Scan(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("expiry scan failed")
		return
	}

	s.logger.Info().
		Dur("duration", time.Since(start)).
		Int("alerts_created", created).
		Msg("expiry scan cycle completed")
}
