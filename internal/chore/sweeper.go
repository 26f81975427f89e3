package chore

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically expires overdue pending occurrences. The dashboard only
// shows what is pending, so without the sweep a skipped chore would sit on the
// board forever and block its recurrence from advancing.
type Sweeper struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(service *Service, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		service:  service,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the sweep loop in a goroutine. One sweep runs immediately so a
// server restarted after downtime catches up without waiting a full interval.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.sweep(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()

	s.logger.Info("sweeper started", "interval", s.interval)
}

// Stop cancels the loop and waits for the in-flight sweep to finish.
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("sweeper stopped")
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.service.SweepExpireOverdue(ctx, time.Now()); err != nil {
		s.logger.Error("sweep failed", "error", err)
	}
}
