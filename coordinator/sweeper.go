package coordinator

import (
	"context"
	"log/slog"
	"time"
)

const defSweepInterval = 5 * time.Second

// Sweeper periodically closes rounds whose timeout elapsed.
type Sweeper struct {
	svc      Service
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(svc Service, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = defSweepInterval
	}

	return &Sweeper{
		svc:      svc,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until the context is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.svc.SweepExpired(ctx); err != nil {
				s.logger.ErrorContext(ctx, "Round sweep failed", slog.Any("error", err))
			}
		}
	}
}
