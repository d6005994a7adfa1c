package matchmaking

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// RunSweeper runs the periodic pairing sweep until ctx is cancelled. Each
// tick drains the pool: pairing repeats until fewer than two entries remain
// or the retry budget runs out.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("matchmaker sweep worker started", zap.Duration("interval", interval))

	// Run one sweep immediately so a restart doesn't leave early joiners
	// waiting a full interval.
	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("matchmaker sweep worker stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	paired := 0
	for {
		_, err := s.TryPair(ctx)
		if err == nil {
			paired++
			continue
		}
		if !errors.Is(err, ErrNotEnoughWaiting) && !errors.Is(err, ErrPairingUnavailable) {
			s.logger.Error("pairing sweep failed", zap.Error(err))
		}
		break
	}

	if paired > 0 {
		s.logger.Info("pairing sweep completed", zap.Int("matchesCreated", paired))
	}
}
