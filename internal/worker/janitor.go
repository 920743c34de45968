package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper unmounts abandoned sessions.
type Sweeper interface {
	Sweep(retention time.Duration) int
}

// RunJanitor sweeps the registry every interval until ctx is cancelled.
func RunJanitor(ctx context.Context, sweeper Sweeper, interval, retention time.Duration, logger *zap.Logger) {
	if sweeper == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("session janitor started", zap.Duration("interval", interval), zap.Duration("retention", retention))
	for {
		select {
		case <-ticker.C:
			sweeper.Sweep(retention)
		case <-ctx.Done():
			logger.Info("session janitor stopped")
			return
		}
	}
}
