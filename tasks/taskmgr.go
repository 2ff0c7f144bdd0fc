package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const sweepInterval = 10 * time.Minute

// StartSweeper runs the proactive expiry sweep in the background until
// ctx is cancelled. Eviction is also performed lazily on status reads,
// so the sweep only has to catch tasks nobody polls anymore.
func StartSweeper(ctx context.Context, s Store, logger *zap.SugaredLogger) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(sweepInterval):
			}

			evicted, err := s.ExpireOld(ctx)

			if err != nil {
				logger.Error("Failed to sweep expired tasks", zap.Error(err))
				continue
			}

			if evicted > 0 {
				logger.Info("Swept expired tasks", zap.Int64("evicted", evicted))
			}
		}
	}()
}
