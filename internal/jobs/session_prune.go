package jobs

import (
	"context"
	"log/slog"
	"time"

	"carebridge/internal/session"
)

const pruneTimeout = 10 * time.Second

// StartSessionPruneJob deletes expired sessions every interval until ctx is
// done. It returns immediately; a non-positive interval disables the job.
func StartSessionPruneJob(ctx context.Context, interval time.Duration, pruner session.Pruner, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if pruner == nil {
		logger.Info("session prune job disabled: store keeps no expired rows")
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				PruneSessions(ctx, pruner, logger)
			}
		}
	}()
}

// PruneSessions runs a single prune pass.
func PruneSessions(ctx context.Context, pruner session.Pruner, logger *slog.Logger) int64 {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tickCtx, cancel := context.WithTimeout(ctx, pruneTimeout)
	defer cancel()
	pruned, err := pruner.Prune(tickCtx, time.Now().UTC())
	if err != nil {
		logger.Error("session prune job error", "error", err)
		return 0
	}
	if pruned > 0 {
		logger.Info("session prune job removed expired sessions", "count", pruned)
	}
	return pruned
}
