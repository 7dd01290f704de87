package dialog

import (
	"context"
	"log/slog"
	"time"
)

const sweepInterval = 30 * time.Minute

// StartSweeper runs a background goroutine that periodically evicts
// sessions idle beyond ttl. This is the eager complement to the shorter
// lazy expiry applied on every read; the two thresholds are intentionally
// different.
func StartSweeper(ctx context.Context, store *ContextStore, ttl time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Context sweeper started", "interval", sweepInterval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				if removed := store.Sweep(ttl); removed > 0 {
					slog.Info("Context sweeper evicted idle sessions", "removed", removed, "remaining", store.Len())
				}
			case <-ctx.Done():
				slog.Info("Context sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
