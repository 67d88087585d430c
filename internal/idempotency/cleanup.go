package idempotency

import (
	"context"
	"log/slog"
	"time"
)

// RunPeriodicCleanup drops expired records from store every interval until
// ctx is done. It blocks; run it in a goroutine.
func RunPeriodicCleanup(ctx context.Context, store *InMemoryStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if deleted := store.DeleteExpired(); deleted > 0 {
				slog.Debug("cleaned up expired idempotency keys", "deleted", deleted)
			}
		case <-ctx.Done():
			return
		}
	}
}
