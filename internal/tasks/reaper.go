package tasks

import (
	"context"
	"log"
	"time"

	"github.com/go-gitbridge/gitbridge/internal/metrics"
)

// RunReaper sweeps expired terminal tasks on a fixed interval until ctx
// is cancelled. Cancellation is a clean exit. A single failed sweep is
// logged and never kills the loop.
func RunReaper(ctx context.Context, store *Store, interval time.Duration, m metrics.Recorder) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sweep(store, m)
		case <-ctx.Done():
			return nil
		}
	}
}

func sweep(store *Store, m metrics.Recorder) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("task reaper: recovered from sweep panic: %v", r)
		}
	}()

	if removed := store.CleanupExpired(time.Now().UTC()); removed > 0 {
		m.RecordTasksReaped(removed)
		log.Printf("Cleaned up %d expired tasks", removed)
	}
}
