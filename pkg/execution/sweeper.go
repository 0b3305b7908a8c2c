package execution

import (
	"time"

	"github.com/dd0wney/cluso-swarm/pkg/logging"
)

// StartSweeper launches the periodic sweep of stale in-flight
// executions. An execution older than the grace period has outlived any
// legitimate timeout budget and is treated as zombie work: its context
// is canceled and its tracking record dropped.
func (w *Wrapper) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.sweepStop:
				return
			case <-ticker.C:
				w.Sweep()
			}
		}
	}()
}

// Sweep cancels and removes every tracked execution older than the
// grace period. Returns the number of zombies reclaimed.
func (w *Wrapper) Sweep() int {
	cutoff := time.Now().Add(-w.gracePeriod)

	w.mu.Lock()
	var stale []*inflight
	for id, entry := range w.running {
		if entry.startedAt.Before(cutoff) {
			stale = append(stale, entry)
			delete(w.running, id)
		}
	}
	w.mu.Unlock()

	for _, entry := range stale {
		entry.cancel()
		w.logger.Warn("Swept zombie execution",
			logging.OperationID(entry.operation),
			logging.Duration("age", time.Since(entry.startedAt)))
	}

	if len(stale) > 0 && w.metricsRegistry != nil {
		w.metricsRegistry.ExecutionZombiesSwept.Add(float64(len(stale)))
	}

	return len(stale)
}

// Stop shuts down the sweeper. Idempotent.
func (w *Wrapper) Stop() {
	w.sweepStopped.Do(func() {
		close(w.sweepStop)
	})
}
