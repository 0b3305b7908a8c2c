package execution

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/dd0wney/cluso-swarm/pkg/breaker"
	"github.com/dd0wney/cluso-swarm/pkg/health"
	"github.com/dd0wney/cluso-swarm/pkg/logging"
)

// RegisterOperation registers an operation under the wrapper's safety
// contract. The timeout is validated here so a zero budget can never
// reach Execute.
func (w *Wrapper) RegisterOperation(operation string, config OperationConfig) error {
	if config.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if config.Breaker == (breaker.Config{}) {
		config.Breaker = breaker.DefaultConfig()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.configs[operation]; exists {
		return ErrAlreadyRegistered
	}

	if err := w.circuits.Register(operation, config.Breaker); err != nil {
		return err
	}

	w.configs[operation] = config
	w.scores[operation] = MaxHealthScore
	w.setScoreMetric(operation, MaxHealthScore)

	return nil
}

// Execute runs an operation under its registered bounds: breaker
// admission, memory pre-check, then a race against the timeout. The
// caller blocks until natural completion or timeout, whichever is first.
func (w *Wrapper) Execute(ctx context.Context, operation string, op Operation) (any, error) {
	w.mu.Lock()
	config, exists := w.configs[operation]
	w.mu.Unlock()
	if !exists {
		return nil, ErrUnknownOperation
	}

	// Breaker admission: fail fast while open
	if err := w.circuits.Allow(operation); err != nil {
		if errors.Is(err, breaker.ErrCircuitOpen) {
			w.recordOutcome(operation, "rejected", 0)
			return nil, fmt.Errorf("%s: %w", operation, err)
		}
		return nil, err
	}

	// Memory pre-admission check. Rejection is a steady-state condition,
	// not a breaker failure, so the probe slot is returned.
	if config.MemoryCeilingBytes > 0 {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		if stats.HeapAlloc > config.MemoryCeilingBytes {
			w.circuits.ReleaseProbe(operation)
			if w.metricsRegistry != nil {
				w.metricsRegistry.ExecutionMemoryRejections.Inc()
			}
			w.recordOutcome(operation, "rejected", 0)
			w.logger.Warn("Execution rejected by memory ceiling",
				logging.OperationID(operation),
				logging.Uint64("heap_alloc", stats.HeapAlloc),
				logging.Uint64("ceiling", config.MemoryCeilingBytes))
			return nil, fmt.Errorf("%s: %w", operation, ErrMemoryCeiling)
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	id := w.track(operation, cancel)
	start := time.Now()
	resultCh := make(chan execResult, 1)

	go func() {
		// The goroutine owns its tracking record: a hung operation keeps
		// the record alive for the sweeper, a finished one removes it.
		defer w.untrack(id)
		defer func() {
			if r := recover(); r != nil {
				resultCh <- execResult{err: fmt.Errorf("operation panicked: %v", r)}
			}
		}()

		value, err := op(execCtx)
		resultCh <- execResult{value: value, err: err}
	}()

	select {
	case result := <-resultCh:
		duration := time.Since(start)
		if result.err != nil {
			w.circuits.RecordFailure(operation)
			w.adjustScore(operation, -failurePenalty)
			w.recordOutcome(operation, "failure", duration)
			return nil, fmt.Errorf("%s: %w", operation, result.err)
		}

		w.circuits.RecordSuccess(operation)
		w.adjustScore(operation, successReward)
		if duration > time.Duration(float64(config.Timeout)*0.9) {
			// Near-budget executions erode health before they start failing
			w.adjustScore(operation, -nearBudgetPenalty)
		}
		w.recordOutcome(operation, "success", duration)
		return result.value, nil

	case <-execCtx.Done():
		duration := time.Since(start)
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			// Timeout counts as a breaker failure; the losing racer's
			// context is already canceled, cancellation is best-effort.
			w.circuits.RecordFailure(operation)
			w.adjustScore(operation, -failurePenalty-nearBudgetPenalty)
			w.recordOutcome(operation, "timeout", duration)
			w.logger.Warn("Execution timed out",
				logging.OperationID(operation),
				logging.Duration("timeout", config.Timeout))
			return nil, fmt.Errorf("%s: %w", operation, ErrExecutionTimeout)
		}

		// Parent context canceled: not the operation's fault
		w.circuits.ReleaseProbe(operation)
		w.recordOutcome(operation, "canceled", duration)
		return nil, execCtx.Err()
	}
}

// HealthOf returns the advisory health snapshot for an operation.
// Always a best-effort, possibly-stale view; never blocks on recovery.
func (w *Wrapper) HealthOf(operation string) (HealthSnapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	score, exists := w.scores[operation]
	if !exists {
		return HealthSnapshot{}, ErrUnknownOperation
	}

	return HealthSnapshot{
		Operation: operation,
		Score:     score,
		Status:    health.StatusForScore(score),
	}, nil
}

// InflightCount returns the number of tracked executions
func (w *Wrapper) InflightCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.running)
}

// track registers an in-flight execution for the sweeper
func (w *Wrapper) track(operation string, cancel context.CancelFunc) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	id := w.nextID
	w.running[id] = &inflight{
		id:        id,
		operation: operation,
		startedAt: time.Now(),
		cancel:    cancel,
	}
	return id
}

// untrack removes a finished execution. Safe to call after a sweep
// already removed the record.
func (w *Wrapper) untrack(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.running, id)
}

// adjustScore applies a bounded delta to an operation's health score
func (w *Wrapper) adjustScore(operation string, delta int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	score, exists := w.scores[operation]
	if !exists {
		return
	}

	score += delta
	if score > MaxHealthScore {
		score = MaxHealthScore
	}
	if score < 0 {
		score = 0
	}
	w.scores[operation] = score
	w.setScoreMetric(operation, score)
}

func (w *Wrapper) setScoreMetric(operation string, score int) {
	if w.metricsRegistry != nil {
		w.metricsRegistry.ExecutionHealthScore.WithLabelValues(operation).Set(float64(score))
	}
}

func (w *Wrapper) recordOutcome(operation, status string, duration time.Duration) {
	if w.metricsRegistry != nil {
		w.metricsRegistry.RecordExecution(operation, status, duration)
	}
}
