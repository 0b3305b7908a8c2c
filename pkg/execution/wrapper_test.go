package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dd0wney/cluso-swarm/pkg/breaker"
	"github.com/dd0wney/cluso-swarm/pkg/health"
	"github.com/dd0wney/cluso-swarm/pkg/logging"
)

func newTestWrapper(t *testing.T, config OperationConfig) *Wrapper {
	t.Helper()
	w := New()
	w.SetLogger(logging.NewNopLogger())
	if err := w.RegisterOperation("op", config); err != nil {
		t.Fatalf("RegisterOperation failed: %v", err)
	}
	return w
}

func quickConfig() OperationConfig {
	return OperationConfig{
		Timeout: time.Second,
		Breaker: breaker.Config{FailureThreshold: 3, RecoveryTimeout: time.Minute, SuccessThreshold: 1},
	}
}

func TestRegisterRejectsZeroTimeout(t *testing.T) {
	w := New()
	w.SetLogger(logging.NewNopLogger())

	err := w.RegisterOperation("op", OperationConfig{Timeout: 0})
	if err != ErrInvalidTimeout {
		t.Errorf("RegisterOperation(timeout=0) = %v, want ErrInvalidTimeout", err)
	}
}

func TestExecuteUnknownOperation(t *testing.T) {
	w := New()
	w.SetLogger(logging.NewNopLogger())

	_, err := w.Execute(context.Background(), "missing", func(ctx context.Context) (any, error) {
		return nil, nil
	})
	if err != ErrUnknownOperation {
		t.Errorf("Execute(unregistered) = %v, want ErrUnknownOperation", err)
	}
}

func TestExecuteSuccess(t *testing.T) {
	w := newTestWrapper(t, quickConfig())

	value, err := w.Execute(context.Background(), "op", func(ctx context.Context) (any, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if value != 42 {
		t.Errorf("Execute value = %v, want 42", value)
	}

	snap, err := w.HealthOf("op")
	if err != nil {
		t.Fatalf("HealthOf failed: %v", err)
	}
	if snap.Score != MaxHealthScore {
		t.Errorf("Score = %d, want %d (capped)", snap.Score, MaxHealthScore)
	}
	if snap.Status != health.StatusHealthy {
		t.Errorf("Status = %v, want healthy", snap.Status)
	}
}

// TestExecuteTimeout verifies a slow operation resolves ErrExecutionTimeout
// near the budget, not at its natural completion time.
func TestExecuteTimeout(t *testing.T) {
	config := quickConfig()
	config.Timeout = 100 * time.Millisecond
	w := newTestWrapper(t, config)

	start := time.Now()
	_, err := w.Execute(context.Background(), "op", func(ctx context.Context) (any, error) {
		select {
		case <-time.After(500 * time.Millisecond):
			return "late", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	elapsed := time.Since(start)

	if !errors.Is(err, ErrExecutionTimeout) {
		t.Fatalf("Execute = %v, want ErrExecutionTimeout", err)
	}
	if elapsed > 300*time.Millisecond {
		t.Errorf("Execute returned after %v, should resolve near the 100ms budget", elapsed)
	}

	// Timeout counts as a breaker failure
	snap, _ := w.Breaker().SnapshotOf("op")
	if snap.ConsecutiveFailures != 1 {
		t.Errorf("ConsecutiveFailures = %d, want 1", snap.ConsecutiveFailures)
	}
}

func TestExecuteFailureTripsBreaker(t *testing.T) {
	w := newTestWrapper(t, quickConfig())

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		_, err := w.Execute(context.Background(), "op", func(ctx context.Context) (any, error) {
			return nil, boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Execute %d = %v, want wrapped boom", i, err)
		}
	}

	// Breaker open: reject without invoking the operation
	invoked := false
	_, err := w.Execute(context.Background(), "op", func(ctx context.Context) (any, error) {
		invoked = true
		return nil, nil
	})
	if !errors.Is(err, breaker.ErrCircuitOpen) {
		t.Errorf("Execute with open breaker = %v, want ErrCircuitOpen", err)
	}
	if invoked {
		t.Error("Operation must not run while the breaker is open")
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	w := newTestWrapper(t, quickConfig())

	_, err := w.Execute(context.Background(), "op", func(ctx context.Context) (any, error) {
		panic("kaboom")
	})
	if err == nil {
		t.Fatal("Expected error from panicking operation")
	}

	// Wrapper still usable afterwards
	if _, err := w.Execute(context.Background(), "op", func(ctx context.Context) (any, error) {
		return "ok", nil
	}); err != nil {
		t.Errorf("Execute after panic = %v, want nil", err)
	}
}

func TestHealthScorePenalties(t *testing.T) {
	w := newTestWrapper(t, quickConfig())

	boom := errors.New("boom")
	w.Execute(context.Background(), "op", func(ctx context.Context) (any, error) {
		return nil, boom
	})

	snap, _ := w.HealthOf("op")
	if snap.Score != MaxHealthScore-failurePenalty {
		t.Errorf("Score after one failure = %d, want %d", snap.Score, MaxHealthScore-failurePenalty)
	}

	// Health bands are advisory: a low score never gates execution
	for i := 0; i < 2; i++ {
		w.Execute(context.Background(), "op", func(ctx context.Context) (any, error) {
			return nil, boom
		})
	}
	w.Breaker().Reset("op")

	if _, err := w.Execute(context.Background(), "op", func(ctx context.Context) (any, error) {
		return "ok", nil
	}); err != nil {
		t.Errorf("Execute with degraded health = %v, want nil", err)
	}
}

func TestMemoryCeilingRejects(t *testing.T) {
	config := quickConfig()
	config.MemoryCeilingBytes = 1 // Any live heap exceeds this
	w := newTestWrapper(t, config)

	invoked := false
	_, err := w.Execute(context.Background(), "op", func(ctx context.Context) (any, error) {
		invoked = true
		return nil, nil
	})
	if !errors.Is(err, ErrMemoryCeiling) {
		t.Fatalf("Execute = %v, want ErrMemoryCeiling", err)
	}
	if invoked {
		t.Error("Operation must not run past the memory pre-check")
	}

	// Memory rejection is not a breaker failure
	snap, _ := w.Breaker().SnapshotOf("op")
	if snap.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0", snap.ConsecutiveFailures)
	}
}

func TestSweepReclaimsZombies(t *testing.T) {
	w := NewWithGracePeriod(10 * time.Millisecond)
	w.SetLogger(logging.NewNopLogger())
	defer w.Stop()

	config := quickConfig()
	config.Timeout = 20 * time.Millisecond
	if err := w.RegisterOperation("op", config); err != nil {
		t.Fatalf("RegisterOperation failed: %v", err)
	}

	// An operation that ignores cancellation: its goroutine outlives the
	// timeout and stays tracked.
	block := make(chan struct{})
	defer close(block)
	_, err := w.Execute(context.Background(), "op", func(ctx context.Context) (any, error) {
		<-block
		return nil, nil
	})
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Fatalf("Execute = %v, want ErrExecutionTimeout", err)
	}

	if w.InflightCount() != 1 {
		t.Fatalf("InflightCount = %d, want 1 abandoned execution", w.InflightCount())
	}

	time.Sleep(20 * time.Millisecond)
	swept := w.Sweep()
	if swept != 1 {
		t.Errorf("Sweep = %d, want 1", swept)
	}
	if w.InflightCount() != 0 {
		t.Errorf("InflightCount after sweep = %d, want 0", w.InflightCount())
	}
}

func TestStopIdempotent(t *testing.T) {
	w := New()
	w.SetLogger(logging.NewNopLogger())
	w.StartSweeper(time.Millisecond)
	w.Stop()
	w.Stop() // Must not panic
}
