package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/helpdesk-line/repair-service/internal/service"
)

type countingRunner struct {
	calls atomic.Int32
}

func (r *countingRunner) RetryFailedNotifications(context.Context) (service.RetrySummary, error) {
	r.calls.Add(1)
	return service.RetrySummary{}, nil
}

func TestStartRetryLoopDisabled(t *testing.T) {
	done := StartRetryLoop(context.Background(), &countingRunner{}, 0, nil)
	select {
	case <-done:
	default:
		t.Fatal("disabled loop should report done immediately")
	}
}

func TestStartRetryLoopRunsUntilCancelled(t *testing.T) {
	runner := &countingRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartRetryLoop(ctx, runner, 5*time.Millisecond, nil)

	deadline := time.Now().Add(2 * time.Second)
	for runner.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after cancel")
	}
	if runner.calls.Load() < 2 {
		t.Fatalf("expected repeated passes, got %d", runner.calls.Load())
	}
}
