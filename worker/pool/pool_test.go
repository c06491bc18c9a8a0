package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"mediaCompressor/worker/kafka"
)

func TestSubmitLogsHandlerError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	p := NewWorkerPool(2, zap.New(core))

	p.Submit(context.Background(), &kafka.JobMessage{JobID: "job-1", TraceID: "trace-1"},
		func(ctx context.Context, msg *kafka.JobMessage) error {
			return errors.New("connection refused")
		})
	p.Wait()

	entries := logs.FilterMessage("Job processing failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 error log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["job_id"] != "job-1" {
		t.Errorf("log fields = %v", fields)
	}
}

func TestSubmitBoundsConcurrency(t *testing.T) {
	const maxWorkers = 2

	p := NewWorkerPool(maxWorkers, zap.NewNop())

	var inflight, peak, done int64
	for i := 0; i < 6; i++ {
		p.Submit(context.Background(), &kafka.JobMessage{JobID: "j"},
			func(ctx context.Context, msg *kafka.JobMessage) error {
				n := atomic.AddInt64(&inflight, 1)
				for {
					old := atomic.LoadInt64(&peak)
					if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt64(&inflight, -1)
				atomic.AddInt64(&done, 1)
				return nil
			})
	}
	p.Wait()

	if done != 6 {
		t.Fatalf("expected 6 handlers to run, got %d", done)
	}
	if peak > maxWorkers {
		t.Errorf("saw %d concurrent handlers, limit is %d", peak, maxWorkers)
	}
}

func TestSubmitSkipsOnCancelledContext(t *testing.T) {
	// A zero-slot pool never grants a slot, so the cancelled context is the
	// only runnable branch.
	p := NewWorkerPool(0, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran int64
	p.Submit(ctx, &kafka.JobMessage{JobID: "skipped"},
		func(ctx context.Context, msg *kafka.JobMessage) error {
			atomic.AddInt64(&ran, 1)
			return nil
		})
	p.Wait()

	if ran != 0 {
		t.Error("handler ran despite cancelled context")
	}
}
