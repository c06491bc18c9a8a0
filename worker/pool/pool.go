package pool

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"mediaCompressor/worker/kafka"
)

// WorkerPool bounds how many jobs are transcoded at once; compression is
// memory-heavy and unbounded fan-out would exhaust the host.
type WorkerPool struct {
	sem    chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger
}

func NewWorkerPool(maxWorkers int, logger *zap.Logger) *WorkerPool {
	return &WorkerPool{
		sem:    make(chan struct{}, maxWorkers),
		logger: logger,
	}
}

// Submit runs the handler on its own goroutine once a slot frees up. The
// message offset is already committed by the time a job lands here, so a
// handler error is the last trace of the failure and must be logged.
func (p *WorkerPool) Submit(ctx context.Context, msg *kafka.JobMessage, handler func(context.Context, *kafka.JobMessage) error) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
			if err := handler(ctx, msg); err != nil {
				p.logger.Error("Job processing failed",
					zap.String("job_id", msg.JobID),
					zap.String("trace_id", msg.TraceID),
					zap.Error(err),
				)
			}
		case <-ctx.Done():
		}
	}()
}

func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
