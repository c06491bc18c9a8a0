package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"mediaCompressor/pkg/model"
	"mediaCompressor/worker/repository"
)

// Orchestrator processes one claimed job to a terminal state.
type Orchestrator interface {
	Process(ctx context.Context, job *model.Job) error
}

// Dispatcher is the processing entry point the delivery transport invokes.
// Delivery is at-least-once, so everything here must be idempotent at the
// job level: duplicate deliveries of an already-advanced job are successes
// with no side effects.
type Dispatcher struct {
	repo          repository.Repository
	orchestrators map[model.MediaKind]Orchestrator
	logger        *zap.Logger
}

func New(repo repository.Repository, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		repo:          repo,
		orchestrators: make(map[model.MediaKind]Orchestrator),
		logger:        logger,
	}
}

func (d *Dispatcher) Register(kind model.MediaKind, orch Orchestrator) {
	d.orchestrators[kind] = orch
}

// Dispatch loads the job and routes it to the orchestrator for its kind.
// A crashed or erroring handler must still leave the job in a terminal,
// visible state, so panics and unknown kinds are converted to failJob
// instead of propagating to the transport.
func (d *Dispatcher) Dispatch(ctx context.Context, jobID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Panic while processing job",
				zap.String("job_id", jobID),
				zap.Any("panic", r),
			)
			sentry.CurrentHub().Recover(r)
			d.failJob(ctx, jobID, "Internal processing error")
			err = fmt.Errorf("panic processing job %s: %v", jobID, r)
		}
	}()

	job, err := d.repo.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			d.logger.Warn("Delivery for unknown job", zap.String("job_id", jobID))
			return nil
		}
		return fmt.Errorf("load job %s: %w", jobID, err)
	}

	if job.Status != model.StatusQueued {
		d.logger.Info("Duplicate delivery, job already advanced",
			zap.String("job_id", jobID),
			zap.String("status", string(job.Status)),
		)
		return nil
	}

	orch, ok := d.orchestrators[job.Kind]
	if !ok {
		d.failJob(ctx, jobID, fmt.Sprintf("Unsupported media type: %s", job.Kind))
		return nil
	}

	return orch.Process(ctx, job)
}

func (d *Dispatcher) failJob(ctx context.Context, jobID, message string) {
	if err := d.repo.FailJob(ctx, jobID, message); err != nil {
		sentry.CaptureException(err)
		d.logger.Error("FATAL: failed to record job failure",
			zap.String("job_id", jobID),
			zap.Error(err),
		)
	}
}
