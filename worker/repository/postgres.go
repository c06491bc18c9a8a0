package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediaCompressor/pkg/model"
)

var ErrJobNotFound = errors.New("job not found")

// Repository is the worker's view of the job store. Every write is an
// atomic read-modify-write guarded by the current status, so duplicate
// deliveries cannot produce lost updates or resurrect terminal jobs.
type Repository interface {
	GetJob(ctx context.Context, id string) (*model.Job, error)
	// MarkProcessing claims a queued job; the compare-and-set on status is
	// the pipeline's only mutual-exclusion mechanism. Returns false when
	// the job was already claimed or finished.
	MarkProcessing(ctx context.Context, id string, progress int) (bool, error)
	// UpdateProgress advances progress while processing; progress never
	// decreases and terminal jobs are untouched.
	UpdateProgress(ctx context.Context, id string, progress int) error
	SaveResult(ctx context.Context, id string, result *model.Result) error
	FailJob(ctx context.Context, id string, message string) error
}

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) GetJob(ctx context.Context, id string) (*model.Job, error) {
	query := `
		SELECT id, kind, status, progress, payload, result, error_message,
		       created_at, updated_at, completed_at
		FROM jobs
		WHERE id = $1
	`

	var (
		job     model.Job
		payload []byte
		result  []byte
	)

	err := r.db.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.Kind,
		&job.Status,
		&job.Progress,
		&payload,
		&result,
		&job.Error,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(payload, &job.Payload); err != nil {
		return nil, fmt.Errorf("decode payload for job %s: %w", job.ID, err)
	}
	if len(result) > 0 {
		job.Result = &model.Result{}
		if err := json.Unmarshal(result, job.Result); err != nil {
			return nil, fmt.Errorf("decode result for job %s: %w", job.ID, err)
		}
	}

	return &job, nil
}

func (r *PostgresRepo) MarkProcessing(ctx context.Context, id string, progress int) (bool, error) {
	query := `
		UPDATE jobs
		SET status = 'processing', progress = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'queued'
	`

	tag, err := r.db.Exec(ctx, query, id, progress)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepo) UpdateProgress(ctx context.Context, id string, progress int) error {
	query := `
		UPDATE jobs
		SET progress = GREATEST(progress, $2), updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`

	_, err := r.db.Exec(ctx, query, id, progress)
	return err
}

func (r *PostgresRepo) SaveResult(ctx context.Context, id string, result *model.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	// Idempotent: re-saving an already-completed job overwrites the result
	// but cannot corrupt the status; a failed job stays failed.
	query := `
		UPDATE jobs
		SET status = 'completed', progress = 100, result = $2,
		    updated_at = NOW(), completed_at = COALESCE(completed_at, NOW())
		WHERE id = $1 AND status IN ('processing', 'completed')
	`

	tag, err := r.db.Exec(ctx, query, id, data)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (r *PostgresRepo) FailJob(ctx context.Context, id string, message string) error {
	query := `
		UPDATE jobs
		SET status = 'failed', error_message = $2,
		    updated_at = NOW(), completed_at = COALESCE(completed_at, NOW())
		WHERE id = $1 AND status IN ('queued', 'processing')
	`

	_, err := r.db.Exec(ctx, query, id, message)
	return err
}
