package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"mediaCompressor/api/database"
	"mediaCompressor/pkg/model"
)

type PostgresRepo struct {
	db *database.DB
}

func NewPostgresRepo(db *database.DB) Repository {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateJob(ctx context.Context, job *model.Job) error {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO jobs (id, kind, status, progress, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err = r.db.Pool.QueryRow(ctx, query,
		job.ID,
		job.Kind,
		job.Status,
		job.Progress,
		payload,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}

	return nil
}

func (r *PostgresRepo) GetJob(ctx context.Context, id string) (*model.Job, error) {
	query := `
		SELECT id, kind, status, progress, payload, result, error_message,
		       created_at, updated_at, completed_at
		FROM jobs
		WHERE id = $1
	`

	return scanJob(r.db.Pool.QueryRow(ctx, query, id))
}

// FailJob backs out a job whose delivery could not be published; the row
// must not sit queued forever with nothing to consume it.
func (r *PostgresRepo) FailJob(ctx context.Context, id string, message string) error {
	query := `
		UPDATE jobs
		SET status = 'failed', error_message = $2, updated_at = NOW(), completed_at = NOW()
		WHERE id = $1 AND status = 'queued'
	`
	_, err := r.db.Pool.Exec(ctx, query, id, message)
	return err
}

type row interface {
	Scan(dest ...any) error
}

// scanJob normalizes the jsonb columns into typed structs so nothing past
// the storage boundary deals with raw JSON.
func scanJob(rw row) (*model.Job, error) {
	var (
		job     model.Job
		payload []byte
		result  []byte
	)

	err := rw.Scan(
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
