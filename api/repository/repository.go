package repository

import (
	"context"
	"errors"

	"mediaCompressor/pkg/model"
)

var ErrJobNotFound = errors.New("job not found")

type Repository interface {
	CreateJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
	FailJob(ctx context.Context, id string, message string) error
}
