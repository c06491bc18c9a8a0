package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"mediaCompressor/pkg/model"
)

const (
	statusKeyPrefix = "job:status:"
	statusTTL       = 10 * time.Minute
)

// StatusCache mirrors the API side's snapshot so polling clients see
// progress without a database round trip. Write failures are non-fatal: the
// durable store remains the source of truth.
type StatusCache struct {
	client *redis.Client
}

func NewStatusCache(client *redis.Client) *StatusCache {
	return &StatusCache{client: client}
}

type snapshot struct {
	Status    model.JobStatus `json:"status"`
	Kind      model.MediaKind `json:"kind"`
	Progress  int             `json:"progress"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func (c *StatusCache) Set(ctx context.Context, job *model.Job, status model.JobStatus, progress int, errMsg string) error {
	data, err := json.Marshal(snapshot{
		Status:    status,
		Kind:      job.Kind,
		Progress:  progress,
		Error:     errMsg,
		CreatedAt: job.CreatedAt,
	})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statusKeyPrefix+job.ID, data, statusTTL).Err()
}
