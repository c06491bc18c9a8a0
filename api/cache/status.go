package cache

import (
	"context"
	"encoding/json"
	"time"

	"mediaCompressor/api/database"
	"mediaCompressor/pkg/model"
)

const (
	statusKeyPrefix = "job:status:"
	statusTTL       = 10 * time.Minute
)

// Snapshot is the small slice of a Job worth keeping hot: polling clients
// hit this every few seconds while a job is in flight.
type Snapshot struct {
	Status    model.JobStatus `json:"status"`
	Kind      model.MediaKind `json:"kind"`
	Progress  int             `json:"progress"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type StatusCache struct {
	cache *database.Cache
}

func NewStatusCache(cache *database.Cache) *StatusCache {
	return &StatusCache{cache: cache}
}

func (sc *StatusCache) Get(ctx context.Context, jobID string) (*Snapshot, error) {
	data, err := sc.cache.Get(ctx, statusKeyPrefix+jobID)
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, err
	}

	return &snap, nil
}

func (sc *StatusCache) Set(ctx context.Context, jobID string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	return sc.cache.Set(ctx, statusKeyPrefix+jobID, data, statusTTL)
}

func (sc *StatusCache) Delete(ctx context.Context, jobID string) error {
	return sc.cache.Del(ctx, statusKeyPrefix+jobID)
}
