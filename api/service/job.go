package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mediaCompressor/api/cache"
	"mediaCompressor/api/config"
	"mediaCompressor/api/dto"
	"mediaCompressor/api/kafka"
	"mediaCompressor/api/repository"
	"mediaCompressor/pkg/model"
)

// ErrQueueUnavailable is returned when the durable store or the delivery
// transport cannot accept a new job. The job is never left silently queued.
var ErrQueueUnavailable = errors.New("queue unavailable")

var estimatedTimes = map[model.MediaKind]string{
	model.KindImage: "30-60 seconds",
	model.KindVideo: "2-5 minutes",
	model.KindAudio: "1-2 minutes",
}

// StatusCache is the read-through snapshot store in front of the durable
// job table.
type StatusCache interface {
	Get(ctx context.Context, jobID string) (*cache.Snapshot, error)
	Set(ctx context.Context, jobID string, snap cache.Snapshot) error
}

type JobService struct {
	repo     repository.Repository
	cache    StatusCache
	producer kafka.Producer
	topic    string
	defaults config.CompressionDefaults
	logger   *zap.Logger
}

func NewJobService(repo repository.Repository, cache StatusCache, producer kafka.Producer, cfg *config.Config, logger *zap.Logger) *JobService {
	return &JobService{
		repo:     repo,
		cache:    cache,
		producer: producer,
		topic:    cfg.KafkaTopic,
		defaults: cfg.Defaults,
		logger:   logger,
	}
}

// Enqueue persists a new job and schedules its delivery. The file bytes are
// base64-encoded into the immutable payload; option defaults are resolved
// here so nothing downstream has to invent them.
func (s *JobService) Enqueue(ctx context.Context, traceID string, kind model.MediaKind, fileData []byte, extension, apiKey string, req *dto.CompressRequest) (*dto.EnqueueResponse, error) {
	job := &model.Job{
		ID:       uuid.New().String(),
		Kind:     kind,
		Status:   model.StatusQueued,
		Progress: 0,
		Payload: model.Payload{
			Data:      base64.StdEncoding.EncodeToString(fileData),
			Extension: extension,
			APIKey:    apiKey,
			Options:   s.resolveOptions(kind, req),
		},
	}

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	if err := s.cache.Set(ctx, job.ID, cache.Snapshot{
		Status:    model.StatusQueued,
		Kind:      kind,
		CreatedAt: job.CreatedAt,
	}); err != nil {
		s.logger.Warn("Failed to prime status cache",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
	}

	msg := &kafka.JobMessage{JobID: job.ID, TraceID: traceID}
	if err := s.producer.SendJobMessage(ctx, s.topic, msg); err != nil {
		// The row exists but nothing will ever consume it; fail it so the
		// client sees a terminal state instead of an eternal "queued".
		if ferr := s.repo.FailJob(ctx, job.ID, "Queue unavailable"); ferr != nil {
			s.logger.Error("Failed to back out undeliverable job",
				zap.String("job_id", job.ID),
				zap.Error(ferr),
			)
		}
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	return &dto.EnqueueResponse{
		Success:       true,
		JobID:         job.ID,
		Status:        string(model.StatusQueued),
		EstimatedTime: estimatedTimes[kind],
		Message:       fmt.Sprintf("%s compression job created", kind),
	}, nil
}

// GetJobStatus is a pure poll: it never blocks waiting for completion.
// Non-terminal snapshots are served from the cache; terminal states always
// come from the durable store so results are included.
func (s *JobService) GetJobStatus(ctx context.Context, jobID string) (*dto.StatusResponse, error) {
	if snap, err := s.cache.Get(ctx, jobID); err == nil && !snap.Status.Terminal() {
		return &dto.StatusResponse{
			Success:   true,
			JobID:     jobID,
			Status:    string(snap.Status),
			Type:      string(snap.Kind),
			CreatedAt: snap.CreatedAt.Format("2006-01-02T15:04:05Z"),
			Progress:  snap.Progress,
		}, nil
	}

	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, dto.ErrJobNotFound
		}
		return nil, err
	}

	// Only terminal snapshots are written back. The worker owns in-flight
	// progress; a write-back of a stale read here could race a concurrent
	// worker update and roll another poller's progress backwards.
	if job.Status.Terminal() {
		if err := s.cache.Set(ctx, job.ID, cache.Snapshot{
			Status:    job.Status,
			Kind:      job.Kind,
			Progress:  job.Progress,
			Error:     job.Error,
			CreatedAt: job.CreatedAt,
		}); err != nil {
			s.logger.Warn("Failed to refresh status cache",
				zap.String("job_id", job.ID),
				zap.Error(err),
			)
		}
	}

	return s.toStatusResponse(job), nil
}

func (s *JobService) resolveOptions(kind model.MediaKind, req *dto.CompressRequest) model.CompressionOptions {
	opts := model.CompressionOptions{
		Qualities:      req.Qualities,
		Bitrates:       req.Bitrates,
		ThumbnailSizes: req.ThumbnailSizes,
		ThumbnailCount: req.ThumbnailCount,
		SampleRates:    req.SampleRates,
		Format:         req.Format,
		StripMetadata:  req.StripMetadata,
	}

	switch kind {
	case model.KindImage:
		if len(opts.Qualities) == 0 {
			opts.Qualities = s.defaults.ImageQualities
		}
		if len(opts.ThumbnailSizes) == 0 {
			opts.ThumbnailSizes = s.defaults.ImageThumbSizes
		}
		if opts.Format == "" {
			opts.Format = s.defaults.ImageFormat
		}
	case model.KindVideo:
		if len(opts.Qualities) == 0 {
			opts.Qualities = s.defaults.VideoHeights
		}
		if opts.ThumbnailCount == 0 {
			opts.ThumbnailCount = s.defaults.VideoThumbCount
		}
		if opts.Format == "" {
			opts.Format = s.defaults.VideoFormat
		}
	case model.KindAudio:
		if len(opts.Bitrates) == 0 {
			opts.Bitrates = s.defaults.AudioBitrates
		}
		if len(opts.SampleRates) == 0 {
			opts.SampleRates = []int{s.defaults.AudioSampleRate}
		}
		if opts.Format == "" {
			opts.Format = s.defaults.AudioFormat
		}
	}

	return opts
}

func (s *JobService) toStatusResponse(job *model.Job) *dto.StatusResponse {
	var completedAt *string
	if job.CompletedAt != nil {
		formatted := job.CompletedAt.Format("2006-01-02T15:04:05Z")
		completedAt = &formatted
	}

	return &dto.StatusResponse{
		Success:     true,
		JobID:       job.ID,
		Status:      string(job.Status),
		Type:        string(job.Kind),
		CreatedAt:   job.CreatedAt.Format("2006-01-02T15:04:05Z"),
		CompletedAt: completedAt,
		Progress:    job.Progress,
		Error:       job.Error,
		Results:     job.Result,
	}
}
