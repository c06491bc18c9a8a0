package orchestrator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mediaCompressor/pkg/model"
	"mediaCompressor/worker/compressor"
	"mediaCompressor/worker/repository"
	"mediaCompressor/worker/storage"
)

// Compressor is what the orchestrator needs from the media compressor;
// tests substitute a fake.
type Compressor interface {
	Compress(ctx context.Context, data []byte, kind model.MediaKind, ext string, opts model.CompressionOptions) (*compressor.Result, error)
}

// StatusCache mirrors status/progress for polling clients; failures here are
// never fatal.
type StatusCache interface {
	Set(ctx context.Context, job *model.Job, status model.JobStatus, progress int, errMsg string) error
}

// Orchestrator drives one job from queued to a terminal state. All mutation
// goes through the repository's guarded updates; the orchestrator never
// writes back a cached copy of the job.
type Orchestrator struct {
	repo       repository.Repository
	cache      StatusCache
	store      storage.Store
	compressor Compressor
	logger     *zap.Logger
}

func New(repo repository.Repository, cache StatusCache, store storage.Store, comp Compressor, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		repo:       repo,
		cache:      cache,
		store:      store,
		compressor: comp,
		logger:     logger,
	}
}

// jobFailure carries the client-visible message for a failed job separately
// from the diagnostic cause.
type jobFailure struct {
	msg   string
	cause error
}

func (f *jobFailure) Error() string {
	if f.cause != nil {
		return fmt.Sprintf("%s: %v", f.msg, f.cause)
	}
	return f.msg
}

func failure(msg string, cause error) error {
	return &jobFailure{msg: msg, cause: cause}
}

// Process runs one delivery of a job. The compare-and-set claim in
// MarkProcessing is the only mutual exclusion: a duplicate delivery finds
// the job already claimed and becomes a no-op. Every processing error is
// converted to a terminal failed state here; only infrastructure errors
// (store unreachable before the job was claimed) escape to the caller.
func (o *Orchestrator) Process(ctx context.Context, job *model.Job) error {
	claimed, err := o.repo.MarkProcessing(ctx, job.ID, acceptProgress)
	if err != nil {
		return fmt.Errorf("claim job %s: %w", job.ID, err)
	}
	if !claimed {
		o.logger.Info("Job already claimed or finished, skipping",
			zap.String("job_id", job.ID),
		)
		return nil
	}
	job.Progress = acceptProgress
	o.setCache(ctx, job, model.StatusProcessing, acceptProgress, "")

	if err := o.run(ctx, job); err != nil {
		o.fail(ctx, job, err)
	}
	return nil
}

const (
	acceptProgress     = 10
	compressProgressAV = 30
	// video transcodes dominate the wall clock, so the checkpoint before
	// them sits lower
	compressProgressVideo = 20
	uploadProgress        = 70
	assembleProgress      = 90
)

func (o *Orchestrator) run(ctx context.Context, job *model.Job) error {
	data, err := base64.StdEncoding.DecodeString(job.Payload.Data)
	if err != nil {
		return failure("Invalid job payload", err)
	}

	checkpoint := compressProgressAV
	if job.Kind == model.KindVideo {
		checkpoint = compressProgressVideo
	}
	o.advance(ctx, job, checkpoint)

	res, err := o.compressor.Compress(ctx, data, job.Kind, job.Payload.Extension, job.Payload.Options)
	if err != nil || !res.Success {
		return failure("Compression failed", err)
	}

	o.advance(ctx, job, uploadProgress)

	uploaded, err := o.uploadAll(ctx, job, data, res)
	if err != nil {
		return failure("Upload failed", err)
	}

	o.advance(ctx, job, assembleProgress)

	result := o.assemble(job, data, res, uploaded)

	if err := o.repo.SaveResult(ctx, job.ID, result); err != nil {
		return failure("Failed to persist result", err)
	}
	o.setCache(ctx, job, model.StatusCompleted, 100, "")

	o.logger.Info("Job completed",
		zap.String("job_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.Int("variants", len(result.Compressed)),
		zap.Int("thumbnails", len(result.Thumbnails)),
		zap.String("compression_ratio", result.CompressionRatio),
	)
	return nil
}

// uploadedURLs holds upload outcomes addressed by the index of the variant
// or thumbnail that produced them. Index-addressed writes keep the
// variant→URL correlation stable no matter which upload finishes first.
type uploadedURLs struct {
	original   string
	variants   []string
	thumbnails []string
}

func (o *Orchestrator) uploadAll(ctx context.Context, job *model.Job, original []byte, res *compressor.Result) (*uploadedURLs, error) {
	urls := &uploadedURLs{
		variants:   make([]string, len(res.Variants)),
		thumbnails: make([]string, len(res.Thumbnails)),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		path := storage.GeneratePath(job.Kind, job.ID,
			storage.GenerateFilename("original", "", job.Payload.Extension))
		url, err := o.store.Upload(gctx, original, path, storage.ContentType(job.Payload.Extension))
		if err != nil {
			return err
		}
		urls.original = url
		return nil
	})

	for i, v := range res.Variants {
		g.Go(func() error {
			path := storage.GeneratePath(job.Kind, job.ID,
				storage.GenerateFilename("compressed", v.Label, v.Format))
			url, err := o.store.Upload(gctx, v.Data, path, storage.ContentType(v.Format))
			if err != nil {
				return err
			}
			urls.variants[i] = url
			return nil
		})
	}

	for i, t := range res.Thumbnails {
		g.Go(func() error {
			path := storage.GeneratePath(job.Kind, job.ID,
				storage.GenerateFilename("thumbnail", t.Label, t.Format))
			url, err := o.store.Upload(gctx, t.Data, path, storage.ContentType(t.Format))
			if err != nil {
				return err
			}
			urls.thumbnails[i] = url
			return nil
		})
	}

	// First failure aborts the job; siblings already uploaded are accepted
	// as orphaned blobs, there is no compensating delete.
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

func (o *Orchestrator) assemble(job *model.Job, original []byte, res *compressor.Result, urls *uploadedURLs) *model.Result {
	result := &model.Result{
		Original: model.OriginalInfo{
			URL:      urls.original,
			Size:     int64(len(original)),
			Width:    res.Original.Width,
			Height:   res.Original.Height,
			Duration: res.Original.Duration,
			Format:   job.Payload.Extension,
		},
		Compressed: make([]model.Variant, len(res.Variants)),
	}

	for i, v := range res.Variants {
		result.Compressed[i] = model.Variant{
			Label:   v.Label,
			URL:     urls.variants[i],
			Size:    int64(len(v.Data)),
			Format:  v.Format,
			Width:   v.Width,
			Height:  v.Height,
			Bitrate: v.Bitrate,
		}
	}

	for i, t := range res.Thumbnails {
		result.Thumbnails = append(result.Thumbnails, model.Thumbnail{
			Label:  t.Label,
			URL:    urls.thumbnails[i],
			Size:   int64(len(t.Data)),
			Width:  t.Width,
			Height: t.Height,
			Format: t.Format,
		})
	}

	var firstVariantSize int64
	if len(res.Variants) > 0 {
		firstVariantSize = int64(len(res.Variants[0].Data))
	}
	result.CompressionRatio = CompressionRatio(int64(len(original)), firstVariantSize)

	return result
}

// CompressionRatio reports the size saved by the first (highest quality)
// variant, formatted to two decimals. With no variant it is "0%", never a
// division by zero.
func CompressionRatio(originalSize, firstVariantSize int64) string {
	if originalSize <= 0 || firstVariantSize <= 0 {
		return "0%"
	}
	ratio := float64(originalSize-firstVariantSize) / float64(originalSize) * 100
	return fmt.Sprintf("%.2f%%", ratio)
}

func (o *Orchestrator) advance(ctx context.Context, job *model.Job, progress int) {
	if err := o.repo.UpdateProgress(ctx, job.ID, progress); err != nil {
		o.logger.Warn("Failed to update progress",
			zap.String("job_id", job.ID),
			zap.Int("progress", progress),
			zap.Error(err),
		)
		return
	}
	// job.Progress mirrors the durable row so a later failure snapshot
	// carries the last checkpoint actually reached.
	job.Progress = progress
	o.setCache(ctx, job, model.StatusProcessing, progress, "")
}

func (o *Orchestrator) fail(ctx context.Context, job *model.Job, cause error) {
	msg := "Processing failed"
	var jf *jobFailure
	if errors.As(cause, &jf) {
		msg = jf.msg
	}

	o.logger.Error("Job failed",
		zap.String("job_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.String("message", msg),
		zap.Error(cause),
	)

	// Recording the failure must not fail silently; if the durable write
	// errors there is nothing left to do but log it loudly.
	if err := o.repo.FailJob(ctx, job.ID, msg); err != nil {
		o.logger.Error("FATAL: failed to record job failure",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		return
	}
	o.setCache(ctx, job, model.StatusFailed, job.Progress, msg)
}

func (o *Orchestrator) setCache(ctx context.Context, job *model.Job, status model.JobStatus, progress int, errMsg string) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Set(ctx, job, status, progress, errMsg); err != nil {
		o.logger.Warn("Failed to update status cache",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
	}
}
