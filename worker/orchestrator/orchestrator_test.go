package orchestrator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"mediaCompressor/pkg/model"
	"mediaCompressor/worker/compressor"
)

type mockRepo struct {
	mu                 sync.Mutex
	markProcessingFunc func(ctx context.Context, id string, progress int) (bool, error)
	saveResultFunc     func(ctx context.Context, id string, result *model.Result) error
	failJobFunc        func(ctx context.Context, id string, message string) error

	progressLog []int
	savedResult *model.Result
	failMessage string
}

func (m *mockRepo) GetJob(ctx context.Context, id string) (*model.Job, error) {
	return nil, errors.New("not implemented")
}

func (m *mockRepo) MarkProcessing(ctx context.Context, id string, progress int) (bool, error) {
	if m.markProcessingFunc != nil {
		return m.markProcessingFunc(ctx, id, progress)
	}
	return true, nil
}

func (m *mockRepo) UpdateProgress(ctx context.Context, id string, progress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progressLog = append(m.progressLog, progress)
	return nil
}

func (m *mockRepo) SaveResult(ctx context.Context, id string, result *model.Result) error {
	m.mu.Lock()
	m.savedResult = result
	m.mu.Unlock()
	if m.saveResultFunc != nil {
		return m.saveResultFunc(ctx, id, result)
	}
	return nil
}

func (m *mockRepo) FailJob(ctx context.Context, id string, message string) error {
	m.mu.Lock()
	m.failMessage = message
	m.mu.Unlock()
	if m.failJobFunc != nil {
		return m.failJobFunc(ctx, id, message)
	}
	return nil
}

type mockStore struct {
	mu         sync.Mutex
	uploadFunc func(ctx context.Context, data []byte, path, contentType string) (string, error)
	uploads    []string
}

func (m *mockStore) Upload(ctx context.Context, data []byte, path, contentType string) (string, error) {
	m.mu.Lock()
	m.uploads = append(m.uploads, path)
	m.mu.Unlock()
	if m.uploadFunc != nil {
		return m.uploadFunc(ctx, data, path, contentType)
	}
	return "https://cdn.test/" + path, nil
}

func (m *mockStore) uploadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.uploads)
}

type mockCompressor struct {
	compressFunc func(ctx context.Context, data []byte, kind model.MediaKind, ext string, opts model.CompressionOptions) (*compressor.Result, error)
	calls        int
}

func (m *mockCompressor) Compress(ctx context.Context, data []byte, kind model.MediaKind, ext string, opts model.CompressionOptions) (*compressor.Result, error) {
	m.calls++
	if m.compressFunc != nil {
		return m.compressFunc(ctx, data, kind, ext, opts)
	}
	return &compressor.Result{Success: true}, nil
}

type mockCache struct {
	mu      sync.Mutex
	entries []string
}

func (m *mockCache) Set(ctx context.Context, job *model.Job, status model.JobStatus, progress int, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, fmt.Sprintf("%s:%d", status, progress))
	return nil
}

func imageJob(data []byte) *model.Job {
	return &model.Job{
		ID:     "11111111-2222-3333-4444-555555555555",
		Kind:   model.KindImage,
		Status: model.StatusQueued,
		Payload: model.Payload{
			Data:      base64.StdEncoding.EncodeToString(data),
			Extension: "jpg",
			Options: model.CompressionOptions{
				Qualities:      []int{80, 60},
				ThumbnailSizes: []int{200},
				Format:         "jpeg",
			},
		},
	}
}

func newOrchestrator(t *testing.T, repo *mockRepo, store *mockStore, comp *mockCompressor) (*Orchestrator, *mockCache) {
	t.Helper()
	cache := &mockCache{}
	return New(repo, cache, store, comp, zaptest.NewLogger(t)), cache
}

func TestProcessSuccess(t *testing.T) {
	original := make([]byte, 1_000_000)
	repo := &mockRepo{}
	store := &mockStore{}
	comp := &mockCompressor{
		compressFunc: func(ctx context.Context, data []byte, kind model.MediaKind, ext string, opts model.CompressionOptions) (*compressor.Result, error) {
			return &compressor.Result{
				Success:  true,
				Original: compressor.MediaInfo{Width: 1920, Height: 1080},
				Variants: []compressor.Variant{
					{Label: "80", Data: make([]byte, 400_000), Format: "jpeg", Width: 1920, Height: 1080},
					{Label: "60", Data: make([]byte, 200_000), Format: "jpeg", Width: 1920, Height: 1080},
				},
				Thumbnails: []compressor.Thumbnail{
					{Label: "200", Data: make([]byte, 10_000), Format: "jpeg", Width: 200, Height: 113},
				},
			}, nil
		},
	}

	orch, cache := newOrchestrator(t, repo, store, comp)
	job := imageJob(original)

	if err := orch.Process(context.Background(), job); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	res := repo.savedResult
	if res == nil {
		t.Fatal("expected result to be saved")
	}
	if len(res.Compressed) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(res.Compressed))
	}
	if res.Compressed[0].Label != "80" || res.Compressed[1].Label != "60" {
		t.Errorf("variant order broken: %q, %q", res.Compressed[0].Label, res.Compressed[1].Label)
	}
	if len(res.Thumbnails) != 1 {
		t.Fatalf("expected 1 thumbnail, got %d", len(res.Thumbnails))
	}
	if res.CompressionRatio != "60.00%" {
		t.Errorf("expected compression ratio 60.00%%, got %q", res.CompressionRatio)
	}
	if res.Original.URL == "" {
		t.Error("expected original URL to be set")
	}
	if !strings.Contains(res.Compressed[0].URL, "compressed-80.jpeg") {
		t.Errorf("variant URL does not match its label: %q", res.Compressed[0].URL)
	}
	if got := store.uploadCount(); got != 4 {
		t.Errorf("expected 4 uploads (original + 2 variants + 1 thumbnail), got %d", got)
	}
	if len(cache.entries) == 0 || cache.entries[len(cache.entries)-1] != "completed:100" {
		t.Errorf("expected final cache entry completed:100, got %v", cache.entries)
	}
	if len(repo.failMessage) != 0 {
		t.Errorf("unexpected failure recorded: %q", repo.failMessage)
	}
}

func TestProcessDuplicateDeliveryIsNoOp(t *testing.T) {
	repo := &mockRepo{
		markProcessingFunc: func(ctx context.Context, id string, progress int) (bool, error) {
			return false, nil
		},
	}
	store := &mockStore{}
	comp := &mockCompressor{}

	orch, _ := newOrchestrator(t, repo, store, comp)

	if err := orch.Process(context.Background(), imageJob([]byte("data"))); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if comp.calls != 0 {
		t.Errorf("compressor called %d times for an already-claimed job", comp.calls)
	}
	if store.uploadCount() != 0 {
		t.Errorf("uploads attempted for an already-claimed job")
	}
}

func TestProcessCompressionFailure(t *testing.T) {
	repo := &mockRepo{}
	store := &mockStore{}
	comp := &mockCompressor{
		compressFunc: func(ctx context.Context, data []byte, kind model.MediaKind, ext string, opts model.CompressionOptions) (*compressor.Result, error) {
			return &compressor.Result{Success: false}, nil
		},
	}

	orch, cache := newOrchestrator(t, repo, store, comp)

	if err := orch.Process(context.Background(), imageJob([]byte("not an image"))); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if repo.failMessage != "Compression failed" {
		t.Errorf("expected failure message %q, got %q", "Compression failed", repo.failMessage)
	}
	if store.uploadCount() != 0 {
		t.Errorf("expected no uploads after compression failure, got %d", store.uploadCount())
	}
	if repo.savedResult != nil {
		t.Error("result saved for a failed job")
	}
	// The failed snapshot carries the last checkpoint reached, not the
	// progress the job had when it was loaded.
	if last := cache.entries[len(cache.entries)-1]; last != "failed:30" {
		t.Errorf("final cache entry = %q, want failed:30", last)
	}
}

func TestProcessUploadFailure(t *testing.T) {
	repo := &mockRepo{}
	store := &mockStore{
		uploadFunc: func(ctx context.Context, data []byte, path, contentType string) (string, error) {
			if strings.Contains(path, "compressed-60") {
				return "", errors.New("connection reset")
			}
			return "https://cdn.test/" + path, nil
		},
	}
	comp := &mockCompressor{
		compressFunc: func(ctx context.Context, data []byte, kind model.MediaKind, ext string, opts model.CompressionOptions) (*compressor.Result, error) {
			return &compressor.Result{
				Success: true,
				Variants: []compressor.Variant{
					{Label: "80", Data: []byte("v80"), Format: "jpeg"},
					{Label: "60", Data: []byte("v60"), Format: "jpeg"},
				},
			}, nil
		},
	}

	orch, cache := newOrchestrator(t, repo, store, comp)

	if err := orch.Process(context.Background(), imageJob([]byte("data"))); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if repo.failMessage != "Upload failed" {
		t.Errorf("expected failure message %q, got %q", "Upload failed", repo.failMessage)
	}
	if repo.savedResult != nil {
		t.Error("result saved despite upload failure")
	}
	if last := cache.entries[len(cache.entries)-1]; last != "failed:70" {
		t.Errorf("final cache entry = %q, want failed:70", last)
	}
}

func TestProcessInvalidPayload(t *testing.T) {
	repo := &mockRepo{}
	store := &mockStore{}
	comp := &mockCompressor{}

	orch, _ := newOrchestrator(t, repo, store, comp)

	job := imageJob(nil)
	job.Payload.Data = "%%% not base64 %%%"

	if err := orch.Process(context.Background(), job); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if repo.failMessage != "Invalid job payload" {
		t.Errorf("expected failure message %q, got %q", "Invalid job payload", repo.failMessage)
	}
	if comp.calls != 0 {
		t.Error("compressor called with undecodable payload")
	}
}

func TestProcessSaveResultFailure(t *testing.T) {
	repo := &mockRepo{
		saveResultFunc: func(ctx context.Context, id string, result *model.Result) error {
			return errors.New("connection refused")
		},
	}
	comp := &mockCompressor{
		compressFunc: func(ctx context.Context, data []byte, kind model.MediaKind, ext string, opts model.CompressionOptions) (*compressor.Result, error) {
			return &compressor.Result{
				Success:  true,
				Variants: []compressor.Variant{{Label: "80", Data: []byte("v"), Format: "jpeg"}},
			}, nil
		},
	}

	orch, _ := newOrchestrator(t, repo, &mockStore{}, comp)

	if err := orch.Process(context.Background(), imageJob([]byte("data"))); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if repo.failMessage != "Failed to persist result" {
		t.Errorf("expected failure message %q, got %q", "Failed to persist result", repo.failMessage)
	}
}

func TestUploadCorrelationSurvivesReordering(t *testing.T) {
	// Delay uploads inversely to their position so the last variant's
	// upload finishes first.
	repo := &mockRepo{}
	store := &mockStore{
		uploadFunc: func(ctx context.Context, data []byte, path, contentType string) (string, error) {
			switch {
			case strings.Contains(path, "compressed-80"):
				time.Sleep(30 * time.Millisecond)
			case strings.Contains(path, "compressed-60"):
				time.Sleep(15 * time.Millisecond)
			}
			return "https://cdn.test/" + path, nil
		},
	}
	comp := &mockCompressor{
		compressFunc: func(ctx context.Context, data []byte, kind model.MediaKind, ext string, opts model.CompressionOptions) (*compressor.Result, error) {
			return &compressor.Result{
				Success: true,
				Variants: []compressor.Variant{
					{Label: "80", Data: []byte("v80"), Format: "jpeg"},
					{Label: "60", Data: []byte("v60"), Format: "jpeg"},
					{Label: "40", Data: []byte("v40"), Format: "jpeg"},
				},
			}, nil
		},
	}

	orch, _ := newOrchestrator(t, repo, store, comp)

	if err := orch.Process(context.Background(), imageJob(make([]byte, 100))); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	res := repo.savedResult
	if res == nil {
		t.Fatal("expected result to be saved")
	}
	for i, want := range []string{"80", "60", "40"} {
		if res.Compressed[i].Label != want {
			t.Fatalf("variant %d: expected label %q, got %q", i, want, res.Compressed[i].Label)
		}
		if !strings.Contains(res.Compressed[i].URL, "compressed-"+want+".jpeg") {
			t.Errorf("variant %d URL %q does not match label %q", i, res.Compressed[i].URL, want)
		}
	}
}

func TestProcessProgressCheckpoints(t *testing.T) {
	repo := &mockRepo{}
	comp := &mockCompressor{
		compressFunc: func(ctx context.Context, data []byte, kind model.MediaKind, ext string, opts model.CompressionOptions) (*compressor.Result, error) {
			return &compressor.Result{
				Success:  true,
				Variants: []compressor.Variant{{Label: "80", Data: []byte("v"), Format: "jpeg"}},
			}, nil
		},
	}

	orch, _ := newOrchestrator(t, repo, &mockStore{}, comp)

	if err := orch.Process(context.Background(), imageJob([]byte("data"))); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	want := []int{30, 70, 90}
	if len(repo.progressLog) != len(want) {
		t.Fatalf("expected %d progress updates, got %v", len(want), repo.progressLog)
	}
	for i, p := range want {
		if repo.progressLog[i] != p {
			t.Errorf("progress update %d: expected %d, got %d", i, p, repo.progressLog[i])
		}
	}
}

func TestCompressionRatio(t *testing.T) {
	tests := []struct {
		name     string
		original int64
		variant  int64
		want     string
	}{
		{"typical saving", 1_000_000, 400_000, "60.00%"},
		{"no variants", 1_000_000, 0, "0%"},
		{"empty original", 0, 100, "0%"},
		{"variant larger than original", 100, 150, "-50.00%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompressionRatio(tt.original, tt.variant); got != tt.want {
				t.Errorf("CompressionRatio(%d, %d) = %q, want %q", tt.original, tt.variant, got, tt.want)
			}
		})
	}
}
