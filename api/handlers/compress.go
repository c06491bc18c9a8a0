package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"mediaCompressor/api/dto"
	"mediaCompressor/api/middleware"
	"mediaCompressor/api/service"
	"mediaCompressor/api/validation"
	"mediaCompressor/pkg/model"
)

// JobService is the slice of the service layer the handlers need; tests
// substitute a mock.
type JobService interface {
	Enqueue(ctx context.Context, traceID string, kind model.MediaKind, fileData []byte, extension, apiKey string, req *dto.CompressRequest) (*dto.EnqueueResponse, error)
	GetJobStatus(ctx context.Context, jobID string) (*dto.StatusResponse, error)
}

type JobHandler struct {
	service     JobService
	logger      *zap.Logger
	maxFileSize int64
}

func NewJobHandler(service JobService, logger *zap.Logger, maxFileSize int64) *JobHandler {
	return &JobHandler{
		service:     service,
		logger:      logger,
		maxFileSize: maxFileSize,
	}
}

func (h *JobHandler) CompressImage(w http.ResponseWriter, r *http.Request) {
	h.compress(w, r, model.KindImage)
}

func (h *JobHandler) CompressVideo(w http.ResponseWriter, r *http.Request) {
	h.compress(w, r, model.KindVideo)
}

func (h *JobHandler) CompressAudio(w http.ResponseWriter, r *http.Request) {
	h.compress(w, r, model.KindAudio)
}

func (h *JobHandler) compress(w http.ResponseWriter, r *http.Request, kind model.MediaKind) {
	traceID := middleware.GetTraceID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.handleError(w, "Failed to parse form", err, traceID, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.handleError(w, "Failed to get file", err, traceID, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > h.maxFileSize {
		h.handleError(w, "Invalid file", validation.ErrFileTooLarge, traceID, http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.handleError(w, "Failed to read file", err, traceID, http.StatusInternalServerError)
		return
	}

	_, extension, err := validation.DetectMedia(data, kind)
	if err != nil {
		h.handleError(w, "Invalid file", err, traceID, http.StatusBadRequest)
		return
	}

	req, err := validation.ParseOptions(url.Values(r.MultipartForm.Value))
	if err != nil {
		h.handleError(w, "Invalid options", err, traceID, http.StatusBadRequest)
		return
	}

	apiKey := r.Header.Get("X-API-Key")

	resp, err := h.service.Enqueue(r.Context(), traceID, kind, data, extension, apiKey, req)
	if err != nil {
		if errors.Is(err, service.ErrQueueUnavailable) {
			h.handleError(w, "Service temporarily unavailable", err, traceID, http.StatusInternalServerError)
			return
		}
		h.handleError(w, "Failed to create job", err, traceID, http.StatusInternalServerError)
		return
	}

	h.logger.Info("Job enqueued",
		zap.String("trace_id", traceID),
		zap.String("job_id", resp.JobID),
		zap.String("kind", string(kind)),
		zap.String("filename", header.Filename),
		zap.Int64("size", header.Size),
	)

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *JobHandler) handleError(w http.ResponseWriter, message string, err error, traceID string, status int) {
	h.logger.Error(message,
		zap.String("trace_id", traceID),
		zap.Error(err),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Success: false,
		Error:   message,
		TraceID: traceID,
	})
}

func (h *JobHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
