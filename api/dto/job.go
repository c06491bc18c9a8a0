package dto

import (
	"errors"

	"mediaCompressor/pkg/model"
)

var ErrJobNotFound = errors.New("job not found")

// CompressRequest carries the kind-specific option fields of a multipart
// upload. Arrays arrive JSON-encoded in their form fields.
type CompressRequest struct {
	Qualities      []int  `validate:"omitempty,max=10,dive,gt=0"`
	Bitrates       []int  `validate:"omitempty,max=10,dive,gt=0"`
	ThumbnailSizes []int  `validate:"omitempty,max=10,dive,gt=0,lte=4096"`
	ThumbnailCount int    `validate:"omitempty,gte=0,lte=20"`
	SampleRates    []int  `validate:"omitempty,max=5,dive,gt=0"`
	Format         string `validate:"omitempty,alphanum,max=8"`
	StripMetadata  *bool
}

type EnqueueResponse struct {
	Success       bool   `json:"success"`
	JobID         string `json:"jobId"`
	Status        string `json:"status"`
	EstimatedTime string `json:"estimatedTime"`
	Message       string `json:"message"`
}

type StatusResponse struct {
	Success     bool          `json:"success"`
	JobID       string        `json:"jobId"`
	Status      string        `json:"status"`
	Type        string        `json:"type"`
	CreatedAt   string        `json:"createdAt"`
	CompletedAt *string       `json:"completedAt,omitempty"`
	Progress    int           `json:"progress"`
	Error       string        `json:"error,omitempty"`
	Results     *model.Result `json:"results"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	TraceID string `json:"traceId,omitempty"`
}
