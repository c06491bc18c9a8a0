package model

import (
	"time"
)

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether a job in this status may never change state again.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
)

func ParseKind(s string) (MediaKind, bool) {
	switch MediaKind(s) {
	case KindImage, KindVideo, KindAudio:
		return MediaKind(s), true
	default:
		return "", false
	}
}

// Job is one compression request's durable record. The payload is immutable
// after creation; all other mutation funnels through the repositories.
type Job struct {
	ID          string
	Kind        MediaKind
	Status      JobStatus
	Progress    int
	Payload     Payload
	Result      *Result
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Payload carries the original file across the queue boundary.
// Data is base64-encoded for jsonb transport.
type Payload struct {
	Data      string             `json:"data"`
	Extension string             `json:"extension"`
	APIKey    string             `json:"api_key,omitempty"`
	Options   CompressionOptions `json:"options"`
}

// CompressionOptions holds the per-kind tuning knobs. All fields are optional
// at the API boundary; defaults come from configuration before enqueue.
type CompressionOptions struct {
	// image: JPEG/WebP quality percentages, one variant each
	// video: target heights in pixels, one variant each
	Qualities []int `json:"qualities,omitempty"`
	// audio: target bitrates in kbps, one variant each
	Bitrates []int `json:"bitrates,omitempty"`
	// image: thumbnail bounding boxes in pixels
	ThumbnailSizes []int `json:"thumbnail_sizes,omitempty"`
	// video: number of evenly spaced frame grabs
	ThumbnailCount int    `json:"thumbnail_count,omitempty"`
	SampleRates    []int  `json:"sample_rates,omitempty"`
	Format         string `json:"format,omitempty"`
	StripMetadata  *bool  `json:"strip_metadata,omitempty"`
}

func (o CompressionOptions) KeepMetadata() bool {
	return o.StripMetadata != nil && !*o.StripMetadata
}

// Result is present only on completed jobs. Compressed preserves the order
// of the requested qualities/bitrates; Thumbnails the order of the requested
// sizes (or timestamps for video).
type Result struct {
	Original         OriginalInfo `json:"original"`
	Compressed       []Variant    `json:"compressed"`
	Thumbnails       []Thumbnail  `json:"thumbnails,omitempty"`
	CompressionRatio string       `json:"compression_ratio"`
}

type OriginalInfo struct {
	URL      string  `json:"url"`
	Size     int64   `json:"size"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Format   string  `json:"format,omitempty"`
}

type Variant struct {
	Label   string `json:"label"`
	URL     string `json:"url"`
	Size    int64  `json:"size"`
	Format  string `json:"format"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Bitrate int    `json:"bitrate,omitempty"`
}

type Thumbnail struct {
	Label  string `json:"label"`
	URL    string `json:"url"`
	Size   int64  `json:"size"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}
