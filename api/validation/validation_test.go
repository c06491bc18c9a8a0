package validation

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"net/url"
	"testing"

	"mediaCompressor/pkg/model"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, image.NewNRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDetectMediaImage(t *testing.T) {
	contentType, ext, err := DetectMedia(pngBytes(t), model.KindImage)
	if err != nil {
		t.Fatalf("DetectMedia returned error: %v", err)
	}
	if contentType != "image/png" {
		t.Errorf("contentType = %q, want image/png", contentType)
	}
	if ext != "png" {
		t.Errorf("extension = %q, want png", ext)
	}
}

func TestDetectMediaKindMismatch(t *testing.T) {
	_, _, err := DetectMedia(pngBytes(t), model.KindAudio)
	if !errors.Is(err, ErrInvalidFileType) {
		t.Fatalf("expected ErrInvalidFileType, got %v", err)
	}
}

func TestDetectMediaEmpty(t *testing.T) {
	_, _, err := DetectMedia(nil, model.KindImage)
	if !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
}

func TestParseOptions(t *testing.T) {
	form := url.Values{}
	form.Set("qualities", "[80,60,40]")
	form.Set("thumbnailSizes", "[150]")
	form.Set("thumbnailCount", "3")
	form.Set("format", "webp")
	form.Set("stripMetadata", "false")

	req, err := ParseOptions(form)
	if err != nil {
		t.Fatalf("ParseOptions returned error: %v", err)
	}
	if len(req.Qualities) != 3 || req.Qualities[2] != 40 {
		t.Errorf("qualities = %v", req.Qualities)
	}
	if len(req.ThumbnailSizes) != 1 || req.ThumbnailSizes[0] != 150 {
		t.Errorf("thumbnailSizes = %v", req.ThumbnailSizes)
	}
	if req.ThumbnailCount != 3 {
		t.Errorf("thumbnailCount = %d", req.ThumbnailCount)
	}
	if req.Format != "webp" {
		t.Errorf("format = %q", req.Format)
	}
	if req.StripMetadata == nil || *req.StripMetadata {
		t.Errorf("stripMetadata = %v", req.StripMetadata)
	}
}

func TestParseOptionsEmptyForm(t *testing.T) {
	req, err := ParseOptions(url.Values{})
	if err != nil {
		t.Fatalf("ParseOptions returned error: %v", err)
	}
	if req.Qualities != nil || req.Format != "" || req.StripMetadata != nil {
		t.Errorf("empty form produced options: %+v", req)
	}
}

func TestParseOptionsRejects(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
	}{
		{"malformed list", "qualities", "80,60"},
		{"non-numeric count", "thumbnailCount", "three"},
		{"negative quality", "qualities", "[-5]"},
		{"oversized thumbnail", "thumbnailSizes", "[9999]"},
		{"format with path characters", "format", "../etc"},
		{"bogus bool", "stripMetadata", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{}
			form.Set(tt.field, tt.value)
			if _, err := ParseOptions(form); !errors.Is(err, ErrInvalidOptions) {
				t.Errorf("expected ErrInvalidOptions, got %v", err)
			}
		})
	}
}
