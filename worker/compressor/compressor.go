package compressor

import (
	"context"

	"go.uber.org/zap"

	"mediaCompressor/pkg/model"
)

// MediaInfo describes the source media as probed by the codec or decoder.
type MediaInfo struct {
	Width    int
	Height   int
	Duration float64
}

// Codec is the external transcoding capability video and audio compression
// delegates to. Implementations must be safe for concurrent use.
type Codec interface {
	ProbeVideo(ctx context.Context, data []byte, ext string) (MediaInfo, error)
	TranscodeVideo(ctx context.Context, data []byte, ext string, height int, format string, stripMetadata bool) ([]byte, error)
	ExtractFrame(ctx context.Context, data []byte, ext string, offsetSec float64) ([]byte, error)
	ProbeAudio(ctx context.Context, data []byte, ext string) (MediaInfo, error)
	TranscodeAudio(ctx context.Context, data []byte, ext string, bitrateKbps, sampleRate int, format string, stripMetadata bool) ([]byte, error)
}

// Variant is one compressed rendition, still in memory. Variants preserve
// the order of the requested qualities/bitrates.
type Variant struct {
	Label   string
	Data    []byte
	Format  string
	Width   int
	Height  int
	Bitrate int
}

type Thumbnail struct {
	Label  string
	Data   []byte
	Format string
	Width  int
	Height int
}

// Result reports Success=false for input that is structurally invalid for
// the claimed media kind; the compressor does not treat bad input as an
// error condition.
type Result struct {
	Success    bool
	Original   MediaInfo
	Variants   []Variant
	Thumbnails []Thumbnail
}

type Compressor struct {
	codec  Codec
	logger *zap.Logger
}

func New(codec Codec, logger *zap.Logger) *Compressor {
	return &Compressor{codec: codec, logger: logger}
}

// Compress produces exactly one variant per requested quality/bitrate plus
// any requested thumbnails. It is a pure function of its inputs; it holds no
// shared mutable state.
func (c *Compressor) Compress(ctx context.Context, data []byte, kind model.MediaKind, ext string, opts model.CompressionOptions) (*Result, error) {
	switch kind {
	case model.KindImage:
		return c.compressImage(data, opts)
	case model.KindVideo:
		return c.compressVideo(ctx, data, ext, opts)
	case model.KindAudio:
		return c.compressAudio(ctx, data, ext, opts)
	default:
		return &Result{Success: false}, nil
	}
}
