package compressor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mediaCompressor/pkg/model"
)

func (c *Compressor) compressVideo(ctx context.Context, data []byte, ext string, opts model.CompressionOptions) (*Result, error) {
	info, err := c.codec.ProbeVideo(ctx, data, ext)
	if err != nil {
		c.logger.Warn("Rejecting unprobeable video", zap.Error(err))
		return &Result{Success: false}, nil
	}

	result := &Result{Success: true, Original: info}
	strip := !opts.KeepMetadata()

	format := opts.Format
	if format == "" {
		format = "mp4"
	}

	for _, height := range opts.Qualities {
		// Transcode targets never exceed the source height; the label still
		// reflects what the client asked for.
		target := height
		if info.Height > 0 && target > info.Height {
			target = info.Height
		}

		encoded, err := c.codec.TranscodeVideo(ctx, data, ext, target, format, strip)
		if err != nil {
			return nil, fmt.Errorf("transcode %dp: %w", height, err)
		}

		width := 0
		if info.Height > 0 {
			width = info.Width * target / info.Height
		}
		result.Variants = append(result.Variants, Variant{
			Label:  fmt.Sprintf("%dp", height),
			Data:   encoded,
			Format: format,
			Width:  width,
			Height: target,
		})
	}

	// Frame grabs are spaced evenly through the duration, skipping the very
	// start and end where black frames are common.
	for i := 0; i < opts.ThumbnailCount; i++ {
		offset := info.Duration * float64(i+1) / float64(opts.ThumbnailCount+1)
		frame, err := c.codec.ExtractFrame(ctx, data, ext, offset)
		if err != nil {
			return nil, fmt.Errorf("extract frame at %.1fs: %w", offset, err)
		}
		result.Thumbnails = append(result.Thumbnails, Thumbnail{
			Label:  fmt.Sprintf("%.1fs", offset),
			Data:   frame,
			Format: "jpeg",
		})
	}

	return result, nil
}

func (c *Compressor) compressAudio(ctx context.Context, data []byte, ext string, opts model.CompressionOptions) (*Result, error) {
	info, err := c.codec.ProbeAudio(ctx, data, ext)
	if err != nil {
		c.logger.Warn("Rejecting unprobeable audio", zap.Error(err))
		return &Result{Success: false}, nil
	}

	result := &Result{Success: true, Original: info}
	strip := !opts.KeepMetadata()

	format := opts.Format
	if format == "" {
		format = "mp3"
	}

	sampleRate := 0
	if len(opts.SampleRates) > 0 {
		sampleRate = opts.SampleRates[0]
	}

	for _, bitrate := range opts.Bitrates {
		encoded, err := c.codec.TranscodeAudio(ctx, data, ext, bitrate, sampleRate, format, strip)
		if err != nil {
			return nil, fmt.Errorf("transcode %dkbps: %w", bitrate, err)
		}
		result.Variants = append(result.Variants, Variant{
			Label:   fmt.Sprintf("%dkbps", bitrate),
			Data:    encoded,
			Format:  format,
			Bitrate: bitrate,
		})
	}

	return result, nil
}
