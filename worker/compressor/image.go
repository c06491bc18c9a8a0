package compressor

import (
	"bytes"
	"fmt"
	"image"
	"strconv"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"mediaCompressor/pkg/model"
)

// compressImage re-encodes the source at each requested quality and renders
// fit-inside thumbnails. Re-encoding drops EXIF and other identifying
// metadata, which is the default behavior anyway.
func (c *Compressor) compressImage(data []byte, opts model.CompressionOptions) (*Result, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		c.logger.Warn("Rejecting undecodable image", zap.Error(err))
		return &Result{Success: false}, nil
	}

	bounds := src.Bounds()
	result := &Result{
		Success: true,
		Original: MediaInfo{
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		},
	}

	format := opts.Format
	if format == "" {
		format = "jpeg"
	}

	for _, quality := range opts.Qualities {
		encoded, err := encodeImage(src, format, quality)
		if err != nil {
			return nil, fmt.Errorf("encode quality %d: %w", quality, err)
		}
		result.Variants = append(result.Variants, Variant{
			Label:  strconv.Itoa(quality),
			Data:   encoded,
			Format: format,
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		})
	}

	for _, size := range opts.ThumbnailSizes {
		// Fit scales down only; a box larger than the source leaves the
		// image at its original dimensions.
		thumb := imaging.Fit(src, size, size, imaging.Lanczos)
		encoded, err := encodeImage(thumb, format, thumbQuality)
		if err != nil {
			return nil, fmt.Errorf("encode %dpx thumbnail: %w", size, err)
		}
		tb := thumb.Bounds()
		result.Thumbnails = append(result.Thumbnails, Thumbnail{
			Label:  strconv.Itoa(size),
			Data:   encoded,
			Format: format,
			Width:  tb.Dx(),
			Height: tb.Dy(),
		})
	}

	return result, nil
}

const thumbQuality = 80

func encodeImage(img image.Image, format string, quality int) ([]byte, error) {
	buf := new(bytes.Buffer)

	switch format {
	case "webp":
		if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
			return nil, err
		}
	case "png":
		if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
			return nil, err
		}
	case "jpg", "jpeg":
		if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, err
		}
	case "gif":
		if err := imaging.Encode(buf, img, imaging.GIF); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported image format: %s", format)
	}

	return buf.Bytes(), nil
}
