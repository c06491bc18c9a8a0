package validation

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"mediaCompressor/pkg/model"
)

// DetectMedia sniffs the file content and verifies it matches the media kind
// the client claimed by hitting the kind-specific endpoint. Returns the
// detected MIME type and preferred extension (without the dot).
func DetectMedia(data []byte, kind model.MediaKind) (contentType, extension string, err error) {
	if len(data) == 0 {
		return "", "", ErrEmptyFile
	}

	mt := mimetype.Detect(data)
	if !kindMatches(mt.String(), kind) {
		return "", "", ErrInvalidFileType
	}

	ext := strings.TrimPrefix(mt.Extension(), ".")
	if ext == "" {
		ext = "bin"
	}
	return mt.String(), ext, nil
}

func kindMatches(mime string, kind model.MediaKind) bool {
	switch kind {
	case model.KindImage:
		return strings.HasPrefix(mime, "image/")
	case model.KindVideo:
		return strings.HasPrefix(mime, "video/")
	case model.KindAudio:
		// mp3 files are occasionally sniffed as application/octet-stream
		// by generic detectors; mimetype identifies them as audio/mpeg.
		return strings.HasPrefix(mime, "audio/")
	default:
		return false
	}
}
