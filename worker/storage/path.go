package storage

import (
	"fmt"
	"mime"

	"mediaCompressor/pkg/model"
)

// GeneratePath builds the deterministic object key for a job artifact:
// {kind}/{jobId}/{filename}. Deterministic keys make redelivered uploads
// overwrite rather than accumulate.
func GeneratePath(kind model.MediaKind, jobID, filename string) string {
	return fmt.Sprintf("%s/%s/%s", kind, jobID, filename)
}

// GenerateFilename names an artifact by role and label, e.g.
// "compressed-80.webp" or "thumbnail-200.jpeg".
func GenerateFilename(role, label, extension string) string {
	if label == "" {
		return fmt.Sprintf("%s.%s", role, extension)
	}
	return fmt.Sprintf("%s-%s.%s", role, label, extension)
}

// ContentType maps a target format/extension to its MIME type, falling back
// to application/octet-stream.
func ContentType(format string) string {
	if ct := mime.TypeByExtension("." + format); ct != "" {
		return ct
	}
	switch format {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	case "mp4":
		return "video/mp4"
	case "mp3":
		return "audio/mpeg"
	case "ogg":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
