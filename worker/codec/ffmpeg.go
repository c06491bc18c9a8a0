package codec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"mediaCompressor/worker/compressor"
)

// FFMPEG shells out to ffmpeg/ffprobe. Most containers (mp4 in particular)
// need seekable output, so every call round-trips through temp files instead
// of pipes.
type FFMPEG struct {
	FFMPEGPath  string
	FFProbePath string
	TempDir     string
}

func NewFFMPEG(ffmpegPath, ffprobePath, tempDir string) *FFMPEG {
	return &FFMPEG{
		FFMPEGPath:  ffmpegPath,
		FFProbePath: ffprobePath,
		TempDir:     tempDir,
	}
}

var _ compressor.Codec = (*FFMPEG)(nil)

type probeOutput struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (f *FFMPEG) ProbeVideo(ctx context.Context, data []byte, ext string) (compressor.MediaInfo, error) {
	return f.probe(ctx, data, ext, "v:0")
}

func (f *FFMPEG) ProbeAudio(ctx context.Context, data []byte, ext string) (compressor.MediaInfo, error) {
	return f.probe(ctx, data, ext, "a:0")
}

func (f *FFMPEG) probe(ctx context.Context, data []byte, ext, stream string) (compressor.MediaInfo, error) {
	in, cleanup, err := f.tempInput(data, ext)
	if err != nil {
		return compressor.MediaInfo{}, err
	}
	defer cleanup()

	cmd := exec.CommandContext(ctx, f.FFProbePath,
		"-v", "error",
		"-select_streams", stream,
		"-show_entries", "stream=width,height",
		"-show_entries", "format=duration",
		"-of", "json",
		in,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return compressor.MediaInfo{}, fmt.Errorf("ffprobe: %w: %s", err, stderr.String())
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return compressor.MediaInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return compressor.MediaInfo{}, fmt.Errorf("no %s stream found", stream)
	}

	duration, _ := strconv.ParseFloat(out.Format.Duration, 64)

	return compressor.MediaInfo{
		Width:    out.Streams[0].Width,
		Height:   out.Streams[0].Height,
		Duration: duration,
	}, nil
}

func (f *FFMPEG) TranscodeVideo(ctx context.Context, data []byte, ext string, height int, format string, stripMetadata bool) ([]byte, error) {
	args := []string{
		"-vf", fmt.Sprintf("scale=-2:%d", height),
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "28",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
	}
	args = append(args, metadataArgs(stripMetadata)...)

	return f.run(ctx, data, ext, format, args)
}

func (f *FFMPEG) ExtractFrame(ctx context.Context, data []byte, ext string, offsetSec float64) ([]byte, error) {
	args := []string{
		"-ss", fmt.Sprintf("%.3f", offsetSec),
		"-frames:v", "1",
		"-q:v", "3",
	}

	return f.run(ctx, data, ext, "jpg", args)
}

func (f *FFMPEG) TranscodeAudio(ctx context.Context, data []byte, ext string, bitrateKbps, sampleRate int, format string, stripMetadata bool) ([]byte, error) {
	args := []string{
		"-vn",
		"-b:a", fmt.Sprintf("%dk", bitrateKbps),
	}
	if sampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(sampleRate))
	}
	args = append(args, metadataArgs(stripMetadata)...)

	return f.run(ctx, data, ext, format, args)
}

func metadataArgs(strip bool) []string {
	if strip {
		return []string{"-map_metadata", "-1"}
	}
	return []string{"-map_metadata", "0"}
}

func (f *FFMPEG) run(ctx context.Context, data []byte, inExt, outExt string, args []string) ([]byte, error) {
	in, cleanup, err := f.tempInput(data, inExt)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	out := filepath.Join(f.TempDir, uuid.New().String()+"."+outExt)
	defer os.Remove(out)

	full := append([]string{"-y", "-i", in}, args...)
	full = append(full, out)

	cmd := exec.CommandContext(ctx, f.FFMPEGPath, full...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, stderr.String())
	}

	encoded, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("read ffmpeg output: %w", err)
	}
	return encoded, nil
}

func (f *FFMPEG) tempInput(data []byte, ext string) (string, func(), error) {
	path := filepath.Join(f.TempDir, uuid.New().String()+"."+ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", nil, fmt.Errorf("write temp input: %w", err)
	}
	return path, func() { os.Remove(path) }, nil
}
