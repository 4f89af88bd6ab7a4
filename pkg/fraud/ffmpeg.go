package fraud

// FFmpeg-backed media extraction. Frames and audio tracks land in scoped
// temporary files; the returned cleanup removes them and callers must invoke
// it on every exit path, including cancellation.

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FFmpegExtractor implements MediaExtractor with the ffmpeg and ffprobe
// binaries.
type FFmpegExtractor struct {
	ffmpegPath  string
	ffprobePath string
	tempDir     string
}

// NewFFmpegExtractor creates an extractor. Empty paths default to "ffmpeg"
// and "ffprobe" resolved from PATH; an empty tempDir uses the OS default.
func NewFFmpegExtractor(ffmpegPath, ffprobePath, tempDir string) *FFmpegExtractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &FFmpegExtractor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		tempDir:     tempDir,
	}
}

// ExtractFrame writes the first decodable frame to a temporary JPEG.
func (f *FFmpegExtractor) ExtractFrame(ctx context.Context, videoPath string) (string, func(), error) {
	out := filepath.Join(f.tempDir, "frame-"+uuid.NewString()+".jpg")
	cleanup := func() { _ = os.Remove(out) }

	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-y", "-i", videoPath,
		"-frames:v", "1", "-q:v", "2",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("ffmpeg frame extraction: %w: %s", err, truncateStderr(stderr.String()))
	}
	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		cleanup()
		return "", nil, fmt.Errorf("ffmpeg produced no frame for %s", videoPath)
	}
	return out, cleanup, nil
}

// ExtractAudioTrack writes the audio track to a temporary 16kHz mono WAV.
// Returns ErrNoAudioTrack when the video has no audio stream.
func (f *FFmpegExtractor) ExtractAudioTrack(ctx context.Context, videoPath string) (string, func(), error) {
	hasAudio, err := f.hasAudioStream(ctx, videoPath)
	if err != nil {
		return "", nil, fmt.Errorf("probe audio stream: %w", err)
	}
	if !hasAudio {
		return "", nil, ErrNoAudioTrack
	}

	out := filepath.Join(f.tempDir, "audio-"+uuid.NewString()+".wav")
	cleanup := func() { _ = os.Remove(out) }

	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-y", "-i", videoPath,
		"-vn", "-acodec", "pcm_s16le", "-ar", "16000", "-ac", "1",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("ffmpeg audio extraction: %w: %s", err, truncateStderr(stderr.String()))
	}
	return out, cleanup, nil
}

func (f *FFmpegExtractor) hasAudioStream(ctx context.Context, videoPath string) (bool, error) {
	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=codec_type",
		"-of", "csv=p=0",
		videoPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(out)) != "", nil
}

func truncateStderr(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 256 {
		return s[:256]
	}
	return s
}
