// Package media turns downloaded video files into mp3 audio with ffmpeg.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kayz/scribe/internal/logger"
	"github.com/kayz/scribe/internal/workpool"
)

var (
	// ErrNoAudioTrack means the video has no audio stream to extract.
	ErrNoAudioTrack = errors.New("video has no audio track")
	// ErrExtractFailed wraps probe and encode failures.
	ErrExtractFailed = errors.New("audio extraction failed")
)

// Config holds extractor settings.
type Config struct {
	FFmpegPath  string
	FFprobePath string
	Timeout     time.Duration
}

// Extractor extracts audio tracks from local video files.
type Extractor struct {
	ffmpeg  string
	ffprobe string
	timeout time.Duration
	pool    *workpool.Pool
}

// NewExtractor creates an Extractor whose ffmpeg runs are bounded by pool.
func NewExtractor(cfg Config, pool *workpool.Pool) *Extractor {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if pool == nil {
		pool = workpool.New(1)
	}
	return &Extractor{
		ffmpeg:  cfg.FFmpegPath,
		ffprobe: cfg.FFprobePath,
		timeout: cfg.Timeout,
		pool:    pool,
	}
}

// AudioPath returns the mp3 path derived from a video path.
func AudioPath(videoPath string) string {
	ext := filepath.Ext(videoPath)
	base := strings.TrimSuffix(videoPath, ext)
	if strings.EqualFold(ext, ".mp3") {
		return base + "_audio.mp3"
	}
	return base + ".mp3"
}

// ExtractAudio writes the audio track of videoPath to an mp3 next to it,
// deletes the video and returns the mp3 path. On failure the video is left in
// place for the caller to clean up.
func (e *Extractor) ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	audioPath := AudioPath(videoPath)

	err := e.pool.Do(ctx, func(ctx context.Context) error {
		hasAudio, err := e.hasAudioStream(ctx, videoPath)
		if err != nil {
			return err
		}
		if !hasAudio {
			return ErrNoAudioTrack
		}
		return e.encode(ctx, videoPath, audioPath)
	})
	if err != nil {
		logger.Error("[Media] Error converting audio from video %s: %v", videoPath, err)
		removePartial(audioPath)
		if errors.Is(err, ErrNoAudioTrack) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrExtractFailed, err)
	}

	logger.Info("[Media] Audio converted from video: %s", videoPath)

	if err := os.Remove(videoPath); err != nil {
		logger.Error("[Media] Can't delete video %s: %v", videoPath, err)
	} else {
		logger.Debug("[Media] Video deleted: %s", videoPath)
	}

	return audioPath, nil
}

func (e *Extractor) hasAudioStream(ctx context.Context, videoPath string) (bool, error) {
	cmd := exec.CommandContext(ctx, e.ffprobe,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=index",
		"-of", "csv=p=0",
		videoPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(string(out)) != "", nil
}

func (e *Extractor) encode(ctx context.Context, videoPath, audioPath string) error {
	// ffmpeg -nostdin -y -i input -vn -acodec libmp3lame -q:a 4 output.mp3
	cmd := exec.CommandContext(ctx, e.ffmpeg,
		"-nostdin",
		"-loglevel", "error",
		"-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "4",
		audioPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(output)))
	}
	if info, err := os.Stat(audioPath); err != nil || info.Size() == 0 {
		return fmt.Errorf("ffmpeg produced no output at %s", audioPath)
	}
	return nil
}

func removePartial(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Error("[Media] Can't delete partial output %s: %v", path, err)
	}
}
