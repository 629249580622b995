package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/kayz/scribe/internal/workpool"
)

func TestAudioPath(t *testing.T) {
	cases := map[string]string{
		"downloads/video_1.mp4":  "downloads/video_1.mp3",
		"downloads/clip.webm":    "downloads/clip.mp3",
		"downloads/AGADxyz.mp4":  "downloads/AGADxyz.mp3",
		"downloads/odd.MP3":      "downloads/odd_audio.mp3",
		"downloads/no_extension": "downloads/no_extension.mp3",
	}
	for in, want := range cases {
		if got := AudioPath(in); got != want {
			t.Fatalf("AudioPath(%q) = %q, want %q", in, got, want)
		}
	}
}

// writeScript writes an executable shell script standing in for ffmpeg or ffprobe.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return p
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-ins need a POSIX shell")
	}
}

func TestExtractAudioSuccessDeletesVideo(t *testing.T) {
	skipOnWindows(t)
	bin := t.TempDir()
	work := t.TempDir()

	ffprobe := writeScript(t, bin, "ffprobe", `echo 1`)
	// The output path is the last argument.
	ffmpeg := writeScript(t, bin, "ffmpeg", `for last; do :; done; printf 'ID3' > "$last"`)

	video := filepath.Join(work, "video_1.mp4")
	if err := os.WriteFile(video, []byte("fake video"), 0644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	e := NewExtractor(Config{FFmpegPath: ffmpeg, FFprobePath: ffprobe, Timeout: 5 * time.Second}, workpool.New(1))
	audio, err := e.ExtractAudio(context.Background(), video)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if audio != filepath.Join(work, "video_1.mp3") {
		t.Fatalf("unexpected audio path: %s", audio)
	}
	if _, err := os.Stat(audio); err != nil {
		t.Fatalf("audio missing: %v", err)
	}
	if _, err := os.Stat(video); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("video should be deleted after extraction")
	}
}

func TestExtractAudioNoAudioTrack(t *testing.T) {
	skipOnWindows(t)
	bin := t.TempDir()
	work := t.TempDir()

	ffprobe := writeScript(t, bin, "ffprobe", `exit 0`)
	ffmpeg := writeScript(t, bin, "ffmpeg", `echo "should not run" >&2; exit 1`)

	video := filepath.Join(work, "silent.mp4")
	if err := os.WriteFile(video, []byte("fake video"), 0644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	e := NewExtractor(Config{FFmpegPath: ffmpeg, FFprobePath: ffprobe}, nil)
	_, err := e.ExtractAudio(context.Background(), video)
	if !errors.Is(err, ErrNoAudioTrack) {
		t.Fatalf("expected ErrNoAudioTrack, got %v", err)
	}
	if _, err := os.Stat(video); err != nil {
		t.Fatalf("video should be left for the caller on failure: %v", err)
	}
}

func TestExtractAudioEncodeFailure(t *testing.T) {
	skipOnWindows(t)
	bin := t.TempDir()
	work := t.TempDir()

	ffprobe := writeScript(t, bin, "ffprobe", `echo 1`)
	ffmpeg := writeScript(t, bin, "ffmpeg", `for last; do :; done; printf 'partial' > "$last"; echo "Invalid data found" >&2; exit 1`)

	video := filepath.Join(work, "broken.mp4")
	if err := os.WriteFile(video, []byte("garbage"), 0644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	e := NewExtractor(Config{FFmpegPath: ffmpeg, FFprobePath: ffprobe}, nil)
	_, err := e.ExtractAudio(context.Background(), video)
	if !errors.Is(err, ErrExtractFailed) {
		t.Fatalf("expected ErrExtractFailed, got %v", err)
	}
	if _, err := os.Stat(AudioPath(video)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("partial output should be removed")
	}
}

func TestExtractAudioMissingBinary(t *testing.T) {
	work := t.TempDir()
	video := filepath.Join(work, "video.mp4")
	if err := os.WriteFile(video, []byte("x"), 0644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	e := NewExtractor(Config{
		FFmpegPath:  filepath.Join(work, "no-ffmpeg"),
		FFprobePath: filepath.Join(work, "no-ffprobe"),
	}, nil)
	if _, err := e.ExtractAudio(context.Background(), video); !errors.Is(err, ErrExtractFailed) {
		t.Fatalf("expected ErrExtractFailed, got %v", err)
	}
}
