package voice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

type fakeProvider struct {
	uploadErr   error
	generateErr error
	text        string
	block       bool

	uploaded  []string
	mimeTypes []string
	prompts   []string
	deleted   []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Upload(_ context.Context, path, mimeType string) (*RemoteFile, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploaded = append(f.uploaded, path)
	f.mimeTypes = append(f.mimeTypes, mimeType)
	return &RemoteFile{Name: "files/" + filepath.Base(path), LocalPath: path, MIMEType: mimeType}, nil
}

func (f *fakeProvider) Generate(ctx context.Context, _ *RemoteFile, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return f.text, nil
}

func (f *fakeProvider) Delete(_ context.Context, file *RemoteFile) error {
	f.deleted = append(f.deleted, file.Name)
	return nil
}

func writeAudio(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("ID3 fake audio"), 0644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return p
}

func assertGone(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected %s to be deleted (stat err=%v)", path, err)
	}
}

func TestTranscribeSuccessCleansUp(t *testing.T) {
	p := &fakeProvider{text: "hello world"}
	tr := NewWithProvider(p, TranscriberConfig{})
	audio := writeAudio(t, "voice_abc123.mp3")

	text, err := tr.Transcribe(context.Background(), audio, "")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("unexpected text: %q", text)
	}
	if len(p.prompts) != 1 || p.prompts[0] != DefaultPrompt {
		t.Fatalf("unexpected prompts: %#v", p.prompts)
	}
	if len(p.deleted) != 1 || p.deleted[0] != "files/voice_abc123.mp3" {
		t.Fatalf("remote file not deleted: %#v", p.deleted)
	}
	assertGone(t, audio)
}

func TestTranscribeMissingFile(t *testing.T) {
	p := &fakeProvider{text: "unused"}
	tr := NewWithProvider(p, TranscriberConfig{})

	_, err := tr.Transcribe(context.Background(), filepath.Join(t.TempDir(), "nope.mp3"), "")
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if len(p.uploaded) != 0 {
		t.Fatalf("upload should not be attempted")
	}
}

func TestTranscribePermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced here")
	}
	audio := writeAudio(t, "locked.mp3")
	if err := os.Chmod(audio, 0); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	tr := NewWithProvider(&fakeProvider{}, TranscriberConfig{})
	_, err := tr.Transcribe(context.Background(), audio, "")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestTranscribeUploadFailureKeepsLocalFile(t *testing.T) {
	p := &fakeProvider{uploadErr: errors.New("503")}
	tr := NewWithProvider(p, TranscriberConfig{})
	audio := writeAudio(t, "a.mp3")

	_, err := tr.Transcribe(context.Background(), audio, "")
	if !errors.Is(err, ErrUpload) {
		t.Fatalf("expected ErrUpload, got %v", err)
	}
	if len(p.deleted) != 0 {
		t.Fatalf("nothing was uploaded, nothing should be deleted remotely")
	}
	if _, err := os.Stat(audio); err != nil {
		t.Fatalf("local file is the caller's to clean up after a failed upload: %v", err)
	}
}

func TestTranscribeInferenceFailureStillCleansUp(t *testing.T) {
	p := &fakeProvider{generateErr: errors.New("model overloaded")}
	tr := NewWithProvider(p, TranscriberConfig{})
	audio := writeAudio(t, "b.mp3")

	_, err := tr.Transcribe(context.Background(), audio, "")
	if !errors.Is(err, ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
	if len(p.deleted) != 1 {
		t.Fatalf("remote file should be deleted after failed inference")
	}
	assertGone(t, audio)
}

func TestTranscribeInferenceTimeout(t *testing.T) {
	p := &fakeProvider{block: true}
	tr := NewWithProvider(p, TranscriberConfig{InferenceTimeout: 20 * time.Millisecond})
	audio := writeAudio(t, "c.mp3")

	_, err := tr.Transcribe(context.Background(), audio, "")
	if !errors.Is(err, ErrInference) {
		t.Fatalf("expected timeout to surface as ErrInference, got %v", err)
	}
	if len(p.deleted) != 1 {
		t.Fatalf("remote file should be deleted after timeout")
	}
}

func TestTranscribeEmptyText(t *testing.T) {
	p := &fakeProvider{text: ""}
	tr := NewWithProvider(p, TranscriberConfig{Prompt: "custom"})
	audio := writeAudio(t, "d.mp3")

	_, err := tr.Transcribe(context.Background(), audio, "")
	if !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("expected ErrEmptyTranscript, got %v", err)
	}
	if p.prompts[0] != "custom" {
		t.Fatalf("custom prompt not used: %q", p.prompts[0])
	}
}

func TestNewTranscriberUnknownProvider(t *testing.T) {
	if _, err := NewTranscriber(context.Background(), TranscriberConfig{Provider: "vosk", APIKey: "k"}); err == nil {
		t.Fatalf("expected unknown provider error")
	}
}

func TestMIMEType(t *testing.T) {
	cases := map[string]string{
		"voice_abc.mp3": "audio/mpeg",
		"audio_x.mpeg":  "audio/mpeg",
		"note.OGG":      "audio/ogg",
		"memo.m4a":      "audio/mp4",
		"take.flac":     "audio/flac",
		"mystery.bin":   "audio/mpeg",
		"no_extension":  "audio/mpeg",
	}
	for in, want := range cases {
		if got := MIMEType(in); got != want {
			t.Fatalf("MIMEType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUploadType(t *testing.T) {
	cases := []struct {
		declared, path, want string
	}{
		{"audio/ogg", "voice_abc.mp3", "audio/ogg"},
		{"Audio/OGG; codecs=opus", "voice_abc.mp3", "audio/ogg"},
		{"", "voice_abc.mp3", "audio/mpeg"},
		{"video/mp4", "clip.mp3", "audio/mpeg"},
		{"application/octet-stream", "memo.m4a", "audio/mp4"},
		{"audio/", "note.ogg", "audio/ogg"},
	}
	for _, tc := range cases {
		if got := UploadType(tc.declared, tc.path); got != tc.want {
			t.Fatalf("UploadType(%q, %q) = %q, want %q", tc.declared, tc.path, got, tc.want)
		}
	}
}

func TestTranscribeUploadsDeclaredType(t *testing.T) {
	p := &fakeProvider{text: "hello"}
	tr := NewWithProvider(p, TranscriberConfig{})

	if _, err := tr.Transcribe(context.Background(), writeAudio(t, "voice_abc.mp3"), "audio/ogg"); err != nil {
		t.Fatalf("transcribe voice: %v", err)
	}
	if _, err := tr.Transcribe(context.Background(), writeAudio(t, "clip.mp3"), ""); err != nil {
		t.Fatalf("transcribe extracted audio: %v", err)
	}
	if len(p.mimeTypes) != 2 || p.mimeTypes[0] != "audio/ogg" || p.mimeTypes[1] != "audio/mpeg" {
		t.Fatalf("unexpected upload types: %#v", p.mimeTypes)
	}
}
