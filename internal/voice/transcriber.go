package voice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/kayz/scribe/internal/logger"
)

const (
	DefaultPrompt = "Write all text from audio. Language: Any"

	cleanupTimeout = 30 * time.Second
)

// Transcriber uploads an audio file to a provider, asks for its transcript
// and cleans up both copies afterwards.
type Transcriber struct {
	provider         Provider
	prompt           string
	uploadTimeout    time.Duration
	inferenceTimeout time.Duration
}

// TranscriberConfig holds transcriber configuration
type TranscriberConfig struct {
	Provider         string // "gemini" (default) or "openai"
	APIKey           string // API key for the provider
	BaseURL          string // Custom API base URL
	Model            string // Model name, provider default when empty
	Prompt           string
	UploadTimeout    time.Duration
	InferenceTimeout time.Duration
}

// NewTranscriber creates a new Transcriber
func NewTranscriber(ctx context.Context, cfg TranscriberConfig) (*Transcriber, error) {
	var provider Provider
	var err error

	switch cfg.Provider {
	case "gemini", "":
		provider, err = NewGeminiProvider(ctx, cfg.APIKey, cfg.BaseURL, cfg.Model)
	case "openai":
		provider, err = NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown voice provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, err
	}

	return NewWithProvider(provider, cfg), nil
}

// NewWithProvider wraps an already constructed provider.
func NewWithProvider(provider Provider, cfg TranscriberConfig) *Transcriber {
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return &Transcriber{
		provider:         provider,
		prompt:           prompt,
		uploadTimeout:    cfg.UploadTimeout,
		inferenceTimeout: cfg.InferenceTimeout,
	}
}

// ProviderName returns the name of the underlying provider
func (t *Transcriber) ProviderName() string {
	return t.provider.Name()
}

// Transcribe returns the text spoken in the audio file at audioPath.
// mimeType is the sender-declared type and may be empty.
//
// Once the upload succeeded the local file and the remote copy are deleted,
// whatever the outcome of the generation step. Deletion problems are logged
// and never change the result.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath, mimeType string) (string, error) {
	if err := checkReadable(audioPath); err != nil {
		logger.Error("[Voice] %v", err)
		return "", err
	}

	uploadCtx, cancel := withTimeout(ctx, t.uploadTimeout)
	file, err := t.provider.Upload(uploadCtx, audioPath, UploadType(mimeType, audioPath))
	cancel()
	if err != nil {
		logger.Error("[Voice] Upload of %s to %s failed: %v", audioPath, t.provider.Name(), err)
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	logger.Info("[Voice] File uploaded. ID: %s (from path: %s)", file.Name, audioPath)

	defer t.cleanup(ctx, file, audioPath)

	genCtx, cancel := withTimeout(ctx, t.inferenceTimeout)
	text, err := t.provider.Generate(genCtx, file, t.prompt)
	cancel()
	if err != nil {
		logger.Error("[Voice] Transcription of %s failed: %v", audioPath, err)
		return "", fmt.Errorf("%w: %v", ErrInference, err)
	}
	if text == "" {
		logger.Warn("[Voice] Empty transcript for %s", audioPath)
		return "", ErrEmptyTranscript
	}

	logger.Info("[Voice] Audio transcribed (%d chars). File: %s", len(text), audioPath)
	logger.Debug("[Voice] Transcript: %s", text)
	return text, nil
}

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		case errors.Is(err, fs.ErrPermission):
			return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		default:
			return fmt.Errorf("%w: %v", ErrUpload, err)
		}
	}
	return f.Close()
}

// cleanup runs on a context detached from cancellation so an expired request
// still releases its remote upload.
func (t *Transcriber) cleanup(ctx context.Context, file *RemoteFile, audioPath string) {
	if err := os.Remove(audioPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Error("[Voice] Can't delete file %s: %v", audioPath, err)
	} else {
		logger.Debug("[Voice] File deleted: %s", audioPath)
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := t.provider.Delete(cctx, file); err != nil {
		logger.Error("[Voice] Can't delete remote file %s: %v", file.Name, err)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
