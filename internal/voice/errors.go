package voice

import "errors"

// Transcribe failures. Each one is terminal for the call; nothing is retried.
var (
	ErrFileNotFound     = errors.New("audio file not found")
	ErrPermissionDenied = errors.New("permission denied reading audio file")
	ErrUpload           = errors.New("failed to upload audio")
	ErrInference        = errors.New("failed to transcribe audio")
	ErrEmptyTranscript  = errors.New("transcription returned no text")
)
