package voice

import (
	"context"
	"mime"
	"path/filepath"
	"strings"
)

// RemoteFile is the provider's handle for an uploaded audio file.
type RemoteFile struct {
	Name      string // provider-side identifier, empty when nothing was uploaded
	URI       string
	MIMEType  string
	LocalPath string
}

// Provider is a speech-to-text backend that works on uploaded files.
type Provider interface {
	Name() string
	// Upload makes the local file available to Generate as mimeType.
	Upload(ctx context.Context, path, mimeType string) (*RemoteFile, error)
	// Generate returns the text spoken in file, following prompt.
	Generate(ctx context.Context, file *RemoteFile, prompt string) (string, error)
	// Delete removes the provider-side copy of file.
	Delete(ctx context.Context, file *RemoteFile) error
}

var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".mpeg": "audio/mpeg",
	".mpga": "audio/mpeg",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/ogg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".webm": "audio/webm",
}

// MIMEType guesses the audio MIME type of path from its extension. Unknown
// extensions fall back to audio/mpeg.
func MIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := audioTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); strings.HasPrefix(t, "audio/") {
		if i := strings.Index(t, ";"); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return "audio/mpeg"
}

// UploadType picks the MIME type sent with an upload: the declared type when
// it names an audio format, otherwise a guess from path. Voice notes are
// stored as .mp3 but declared as audio/ogg, so the declared type wins.
func UploadType(declared, path string) string {
	t := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.Index(t, ";"); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if strings.HasPrefix(t, "audio/") && len(t) > len("audio/") {
		return t
	}
	return MIMEType(path)
}
