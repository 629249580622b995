package router

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/kayz/scribe/internal/voice"
)

const (
	replyVoiceDownload    = "Can't download voice. Please try again."
	replyAudioDownload    = "Can't download audio. Please try again."
	replyVideoDownload    = "Failed to download the video. Ensure the file is sent as a video (not a link or document)."
	replyVideoNoteFailed  = "Can't get text from video note. Please, try again."
	replyVideoExtract     = "Failed to extract audio from the video. The file may be corrupted or unsupported."
	replyVideoNoteExtract = "Can't get text from videos. Please, try again."
	replyUpload           = "Can't upload audio. Please try again."
	replyInference        = "Can't translate audio. Please try again."
	replyEmptyTranscript  = "Failed to transcribe audio. The audio may be unclear or too short."
	replyGeneric          = "Something went wrong. Please try again."
	replyTooLargeFormat   = "File size exceeds the %sMB limit. Please send a smaller video."
	replyFileNotFoundFmt  = "Error: Could not find the file '%s'. Please check the path."
	replyPermissionFmt    = "Error: Do not have permission to read the file '%s'."
	replyUsage            = "Send me a voice message, an audio file, a video or a video note and I will reply with its text."
)

func downloadReply(kind Kind) string {
	switch kind {
	case KindVoice:
		return replyVoiceDownload
	case KindAudio:
		return replyAudioDownload
	case KindVideo:
		return replyVideoDownload
	case KindVideoNote:
		return replyVideoNoteFailed
	default:
		return replyGeneric
	}
}

func extractReply(kind Kind) string {
	if kind == KindVideoNote {
		return replyVideoNoteExtract
	}
	return replyVideoExtract
}

func tooLargeReply(maxBytes int64) string {
	return fmt.Sprintf(replyTooLargeFormat, formatMB(maxBytes))
}

// formatMB renders n bytes in MiB: whole numbers as is, anything else with
// one decimal rounded up so the limit is never understated.
func formatMB(n int64) string {
	const mib = 1 << 20
	if n%mib == 0 {
		return strconv.FormatInt(n/mib, 10)
	}
	tenths := (n*10 + mib - 1) / mib
	return fmt.Sprintf("%d.%d", tenths/10, tenths%10)
}

// transcribeReply maps a Transcriber error to its user-facing message.
func transcribeReply(err error, audioPath string) string {
	name := filepath.Base(audioPath)
	switch {
	case errors.Is(err, voice.ErrFileNotFound):
		return fmt.Sprintf(replyFileNotFoundFmt, name)
	case errors.Is(err, voice.ErrPermissionDenied):
		return fmt.Sprintf(replyPermissionFmt, name)
	case errors.Is(err, voice.ErrUpload):
		return replyUpload
	case errors.Is(err, voice.ErrInference):
		return replyInference
	case errors.Is(err, voice.ErrEmptyTranscript):
		return replyEmptyTranscript
	default:
		return replyGeneric
	}
}
