// Package router runs the per-message pipeline: download, optional audio
// extraction, transcription and exactly one reply.
package router

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kayz/scribe/internal/logger"
	"github.com/kayz/scribe/internal/scratch"
	"github.com/kayz/scribe/internal/security"
)

// Platform is the chat connection the router downloads from and replies to.
type Platform interface {
	Download(ctx context.Context, fileID, dest string) error
	Reply(ctx context.Context, msg Message, text string) error
}

// AudioExtractor turns a local video into a local audio file.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath string) (string, error)
}

// Transcriber turns a local audio file into text. mimeType is the
// sender-declared type of the file and may be empty.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, mimeType string) (string, error)
}

// Stage identifies the pipeline step that failed.
type Stage int

const (
	StageValidate Stage = iota + 1
	StageDownload
	StageExtract
	StageTranscribe
)

func (s Stage) String() string {
	switch s {
	case StageValidate:
		return "validate"
	case StageDownload:
		return "download"
	case StageExtract:
		return "extract"
	case StageTranscribe:
		return "transcribe"
	default:
		return "unknown"
	}
}

// StageError is a failed pipeline step together with the text the user gets.
// Returning one ends the pipeline; the handler sends Reply and nothing else.
type StageError struct {
	Stage Stage
	Reply string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ErrTooLarge is the cause of a StageValidate error for oversized videos.
var ErrTooLarge = errors.New("declared file size exceeds limit")

// Config wires the router's collaborators.
type Config struct {
	Platform        Platform
	Extractor       AudioExtractor
	Transcriber     Transcriber
	Scratch         *scratch.Dir
	AllowList       *security.AllowList
	MaxVideoBytes   int64
	DownloadTimeout time.Duration
	ReplyTimeout    time.Duration
}

// Router dispatches inbound messages to their kind's handling sequence.
// It holds no per-message state and is safe for concurrent use.
type Router struct {
	platform        Platform
	extractor       AudioExtractor
	transcriber     Transcriber
	scratch         *scratch.Dir
	allow           *security.AllowList
	maxVideoBytes   int64
	downloadTimeout time.Duration
	replyTimeout    time.Duration
}

// New creates a Router.
func New(cfg Config) *Router {
	if cfg.MaxVideoBytes <= 0 {
		cfg.MaxVideoBytes = 20 << 20
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = 30 * time.Second
	}
	return &Router{
		platform:        cfg.Platform,
		extractor:       cfg.Extractor,
		transcriber:     cfg.Transcriber,
		scratch:         cfg.Scratch,
		allow:           cfg.AllowList,
		maxVideoBytes:   cfg.MaxVideoBytes,
		downloadTimeout: cfg.DownloadTimeout,
		replyTimeout:    cfg.ReplyTimeout,
	}
}

// HandleMessage runs msg through its pipeline and replies once. Nothing
// escapes it: errors and panics become apology replies.
func (r *Router) HandleMessage(ctx context.Context, msg Message) {
	reqID := uuid.NewString()[:8]

	if !r.allow.Allows(msg.UserID, msg.Username) {
		logger.Debug("[Router] [%s] Ignoring %s from user %d (@%s): not in allow list", reqID, msg.Kind, msg.UserID, msg.Username)
		return
	}

	if msg.Command != "" {
		r.handleCommand(ctx, reqID, msg)
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("[Router] [%s] Panic handling %s: %v\n%s", reqID, msg.Kind, rec, debug.Stack())
			r.reply(ctx, reqID, msg, replyGeneric)
		}
	}()

	logger.Info("[Router] [%s] %s message %d in chat %d from @%s", reqID, msg.Kind, msg.ID, msg.ChatID, msg.Username)

	text, err := r.process(ctx, reqID, msg)
	if err != nil {
		var se *StageError
		if !errors.As(err, &se) {
			se = &StageError{Reply: replyGeneric, Err: err}
		}
		logger.Error("[Router] [%s] %s message %d failed at %s: %v", reqID, msg.Kind, msg.ID, se.Stage, se.Err)
		r.reply(ctx, reqID, msg, se.Reply)
		return
	}

	logger.Info("[Router] [%s] Transcription successful: %s", reqID, preview(text, 100))
	r.reply(ctx, reqID, msg, text)
}

func (r *Router) handleCommand(ctx context.Context, reqID string, msg Message) {
	switch msg.Command {
	case "start", "help":
		r.reply(ctx, reqID, msg, replyUsage)
	default:
		logger.Debug("[Router] [%s] Ignoring unknown command /%s", reqID, msg.Command)
	}
}

// process runs download -> [extract] -> transcribe. Every local file it
// creates is removed before it returns.
func (r *Router) process(ctx context.Context, reqID string, msg Message) (string, error) {
	var created []string
	defer func() {
		for _, p := range created {
			r.scratch.Remove(p)
		}
	}()

	if msg.Kind == KindVideo && msg.Media.FileSize > r.maxVideoBytes {
		return "", &StageError{
			Stage: StageValidate,
			Reply: tooLargeReply(r.maxVideoBytes),
			Err:   fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, msg.Media.FileSize, r.maxVideoBytes),
		}
	}

	name, err := LocalName(msg)
	if err != nil {
		return "", &StageError{Stage: StageValidate, Reply: replyGeneric, Err: err}
	}

	path, err := r.scratch.Path(name)
	if err != nil {
		return "", &StageError{Stage: StageDownload, Reply: downloadReply(msg.Kind), Err: err}
	}
	created = append(created, path)

	if err := r.download(ctx, msg, path); err != nil {
		return "", &StageError{Stage: StageDownload, Reply: downloadReply(msg.Kind), Err: err}
	}
	logger.Info("[Router] [%s] %s downloaded as: %s", reqID, msg.Kind, name)

	audioPath, mimeType := path, msg.Media.MimeType
	if msg.Kind == KindVideo || msg.Kind == KindVideoNote {
		mimeType = ""
		audioPath, err = r.extractor.ExtractAudio(ctx, path)
		if err != nil {
			return "", &StageError{Stage: StageExtract, Reply: extractReply(msg.Kind), Err: err}
		}
		created = append(created, audioPath)
		logger.Info("[Router] [%s] Path to mp3 from %s: %s", reqID, msg.Kind, audioPath)
	}

	text, err := r.transcriber.Transcribe(ctx, audioPath, mimeType)
	if err != nil {
		return "", &StageError{Stage: StageTranscribe, Reply: transcribeReply(err, audioPath), Err: err}
	}
	return text, nil
}

func (r *Router) download(ctx context.Context, msg Message, path string) error {
	if err := r.scratch.Ensure(); err != nil {
		return err
	}
	if err := r.scratch.EnsureRoom(ctx, msg.Media.FileSize); err != nil {
		return err
	}

	if r.downloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.downloadTimeout)
		defer cancel()
	}
	return r.platform.Download(ctx, msg.Media.FileID, path)
}

// reply sends text on a context detached from the request so that a timed-out
// or shutting-down request still answers the user.
func (r *Router) reply(ctx context.Context, reqID string, msg Message, text string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.replyTimeout)
	defer cancel()

	if err := r.platform.Reply(rctx, msg, text); err != nil {
		logger.Error("[Router] [%s] Failed to reply to message %d in chat %d: %v", reqID, msg.ID, msg.ChatID, err)
	}
}

// LocalName derives the scratch file name for msg's attachment.
func LocalName(msg Message) (string, error) {
	m := msg.Media
	if m.FileID == "" && msg.Kind != KindVideoNote {
		return "", fmt.Errorf("%s message has no file id", msg.Kind)
	}

	switch msg.Kind {
	case KindVoice:
		return "voice_" + m.FileID + ".mp3", nil
	case KindAudio:
		if name := scratch.SanitizeName(m.FileName); name != "" {
			return name, nil
		}
		return "audio_" + m.FileID + "." + mimeExtension(m.MimeType, "mp3"), nil
	case KindVideo:
		if name := scratch.SanitizeName(m.FileName); name != "" {
			return name, nil
		}
		return "video_" + m.FileID + "." + mimeExtension(m.MimeType, "mp4"), nil
	case KindVideoNote:
		id := m.UniqueID
		if id == "" {
			id = m.FileID
		}
		if id == "" {
			return "", fmt.Errorf("video note has no file id")
		}
		return id + ".mp4", nil
	default:
		return "", fmt.Errorf("unsupported message kind %s", msg.Kind)
	}
}

// mimeExtension returns the subtype of mimeType ("audio/ogg" -> "ogg"), or def.
func mimeExtension(mimeType, def string) string {
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	mimeType = strings.TrimSpace(mimeType)
	if i := strings.LastIndex(mimeType, "/"); i >= 0 {
		mimeType = mimeType[i+1:]
	}
	ext := scratch.SanitizeName(mimeType)
	if ext == "" {
		return def
	}
	return ext
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
