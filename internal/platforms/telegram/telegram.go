package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kayz/scribe/internal/logger"
	"github.com/kayz/scribe/internal/router"
)

// maxMessageLength is Telegram's limit for one text message, in characters.
const maxMessageLength = 4096

// ErrMalformedToken is returned by New when the token cannot be a bot token.
var ErrMalformedToken = errors.New("malformed Telegram bot token")

var tokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

// Handler receives every routable message. It is called on its own goroutine.
type Handler func(ctx context.Context, msg router.Message)

// Platform is the Telegram Bot API connection: long-polling receive loop,
// file downloads and replies.
type Platform struct {
	bot          *tgbotapi.BotAPI
	httpClient   *http.Client
	fileEndpoint string
	handler      Handler
	ctx          context.Context
	cancel       context.CancelFunc

	// mu orders dispatch against Stop so no handler starts once Stop waits.
	mu       sync.Mutex
	stopped  bool
	inflight sync.WaitGroup
}

// Config holds Telegram configuration
type Config struct {
	Token        string // Bot token from @BotFather
	APIEndpoint  string // Bot API endpoint format, tgbotapi.APIEndpoint when empty
	FileEndpoint string // File download endpoint format, tgbotapi.FileEndpoint when empty
	Debug        bool   // Enable debug logging
	HTTPClient   *http.Client
}

// New creates a new Telegram platform. It fails if the token is malformed or
// rejected by the Bot API.
func New(cfg Config) (*Platform, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("Telegram bot token is required")
	}
	if !tokenPattern.MatchString(cfg.Token) {
		return nil, ErrMalformedToken
	}
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	if cfg.FileEndpoint == "" {
		cfg.FileEndpoint = tgbotapi.FileEndpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	if err := tgbotapi.SetLogger(logger.Std()); err != nil {
		logger.Warn("[Telegram] Failed to set SDK logger: %v", err)
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.APIEndpoint, cfg.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	bot.Debug = cfg.Debug

	return &Platform{
		bot:          bot,
		httpClient:   cfg.HTTPClient,
		fileEndpoint: cfg.FileEndpoint,
	}, nil
}

// Name returns the platform name
func (p *Platform) Name() string {
	return "telegram"
}

// BotUsername returns the bot's @username.
func (p *Platform) BotUsername() string {
	return p.bot.Self.UserName
}

// SetMessageHandler sets the callback for incoming messages
func (p *Platform) SetMessageHandler(handler Handler) {
	p.handler = handler
}

// Start begins listening for Telegram updates
func (p *Platform) Start(ctx context.Context) error {
	if p.handler == nil {
		return fmt.Errorf("no message handler set")
	}
	p.ctx, p.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message"}

	updates := p.bot.GetUpdatesChan(u)

	go p.handleUpdates(updates)

	logger.Info("[Telegram] Connected as bot: @%s", p.bot.Self.UserName)
	return nil
}

// Stop shuts down the Telegram connection and waits for in-flight messages.
func (p *Platform) Stop() error {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	p.bot.StopReceivingUpdates()
	p.inflight.Wait()
	return nil
}

// handleUpdates processes incoming Telegram updates
func (p *Platform) handleUpdates(updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-p.ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}

			// Skip messages from bots
			if update.Message.From != nil && update.Message.From.IsBot {
				continue
			}

			msg, ok := toMessage(update.Message)
			if !ok {
				logger.Trace("[Telegram] Ignoring message %d: no supported media", update.Message.MessageID)
				continue
			}

			if !p.dispatch(msg) {
				return
			}
		}
	}
}

// dispatch runs the handler for msg on its own goroutine. It reports false
// once Stop has begun.
func (p *Platform) dispatch(msg router.Message) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return false
	}
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		p.handler(p.ctx, msg)
	}()
	return true
}

// toMessage converts a Telegram message into a routable one. It reports false
// for messages that carry neither supported media nor a command.
func toMessage(m *tgbotapi.Message) (router.Message, bool) {
	msg := router.Message{
		ID: m.MessageID,
	}
	if m.Chat != nil {
		msg.ChatID = m.Chat.ID
	}
	if m.From != nil {
		msg.UserID = m.From.ID
		msg.Username = m.From.UserName
	}

	switch {
	case m.Voice != nil:
		msg.Kind = router.KindVoice
		msg.Media = router.Media{
			FileID:   m.Voice.FileID,
			UniqueID: m.Voice.FileUniqueID,
			MimeType: m.Voice.MimeType,
			FileSize: int64(m.Voice.FileSize),
		}
	case m.Audio != nil:
		msg.Kind = router.KindAudio
		msg.Media = router.Media{
			FileID:   m.Audio.FileID,
			UniqueID: m.Audio.FileUniqueID,
			FileName: m.Audio.FileName,
			MimeType: m.Audio.MimeType,
			FileSize: int64(m.Audio.FileSize),
		}
	case m.Video != nil:
		msg.Kind = router.KindVideo
		msg.Media = router.Media{
			FileID:   m.Video.FileID,
			UniqueID: m.Video.FileUniqueID,
			FileName: m.Video.FileName,
			MimeType: m.Video.MimeType,
			FileSize: int64(m.Video.FileSize),
		}
	case m.VideoNote != nil:
		// Video notes carry no file name or MIME type.
		msg.Kind = router.KindVideoNote
		msg.Media = router.Media{
			FileID:   m.VideoNote.FileID,
			UniqueID: m.VideoNote.FileUniqueID,
			FileSize: int64(m.VideoNote.FileSize),
		}
	case m.IsCommand():
		msg.Command = strings.ToLower(m.Command())
	default:
		return router.Message{}, false
	}
	return msg, true
}

// Download resolves fileID and streams the file to dest.
func (p *Platform) Download(ctx context.Context, fileID, dest string) error {
	file, err := p.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return fmt.Errorf("failed to get file info: %w", err)
	}
	if file.FilePath == "" {
		return fmt.Errorf("file %s has no download path", fileID)
	}

	fileURL := fmt.Sprintf(p.fileEndpoint, p.bot.Token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download file: status %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return nil
}

// Reply answers msg with text. Text over Telegram's length limit goes out as
// consecutive messages; the first one is threaded to msg.
func (p *Platform) Reply(ctx context.Context, msg router.Message, text string) error {
	for i, chunk := range splitMessage(text, maxMessageLength) {
		if err := ctx.Err(); err != nil {
			return err
		}
		out := tgbotapi.NewMessage(msg.ChatID, chunk)
		if i == 0 {
			out.ReplyToMessageID = msg.ID
			out.AllowSendingWithoutReply = true
		}
		if _, err := p.bot.Send(out); err != nil {
			return err
		}
	}
	return nil
}

// splitMessage cuts text into pieces of at most limit characters, preferring
// line breaks, then spaces.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		if cut == limit {
			for i := limit; i > limit/2; i-- {
				if runes[i-1] == ' ' {
					cut = i
					break
				}
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
