package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/kayz/scribe/internal/config"
	"github.com/kayz/scribe/internal/cron"
	"github.com/kayz/scribe/internal/logger"
	"github.com/kayz/scribe/internal/media"
	"github.com/kayz/scribe/internal/platforms/telegram"
	"github.com/kayz/scribe/internal/router"
	"github.com/kayz/scribe/internal/scratch"
	"github.com/kayz/scribe/internal/security"
	"github.com/kayz/scribe/internal/voice"
	"github.com/kayz/scribe/internal/workpool"
	"github.com/spf13/cobra"
)

// app is the wired bot: platform, pipeline and scratch janitor.
type app struct {
	platform  *telegram.Platform
	scheduler *cron.Scheduler
}

func runBot(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("[Scribe] Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		logger.Fatal("[Scribe] %v", err)
	}

	if err := a.scheduler.Start(); err != nil {
		logger.Fatal("[Scribe] Failed to start scratch janitor: %v", err)
	}
	if err := a.platform.Start(ctx); err != nil {
		logger.Fatal("[Scribe] Failed to start Telegram: %v", err)
	}

	logger.Info("[Scribe] Bot started. Provider: %s, scratch dir: %s", cfg.AI.Provider, cfg.Scratch.Dir)
	logger.Info("[Scribe] Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("[Scribe] Shutting down...")
	cancel()
	a.platform.Stop()
	a.scheduler.Stop()
}

// newApp builds every component from cfg. It fails on a malformed or rejected
// bot token and on an unusable transcription provider.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	transcriber, err := voice.NewTranscriber(ctx, voice.TranscriberConfig{
		Provider:         cfg.AI.Provider,
		APIKey:           cfg.AI.APIKey,
		BaseURL:          cfg.AI.BaseURL,
		Model:            cfg.AI.Model,
		Prompt:           cfg.AI.Prompt,
		UploadTimeout:    cfg.Timeouts.Upload,
		InferenceTimeout: cfg.Timeouts.Inference,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transcriber: %w", err)
	}

	for _, tool := range []string{cfg.Media.FFmpegPath, cfg.Media.FFprobePath} {
		if _, err := exec.LookPath(tool); err != nil {
			logger.Warn("[Scribe] %s not found in PATH, video messages will fail: %v", tool, err)
		}
	}
	extractor := media.NewExtractor(media.Config{
		FFmpegPath:  cfg.Media.FFmpegPath,
		FFprobePath: cfg.Media.FFprobePath,
		Timeout:     cfg.Timeouts.Extract,
	}, workpool.New(cfg.Media.Workers))

	dir := scratch.New(cfg.Scratch.Dir, cfg.Scratch.MinFreeBytes)
	if err := dir.Ensure(); err != nil {
		return nil, err
	}

	platform, err := telegram.New(telegram.Config{
		Token:        cfg.Telegram.Token,
		APIEndpoint:  cfg.Telegram.APIEndpoint,
		FileEndpoint: cfg.Telegram.FileEndpoint,
		Debug:        cfg.Telegram.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}

	allow := security.NewAllowList(cfg.Security.AllowFrom)
	if !allow.Empty() {
		logger.Info("[Scribe] Allow list active: %d entries", len(cfg.Security.AllowFrom))
	}

	r := router.New(router.Config{
		Platform:        platform,
		Extractor:       extractor,
		Transcriber:     transcriber,
		Scratch:         dir,
		AllowList:       allow,
		MaxVideoBytes:   cfg.Limits.MaxVideoBytes,
		DownloadTimeout: cfg.Timeouts.Download,
		ReplyTimeout:    cfg.Timeouts.Reply,
	})
	platform.SetMessageHandler(r.HandleMessage)

	return &app{
		platform:  platform,
		scheduler: cron.NewScheduler(dir, cfg.Scratch.SweepSchedule, cfg.Scratch.MaxAge),
	}, nil
}
