package cmd

import (
	"fmt"
	"os"

	"github.com/kayz/scribe/internal/config"
	"github.com/kayz/scribe/internal/logger"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "Telegram bot that transcribes voice, audio and video messages",
	Long: `scribe listens for voice messages, audio files, videos and video notes
on Telegram and replies with their transcript.

Modes:
  scribe           Run the bot (default)
  scribe sweep     Remove stale files from the scratch directory
  scribe version   Print the version

Required environment variables:
  - BOT_TOKEN: Telegram bot token from @BotFather
  - GEMINI_KEY: Gemini API key (or OPENAI_API_KEY with AI_PROVIDER=openai)`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	Run: runBot,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			os.Setenv("SCRIBE_CONFIG", configPath)
		}
		// Parse and set log level
		level, err := logger.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info",
		"Log level: trace, debug, info, warn, error, fatal, panic")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to the YAML config file (or SCRIBE_CONFIG env, default ./scribe.yaml)")
}

// loadConfig reads the configuration and applies its logging section. The
// --log flag wins over the configured level when given explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if !cmd.Flags().Changed("log") && cfg.Logging.Level != "" {
		level, err := logger.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		logger.SetLevel(level)
	}
	if cfg.Logging.File != "" {
		if _, err := logger.AddFile(cfg.Logging.File); err != nil {
			return nil, err
		}
	}
	if cfg.Logging.ErrorFile != "" {
		if _, err := logger.AddErrorFile(cfg.Logging.ErrorFile); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
