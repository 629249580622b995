package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	defaultConfigPath = "scribe.yaml"
)

// ErrMissingCredential is returned by Validate when a required secret is absent.
var ErrMissingCredential = errors.New("missing credential")

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	AI       AIConfig       `yaml:"ai"`
	Media    MediaConfig    `yaml:"media"`
	Scratch  ScratchConfig  `yaml:"scratch"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
	Limits   LimitsConfig   `yaml:"limits"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type TelegramConfig struct {
	Token string `yaml:"token,omitempty"`
	// APIEndpoint and FileEndpoint point the bot at a self-hosted Bot API
	// server. Both use the "%s" placeholders of the public endpoints.
	APIEndpoint  string `yaml:"api_endpoint,omitempty"`
	FileEndpoint string `yaml:"file_endpoint,omitempty"`
	Debug        bool   `yaml:"debug,omitempty"`
}

type AIConfig struct {
	Provider string `yaml:"provider,omitempty"` // "gemini" or "openai"
	APIKey   string `yaml:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
	Model    string `yaml:"model,omitempty"`
	Prompt   string `yaml:"prompt,omitempty"`
}

type MediaConfig struct {
	FFmpegPath  string `yaml:"ffmpeg_path,omitempty"`
	FFprobePath string `yaml:"ffprobe_path,omitempty"`
	Workers     int    `yaml:"workers,omitempty"`
}

type ScratchConfig struct {
	Dir string `yaml:"dir,omitempty"`
	// MaxAge is how old a scratch file must be before the janitor removes it.
	MaxAge time.Duration `yaml:"max_age,omitempty"`
	// SweepSchedule is a cron expression; empty disables the janitor.
	SweepSchedule string `yaml:"sweep_schedule,omitempty"`
	// MinFreeBytes is kept free on the scratch volume on top of each download.
	MinFreeBytes uint64 `yaml:"min_free_bytes,omitempty"`
}

type TimeoutConfig struct {
	Download  time.Duration `yaml:"download,omitempty"`
	Extract   time.Duration `yaml:"extract,omitempty"`
	Upload    time.Duration `yaml:"upload,omitempty"`
	Inference time.Duration `yaml:"inference,omitempty"`
	Reply     time.Duration `yaml:"reply,omitempty"`
}

type LimitsConfig struct {
	MaxVideoBytes int64 `yaml:"max_video_bytes,omitempty"`
}

type SecurityConfig struct {
	// AllowFrom lists Telegram user ids or usernames allowed to use the bot.
	// Empty means everyone.
	AllowFrom []string `yaml:"allow_from,omitempty"`
}

type LoggingConfig struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file,omitempty"`
	ErrorFile string `yaml:"error_file,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		AI: AIConfig{
			Provider: ProviderGemini,
			Prompt:   "Write all text from audio. Language: Any",
		},
		Media: MediaConfig{
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
			Workers:     2,
		},
		Scratch: ScratchConfig{
			Dir:           "downloads",
			MaxAge:        time.Hour,
			SweepSchedule: "*/15 * * * *",
			MinFreeBytes:  64 << 20,
		},
		Timeouts: TimeoutConfig{
			Download:  2 * time.Minute,
			Extract:   5 * time.Minute,
			Upload:    2 * time.Minute,
			Inference: 3 * time.Minute,
			Reply:     30 * time.Second,
		},
		Limits: LimitsConfig{
			MaxVideoBytes: 20 << 20,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ConfigPath returns the YAML file location: $SCRIBE_CONFIG or ./scribe.yaml.
func ConfigPath() string {
	if p := os.Getenv("SCRIBE_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}

// Load reads .env, the YAML file at ConfigPath and environment overrides.
func Load() (*Config, error) {
	// A missing .env is normal in production.
	_ = godotenv.Load()
	return LoadFromPath(ConfigPath())
}

// LoadFromPath reads the YAML file at path (a missing file is not an error)
// and applies environment overrides on top.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Telegram.Token, "BOT_TOKEN")
	setString(&c.AI.Provider, "AI_PROVIDER")
	setString(&c.AI.Model, "AI_MODEL")
	setString(&c.AI.BaseURL, "AI_BASE_URL")
	setString(&c.Scratch.Dir, "SCRATCH_DIR")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.File, "LOG_FILE")
	setString(&c.Logging.ErrorFile, "LOG_ERROR_FILE")

	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	switch c.AI.Provider {
	case ProviderOpenAI:
		setString(&c.AI.APIKey, "OPENAI_API_KEY")
	default:
		setString(&c.AI.APIKey, "GEMINI_KEY")
	}

	if v := os.Getenv("MAX_VIDEO_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Limits.MaxVideoBytes = n
		}
	}
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

// APIKeyEnv names the environment variable holding the configured provider's key.
func (c *Config) APIKeyEnv() string {
	if c.AI.Provider == ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return "GEMINI_KEY"
}

// Validate reports configuration errors that must abort startup.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("%w: BOT_TOKEN is required", ErrMissingCredential)
	}
	switch c.AI.Provider {
	case "", ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown AI provider %q: must be gemini or openai", c.AI.Provider)
	}
	if c.AI.APIKey == "" {
		return fmt.Errorf("%w: %s is required", ErrMissingCredential, c.APIKeyEnv())
	}
	if c.Scratch.Dir == "" {
		return fmt.Errorf("scratch.dir must not be empty")
	}
	if c.Limits.MaxVideoBytes <= 0 {
		return fmt.Errorf("limits.max_video_bytes must be positive")
	}
	if c.Media.Workers <= 0 {
		return fmt.Errorf("media.workers must be positive")
	}
	return nil
}
