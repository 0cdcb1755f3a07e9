// Package config loads bot configuration from the environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LLM providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderBedrock   = "bedrock"
)

// Router modes.
const (
	ModeContextual = "contextual"
	ModeSingle     = "single"
)

// Sentinel errors returned by Validate.
var (
	ErrMissingToken  = errors.New("TELEGRAM_BOT_TOKEN is required")
	ErrInvalidMode   = errors.New("invalid BOT_MODE")
	ErrInvalidWindow = errors.New("HISTORY_WINDOW must be at least 1")
	ErrMissingAPIKey = errors.New("LLM provider API key is required")
	ErrUnknownLLM    = errors.New("unsupported LLM provider")
	ErrInvalidValue  = errors.New("invalid configuration value")
)

// defaultModels maps each provider to the model used when LLM_MODEL is unset.
var defaultModels = map[string]string{
	ProviderAnthropic: "claude-sonnet-4-20250514",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderOllama:    "llama3.2",
	ProviderBedrock:   "anthropic.claude-3-5-sonnet-20240620-v1:0",
}

// Config holds all configuration values.
type Config struct {
	// Environment name, e.g. development or production
	Env string

	// Telegram
	TelegramToken   string
	TelegramAPIBase string
	PollTimeout     time.Duration
	SendTimeout     time.Duration

	// Routing
	Mode           string
	AckUploads     bool
	HistoryWindow  int
	MaxConcurrency int

	// Language model
	LLMProvider     string
	LLMModel        string
	SystemPrompt    string
	MaxTokens       int
	LLMTimeout      time.Duration
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OllamaHost      string
	AWSRegion       string

	// Operator HTTP surface; empty disables it
	HealthAddr string

	// Logging
	LogFile  string
	LogLevel slog.Level

	// parseErrs holds values that were set but could not be parsed.
	parseErrs []error
}

// source resolves a key from the environment first, then from values read
// out of a config file.
type source struct {
	file map[string]string
	errs []error
}

// Load reads configuration from environment variables.
func Load() Config {
	return (&source{}).load()
}

// LoadFile reads configuration from a YAML file of flat key/value pairs.
// Keys are the environment variable names in lower case. Environment
// variables take precedence over file values.
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	file := make(map[string]string, len(values))
	for k, v := range values {
		if v == nil {
			continue
		}
		file[strings.ToLower(k)] = fmt.Sprint(v)
	}
	return (&source{file: file}).load(), nil
}

func (s *source) load() Config {
	provider := strings.ToLower(s.get("LLM_PROVIDER", ProviderAnthropic))
	cfg := Config{
		Env: s.get("APP_ENV", "development"),

		TelegramToken:   s.get("TELEGRAM_BOT_TOKEN", ""),
		TelegramAPIBase: s.get("TELEGRAM_API_BASE", "https://api.telegram.org"),
		PollTimeout:     s.getDuration("TELEGRAM_POLL_TIMEOUT", 30*time.Second),
		SendTimeout:     s.getDuration("TELEGRAM_SEND_TIMEOUT", 15*time.Second),

		Mode:           strings.ToLower(s.get("BOT_MODE", ModeContextual)),
		AckUploads:     s.getBool("BOT_ACK_UPLOADS", true),
		HistoryWindow:  s.getInt("HISTORY_WINDOW", 20),
		MaxConcurrency: s.getInt("BOT_MAX_CONCURRENCY", 4),

		LLMProvider:     provider,
		LLMModel:        s.get("LLM_MODEL", defaultModels[provider]),
		SystemPrompt:    s.get("LLM_SYSTEM_PROMPT", ""),
		MaxTokens:       s.getInt("LLM_MAX_TOKENS", 1024),
		LLMTimeout:      s.getDuration("LLM_TIMEOUT", 60*time.Second),
		AnthropicAPIKey: s.get("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    s.get("OPENAI_API_KEY", ""),
		OllamaHost:      s.get("OLLAMA_HOST", "http://localhost:11434"),
		AWSRegion:       s.get("AWS_REGION", "us-east-1"),

		HealthAddr: s.get("HEALTH_ADDR", ""),

		LogFile:  s.get("LOG_FILE", "/tmp/llm-tg-bot.log"),
		LogLevel: parseLogLevel(s.get("LOG_LEVEL", "INFO")),
	}
	cfg.parseErrs = s.errs
	return cfg
}

// Validate reports every configuration problem found.
func (c Config) Validate() error {
	errs := append([]error(nil), c.parseErrs...)
	if c.TelegramToken == "" {
		errs = append(errs, ErrMissingToken)
	}
	if c.Mode != ModeContextual && c.Mode != ModeSingle {
		errs = append(errs, fmt.Errorf("%w: %q (want %s or %s)", ErrInvalidMode, c.Mode, ModeContextual, ModeSingle))
	}
	if c.HistoryWindow < 1 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrInvalidWindow, c.HistoryWindow))
	}
	switch c.LLMProvider {
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			errs = append(errs, fmt.Errorf("%w: ANTHROPIC_API_KEY", ErrMissingAPIKey))
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, fmt.Errorf("%w: OPENAI_API_KEY", ErrMissingAPIKey))
		}
	case ProviderOllama, ProviderBedrock:
	default:
		errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownLLM, c.LLMProvider))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the bot runs in a production environment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func (s *source) get(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if val, ok := s.file[strings.ToLower(key)]; ok && val != "" {
		return val
	}
	return defaultVal
}

func (s *source) getInt(key string, defaultVal int) int {
	raw := s.get(key, "")
	if raw == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		s.invalid(key, raw)
		return defaultVal
	}
	return v
}

func (s *source) getBool(key string, defaultVal bool) bool {
	raw := s.get(key, "")
	if raw == "" {
		return defaultVal
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		s.invalid(key, raw)
		return defaultVal
	}
	return v
}

func (s *source) getDuration(key string, defaultVal time.Duration) time.Duration {
	raw := s.get(key, "")
	if raw == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	// Bare numbers are seconds.
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	s.invalid(key, raw)
	return defaultVal
}

func (s *source) invalid(key, raw string) {
	s.errs = append(s.errs, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, raw))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
