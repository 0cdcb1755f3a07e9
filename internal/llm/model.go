// Package llm provides language-model completions using langchaingo.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/elmariachi111/llm-tg-bot/internal/config"
	"github.com/elmariachi111/llm-tg-bot/internal/metrics"
	"github.com/elmariachi111/llm-tg-bot/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Options tunes generation for a Model.
type Options struct {
	SystemPrompt string
	MaxTokens    int
	Metrics      *metrics.Collector
	Logger       *slog.Logger
}

// Model wraps a langchaingo LLM for chat completions.
type Model struct {
	llm       llms.Model
	modelName string
	opts      Options
}

// NewModel creates an LLM model based on configuration.
func NewModel(ctx context.Context, cfg config.Config, collector *metrics.Collector, logger *slog.Logger) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderBedrock:
		awsCfg, awsErr := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if awsErr != nil {
			return nil, fmt.Errorf("load aws config: %w", awsErr)
		}
		model, err = bedrock.New(
			bedrock.WithClient(bedrockruntime.NewFromConfig(awsCfg)),
			bedrock.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return New(model, cfg.LLMModel, Options{
		SystemPrompt: cfg.SystemPrompt,
		MaxTokens:    cfg.MaxTokens,
		Metrics:      collector,
		Logger:       logger,
	}), nil
}

// New wraps an existing langchaingo model.
func New(model llms.Model, modelName string, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Model{
		llm:       model,
		modelName: modelName,
		opts:      opts,
	}
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// Complete generates a single-shot reply to prompt.
func (m *Model) Complete(ctx context.Context, prompt string) (string, error) {
	return m.generate(ctx, m.buildMessages(prompt, nil))
}

// CompleteWithHistory generates a reply using prior turns as context.
// history may already end with prompt as the latest user turn; it is not
// repeated in that case.
func (m *Model) CompleteWithHistory(ctx context.Context, prompt string, history []models.Turn) (string, error) {
	return m.generate(ctx, m.buildMessages(prompt, history))
}

// buildMessages converts turns to langchaingo messages. Leading assistant
// turns are dropped since providers expect the exchange to open with a user
// message, which can happen once the oldest turns have been evicted.
func (m *Model) buildMessages(prompt string, history []models.Turn) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history)+2)
	if m.opts.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, m.opts.SystemPrompt))
	}

	start := 0
	for start < len(history) && history[start].Role != models.RoleUser {
		start++
	}
	turns := history[start:]
	for _, turn := range turns {
		messages = append(messages, llms.TextParts(messageType(turn.Role), turn.Content))
	}

	if n := len(turns); n == 0 || turns[n-1].Role != models.RoleUser || turns[n-1].Content != prompt {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))
	}
	return messages
}

func messageType(role models.Role) llms.ChatMessageType {
	if role == models.RoleAssistant {
		return llms.ChatMessageTypeAI
	}
	return llms.ChatMessageTypeHuman
}

func (m *Model) generate(ctx context.Context, messages []llms.MessageContent) (string, error) {
	var callOpts []llms.CallOption
	if m.opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(m.opts.MaxTokens))
	}

	start := time.Now()
	response, err := m.llm.GenerateContent(ctx, messages, callOpts...)
	duration := time.Since(start)

	if err != nil {
		m.opts.Metrics.RecordLLMUsage(metrics.OpLLMComplete, duration, 0, 0, err)
		m.opts.Logger.Warn("completion failed", "model", m.modelName, "messages", len(messages), "duration_ms", duration.Milliseconds(), "error", err)
		return "", fmt.Errorf("complete: %w", wrapFatalError(err))
	}

	if len(response.Choices) == 0 {
		err := fmt.Errorf("no response choices")
		m.opts.Metrics.RecordLLMUsage(metrics.OpLLMComplete, duration, 0, 0, err)
		return "", fmt.Errorf("complete: %w", err)
	}

	choice := response.Choices[0]
	in, out := tokenUsage(choice.GenerationInfo)
	m.opts.Metrics.RecordLLMUsage(metrics.OpLLMComplete, duration, in, out, nil)
	m.opts.Logger.Debug("completion done",
		"model", m.modelName,
		"messages", len(messages),
		"duration_ms", duration.Milliseconds(),
		"input_tokens", in,
		"output_tokens", out,
	)
	return choice.Content, nil
}

// tokenUsage reads token counts from provider generation info. Providers
// disagree on key names.
func tokenUsage(info map[string]any) (input, output int64) {
	return firstCount(info, "InputTokens", "PromptTokens", "input_tokens"),
		firstCount(info, "OutputTokens", "CompletionTokens", "output_tokens")
}

func firstCount(info map[string]any, keys ...string) int64 {
	for _, key := range keys {
		switch v := info[key].(type) {
		case int:
			return int64(v)
		case int32:
			return int64(v)
		case int64:
			return v
		case float64:
			return int64(v)
		}
	}
	return 0
}
