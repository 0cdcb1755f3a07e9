package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/elmariachi111/llm-tg-bot/internal/metrics"
	"github.com/elmariachi111/llm-tg-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeLLM records the last request and returns a canned response.
type fakeLLM struct {
	messages []llms.MessageContent
	options  llms.CallOptions
	resp     *llms.ContentResponse
	err      error
}

func (f *fakeLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.options)
	}
	return f.resp, f.err
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func reply(text string, info map[string]any) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text, GenerationInfo: info}}}
}

func partText(t *testing.T, msg llms.MessageContent) string {
	t.Helper()
	require.Len(t, msg.Parts, 1)
	text, ok := msg.Parts[0].(llms.TextContent)
	require.True(t, ok, "expected text part, got %T", msg.Parts[0])
	return text.Text
}

func TestComplete(t *testing.T) {
	fake := &fakeLLM{resp: reply("pong", nil)}
	m := New(fake, "test-model", Options{MaxTokens: 128})

	got, err := m.Complete(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", got)
	assert.Equal(t, "test-model", m.Model())

	require.Len(t, fake.messages, 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, fake.messages[0].Role)
	assert.Equal(t, "ping", partText(t, fake.messages[0]))
	assert.Equal(t, 128, fake.options.MaxTokens)
}

func TestCompleteWithHistory(t *testing.T) {
	fake := &fakeLLM{resp: reply("fine", nil)}
	m := New(fake, "test-model", Options{SystemPrompt: "be brief"})

	history := []models.Turn{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
		{Role: models.RoleUser, Content: "how are you?"},
	}
	got, err := m.CompleteWithHistory(context.Background(), "how are you?", history)
	require.NoError(t, err)
	assert.Equal(t, "fine", got)

	require.Len(t, fake.messages, 4, "system + three turns, prompt not repeated")
	assert.Equal(t, llms.ChatMessageTypeSystem, fake.messages[0].Role)
	assert.Equal(t, "be brief", partText(t, fake.messages[0]))
	assert.Equal(t, llms.ChatMessageTypeHuman, fake.messages[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, fake.messages[2].Role)
	assert.Equal(t, "how are you?", partText(t, fake.messages[3]))
}

func TestCompleteWithHistoryAppendsMissingPrompt(t *testing.T) {
	fake := &fakeLLM{resp: reply("ok", nil)}
	m := New(fake, "test-model", Options{})

	history := []models.Turn{
		{Role: models.RoleAssistant, Content: "orphaned reply"},
		{Role: models.RoleUser, Content: "earlier"},
		{Role: models.RoleAssistant, Content: "answer"},
	}
	_, err := m.CompleteWithHistory(context.Background(), "next", history)
	require.NoError(t, err)

	require.Len(t, fake.messages, 3, "leading assistant turn dropped, prompt appended")
	assert.Equal(t, "earlier", partText(t, fake.messages[0]))
	assert.Equal(t, "answer", partText(t, fake.messages[1]))
	assert.Equal(t, "next", partText(t, fake.messages[2]))
}

func TestCompleteErrors(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		m := New(&fakeLLM{err: errors.New("connection reset")}, "m", Options{})
		_, err := m.Complete(context.Background(), "x")
		require.Error(t, err)
		assert.False(t, IsFatal(err))
	})

	t.Run("fatal provider error", func(t *testing.T) {
		m := New(&fakeLLM{err: errors.New("HTTP 401: invalid x-api-key")}, "m", Options{})
		_, err := m.Complete(context.Background(), "x")
		require.Error(t, err)
		assert.True(t, IsFatal(err))
	})

	t.Run("no choices", func(t *testing.T) {
		m := New(&fakeLLM{resp: &llms.ContentResponse{}}, "m", Options{})
		_, err := m.Complete(context.Background(), "x")
		require.Error(t, err)
	})
}

func TestCompleteRecordsUsage(t *testing.T) {
	collector := metrics.NewCollector()
	fake := &fakeLLM{resp: reply("ok", map[string]any{"InputTokens": 12, "OutputTokens": 3})}
	m := New(fake, "m", Options{Metrics: collector})

	_, err := m.Complete(context.Background(), "x")
	require.NoError(t, err)

	snap := collector.Snapshot()
	require.NotNil(t, snap.LLMComplete)
	assert.Equal(t, int64(1), snap.LLMComplete.Count)
	require.NotNil(t, snap.LLMComplete.TotalInputTokens)
	assert.Equal(t, int64(12), *snap.LLMComplete.TotalInputTokens)
	assert.Equal(t, int64(3), *snap.LLMComplete.TotalOutputTokens)
}

func TestTokenUsage(t *testing.T) {
	in, out := tokenUsage(map[string]any{"PromptTokens": 7, "CompletionTokens": float64(2)})
	assert.Equal(t, int64(7), in)
	assert.Equal(t, int64(2), out)

	in, out = tokenUsage(nil)
	assert.Zero(t, in)
	assert.Zero(t, out)
}

func TestIsFatalAPIError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("connection reset"), false},
		{"credit balance", errors.New("insufficient credit balance"), true},
		{"rate limit", errors.New("rate limit exceeded"), true},
		{"quota exceeded", errors.New("quota exceeded for model"), true},
		{"billing issue", errors.New("billing account inactive"), true},
		{"invalid api key", errors.New("invalid api key"), true},
		{"authentication failed", errors.New("authentication failed"), true},
		{"unauthorized", errors.New("unauthorized request"), true},
		{"401 status", errors.New("HTTP 401: not allowed"), true},
		{"403 status", errors.New("HTTP 403: forbidden"), true},
		{"wrapped error", fmt.Errorf("complete: %w", errors.New("credit balance too low")), true},
		{"404 not fatal", errors.New("HTTP 404: not found"), false},
		{"timeout not fatal", errors.New("context deadline exceeded"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isFatalAPIError(tt.err)
			if got != tt.fatal {
				t.Errorf("isFatalAPIError(%v) = %v, want %v", tt.err, got, tt.fatal)
			}
		})
	}
}

func TestWrapFatalError(t *testing.T) {
	t.Run("wraps fatal error", func(t *testing.T) {
		err := errors.New("invalid api key provided")
		wrapped := wrapFatalError(err)
		if !errors.Is(wrapped, ErrFatalAPI) {
			t.Errorf("expected wrapped error to match ErrFatalAPI")
		}
		if !errors.Is(wrapped, err) {
			t.Errorf("expected wrapped error to keep the cause")
		}
	})

	t.Run("passes through non-fatal error", func(t *testing.T) {
		err := errors.New("network timeout")
		result := wrapFatalError(err)
		if errors.Is(result, ErrFatalAPI) {
			t.Errorf("non-fatal error should not be wrapped with ErrFatalAPI")
		}
		if result != err {
			t.Errorf("expected original error returned, got %v", result)
		}
	})

	t.Run("nil error", func(t *testing.T) {
		result := wrapFatalError(nil)
		if result != nil {
			t.Errorf("expected nil, got %v", result)
		}
	})
}
