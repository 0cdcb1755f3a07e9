package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/elmariachi111/llm-tg-bot/internal/conversation"
	"github.com/elmariachi111/llm-tg-bot/internal/llm"
	"github.com/elmariachi111/llm-tg-bot/internal/media"
	"github.com/elmariachi111/llm-tg-bot/internal/metrics"
	"github.com/elmariachi111/llm-tg-bot/internal/models"
	"github.com/elmariachi111/llm-tg-bot/internal/telegramutil"
	"github.com/google/uuid"
)

// FallbackReply is sent whenever the language model path fails.
const FallbackReply = "Sorry, I encountered an error while processing your message. Please try again! 🤖"

// Default timeouts for outbound calls.
const (
	DefaultLLMTimeout  = 60 * time.Second
	DefaultSendTimeout = 15 * time.Second
)

var (
	// ErrInvalidMode is returned by New when no mode was chosen.
	ErrInvalidMode = errors.New("router mode must be contextual or single-shot")

	errEmptyReply  = errors.New("empty reply from model")
	errInvalidRole = errors.New("invalid turn role")
)

// Mode selects how the text path talks to the language model.
type Mode int

const (
	// ModeContextual records every exchange and sends the bounded history
	// with each prompt.
	ModeContextual Mode = iota + 1
	// ModeSingleShot sends only the current message and keeps no history.
	ModeSingleShot
)

func (m Mode) String() string {
	switch m {
	case ModeContextual:
		return "contextual"
	case ModeSingleShot:
		return "single"
	default:
		return "invalid"
	}
}

// ParseMode maps a configuration value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "contextual":
		return ModeContextual, nil
	case "single", "single-shot", "singleshot":
		return ModeSingleShot, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// FileInfo describes a file stored on the messaging platform.
type FileInfo struct {
	Path string
	Size int64
}

// Messenger sends replies through the messaging platform.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendTyping(ctx context.Context, chatID int64) error
	FetchFileInfo(ctx context.Context, fileID string) (FileInfo, error)
}

// Completer generates language model replies.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithHistory(ctx context.Context, prompt string, history []models.Turn) (string, error)
}

// History stores bounded conversation turns.
type History interface {
	AddMessage(id conversation.ID, role models.Role, content string)
	FormattedHistory(id conversation.ID) []models.Turn
	ClearHistory(id conversation.ID)
}

// Options configures a Router.
type Options struct {
	Messenger Messenger
	Completer Completer
	History   History
	Mode      Mode

	// AcknowledgeUploads enables the attachment summary reply.
	AcknowledgeUploads bool

	LLMTimeout  time.Duration
	SendTimeout time.Duration
	Logger      *slog.Logger
	Metrics     *metrics.Collector
}

// Router classifies updates and runs the matching path.
// It holds no per-event state; conversation state lives in History.
type Router struct {
	messenger   Messenger
	completer   Completer
	history     History
	mode        Mode
	ackUploads  bool
	llmTimeout  time.Duration
	sendTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Collector
}

// New creates a Router. Mode must be set explicitly.
func New(opts Options) (*Router, error) {
	if opts.Mode != ModeContextual && opts.Mode != ModeSingleShot {
		return nil, ErrInvalidMode
	}
	if opts.Messenger == nil || opts.Completer == nil || opts.History == nil {
		return nil, errors.New("router requires messenger, completer and history")
	}
	if opts.LLMTimeout <= 0 {
		opts.LLMTimeout = DefaultLLMTimeout
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Router{
		messenger:   opts.Messenger,
		completer:   opts.Completer,
		history:     opts.History,
		mode:        opts.Mode,
		ackUploads:  opts.AcknowledgeUploads,
		llmTimeout:  opts.LLMTimeout,
		sendTimeout: opts.SendTimeout,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}, nil
}

// Mode returns the configured mode.
func (r *Router) Mode() Mode {
	return r.mode
}

// Classify resolves an update to its handling path without side effects.
func (r *Router) Classify(u Update) Path {
	return classify(u, r.ackUploads)
}

// Handle processes one update to completion and returns the path taken.
// Failures are logged and, on the text path, answered with FallbackReply;
// they never propagate to the caller.
func (r *Router) Handle(ctx context.Context, u Update) Path {
	path := r.Classify(u)
	logger := r.logger.With(
		"chat_id", u.ChatID,
		"event_id", uuid.New().String()[:8],
		"path", path.String(),
	)
	r.metrics.IncEvent(path.String())

	switch path {
	case PathAttachment:
		r.handleAttachment(ctx, logger, u)
	case PathCommand:
		r.handleCommand(ctx, logger, u)
	case PathText:
		r.handleText(ctx, logger, u)
	default:
		logger.Debug("update ignored", "update_id", u.UpdateID)
	}
	return path
}

func (r *Router) handleAttachment(ctx context.Context, logger *slog.Logger, u Update) {
	desc := media.Describe(*u.Attachment)

	fileCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	info, err := r.messenger.FetchFileInfo(fileCtx, desc.SourceID)
	cancel()
	if err != nil {
		logger.Error("error processing file upload", "kind", desc.Kind, "file_id", desc.SourceID, "error", err)
		return
	}

	if err := r.send(ctx, u.ChatID, FormatUploadSummary(desc)); err != nil {
		logger.Error("failed to send upload summary", "error", err)
		return
	}

	attrs := []any{
		"kind", desc.Kind,
		"file_name", desc.DisplayName,
		"mime_type", desc.MimeType,
		"file_path", info.Path,
	}
	if desc.HasSize() {
		attrs = append(attrs, "file_size", *desc.SizeBytes)
	}
	logger.Info("file upload received", attrs...)
}

// FormatUploadSummary renders the acknowledgement for an uploaded file.
// Platform-sourced strings are markdown-escaped exactly once.
func FormatUploadSummary(d models.MediaDescriptor) string {
	size := telegramutil.UnknownValue
	if d.HasSize() {
		size = strconv.FormatInt(*d.SizeBytes, 10)
	}

	var b strings.Builder
	b.WriteString("📁 File Upload Received!\n\n")
	b.WriteString("File Details:\n")
	b.WriteString("• File Name: " + telegramutil.EscapeMarkdown(d.DisplayName) + "\n")
	b.WriteString("• File Size: " + size + " bytes\n")
	b.WriteString("• MIME Type: " + telegramutil.EscapeMarkdown(d.MimeType) + "\n")
	b.WriteString("• File ID: " + telegramutil.EscapeMarkdown(d.SourceID) + "\n\n")
	b.WriteString("Thank you for uploading! 🎉")
	return b.String()
}

func (r *Router) handleCommand(ctx context.Context, logger *slog.Logger, u Update) {
	name := commandName(u.Text)
	cmd, ok := commandTable[name]
	if !ok {
		logger.Debug("unknown command dropped", "command", name)
		return
	}

	logger.Info("command", "command", name)
	if err := r.send(ctx, u.ChatID, cmd(ctx, r, u)); err != nil {
		logger.Error("failed to send command reply", "command", name, "error", err)
	}
}

func (r *Router) handleText(ctx context.Context, logger *slog.Logger, u Update) {
	logger.Info("message", "text_len", len(u.Text))

	typingCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	if err := r.messenger.SendTyping(typingCtx, u.ChatID); err != nil {
		logger.Debug("typing indicator failed", "error", err)
	}
	cancel()

	reply, historyLen, err := r.complete(ctx, u)
	if err != nil {
		logger.Error("error processing message with LLM", "fatal", llm.IsFatal(err), "error", err)
		if sendErr := r.send(ctx, u.ChatID, FallbackReply); sendErr != nil {
			logger.Error("failed to send fallback reply", "error", sendErr)
		}
		return
	}

	if err := r.send(ctx, u.ChatID, reply); err != nil {
		logger.Error("failed to send reply", "error", err)
		return
	}
	logger.Info("reply sent", "message_length", len(reply), "history_length", historyLen)
}

// complete runs the language model call for the configured mode and records
// the exchange. No assistant turn is recorded when the call fails.
func (r *Router) complete(ctx context.Context, u Update) (string, int, error) {
	llmCtx, cancel := context.WithTimeout(ctx, r.llmTimeout)
	defer cancel()

	if r.mode == ModeSingleShot {
		reply, err := r.completer.Complete(llmCtx, u.Text)
		if err == nil && strings.TrimSpace(reply) == "" {
			err = errEmptyReply
		}
		return reply, 0, err
	}

	id := conversation.ChatID(u.ChatID)
	if err := r.record(id, models.RoleUser, u.Text); err != nil {
		return "", 0, err
	}
	history := r.history.FormattedHistory(id)

	reply, err := r.completer.CompleteWithHistory(llmCtx, u.Text, history)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errEmptyReply
	}
	if err != nil {
		return "", len(history), err
	}

	if err := r.record(id, models.RoleAssistant, reply); err != nil {
		return "", len(history), err
	}
	return reply, len(history) + 1, nil
}

// record appends a turn to the history. The store accepts any role, so
// unknown roles are rejected here.
func (r *Router) record(id conversation.ID, role models.Role, content string) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", errInvalidRole, role)
	}
	r.history.AddMessage(id, role, content)
	return nil
}

func (r *Router) send(ctx context.Context, chatID int64, text string) error {
	sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()
	return r.messenger.SendText(sendCtx, chatID, text)
}
