package bot

import (
	"context"
	"strings"

	"github.com/elmariachi111/llm-tg-bot/internal/conversation"
)

// Replies sent by the built-in commands.
const (
	StartReply = "Hello! I'm Claude, your AI assistant. I'm here to help you with questions, tasks, and conversations. Feel free to ask me anything! 🤖✨"

	HelpReply = "Here's what I can help you with:\n\n" +
		"💬 **General Questions** - Ask me anything!\n" +
		"🧠 **Problem Solving** - I can help brainstorm solutions\n" +
		"✍️ **Writing & Analysis** - Need help with text or analysis?\n" +
		"💡 **Creative Tasks** - Let's work on creative projects together\n" +
		"📚 **Explanations** - I can explain complex topics simply\n\n" +
		"**Commands:**\n" +
		"/start - Start a new conversation\n" +
		"/help - Show this help message\n" +
		"/clear - Clear our conversation history\n\n" +
		"Just send me a message and I'll do my best to help! 😊"

	ClearReply = "✅ Conversation history cleared! I'll start fresh with our next message. 🧹"
)

// commandFunc runs a command's side effects and returns its reply.
type commandFunc func(ctx context.Context, r *Router, u Update) string

// commandTable maps command names to handlers.
var commandTable = map[string]commandFunc{
	"/start": func(context.Context, *Router, Update) string { return StartReply },
	"/help":  func(context.Context, *Router, Update) string { return HelpReply },
	"/clear": func(_ context.Context, r *Router, u Update) string {
		r.history.ClearHistory(conversation.ChatID(u.ChatID))
		return ClearReply
	},
}

// commandName extracts the command from text: the first whitespace-separated
// token with any "@botname" suffix removed.
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	name, _, _ := strings.Cut(fields[0], "@")
	return name
}
