// Package bot classifies inbound chat updates and dispatches them to the
// command, upload, and language-model paths.
package bot

import (
	"strings"

	"github.com/elmariachi111/llm-tg-bot/internal/media"
)

// CommandPrefix marks text that is never forwarded to the language model.
const CommandPrefix = "/"

// Update is one inbound event from the messaging platform.
type Update struct {
	UpdateID   int64
	ChatID     int64
	MessageID  int64
	Text       string
	Attachment *media.Attachment
}

// Path is the handling route an update resolves to.
type Path int

const (
	PathIgnore Path = iota
	PathAttachment
	PathCommand
	PathText
)

func (p Path) String() string {
	switch p {
	case PathAttachment:
		return "attachment"
	case PathCommand:
		return "command"
	case PathText:
		return "text"
	default:
		return "ignore"
	}
}

// classify resolves an update to exactly one path. Attachments win over
// text; anything starting with the command prefix never reaches PathText.
func classify(u Update, acknowledgeUploads bool) Path {
	if u.Attachment != nil && acknowledgeUploads {
		return PathAttachment
	}
	if strings.HasPrefix(u.Text, CommandPrefix) {
		return PathCommand
	}
	if strings.TrimSpace(u.Text) != "" {
		return PathText
	}
	return PathIgnore
}
