// Package telegram is a small Telegram Bot API client: long polling, plain
// text replies, chat actions and file lookups.
package telegram

import (
	"github.com/elmariachi111/llm-tg-bot/internal/bot"
	"github.com/elmariachi111/llm-tg-bot/internal/media"
	"github.com/elmariachi111/llm-tg-bot/internal/models"
)

// Update is one entry of a getUpdates result.
type Update struct {
	UpdateID          int64    `json:"update_id"`
	Message           *Message `json:"message,omitempty"`
	EditedMessage     *Message `json:"edited_message,omitempty"`
	ChannelPost       *Message `json:"channel_post,omitempty"`
	EditedChannelPost *Message `json:"edited_channel_post,omitempty"`
}

// Message is the subset of a Telegram message the bot reads.
type Message struct {
	MessageID int64  `json:"message_id"`
	Date      int64  `json:"date,omitempty"`
	Chat      *Chat  `json:"chat,omitempty"`
	From      *User  `json:"from,omitempty"`
	Text      string `json:"text,omitempty"`
	Caption   string `json:"caption,omitempty"`

	Document  *Document   `json:"document,omitempty"`
	Photo     []PhotoSize `json:"photo,omitempty"`
	Video     *Video      `json:"video,omitempty"`
	Audio     *Audio      `json:"audio,omitempty"`
	Voice     *Voice      `json:"voice,omitempty"`
	VideoNote *VideoNote  `json:"video_note,omitempty"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"` // private|group|supergroup|channel
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

type Document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

type PhotoSize struct {
	FileID   string `json:"file_id"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

type Video struct {
	FileID   string `json:"file_id"`
	MimeType string `json:"mime_type,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

type Audio struct {
	FileID   string `json:"file_id"`
	Title    string `json:"title,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

type Voice struct {
	FileID   string `json:"file_id"`
	MimeType string `json:"mime_type,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

type VideoNote struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size,omitempty"`
}

// File is the result of getFile.
type File struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
	FilePath     string `json:"file_path,omitempty"`
}

// Attachment returns the message's file attachment, if any. When several
// fields are populated the first in the order document, photo, video, audio,
// voice, video_note wins. For photos the last (largest) size is used.
func (m *Message) Attachment() (media.Attachment, bool) {
	switch {
	case m.Document != nil:
		return media.Attachment{
			Kind:     models.MediaDocument,
			FileID:   m.Document.FileID,
			FileName: m.Document.FileName,
			MimeType: m.Document.MimeType,
			FileSize: m.Document.FileSize,
		}, true
	case len(m.Photo) > 0:
		p := m.Photo[len(m.Photo)-1]
		return media.Attachment{Kind: models.MediaPhoto, FileID: p.FileID, FileSize: p.FileSize}, true
	case m.Video != nil:
		return media.Attachment{
			Kind:     models.MediaVideo,
			FileID:   m.Video.FileID,
			MimeType: m.Video.MimeType,
			FileSize: m.Video.FileSize,
		}, true
	case m.Audio != nil:
		return media.Attachment{
			Kind:     models.MediaAudio,
			FileID:   m.Audio.FileID,
			Title:    m.Audio.Title,
			MimeType: m.Audio.MimeType,
			FileSize: m.Audio.FileSize,
		}, true
	case m.Voice != nil:
		return media.Attachment{
			Kind:     models.MediaVoice,
			FileID:   m.Voice.FileID,
			MimeType: m.Voice.MimeType,
			FileSize: m.Voice.FileSize,
		}, true
	case m.VideoNote != nil:
		return media.Attachment{
			Kind:     models.MediaVideoNote,
			FileID:   m.VideoNote.FileID,
			FileSize: m.VideoNote.FileSize,
		}, true
	}
	return media.Attachment{}, false
}

// ToUpdate converts a wire update into the router's representation. Only new
// messages are routed; edits and channel posts report false, as do messages
// without a chat.
func (u Update) ToUpdate() (bot.Update, bool) {
	msg := u.Message
	if msg == nil || msg.Chat == nil {
		return bot.Update{}, false
	}
	out := bot.Update{
		UpdateID:  u.UpdateID,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      msg.Text,
	}
	if att, ok := msg.Attachment(); ok {
		out.Attachment = &att
	}
	return out, true
}
