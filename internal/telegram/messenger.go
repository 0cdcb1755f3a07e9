package telegram

import (
	"context"
	"time"

	"github.com/elmariachi111/llm-tg-bot/internal/bot"
	"github.com/elmariachi111/llm-tg-bot/internal/metrics"
)

// Messenger adapts a Client to bot.Messenger and records call timings.
type Messenger struct {
	client  *Client
	metrics *metrics.Collector
}

var _ bot.Messenger = (*Messenger)(nil)

// NewMessenger wraps client. collector may be nil.
func NewMessenger(client *Client, collector *metrics.Collector) *Messenger {
	return &Messenger{client: client, metrics: collector}
}

func (m *Messenger) SendText(ctx context.Context, chatID int64, text string) error {
	start := time.Now()
	err := m.client.SendText(ctx, chatID, text)
	m.metrics.RecordTiming(metrics.OpTelegramSend, time.Since(start), err)
	return err
}

func (m *Messenger) SendTyping(ctx context.Context, chatID int64) error {
	return m.client.SendTyping(ctx, chatID)
}

func (m *Messenger) FetchFileInfo(ctx context.Context, fileID string) (bot.FileInfo, error) {
	start := time.Now()
	f, err := m.client.FetchFileInfo(ctx, fileID)
	m.metrics.RecordTiming(metrics.OpTelegramFile, time.Since(start), err)
	if err != nil {
		return bot.FileInfo{}, err
	}
	return bot.FileInfo{Path: f.FilePath, Size: f.FileSize}, nil
}
