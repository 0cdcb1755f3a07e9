package telegram

import (
	"context"
	"log/slog"
	"time"

	"github.com/elmariachi111/llm-tg-bot/internal/bot"
	"github.com/elmariachi111/llm-tg-bot/internal/metrics"
)

// Retry backoff bounds for failed polls.
const (
	MinBackoff = time.Second
	MaxBackoff = 30 * time.Second
)

// Sink receives converted updates in arrival order.
type Sink func(ctx context.Context, u bot.Update) error

// Poller long-polls getUpdates and forwards every update to a Sink.
type Poller struct {
	client     *Client
	timeout    time.Duration
	logger     *slog.Logger
	metrics    *metrics.Collector
	minBackoff time.Duration
	maxBackoff time.Duration
	offset     int64
}

// NewPoller creates a poller. timeout is the long-poll wait per request.
func NewPoller(client *Client, timeout time.Duration, logger *slog.Logger, collector *metrics.Collector) *Poller {
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		client:     client,
		timeout:    timeout,
		logger:     logger,
		metrics:    collector,
		minBackoff: MinBackoff,
		maxBackoff: MaxBackoff,
	}
}

// Offset returns the next update id the poller will request.
func (p *Poller) Offset() int64 {
	return p.offset
}

// Run polls until ctx is cancelled and then returns nil. Poll failures are
// logged and retried with exponential backoff; sink errors are logged and
// the update is skipped.
func (p *Poller) Run(ctx context.Context, sink Sink) error {
	backoff := p.minBackoff
	for {
		if ctx.Err() != nil {
			return nil
		}

		start := time.Now()
		updates, next, err := p.client.GetUpdates(ctx, p.offset, p.timeout)
		p.metrics.RecordTiming(metrics.OpTelegramPoll, time.Since(start), err)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if IsTimeout(err) {
				p.logger.Debug("telegram poll timed out", "error", err)
			} else {
				p.logger.Warn("telegram poll failed", "error", err, "retry_in", backoff.String())
			}
			if !sleep(ctx, backoff) {
				return nil
			}
			backoff = min(backoff*2, p.maxBackoff)
			continue
		}
		backoff = p.minBackoff
		p.offset = next

		for _, wire := range updates {
			u, ok := wire.ToUpdate()
			if !ok {
				p.logger.Debug("skipping non-message update", "update_id", wire.UpdateID)
				continue
			}
			if err := sink(ctx, u); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				p.logger.Error("failed to dispatch update", "update_id", u.UpdateID, "chat_id", u.ChatID, "error", err)
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
