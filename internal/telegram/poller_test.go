package telegram

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/elmariachi111/llm-tg-bot/internal/bot"
	"github.com/elmariachi111/llm-tg-bot/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPollerForwardsUpdatesAndAdvancesOffset(t *testing.T) {
	var calls atomic.Int32
	var mu sync.Mutex
	var offsets []string

	_, c := apiServer(t, map[string]http.HandlerFunc{
		"getUpdates": func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			offsets = append(offsets, r.URL.Query().Get("offset"))
			mu.Unlock()
			if calls.Add(1) == 1 {
				_, _ = io.WriteString(w, `{"ok":true,"result":[
					{"update_id":5,"message":{"message_id":1,"chat":{"id":1},"text":"one"}},
					{"update_id":6,"edited_message":{"message_id":1,"chat":{"id":1},"text":"one!"}},
					{"update_id":7,"message":{"message_id":2,"chat":{"id":2},"text":"two"}}
				]}`)
				return
			}
			<-r.Context().Done()
		},
	})

	collector := metrics.NewCollector()
	p := NewPoller(c, time.Second, discardLogger(), collector)

	ctx, cancel := context.WithCancel(context.Background())
	var got []bot.Update
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, func(_ context.Context, u bot.Update) error {
			got = append(got, u)
			if len(got) == 2 {
				cancel()
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop after cancel")
	}

	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0].Text)
	assert.Equal(t, "two", got[1].Text)
	assert.Equal(t, int64(8), p.Offset())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "", offsets[0])
	if len(offsets) > 1 {
		assert.Equal(t, "8", offsets[1])
	}
	assert.NotNil(t, collector.Snapshot().TelegramPoll)
}

func TestPollerRetriesAfterErrors(t *testing.T) {
	var calls atomic.Int32
	_, c := apiServer(t, map[string]http.HandlerFunc{
		"getUpdates": func(w http.ResponseWriter, r *http.Request) {
			switch calls.Add(1) {
			case 1, 2:
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, `{"ok":false,"description":"Internal Server Error"}`)
			case 3:
				_, _ = io.WriteString(w, `{"ok":true,"result":[{"update_id":1,"message":{"chat":{"id":9},"text":"back"}}]}`)
			default:
				<-r.Context().Done()
			}
		},
	})

	p := NewPoller(c, time.Second, discardLogger(), nil)
	p.minBackoff = time.Millisecond
	p.maxBackoff = 2 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got bot.Update
	err := p.Run(ctx, func(_ context.Context, u bot.Update) error {
		got = u
		cancel()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "back", got.Text)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestPollerSkipsFailedSink(t *testing.T) {
	var calls atomic.Int32
	_, c := apiServer(t, map[string]http.HandlerFunc{
		"getUpdates": func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				_, _ = io.WriteString(w, `{"ok":true,"result":[
					{"update_id":1,"message":{"chat":{"id":1},"text":"a"}},
					{"update_id":2,"message":{"chat":{"id":1},"text":"b"}}
				]}`)
				return
			}
			<-r.Context().Done()
		},
	})

	p := NewPoller(c, time.Second, discardLogger(), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var seen []string
	err := p.Run(ctx, func(_ context.Context, u bot.Update) error {
		seen = append(seen, u.Text)
		if u.Text == "a" {
			return bot.ErrDispatcherClosed
		}
		cancel()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestPollerStopsOnCancelledContext(t *testing.T) {
	p := NewPoller(NewClient(nil, "http://127.0.0.1:1", "T"), time.Second, discardLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, p.Run(ctx, func(context.Context, bot.Update) error { return nil }))
}
