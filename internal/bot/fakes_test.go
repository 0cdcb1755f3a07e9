package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/elmariachi111/llm-tg-bot/internal/conversation"
	"github.com/elmariachi111/llm-tg-bot/internal/models"
)

// recorder collects calls from all fakes in one ordered log.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type sentMessage struct {
	ChatID int64
	Text   string
}

type fakeMessenger struct {
	rec       *recorder
	mu        sync.Mutex
	sent      []sentMessage
	typing    int
	sendErr   error
	typingErr error
	fileErr   error
	fileInfo  FileInfo
}

func (m *fakeMessenger) SendText(_ context.Context, chatID int64, text string) error {
	m.rec.add("send")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{ChatID: chatID, Text: text})
	return m.sendErr
}

func (m *fakeMessenger) SendTyping(context.Context, int64) error {
	m.rec.add("typing")
	m.mu.Lock()
	m.typing++
	m.mu.Unlock()
	return m.typingErr
}

func (m *fakeMessenger) FetchFileInfo(_ context.Context, fileID string) (FileInfo, error) {
	m.rec.add("file:%s", fileID)
	if m.fileErr != nil {
		return FileInfo{}, m.fileErr
	}
	return m.fileInfo, nil
}

func (m *fakeMessenger) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

type fakeCompleter struct {
	rec     *recorder
	reply   string
	err     error
	prompts []string
	history [][]models.Turn
}

func (c *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.rec.add("complete")
	c.prompts = append(c.prompts, prompt)
	return c.reply, c.err
}

func (c *fakeCompleter) CompleteWithHistory(_ context.Context, prompt string, history []models.Turn) (string, error) {
	c.rec.add("complete_with_history")
	c.prompts = append(c.prompts, prompt)
	c.history = append(c.history, history)
	return c.reply, c.err
}

// spyHistory wraps a real store and logs each call.
type spyHistory struct {
	rec   *recorder
	store *conversation.Store
}

func (h *spyHistory) AddMessage(id conversation.ID, role models.Role, content string) {
	h.rec.add("add:%s", role)
	h.store.AddMessage(id, role, content)
}

func (h *spyHistory) FormattedHistory(id conversation.ID) []models.Turn {
	h.rec.add("history")
	return h.store.FormattedHistory(id)
}

func (h *spyHistory) ClearHistory(id conversation.ID) {
	h.rec.add("clear")
	h.store.ClearHistory(id)
}

func (h *spyHistory) count(prefix string) int {
	n := 0
	for _, e := range h.rec.all() {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

var errService = errors.New("service error")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	rec       *recorder
	messenger *fakeMessenger
	completer *fakeCompleter
	history   *spyHistory
	router    *Router
}

func newFixture(mode Mode) *fixture {
	rec := &recorder{}
	f := &fixture{
		rec:       rec,
		messenger: &fakeMessenger{rec: rec, fileInfo: FileInfo{Path: "documents/file_1.pdf"}},
		completer: &fakeCompleter{rec: rec, reply: "model reply"},
		history:   &spyHistory{rec: rec, store: conversation.NewStore(10)},
	}
	r, err := New(Options{
		Messenger:          f.messenger,
		Completer:          f.completer,
		History:            f.history,
		Mode:               mode,
		AcknowledgeUploads: true,
		Logger:             discardLogger(),
	})
	if err != nil {
		panic(err)
	}
	f.router = r
	return f
}
