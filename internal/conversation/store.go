// Package conversation keeps bounded, in-memory message history per chat.
package conversation

import (
	"strconv"
	"sync"

	"github.com/elmariachi111/llm-tg-bot/internal/models"
)

// DefaultWindow is the number of turns retained per conversation when no
// window is configured.
const DefaultWindow = 20

// ID identifies a conversation. Platform chat identifiers are used as-is.
type ID string

// ChatID converts a numeric platform chat identifier to a conversation ID.
func ChatID(id int64) ID {
	return ID(strconv.FormatInt(id, 10))
}

// history holds the turns of one conversation.
// mu serializes every read and write of turns.
type history struct {
	mu    sync.Mutex
	turns []models.Turn
}

// Store tracks conversation histories keyed by ID.
// All methods are safe for concurrent use. Operations on different
// conversations do not block each other beyond the map lookup.
type Store struct {
	mu     sync.RWMutex
	window int
	chats  map[ID]*history
}

// NewStore creates an empty store retaining at most window turns per
// conversation. A window below 1 is clamped to 1.
func NewStore(window int) *Store {
	if window < 1 {
		window = 1
	}
	return &Store{
		window: window,
		chats:  make(map[ID]*history),
	}
}

// Window returns the maximum number of turns retained per conversation.
func (s *Store) Window() int {
	return s.window
}

// lookup returns the history for id, or nil if the conversation is unknown.
func (s *Store) lookup(id ID) *history {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chats[id]
}

// getOrCreate returns the history for id, creating it on first use.
func (s *Store) getOrCreate(id ID) *history {
	if h := s.lookup(id); h != nil {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.chats[id]
	if !ok {
		h = &history{}
		s.chats[id] = h
	}
	return h
}

// AddMessage appends a turn, evicting the oldest turns once the window is
// exceeded.
func (s *Store) AddMessage(id ID, role models.Role, content string) {
	h := s.getOrCreate(id)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, models.Turn{Role: role, Content: content})
	if over := len(h.turns) - s.window; over > 0 {
		// Copy into a fresh slice so evicted turns can be collected.
		kept := make([]models.Turn, s.window, s.window+1)
		copy(kept, h.turns[over:])
		h.turns = kept
	}
}

// FormattedHistory returns the conversation's turns in append order.
// The result is a copy; unknown conversations yield an empty slice.
func (s *Store) FormattedHistory(id ID) []models.Turn {
	h := s.lookup(id)
	if h == nil {
		return []models.Turn{}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]models.Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// ClearHistory drops all turns of a conversation. Clearing an unknown or
// empty conversation is a no-op.
func (s *Store) ClearHistory(id ID) {
	s.mu.Lock()
	h, ok := s.chats[id]
	delete(s.chats, id)
	s.mu.Unlock()

	if !ok {
		return
	}
	// Wait out any in-flight append on the dropped history.
	h.mu.Lock()
	h.turns = nil
	h.mu.Unlock()
}

// Len returns the number of turns retained for a conversation.
func (s *Store) Len(id ID) int {
	h := s.lookup(id)
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

// Conversations returns the number of conversations with retained state.
func (s *Store) Conversations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chats)
}
