package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/chatsync/internal/bus"
	"go.uber.org/zap"
)

// ChatLister fetches the signed-in user's chat summaries.
type ChatLister interface {
	ListChats(ctx context.Context) ([]Chat, error)
}

// Option customises a Store.
type Option func(*Store)

// WithIDFunc overrides the generator of temporary message identifiers.
// The generated value is prefixed with TempIDPrefix when it lacks it.
func WithIDFunc(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

// WithClock overrides the time source used for optimistic messages.
func WithClock(f func() time.Time) Option {
	return func(s *Store) { s.now = f }
}

// Store is the in-memory cache of the user's chats and per-chat message lists.
// It is the only writer of chats and messages; readers get copies. Every
// mutation is published on the bus so views can re-render from it.
type Store struct {
	mu       sync.RWMutex
	order    []string
	chats    map[string]*Chat
	messages map[string][]Message

	lister ChatLister
	bus    *bus.Bus
	logger *zap.Logger
	newID  func() string
	now    func() time.Time
}

// New creates an empty store.
func New(lister ChatLister, b *bus.Bus, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		chats:    make(map[string]*Chat),
		messages: make(map[string][]Message),
		lister:   lister,
		bus:      b,
		logger:   logger,
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) publish(kind, chatID string, payload any) {
	s.bus.Publish(bus.Event{
		Kind:      kind,
		ChatID:    chatID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
