// Package pagination backfills chat history from the REST endpoint into the
// store, one page at a time.
package pagination

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

// DefaultPageSize is the server's fixed page size.
const DefaultPageSize = 20

// Fetcher fetches one history page of a chat. Page numbers start at 1, the
// newest page first.
type Fetcher interface {
	ListMessages(ctx context.Context, chatID string, page int) ([]store.Message, error)
}

// Cursor is the backfill position of a chat.
type Cursor struct {
	Page    int
	HasMore bool
}

// Page is the outcome of a page request.
type Page struct {
	// Messages are the entries that were new to the chat's list.
	Messages []store.Message
	HasMore  bool
	// Retired lists the optimistic placeholders the page confirmed. Only
	// page 1 retires placeholders.
	Retired []string
	// Coalesced is set when another request for the chat was in flight and
	// this one was dropped without fetching.
	Coalesced bool
	// Discarded is set when the chat stopped being the active one while the
	// fetch was in flight; the result was not merged.
	Discarded bool
}

// Controller loads history pages and merges them into the store.
type Controller struct {
	fetcher  Fetcher
	store    *store.Store
	pageSize int
	logger   *zap.Logger

	mu       sync.Mutex
	cursors  map[string]Cursor
	inflight map[string]bool
	active   string
}

// NewController creates a controller. A non-positive pageSize uses
// DefaultPageSize.
func NewController(fetcher Fetcher, s *store.Store, pageSize int, logger *zap.Logger) *Controller {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		fetcher:  fetcher,
		store:    s,
		pageSize: pageSize,
		logger:   logger,
		cursors:  make(map[string]Cursor),
		inflight: make(map[string]bool),
	}
}

// SetActive records the chat currently on screen. Results for other chats
// that land afterwards are discarded. An empty id disables the guard.
func (c *Controller) SetActive(chatID string) {
	c.mu.Lock()
	c.active = chatID
	c.mu.Unlock()
}

// Active returns the chat currently on screen.
func (c *Controller) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// HasMore reports whether older pages may exist. Chats that were never
// loaded report true.
func (c *Controller) HasMore(chatID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.cursors[chatID]
	return !ok || cur.HasMore
}

// Cursor returns the backfill position of a chat.
func (c *Controller) Cursor(chatID string) (Cursor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.cursors[chatID]
	return cur, ok
}

// LoadOlder loads the page after the cursor. Nothing is fetched once the
// history is exhausted.
func (c *Controller) LoadOlder(ctx context.Context, chatID string) (Page, error) {
	c.mu.Lock()
	cur, ok := c.cursors[chatID]
	c.mu.Unlock()

	if !ok {
		return c.LoadPage(ctx, chatID, 1)
	}
	if !cur.HasMore {
		return Page{}, nil
	}
	return c.LoadPage(ctx, chatID, cur.Page+1)
}

// LoadPage fetches one page and merges it. Page 1 replaces the chat's list,
// keeping optimistic and newer entries; later pages are prepended. Only one
// request per chat runs at a time; concurrent ones are coalesced.
func (c *Controller) LoadPage(ctx context.Context, chatID string, page int) (Page, error) {
	if page < 1 {
		return Page{}, fmt.Errorf("load page: invalid page %d", page)
	}

	c.mu.Lock()
	if c.inflight[chatID] {
		c.mu.Unlock()
		c.logger.Debug("page request coalesced", zap.String("chat_id", chatID), zap.Int("page", page))
		return Page{Coalesced: true}, nil
	}
	c.inflight[chatID] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, chatID)
		c.mu.Unlock()
	}()

	fetched, err := c.fetcher.ListMessages(ctx, chatID, page)
	if err != nil {
		return Page{}, fmt.Errorf("load page %d of %s: %w", page, chatID, err)
	}
	hasMore := len(fetched) >= c.pageSize
	msgs := c.sanitize(chatID, fetched)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != "" && c.active != chatID {
		c.logger.Debug("discarding stale page", zap.String("chat_id", chatID), zap.String("active", c.active), zap.Int("page", page))
		return Page{HasMore: hasMore, Discarded: true}, nil
	}

	var added []store.Message
	var retired []string
	if page == 1 {
		merge := c.store.ReplaceMessages(chatID, msgs)
		added, retired = merge.Added, merge.Retired
	} else {
		added = c.store.PrependMessages(chatID, msgs)
	}
	c.cursors[chatID] = Cursor{Page: page, HasMore: hasMore}

	c.logger.Debug("page merged",
		zap.String("chat_id", chatID),
		zap.Int("page", page),
		zap.Int("fetched", len(fetched)),
		zap.Int("added", len(added)),
		zap.Int("retired", len(retired)),
		zap.Bool("has_more", hasMore),
	)
	return Page{Messages: added, HasMore: hasMore, Retired: retired}, nil
}

// sanitize drops malformed records and returns the page in chronological
// order, whatever order the server used.
func (c *Controller) sanitize(chatID string, fetched []store.Message) []store.Message {
	out := make([]store.Message, 0, len(fetched))
	for _, m := range fetched {
		if m.ChatID == "" {
			m.ChatID = chatID
		}
		if !m.Valid() || m.ChatID != chatID {
			c.logger.Warn("dropping malformed message", zap.String("chat_id", chatID), zap.String("msg_id", m.ID))
			continue
		}
		out = append(out, m)
	}
	slices.SortStableFunc(out, func(a, b store.Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}
