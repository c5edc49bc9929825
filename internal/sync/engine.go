package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/conn"
	"github.com/matheus3301/chatsync/internal/credentials"
	"github.com/matheus3301/chatsync/internal/outbox"
	"github.com/matheus3301/chatsync/internal/pagination"
	"github.com/matheus3301/chatsync/internal/receipts"
	"github.com/matheus3301/chatsync/internal/rest"
	"github.com/matheus3301/chatsync/internal/status"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

// Socket event names.
const (
	EventNewMessage  = "newMessage"
	EventSendMessage = "sendMessage"
)

// Sends rejected while offline are replayed for this long after they were
// typed.
const outboxMaxAge = 10 * time.Minute

// ErrEmptyMessage is returned by SendText for blank content.
var ErrEmptyMessage = errors.New("empty message")

// ChatCreator opens a chat with another user.
type ChatCreator interface {
	CreateChat(ctx context.Context, userID string) (store.Chat, error)
}

// OutboundMessage is the payload of a sendMessage event.
type OutboundMessage struct {
	ChatID   string `json:"chatId"`
	Content  string `json:"content"`
	SenderID string `json:"senderId"`
}

type inboundMessage struct {
	Message store.Message `json:"message"`
}

// Status is a snapshot of the session.
type Status struct {
	User       store.Participant
	State      status.State
	ActiveChat string
	Chats      int
	Queued     int
	StartedAt  time.Time
}

// Engine wires the connection, the store, history backfill and read receipts
// into one chat session for the signed-in user.
type Engine struct {
	user       store.Participant
	conn       *conn.Manager
	tokens     credentials.TokenSource
	creator    ChatCreator
	store      *store.Store
	pages      *pagination.Controller
	receipts   *receipts.Tracker
	reconciler *Reconciler
	outbox     *outbox.Outbox
	bus        *bus.Bus
	logger     *zap.Logger

	cancel     context.CancelFunc
	ctx        context.Context
	wg         gosync.WaitGroup
	wireOnce   gosync.Once
	refreshing atomic.Bool
	startedAt  time.Time
}

// NewEngine creates a new sync engine.
func NewEngine(
	user store.Participant,
	cm *conn.Manager,
	tokens credentials.TokenSource,
	creator ChatCreator,
	s *store.Store,
	pages *pagination.Controller,
	tracker *receipts.Tracker,
	b *bus.Bus,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		user:       user,
		conn:       cm,
		tokens:     tokens,
		creator:    creator,
		store:      s,
		pages:      pages,
		receipts:   tracker,
		reconciler: NewReconciler(s, logger),
		bus:        b,
		logger:     logger,
		ctx:        context.Background(),
	}
	e.outbox = outbox.New(cm, e.isPending, b, outboxMaxAge, logger)
	return e
}

// Start loads the chat list, subscribes to socket events and connects in the
// background. Only a missing token fails Start; a chat list that cannot be
// fetched is logged and can be refreshed later.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(context.WithoutCancel(ctx))
	e.startedAt = time.Now()
	e.wire()

	token, err := e.tokens.Token(ctx)
	if err != nil {
		e.publishUnauthorized(err)
		return fmt.Errorf("read token: %w", err)
	}

	if _, err := e.RefreshChats(ctx); err != nil {
		e.logger.Warn("initial chat load failed", zap.Error(err))
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.conn.Connect(e.ctx, token); err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Error("connect", zap.Error(err))
		}
	}()
	return nil
}

// wire registers the socket handlers and the room once per engine.
func (e *Engine) wire() {
	e.wireOnce.Do(func() {
		e.conn.Subscribe(EventNewMessage, e.handleNewMessage)
		e.conn.Subscribe(conn.SignalConnect, func(json.RawMessage) {
			e.outbox.Flush()
			e.observeActive()
		})
		e.conn.Subscribe(conn.SignalReconnect, func(json.RawMessage) { e.recover() })
		e.conn.JoinRoom(e.user.ID)
	})
}

// Stop disconnects and waits for background work.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.conn.Disconnect()
	e.wg.Wait()
}

// Store exposes the session's chat store for reads.
func (e *Engine) Store() *store.Store { return e.store }

// Pages exposes the history backfill cursors.
func (e *Engine) Pages() *pagination.Controller { return e.pages }

// User returns the signed-in participant.
func (e *Engine) User() store.Participant { return e.user }

// Status returns a snapshot of the session.
func (e *Engine) Status() Status {
	return Status{
		User:       e.user,
		State:      e.conn.State(),
		ActiveChat: e.pages.Active(),
		Chats:      len(e.store.Chats()),
		Queued:     e.outbox.Len(),
		StartedAt:  e.startedAt,
	}
}

// RefreshChats reloads the chat list from the server.
func (e *Engine) RefreshChats(ctx context.Context) ([]store.Chat, error) {
	chats, err := e.store.LoadChats(ctx)
	if err != nil {
		e.checkFatal(err)
		return nil, err
	}
	return chats, nil
}

// StartChat opens a chat with peerID and adds it to the store.
func (e *Engine) StartChat(ctx context.Context, peerID string) (store.Chat, error) {
	chat, err := e.creator.CreateChat(ctx, peerID)
	if err != nil {
		e.checkFatal(err)
		return store.Chat{}, fmt.Errorf("start chat: %w", err)
	}
	if !e.store.UpsertChat(chat) {
		return store.Chat{}, fmt.Errorf("start chat: server returned malformed chat %q", chat.ID)
	}
	e.logger.Info("chat started", zap.String("chat_id", chat.ID), zap.String("peer_id", peerID))
	return chat, nil
}

// OpenChat makes chatID the active chat, loads its newest page and
// acknowledges what is on screen.
func (e *Engine) OpenChat(ctx context.Context, chatID string) (pagination.Page, error) {
	e.pages.SetActive(chatID)
	page, err := e.pages.LoadPage(ctx, chatID, 1)
	if err != nil {
		e.checkFatal(err)
		return pagination.Page{}, err
	}
	e.receipts.Observe(chatID)
	return page, nil
}

// CloseChat clears the active chat.
func (e *Engine) CloseChat() {
	e.pages.SetActive("")
}

// LoadOlder backfills the next older page of chatID.
func (e *Engine) LoadOlder(ctx context.Context, chatID string) (pagination.Page, error) {
	page, err := e.pages.LoadOlder(ctx, chatID)
	if err != nil {
		e.checkFatal(err)
		return pagination.Page{}, err
	}
	return page, nil
}

// SendText inserts an optimistic message and publishes it on the socket.
// When the socket is down the send is queued and replayed on the next
// connect; sent reports whether it went out right away.
func (e *Engine) SendText(chatID, content string) (msg store.Message, sent bool, err error) {
	if strings.TrimSpace(content) == "" {
		return store.Message{}, false, ErrEmptyMessage
	}
	msg = e.store.AppendOptimistic(chatID, content, e.user)
	sent = e.outbox.Send(chatID, msg.ID, EventSendMessage, OutboundMessage{
		ChatID:   chatID,
		Content:  content,
		SenderID: e.user.ID,
	})
	e.logger.Debug("send requested",
		zap.String("chat_id", chatID),
		zap.String("temp_id", msg.ID),
		zap.Bool("sent", sent),
	)
	return msg, sent, nil
}

// MarkRead acknowledges the unread peer messages of chatID.
func (e *Engine) MarkRead(chatID string) int {
	return e.receipts.Observe(chatID)
}

// Reconnect forces a fresh connection. The token is read again, so a token
// written after a failed start is picked up; a connection that gave up is
// started anew.
func (e *Engine) Reconnect(ctx context.Context) error {
	token, err := e.tokens.Token(ctx)
	if err != nil {
		e.publishUnauthorized(err)
		return fmt.Errorf("read token: %w", err)
	}
	e.wire()
	if len(e.store.Chats()) == 0 {
		if _, err := e.RefreshChats(ctx); err != nil {
			e.logger.Warn("chat load on reconnect failed", zap.Error(err))
		}
	}
	if e.conn.State() == status.Disconnected {
		return e.conn.Connect(ctx, token)
	}
	return e.conn.Reconnect(ctx)
}

func (e *Engine) handleNewMessage(data json.RawMessage) {
	var in inboundMessage
	if err := json.Unmarshal(data, &in); err != nil {
		e.logger.Warn("dropping undecodable newMessage", zap.Error(err))
		return
	}
	msg := in.Message
	if _, ok := e.reconciler.Apply(msg); !ok {
		return
	}
	if _, known := e.store.Chat(msg.ChatID); !known {
		e.refreshInBackground()
	}
	if msg.ChatID == e.pages.Active() {
		e.receipts.Observe(msg.ChatID)
	}
}

// recover resynchronizes the active chat after a reconnect: events missed
// during the outage are only recovered through the history endpoint.
func (e *Engine) recover() {
	active := e.pages.Active()
	if active == "" {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		page, err := e.pages.LoadPage(e.ctx, active, 1)
		if err != nil {
			e.checkFatal(err)
			e.logger.Warn("resync after reconnect failed", zap.String("chat_id", active), zap.Error(err))
			return
		}
		e.receipts.Observe(active)
		e.logger.Info("active chat resynced",
			zap.String("chat_id", active),
			zap.Int("added", len(page.Messages)),
			zap.Int("retired", len(page.Retired)),
		)
	}()
}

func (e *Engine) isPending(chatID, tempID string) bool {
	msg, ok := e.store.Message(chatID, tempID)
	return ok && msg.Pending()
}

func (e *Engine) observeActive() {
	if active := e.pages.Active(); active != "" {
		e.receipts.Observe(active)
	}
}

// refreshInBackground reloads the chat list once a message for an unknown
// chat arrives. Concurrent triggers collapse into one fetch.
func (e *Engine) refreshInBackground() {
	if !e.refreshing.CompareAndSwap(false, true) {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.refreshing.Store(false)
		if _, err := e.RefreshChats(e.ctx); err != nil {
			e.logger.Warn("chat refresh failed", zap.Error(err))
		}
	}()
}

func (e *Engine) checkFatal(err error) {
	if rest.IsFatal(err) {
		e.publishUnauthorized(err)
	}
}

func (e *Engine) publishUnauthorized(err error) {
	e.logger.Error("session unauthorized", zap.Error(err))
	e.bus.Publish(bus.Event{
		Kind:      bus.KindUnauthorized,
		Timestamp: time.Now(),
		Payload:   err.Error(),
	})
}
