// Package model caches daemon state for the terminal UI and keeps it fresh
// from the daemon's event stream.
package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/chatsync/internal/apiv1"
	"github.com/matheus3301/chatsync/internal/client"
	"github.com/matheus3301/chatsync/internal/tui/ui"
)

// watchRetryDelay spaces resubscriptions after the event stream broke.
const watchRetryDelay = time.Second

// ViewModel holds the last known daemon state. Getters return copies.
type ViewModel struct {
	client *client.Client
	Flash  *ui.FlashModel

	mu       sync.RWMutex
	status   *apiv1.GetStatusResponse
	chats    []apiv1.Chat
	active   string
	messages []apiv1.Message
	hasMore  bool
}

// NewViewModel creates a view model backed by the daemon client.
func NewViewModel(c *client.Client) *ViewModel {
	return &ViewModel{client: c, Flash: ui.NewFlashModel()}
}

// LoadStatus fetches the session status.
func (vm *ViewModel) LoadStatus(ctx context.Context) error {
	resp, err := vm.client.Session.GetStatus(ctx, &apiv1.GetStatusRequest{})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.status = resp
	vm.mu.Unlock()
	return nil
}

// LoadChats fetches the live chat list.
func (vm *ViewModel) LoadChats(ctx context.Context) error {
	resp, err := vm.client.Chat.ListChats(ctx, &apiv1.ListChatsRequest{})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.chats = resp.Chats
	vm.mu.Unlock()
	return nil
}

// RefreshChats asks the daemon to reload the chat list from the server.
func (vm *ViewModel) RefreshChats(ctx context.Context) error {
	resp, err := vm.client.Chat.RefreshChats(ctx, &apiv1.RefreshChatsRequest{})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.chats = resp.Chats
	vm.mu.Unlock()
	return nil
}

// OpenChat makes chatID the active chat and loads its newest page.
func (vm *ViewModel) OpenChat(ctx context.Context, chatID string) error {
	resp, err := vm.client.Message.OpenChat(ctx, &apiv1.OpenChatRequest{ChatID: chatID})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.active = chatID
	vm.applyPageLocked(resp)
	vm.mu.Unlock()
	return nil
}

// LoadOlder prepends the next older page of the active chat. It returns the
// number of messages added.
func (vm *ViewModel) LoadOlder(ctx context.Context) (int, error) {
	chatID := vm.Active()
	if chatID == "" {
		return 0, nil
	}
	resp, err := vm.client.Message.LoadOlder(ctx, &apiv1.LoadOlderRequest{ChatID: chatID})
	if err != nil {
		return 0, err
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.active != chatID || resp.Discarded {
		return 0, nil
	}
	vm.applyPageLocked(resp)
	return resp.Added, nil
}

func (vm *ViewModel) applyPageLocked(resp *apiv1.PageResponse) {
	if resp.Coalesced {
		return
	}
	vm.messages = resp.Messages
	vm.hasMore = resp.HasMore
}

// ReloadThread refetches the active chat's messages as the daemon holds them.
func (vm *ViewModel) ReloadThread(ctx context.Context) error {
	chatID := vm.Active()
	if chatID == "" {
		return nil
	}
	resp, err := vm.client.Message.ListMessages(ctx, &apiv1.ListMessagesRequest{ChatID: chatID})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	if vm.active == chatID {
		vm.messages = resp.Messages
	}
	vm.mu.Unlock()
	return nil
}

// CloseChat clears the active chat here and in the daemon.
func (vm *ViewModel) CloseChat(ctx context.Context) error {
	vm.mu.Lock()
	vm.active = ""
	vm.messages = nil
	vm.hasMore = false
	vm.mu.Unlock()
	_, err := vm.client.Message.CloseChat(ctx, &apiv1.CloseChatRequest{})
	return err
}

// SendText sends text to the active chat.
func (vm *ViewModel) SendText(ctx context.Context, text string) error {
	chatID := vm.Active()
	if chatID == "" {
		return errors.New("no chat open")
	}
	resp, err := vm.client.Message.SendText(ctx, &apiv1.SendTextRequest{ChatID: chatID, Text: text})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	if vm.active == chatID && !containsID(vm.messages, resp.Message.ID) {
		vm.messages = append(vm.messages, resp.Message)
	}
	vm.mu.Unlock()
	return nil
}

// MarkRead acknowledges the active chat's unread messages.
func (vm *ViewModel) MarkRead(ctx context.Context) (int, error) {
	chatID := vm.Active()
	if chatID == "" {
		return 0, nil
	}
	resp, err := vm.client.Message.MarkRead(ctx, &apiv1.MarkReadRequest{ChatID: chatID})
	if err != nil {
		return 0, err
	}
	return resp.Acknowledged, nil
}

// StartChat opens a chat with userID and returns its id.
func (vm *ViewModel) StartChat(ctx context.Context, userID string) (string, error) {
	resp, err := vm.client.Chat.StartChat(ctx, &apiv1.StartChatRequest{UserID: userID})
	if err != nil {
		return "", err
	}
	return resp.Chat.ID, nil
}

// Search runs a full-text query over the archive.
func (vm *ViewModel) Search(ctx context.Context, query string) ([]apiv1.SearchResult, error) {
	resp, err := vm.client.Message.Search(ctx, &apiv1.SearchRequest{Query: query, Limit: 50})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Reconnect asks the daemon to re-establish the realtime connection.
func (vm *ViewModel) Reconnect(ctx context.Context) (string, error) {
	resp, err := vm.client.Session.Reconnect(ctx, &apiv1.ReconnectRequest{})
	if err != nil {
		return "", err
	}
	return resp.State, nil
}

// Watch streams daemon events until ctx ends, refreshing cached state and
// calling onChange with the panes to redraw. A broken stream is resubscribed
// after a short delay.
func (vm *ViewModel) Watch(ctx context.Context, onChange func(Change)) {
	for ctx.Err() == nil {
		err := vm.watchOnce(ctx, onChange)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			vm.Flash.Err(fmt.Errorf("event stream: %w", err))
			onChange(ChangeStatus)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(watchRetryDelay):
		}
	}
}

func (vm *ViewModel) watchOnce(ctx context.Context, onChange func(Change)) error {
	stream, err := vm.client.Chat.WatchEvents(ctx, &apiv1.WatchEventsRequest{})
	if err != nil {
		return err
	}
	for {
		evt, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if n, ok := NoticeFor(evt.Kind); ok {
			switch n.Level {
			case ui.FlashErr:
				vm.Flash.Err(errors.New(n.Text))
			case ui.FlashWarn:
				vm.Flash.Warn(n.Text)
			default:
				vm.Flash.Info(n.Text)
			}
		}
		change := Classify(evt.Kind, evt.ChatID, vm.Active())
		if change == 0 {
			continue
		}
		vm.refresh(ctx, change)
		onChange(change | ChangeStatus)
	}
}

func (vm *ViewModel) refresh(ctx context.Context, change Change) {
	if change.Has(ChangeChats) {
		_ = vm.LoadChats(ctx)
	}
	if change.Has(ChangeThread) {
		_ = vm.ReloadThread(ctx)
	}
	_ = vm.LoadStatus(ctx)
}

// Status returns the last fetched status, or nil.
func (vm *ViewModel) Status() *apiv1.GetStatusResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.status == nil {
		return nil
	}
	st := *vm.status
	return &st
}

// Chats returns the cached chat list.
func (vm *ViewModel) Chats() []apiv1.Chat {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return append([]apiv1.Chat(nil), vm.chats...)
}

// Messages returns the active chat's messages, oldest first.
func (vm *ViewModel) Messages() []apiv1.Message {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return append([]apiv1.Message(nil), vm.messages...)
}

// Active returns the open chat id.
func (vm *ViewModel) Active() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.active
}

// HasMore reports whether older history can be loaded for the open chat.
func (vm *ViewModel) HasMore() bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.hasMore
}

// ChatTitle returns the peer's display name for chatID.
func (vm *ViewModel) ChatTitle(chatID string) string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for _, c := range vm.chats {
		if c.ID == chatID {
			if c.Peer.Name != "" {
				return c.Peer.Name
			}
			return c.Peer.ID
		}
	}
	return chatID
}

// FindChat resolves a chat by id or a case-insensitive peer name prefix.
func (vm *ViewModel) FindChat(query string) (string, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return findChat(vm.chats, query)
}

func findChat(chats []apiv1.Chat, query string) (string, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return "", false
	}
	for _, c := range chats {
		if c.ID == query || strings.ToLower(c.Peer.ID) == q {
			return c.ID, true
		}
	}
	for _, c := range chats {
		if strings.HasPrefix(strings.ToLower(c.Peer.Name), q) {
			return c.ID, true
		}
	}
	return "", false
}

func containsID(list []apiv1.Message, id string) bool {
	for _, m := range list {
		if m.ID == id {
			return true
		}
	}
	return false
}
