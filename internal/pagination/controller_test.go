package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

var (
	me   = store.Participant{ID: "u1", Name: "Ana"}
	peer = store.Participant{ID: "u2", Name: "Bruno"}
	base = time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
)

// history serves a chat of n messages the way the backend does: page 1 is
// the newest pageSize messages, each page returned newest first.
type history struct {
	mu       sync.Mutex
	msgs     []store.Message
	pageSize int
	calls    int
	gate     chan struct{}
	started  chan struct{}
	err      error
}

func newHistory(n, pageSize int) *history {
	h := &history{pageSize: pageSize}
	for i := range n {
		h.msgs = append(h.msgs, store.Message{
			ID:        fmt.Sprintf("m%02d", i),
			ChatID:    "c1",
			Sender:    peer,
			Content:   fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			ReadBy:    []string{peer.ID},
		})
	}
	return h
}

func (h *history) ListMessages(ctx context.Context, chatID string, page int) ([]store.Message, error) {
	h.mu.Lock()
	h.calls++
	gate, started, err := h.gate, h.started, h.err
	h.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	end := len(h.msgs) - (page-1)*h.pageSize
	start := max(end-h.pageSize, 0)
	if end <= 0 {
		return nil, nil
	}
	out := make([]store.Message, 0, end-start)
	for i := end - 1; i >= start; i-- {
		m := h.msgs[i]
		m.ChatID = chatID
		out = append(out, m)
	}
	return out, nil
}

func (h *history) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func newStore() *store.Store {
	return store.New(nil, nil, zap.NewNop())
}

func assertNoDuplicates(t *testing.T, msgs []store.Message) {
	t.Helper()
	seen := make(map[string]bool)
	for _, m := range msgs {
		if seen[m.ID] {
			t.Fatalf("duplicate id %s", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestTwentyFiveMessagesTwoPages(t *testing.T) {
	h := newHistory(25, 20)
	s := newStore()
	c := NewController(h, s, 20, zap.NewNop())

	p1, err := c.LoadPage(context.Background(), "c1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(p1.Messages) != 20 || !p1.HasMore {
		t.Fatalf("page 1 = %d messages, hasMore=%v; want 20, true", len(p1.Messages), p1.HasMore)
	}

	p2, err := c.LoadPage(context.Background(), "c1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(p2.Messages) != 5 || p2.HasMore {
		t.Fatalf("page 2 = %d messages, hasMore=%v; want 5, false", len(p2.Messages), p2.HasMore)
	}
	if c.HasMore("c1") {
		t.Error("HasMore should be false after a short page")
	}

	msgs := s.Messages("c1")
	if len(msgs) != 25 {
		t.Fatalf("total = %d, want 25", len(msgs))
	}
	assertNoDuplicates(t, msgs)
	for i := 1; i < len(msgs); i++ {
		if msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt) {
			t.Fatalf("not chronological at %d", i)
		}
	}
}

func TestLoadOlderStopsAtEnd(t *testing.T) {
	h := newHistory(20, 20)
	c := NewController(h, newStore(), 20, nil)

	for range 2 {
		if _, err := c.LoadOlder(context.Background(), "c1"); err != nil {
			t.Fatal(err)
		}
	}
	// Page 2 was empty.
	if c.HasMore("c1") {
		t.Fatal("HasMore should be false after an empty page")
	}
	calls := h.callCount()
	if _, err := c.LoadOlder(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
	if h.callCount() != calls {
		t.Error("LoadOlder fetched after history was exhausted")
	}
	cur, ok := c.Cursor("c1")
	if !ok || cur.Page != 2 {
		t.Errorf("cursor = %+v, want page 2", cur)
	}
}

func TestConcurrentRequestIsCoalesced(t *testing.T) {
	h := newHistory(25, 20)
	h.gate = make(chan struct{})
	h.started = make(chan struct{}, 1)
	s := newStore()
	c := NewController(h, s, 20, nil)

	done := make(chan Page, 1)
	go func() {
		p, err := c.LoadPage(context.Background(), "c1", 1)
		if err != nil {
			t.Error(err)
		}
		done <- p
	}()
	<-h.started

	p, err := c.LoadPage(context.Background(), "c1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Coalesced {
		t.Error("second request should be coalesced")
	}
	close(h.gate)

	first := <-done
	if first.Coalesced || len(first.Messages) != 20 {
		t.Errorf("first = %+v, want 20 merged messages", first)
	}
	if h.callCount() != 1 {
		t.Errorf("fetches = %d, want 1", h.callCount())
	}
	assertNoDuplicates(t, s.Messages("c1"))
}

func TestOverlappingPagesNeverDuplicate(t *testing.T) {
	h := newHistory(30, 20)
	s := newStore()
	c := NewController(h, s, 20, nil)

	for _, page := range []int{2, 1, 2, 1} {
		if _, err := c.LoadPage(context.Background(), "c1", page); err != nil {
			t.Fatal(err)
		}
	}
	// New messages shift page boundaries between requests.
	h.mu.Lock()
	for i := 30; i < 35; i++ {
		h.msgs = append(h.msgs, store.Message{ID: fmt.Sprintf("m%02d", i), ChatID: "c1", Sender: peer, Content: "late", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	h.mu.Unlock()
	if _, err := c.LoadPage(context.Background(), "c1", 2); err != nil {
		t.Fatal(err)
	}
	assertNoDuplicates(t, s.Messages("c1"))
}

func TestStalePageIsDiscarded(t *testing.T) {
	h := newHistory(5, 20)
	h.gate = make(chan struct{})
	h.started = make(chan struct{}, 1)
	s := newStore()
	c := NewController(h, s, 20, nil)
	c.SetActive("c1")

	done := make(chan Page, 1)
	go func() {
		p, _ := c.LoadPage(context.Background(), "c1", 1)
		done <- p
	}()
	<-h.started
	c.SetActive("c2")
	close(h.gate)

	p := <-done
	if !p.Discarded {
		t.Error("page should be discarded after the chat switch")
	}
	if n := len(s.Messages("c1")); n != 0 {
		t.Errorf("stale page merged %d messages", n)
	}
	if _, ok := c.Cursor("c1"); ok {
		t.Error("cursor should not advance for a discarded page")
	}
}

func TestPageOneKeepsInFlightSends(t *testing.T) {
	h := newHistory(3, 20)
	h.gate = make(chan struct{})
	h.started = make(chan struct{}, 1)
	s := newStore()
	c := NewController(h, s, 20, nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.LoadPage(context.Background(), "c1", 1)
		done <- err
	}()
	<-h.started
	tmp := s.AppendOptimistic("c1", "sent while loading", me)
	close(h.gate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	msgs := s.Messages("c1")
	if len(msgs) != 4 {
		t.Fatalf("len = %d, want 4", len(msgs))
	}
	if msgs[3].ID != tmp.ID {
		t.Errorf("last = %s, want optimistic %s", msgs[3].ID, tmp.ID)
	}
}

func TestPrependKeepsLaterEntries(t *testing.T) {
	h := newHistory(25, 20)
	s := newStore()
	c := NewController(h, s, 20, nil)

	if _, err := c.LoadPage(context.Background(), "c1", 1); err != nil {
		t.Fatal(err)
	}
	tmp := s.AppendOptimistic("c1", "hello", me)
	if _, err := c.LoadPage(context.Background(), "c1", 2); err != nil {
		t.Fatal(err)
	}
	msgs := s.Messages("c1")
	if len(msgs) != 26 || msgs[25].ID != tmp.ID {
		t.Errorf("optimistic entry lost or moved: len=%d", len(msgs))
	}
}

func TestMalformedRecordsDropped(t *testing.T) {
	f := fetchFunc(func(context.Context, string, int) ([]store.Message, error) {
		return []store.Message{
			{ID: "ok", ChatID: "c1", Sender: peer, CreatedAt: base},
			{ID: "", ChatID: "c1", Sender: peer},
			{ID: "nosender", ChatID: "c1"},
			{ID: "other", ChatID: "c2", Sender: peer},
		}, nil
	})
	s := newStore()
	c := NewController(f, s, 20, nil)

	p, err := c.LoadPage(context.Background(), "c1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Messages) != 1 || p.Messages[0].ID != "ok" {
		t.Errorf("got %+v, want only ok", p.Messages)
	}
}

func TestFetchErrorLeavesStateUntouched(t *testing.T) {
	h := newHistory(5, 20)
	h.err = errors.New("boom")
	c := NewController(h, newStore(), 20, nil)

	if _, err := c.LoadPage(context.Background(), "c1", 1); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := c.Cursor("c1"); ok {
		t.Error("cursor should not be set after a failed fetch")
	}
	// The in-flight slot is released.
	h.mu.Lock()
	h.err = nil
	h.mu.Unlock()
	if p, err := c.LoadPage(context.Background(), "c1", 1); err != nil || p.Coalesced {
		t.Errorf("retry = %+v, %v", p, err)
	}
}

func TestInvalidPageNumber(t *testing.T) {
	c := NewController(newHistory(1, 20), newStore(), 20, nil)
	if _, err := c.LoadPage(context.Background(), "c1", 0); err == nil {
		t.Error("page 0 should be rejected")
	}
}

type fetchFunc func(ctx context.Context, chatID string, page int) ([]store.Message, error)

func (f fetchFunc) ListMessages(ctx context.Context, chatID string, page int) ([]store.Message, error) {
	return f(ctx, chatID, page)
}

func TestPageOneRetiresConfirmedPlaceholder(t *testing.T) {
	s := newStore()
	tmp := s.AppendOptimistic("c1", "ping", me)
	f := fetchFunc(func(context.Context, string, int) ([]store.Message, error) {
		return []store.Message{
			{ID: "srv_9", ChatID: "c1", Sender: me, Content: "ping", CreatedAt: base.Add(time.Hour), ReadBy: []string{me.ID}},
			{ID: "m01", ChatID: "c1", Sender: peer, Content: "hi", CreatedAt: base, ReadBy: []string{peer.ID}},
		}, nil
	})
	c := NewController(f, s, 20, nil)

	p, err := c.LoadPage(context.Background(), "c1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Retired) != 1 || p.Retired[0] != tmp.ID {
		t.Errorf("retired = %v, want [%s]", p.Retired, tmp.ID)
	}
	msgs := s.Messages("c1")
	if fmt.Sprint(idsOf(msgs)) != "[m01 srv_9]" {
		t.Errorf("ids = %v, want [m01 srv_9]", idsOf(msgs))
	}
	if n := s.PendingCount("c1"); n != 0 {
		t.Errorf("pending = %d, want 0", n)
	}
}

func idsOf(msgs []store.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}
