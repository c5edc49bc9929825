package receipts

import (
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/chatsync/internal/status"
	"github.com/matheus3301/chatsync/internal/store"
)

var (
	me   = store.Participant{ID: "u1", Name: "Ana"}
	peer = store.Participant{ID: "u2", Name: "Bruno"}
)

type fakeConn struct {
	mu     sync.Mutex
	state  status.State
	fail   bool
	frames []Receipt
}

func (f *fakeConn) Send(event string, payload any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail || event != EventMessageRead {
		return false
	}
	f.frames = append(f.frames, payload.(Receipt))
	return true
}

func (f *fakeConn) State() status.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func seeded(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(nil, nil, nil)
	now := time.Now()
	s.ReplaceMessages("c1", []store.Message{
		{ID: "m1", ChatID: "c1", Sender: peer, Content: "one", CreatedAt: now, ReadBy: []string{peer.ID}},
		{ID: "m2", ChatID: "c1", Sender: me, Content: "two", CreatedAt: now.Add(time.Second), ReadBy: []string{me.ID}},
		{ID: "m3", ChatID: "c1", Sender: peer, Content: "three", CreatedAt: now.Add(2 * time.Second), ReadBy: []string{peer.ID, me.ID}},
		{ID: "m4", ChatID: "c1", Sender: peer, Content: "four", CreatedAt: now.Add(3 * time.Second), ReadBy: []string{peer.ID}},
	})
	return s
}

func TestObserveAcknowledgesPeerMessagesOnce(t *testing.T) {
	s := seeded(t)
	conn := &fakeConn{state: status.Connected}
	tr := NewTracker(conn, s, me.ID, nil)

	if n := tr.Observe("c1"); n != 2 {
		t.Fatalf("sent = %d, want 2 (m1, m4)", n)
	}
	if n := tr.Observe("c1"); n != 0 {
		t.Errorf("second observe sent %d, want 0", n)
	}
	if len(conn.frames) != 2 || conn.frames[0].MessageID != "m1" || conn.frames[1].MessageID != "m4" {
		t.Errorf("frames = %+v", conn.frames)
	}
	for _, id := range []string{"m1", "m4"} {
		m, _ := s.Message("c1", id)
		if !m.IsReadBy(me.ID) {
			t.Errorf("%s not marked read in store", id)
		}
	}
}

func TestObserveSkipsPending(t *testing.T) {
	s := store.New(nil, nil, nil)
	s.AppendOptimistic("c1", "draft", peer)
	conn := &fakeConn{state: status.Connected}

	if n := NewTracker(conn, s, me.ID, nil).Observe("c1"); n != 0 {
		t.Errorf("sent = %d, want 0", n)
	}
}

func TestObserveOnlyWhileConnected(t *testing.T) {
	s := seeded(t)
	conn := &fakeConn{state: status.Reconnecting}
	tr := NewTracker(conn, s, me.ID, nil)

	if n := tr.Observe("c1"); n != 0 {
		t.Fatalf("sent = %d while reconnecting, want 0", n)
	}
	conn.state = status.Connected
	if n := tr.Observe("c1"); n != 2 {
		t.Errorf("sent = %d after reconnect, want 2", n)
	}
}

func TestFailedSendIsRetried(t *testing.T) {
	s := seeded(t)
	conn := &fakeConn{state: status.Connected, fail: true}
	tr := NewTracker(conn, s, me.ID, nil)

	if n := tr.Observe("c1"); n != 0 {
		t.Fatalf("sent = %d, want 0", n)
	}
	m, _ := s.Message("c1", "m1")
	if m.IsReadBy(me.ID) {
		t.Error("store should not record an unsent receipt")
	}
	conn.fail = false
	if n := tr.Observe("c1"); n != 2 {
		t.Errorf("sent = %d on retry, want 2", n)
	}
}

func TestReceiptStateAfterReconciliation(t *testing.T) {
	s := seeded(t)
	conn := &fakeConn{state: status.Connected}
	tr := NewTracker(conn, s, me.ID, nil)

	if n := tr.Observe("c1"); n != 2 {
		t.Fatalf("sent = %d, want 2", n)
	}
	if n := len(tr.inflight); n != 0 {
		t.Errorf("claims held after observe = %d, want 0", n)
	}

	// An own send confirmed by the server and a reload of the page, which
	// carries the server's older readBy sets, must not trigger new receipts.
	tmp := s.AppendOptimistic("c1", "five", me)
	s.UpsertMessage("c1", store.Message{ID: "m5", ChatID: "c1", Sender: me, Content: "five", CreatedAt: tmp.CreatedAt, ReadBy: []string{me.ID}})
	now := time.Now()
	s.ReplaceMessages("c1", []store.Message{
		{ID: "m1", ChatID: "c1", Sender: peer, Content: "one", CreatedAt: now, ReadBy: []string{peer.ID}},
		{ID: "m4", ChatID: "c1", Sender: peer, Content: "four", CreatedAt: now.Add(time.Second), ReadBy: []string{peer.ID}},
	})

	if n := tr.Observe("c1"); n != 0 {
		t.Errorf("sent = %d after reconciliation, want 0", n)
	}
	if len(conn.frames) != 2 {
		t.Errorf("frames = %+v, want the two original receipts", conn.frames)
	}
	if n := len(tr.inflight); n != 0 {
		t.Errorf("claims held = %d, want 0", n)
	}
}
