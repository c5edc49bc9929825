package conn

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/status"
	"go.uber.org/zap"
)

// pipeTransport is an in-memory transport. The test plays the server by
// pushing frames into in and reading client writes from out.
type pipeTransport struct {
	in     chan Frame
	out    chan Frame
	closed chan struct{}
	once   sync.Once
}

func newPipe(handshake string) *pipeTransport {
	p := &pipeTransport{
		in:     make(chan Frame, 16),
		out:    make(chan Frame, 16),
		closed: make(chan struct{}),
	}
	if handshake != "" {
		p.in <- Frame{Event: handshake}
	}
	return p
}

func (p *pipeTransport) Read(ctx context.Context) (Frame, error) {
	select {
	case f := <-p.in:
		return f, nil
	case <-p.closed:
		return Frame{}, errors.New("transport closed")
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (p *pipeTransport) Write(ctx context.Context, f Frame) error {
	select {
	case <-p.closed:
		return errors.New("transport closed")
	default:
	}
	select {
	case p.out <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeTransport) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

// scriptDialer hands out a scripted result per dial; once the script is
// exhausted every dial fails.
type scriptDialer struct {
	mu     sync.Mutex
	script []*pipeTransport
	dials  int
	tokens []string
}

func (d *scriptDialer) Dial(_ context.Context, token string) (Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	d.tokens = append(d.tokens, token)
	if len(d.script) == 0 {
		return nil, errors.New("connection refused")
	}
	next := d.script[0]
	d.script = d.script[1:]
	if next == nil {
		return nil, errors.New("connection refused")
	}
	return next, nil
}

func (d *scriptDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func testManager(d Dialer, retries int) (*Manager, *bus.Bus) {
	b := bus.New()
	cfg := Config{MaxRetries: retries, RetryDelay: 10 * time.Millisecond, HandshakeTimeout: time.Second}
	return NewManager(d, cfg, status.NewMachine(b), b, zap.NewNop()), b
}

func expectFrame(t *testing.T, p *pipeTransport, event string) Frame {
	t.Helper()
	select {
	case f := <-p.out:
		if f.Event != event {
			t.Fatalf("got frame %q, want %q", f.Event, event)
		}
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for %q frame", event)
	}
	return Frame{}
}

func expectNoFrame(t *testing.T, p *pipeTransport) {
	t.Helper()
	select {
	case f := <-p.out:
		t.Fatalf("unexpected frame %q", f.Event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConnectRequiresToken(t *testing.T) {
	m, _ := testManager(&scriptDialer{}, 1)
	if err := m.Connect(context.Background(), ""); !errors.Is(err, ErrNoToken) {
		t.Errorf("err = %v, want ErrNoToken", err)
	}
	if m.State() != status.Disconnected {
		t.Errorf("state = %s, want DISCONNECTED", m.State())
	}
}

func TestConnectCancelledContext(t *testing.T) {
	m, _ := testManager(&scriptDialer{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Connect(ctx, "tok"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestConnectHandshakeAndJoin(t *testing.T) {
	p := newPipe(SignalConnect)
	d := &scriptDialer{script: []*pipeTransport{p}}
	m, _ := testManager(d, 1)
	defer m.Disconnect()

	connected := make(chan struct{}, 1)
	m.Subscribe(SignalConnect, func(json.RawMessage) { connected <- struct{}{} })

	if err := m.Connect(context.Background(), "tok"); err != nil {
		t.Fatal(err)
	}
	if m.State() != status.Connected {
		t.Fatalf("state = %s, want CONNECTED", m.State())
	}
	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("connect signal not delivered")
	}

	m.JoinRoom("u1")
	f := expectFrame(t, p, EventJoin)
	if string(f.Data) != `"u1"` {
		t.Errorf("join data = %s, want \"u1\"", f.Data)
	}

	// A second Connect while connected does not dial again.
	if err := m.Connect(context.Background(), "tok"); err != nil {
		t.Fatal(err)
	}
	if d.dialCount() != 1 {
		t.Errorf("dials = %d, want 1", d.dialCount())
	}
}

func TestInboundEventsInRegistrationOrder(t *testing.T) {
	p := newPipe(SignalConnect)
	m, _ := testManager(&scriptDialer{script: []*pipeTransport{p}}, 1)
	defer m.Disconnect()

	var mu sync.Mutex
	var order []string
	done := make(chan struct{})
	m.Subscribe("newMessage", func(json.RawMessage) { mu.Lock(); order = append(order, "first"); mu.Unlock() })
	m.Subscribe("newMessage", func(json.RawMessage) { mu.Lock(); order = append(order, "second"); mu.Unlock(); close(done) })

	if err := m.Connect(context.Background(), "tok"); err != nil {
		t.Fatal(err)
	}
	p.in <- Frame{Event: "newMessage", Data: json.RawMessage(`{}`)}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handlers not invoked")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("order = %v, want [first second]", order)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	p := newPipe(SignalConnect)
	m, _ := testManager(&scriptDialer{script: []*pipeTransport{p}}, 1)
	defer m.Disconnect()

	calls := make(chan string, 4)
	unsub := m.Subscribe("ping", func(json.RawMessage) { calls <- "removed" })
	m.Subscribe("ping", func(json.RawMessage) { calls <- "kept" })
	unsub()
	unsub()

	if err := m.Connect(context.Background(), "tok"); err != nil {
		t.Fatal(err)
	}
	p.in <- Frame{Event: "ping"}

	select {
	case got := <-calls:
		if got != "kept" {
			t.Errorf("got %q, want kept", got)
		}
	case <-time.After(time.Second):
		t.Fatal("handler not invoked")
	}
}

func TestSendRejectedWhenNotConnected(t *testing.T) {
	m, _ := testManager(&scriptDialer{}, 1)
	if m.Send("sendMessage", map[string]string{"content": "hi"}) {
		t.Error("Send should be rejected while disconnected")
	}
}

func TestReconnectRejoinsExactlyOnce(t *testing.T) {
	first := newPipe(SignalConnect)
	second := newPipe(SignalConnect)
	// One refused dial between the two sessions: retries must not re-join.
	d := &scriptDialer{script: []*pipeTransport{first, nil, second}}
	m, b := testManager(d, 5)
	defer m.Disconnect()

	reconnected, unsub := b.Subscribe(bus.ConnKind(SignalReconnect), 4)
	defer unsub()

	if err := m.Connect(context.Background(), "tok"); err != nil {
		t.Fatal(err)
	}
	m.JoinRoom("u1")
	expectFrame(t, first, EventJoin)

	// Server drops the connection.
	_ = first.Close()

	select {
	case <-reconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reconnect")
	}
	if m.State() != status.Connected {
		t.Fatalf("state = %s, want CONNECTED", m.State())
	}
	expectFrame(t, second, EventJoin)
	expectNoFrame(t, second)
	if d.dialCount() != 3 {
		t.Errorf("dials = %d, want 3", d.dialCount())
	}
}

func TestRepeatedJoinRoomWritesOneJoin(t *testing.T) {
	p := newPipe(SignalConnect)
	d := &scriptDialer{script: []*pipeTransport{p}}
	m, _ := testManager(d, 1)
	defer m.Disconnect()

	m.JoinRoom("u1")
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 50 {
			m.JoinRoom("u1")
		}
	}()
	if err := m.Connect(context.Background(), "tok"); err != nil {
		t.Fatal(err)
	}
	wg.Wait()
	m.JoinRoom("u1")

	expectFrame(t, p, EventJoin)
	expectNoFrame(t, p)

	// A different room is joined on the same connection.
	m.JoinRoom("u2")
	f := expectFrame(t, p, EventJoin)
	if string(f.Data) != `"u2"` {
		t.Errorf("join data = %s, want \"u2\"", f.Data)
	}
}

func TestSendRejectedWhileReconnecting(t *testing.T) {
	first := newPipe(SignalConnect)
	// Keep the retry loop spinning on refused dials.
	d := &scriptDialer{script: []*pipeTransport{first}}
	b := bus.New()
	cfg := Config{MaxRetries: 50, RetryDelay: 20 * time.Millisecond, HandshakeTimeout: time.Second}
	m := NewManager(d, cfg, status.NewMachine(b), b, zap.NewNop())
	defer m.Disconnect()

	lost, unsub := b.Subscribe(bus.ConnKind(SignalDisconnect), 4)
	defer unsub()

	if err := m.Connect(context.Background(), "tok"); err != nil {
		t.Fatal(err)
	}
	_ = first.Close()
	select {
	case <-lost:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for disconnect signal")
	}
	if m.State() != status.Reconnecting {
		t.Fatalf("state = %s, want RECONNECTING", m.State())
	}
	if m.Send("sendMessage", map[string]string{"content": "hi"}) {
		t.Error("Send should be rejected while reconnecting")
	}
}

func TestRetryExhaustion(t *testing.T) {
	d := &scriptDialer{}
	m, b := testManager(d, 3)
	failed, unsub := b.Subscribe(bus.ConnKind(SignalReconnectFailed), 1)
	defer unsub()

	attempts := 0
	var mu sync.Mutex
	m.Subscribe(SignalReconnectAttempt, func(json.RawMessage) { mu.Lock(); attempts++; mu.Unlock() })

	if err := m.Connect(context.Background(), "tok"); err != nil {
		t.Fatalf("Connect should not surface dial errors: %v", err)
	}

	select {
	case <-failed:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reconnect_failed")
	}
	if m.State() != status.Disconnected {
		t.Errorf("state = %s, want DISCONNECTED", m.State())
	}
	if d.dialCount() != 4 {
		t.Errorf("dials = %d, want 4 (initial + 3 retries)", d.dialCount())
	}
	mu.Lock()
	if attempts != 3 {
		t.Errorf("reconnect attempts = %d, want 3", attempts)
	}
	mu.Unlock()

	// The manager can be started again after giving up.
	d.mu.Lock()
	d.script = []*pipeTransport{newPipe(SignalConnect)}
	d.mu.Unlock()
	if err := m.Connect(context.Background(), "tok"); err != nil {
		t.Fatal(err)
	}
	if m.State() != status.Connected {
		t.Errorf("state = %s, want CONNECTED", m.State())
	}
	m.Disconnect()
}

func TestHandshakeRejected(t *testing.T) {
	rejected := newPipe("")
	rejected.in <- Frame{Event: SignalConnectError, Data: json.RawMessage(`{"message":"invalid token"}`)}
	d := &scriptDialer{script: []*pipeTransport{rejected}}
	m, _ := testManager(d, 1)

	got := make(chan Signal, 4)
	m.Subscribe(SignalConnectError, func(data json.RawMessage) {
		var s Signal
		_ = json.Unmarshal(data, &s)
		got <- s
	})

	if err := m.Connect(context.Background(), "bad"); err != nil {
		t.Fatal(err)
	}
	select {
	case s := <-got:
		if s.Message == "" {
			t.Error("connect_error should carry the server message")
		}
	case <-time.After(time.Second):
		t.Fatal("connect_error not delivered")
	}
	if m.State() != status.Disconnected {
		t.Errorf("state = %s, want DISCONNECTED", m.State())
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	p := newPipe(SignalConnect)
	m, _ := testManager(&scriptDialer{script: []*pipeTransport{p}}, 1)

	called := make(chan struct{}, 1)
	m.Subscribe("newMessage", func(json.RawMessage) { called <- struct{}{} })

	if err := m.Connect(context.Background(), "tok"); err != nil {
		t.Fatal(err)
	}
	m.Disconnect()
	m.Disconnect()

	if m.State() != status.Disconnected {
		t.Errorf("state = %s, want DISCONNECTED", m.State())
	}
	select {
	case <-p.closed:
	default:
		t.Error("transport should be closed")
	}
	// Handlers are cleared by Disconnect.
	m.dispatch("newMessage", nil)
	select {
	case <-called:
		t.Error("handler survived Disconnect")
	default:
	}
}

func TestWaitConnected(t *testing.T) {
	p := newPipe(SignalConnect)
	m, _ := testManager(&scriptDialer{script: []*pipeTransport{p}}, 1)
	defer m.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := m.WaitConnected(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}

	done := make(chan error, 1)
	go func() { done <- m.WaitConnected(context.Background()) }()
	if err := m.Connect(context.Background(), "tok"); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitConnected did not resolve")
	}
}

func TestManualReconnect(t *testing.T) {
	first := newPipe(SignalConnect)
	second := newPipe(SignalConnect)
	d := &scriptDialer{script: []*pipeTransport{first, second}}
	m, b := testManager(d, 2)
	defer m.Disconnect()

	reconnected, unsub := b.Subscribe(bus.ConnKind(SignalReconnect), 1)
	defer unsub()

	if err := m.Connect(context.Background(), "tok"); err != nil {
		t.Fatal(err)
	}
	if err := m.Reconnect(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-reconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reconnect")
	}
	if d.dialCount() != 2 {
		t.Errorf("dials = %d, want 2", d.dialCount())
	}
}
