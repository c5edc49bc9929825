package conn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/status"
	"go.uber.org/zap"
)

// Lifecycle signals delivered to subscribers and mirrored on the bus as
// "conn.<signal>".
const (
	SignalConnect          = "connect"
	SignalConnectError     = "connect_error"
	SignalDisconnect       = "disconnect"
	SignalReconnect        = "reconnect"
	SignalReconnectAttempt = "reconnect_attempt"
	SignalReconnectFailed  = "reconnect_failed"
)

// Outbound event names.
const (
	EventJoin = "join"
)

// ErrNoToken is returned by Connect when no bearer token is available.
var ErrNoToken = errors.New("no auth token")

// Signal is the payload of a lifecycle signal.
type Signal struct {
	Attempt int    `json:"attempt,omitempty"`
	Message string `json:"message,omitempty"`
}

// Handler receives the raw data of an inbound event or signal.
type Handler func(data json.RawMessage)

// Config tunes the connection and its retry loop.
type Config struct {
	MaxRetries       int
	RetryDelay       time.Duration
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	return c
}

type subscription struct {
	id int
	h  Handler
}

// session is one run of the connection loop, from Connect until Disconnect
// or retry exhaustion.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	// settled is closed on the first outcome: connected or given up.
	settled chan struct{}
	once    sync.Once
}

func (s *session) settle() { s.once.Do(func() { close(s.settled) }) }

// Manager owns the realtime connection: it dials, authenticates, retries,
// re-joins the user's room after every (re)connect and dispatches inbound
// events to subscribers. All handlers run on the session's loop goroutine,
// in transport order.
type Manager struct {
	dialer  Dialer
	cfg     Config
	machine *status.Machine
	bus     *bus.Bus
	logger  *zap.Logger

	mu        sync.Mutex
	sess      *session
	transport Transport
	token     string
	room      string
	joinedOn  Transport
	handlers  map[string][]subscription
	nextSubID int
}

// NewManager creates a disconnected manager.
func NewManager(dialer Dialer, cfg Config, machine *status.Machine, b *bus.Bus, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if machine == nil {
		machine = status.NewMachine(b)
	}
	return &Manager{
		dialer:   dialer,
		cfg:      cfg.WithDefaults(),
		machine:  machine,
		bus:      b,
		logger:   logger,
		handlers: make(map[string][]subscription),
	}
}

// State returns the current connection state.
func (m *Manager) State() status.State {
	return m.machine.Current()
}

// WaitConnected blocks until the connection is established or ctx is done.
func (m *Manager) WaitConnected(ctx context.Context) error {
	return m.machine.WaitConnected(ctx)
}

// Connect starts the connection loop and waits for its first outcome. It is a
// no-op while a connection is established or being attempted. Failures are
// reported through signals and the state machine, never returned: the only
// errors are a missing token and a done ctx.
func (m *Manager) Connect(ctx context.Context, token string) error {
	if token == "" {
		return ErrNoToken
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.sess != nil {
		m.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(context.Background())
	s := &session{ctx: runCtx, cancel: cancel, settled: make(chan struct{})}
	m.sess = s
	m.token = token
	if err := m.machine.Transition(status.Connecting); err != nil {
		m.logger.Warn("unexpected state on connect", zap.Error(err))
	}
	m.mu.Unlock()

	go m.run(s, token)

	select {
	case <-s.settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reconnect forces a fresh connection. An established transport is dropped
// and the retry loop takes over; without a running loop, Connect is called
// with the last token.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	s, tr, token := m.sess, m.transport, m.token
	m.mu.Unlock()

	if s == nil {
		return m.Connect(ctx, token)
	}
	if tr != nil {
		m.logger.Info("dropping connection on request")
		_ = tr.Close()
	}
	return nil
}

// Disconnect stops the connection loop, closes the transport, forgets every
// handler and the joined room, and moves to Disconnected. Calling it again is
// a no-op.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	s, tr := m.sess, m.transport
	m.sess = nil
	m.transport = nil
	m.room = ""
	m.handlers = make(map[string][]subscription)
	if m.machine.Current() != status.Disconnected {
		_ = m.machine.Transition(status.Disconnected)
	}
	m.mu.Unlock()

	if s == nil {
		return
	}
	s.cancel()
	s.settle()
	if tr != nil {
		_ = tr.Close()
	}
	m.logger.Info("disconnected")
	m.publishSignal(SignalDisconnect, Signal{Message: "client disconnect"})
}

// JoinRoom remembers the user's room and joins it now if connected. The room
// is joined again exactly once after every successful reconnection.
func (m *Manager) JoinRoom(userID string) {
	m.mu.Lock()
	if m.room != userID {
		m.room = userID
		m.joinedOn = nil
	}
	tr := m.claimJoinLocked()
	m.mu.Unlock()

	if tr != nil {
		m.write(tr, EventJoin, userID)
	}
}

// claimJoinLocked returns the current transport when the room still has to be
// joined on it, and records that the caller writes the join. At most one join
// is written per transport and room.
func (m *Manager) claimJoinLocked() Transport {
	if m.transport == nil || m.room == "" || m.joinedOn == m.transport {
		return nil
	}
	m.joinedOn = m.transport
	return m.transport
}

// Send publishes a fire-and-forget event. It returns false when the
// connection is not established or the write fails.
func (m *Manager) Send(event string, payload any) bool {
	m.mu.Lock()
	tr := m.transport
	m.mu.Unlock()

	if tr == nil {
		m.logger.Warn("send rejected: not connected", zap.String("event", event), zap.String("state", string(m.machine.Current())))
		return false
	}
	return m.write(tr, event, payload)
}

// Subscribe registers a handler for an inbound event or lifecycle signal.
// Handlers for the same event run in registration order.
func (m *Manager) Subscribe(event string, h Handler) (unsubscribe func()) {
	m.mu.Lock()
	m.nextSubID++
	id := m.nextSubID
	m.handlers[event] = append(m.handlers[event], subscription{id: id, h: h})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			subs := m.handlers[event]
			for i, s := range subs {
				if s.id == id {
					m.handlers[event] = append(subs[:i:i], subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (m *Manager) write(tr Transport, event string, payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		m.logger.Error("encode outbound event", zap.String("event", event), zap.Error(err))
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.WriteTimeout)
	defer cancel()
	if err := tr.Write(ctx, Frame{Event: event, Data: data}); err != nil {
		m.logger.Warn("write failed", zap.String("event", event), zap.Error(err))
		return false
	}
	return true
}

// run is the session loop: dial, serve until the transport fails, retry.
func (m *Manager) run(s *session, token string) {
	defer s.settle()

	everConnected := false
	failures := 0
	for {
		tr, err := m.dial(s.ctx, token)
		if s.ctx.Err() != nil {
			if tr != nil {
				_ = tr.Close()
			}
			return
		}

		if err == nil {
			if !m.attach(s, tr) {
				_ = tr.Close()
				return
			}
			s.settle()
			m.emit(SignalConnect, Signal{})
			if everConnected {
				m.emit(SignalReconnect, Signal{Attempt: failures})
			}
			everConnected = true
			failures = 0

			reason := m.serve(s, tr)
			if !m.detach(s, tr) {
				return
			}
			m.logger.Warn("connection lost", zap.String("reason", reason))
			m.emit(SignalDisconnect, Signal{Message: reason})
		} else {
			m.logger.Warn("connect failed", zap.Error(err), zap.Int("attempt", failures))
			if !m.transitionIfCurrent(s, status.Reconnecting) {
				return
			}
			m.emit(SignalConnectError, Signal{Message: err.Error(), Attempt: failures})
			if failures >= m.cfg.MaxRetries {
				m.giveUp(s)
				return
			}
		}

		failures++
		m.emit(SignalReconnectAttempt, Signal{Attempt: failures})
		select {
		case <-time.After(m.cfg.RetryDelay):
		case <-s.ctx.Done():
			return
		}
	}
}

// dial opens a transport and waits for the handshake frame.
func (m *Manager) dial(ctx context.Context, token string) (Transport, error) {
	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.HandshakeTimeout)
	defer cancel()

	tr, err := m.dialer.Dial(dialCtx, token)
	if err != nil {
		return nil, err
	}
	f, err := tr.Read(dialCtx)
	if err != nil {
		_ = tr.Close()
		return nil, fmt.Errorf("read handshake: %w", err)
	}
	switch f.Event {
	case SignalConnect:
		return tr, nil
	case SignalConnectError:
		_ = tr.Close()
		var sig Signal
		_ = json.Unmarshal(f.Data, &sig)
		return nil, fmt.Errorf("handshake rejected: %s", sig.Message)
	default:
		_ = tr.Close()
		return nil, fmt.Errorf("unexpected handshake event %q", f.Event)
	}
}

// serve reads frames until the transport fails and returns the reason.
func (m *Manager) serve(s *session, tr Transport) string {
	for {
		f, err := tr.Read(s.ctx)
		if errors.Is(err, ErrMalformedFrame) {
			m.logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		if err != nil {
			return err.Error()
		}
		m.dispatch(f.Event, f.Data)
	}
}

// attach installs an authenticated transport and re-joins the room.
func (m *Manager) attach(s *session, tr Transport) bool {
	m.mu.Lock()
	if m.sess != s {
		m.mu.Unlock()
		return false
	}
	if err := m.machine.Transition(status.Connected); err != nil {
		m.logger.Warn("unexpected state on connected", zap.Error(err))
	}
	m.transport = tr
	room := m.room
	join := m.claimJoinLocked() != nil
	m.mu.Unlock()

	m.logger.Info("connected")
	if join {
		m.write(tr, EventJoin, room)
	}
	return true
}

// detach drops a failed transport. It returns false when the session was
// ended by Disconnect.
func (m *Manager) detach(s *session, tr Transport) bool {
	_ = tr.Close()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess != s {
		return false
	}
	m.transport = nil
	if err := m.machine.Transition(status.Reconnecting); err != nil {
		m.logger.Warn("unexpected state on connection loss", zap.Error(err))
	}
	return true
}

func (m *Manager) transitionIfCurrent(s *session, to status.State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess != s {
		return false
	}
	if m.machine.Current() != to {
		if err := m.machine.Transition(to); err != nil {
			m.logger.Warn("unexpected state", zap.Error(err))
		}
	}
	return true
}

func (m *Manager) giveUp(s *session) {
	m.mu.Lock()
	if m.sess != s {
		m.mu.Unlock()
		return
	}
	m.sess = nil
	_ = m.machine.Transition(status.Disconnected)
	m.mu.Unlock()

	s.cancel()
	m.logger.Error("giving up on connection", zap.Int("retries", m.cfg.MaxRetries))
	m.emit(SignalReconnectFailed, Signal{Attempt: m.cfg.MaxRetries})
}

// emit delivers a lifecycle signal to subscribers and mirrors it on the bus.
func (m *Manager) emit(signal string, sig Signal) {
	data, _ := json.Marshal(sig)
	m.dispatch(signal, data)
	m.publishSignal(signal, sig)
}

func (m *Manager) publishSignal(signal string, sig Signal) {
	m.bus.Publish(bus.Event{
		Kind:      bus.ConnKind(signal),
		Timestamp: time.Now(),
		Payload:   sig,
	})
}

func (m *Manager) dispatch(event string, data json.RawMessage) {
	m.mu.Lock()
	subs := append([]subscription(nil), m.handlers[event]...)
	m.mu.Unlock()

	for _, s := range subs {
		s.h(data)
	}
}
