// Package devserver is an in-memory chat backend speaking the same REST and
// socket protocol as production. It backs chatsim and the integration tests.
package devserver

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

// DefaultPageSize is the history page size served by the backend.
const DefaultPageSize = 20

type chatRecord struct {
	chat     store.Chat
	messages []store.Message
}

// Server holds users, chats and connected sockets.
type Server struct {
	logger   *zap.Logger
	pageSize int
	router   *gin.Engine
	now      func() time.Time

	mu          sync.Mutex
	users       map[string]store.Participant // by token
	chats       map[string]*chatRecord
	order       []string
	rooms       map[string]map[*client]struct{}
	clients     map[*client]struct{}
	nextMsg     int
	nextChat    int
	rejectDials int
}

// New creates a server with an empty dataset.
func New(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		logger:   logger,
		pageSize: DefaultPageSize,
		now:      time.Now,
		users:    make(map[string]store.Participant),
		chats:    make(map[string]*chatRecord),
		rooms:    make(map[string]map[*client]struct{}),
		clients:  make(map[*client]struct{}),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler serving REST and the socket endpoint.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	r.GET("/socket", s.handleSocket)

	api := r.Group("/")
	api.Use(s.requireUser())
	api.GET("/chats", s.handleListChats)
	api.GET("/chat/:id/messages", s.handleListMessages)
	api.POST("/chat", s.handleCreateChat)
	return r
}

// AddUser registers a user reachable with token.
func (s *Server) AddUser(token string, p store.Participant) {
	s.mu.Lock()
	s.users[token] = p
	s.mu.Unlock()
}

// SeedChat creates a chat between two users and returns it.
func (s *Server) SeedChat(a, b store.Participant) store.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createChatLocked(a, b).chat.Clone()
}

// Say stores a message as if sent by sender and broadcasts it to both
// participants.
func (s *Server) Say(chatID, senderID, content string) (store.Message, error) {
	s.mu.Lock()
	msg, rooms, err := s.appendLocked(chatID, senderID, content)
	s.mu.Unlock()
	if err != nil {
		return store.Message{}, err
	}
	s.broadcast(rooms, frame{Event: "newMessage", Data: newMessage{Message: msg}})
	return msg, nil
}

// Messages returns the stored history of a chat in chronological order.
func (s *Server) Messages(chatID string) []store.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.chats[chatID]
	if !ok {
		return nil
	}
	out := make([]store.Message, len(rec.messages))
	for i, m := range rec.messages {
		out[i] = m.Clone()
	}
	return out
}

// DropConnections closes every connected socket, as a network outage would.
func (s *Server) DropConnections() int {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close(websocket.StatusGoingAway, "server restart")
	}
	s.logger.Info("dropped connections", zap.Int("count", len(clients)))
	return len(clients)
}

// RejectNextDials makes the next n socket upgrade requests fail.
func (s *Server) RejectNextDials(n int) {
	s.mu.Lock()
	s.rejectDials = n
	s.mu.Unlock()
}

// Joins returns how many sockets currently sit in userID's room.
func (s *Server) Joins(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms[userID])
}

func (s *Server) userForToken(token string) (store.Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.users[token]
	return p, ok
}

func (s *Server) userByID(id string) (store.Participant, bool) {
	for _, p := range s.users {
		if p.ID == id {
			return p, true
		}
	}
	return store.Participant{}, false
}

func (s *Server) createChatLocked(a, b store.Participant) *chatRecord {
	for _, id := range s.order {
		rec := s.chats[id]
		if hasParticipant(rec.chat, a.ID) && hasParticipant(rec.chat, b.ID) {
			return rec
		}
	}
	s.nextChat++
	rec := &chatRecord{chat: store.Chat{
		ID:           fmt.Sprintf("chat_%d", s.nextChat),
		Participants: []store.Participant{a, b},
		UnreadCount:  map[string]int{a.ID: 0, b.ID: 0},
	}}
	s.chats[rec.chat.ID] = rec
	s.order = append([]string{rec.chat.ID}, s.order...)
	return rec
}

// appendLocked stores a new message and returns the rooms to notify.
func (s *Server) appendLocked(chatID, senderID, content string) (store.Message, []string, error) {
	rec, ok := s.chats[chatID]
	if !ok {
		return store.Message{}, nil, fmt.Errorf("chat %s not found", chatID)
	}
	var sender store.Participant
	for _, p := range rec.chat.Participants {
		if p.ID == senderID {
			sender = p
		}
	}
	if sender.ID == "" {
		return store.Message{}, nil, fmt.Errorf("%s is not a participant of %s", senderID, chatID)
	}

	s.nextMsg++
	msg := store.Message{
		ID:        fmt.Sprintf("srv_%d", s.nextMsg),
		ChatID:    chatID,
		Sender:    sender,
		Content:   content,
		CreatedAt: s.now().UTC(),
		ReadBy:    []string{sender.ID},
	}
	rec.messages = append(rec.messages, msg)
	last := msg.Clone()
	rec.chat.LastMessage = &last

	rooms := make([]string, 0, len(rec.chat.Participants))
	for _, p := range rec.chat.Participants {
		rooms = append(rooms, p.ID)
		if p.ID != sender.ID {
			rec.chat.UnreadCount[p.ID]++
		}
	}
	s.touchLocked(chatID)
	return msg.Clone(), rooms, nil
}

func (s *Server) markReadLocked(messageID, userID string) bool {
	for _, rec := range s.chats {
		for i := range rec.messages {
			m := &rec.messages[i]
			if m.ID != messageID {
				continue
			}
			if m.IsReadBy(userID) || !hasParticipant(rec.chat, userID) {
				return false
			}
			m.ReadBy = append(m.ReadBy, userID)
			if n := rec.chat.UnreadCount[userID]; n > 0 {
				rec.chat.UnreadCount[userID] = n - 1
			}
			return true
		}
	}
	return false
}

func (s *Server) touchLocked(chatID string) {
	for i, id := range s.order {
		if id == chatID {
			copy(s.order[1:i+1], s.order[:i])
			s.order[0] = chatID
			return
		}
	}
}

// page returns history page n (1-based), newest first.
func (s *Server) pageLocked(rec *chatRecord, n int) []store.Message {
	end := len(rec.messages) - (n-1)*s.pageSize
	if end <= 0 {
		return []store.Message{}
	}
	start := max(end-s.pageSize, 0)
	out := make([]store.Message, 0, end-start)
	for i := end - 1; i >= start; i-- {
		out = append(out, rec.messages[i].Clone())
	}
	return out
}

func hasParticipant(c store.Chat, userID string) bool {
	for _, p := range c.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
