package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type newMessage struct {
	Message store.Message `json:"message"`
}

type sendMessage struct {
	ChatID   string `json:"chatId"`
	Content  string `json:"content"`
	SenderID string `json:"senderId"`
}

type messageRead struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

type client struct {
	conn *websocket.Conn
	user store.Participant
}

func (c *client) write(ctx context.Context, f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (s *Server) handleSocket(c *gin.Context) {
	s.mu.Lock()
	reject := s.rejectDials > 0
	if reject {
		s.rejectDials--
	}
	s.mu.Unlock()
	if reject {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "unavailable"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket accept", zap.Error(err))
		return
	}
	ctx := c.Request.Context()

	user, ok := s.userForToken(bearerToken(c.Request))
	if !ok {
		cl := &client{conn: conn}
		_ = cl.write(ctx, frame{Event: "connect_error", Data: gin.H{"message": "unauthorized"}})
		_ = conn.Close(websocket.StatusPolicyViolation, "unauthorized")
		return
	}

	cl := &client{conn: conn, user: user}
	s.mu.Lock()
	s.clients[cl] = struct{}{}
	s.mu.Unlock()
	defer s.unregister(cl)

	if err := cl.write(ctx, frame{Event: "connect"}); err != nil {
		return
	}
	s.logger.Debug("socket connected", zap.String("user_id", user.ID))

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var in inboundFrame
		if err := json.Unmarshal(data, &in); err != nil {
			s.logger.Warn("dropping malformed frame", zap.String("user_id", user.ID))
			continue
		}
		s.handleFrame(ctx, cl, in)
	}
}

func (s *Server) handleFrame(ctx context.Context, cl *client, in inboundFrame) {
	switch in.Event {
	case "join":
		var room string
		if err := json.Unmarshal(in.Data, &room); err != nil || room == "" {
			return
		}
		s.mu.Lock()
		if s.rooms[room] == nil {
			s.rooms[room] = make(map[*client]struct{})
		}
		s.rooms[room][cl] = struct{}{}
		s.mu.Unlock()

	case "sendMessage":
		var req sendMessage
		if err := json.Unmarshal(in.Data, &req); err != nil || req.Content == "" {
			return
		}
		// The socket identity wins over the claimed sender.
		if _, err := s.Say(req.ChatID, cl.user.ID, req.Content); err != nil {
			s.logger.Warn("send rejected", zap.String("user_id", cl.user.ID), zap.Error(err))
		}

	case "messageRead":
		var req messageRead
		if err := json.Unmarshal(in.Data, &req); err != nil {
			return
		}
		s.mu.Lock()
		s.markReadLocked(req.MessageID, cl.user.ID)
		s.mu.Unlock()
	}
}

func (s *Server) broadcast(rooms []string, f frame) {
	s.mu.Lock()
	var targets []*client
	for _, room := range rooms {
		for c := range s.rooms[room] {
			targets = append(targets, c)
		}
	}
	s.mu.Unlock()

	for _, c := range targets {
		if err := c.write(context.Background(), f); err != nil {
			s.logger.Debug("broadcast write failed", zap.String("user_id", c.user.ID), zap.Error(err))
		}
	}
}

func (s *Server) unregister(cl *client) {
	s.mu.Lock()
	delete(s.clients, cl)
	for room, members := range s.rooms {
		delete(members, cl)
		if len(members) == 0 {
			delete(s.rooms, room)
		}
	}
	s.mu.Unlock()
	_ = cl.conn.CloseNow()
}
