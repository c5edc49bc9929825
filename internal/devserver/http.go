package devserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

const userContextKey = "chatsync.user"

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := s.userForToken(bearerToken(c.Request))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) store.Participant {
	return c.MustGet(userContextKey).(store.Participant)
}

func (s *Server) handleListChats(c *gin.Context) {
	user := currentUser(c)

	s.mu.Lock()
	chats := make([]store.Chat, 0, len(s.order))
	for _, id := range s.order {
		rec := s.chats[id]
		if hasParticipant(rec.chat, user.ID) {
			chats = append(chats, rec.chat.Clone())
		}
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"success": true, "chats": chats})
}

func (s *Server) handleListMessages(c *gin.Context) {
	user := currentUser(c)
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid page"})
		return
	}

	s.mu.Lock()
	rec, ok := s.chats[c.Param("id")]
	if !ok || !hasParticipant(rec.chat, user.ID) {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "chat not found"})
		return
	}
	msgs := s.pageLocked(rec, page)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"success": true, "messages": msgs})
}

type createChatRequest struct {
	UserID string `json:"userId" binding:"required"`
}

func (s *Server) handleCreateChat(c *gin.Context) {
	user := currentUser(c)
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "userId is required"})
		return
	}
	if req.UserID == user.ID {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "cannot chat with yourself"})
		return
	}

	s.mu.Lock()
	peer, ok := s.userByID(req.UserID)
	if !ok {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "user not found"})
		return
	}
	chat := s.createChatLocked(user, peer).chat.Clone()
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"success": true, "chat": chat})
}
