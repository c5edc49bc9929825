package api

import (
	"context"
	"time"

	"github.com/matheus3301/chatsync/internal/apiv1"
	"github.com/matheus3301/chatsync/internal/archive"
	intsync "github.com/matheus3301/chatsync/internal/sync"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// SessionService implements the SessionService gRPC service.
type SessionService struct {
	profile string
	engine  *intsync.Engine
	db      *archive.DB
}

// NewSessionService creates a new session service. db may be nil, in which
// case archive counts are reported as zero.
func NewSessionService(profile string, engine *intsync.Engine, db *archive.DB) *SessionService {
	return &SessionService{profile: profile, engine: engine, db: db}
}

func (s *SessionService) GetStatus(_ context.Context, _ *apiv1.GetStatusRequest) (*apiv1.GetStatusResponse, error) {
	if s.engine == nil {
		return nil, grpcstatus.Errorf(codes.Unavailable, "engine not initialized")
	}
	st := s.engine.Status()

	resp := &apiv1.GetStatusResponse{
		Profile:     s.profile,
		UserID:      st.User.ID,
		UserName:    st.User.Name,
		State:       string(st.State),
		ActiveChat:  st.ActiveChat,
		ChatCount:   st.Chats,
		QueuedSends: st.Queued,
	}
	if !st.StartedAt.IsZero() {
		resp.UptimeMs = time.Since(st.StartedAt).Milliseconds()
	}

	// Archive counts are best effort.
	if s.db != nil {
		if n, err := s.db.CountChats(); err == nil {
			resp.ArchivedChatCount = n
		}
		if n, err := s.db.CountMessages(); err == nil {
			resp.ArchivedMessageCount = n
		}
	}
	return resp, nil
}

func (s *SessionService) Reconnect(ctx context.Context, _ *apiv1.ReconnectRequest) (*apiv1.ReconnectResponse, error) {
	if s.engine == nil {
		return nil, grpcstatus.Errorf(codes.Unavailable, "engine not initialized")
	}
	if err := s.engine.Reconnect(ctx); err != nil {
		return nil, toStatus("reconnect", err)
	}
	return &apiv1.ReconnectResponse{State: string(s.engine.Status().State)}, nil
}
