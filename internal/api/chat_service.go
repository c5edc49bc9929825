package api

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/matheus3301/chatsync/internal/apiv1"
	"github.com/matheus3301/chatsync/internal/archive"
	"github.com/matheus3301/chatsync/internal/bus"
	intsync "github.com/matheus3301/chatsync/internal/sync"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// ChatService implements the ChatService gRPC service.
type ChatService struct {
	engine  *intsync.Engine
	db      *archive.DB
	bus     *bus.Bus
	profile string
}

// NewChatService creates a new chat service backed by the live session and
// the archive.
func NewChatService(engine *intsync.Engine, db *archive.DB, b *bus.Bus, profile string) *ChatService {
	return &ChatService{engine: engine, db: db, bus: b, profile: profile}
}

func (s *ChatService) ListChats(_ context.Context, req *apiv1.ListChatsRequest) (*apiv1.ListChatsResponse, error) {
	if req.Archived {
		return s.listArchived(req.Limit)
	}
	if s.engine == nil {
		return nil, grpcstatus.Errorf(codes.Unavailable, "engine not initialized")
	}
	chats := s.engine.Store().Chats()
	if req.Limit > 0 && len(chats) > req.Limit {
		chats = chats[:req.Limit]
	}
	return &apiv1.ListChatsResponse{Chats: chatsToAPI(chats, s.engine.User().ID)}, nil
}

func (s *ChatService) listArchived(limit int) (*apiv1.ListChatsResponse, error) {
	if s.db == nil {
		return nil, grpcstatus.Errorf(codes.Unavailable, "archive not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.ListChats(limit, 0)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list chats: %v", err)
	}
	var userID string
	if s.engine != nil {
		userID = s.engine.User().ID
	}
	chats := make([]apiv1.Chat, 0, len(rows))
	for _, c := range rows {
		chats = append(chats, summaryToAPI(c, userID))
	}
	return &apiv1.ListChatsResponse{Chats: chats}, nil
}

func (s *ChatService) RefreshChats(ctx context.Context, _ *apiv1.RefreshChatsRequest) (*apiv1.ListChatsResponse, error) {
	if s.engine == nil {
		return nil, grpcstatus.Errorf(codes.Unavailable, "engine not initialized")
	}
	chats, err := s.engine.RefreshChats(ctx)
	if err != nil {
		return nil, toStatus("refresh chats", err)
	}
	return &apiv1.ListChatsResponse{Chats: chatsToAPI(chats, s.engine.User().ID)}, nil
}

func (s *ChatService) StartChat(ctx context.Context, req *apiv1.StartChatRequest) (*apiv1.StartChatResponse, error) {
	if s.engine == nil {
		return nil, grpcstatus.Errorf(codes.Unavailable, "engine not initialized")
	}
	if req.UserID == "" {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "user_id is required")
	}
	chat, err := s.engine.StartChat(ctx, req.UserID)
	if err != nil {
		return nil, toStatus("start chat", err)
	}
	return &apiv1.StartChatResponse{Chat: chatToAPI(chat, s.engine.User().ID)}, nil
}

func (s *ChatService) WatchEvents(req *apiv1.WatchEventsRequest, stream apiv1.ChatService_WatchEventsServer) error {
	var (
		ch    <-chan bus.Event
		unsub func()
	)
	if req.ChatID != "" {
		ch, unsub = s.bus.SubscribeChat(req.Namespace, req.ChatID, 256)
	} else {
		ch, unsub = s.bus.Subscribe(req.Namespace, 256)
	}
	defer unsub()

	for {
		select {
		case evt := <-ch:
			payload, _ := json.Marshal(evt.Payload)
			if err := stream.Send(&apiv1.EventEnvelope{
				EventID:          uuid.New().String(),
				Profile:          s.profile,
				Kind:             evt.Kind,
				ChatID:           evt.ChatID,
				OccurredAtUnixMs: evt.Timestamp.UnixMilli(),
				Payload:          payload,
			}); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}
