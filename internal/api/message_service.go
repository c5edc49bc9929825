package api

import (
	"context"
	"errors"
	"time"

	"github.com/matheus3301/chatsync/internal/apiv1"
	"github.com/matheus3301/chatsync/internal/archive"
	"github.com/matheus3301/chatsync/internal/pagination"
	intsync "github.com/matheus3301/chatsync/internal/sync"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// MessageService implements the MessageService gRPC service.
type MessageService struct {
	engine *intsync.Engine
	db     *archive.DB
}

// NewMessageService creates a new message service.
func NewMessageService(engine *intsync.Engine, db *archive.DB) *MessageService {
	return &MessageService{engine: engine, db: db}
}

func (s *MessageService) OpenChat(ctx context.Context, req *apiv1.OpenChatRequest) (*apiv1.PageResponse, error) {
	if err := s.requireChat(req.ChatID); err != nil {
		return nil, err
	}
	page, err := s.engine.OpenChat(ctx, req.ChatID)
	if err != nil {
		return nil, toStatus("open chat", err)
	}
	return s.pageResponse(req.ChatID, page), nil
}

// CloseChat clears the active chat so incoming messages count as unread
// again.
func (s *MessageService) CloseChat(_ context.Context, _ *apiv1.CloseChatRequest) (*apiv1.CloseChatResponse, error) {
	if s.engine == nil {
		return nil, grpcstatus.Errorf(codes.Unavailable, "engine not initialized")
	}
	s.engine.CloseChat()
	return &apiv1.CloseChatResponse{}, nil
}

func (s *MessageService) LoadOlder(ctx context.Context, req *apiv1.LoadOlderRequest) (*apiv1.PageResponse, error) {
	if err := s.requireChat(req.ChatID); err != nil {
		return nil, err
	}
	page, err := s.engine.LoadOlder(ctx, req.ChatID)
	if err != nil {
		return nil, toStatus("load older", err)
	}
	return s.pageResponse(req.ChatID, page), nil
}

func (s *MessageService) ListMessages(_ context.Context, req *apiv1.ListMessagesRequest) (*apiv1.ListMessagesResponse, error) {
	if req.ChatID == "" {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "chat_id is required")
	}
	if !req.Archived {
		if s.engine == nil {
			return nil, grpcstatus.Errorf(codes.Unavailable, "engine not initialized")
		}
		msgs := s.engine.Store().Messages(req.ChatID)
		if req.Limit > 0 && len(msgs) > req.Limit {
			msgs = msgs[len(msgs)-req.Limit:]
		}
		return &apiv1.ListMessagesResponse{Messages: messagesToAPI(msgs)}, nil
	}

	if s.db == nil {
		return nil, grpcstatus.Errorf(codes.Unavailable, "archive not initialized")
	}
	limit := 50
	if req.Limit > 0 {
		limit = req.Limit
	}
	var before time.Time
	if req.BeforeUnixMs > 0 {
		before = time.UnixMilli(req.BeforeUnixMs)
	}
	msgs, err := s.db.ListMessages(req.ChatID, before, limit)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list messages: %v", err)
	}
	return &apiv1.ListMessagesResponse{Messages: messagesToAPI(msgs)}, nil
}

func (s *MessageService) SendText(_ context.Context, req *apiv1.SendTextRequest) (*apiv1.SendTextResponse, error) {
	if err := s.requireChat(req.ChatID); err != nil {
		return nil, err
	}
	msg, sent, err := s.engine.SendText(req.ChatID, req.Text)
	if errors.Is(err, intsync.ErrEmptyMessage) {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "send text: %v", err)
	}
	if err != nil {
		return nil, toStatus("send text", err)
	}
	return &apiv1.SendTextResponse{Message: messageToAPI(msg), Sent: sent}, nil
}

func (s *MessageService) MarkRead(_ context.Context, req *apiv1.MarkReadRequest) (*apiv1.MarkReadResponse, error) {
	if err := s.requireChat(req.ChatID); err != nil {
		return nil, err
	}
	return &apiv1.MarkReadResponse{Acknowledged: s.engine.MarkRead(req.ChatID)}, nil
}

func (s *MessageService) Search(_ context.Context, req *apiv1.SearchRequest) (*apiv1.SearchResponse, error) {
	if s.db == nil {
		return nil, grpcstatus.Errorf(codes.Unavailable, "archive not initialized")
	}
	if req.Query == "" {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "query is required")
	}
	results, err := s.db.SearchMessages(req.Query, req.ChatID, req.Limit)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "search messages: %v", err)
	}

	out := make([]apiv1.SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, apiv1.SearchResult{
			Message: messageToAPI(r.Message),
			Snippet: r.Snippet,
		})
	}
	return &apiv1.SearchResponse{Results: out}, nil
}

func (s *MessageService) requireChat(chatID string) error {
	if s.engine == nil {
		return grpcstatus.Errorf(codes.Unavailable, "engine not initialized")
	}
	if chatID == "" {
		return grpcstatus.Errorf(codes.InvalidArgument, "chat_id is required")
	}
	if _, ok := s.engine.Store().Chat(chatID); !ok {
		return grpcstatus.Errorf(codes.NotFound, "chat %q not found", chatID)
	}
	return nil
}

func (s *MessageService) pageResponse(chatID string, page pagination.Page) *apiv1.PageResponse {
	resp := &apiv1.PageResponse{
		Messages:  messagesToAPI(s.engine.Store().Messages(chatID)),
		Added:     len(page.Messages),
		HasMore:   page.HasMore,
		Coalesced: page.Coalesced,
		Discarded: page.Discarded,
	}
	if cur, ok := s.engine.Pages().Cursor(chatID); ok {
		resp.Page = cur.Page
		resp.HasMore = cur.HasMore
	}
	return resp
}
