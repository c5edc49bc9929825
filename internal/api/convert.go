package api

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/matheus3301/chatsync/internal/apiv1"
	"github.com/matheus3301/chatsync/internal/archive"
	"github.com/matheus3301/chatsync/internal/credentials"
	"github.com/matheus3301/chatsync/internal/rest"
	"github.com/matheus3301/chatsync/internal/store"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// toStatus maps an engine error onto a gRPC status.
func toStatus(op string, err error) error {
	var reqErr *rest.RequestError
	switch {
	case rest.IsFatal(err), errors.Is(err, credentials.ErrEmptyToken), errors.Is(err, os.ErrNotExist):
		return grpcstatus.Errorf(codes.Unauthenticated, "%s: %v", op, err)
	case errors.Is(err, context.Canceled):
		return grpcstatus.Errorf(codes.Canceled, "%s: %v", op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return grpcstatus.Errorf(codes.DeadlineExceeded, "%s: %v", op, err)
	case errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound:
		return grpcstatus.Errorf(codes.NotFound, "%s: %v", op, err)
	case errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusForbidden:
		return grpcstatus.Errorf(codes.PermissionDenied, "%s: %v", op, err)
	case errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusBadRequest:
		return grpcstatus.Errorf(codes.InvalidArgument, "%s: %v", op, err)
	case errors.As(err, &reqErr):
		return grpcstatus.Errorf(codes.Unavailable, "%s: %v", op, err)
	default:
		return grpcstatus.Errorf(codes.Internal, "%s: %v", op, err)
	}
}

func messageToAPI(m store.Message) apiv1.Message {
	return apiv1.Message{
		ID:              m.ID,
		ChatID:          m.ChatID,
		SenderID:        m.Sender.ID,
		SenderName:      m.Sender.Name,
		Content:         m.Content,
		CreatedAtUnixMs: m.CreatedAt.UnixMilli(),
		ReadBy:          m.ReadBy,
		Pending:         m.Pending(),
	}
}

func messagesToAPI(msgs []store.Message) []apiv1.Message {
	out := make([]apiv1.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageToAPI(m))
	}
	return out
}

func chatToAPI(c store.Chat, userID string) apiv1.Chat {
	peer, _ := c.Peer(userID)
	out := apiv1.Chat{
		ID:          c.ID,
		Peer:        apiv1.Participant{ID: peer.ID, Name: peer.Name},
		UnreadCount: c.Unread(userID),
	}
	if c.LastMessage != nil {
		out.LastMessagePreview = c.LastMessage.Content
		out.LastMessageAtUnixMs = c.LastMessage.CreatedAt.UnixMilli()
	}
	return out
}

func chatsToAPI(chats []store.Chat, userID string) []apiv1.Chat {
	out := make([]apiv1.Chat, 0, len(chats))
	for _, c := range chats {
		out = append(out, chatToAPI(c, userID))
	}
	return out
}

func summaryToAPI(c archive.ChatSummary, userID string) apiv1.Chat {
	out := apiv1.Chat{
		ID:                 c.ID,
		UnreadCount:        c.UnreadCount[userID],
		LastMessagePreview: c.LastMessagePreview,
	}
	if !c.LastMessageAt.IsZero() {
		out.LastMessageAtUnixMs = c.LastMessageAt.UnixMilli()
	}
	for _, p := range c.Participants {
		if p.ID != userID {
			out.Peer = apiv1.Participant{ID: p.ID, Name: p.Name}
			break
		}
	}
	return out
}
