package apiv1

import (
	"context"

	"google.golang.org/grpc"
)

var (
	ChatService_ListChats_FullMethodName    = fullMethod("ChatService", "ListChats")
	ChatService_RefreshChats_FullMethodName = fullMethod("ChatService", "RefreshChats")
	ChatService_StartChat_FullMethodName    = fullMethod("ChatService", "StartChat")
	ChatService_WatchEvents_FullMethodName  = fullMethod("ChatService", "WatchEvents")
)

// ChatServiceServer serves the chat list and the session's event stream.
type ChatServiceServer interface {
	ListChats(context.Context, *ListChatsRequest) (*ListChatsResponse, error)
	RefreshChats(context.Context, *RefreshChatsRequest) (*ListChatsResponse, error)
	StartChat(context.Context, *StartChatRequest) (*StartChatResponse, error)
	WatchEvents(*WatchEventsRequest, ChatService_WatchEventsServer) error
}

type ChatService_WatchEventsServer = grpc.ServerStreamingServer[EventEnvelope]

type ChatService_WatchEventsClient = grpc.ServerStreamingClient[EventEnvelope]

var ChatService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: servicePrefix + "ChatService",
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListChats",
			Handler: unaryHandler(ChatService_ListChats_FullMethodName,
				func(srv any, ctx context.Context, req *ListChatsRequest) (*ListChatsResponse, error) {
					return srv.(ChatServiceServer).ListChats(ctx, req)
				}),
		},
		{
			MethodName: "RefreshChats",
			Handler: unaryHandler(ChatService_RefreshChats_FullMethodName,
				func(srv any, ctx context.Context, req *RefreshChatsRequest) (*ListChatsResponse, error) {
					return srv.(ChatServiceServer).RefreshChats(ctx, req)
				}),
		},
		{
			MethodName: "StartChat",
			Handler: unaryHandler(ChatService_StartChat_FullMethodName,
				func(srv any, ctx context.Context, req *StartChatRequest) (*StartChatResponse, error) {
					return srv.(ChatServiceServer).StartChat(ctx, req)
				}),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchEvents",
			Handler:       watchEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "chatsync/v1/chat",
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchEventsRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ChatServiceServer).WatchEvents(in, &grpc.GenericServerStream[WatchEventsRequest, EventEnvelope]{ServerStream: stream})
}

func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ChatService_ServiceDesc, srv)
}

type ChatServiceClient interface {
	ListChats(ctx context.Context, in *ListChatsRequest, opts ...grpc.CallOption) (*ListChatsResponse, error)
	RefreshChats(ctx context.Context, in *RefreshChatsRequest, opts ...grpc.CallOption) (*ListChatsResponse, error)
	StartChat(ctx context.Context, in *StartChatRequest, opts ...grpc.CallOption) (*StartChatResponse, error)
	WatchEvents(ctx context.Context, in *WatchEventsRequest, opts ...grpc.CallOption) (ChatService_WatchEventsClient, error)
}

type chatServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewChatServiceClient(cc grpc.ClientConnInterface) ChatServiceClient {
	return &chatServiceClient{cc: cc}
}

func (c *chatServiceClient) ListChats(ctx context.Context, in *ListChatsRequest, opts ...grpc.CallOption) (*ListChatsResponse, error) {
	return invoke[ListChatsResponse](ctx, c.cc, ChatService_ListChats_FullMethodName, in, opts)
}

func (c *chatServiceClient) RefreshChats(ctx context.Context, in *RefreshChatsRequest, opts ...grpc.CallOption) (*ListChatsResponse, error) {
	return invoke[ListChatsResponse](ctx, c.cc, ChatService_RefreshChats_FullMethodName, in, opts)
}

func (c *chatServiceClient) StartChat(ctx context.Context, in *StartChatRequest, opts ...grpc.CallOption) (*StartChatResponse, error) {
	return invoke[StartChatResponse](ctx, c.cc, ChatService_StartChat_FullMethodName, in, opts)
}

func (c *chatServiceClient) WatchEvents(ctx context.Context, in *WatchEventsRequest, opts ...grpc.CallOption) (ChatService_WatchEventsClient, error) {
	stream, err := c.cc.NewStream(ctx, &ChatService_ServiceDesc.Streams[0], ChatService_WatchEvents_FullMethodName, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[WatchEventsRequest, EventEnvelope]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
