package apiv1

import (
	"context"

	"google.golang.org/grpc"
)

var (
	MessageService_OpenChat_FullMethodName     = fullMethod("MessageService", "OpenChat")
	MessageService_CloseChat_FullMethodName    = fullMethod("MessageService", "CloseChat")
	MessageService_LoadOlder_FullMethodName    = fullMethod("MessageService", "LoadOlder")
	MessageService_ListMessages_FullMethodName = fullMethod("MessageService", "ListMessages")
	MessageService_SendText_FullMethodName     = fullMethod("MessageService", "SendText")
	MessageService_MarkRead_FullMethodName     = fullMethod("MessageService", "MarkRead")
	MessageService_Search_FullMethodName       = fullMethod("MessageService", "Search")
)

// MessageServiceServer serves history, sending, receipts and search.
type MessageServiceServer interface {
	OpenChat(context.Context, *OpenChatRequest) (*PageResponse, error)
	CloseChat(context.Context, *CloseChatRequest) (*CloseChatResponse, error)
	LoadOlder(context.Context, *LoadOlderRequest) (*PageResponse, error)
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
	SendText(context.Context, *SendTextRequest) (*SendTextResponse, error)
	MarkRead(context.Context, *MarkReadRequest) (*MarkReadResponse, error)
	Search(context.Context, *SearchRequest) (*SearchResponse, error)
}

var MessageService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: servicePrefix + "MessageService",
	HandlerType: (*MessageServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "OpenChat",
			Handler: unaryHandler(MessageService_OpenChat_FullMethodName,
				func(srv any, ctx context.Context, req *OpenChatRequest) (*PageResponse, error) {
					return srv.(MessageServiceServer).OpenChat(ctx, req)
				}),
		},
		{
			MethodName: "CloseChat",
			Handler: unaryHandler(MessageService_CloseChat_FullMethodName,
				func(srv any, ctx context.Context, req *CloseChatRequest) (*CloseChatResponse, error) {
					return srv.(MessageServiceServer).CloseChat(ctx, req)
				}),
		},
		{
			MethodName: "LoadOlder",
			Handler: unaryHandler(MessageService_LoadOlder_FullMethodName,
				func(srv any, ctx context.Context, req *LoadOlderRequest) (*PageResponse, error) {
					return srv.(MessageServiceServer).LoadOlder(ctx, req)
				}),
		},
		{
			MethodName: "ListMessages",
			Handler: unaryHandler(MessageService_ListMessages_FullMethodName,
				func(srv any, ctx context.Context, req *ListMessagesRequest) (*ListMessagesResponse, error) {
					return srv.(MessageServiceServer).ListMessages(ctx, req)
				}),
		},
		{
			MethodName: "SendText",
			Handler: unaryHandler(MessageService_SendText_FullMethodName,
				func(srv any, ctx context.Context, req *SendTextRequest) (*SendTextResponse, error) {
					return srv.(MessageServiceServer).SendText(ctx, req)
				}),
		},
		{
			MethodName: "MarkRead",
			Handler: unaryHandler(MessageService_MarkRead_FullMethodName,
				func(srv any, ctx context.Context, req *MarkReadRequest) (*MarkReadResponse, error) {
					return srv.(MessageServiceServer).MarkRead(ctx, req)
				}),
		},
		{
			MethodName: "Search",
			Handler: unaryHandler(MessageService_Search_FullMethodName,
				func(srv any, ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
					return srv.(MessageServiceServer).Search(ctx, req)
				}),
		},
	},
	Metadata: "chatsync/v1/message",
}

func RegisterMessageServiceServer(s grpc.ServiceRegistrar, srv MessageServiceServer) {
	s.RegisterService(&MessageService_ServiceDesc, srv)
}

type MessageServiceClient interface {
	OpenChat(ctx context.Context, in *OpenChatRequest, opts ...grpc.CallOption) (*PageResponse, error)
	CloseChat(ctx context.Context, in *CloseChatRequest, opts ...grpc.CallOption) (*CloseChatResponse, error)
	LoadOlder(ctx context.Context, in *LoadOlderRequest, opts ...grpc.CallOption) (*PageResponse, error)
	ListMessages(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*ListMessagesResponse, error)
	SendText(ctx context.Context, in *SendTextRequest, opts ...grpc.CallOption) (*SendTextResponse, error)
	MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error)
	Search(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error)
}

type messageServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewMessageServiceClient(cc grpc.ClientConnInterface) MessageServiceClient {
	return &messageServiceClient{cc: cc}
}

func (c *messageServiceClient) OpenChat(ctx context.Context, in *OpenChatRequest, opts ...grpc.CallOption) (*PageResponse, error) {
	return invoke[PageResponse](ctx, c.cc, MessageService_OpenChat_FullMethodName, in, opts)
}

func (c *messageServiceClient) CloseChat(ctx context.Context, in *CloseChatRequest, opts ...grpc.CallOption) (*CloseChatResponse, error) {
	return invoke[CloseChatResponse](ctx, c.cc, MessageService_CloseChat_FullMethodName, in, opts)
}

func (c *messageServiceClient) LoadOlder(ctx context.Context, in *LoadOlderRequest, opts ...grpc.CallOption) (*PageResponse, error) {
	return invoke[PageResponse](ctx, c.cc, MessageService_LoadOlder_FullMethodName, in, opts)
}

func (c *messageServiceClient) ListMessages(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*ListMessagesResponse, error) {
	return invoke[ListMessagesResponse](ctx, c.cc, MessageService_ListMessages_FullMethodName, in, opts)
}

func (c *messageServiceClient) SendText(ctx context.Context, in *SendTextRequest, opts ...grpc.CallOption) (*SendTextResponse, error) {
	return invoke[SendTextResponse](ctx, c.cc, MessageService_SendText_FullMethodName, in, opts)
}

func (c *messageServiceClient) MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error) {
	return invoke[MarkReadResponse](ctx, c.cc, MessageService_MarkRead_FullMethodName, in, opts)
}

func (c *messageServiceClient) Search(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error) {
	return invoke[SearchResponse](ctx, c.cc, MessageService_Search_FullMethodName, in, opts)
}
