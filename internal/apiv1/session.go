package apiv1

import (
	"context"

	"google.golang.org/grpc"
)

var (
	SessionService_GetStatus_FullMethodName = fullMethod("SessionService", "GetStatus")
	SessionService_Reconnect_FullMethodName = fullMethod("SessionService", "Reconnect")
)

// SessionServiceServer reports and controls the daemon's chat session.
type SessionServiceServer interface {
	GetStatus(context.Context, *GetStatusRequest) (*GetStatusResponse, error)
	Reconnect(context.Context, *ReconnectRequest) (*ReconnectResponse, error)
}

var SessionService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: servicePrefix + "SessionService",
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStatus",
			Handler: unaryHandler(SessionService_GetStatus_FullMethodName,
				func(srv any, ctx context.Context, req *GetStatusRequest) (*GetStatusResponse, error) {
					return srv.(SessionServiceServer).GetStatus(ctx, req)
				}),
		},
		{
			MethodName: "Reconnect",
			Handler: unaryHandler(SessionService_Reconnect_FullMethodName,
				func(srv any, ctx context.Context, req *ReconnectRequest) (*ReconnectResponse, error) {
					return srv.(SessionServiceServer).Reconnect(ctx, req)
				}),
		},
	},
	Metadata: "chatsync/v1/session",
}

func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&SessionService_ServiceDesc, srv)
}

type SessionServiceClient interface {
	GetStatus(ctx context.Context, in *GetStatusRequest, opts ...grpc.CallOption) (*GetStatusResponse, error)
	Reconnect(ctx context.Context, in *ReconnectRequest, opts ...grpc.CallOption) (*ReconnectResponse, error)
}

type sessionServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSessionServiceClient(cc grpc.ClientConnInterface) SessionServiceClient {
	return &sessionServiceClient{cc: cc}
}

func (c *sessionServiceClient) GetStatus(ctx context.Context, in *GetStatusRequest, opts ...grpc.CallOption) (*GetStatusResponse, error) {
	return invoke[GetStatusResponse](ctx, c.cc, SessionService_GetStatus_FullMethodName, in, opts)
}

func (c *sessionServiceClient) Reconnect(ctx context.Context, in *ReconnectRequest, opts ...grpc.CallOption) (*ReconnectResponse, error) {
	return invoke[ReconnectResponse](ctx, c.cc, SessionService_Reconnect_FullMethodName, in, opts)
}
