// Package client dials a running chatd.
package client

import (
	"fmt"

	"github.com/matheus3301/chatsync/internal/apiv1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client wraps gRPC connections to the daemon.
type Client struct {
	conn    *grpc.ClientConn
	Session apiv1.SessionServiceClient
	Chat    apiv1.ChatServiceClient
	Message apiv1.MessageServiceClient
}

// New dials the daemon's Unix domain socket and returns typed service clients.
// Every call is sent with the JSON codec.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(apiv1.CallOption()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}

	return &Client{
		conn:    conn,
		Session: apiv1.NewSessionServiceClient(conn),
		Chat:    apiv1.NewChatServiceClient(conn),
		Message: apiv1.NewMessageServiceClient(conn),
	}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
