package conn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
)

// Frame is the JSON envelope of every socket message.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ErrMalformedFrame is returned by Transport.Read for a message that could
// not be decoded. The connection stays usable.
var ErrMalformedFrame = errors.New("malformed frame")

// Transport is a single established socket connection.
type Transport interface {
	Read(ctx context.Context) (Frame, error)
	Write(ctx context.Context, f Frame) error
	Close() error
}

// Dialer opens authenticated transports to the realtime endpoint.
type Dialer interface {
	Dial(ctx context.Context, token string) (Transport, error)
}

// WebsocketDialer dials the realtime endpoint over a websocket.
type WebsocketDialer struct {
	URL        string
	HTTPClient *http.Client
}

// Dial connects with the bearer token carried both as the token query
// parameter and the Authorization header.
func (d *WebsocketDialer) Dial(ctx context.Context, token string) (Transport, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, fmt.Errorf("parse socket url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	c, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		HTTPClient: d.HTTPClient,
		HTTPHeader: header,
	})
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	c.SetReadLimit(1 << 20)
	return &wsTransport{c: c}, nil
}

type wsTransport struct {
	c *websocket.Conn
}

func (t *wsTransport) Read(ctx context.Context) (Frame, error) {
	_, data, err := t.c.Read(ctx)
	if err != nil {
		return Frame{}, err
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil || f.Event == "" {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrMalformedFrame, len(data))
	}
	return f, nil
}

func (t *wsTransport) Write(ctx context.Context, f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return t.c.Write(ctx, websocket.MessageText, data)
}

func (t *wsTransport) Close() error {
	return t.c.Close(websocket.StatusNormalClosure, "client disconnect")
}
