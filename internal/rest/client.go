// Package rest is the HTTP client of the chat backend.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matheus3301/chatsync/internal/credentials"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/zap"
)

// Client talks to the chat REST endpoints.
type Client struct {
	baseURL    string
	tokens     credentials.TokenSource
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for baseURL. A nil httpClient uses a client
// with a 30s timeout.
func NewClient(baseURL string, tokens credentials.TokenSource, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: httpClient,
		logger:     logger,
	}
}

type envelope struct {
	Success  bool              `json:"success"`
	Message  string            `json:"message,omitempty"`
	Chats    []json.RawMessage `json:"chats,omitempty"`
	Messages []json.RawMessage `json:"messages,omitempty"`
	Chat     json.RawMessage   `json:"chat,omitempty"`
}

// ListChats fetches the user's chat summaries. Records that fail to decode
// are skipped; validation is left to the store.
func (c *Client) ListChats(ctx context.Context) ([]store.Chat, error) {
	env, err := c.do(ctx, "list chats", http.MethodGet, "/chats", nil)
	if err != nil {
		return nil, err
	}
	chats := make([]store.Chat, 0, len(env.Chats))
	for _, raw := range env.Chats {
		var ch store.Chat
		if err := json.Unmarshal(raw, &ch); err != nil {
			c.logger.Warn("dropping undecodable chat", zap.Error(err))
			continue
		}
		chats = append(chats, ch)
	}
	return chats, nil
}

// ListMessages fetches one history page of a chat. Page numbers start at 1.
// Records that fail to decode are skipped.
func (c *Client) ListMessages(ctx context.Context, chatID string, page int) ([]store.Message, error) {
	path := "/chat/" + url.PathEscape(chatID) + "/messages?page=" + strconv.Itoa(page)
	env, err := c.do(ctx, "list messages", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	msgs := make([]store.Message, 0, len(env.Messages))
	for _, raw := range env.Messages {
		var m store.Message
		if err := json.Unmarshal(raw, &m); err != nil {
			c.logger.Warn("dropping undecodable message", zap.String("chat_id", chatID), zap.Error(err))
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// CreateChat opens (or returns the existing) chat with userID.
func (c *Client) CreateChat(ctx context.Context, userID string) (store.Chat, error) {
	env, err := c.do(ctx, "create chat", http.MethodPost, "/chat", map[string]string{"userId": userID})
	if err != nil {
		return store.Chat{}, err
	}
	var ch store.Chat
	if err := json.Unmarshal(env.Chat, &ch); err != nil {
		return store.Chat{}, &RequestError{Op: "create chat", Message: "malformed chat", Err: err}
	}
	return ch, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body any) (*envelope, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, &RequestError{Op: op, Err: fmt.Errorf("%w: %w", ErrUnauthorized, err)}
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, &RequestError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(data, &env)

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &RequestError{Op: op, StatusCode: resp.StatusCode, Message: env.Message, Err: ErrUnauthorized}
	}
	if resp.StatusCode >= 300 {
		return nil, &RequestError{Op: op, StatusCode: resp.StatusCode, Message: env.Message}
	}
	if decodeErr != nil {
		return nil, &RequestError{Op: op, StatusCode: resp.StatusCode, Message: "malformed response", Err: decodeErr}
	}
	if !env.Success {
		return nil, &RequestError{Op: op, StatusCode: resp.StatusCode, Message: env.Message}
	}
	return &env, nil
}
