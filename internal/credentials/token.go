// Package credentials supplies the bearer token used by the REST client and
// the realtime connection.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrEmptyToken is returned when a source yields no token.
var ErrEmptyToken = errors.New("empty auth token")

// TokenSource yields the current bearer token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Static is a fixed token.
type Static string

// Token returns the fixed token.
func (s Static) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrEmptyToken
	}
	return string(s), nil
}

// File reads the token from a file on every call, so a rotated token is
// picked up on the next request or reconnect.
type File struct {
	Path string
}

// Token reads and trims the token file.
func (f File) Token(context.Context) (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", fmt.Errorf("token file %s: %w", f.Path, ErrEmptyToken)
	}
	return tok, nil
}

// Write stores a token with owner-only permissions.
func (f File) Write(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	if err := os.WriteFile(f.Path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}
