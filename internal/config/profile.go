package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap/zapcore"
)

// Defaults applied by Profile.WithDefaults.
const (
	DefaultPageSize          = 20
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultLogLevel          = "info"
)

// Duration is a time.Duration written as a Go duration string ("1s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Profile is one account against one chat backend, stored in
// ~/.chatsync/profiles/<name>/profile.toml.
type Profile struct {
	APIURL    string `toml:"api_url"`
	SocketURL string `toml:"socket_url"`
	UserID    string `toml:"user_id"`
	UserName  string `toml:"user_name"`
	// TokenFile holds the bearer token. Relative paths are resolved against
	// the profile directory by the daemon.
	TokenFile string `toml:"token_file"`

	PageSize          int      `toml:"page_size"`
	ReconnectAttempts int      `toml:"reconnect_attempts"`
	ReconnectDelay    Duration `toml:"reconnect_delay"`
	HandshakeTimeout  Duration `toml:"handshake_timeout"`
	LogLevel          string   `toml:"log_level"`
}

// LoadProfile reads a profile file. Defaults are not applied.
func LoadProfile(path string) (*Profile, error) {
	return decodeFile[Profile](path)
}

// SaveProfile writes a profile file with 0600 permissions.
func SaveProfile(path string, p *Profile) error {
	return writeTOML(path, p)
}

// WithDefaults returns a copy with unset tunables filled in.
func (p Profile) WithDefaults() Profile {
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.ReconnectAttempts <= 0 {
		p.ReconnectAttempts = DefaultReconnectAttempts
	}
	if p.ReconnectDelay.Duration <= 0 {
		p.ReconnectDelay.Duration = DefaultReconnectDelay
	}
	if p.HandshakeTimeout.Duration <= 0 {
		p.HandshakeTimeout.Duration = DefaultHandshakeTimeout
	}
	if p.LogLevel == "" {
		p.LogLevel = DefaultLogLevel
	}
	if p.TokenFile == "" {
		p.TokenFile = "token"
	}
	return p
}

// Validate checks the fields the daemon cannot run without.
func (p Profile) Validate() error {
	var errs []error
	if err := checkURL("api_url", p.APIURL, "http", "https"); err != nil {
		errs = append(errs, err)
	}
	if err := checkURL("socket_url", p.SocketURL, "ws", "wss"); err != nil {
		errs = append(errs, err)
	}
	if p.UserID == "" {
		errs = append(errs, errors.New("user_id is required"))
	}
	if _, err := zapcore.ParseLevel(p.LogLevel); p.LogLevel != "" && err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	return errors.Join(errs...)
}

func checkURL(field, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s: %q must be an absolute %s URL", field, raw, schemes[0])
}
