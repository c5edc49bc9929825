package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultProfileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	if err := Save(path, &Config{DefaultProfile: "ana"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	// A second save replaces the file instead of appending to it.
	if err := Save(path, &Config{DefaultProfile: "bruno"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultProfile != "bruno" {
		t.Errorf("DefaultProfile = %q, want bruno", cfg.DefaultProfile)
	}
}

func TestLoadMissingWrapsNotExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load() error = %v, want fs.ErrNotExist", err)
	}
}

func TestSaveLeavesOnlyPrivateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := Save(path, &Config{DefaultProfile: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file permission = %o, want 600", perm)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("dir holds %d entries, want only config.toml", len(entries))
	}
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.toml")
	data := `
api_url = "http://localhost:8080"
socket_url = "ws://localhost:8080/socket"
user_id = "u1"
user_name = "Ana"
reconnect_delay = "250ms"
page_size = 30
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	got := p.WithDefaults()
	if got.ReconnectDelay.Duration != 250*time.Millisecond {
		t.Errorf("ReconnectDelay = %v, want 250ms", got.ReconnectDelay)
	}
	if got.PageSize != 30 {
		t.Errorf("PageSize = %d, want 30", got.PageSize)
	}
	if got.ReconnectAttempts != DefaultReconnectAttempts || got.HandshakeTimeout.Duration != DefaultHandshakeTimeout {
		t.Errorf("defaults not applied: %+v", got)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestSaveProfileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p", "profile.toml")
	in := Profile{APIURL: "https://chat.example.com", SocketURL: "wss://chat.example.com/socket", UserID: "u1"}.WithDefaults()
	if err := SaveProfile(path, &in); err != nil {
		t.Fatal(err)
	}
	out, err := LoadProfile(path)
	if err != nil {
		t.Fatal(err)
	}
	if *out != in {
		t.Errorf("round trip = %+v, want %+v", *out, in)
	}
}

func TestValidate(t *testing.T) {
	base := Profile{
		APIURL:    "http://localhost:8080",
		SocketURL: "ws://localhost:8080/socket",
		UserID:    "u1",
	}.WithDefaults()

	tests := []struct {
		name    string
		mutate  func(*Profile)
		wantErr string
	}{
		{"valid", func(*Profile) {}, ""},
		{"missing api url", func(p *Profile) { p.APIURL = "" }, "api_url is required"},
		{"relative api url", func(p *Profile) { p.APIURL = "/chats" }, "api_url"},
		{"http socket url", func(p *Profile) { p.SocketURL = "http://localhost/socket" }, "socket_url"},
		{"missing user", func(p *Profile) { p.UserID = "" }, "user_id is required"},
		{"bad log level", func(p *Profile) { p.LogLevel = "loud" }, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
