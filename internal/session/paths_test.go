package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matheus3301/chatsync/internal/config"
)

func TestDir(t *testing.T) {
	t.Setenv(HomeEnv, "")
	home, _ := os.UserHomeDir()
	got := Dir("main")
	want := filepath.Join(home, ".chatsync", "profiles", "main")
	if got != want {
		t.Errorf("Dir(main) = %q, want %q", got, want)
	}
}

func TestHomeOverride(t *testing.T) {
	base := t.TempDir()
	t.Setenv(HomeEnv, base)
	if got := SocketPath("work"); got != filepath.Join(base, "profiles", "work", "daemon.sock") {
		t.Errorf("SocketPath(work) = %q", got)
	}
}

func TestLockPath(t *testing.T) {
	got := LockPath("test")
	if !strings.HasSuffix(got, filepath.Join("profiles", "test", "LOCK")) {
		t.Errorf("LockPath(test) = %q, want suffix profiles/test/LOCK", got)
	}
}

func TestEnsureDir(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())
	if err := EnsureDir("test"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(LogDir("test"))
	if err != nil {
		t.Fatalf("log dir not created: %v", err)
	}
	if !info.IsDir() || info.Mode().Perm() != 0700 {
		t.Errorf("log dir mode = %v", info.Mode())
	}
}

func TestResolve(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())
	if got := Resolve(""); got != DefaultProfileName {
		t.Errorf("Resolve() without config = %q", got)
	}
	if err := config.Save(ConfigPath(), &config.Config{DefaultProfile: "work"}); err != nil {
		t.Fatal(err)
	}
	if got := Resolve(""); got != "work" {
		t.Errorf("Resolve() = %q, want work", got)
	}
	if got := Resolve("other"); got != "other" {
		t.Errorf("Resolve(other) = %q", got)
	}
}

func TestLoadProfileResolvesTokenFile(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())
	p := &config.Profile{
		APIURL:    "http://localhost:8080",
		SocketURL: "ws://localhost:8080/socket",
		UserID:    "u1",
	}
	if err := config.SaveProfile(ProfilePath("main"), p); err != nil {
		t.Fatal(err)
	}

	got, err := LoadProfile("main")
	if err != nil {
		t.Fatal(err)
	}
	if got.TokenFile != filepath.Join(Dir("main"), "token") {
		t.Errorf("TokenFile = %q", got.TokenFile)
	}
	if got.PageSize != config.DefaultPageSize {
		t.Errorf("PageSize = %d", got.PageSize)
	}
}

func TestLoadProfileInvalid(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())
	if err := config.SaveProfile(ProfilePath("main"), &config.Profile{UserID: "u1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProfile("main"); err == nil {
		t.Error("profile without urls should fail validation")
	}
}
