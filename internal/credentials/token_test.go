package credentials

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStatic(t *testing.T) {
	tok, err := Static("abc").Token(context.Background())
	if err != nil || tok != "abc" {
		t.Errorf("got %q, %v; want abc", tok, err)
	}
	if _, err := Static("").Token(context.Background()); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("err = %v, want ErrEmptyToken", err)
	}
}

func TestFileRoundTripAndRotation(t *testing.T) {
	f := File{Path: filepath.Join(t.TempDir(), "token")}

	if _, err := f.Token(context.Background()); err == nil {
		t.Fatal("missing file should fail")
	}
	if err := f.Write("  first\n"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(f.Path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
	tok, err := f.Token(context.Background())
	if err != nil || tok != "first" {
		t.Errorf("got %q, %v; want first", tok, err)
	}

	if err := os.WriteFile(f.Path, []byte("second"), 0o600); err != nil {
		t.Fatal(err)
	}
	if tok, _ := f.Token(context.Background()); tok != "second" {
		t.Errorf("got %q, want rotated token", tok)
	}
}

func TestFileBlank(t *testing.T) {
	f := File{Path: filepath.Join(t.TempDir(), "token")}
	if err := os.WriteFile(f.Path, []byte("   \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Token(context.Background()); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("err = %v, want ErrEmptyToken", err)
	}
}
