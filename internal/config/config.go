// Package config reads and writes the TOML files under ~/.chatsync.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the global ~/.chatsync/config.toml, shared by every profile.
type Config struct {
	DefaultProfile string `toml:"default_profile"`
}

// Load reads the global config. A missing file is an error wrapping
// fs.ErrNotExist; callers fall back to the built-in profile name.
func Load(path string) (*Config, error) {
	return decodeFile[Config](path)
}

// Save replaces the global config.
func Save(path string, cfg *Config) error {
	return writeTOML(path, cfg)
}

func decodeFile[T any](path string) (*T, error) {
	var v T
	if _, err := toml.DecodeFile(path, &v); err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return &v, nil
}

// writeTOML encodes v into a sibling temp file and renames it over path, so
// readers never see a half-written file. The result is 0600 in a 0700 dir.
func writeTOML(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := toml.NewEncoder(tmp).Encode(v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp.Name(), path)
}
