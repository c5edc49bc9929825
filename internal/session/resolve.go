package session

import (
	"fmt"
	"path/filepath"

	"github.com/matheus3301/chatsync/internal/config"
)

const DefaultProfileName = "main"

// Resolve determines the active profile name using precedence:
// 1. flagOverride (--profile flag)
// 2. config.toml default_profile
// 3. "main"
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	cfg, err := config.Load(ConfigPath())
	if err == nil && cfg.DefaultProfile != "" {
		return cfg.DefaultProfile
	}
	return DefaultProfileName
}

// LoadProfile reads and validates the named profile with defaults applied.
// A relative token_file is resolved against the profile directory.
func LoadProfile(name string) (config.Profile, error) {
	p, err := config.LoadProfile(ProfilePath(name))
	if err != nil {
		return config.Profile{}, fmt.Errorf("load profile %q: %w", name, err)
	}
	out := p.WithDefaults()
	if !filepath.IsAbs(out.TokenFile) {
		out.TokenFile = filepath.Join(Dir(name), out.TokenFile)
	}
	if err := out.Validate(); err != nil {
		return config.Profile{}, fmt.Errorf("profile %q: %w", name, err)
	}
	return out, nil
}
