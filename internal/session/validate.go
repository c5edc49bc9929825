package session

import (
	"errors"
	"fmt"
	"regexp"
)

// Profile names become directory names under ~/.chatsync/profiles.
var nameRegexp = regexp.MustCompile(`^[a-z0-9_-]+$`)

const maxNameLen = 64

// ErrInvalidName is wrapped by every ValidateName failure.
var ErrInvalidName = errors.New("invalid profile name")

// ValidateName checks that name is usable as a profile directory.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case len(name) > maxNameLen:
		return fmt.Errorf("%w %q: longer than %d characters", ErrInvalidName, name, maxNameLen)
	case !nameRegexp.MatchString(name):
		return fmt.Errorf("%w %q: use lower-case letters, digits, '-' and '_'", ErrInvalidName, name)
	}
	return nil
}
