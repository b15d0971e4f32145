// Package lastport remembers the last serial port that was opened, so the
// next session can offer it first.
//
// The file holds the bare port name and nothing else.
package lastport

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFile is the file name used when none is configured
const DefaultFile = "atom_focuser4.conf"

// Store reads and writes the last port file at Path
type Store struct {
	Path string
}

func (s Store) path() string {
	if s.Path == "" {
		return DefaultFile
	}
	return s.Path
}

// Load returns the saved port name.  A missing file yields "" and no error.
func (s Store) Load() (string, error) {
	b, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// Save replaces the saved port name with port
func (s Store) Save(port string) error {
	p := s.path()
	if dir := filepath.Dir(p); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(p, []byte(port), 0o644)
}

// Preferred chooses the port to offer first: the saved port if it is among
// the available ones, else fallback, else the first available port.  It
// returns "" if there is nothing to offer.
func Preferred(saved string, available []string, fallback string) string {
	if saved != "" {
		for _, p := range available {
			if p == saved {
				return saved
			}
		}
	}
	if fallback != "" {
		return fallback
	}
	if len(available) > 0 {
		return available[0]
	}
	return ""
}
