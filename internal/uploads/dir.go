// Package uploads stores uploaded files under <base>/<user>/<session>/.
package uploads

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned for path components that would escape the base directory.
var ErrInvalidName = errors.New("invalid path component")

// Dir is the root of the upload tree.
type Dir struct {
	Base string
}

// NewDir returns a Dir rooted at base.
func NewDir(base string) *Dir {
	return &Dir{Base: base}
}

func cleanComponent(s string) (string, error) {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, s)
	}
	return s, nil
}

// SessionPath returns the directory holding a session's files.
func (d *Dir) SessionPath(userID, sessionID string) (string, error) {
	u, err := cleanComponent(userID)
	if err != nil {
		return "", err
	}
	s, err := cleanComponent(sessionID)
	if err != nil {
		return "", err
	}
	return filepath.Join(d.Base, u, s), nil
}

// Save writes data to the session directory and returns the file path.
func (d *Dir) Save(userID, sessionID, filename string, data []byte) (string, error) {
	dir, err := d.SessionPath(userID, sessionID)
	if err != nil {
		return "", err
	}
	name, err := cleanComponent(filepath.Base(filename))
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload %s: %w", name, err)
	}
	return path, nil
}

// RemoveSession deletes the session directory. A missing directory is not an error.
func (d *Dir) RemoveSession(userID, sessionID string) error {
	dir, err := d.SessionPath(userID, sessionID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove upload dir: %w", err)
	}
	return nil
}

// RemoveUser deletes every session directory of a user.
func (d *Dir) RemoveUser(userID string) error {
	u, err := cleanComponent(userID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(d.Base, u)); err != nil {
		return fmt.Errorf("remove user upload dir: %w", err)
	}
	return nil
}
