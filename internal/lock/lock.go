// Package lock keeps two squeeze sessions from converting the same root at
// once.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/gofrs/flock"
)

// ErrHeld means another session owns the root.
var ErrHeld = errors.New("another squeeze session is using this directory")

// Session is an advisory lock on one root directory.
type Session struct {
	path string
	lock *flock.Flock
}

// PathFor returns the lock file for root inside dir, named by a hash of the
// absolute root.
func PathFor(dir, root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return filepath.Join(dir, fmt.Sprintf("squeeze-%016x.lock", xxhash.Sum64String(abs))), nil
}

// Acquire takes the lock for root without blocking. dir defaults to the
// system temp directory.
func Acquire(dir, root string) (*Session, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	path, err := PathFor(dir, root)
	if err != nil {
		return nil, err
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrHeld, path)
	}
	return &Session{path: path, lock: fl}, nil
}

// Path is the lock file location.
func (s *Session) Path() string { return s.path }

// Release unlocks the session. The lock file is left in place.
func (s *Session) Release() error {
	if s == nil || s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}
