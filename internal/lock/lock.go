// Package lock provides file-based locking for helmdeck operations.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrLocked indicates another process holds the lock.
var ErrLocked = errors.New("lock is held by another process")

// Lock represents a file-based lock.
type Lock struct {
	name string
	path string
	file *os.File
}

// New creates a lock called name under stateDir. Characters that cannot
// appear in a file name, such as the slash in "namespace/name", are
// replaced.
func New(stateDir, name string) *Lock {
	safe := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(name)
	return &Lock{
		name: name,
		path: filepath.Join(stateDir, "locks", safe+".lock"),
	}
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Acquire attempts to acquire the lock without blocking.
// Returns an error wrapping ErrLocked if it is already held.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := lockFile(f); err != nil {
		f.Close()
		l.file = nil
		if errors.Is(err, ErrLocked) {
			return fmt.Errorf("%s: %w", l.name, ErrLocked)
		}
		return fmt.Errorf("acquire lock: %w", err)
	}

	// PID for whoever finds a stale lock file.
	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	fmt.Fprintf(f, "%d\n", os.Getpid())

	l.file = f
	return nil
}

// Release releases the lock. Releasing an unheld lock is a no-op.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}

	err := unlockFile(l.file)
	l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	os.Remove(l.path)
	return nil
}

// WithLock runs fn while holding the named lock.
func WithLock(stateDir, name string, fn func() error) error {
	l := New(stateDir, name)
	if err := l.Acquire(); err != nil {
		return err
	}
	defer l.Release()

	return fn()
}
