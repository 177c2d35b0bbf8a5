//go:build unix

package lib

import (
	"errors"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// InstanceLock is an exclusive advisory lock on a file. Only one process may
// own the usage ledger at a time, so the tray and the admin subcommands both
// take it before touching state.
type InstanceLock struct {
	file *os.File
	path string
}

// AcquireInstanceLock takes the lock without blocking.
// Returns a SYSTEM_ERROR with code context "held" if another process owns it.
func AcquireInstanceLock(path string) (*InstanceLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, WrapError(err, ErrCodeSystem, "failed to create lock directory")
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, WrapError(err, ErrCodeSystem, "failed to open lock file")
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, SystemError("another screentime-bar process is running").
				WithContext("lock_path", path).
				WithContext("held", true)
		}
		return nil, WrapError(err, ErrCodeSystem, "failed to lock instance file")
	}

	return &InstanceLock{file: f, path: path}, nil
}

// Release drops the lock. Safe to call more than once.
func (l *InstanceLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	return err
}

// Path returns the lock file location.
func (l *InstanceLock) Path() string {
	return l.path
}
