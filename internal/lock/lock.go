// Package lock provides cross-process locking for on-disk index directories.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
)

// FileLock provides cross-process file locking using gofrs/flock,
// guarding a single index directory against concurrent writers from
// another process. Works on all platforms (Unix, Linux, macOS, Windows).
type FileLock struct {
	path    string
	pidPath string
	flock   *flock.Flock
	locked  bool
}

// New creates a new file lock for the given index directory.
// The lock file is created at <dir>/.nxindex.lock.
func New(dir string) *FileLock {
	lockPath := filepath.Join(dir, ".nxindex.lock")
	return &FileLock{
		path:    lockPath,
		pidPath: lockPath + ".pid",
		flock:   flock.New(lockPath),
	}
}

// Lock acquires an exclusive lock on the directory, blocking until available.
func (l *FileLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	l.locked = true
	l.writePID()
	return nil
}

// TryLock attempts to acquire the lock without blocking. If the lock
// appears held, it first checks whether the holder recorded in the
// sidecar .pid file is still alive; a lock left by a crashed process is
// forcibly cleared and reacquired, per the "prior crashes are the
// dominant cause" rationale for stale locks.
func (l *FileLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	if !acquired && l.staleHolder() {
		if clearErr := l.clearStale(); clearErr != nil {
			return false, fmt.Errorf("failed to clear stale lock: %w", clearErr)
		}
		acquired, err = l.flock.TryLock()
		if err != nil {
			return false, fmt.Errorf("failed to acquire lock after clearing stale holder: %w", err)
		}
	}

	if acquired {
		l.locked = true
		l.writePID()
	}
	return acquired, nil
}

// Unlock releases the file lock. Safe to call multiple times.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}

	l.locked = false
	_ = os.Remove(l.pidPath)

	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the path to the lock file.
func (l *FileLock) Path() string {
	return l.path
}

// IsLocked returns true if this handle currently holds the lock.
func (l *FileLock) IsLocked() bool {
	return l.locked
}

func (l *FileLock) writePID() {
	pid := strconv.Itoa(os.Getpid())
	_ = os.WriteFile(l.pidPath, []byte(pid), 0644)
}

// staleHolder reports whether the recorded PID no longer refers to a
// live process on this host.
func (l *FileLock) staleHolder() bool {
	data, err := os.ReadFile(l.pidPath)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return false
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return true
	}
	// On Unix, FindProcess always succeeds; signal 0 probes liveness
	// without actually delivering a signal.
	if sigErr := proc.Signal(syscall.Signal(0)); sigErr != nil {
		return true
	}
	return false
}

func (l *FileLock) clearStale() error {
	_ = os.Remove(l.pidPath)
	return os.Remove(l.path)
}
