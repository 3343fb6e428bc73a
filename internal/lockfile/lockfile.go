// Package lockfile serializes cross-process access to a store through
// advisory flock locks on a dedicated lock file. Writers take the lock
// exclusively across the append + watermark sequence; readers doing an
// incremental import take it shared.
package lockfile

import (
	"fmt"
	"os"
)

// Lock is a held advisory lock. Release it exactly once.
type Lock struct {
	f *os.File
}

// Mode selects shared or exclusive acquisition.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

// Acquire opens (creating if needed) the lock file at path and blocks until
// the lock is granted.
func Acquire(path string, mode Mode) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644) // #nosec G304 - path is the store's lock file
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := flock(f, mode); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	return &Lock{f: f}, nil
}

// Release drops the lock and closes the file.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := funlock(l.f)
	closeErr := l.f.Close()
	l.f = nil
	if err != nil {
		return err
	}
	return closeErr
}
