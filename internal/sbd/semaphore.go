package sbd

import (
	"os"

	"golang.org/x/sys/unix"
)

// Semaphore is a named, process-shared mutual-exclusion primitive backed
// by an advisory file lock. Acquire is always attempted non-blocking so
// the owning loop never parks on a contended region.
type Semaphore struct {
	f *os.File
}

// OpenSemaphore opens (creating if necessary) the lock file at path.
func OpenSemaphore(path string) (*Semaphore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, err
	}
	return &Semaphore{f: f}, nil
}

// TryAcquire attempts a non-blocking exclusive lock, returning false
// (rather than an error) if another holder currently owns it.
func (s *Semaphore) TryAcquire() (bool, error) {
	err := unix.Flock(int(s.f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err == nil {
		return true, nil
	}
	if err == unix.EWOULDBLOCK {
		return false, nil
	}
	return false, err
}

// Release drops the lock.
func (s *Semaphore) Release() error {
	return unix.Flock(int(s.f.Fd()), unix.LOCK_UN)
}

// Close releases and closes the backing file.
func (s *Semaphore) Close() error {
	s.Release()
	return s.f.Close()
}
