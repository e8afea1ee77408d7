// Package pidfile implements PID-file acquisition backed by an advisory
// file lock, the Go analogue of python-daemon's PIDLockFile usage in the
// original server entry points.
package pidfile

import (
	"fmt"
	"os"
	"strconv"

	"github.com/gofrs/flock"
)

// File represents an acquired PID file. The zero value is not usable;
// construct with Acquire.
type File struct {
	path string
	lock *flock.Flock
}

// Acquire locks path, writes the current process's PID into it, and returns
// a handle whose Release removes both the lock and the file. It fails if
// another live process already holds the lock.
func Acquire(path string) (*File, error) {
	lock := flock.New(path)

	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("pidfile: locking %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("pidfile: %s is already locked by another process", path)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("pidfile: writing %s: %w", path, err)
	}

	return &File{path: path, lock: lock}, nil
}

// Release unlocks and removes the PID file. Release is safe to call once;
// subsequent calls are no-ops.
func (f *File) Release() error {
	if f == nil || f.lock == nil {
		return nil
	}
	err := f.lock.Unlock()
	if rmErr := os.Remove(f.path); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	f.lock = nil
	return err
}

// Path returns the filesystem path backing f.
func (f *File) Path() string { return f.path }
