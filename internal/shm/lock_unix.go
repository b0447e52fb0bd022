//go:build unix

package shm

import (
	"os"

	"golang.org/x/sys/unix"

	"marketshm/internal/errors"
	"marketshm/pkg/exception"
)

// ownerLock is an advisory flock held by the Owner for the life of a
// segment. The kernel drops it when the owner process dies, which is how a
// stale segment is told apart from a live one. The lock file is never
// unlinked so every owner of a name contends on the same inode.
type ownerLock struct {
	file *os.File
}

func acquireOwnerLock(segment string) (*ownerLock, error) {
	path := segment + ".lock"
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, "open owner lock")
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, exception.ErrOwnerActive
		}
		return nil, errors.Wrap(err, "flock owner lock")
	}

	return &ownerLock{file: file}, nil
}

func (l *ownerLock) release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	return err
}
