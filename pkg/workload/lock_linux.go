//go:build linux

package workload

import (
	stderrors "errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// errFlockUnavailable is never returned on Linux.
var errFlockUnavailable = stderrors.New("flock not available on this platform")

// fileLock is an exclusive flock on a lock file. The kernel drops it when
// the descriptor closes, including on crash, so stale lock files are harmless.
type fileLock struct {
	file *os.File
}

func acquireFileLock(path string, wait bool) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}
	how := unix.LOCK_EX
	if !wait {
		how |= unix.LOCK_NB
	}
	if err := unix.Flock(int(f.Fd()), how); err != nil {
		f.Close()
		if stderrors.Is(err, unix.EWOULDBLOCK) {
			return nil, errPackLocked
		}
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}
	return &fileLock{file: f}, nil
}

func (l *fileLock) release() {
	if l == nil || l.file == nil {
		return
	}
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
}
