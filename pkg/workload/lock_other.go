//go:build !linux

package workload

import stderrors "errors"

// errFlockUnavailable makes callers fall back to the in-process lock table.
var errFlockUnavailable = stderrors.New("flock not available on this platform")

type fileLock struct{}

func acquireFileLock(string, bool) (*fileLock, error) {
	return nil, errFlockUnavailable
}

func (l *fileLock) release() {}
