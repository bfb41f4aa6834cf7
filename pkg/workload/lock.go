package workload

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// errPackLocked is returned by tryLockPack when another install, repair or
// collection holds the pack.
var errPackLocked = stderrors.New("pack is locked")

// inProcess serializes goroutines of this process; flock only excludes other
// processes.
var inProcess = struct {
	mu    sync.Mutex
	held  map[string]bool
	freed *sync.Cond
}{held: make(map[string]bool)}

func init() { inProcess.freed = sync.NewCond(&inProcess.mu) }

// packLock is an exclusive hold on one pack (id + version) under one root.
type packLock struct {
	key  string
	file *fileLock
}

func lockKey(root string, p PackInfo) string {
	return filepath.Clean(root) + "|" + p.Key()
}

func lockPath(root string, p PackInfo) string {
	name := strings.ToLower(p.ID) + "." + strings.ToLower(p.Version) + ".lock"
	return filepath.Join(root, "metadata", "locks", name)
}

// lockPack blocks until the pack is free and takes it.
func lockPack(root string, p PackInfo) (*packLock, error) {
	return acquirePack(root, p, true)
}

// tryLockPack takes the pack if it is free and returns errPackLocked otherwise.
func tryLockPack(root string, p PackInfo) (*packLock, error) {
	return acquirePack(root, p, false)
}

func acquirePack(root string, p PackInfo, wait bool) (*packLock, error) {
	key := lockKey(root, p)

	inProcess.mu.Lock()
	for inProcess.held[key] {
		if !wait {
			inProcess.mu.Unlock()
			return nil, errPackLocked
		}
		inProcess.freed.Wait()
	}
	inProcess.held[key] = true
	inProcess.mu.Unlock()

	path := lockPath(root, p)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		releaseKey(key)
		return nil, err
	}
	fl, err := acquireFileLock(path, wait)
	switch {
	case err == nil:
	case stderrors.Is(err, errFlockUnavailable):
		fl = nil
	default:
		releaseKey(key)
		return nil, err
	}
	return &packLock{key: key, file: fl}, nil
}

func (l *packLock) release() {
	if l == nil {
		return
	}
	l.file.release()
	releaseKey(l.key)
}

func releaseKey(key string) {
	inProcess.mu.Lock()
	delete(inProcess.held, key)
	inProcess.mu.Unlock()
	inProcess.freed.Broadcast()
}
