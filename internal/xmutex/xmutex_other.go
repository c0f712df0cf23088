//go:build !windows

package xmutex

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

type flockHandle struct {
	f *os.File
}

func (h *flockHandle) Release() error {
	defer h.f.Close()
	return syscall.Flock(int(h.f.Fd()), syscall.LOCK_UN)
}

// lockFilePath maps id onto a stable path under the system temp directory,
// since POSIX advisory locks have no native named-mutex concept.
func lockFilePath(id string) string {
	sum := md5.Sum([]byte(id))
	return filepath.Join(os.TempDir(), fmt.Sprintf("patchwright-%x.lock", sum))
}

// acquireNamed polls a non-blocking flock until it succeeds or timeout
// elapses. There is no OS concept of an "abandoned" advisory lock — the
// kernel releases it automatically when the owning process exits, so the
// abandoned flag is always false here.
func acquireNamed(id string, timeout time.Duration) (Handle, bool, error) {
	path := lockFilePath(id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, false, fmt.Errorf("open lock file %s: %w", path, err)
	}

	deadline := time.Now().Add(timeout)
	const pollInterval = 50 * time.Millisecond
	for {
		err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			return &flockHandle{f: f}, false, nil
		}
		if time.Now().After(deadline) {
			f.Close()
			return nil, false, errTimeout()
		}
		time.Sleep(pollInterval)
	}
}
