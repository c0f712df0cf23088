// Package xmutex implements the cross-process named mutex the host and the
// second-stage bootstrap use to serialize around the live installation
// tree. The well-known identifier is a fixed GUID shared by both
// processes; platform-specific acquisition lives in xmutex_windows.go and
// xmutex_other.go behind the Acquire constructor below.
package xmutex

import (
	"fmt"
	"time"

	"github.com/nightforge/patchwright/internal/xerr"
)

// WellKnownID is the identifier both the host process and the second-stage
// bootstrap use to name the shared mutex.
const WellKnownID = "{6C6C6F77-6E67-4761-9D65-706F7463686D}"

// DefaultTimeout is how long AcquireDefault waits before giving up.
const DefaultTimeout = 30 * time.Second

// Handle represents an acquired named mutex. Release must be called
// exactly once, on every exit path, even after an error elsewhere in the
// caller's logic.
type Handle interface {
	Release() error
}

// Acquire opens (creating if necessary) the named mutex id and blocks up
// to timeout waiting to own it. An abandoned mutex (the prior owner died
// without releasing it) is treated as successfully acquired.
func Acquire(id string, timeout time.Duration) (Handle, error) {
	h, abandoned, err := acquireNamed(id, timeout)
	if err != nil {
		return nil, fmt.Errorf("xmutex: acquire %s: %w", id, err)
	}
	_ = abandoned
	return h, nil
}

// AcquireDefault acquires the well-known installation mutex with the
// spec's 30-second timeout.
func AcquireDefault() (Handle, error) {
	return Acquire(WellKnownID, DefaultTimeout)
}

// errTimeout maps a platform-specific wait timeout to the shared sentinel.
func errTimeout() error {
	return xerr.ErrMutexTimeout
}
