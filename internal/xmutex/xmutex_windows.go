//go:build windows

package xmutex

import (
	"fmt"
	"time"

	"golang.org/x/sys/windows"
)

type windowsHandle struct {
	h windows.Handle
}

func (w *windowsHandle) Release() error {
	return windows.ReleaseMutex(w.h)
}

// acquireNamed creates or opens a Win32 named mutex and waits up to
// timeout for ownership, reporting whether the previous owner abandoned it
// without releasing.
func acquireNamed(id string, timeout time.Duration) (Handle, bool, error) {
	namePtr, err := windows.UTF16PtrFromString(id)
	if err != nil {
		return nil, false, fmt.Errorf("encode mutex name: %w", err)
	}

	h, err := windows.CreateMutex(nil, false, namePtr)
	if err != nil && h == 0 {
		return nil, false, fmt.Errorf("CreateMutex: %w", err)
	}

	ms := uint32(timeout / time.Millisecond)
	event, waitErr := windows.WaitForSingleObject(h, ms)
	switch event {
	case windows.WAIT_OBJECT_0:
		return &windowsHandle{h: h}, false, nil
	case windows.WAIT_ABANDONED:
		return &windowsHandle{h: h}, true, nil
	case uint32(windows.WAIT_TIMEOUT):
		windows.CloseHandle(h)
		return nil, false, errTimeout()
	default:
		windows.CloseHandle(h)
		if waitErr != nil {
			return nil, false, waitErr
		}
		return nil, false, fmt.Errorf("WaitForSingleObject: unexpected result %d", event)
	}
}
