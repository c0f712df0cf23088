package xmutex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nightforge/patchwright/internal/xerr"
)

func TestAcquireAndRelease(t *testing.T) {
	id := "patchwright-test-" + t.Name()
	h, err := Acquire(id, time.Second)
	require.NoError(t, err)
	require.NoError(t, h.Release())
}

func TestAcquireTimesOutWhenHeld(t *testing.T) {
	id := "patchwright-test-" + t.Name()
	h, err := Acquire(id, time.Second)
	require.NoError(t, err)
	defer h.Release()

	_, err = Acquire(id, 100*time.Millisecond)
	require.ErrorIs(t, err, xerr.ErrMutexTimeout)
}
