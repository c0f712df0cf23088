package mirror

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nightforge/patchwright/internal/manifest"
)

func defaults() []manifest.UpdateMirror {
	return []manifest.UpdateMirror{
		{Name: "alpha", URL: "https://a/"},
		{Name: "beta", URL: "https://b/"},
		{Name: "gamma", URL: "https://c/"},
	}
}

func TestReorderPreservesUserPriorityThenDefaults(t *testing.T) {
	l := New(defaults())
	l.Reorder([]string{"gamma", "alpha"})
	names := make([]string, 0)
	for _, m := range l.All() {
		names = append(names, m.Name)
	}
	require.Equal(t, []string{"gamma", "alpha", "beta"}, names)
}

func TestAdvanceWrapsAndReportsExhausted(t *testing.T) {
	l := New(defaults())
	require.NoError(t, l.Advance()) // -> beta
	require.NoError(t, l.Advance()) // -> gamma
	require.ErrorIs(t, l.Advance(), ErrExhausted)
	require.Equal(t, 0, l.CurrentIndex())
}

func TestAdvanceIdempotentOnWorkingMirror(t *testing.T) {
	l := New(defaults())
	before := l.CurrentIndex()
	cur, ok := l.Current()
	require.True(t, ok)
	require.Equal(t, "alpha", cur.Name)
	// A successful check against the current mirror never calls Advance.
	require.Equal(t, before, l.CurrentIndex())
}

func TestMoveUpDownOutOfRangeIsNoop(t *testing.T) {
	l := New(defaults())
	l.MoveUp(0)
	l.MoveDown(2)
	l.MoveUp(99)
	l.MoveDown(-1)
	names := make([]string, 0)
	for _, m := range l.All() {
		names = append(names, m.Name)
	}
	require.Equal(t, []string{"alpha", "beta", "gamma"}, names)
}

func TestMoveDown(t *testing.T) {
	l := New(defaults())
	l.MoveDown(0)
	names := make([]string, 0)
	for _, m := range l.All() {
		names = append(names, m.Name)
	}
	require.Equal(t, []string{"beta", "alpha", "gamma"}, names)
}
