// Package mirror implements the ordered Mirror List: user-configured
// priority at load time, plus runtime failover with modulo-clamped
// advance.
package mirror

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nightforge/patchwright/internal/manifest"
)

// ErrExhausted is returned by Advance when it moves past the last mirror
// in the list (or the list is empty).
var ErrExhausted = errors.New("mirror: all mirrors exhausted")

// List is an ordered, runtime-mutable set of mirrors. The zero value is an
// empty list. List is safe for concurrent use; all mutation is expected to
// be serialized through the orchestrator, but the mutex protects callers
// that don't.
type List struct {
	mu      sync.Mutex
	mirrors []manifest.UpdateMirror
	current int
}

// New builds a List from defaults, tagging each entry that has no ID with
// a synthetic UUID, since the wire manifest has no mirror ID of its own.
// Log lines and progress events do not carry this ID.
func New(defaults []manifest.UpdateMirror) *List {
	l := &List{}
	for _, m := range defaults {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		l.mirrors = append(l.mirrors, m)
	}
	return l
}

// Reorder rewrites the list as (user-prioritized preserving order) ∘
// (remaining defaults, original order), matching user-provided mirror
// names against the current list's Name field.
func (l *List) Reorder(preferredNames []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	used := make(map[int]bool, len(l.mirrors))
	var reordered []manifest.UpdateMirror
	for _, name := range preferredNames {
		for i, m := range l.mirrors {
			if used[i] {
				continue
			}
			if strings.EqualFold(m.Name, name) {
				reordered = append(reordered, m)
				used[i] = true
				break
			}
		}
	}
	for i, m := range l.mirrors {
		if !used[i] {
			reordered = append(reordered, m)
		}
	}
	l.mirrors = reordered
	l.current = 0
}

// All returns a copy of the current mirror order.
func (l *List) All() []manifest.UpdateMirror {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]manifest.UpdateMirror, len(l.mirrors))
	copy(out, l.mirrors)
	return out
}

// Len reports how many mirrors are in the list.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.mirrors)
}

// Current returns the mirror currently selected for use.
func (l *List) Current() (manifest.UpdateMirror, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.mirrors) == 0 {
		return manifest.UpdateMirror{}, false
	}
	return l.mirrors[l.current], true
}

// CurrentIndex returns the index backing Current(), for tests asserting
// failover idempotency.
func (l *List) CurrentIndex() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Advance moves to the next mirror. Moving past the last mirror wraps the
// index to 0 and returns ErrExhausted, whichever index the failover
// started from.
func (l *List) Advance() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.mirrors) == 0 {
		return ErrExhausted
	}
	l.current++
	if l.current >= len(l.mirrors) {
		l.current = 0
		return ErrExhausted
	}
	return nil
}

// MoveUp swaps mirror i with i-1. Out-of-range i is a silent no-op.
func (l *List) MoveUp(i int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i <= 0 || i >= len(l.mirrors) {
		return
	}
	l.mirrors[i-1], l.mirrors[i] = l.mirrors[i], l.mirrors[i-1]
}

// MoveDown swaps mirror i with i+1. Out-of-range i is a silent no-op.
func (l *List) MoveDown(i int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i+1 >= len(l.mirrors) {
		return
	}
	l.mirrors[i+1], l.mirrors[i] = l.mirrors[i], l.mirrors[i+1]
}
