// Package freshness discards responses that arrive after a newer request for
// the same key has already been applied (last write wins by issue order).
package freshness

import (
	"sync"
	"time"
)

// DefaultHorizon bounds how long an idle key is remembered. It must exceed the
// longest request a ticket can be held across.
const DefaultHorizon = 10 * time.Minute

type Tracker struct {
	mu        sync.Mutex
	next      uint64
	keys      map[string]*keyState
	horizon   time.Duration
	now       func() time.Time
	lastSweep time.Time
}

type keyState struct {
	applied uint64
	touched time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		keys:    make(map[string]*keyState),
		horizon: DefaultHorizon,
		now:     time.Now,
	}
}

// Issue records a new request for key and returns its ticket. Tickets grow
// across all keys.
func (t *Tracker) Issue(key string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.next++
	t.state(key, now)
	t.sweep(now)
	return t.next
}

// Apply runs fn only if no request issued after ticket has been applied yet.
// It reports whether fn ran.
func (t *Tracker) Apply(key string, ticket uint64, fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state(key, t.now())
	if ticket <= st.applied {
		return false
	}
	st.applied = ticket
	fn()
	return true
}

func (t *Tracker) state(key string, now time.Time) *keyState {
	st, ok := t.keys[key]
	if !ok {
		st = &keyState{}
		t.keys[key] = st
	}
	st.touched = now
	return st
}

// sweep forgets keys idle for longer than the horizon, at most once per
// horizon.
func (t *Tracker) sweep(now time.Time) {
	if now.Sub(t.lastSweep) < t.horizon {
		return
	}
	t.lastSweep = now
	for key, st := range t.keys {
		if now.Sub(st.touched) > t.horizon {
			delete(t.keys, key)
		}
	}
}
