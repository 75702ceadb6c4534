// Package dedupe suppresses duplicate delivery of correlated events. The
// transport underneath gives no exactly-once guarantee; a tracker in front of
// the consumer makes delivery observably exactly-once per key until Reset
// starts a fresh epoch.
package dedupe

import "sync"

type Tracker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{seen: make(map[string]struct{})}
}

func (t *Tracker) HasSeen(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.seen[key]
	return ok
}

func (t *Tracker) MarkSeen(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen[key] = struct{}{}
}

// Seen marks key and reports whether it had been seen before. Check and mark
// are one atomic step so two racing deliveries cannot both pass.
func (t *Tracker) Seen(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.seen[key]; ok {
		return true
	}
	t.seen[key] = struct{}{}
	return false
}

// Reset clears every tracked key, beginning a new de-duplication epoch.
// Previously-seen keys are delivered again afterwards.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen = make(map[string]struct{})
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}
