package internal

import (
	"sort"
	"sync"
	"time"
)

// typingExpiry is how long a participant stays "typing" after their last
// typing event. Expiry is purely local; the server never clears indicators.
const typingExpiry = 2 * time.Second

// TypingTracker keeps the transient "X is typing" indicators for one session.
// Every typing event from a name resets that name's timer; names fall out on
// their own after typingExpiry with no further network traffic.
type TypingTracker struct {
	mu     sync.Mutex
	expiry time.Duration
	seen   map[string]time.Time
}

func NewTypingTracker(expiry time.Duration) *TypingTracker {
	if expiry <= 0 {
		expiry = typingExpiry
	}
	return &TypingTracker{
		expiry: expiry,
		seen:   make(map[string]time.Time),
	}
}

// Mark records a typing event from the named participant.
func (t *TypingTracker) Mark(name string, now time.Time) {
	if name == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen[name] = now
}

// Active returns the names still within their typing window, sorted.
func (t *TypingTracker) Active(now time.Time) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var names []string
	for name, last := range t.seen {
		if now.Sub(last) >= t.expiry {
			delete(t.seen, name)
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Forget drops a participant immediately, used when they leave the room.
func (t *TypingTracker) Forget(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.seen, name)
}

// Reset clears all indicators, used when the session itself ends.
func (t *TypingTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen = make(map[string]time.Time)
}
