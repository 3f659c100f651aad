package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTypingTrackerExpiry(t *testing.T) {
	base := time.Now()
	tracker := NewTypingTracker(2 * time.Second)

	tracker.Mark("Alice", base)
	assert.Equal(t, []string{"Alice"}, tracker.Active(base.Add(time.Second)))

	// expires after two seconds of silence, with no network event needed
	assert.Empty(t, tracker.Active(base.Add(2*time.Second)))
	// and stays gone
	assert.Empty(t, tracker.Active(base.Add(3*time.Second)))
}

func TestTypingTrackerResetOnRepeat(t *testing.T) {
	base := time.Now()
	tracker := NewTypingTracker(2 * time.Second)

	tracker.Mark("Alice", base)
	tracker.Mark("Alice", base.Add(1500*time.Millisecond))

	// the second event reset the window, so 2s after the first event the
	// indicator is still live
	assert.Equal(t, []string{"Alice"}, tracker.Active(base.Add(2*time.Second)))
	assert.Empty(t, tracker.Active(base.Add(3500*time.Millisecond)))
}

func TestTypingTrackerMultipleNames(t *testing.T) {
	base := time.Now()
	tracker := NewTypingTracker(2 * time.Second)

	tracker.Mark("Bob", base)
	tracker.Mark("Alice", base.Add(time.Second))

	assert.Equal(t, []string{"Alice", "Bob"}, tracker.Active(base.Add(1500*time.Millisecond)))
	// Bob lapses first
	assert.Equal(t, []string{"Alice"}, tracker.Active(base.Add(2500*time.Millisecond)))
}

func TestTypingTrackerForgetAndReset(t *testing.T) {
	base := time.Now()
	tracker := NewTypingTracker(2 * time.Second)

	tracker.Mark("Alice", base)
	tracker.Mark("Bob", base)
	tracker.Forget("Alice")
	assert.Equal(t, []string{"Bob"}, tracker.Active(base))

	tracker.Reset()
	assert.Empty(t, tracker.Active(base))
}

func TestTypingTrackerIgnoresEmptyName(t *testing.T) {
	tracker := NewTypingTracker(2 * time.Second)
	tracker.Mark("", time.Now())
	assert.Empty(t, tracker.Active(time.Now()))
}
