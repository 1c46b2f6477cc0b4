package audio

import (
	"sync"
	"time"
)

// Clock abstracts the output device timeline. Positions are durations
// since the device context was opened.
type Clock interface {
	// Now returns the current position on the timeline.
	Now() time.Duration

	// Schedule runs fn when the timeline reaches at. If at is already in
	// the past, fn runs as soon as possible. The returned cancel func
	// prevents fn from running if it has not fired yet.
	Schedule(at time.Duration, fn func()) (cancel func())
}

// WallClock is a Clock backed by the process monotonic clock. The zero
// position is the moment the clock was created.
type WallClock struct {
	start time.Time
}

// NewWallClock creates a wall clock starting at position zero.
func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

// Now implements Clock.
func (c *WallClock) Now() time.Duration {
	return time.Since(c.start)
}

// Schedule implements Clock.
func (c *WallClock) Schedule(at time.Duration, fn func()) func() {
	delay := at - c.Now()
	if delay < 0 {
		delay = 0
	}
	timer := time.AfterFunc(delay, fn)
	var once sync.Once
	return func() {
		once.Do(func() { timer.Stop() })
	}
}
