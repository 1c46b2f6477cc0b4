package audio

import (
	"sync"
	"testing"
	"time"

	"github.com/frontdesk-hq/voicedesk/pkg/codec"
)

// fakeClock is a manually advanced timeline for scheduler tests.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	nextID int
	timers map[int]*fakeTimer
}

type fakeTimer struct {
	id int
	at time.Duration
	fn func()
}

func newFakeClock(now time.Duration) *fakeClock {
	return &fakeClock{now: now, timers: make(map[int]*fakeTimer)}
}

func (c *fakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Schedule(at time.Duration, fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.timers[id] = &fakeTimer{id: id, at: at, fn: fn}
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.timers, id)
	}
}

// Advance moves the timeline forward, firing due timers in time order.
func (c *fakeClock) Advance(to time.Duration) {
	for {
		c.mu.Lock()
		var due *fakeTimer
		for _, t := range c.timers {
			if t.at > to {
				continue
			}
			if due == nil || t.at < due.at || (t.at == due.at && t.id < due.id) {
				due = t
			}
		}
		if due == nil {
			if to > c.now {
				c.now = to
			}
			c.mu.Unlock()
			return
		}
		delete(c.timers, due.id)
		if due.at > c.now {
			c.now = due.at
		}
		c.mu.Unlock()
		due.fn()
	}
}

// recordSink records each write together with the clock position at
// which it happened.
type recordSink struct {
	clock *fakeClock

	mu     sync.Mutex
	writes []time.Duration
	bytes  int
}

func (s *recordSink) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, s.clock.Now())
	s.bytes += len(pcm)
	return nil
}

func (s *recordSink) writeTimes() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.writes...)
}

func chunkOf(f codec.Format, d time.Duration) []byte {
	return make([]byte, f.BytesFor(d))
}

func TestSchedulerBackToBack(t *testing.T) {
	f := codec.PlaybackFormat()
	clock := newFakeClock(10 * time.Second)
	sink := &recordSink{clock: clock}
	s := NewScheduler(f, clock, sink, nil)

	// Three chunks of 0.5s, 0.3s, 0.4s arriving back to back at now=10s.
	starts := []time.Duration{
		s.Enqueue(chunkOf(f, 500*time.Millisecond)),
		s.Enqueue(chunkOf(f, 300*time.Millisecond)),
		s.Enqueue(chunkOf(f, 400*time.Millisecond)),
	}

	want := []time.Duration{
		10 * time.Second,
		10*time.Second + 500*time.Millisecond,
		10*time.Second + 800*time.Millisecond,
	}
	for i := range want {
		if starts[i] != want[i] {
			t.Errorf("chunk %d: expected start %v, got %v", i, want[i], starts[i])
		}
	}
	if got := s.Cursor(); got != 11200*time.Millisecond {
		t.Errorf("expected cursor 11.2s, got %v", got)
	}
	if got := s.InFlight(); got != 3 {
		t.Errorf("expected 3 in-flight sources, got %d", got)
	}

	// Playback happens at the scheduled starts, in order.
	clock.Advance(12 * time.Second)
	times := sink.writeTimes()
	if len(times) != 3 {
		t.Fatalf("expected 3 writes, got %d", len(times))
	}
	for i := range want {
		if times[i] != want[i] {
			t.Errorf("write %d: expected at %v, got %v", i, want[i], times[i])
		}
	}
	if got := s.InFlight(); got != 0 {
		t.Errorf("expected empty in-flight set after playback, got %d", got)
	}
}

func TestSchedulerLateChunkPlaysNow(t *testing.T) {
	f := codec.PlaybackFormat()
	clock := newFakeClock(time.Second)
	sink := &recordSink{clock: clock}
	s := NewScheduler(f, clock, sink, nil)

	s.Enqueue(chunkOf(f, 100*time.Millisecond))
	clock.Advance(2 * time.Second)

	// The first chunk finished long ago; a late arrival must schedule at
	// "now", not at the stale cursor.
	start := s.Enqueue(chunkOf(f, 100*time.Millisecond))
	if start != 2*time.Second {
		t.Errorf("expected late chunk to start at 2s, got %v", start)
	}
}

func TestSchedulerFlushResetsCleanly(t *testing.T) {
	f := codec.PlaybackFormat()
	clock := newFakeClock(10 * time.Second)
	sink := &recordSink{clock: clock}
	s := NewScheduler(f, clock, sink, nil)

	s.Enqueue(chunkOf(f, 500*time.Millisecond))
	s.Enqueue(chunkOf(f, 300*time.Millisecond))
	s.Enqueue(chunkOf(f, 400*time.Millisecond))

	// Interruption arrives mid-second-chunk.
	clock.Advance(10*time.Second + 600*time.Millisecond)
	s.Flush()

	if got := s.InFlight(); got != 0 {
		t.Fatalf("expected empty in-flight set after flush, got %d", got)
	}

	// The next chunk must schedule at now, not behind the discarded
	// audio at 11.2s.
	start := s.Enqueue(chunkOf(f, 200*time.Millisecond))
	if start != 10*time.Second+600*time.Millisecond {
		t.Errorf("expected post-flush chunk at 10.6s, got %v", start)
	}

	// Only the two chunks that started before the flush, plus the
	// post-flush chunk, ever reach the sink.
	clock.Advance(13 * time.Second)
	if got := len(sink.writeTimes()); got != 3 {
		t.Errorf("expected 3 writes (cancelled chunk silent), got %d", got)
	}
}

func TestSchedulerDoubleFlush(t *testing.T) {
	f := codec.PlaybackFormat()
	clock := newFakeClock(0)
	s := NewScheduler(f, clock, &recordSink{clock: clock}, nil)

	s.Enqueue(chunkOf(f, 100*time.Millisecond))
	s.Flush()
	s.Flush()

	if got := s.InFlight(); got != 0 {
		t.Errorf("expected empty in-flight set, got %d", got)
	}
	if got := s.Cursor(); got != 0 {
		t.Errorf("expected cursor reset to zero, got %v", got)
	}
}

func TestSchedulerEmptyChunk(t *testing.T) {
	f := codec.PlaybackFormat()
	clock := newFakeClock(time.Second)
	s := NewScheduler(f, clock, &recordSink{clock: clock}, nil)

	s.Enqueue(nil)
	if got := s.InFlight(); got != 0 {
		t.Errorf("expected no source for empty chunk, got %d", got)
	}
	if got := s.Cursor(); got != 0 {
		t.Errorf("expected cursor untouched by empty chunk, got %v", got)
	}
}
