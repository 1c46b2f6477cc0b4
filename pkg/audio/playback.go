package audio

import (
	"log/slog"
	"sync"
	"time"

	"github.com/frontdesk-hq/voicedesk/pkg/codec"
)

// Sink receives raw PCM bytes at their scheduled play time.
type Sink interface {
	Write(pcm []byte) error
}

// Scheduler queues synthesized audio chunks back-to-back on the output
// timeline with no gaps and no overlap.
//
// It keeps a single playback cursor: the next free start position. Each
// chunk is scheduled at max(cursor, now), so a chunk arriving after the
// previous one has finished plays immediately instead of waiting for a
// stale cursor, and a chunk arriving early starts exactly when the
// previous one ends. Every scheduled chunk lives in an in-flight set
// until it finishes or is cancelled.
type Scheduler struct {
	format codec.Format
	clock  Clock
	sink   Sink
	log    *slog.Logger

	mu       sync.Mutex
	cursor   time.Duration
	nextID   int64
	inflight map[int64]*scheduledSource
}

type scheduledSource struct {
	id         int64
	startAt    time.Duration
	duration   time.Duration
	cancelPlay func()
	cancelDone func()
}

// NewScheduler creates a playback scheduler writing to sink on the given
// clock. A nil logger falls back to slog.Default().
func NewScheduler(format codec.Format, clock Clock, sink Sink, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		format:   format,
		clock:    clock,
		sink:     sink,
		log:      log,
		inflight: make(map[int64]*scheduledSource),
	}
}

// Enqueue decodes nothing; it takes raw PCM bytes already decoded from
// the wire, schedules them at max(cursor, now), and advances the cursor
// by the chunk duration. It returns the scheduled start position.
// Scheduling order equals call order.
func (s *Scheduler) Enqueue(pcm []byte) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.cursor
	if now := s.clock.Now(); now > start {
		start = now
	}
	if len(pcm) == 0 {
		return start
	}

	dur := s.format.Duration(len(pcm))
	s.cursor = start + dur

	id := s.nextID
	s.nextID++
	src := &scheduledSource{id: id, startAt: start, duration: dur}
	s.inflight[id] = src

	src.cancelPlay = s.clock.Schedule(start, func() {
		if err := s.sink.Write(pcm); err != nil {
			s.log.Warn("playback write failed", "error", err)
		}
	})
	src.cancelDone = s.clock.Schedule(start+dur, func() {
		s.remove(id)
	})
	return start
}

func (s *Scheduler) remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
}

// Flush handles barge-in: it stops every in-flight source, clears the
// set, and resets the cursor to zero so the next chunk schedules at
// "now" rather than behind the discarded audio. The set is snapshotted
// before any source is stopped so callbacks cannot race the iteration.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	snapshot := s.inflight
	s.inflight = make(map[int64]*scheduledSource)
	s.cursor = 0
	s.mu.Unlock()

	for _, src := range snapshot {
		src.cancelPlay()
		src.cancelDone()
	}
	if len(snapshot) > 0 {
		s.log.Debug("playback flushed", "cancelled", len(snapshot))
	}
}

// Stop cancels everything queued or playing. It is the disconnect path
// and is equivalent to Flush.
func (s *Scheduler) Stop() {
	s.Flush()
}

// InFlight returns the number of sources currently queued or playing.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

// Cursor returns the next free start position on the output timeline.
func (s *Scheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}
