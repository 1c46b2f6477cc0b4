package audio

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/frontdesk-hq/voicedesk/pkg/codec"
)

// ForwardFunc delivers one transport-encoded capture chunk.
type ForwardFunc func(payload string) error

// CaptureStats is a snapshot of pipeline counters.
type CaptureStats struct {
	ChunksForwarded int64 `json:"chunks_forwarded"`
	ChunksDiscarded int64 `json:"chunks_discarded"`
	SamplesDropped  int64 `json:"samples_dropped"`
}

// CapturePipeline turns the continuous stream of raw microphone frames
// into fixed-size, transport-encoded chunks.
//
// The armed flag gates forwarding only: frames arriving while disarmed
// are still accumulated, converted and then discarded, so muting never
// tears down the capture graph and unmuting has no latency. OnFrame is
// safe to call from a device callback concurrently with controller
// calls.
type CapturePipeline struct {
	format       codec.Format
	chunkSamples int
	maxPending   int
	forward      ForwardFunc
	log          *slog.Logger

	armed atomic.Bool

	mu      sync.Mutex
	pending []float32

	forwarded atomic.Int64
	discarded atomic.Int64
	dropped   atomic.Int64
	level     atomic.Uint64 // math.Float64bits of the last chunk RMS
	peak      atomic.Uint64 // math.Float64bits of the last chunk peak
}

// NewCapturePipeline creates a pipeline emitting chunks of chunkSamples
// samples. The pipeline starts disarmed. A nil logger falls back to
// slog.Default().
func NewCapturePipeline(format codec.Format, chunkSamples int, forward ForwardFunc, log *slog.Logger) *CapturePipeline {
	if chunkSamples <= 0 {
		chunkSamples = 512
	}
	if log == nil {
		log = slog.Default()
	}
	// Cap accumulation at one second of audio (never below one chunk) so
	// an oversized device frame cannot grow memory without bound.
	maxPending := format.SampleRate * format.Channels
	if maxPending < chunkSamples {
		maxPending = chunkSamples
	}
	return &CapturePipeline{
		format:       format,
		chunkSamples: chunkSamples,
		maxPending:   maxPending,
		forward:      forward,
		log:          log,
	}
}

// SetArmed flips the mic-armed soft flag.
func (p *CapturePipeline) SetArmed(armed bool) {
	p.armed.Store(armed)
}

// Armed reports whether chunks are currently forwarded.
func (p *CapturePipeline) Armed() bool {
	return p.armed.Load()
}

// OnFrame is the device callback. It accumulates samples and emits one
// encoded chunk per chunkSamples collected. Each forwarded chunk maps
// to exactly one transport send.
func (p *CapturePipeline) OnFrame(samples []float32) {
	if len(samples) == 0 {
		return
	}

	var chunks [][]float32
	p.mu.Lock()
	p.pending = append(p.pending, samples...)
	// The cap applies before extraction: the oldest samples of an
	// oversized backlog are dropped, keeping the newest audio.
	if p.maxPending > 0 && len(p.pending) > p.maxPending {
		excess := len(p.pending) - p.maxPending
		p.pending = p.pending[excess:]
		p.dropped.Add(int64(excess))
	}
	for len(p.pending) >= p.chunkSamples {
		chunk := make([]float32, p.chunkSamples)
		copy(chunk, p.pending[:p.chunkSamples])
		p.pending = p.pending[p.chunkSamples:]
		chunks = append(chunks, chunk)
	}
	p.mu.Unlock()

	for _, chunk := range chunks {
		p.emit(chunk)
	}
}

func (p *CapturePipeline) emit(chunk []float32) {
	// Conversion is unconditional; only forwarding is gated by the armed
	// flag.
	pcm := codec.Float32ToPCM16(chunk)
	p.level.Store(rmsBits(pcm))
	p.peak.Store(peakBits(pcm))

	if !p.armed.Load() {
		p.discarded.Add(1)
		return
	}
	payload := codec.EncodeChunk(pcm)
	if p.forward == nil {
		p.discarded.Add(1)
		return
	}
	if err := p.forward(payload); err != nil {
		p.log.Warn("capture chunk send failed", "error", err)
		return
	}
	p.forwarded.Add(1)
}

// Reset clears accumulated samples that have not formed a full chunk.
func (p *CapturePipeline) Reset() {
	p.mu.Lock()
	p.pending = p.pending[:0]
	p.mu.Unlock()
}

// Stats returns a snapshot of the pipeline counters.
func (p *CapturePipeline) Stats() CaptureStats {
	return CaptureStats{
		ChunksForwarded: p.forwarded.Load(),
		ChunksDiscarded: p.discarded.Load(),
		SamplesDropped:  p.dropped.Load(),
	}
}

// Level returns the RMS energy of the most recently converted chunk,
// in the range 0.0 to 1.0.
func (p *CapturePipeline) Level() float64 {
	return levelFromBits(p.level.Load())
}

// Peak returns the maximum absolute amplitude of the most recently
// converted chunk, in the range 0.0 to 1.0.
func (p *CapturePipeline) Peak() float64 {
	return levelFromBits(p.peak.Load())
}
