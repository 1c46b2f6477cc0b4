// Package metrics exposes Prometheus instrumentation for the voice
// session core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session holds all metrics emitted by the session controller.
type Session struct {
	SessionStarts   prometheus.Counter
	SessionFailures prometheus.Counter
	ActiveSessions  prometheus.Gauge

	ChunksForwarded prometheus.Counter
	CaptureLevel    prometheus.Gauge
	ChunksScheduled prometheus.Counter
	AudioScheduled  prometheus.Counter // seconds of synthesized audio
	Interruptions   prometheus.Counter
	TurnsCommitted  prometheus.Counter
	TextMessages    prometheus.Counter
	DirectivesFired prometheus.Counter
}

// New creates and registers session metrics on the default registry.
func New() *Session {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates session metrics on the given registry. Tests pass
// their own registry so repeated construction does not collide.
func NewWith(reg prometheus.Registerer) *Session {
	factory := promauto.With(reg)
	return &Session{
		SessionStarts: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicedesk_session_starts_total",
			Help: "Total number of voice sessions successfully started",
		}),
		SessionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicedesk_session_failures_total",
			Help: "Total number of session starts that failed or sessions that ended in error",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voicedesk_active_sessions",
			Help: "Whether a voice session is currently active (0 or 1)",
		}),
		ChunksForwarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicedesk_capture_chunks_forwarded_total",
			Help: "Total number of microphone chunks forwarded to the transport",
		}),
		CaptureLevel: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voicedesk_capture_level",
			Help: "RMS energy of the most recently forwarded microphone chunk (0 to 1)",
		}),
		ChunksScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicedesk_playback_chunks_scheduled_total",
			Help: "Total number of synthesized audio chunks scheduled for playback",
		}),
		AudioScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicedesk_playback_audio_seconds_total",
			Help: "Total seconds of synthesized audio scheduled for playback",
		}),
		Interruptions: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicedesk_interruptions_total",
			Help: "Total number of barge-in signals received from the remote endpoint",
		}),
		TurnsCommitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicedesk_turns_committed_total",
			Help: "Total number of completed conversational turns committed to the transcript",
		}),
		TextMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicedesk_text_messages_total",
			Help: "Total number of typed text messages sent to the transport",
		}),
		DirectivesFired: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicedesk_directives_total",
			Help: "Total number of actionable directives routed to the desk sinks",
		}),
	}
}
