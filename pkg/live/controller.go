package live

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/frontdesk-hq/voicedesk/internal/metrics"
	"github.com/frontdesk-hq/voicedesk/pkg/audio"
	"github.com/frontdesk-hq/voicedesk/pkg/codec"
	"github.com/frontdesk-hq/voicedesk/pkg/roster"
	"github.com/frontdesk-hq/voicedesk/pkg/transcript"
)

// State is the session lifecycle phase.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateActive     State = "active"
	StateClosing    State = "closing"
)

// InputDevice is an opened microphone. Start begins delivering frames
// to the callback from a device-owned goroutine; Stop ends delivery and
// releases the device.
type InputDevice interface {
	Start(onFrame func(samples []float32)) error
	Stop() error
}

// OutputDevice is an opened speaker. The scheduler writes PCM to it at
// play time; Close releases the device.
type OutputDevice interface {
	audio.Sink
	Close() error
}

// ControllerConfig wires a Controller to its devices, transport and
// desk-side sinks. OpenInput, OpenOutput and Roster are required.
type ControllerConfig struct {
	// OpenInput acquires the microphone. An error here resolves the start
	// attempt as a permission failure.
	OpenInput func() (InputDevice, error)

	// OpenOutput acquires the speaker.
	OpenOutput func() (OutputDevice, error)

	// NewClock creates the playback timeline for one session. Nil means
	// a wall clock.
	NewClock func() audio.Clock

	// Dial opens the duplex channel. Nil means DialTransport.
	Dial Dialer

	// Endpoint is passed to Dial; Instructions is filled in from the
	// roster snapshot at start time.
	Endpoint DialConfig

	// Roster is snapshotted once per session start.
	Roster roster.SnapshotProvider

	// NoteSink and FieldSink receive actionable directives parsed from
	// committed model turns. Either may be nil.
	NoteSink  roster.NoteSink
	FieldSink roster.FieldSink

	// OnCommit, when set, observes each batch of newly committed
	// transcript entries. Called from the session event loop.
	OnCommit func(entries []transcript.Entry)

	// CaptureFormat and PlaybackFormat default to the standard 16 kHz /
	// 24 kHz mono shapes when zero.
	CaptureFormat  codec.Format
	PlaybackFormat codec.Format

	// ChunkSamples is the capture chunk size in samples. Zero picks the
	// pipeline default.
	ChunkSamples int

	Logger  *slog.Logger
	Metrics *metrics.Session
}

// session bundles the resources of one connected session. A fresh value
// is built per start so a stale event loop can recognize that it lost
// ownership.
type session struct {
	id      string
	conn    Conn
	input   InputDevice
	output  OutputDevice
	capture *audio.CapturePipeline
	sched   *audio.Scheduler
}

// Controller owns the session lifecycle. One controller drives at most
// one session at a time; the transcript log persists across sessions
// until cleared.
type Controller struct {
	cfg  ControllerConfig
	log  *slog.Logger
	met  *metrics.Session
	hist *transcript.Assembler

	mu          sync.Mutex
	state       State
	sess        *session
	pendingStop bool
	lastErr     error
}

// NewController creates an idle controller.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.OpenInput == nil || cfg.OpenOutput == nil {
		return nil, fmt.Errorf("controller requires input and output device openers")
	}
	if cfg.Roster == nil {
		return nil, fmt.Errorf("controller requires a roster provider")
	}
	if cfg.NewClock == nil {
		cfg.NewClock = func() audio.Clock { return audio.NewWallClock() }
	}
	if cfg.Dial == nil {
		cfg.Dial = DialTransport
	}
	if cfg.CaptureFormat == (codec.Format{}) {
		cfg.CaptureFormat = codec.CaptureFormat()
	}
	if cfg.PlaybackFormat == (codec.Format{}) {
		cfg.PlaybackFormat = codec.PlaybackFormat()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		cfg:   cfg,
		log:   log,
		met:   cfg.Metrics,
		hist:  transcript.NewAssembler(),
		state: StateIdle,
	}, nil
}

// Start toggles the session. From Idle it connects and returns once the
// session is active (or failed). From Active it disconnects. A start
// already in progress returns an error.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateActive:
		c.mu.Unlock()
		return c.Disconnect()
	case StateConnecting, StateClosing:
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("session is %s", state)
	}
	c.state = StateConnecting
	c.lastErr = nil
	c.pendingStop = false
	c.mu.Unlock()

	sess, err := c.connect(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = StateIdle
		c.pendingStop = false
		c.lastErr = err
		c.mu.Unlock()
		if c.met != nil {
			c.met.SessionFailures.Inc()
		}
		return err
	}

	// A disconnect issued while the dial was in flight wins: the fresh
	// session is torn down instead of going active.
	c.mu.Lock()
	if c.pendingStop {
		c.pendingStop = false
		c.state = StateClosing
		c.mu.Unlock()
		c.teardown(sess, nil)
		c.log.Info("session cancelled before activation", "session_id", sess.id)
		return nil
	}
	c.sess = sess
	c.state = StateActive
	c.mu.Unlock()

	if c.met != nil {
		c.met.SessionStarts.Inc()
		c.met.ActiveSessions.Set(1)
	}
	c.log.Info("session started", "session_id", sess.id)

	go c.eventLoop(sess)
	return nil
}

// connect builds a full session or nothing. Partially acquired
// resources are released on the spot; no failure leaks a device or a
// half-open channel.
func (c *Controller) connect(ctx context.Context) (*session, error) {
	id := uuid.NewString()
	log := c.log.With("session_id", id)

	guests, err := c.cfg.Roster.Snapshot(ctx)
	if err != nil {
		return nil, newError(KindTransportOpen, "roster snapshot", err)
	}
	instructions := roster.RenderInstructions(guests)
	log.Debug("roster snapshot bound", "guests", len(guests))

	input, err := c.cfg.OpenInput()
	if err != nil {
		return nil, newError(KindPermissionDenied, "open microphone", err)
	}
	output, err := c.cfg.OpenOutput()
	if err != nil {
		_ = input.Stop()
		return nil, newError(KindPermissionDenied, "open speaker", err)
	}

	endpoint := c.cfg.Endpoint
	endpoint.Instructions = instructions
	endpoint.CaptureFormat = c.cfg.CaptureFormat
	endpoint.PlaybackFormat = c.cfg.PlaybackFormat
	endpoint.Logger = log
	conn, err := c.cfg.Dial(ctx, endpoint)
	if err != nil {
		_ = input.Stop()
		_ = output.Close()
		if IsKind(err, KindTransportOpen) {
			return nil, err
		}
		return nil, newError(KindTransportOpen, "open transport", err)
	}

	var capture *audio.CapturePipeline
	capture = audio.NewCapturePipeline(c.cfg.CaptureFormat, c.cfg.ChunkSamples, func(payload string) error {
		if c.met != nil {
			c.met.ChunksForwarded.Inc()
			c.met.CaptureLevel.Set(capture.Level())
		}
		return conn.SendMedia(payload)
	}, log)
	sched := audio.NewScheduler(c.cfg.PlaybackFormat, c.cfg.NewClock(), output, log)

	// Frames flow from here on, but the session comes up muted; the
	// operator arms the mic explicitly.
	if err := input.Start(capture.OnFrame); err != nil {
		_ = conn.Close()
		_ = input.Stop()
		_ = output.Close()
		return nil, newError(KindPermissionDenied, "start capture", err)
	}

	return &session{
		id:      id,
		conn:    conn,
		input:   input,
		output:  output,
		capture: capture,
		sched:   sched,
	}, nil
}

// eventLoop drains inbound messages for one session. It exits when the
// transport's message channel closes, then tears the session down if it
// still owns it.
func (c *Controller) eventLoop(sess *session) {
	for msg := range sess.conn.Messages() {
		c.handleMessage(sess, msg)
	}

	err := sess.conn.Err()

	// Claim the session before touching its resources; a concurrent
	// Disconnect may already have taken it.
	c.mu.Lock()
	if c.sess != sess {
		c.mu.Unlock()
		return
	}
	c.state = StateClosing
	c.sess = nil
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("session ended", "session_id", sess.id, "error", err)
		if c.met != nil {
			c.met.SessionFailures.Inc()
		}
	}
	c.teardown(sess, err)
}

func (c *Controller) handleMessage(sess *session, msg ServerMessage) {
	if msg.Interrupted {
		sess.sched.Flush()
		if c.met != nil {
			c.met.Interruptions.Inc()
		}
	}
	if msg.Audio != nil {
		pcm, err := codec.DecodeChunk(msg.Audio.Data)
		if err != nil {
			c.log.Warn("bad audio payload", "session_id", sess.id, "error", err)
		} else {
			sess.sched.Enqueue(pcm)
			if c.met != nil {
				c.met.ChunksScheduled.Inc()
				c.met.AudioScheduled.Add(c.cfg.PlaybackFormat.Duration(len(pcm)).Seconds())
			}
		}
	}
	if msg.InputTranscription != nil {
		c.hist.AddInput(msg.InputTranscription.Text)
	}
	if msg.OutputTranscription != nil {
		c.hist.AddOutput(msg.OutputTranscription.Text)
	}
	if msg.TurnComplete {
		entries := c.hist.CommitTurn()
		if len(entries) > 0 {
			if c.met != nil {
				c.met.TurnsCommitted.Inc()
			}
			c.dispatchDirectives(entries)
			if c.cfg.OnCommit != nil {
				c.cfg.OnCommit(entries)
			}
		}
	}
}

// dispatchDirectives routes actionable content from committed model
// turns to the desk sinks.
func (c *Controller) dispatchDirectives(entries []transcript.Entry) {
	for _, entry := range entries {
		if entry.Role != transcript.RoleModel {
			continue
		}
		for _, d := range roster.ParseDirectives(entry.Text) {
			if c.met != nil {
				c.met.DirectivesFired.Inc()
			}
			switch {
			case d.Note != "":
				c.log.Info("note directive", "guest_id", d.GuestID)
				if c.cfg.NoteSink != nil {
					c.cfg.NoteSink(d.GuestID, d.Note)
				}
			case len(d.Fields) > 0:
				c.log.Info("update directive", "guest_id", d.GuestID)
				if c.cfg.FieldSink != nil {
					c.cfg.FieldSink(d.GuestID, d.Fields)
				}
			}
		}
	}
}

// Disconnect ends the session. Safe to call in any state; calling it
// while idle is a no-op. The committed transcript survives; interim
// accumulators are discarded.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	if c.state == StateConnecting {
		c.pendingStop = true
		c.mu.Unlock()
		return nil
	}
	sess := c.sess
	if sess == nil || c.state != StateActive {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosing
	c.sess = nil
	c.mu.Unlock()

	c.teardown(sess, nil)
	c.log.Info("session stopped", "session_id", sess.id)
	return nil
}

// teardown releases one session's resources in a fixed order: capture
// first so no more chunks reach a dying transport, then the devices and
// channel, playback last after nothing can re-enqueue.
func (c *Controller) teardown(sess *session, cause error) {
	sess.capture.SetArmed(false)
	sess.capture.Reset()
	if err := sess.input.Stop(); err != nil {
		c.log.Warn("stop capture device", "session_id", sess.id, "error", err)
	}
	_ = sess.conn.Close()
	sess.sched.Stop()
	if err := sess.output.Close(); err != nil {
		c.log.Warn("close playback device", "session_id", sess.id, "error", err)
	}
	c.hist.ResetInterim()

	c.mu.Lock()
	c.state = StateIdle
	if cause != nil {
		c.lastErr = cause
	}
	c.mu.Unlock()

	if c.met != nil {
		c.met.ActiveSessions.Set(0)
		c.met.CaptureLevel.Set(0)
	}
}

// ToggleMic flips the mic-armed flag and returns the new value. Valid
// only while active; the capture graph and transport are untouched.
func (c *Controller) ToggleMic() (bool, error) {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()
	if sess == nil {
		return false, fmt.Errorf("no active session")
	}
	armed := !sess.capture.Armed()
	sess.capture.SetArmed(armed)
	c.log.Debug("mic toggled", "session_id", sess.id, "armed", armed)
	return armed, nil
}

// MicArmed reports the current mic-armed flag. False when idle.
func (c *Controller) MicArmed() bool {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()
	return sess != nil && sess.capture.Armed()
}

// MicLevel returns the RMS energy of the most recent capture chunk.
func (c *Controller) MicLevel() float64 {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()
	if sess == nil {
		return 0
	}
	return sess.capture.Level()
}

// MicPeak returns the peak amplitude of the most recent capture chunk.
func (c *Controller) MicPeak() float64 {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()
	if sess == nil {
		return 0
	}
	return sess.capture.Peak()
}

// SendText sends a typed user message over the active session and, on
// success, commits it to the transcript immediately.
func (c *Controller) SendText(text string) error {
	if text == "" {
		return nil
	}
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()
	if sess == nil {
		return fmt.Errorf("no active session")
	}
	if err := sess.conn.SendText(text); err != nil {
		return err
	}
	c.hist.Append(transcript.RoleUser, text)
	if c.met != nil {
		c.met.TextMessages.Inc()
	}
	return nil
}

// ClearHistory empties the committed transcript. Works in any state and
// does not touch an in-progress turn.
func (c *Controller) ClearHistory() {
	c.hist.Clear()
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the error that ended or failed the most recent
// session, if any. Cleared on the next start attempt.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Transcript returns a copy of the committed conversation log.
func (c *Controller) Transcript() []transcript.Entry {
	return c.hist.Entries()
}

// Interim returns the not-yet-committed user and model text.
func (c *Controller) Interim() (user, model string) {
	return c.hist.InterimInput(), c.hist.InterimOutput()
}
