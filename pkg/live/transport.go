package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/frontdesk-hq/voicedesk/pkg/codec"
)

const defaultConnectTimeout = 15 * time.Second

// DialConfig configures a transport dial.
type DialConfig struct {
	// URL of the duplex endpoint. http(s) schemes are rewritten to ws(s).
	URL string

	// APIKey, when non-empty, is sent as a bearer token.
	APIKey string

	// Instructions is the system text bound at setup time.
	Instructions string

	// CaptureFormat and PlaybackFormat declare the session's fixed audio
	// shapes in the setup frame.
	CaptureFormat  codec.Format
	PlaybackFormat codec.Format

	// Timeout bounds the dial plus setup handshake. Zero means 15s.
	Timeout time.Duration

	// Logger for transport diagnostics. Nil falls back to slog.Default().
	Logger *slog.Logger
}

// Conn is the controller's view of an open duplex channel.
type Conn interface {
	SendMedia(payload string) error
	SendText(text string) error
	Messages() <-chan ServerMessage
	Close() error
	Err() error
}

// Dialer opens a duplex channel. The controller takes one so tests can
// substitute an in-memory transport.
type Dialer func(ctx context.Context, cfg DialConfig) (Conn, error)

// Transport is a websocket-backed Conn.
type Transport struct {
	conn *websocket.Conn
	log  *slog.Logger

	mimeType string

	msgs chan ServerMessage
	done chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error
}

// DialTransport opens the websocket, sends the setup frame, and waits
// for the acknowledgement. Any failure before the acknowledgement is a
// transport open failure.
func DialTransport(ctx context.Context, cfg DialConfig) (Conn, error) {
	wsURL, err := websocketURL(cfg.URL)
	if err != nil {
		return nil, newError(KindTransportOpen, "invalid endpoint", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	headers := make(http.Header)
	if cfg.APIKey != "" {
		headers.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	dialer := websocket.DefaultDialer
	if dialer == nil {
		dialer = &websocket.Dialer{}
	}
	conn, resp, err := dialer.DialContext(dialCtx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, newError(KindTransportOpen, fmt.Sprintf("websocket dial failed (status %d)", resp.StatusCode), err)
		}
		return nil, newError(KindTransportOpen, "websocket dial failed", err)
	}

	setup := setupMessage{Setup: setupPayload{
		Instructions: cfg.Instructions,
		InputFormat: wireFormat{
			MimeType:     cfg.CaptureFormat.MimeType(),
			SampleRateHz: cfg.CaptureFormat.SampleRate,
			Channels:     cfg.CaptureFormat.Channels,
		},
		OutputFormat: wireFormat{
			MimeType:     cfg.PlaybackFormat.MimeType(),
			SampleRateHz: cfg.PlaybackFormat.SampleRate,
			Channels:     cfg.PlaybackFormat.Channels,
		},
	}}
	if err := conn.WriteJSON(setup); err != nil {
		_ = conn.Close()
		return nil, newError(KindTransportOpen, "send setup", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	var first ServerMessage
	if err := conn.ReadJSON(&first); err != nil {
		_ = conn.Close()
		return nil, newError(KindTransportOpen, "read setup acknowledgement", err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	if !first.SetupComplete {
		_ = conn.Close()
		return nil, newError(KindTransportOpen, "endpoint did not acknowledge setup", nil)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	t := &Transport{
		conn:     conn,
		log:      log,
		mimeType: cfg.CaptureFormat.MimeType(),
		msgs:     make(chan ServerMessage, 256),
		done:     make(chan struct{}),
	}
	go t.readLoop()
	return t, nil
}

// SendMedia sends one capture chunk. payload is already transport
// encoded.
func (t *Transport) SendMedia(payload string) error {
	return t.sendJSON(clientMessage{Media: &MediaPayload{
		Data:     payload,
		MimeType: t.mimeType,
	}})
}

// SendText sends one typed user message.
func (t *Transport) SendText(text string) error {
	return t.sendJSON(clientMessage{Text: &text})
}

func (t *Transport) sendJSON(v any) error {
	if t.closed.Load() {
		return newError(KindTransportRuntime, "transport is closed", nil)
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.WriteJSON(v); err != nil {
		return newError(KindTransportRuntime, "write failed", err)
	}
	return nil
}

// Messages yields inbound messages. The channel closes when the read
// loop exits.
func (t *Transport) Messages() <-chan ServerMessage {
	return t.msgs
}

// Close shuts the channel down from our side and waits for the read
// loop to exit. Safe to call more than once.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		t.writeMu.Lock()
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second))
		t.writeMu.Unlock()
		_ = t.conn.Close()
	})
	<-t.done
	return nil
}

// Err returns the terminal transport error, if any. It blocks until the
// read loop has exited.
func (t *Transport) Err() error {
	<-t.done
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.err
}

func (t *Transport) setErr(err error) {
	if err == nil {
		return
	}
	t.errMu.Lock()
	defer t.errMu.Unlock()
	if t.err == nil {
		t.err = err
	}
}

func (t *Transport) readLoop() {
	defer close(t.done)
	defer close(t.msgs)

	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			if t.closed.Load() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.setErr(newError(KindRemoteClosed, "endpoint closed the channel", err))
				return
			}
			t.setErr(newError(KindTransportRuntime, "read failed", err))
			return
		}

		var msg ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.setErr(newError(KindTransportRuntime, "decode message", err))
			return
		}
		t.emit(msg)
	}
}

// emit never blocks the read loop. When the consumer stops draining,
// the message is dropped and logged so a lost control frame is
// diagnosable.
func (t *Transport) emit(msg ServerMessage) {
	select {
	case t.msgs <- msg:
	default:
		t.log.Warn("inbound message dropped, consumer not draining",
			"has_audio", msg.Audio != nil,
			"turn_complete", msg.TurnComplete,
			"interrupted", msg.Interrupted)
	}
}

func websocketURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("endpoint must use http(s) or ws(s), got %q", u.Scheme)
	}
	return u.String(), nil
}
