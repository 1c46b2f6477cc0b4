// Command voicedesk is the front-desk voice assistant console. It
// drives a real-time voice session against the configured endpoint and
// prints the conversation, routing actionable directives to stdout.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/frontdesk-hq/voicedesk/internal/config"
	"github.com/frontdesk-hq/voicedesk/internal/dotenv"
	"github.com/frontdesk-hq/voicedesk/internal/metrics"
	"github.com/frontdesk-hq/voicedesk/pkg/codec"
	"github.com/frontdesk-hq/voicedesk/pkg/live"
	"github.com/frontdesk-hq/voicedesk/pkg/roster"
	"github.com/frontdesk-hq/voicedesk/pkg/transcript"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "voicedesk:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "voicedesk.yaml", "path to the configuration file")
	rosterPath := flag.String("roster", "", "path to the roster file (overrides the config)")
	flag.Parse()

	if err := dotenv.Load(".env"); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *rosterPath != "" {
		cfg.Roster.Path = *rosterPath
	}

	log := newLogger(cfg.Logging)
	slog.SetDefault(log)

	guests, err := loadRoster(cfg.Roster.Path)
	if err != nil {
		return err
	}
	if len(guests) == 0 {
		log.Warn("roster is empty", "path", cfg.Roster.Path)
	} else {
		log.Info("roster loaded", "path", cfg.Roster.Path, "guests", len(guests))
	}

	var met *metrics.Session
	if cfg.Metrics.Enabled {
		met = metrics.New()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
				log.Error("metrics endpoint failed", "error", err)
			}
		}()
		log.Info("metrics endpoint listening", "addr", cfg.Metrics.Listen)
	}

	captureFormat := codec.Format{
		SampleRate:    cfg.Audio.CaptureRate,
		Channels:      cfg.Audio.Channels,
		BitsPerSample: 16,
	}
	playbackFormat := codec.Format{
		SampleRate:    cfg.Audio.PlaybackRate,
		Channels:      cfg.Audio.Channels,
		BitsPerSample: 16,
	}

	ctl, err := live.NewController(live.ControllerConfig{
		OpenInput: func() (live.InputDevice, error) {
			return newFFmpegInput(cfg.Audio.CaptureRate)
		},
		OpenOutput: func() (live.OutputDevice, error) {
			return newFFplayOutput(cfg.Audio.PlaybackRate)
		},
		Endpoint: live.DialConfig{
			URL:     cfg.Endpoint.URL,
			APIKey:  cfg.Endpoint.APIKey(),
			Timeout: cfg.Endpoint.ConnectTimeoutDuration(),
		},
		Roster: roster.StaticProvider(guests),
		NoteSink: func(guestID, note string) {
			fmt.Printf("\n[desk] note for %s: %s\n", guestID, note)
		},
		FieldSink: func(guestID string, fields map[string]string) {
			fmt.Printf("\n[desk] update for %s: %s\n", guestID, formatFields(fields))
		},
		OnCommit:       printCommitted,
		CaptureFormat:  captureFormat,
		PlaybackFormat: playbackFormat,
		ChunkSamples:   cfg.Audio.ChunkSamples,
		Logger:         log,
		Metrics:        met,
	})
	if err != nil {
		return err
	}

	fmt.Println("voicedesk console. Commands: /start /stop /mic /level /say <text> /transcript /clear /quit")
	return commandLoop(ctl, log)
}

func commandLoop(ctl *live.Controller, log *slog.Logger) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("(%s)> ", ctl.State())
		if !scanner.Scan() {
			_ = ctl.Disconnect()
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "/start":
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := ctl.Start(ctx)
			cancel()
			if err != nil {
				fmt.Println("start failed:", err)
			}
		case "/stop":
			if err := ctl.Disconnect(); err != nil {
				fmt.Println("stop failed:", err)
			}
		case "/mic":
			armed, err := ctl.ToggleMic()
			if err != nil {
				fmt.Println("mic:", err)
			} else if armed {
				fmt.Println("mic armed")
			} else {
				fmt.Println("mic muted")
			}
		case "/say":
			if arg == "" {
				fmt.Println("usage: /say <text>")
				continue
			}
			if err := ctl.SendText(arg); err != nil {
				fmt.Println("say failed:", err)
			}
		case "/level":
			rms, peak := ctl.MicLevel(), ctl.MicPeak()
			fmt.Printf("level: rms %.2f peak %.2f  %s\n", rms, peak, levelBar(rms))
		case "/transcript":
			printTranscript(ctl)
		case "/clear":
			ctl.ClearHistory()
			fmt.Println("history cleared")
		case "/quit", "/exit":
			_ = ctl.Disconnect()
			return nil
		default:
			fmt.Println("commands: /start /stop /mic /level /say <text> /transcript /clear /quit")
		}
	}
}

func printCommitted(entries []transcript.Entry) {
	for _, e := range entries {
		text := e.Text
		if e.Role == transcript.RoleModel {
			text = roster.StripDirectives(text)
		}
		if text == "" {
			continue
		}
		fmt.Printf("\n[%s] %s\n", e.Role, text)
	}
}

func printTranscript(ctl *live.Controller) {
	entries := ctl.Transcript()
	if len(entries) == 0 {
		fmt.Println("(transcript is empty)")
	}
	for _, e := range entries {
		fmt.Printf("[%s] %s\n", e.Role, e.Text)
	}
	if user, model := ctl.Interim(); user != "" || model != "" {
		fmt.Printf("(in progress) user: %q  model: %q\n", user, model)
	}
}

func levelBar(level float64) string {
	const width = 20
	n := int(level * width)
	if n > width {
		n = width
	}
	return "[" + strings.Repeat("#", n) + strings.Repeat("-", width-n) + "]"
}

func formatFields(fields map[string]string) string {
	parts := make([]string, 0, len(fields))
	for k, v := range fields {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ", ")
}

// rosterFile is the on-disk roster shape.
type rosterFile struct {
	Guests []roster.Guest `yaml:"guests"`
}

func loadRoster(path string) ([]roster.Guest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read roster file %s: %w", path, err)
	}
	var file rosterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse roster file %s: %w", path, err)
	}
	return file.Guests, nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}
