// Package config loads and validates the YAML configuration of the
// voicedesk CLI.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete application configuration.
type Config struct {
	Endpoint EndpointConfig `yaml:"endpoint"`
	Audio    AudioConfig    `yaml:"audio"`
	Roster   RosterConfig   `yaml:"roster"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// EndpointConfig describes the remote voice endpoint.
type EndpointConfig struct {
	URL string `yaml:"url"`

	// APIKeyEnv names the environment variable holding the bearer token.
	// The key itself never lives in the config file.
	APIKeyEnv string `yaml:"api_key_env"`

	// ConnectTimeout bounds dial plus setup, in seconds. Zero uses the
	// transport default.
	ConnectTimeout int `yaml:"connect_timeout"`
}

// AudioConfig describes the fixed audio shapes of a session.
type AudioConfig struct {
	CaptureRate  int `yaml:"capture_rate"`
	PlaybackRate int `yaml:"playback_rate"`
	Channels     int `yaml:"channels"`
	ChunkSamples int `yaml:"chunk_samples"`
}

// RosterConfig points at the guest roster file.
type RosterConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration with sensible local defaults.
func Default() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			URL:            "wss://localhost:8443/v1/voice",
			APIKeyEnv:      "VOICEDESK_API_KEY",
			ConnectTimeout: 15,
		},
		Audio: AudioConfig{
			CaptureRate:  16000,
			PlaybackRate: 24000,
			Channels:     1,
			ChunkSamples: 512,
		},
		Roster: RosterConfig{
			Path: "roster.yaml",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file at path over the defaults and validates the
// result. A missing file is not an error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if err := c.Endpoint.Validate(); err != nil {
		return fmt.Errorf("endpoint config: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate checks the endpoint settings.
func (e *EndpointConfig) Validate() error {
	if e.URL == "" {
		return fmt.Errorf("url cannot be empty")
	}
	if e.ConnectTimeout < 0 {
		return fmt.Errorf("connect_timeout cannot be negative, got %d", e.ConnectTimeout)
	}
	return nil
}

// Validate checks the audio settings.
func (a *AudioConfig) Validate() error {
	if a.CaptureRate < 8000 {
		return fmt.Errorf("capture_rate must be at least 8000 Hz, got %d", a.CaptureRate)
	}
	if a.PlaybackRate < 8000 {
		return fmt.Errorf("playback_rate must be at least 8000 Hz, got %d", a.PlaybackRate)
	}
	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}
	if a.ChunkSamples < 64 || a.ChunkSamples > 8192 {
		return fmt.Errorf("chunk_samples must be between 64 and 8192, got %d", a.ChunkSamples)
	}
	return nil
}

// Validate checks the metrics settings.
func (m *MetricsConfig) Validate() error {
	if m.Enabled && m.Listen == "" {
		return fmt.Errorf("listen cannot be empty when metrics are enabled")
	}
	return nil
}

// Validate checks the logging settings.
func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	switch l.Format {
	case "text", "json":
	default:
		return fmt.Errorf("format must be 'text' or 'json', got %q", l.Format)
	}
	return nil
}

// APIKey resolves the bearer token from the environment. Empty when the
// variable is unset, which the endpoint may or may not accept.
func (e *EndpointConfig) APIKey() string {
	if e.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(e.APIKeyEnv)
}

// ConnectTimeoutDuration returns the connect timeout as a time.Duration.
func (e *EndpointConfig) ConnectTimeoutDuration() time.Duration {
	return time.Duration(e.ConnectTimeout) * time.Second
}
