// Package codec provides stateless conversions between device sample
// formats, wire-encoded payloads, and playable PCM buffers.
package codec

import (
	"encoding/base64"
	"fmt"
	"time"
)

// Format describes the fixed audio shape of one direction of a session.
type Format struct {
	// SampleRate in Hz. Common values: 16000, 24000, 44100, 48000.
	SampleRate int `json:"sample_rate"`

	// Channels: 1 for mono, 2 for stereo.
	Channels int `json:"channels"`

	// BitsPerSample: typically 16 for PCM.
	BitsPerSample int `json:"bits_per_sample"`
}

// CaptureFormat returns the standard microphone-direction format.
func CaptureFormat() Format {
	return Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16}
}

// PlaybackFormat returns the standard speaker-direction format.
func PlaybackFormat() Format {
	return Format{SampleRate: 24000, Channels: 1, BitsPerSample: 16}
}

// BytesPerSecond returns the audio byte rate.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * (f.BitsPerSample / 8)
}

// Duration returns the play time of a buffer of the given byte length.
func (f Format) Duration(bytes int) time.Duration {
	bps := f.BytesPerSecond()
	if bps <= 0 || bytes <= 0 {
		return 0
	}
	return time.Duration(bytes) * time.Second / time.Duration(bps)
}

// BytesFor returns the byte length of a buffer with the given play time.
func (f Format) BytesFor(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(int64(f.BytesPerSecond()) * int64(d) / int64(time.Second))
}

// MimeType returns the transport mime string for raw PCM at this format,
// for example "audio/pcm;rate=16000".
func (f Format) MimeType() string {
	return fmt.Sprintf("audio/pcm;rate=%d", f.SampleRate)
}

// EncodeChunk converts raw PCM bytes to the transport encoding.
func EncodeChunk(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}

// DecodeChunk converts a transport-encoded payload back to raw PCM bytes.
func DecodeChunk(payload string) ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode audio payload: %w", err)
	}
	return pcm, nil
}

// Float32ToPCM16 converts floating-point device samples to 16-bit signed
// little-endian PCM. Samples are clamped to [-1, 1] before scaling.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		s := int16(v * 32767)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// PCM16ToFloat32 converts 16-bit signed little-endian PCM to floating-point
// samples in [-1, 1). Trailing odd bytes are ignored.
func PCM16ToFloat32(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float32(s) / 32768.0
	}
	return out
}
