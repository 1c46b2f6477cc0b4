package codec

import (
	"math"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	f := PlaybackFormat()

	// 24kHz, mono, 16-bit = 48000 bytes/second
	if f.BytesPerSecond() != 48000 {
		t.Errorf("expected 48000 bytes/sec, got %d", f.BytesPerSecond())
	}
	if d := f.Duration(48000); d != time.Second {
		t.Errorf("expected 1s for 48000 bytes, got %v", d)
	}
	if d := f.Duration(24000); d != 500*time.Millisecond {
		t.Errorf("expected 500ms for 24000 bytes, got %v", d)
	}
	if n := f.BytesFor(time.Second); n != 48000 {
		t.Errorf("expected 48000 bytes for 1s, got %d", n)
	}
	if d := f.Duration(0); d != 0 {
		t.Errorf("expected 0 duration for empty buffer, got %v", d)
	}
}

func TestMimeType(t *testing.T) {
	if got := CaptureFormat().MimeType(); got != "audio/pcm;rate=16000" {
		t.Errorf("unexpected capture mime type %q", got)
	}
	if got := PlaybackFormat().MimeType(); got != "audio/pcm;rate=24000" {
		t.Errorf("unexpected playback mime type %q", got)
	}
}

func TestFloat32ToPCM16Clamping(t *testing.T) {
	tests := []struct {
		name    string
		samples []float32
		want    []int16
	}{
		{
			name:    "silence",
			samples: []float32{0, 0},
			want:    []int16{0, 0},
		},
		{
			name:    "full scale",
			samples: []float32{1, -1},
			want:    []int16{32767, -32767},
		},
		{
			name:    "out of range is clamped",
			samples: []float32{2.5, -3.1},
			want:    []int16{32767, -32767},
		},
		{
			name:    "half amplitude",
			samples: []float32{0.5},
			want:    []int16{16383},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcm := Float32ToPCM16(tt.samples)
			if len(pcm) != len(tt.want)*2 {
				t.Fatalf("expected %d bytes, got %d", len(tt.want)*2, len(pcm))
			}
			for i, want := range tt.want {
				got := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
				if got != want {
					t.Errorf("sample %d: expected %d, got %d", i, want, got)
				}
			}
		})
	}
}

func TestEncodeDecodeChunk(t *testing.T) {
	pcm := Float32ToPCM16([]float32{0, 0.25, -0.25, 1})

	payload := EncodeChunk(pcm)
	back, err := DecodeChunk(payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(back) != len(pcm) {
		t.Fatalf("expected %d bytes, got %d", len(pcm), len(back))
	}
	for i := range pcm {
		if back[i] != pcm[i] {
			t.Fatalf("byte %d differs", i)
		}
	}

	if _, err := DecodeChunk("not base64!!"); err == nil {
		t.Error("expected error for invalid payload")
	}
}

func TestPCM16ToFloat32(t *testing.T) {
	samples := PCM16ToFloat32([]byte{0x00, 0x40}) // 16384
	if len(samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(samples))
	}
	if math.Abs(float64(samples[0])-0.5) > 0.001 {
		t.Errorf("expected 0.5, got %f", samples[0])
	}

	// Odd trailing byte is ignored.
	if got := PCM16ToFloat32([]byte{0x00, 0x40, 0x7f}); len(got) != 1 {
		t.Errorf("expected trailing byte to be dropped, got %d samples", len(got))
	}
}
