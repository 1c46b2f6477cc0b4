package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"runtime"
	"sync"
)

// ffmpegInput captures the default microphone through an ffmpeg child
// process emitting raw f32le mono samples on stdout.
type ffmpegInput struct {
	rate int

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
	done   chan struct{}
}

func newFFmpegInput(rate int) (*ffmpegInput, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, errors.New("ffmpeg is required for mic capture (install ffmpeg and ensure it is in PATH)")
	}
	return &ffmpegInput{rate: rate}, nil
}

func micFFmpegArgs(goos string, rate int) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "avfoundation", "-i", ":0",
			"-ac", "1", "-ar", fmt.Sprintf("%d", rate),
			"-f", "f32le", "-",
		}, nil
	case "linux":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "pulse", "-i", "default",
			"-ac", "1", "-ar", fmt.Sprintf("%d", rate),
			"-f", "f32le", "-",
		}, nil
	default:
		return nil, fmt.Errorf("mic capture is not implemented for %s; supported platforms: darwin, linux", goos)
	}
}

func (m *ffmpegInput) Start(onFrame func([]float32)) error {
	args, err := micFFmpegArgs(runtime.GOOS, m.rate)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cmd != nil {
		return errors.New("mic capture already started")
	}

	cmd := exec.Command("ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open ffmpeg stdout: %w", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg mic capture: %w", err)
	}
	m.cmd = cmd
	m.stdout = stdout
	m.done = make(chan struct{})

	go m.readLoop(stdout, onFrame, m.done)
	return nil
}

func (m *ffmpegInput) readLoop(r io.Reader, onFrame func([]float32), done chan struct{}) {
	defer close(done)
	// Full reads keep the stream sample-aligned; 1024 samples is 64 ms
	// at 16 kHz.
	buf := make([]byte, 4096)
	for {
		n, err := io.ReadFull(r, buf)
		if n >= 4 {
			onFrame(decodeF32LE(buf[:n-n%4]))
		}
		if err != nil {
			return
		}
	}
}

func decodeF32LE(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

func (m *ffmpegInput) Stop() error {
	m.mu.Lock()
	cmd := m.cmd
	done := m.done
	m.cmd = nil
	m.stdout = nil
	m.done = nil
	m.mu.Unlock()

	if cmd == nil {
		return nil
	}
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}
	if done != nil {
		<-done
	}
	return nil
}

// ffplayOutput plays raw s16le mono PCM through an ffplay child process.
type ffplayOutput struct {
	rate int

	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

func newFFplayOutput(rate int) (*ffplayOutput, error) {
	if _, err := exec.LookPath("ffplay"); err != nil {
		return nil, errors.New("ffplay is required for playback (install ffmpeg/ffplay and ensure it is in PATH)")
	}
	p := &ffplayOutput{rate: rate}
	if err := p.startLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *ffplayOutput) startLocked() error {
	cmd := exec.Command("ffplay",
		"-nodisp",
		"-autoexit",
		"-loglevel", "error",
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", p.rate),
		"-ac", "1",
		"-i", "pipe:0",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open ffplay stdin: %w", err)
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffplay: %w", err)
	}
	p.cmd = cmd
	p.stdin = stdin
	return nil
}

func (p *ffplayOutput) Write(pcm []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stdin == nil {
		return errors.New("playback device is closed")
	}
	_, err := p.stdin.Write(pcm)
	return err
}

func (p *ffplayOutput) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
		_ = p.cmd.Wait()
	}
	p.cmd = nil
	p.stdin = nil
	return nil
}
