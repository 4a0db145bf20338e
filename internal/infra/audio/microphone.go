//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// MicrophoneSource captures fixed-size PCM frames from the default
// input device. Pause stops the hardware stream without closing it, so
// frames arriving while a command is being routed are simply dropped.
type MicrophoneSource struct {
	sampleRate int
	frameSize  int
	logger     *slog.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
	buf    []int16
	paused bool
}

func NewMicrophoneSource(sampleRate, frameSize int, logger *slog.Logger) *MicrophoneSource {
	return &MicrophoneSource{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		logger:     logger,
	}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) Start(_ context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	m.buf = make([]int16, m.frameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), m.frameSize, m.buf)
	if err != nil {
		return fmt.Errorf("opening stream: %w", err)
	}
	m.stream = stream

	if err := m.stream.Start(); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}

	m.logger.Info("microphone started", "sampleRate", m.sampleRate, "frameSize", m.frameSize)
	return nil
}

func (m *MicrophoneSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream != nil {
		m.stream.Stop()
		m.stream.Close()
		m.stream = nil
	}
	portaudio.Terminate()
	return nil
}

func (m *MicrophoneSource) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream != nil && !m.paused {
		m.stream.Stop()
		m.paused = true
	}
}

func (m *MicrophoneSource) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream != nil && m.paused {
		m.stream.Start()
		m.paused = false
	}
}

func (m *MicrophoneSource) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := m.stream.Read(); err != nil {
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	frame := make([]byte, len(m.buf)*2)
	for i, s := range m.buf {
		binary.LittleEndian.PutUint16(frame[2*i:], uint16(s))
	}
	return frame, nil
}
