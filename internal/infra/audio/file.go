package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"time"
)

// FileSource replays a 16-bit mono PCM WAV file as a frame stream at
// real-time pace, for development without a microphone.
type FileSource struct {
	path      string
	frameSize int

	sampleRate int
	data       []byte
	offset     int
}

func NewFileSource(path string, frameSize int) *FileSource {
	return &FileSource{path: path, frameSize: frameSize}
}

func (f *FileSource) Name() string {
	return "file"
}

func (f *FileSource) Start(_ context.Context) error {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("reading audio file: %w", err)
	}
	sampleRate, data, err := parseWav(raw)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", f.path, err)
	}
	f.sampleRate = sampleRate
	f.data = data
	f.offset = 0
	return nil
}

func (f *FileSource) Stop() error { return nil }

// Pause and Resume are no-ops: the assistant never reads frames while
// paused, and a file has no hardware to quiesce.
func (f *FileSource) Pause()  {}
func (f *FileSource) Resume() {}

func (f *FileSource) ReadFrame(ctx context.Context) ([]byte, error) {
	if f.offset >= len(f.data) {
		return nil, fmt.Errorf("audio file exhausted")
	}

	// Pace playback so the wall-clock endpointing behaves as live.
	frameDur := time.Duration(f.frameSize) * time.Second / time.Duration(f.sampleRate)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(frameDur):
	}

	end := f.offset + f.frameSize*2
	if end > len(f.data) {
		end = len(f.data)
	}
	frame := f.data[f.offset:end]
	f.offset = end
	return frame, nil
}

// parseWav extracts the sample rate and PCM payload of a canonical
// 16-bit mono RIFF file.
func parseWav(raw []byte) (int, []byte, error) {
	if len(raw) < 44 || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return 0, nil, fmt.Errorf("not a RIFF/WAVE file")
	}

	channels := binary.LittleEndian.Uint16(raw[22:24])
	sampleRate := binary.LittleEndian.Uint32(raw[24:28])
	bits := binary.LittleEndian.Uint16(raw[34:36])
	if channels != 1 || bits != 16 {
		return 0, nil, fmt.Errorf("want 16-bit mono PCM, got %d-bit %d channels", bits, channels)
	}

	// Walk chunks for "data"; fmt may be followed by LIST etc.
	pos := 12
	for pos+8 <= len(raw) {
		id := string(raw[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(raw[pos+4 : pos+8]))
		if id == "data" {
			end := pos + 8 + size
			if end > len(raw) {
				end = len(raw)
			}
			return int(sampleRate), raw[pos+8 : end], nil
		}
		pos += 8 + size + size%2
	}
	return 0, nil, fmt.Errorf("no data chunk")
}
