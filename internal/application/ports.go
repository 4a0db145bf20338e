package application

import (
	"context"

	"delta-assistant/internal/endpoint"
)

// FrameSource delivers raw PCM frames from the capture device. Pause
// keeps the device open but discards frames until Resume; routing a
// command is synchronous relative to the stream, so frames arriving
// meanwhile are intentionally lost.
type FrameSource interface {
	Start(ctx context.Context) error
	Stop() error
	Pause()
	Resume()
	ReadFrame(ctx context.Context) ([]byte, error)
	Name() string
}

// AudioFormat describes the PCM stream the pipeline expects.
type AudioFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

func DefaultAudioFormat() AudioFormat {
	return AudioFormat{
		SampleRate: 16000,
		Channels:   1,
		BitDepth:   16,
	}
}

// Router handles one finalized transcript and returns the reply text.
type Router interface {
	Route(ctx context.Context, transcript string, trace *endpoint.Trace) (string, error)
}

// Indicator is the visual state signal. Calls are fire and forget and
// purely cosmetic; failures are swallowed by the implementation.
type Indicator interface {
	Waiting()
	Detected()
	Processing()
	Responding()
	Off()
}

// NoopIndicator is used when no indicator hardware is configured.
type NoopIndicator struct{}

func (NoopIndicator) Waiting()    {}
func (NoopIndicator) Detected()   {}
func (NoopIndicator) Processing() {}
func (NoopIndicator) Responding() {}
func (NoopIndicator) Off()        {}
