package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delta-assistant/internal/endpoint"
)

// scriptedFrames hands out the queued frames and then cancels the run
// context, so Run terminates deterministically.
type scriptedFrames struct {
	frames [][]byte
	cancel context.CancelFunc

	started bool
	stopped bool
	paused  int
	resumed int
}

func (s *scriptedFrames) Name() string                { return "scripted" }
func (s *scriptedFrames) Start(context.Context) error { s.started = true; return nil }
func (s *scriptedFrames) Stop() error                 { s.stopped = true; return nil }
func (s *scriptedFrames) Pause()                      { s.paused++ }
func (s *scriptedFrames) Resume()                     { s.resumed++ }

func (s *scriptedFrames) ReadFrame(ctx context.Context) ([]byte, error) {
	if len(s.frames) == 0 {
		s.cancel()
		return nil, context.Canceled
	}
	frame := s.frames[0]
	s.frames = s.frames[1:]
	return frame, nil
}

// stubRecognizer finalizes whenever its queue has an entry for the
// current frame index.
type stubRecognizer struct {
	finals map[int]string
	flush  string
	frame  int
}

func (s *stubRecognizer) Accept([]byte) (bool, error) {
	s.frame++
	_, ok := s.finals[s.frame]
	return ok, nil
}

func (s *stubRecognizer) Result() (string, error)      { return s.finals[s.frame], nil }
func (s *stubRecognizer) FinalResult() (string, error) { return s.flush, nil }
func (s *stubRecognizer) Reset() error                 { return nil }

type routedCall struct {
	text string
}

type fakeRouter struct {
	reply string
	err   error
	calls []routedCall
}

func (f *fakeRouter) Route(_ context.Context, transcript string, trace *endpoint.Trace) (string, error) {
	f.calls = append(f.calls, routedCall{text: transcript})
	trace.MarkModelStart(time.Now())
	trace.MarkModelEnd(time.Now())
	return f.reply, f.err
}

type stateIndicator struct {
	mu     sync.Mutex
	states []string
}

func (s *stateIndicator) add(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, state)
}

func (s *stateIndicator) Waiting()    { s.add("waiting") }
func (s *stateIndicator) Detected()   { s.add("detected") }
func (s *stateIndicator) Processing() { s.add("processing") }
func (s *stateIndicator) Responding() { s.add("responding") }
func (s *stateIndicator) Off()        { s.add("off") }

type captureNotifier struct {
	messages []string
	err      error
}

func (n *captureNotifier) Notify(_ context.Context, message string) error {
	n.messages = append(n.messages, message)
	return n.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runPipeline drives a keyword + command + silence sequence through a
// real endpointing machine wired to test doubles everywhere else.
func runPipeline(t *testing.T, router *fakeRouter, notifier *captureNotifier) (*scriptedFrames, *stateIndicator) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := &scriptedFrames{cancel: cancel}
	// Frame 1 carries the keyword; frames 2-3 are the command; the rest
	// is silence until the machine finalizes.
	for i := 0; i < 8; i++ {
		frames.frames = append(frames.frames, make([]byte, 320))
	}

	rec := &stubRecognizer{finals: map[int]string{1: "ei delta"}, flush: "liga o ar"}
	machine := endpoint.NewMachine(rec, "delta", 0)

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	machine.SetClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	indicator := &stateIndicator{}
	a := NewAssistant(frames, machine, router, indicator, notifier, discardLogger())

	err := a.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	return frames, indicator
}

func TestAssistantRunEndToEnd(t *testing.T) {
	router := &fakeRouter{reply: "AC ligado"}
	notifier := &captureNotifier{}

	frames, indicator := runPipeline(t, router, notifier)

	require.Len(t, router.calls, 1)
	assert.Equal(t, "liga o ar", router.calls[0].text)
	assert.Equal(t, []string{"AC ligado"}, notifier.messages)

	assert.True(t, frames.started)
	assert.True(t, frames.stopped)
	assert.Equal(t, 1, frames.paused, "frames paused during routing")
	assert.Equal(t, 1, frames.resumed)

	assert.Equal(t,
		[]string{"waiting", "detected", "processing", "responding", "waiting", "off"},
		indicator.states)
}

func TestAssistantRoutingErrorKeepsRunning(t *testing.T) {
	router := &fakeRouter{err: errors.New("backend down")}
	notifier := &captureNotifier{}

	_, indicator := runPipeline(t, router, notifier)

	require.Len(t, router.calls, 1)
	assert.Empty(t, notifier.messages, "no reply to mirror on failure")
	assert.Equal(t,
		[]string{"waiting", "detected", "processing", "waiting", "off"},
		indicator.states, "re-armed without a responding phase")
}

func TestAssistantEmptyUtteranceRearms(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := &scriptedFrames{cancel: cancel}
	for i := 0; i < 8; i++ {
		frames.frames = append(frames.frames, make([]byte, 320))
	}

	rec := &stubRecognizer{finals: map[int]string{1: "delta"}, flush: ""}
	machine := endpoint.NewMachine(rec, "delta", 0)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	machine.SetClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	router := &fakeRouter{}
	a := NewAssistant(frames, machine, router, &stateIndicator{}, NoopNotifier{}, discardLogger())

	err := a.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, router.calls, "empty transcripts never reach the router")
	assert.Zero(t, frames.paused)
}

func TestAssistantStartFailure(t *testing.T) {
	frames := &failingFrames{}
	machine := endpoint.NewMachine(&stubRecognizer{}, "delta", 0)
	a := NewAssistant(frames, machine, &fakeRouter{}, NoopIndicator{}, NoopNotifier{}, discardLogger())

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting audio")
}

type failingFrames struct{}

func (failingFrames) Name() string                              { return "failing" }
func (failingFrames) Start(context.Context) error               { return errors.New("no device") }
func (failingFrames) Stop() error                               { return nil }
func (failingFrames) Pause()                                    {}
func (failingFrames) Resume()                                   {}
func (failingFrames) ReadFrame(context.Context) ([]byte, error) { return nil, errors.New("unused") }
