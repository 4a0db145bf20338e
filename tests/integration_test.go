package tests

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"delta-assistant/internal/application"
	"delta-assistant/internal/device"
	"delta-assistant/internal/domain"
	"delta-assistant/internal/endpoint"
	"delta-assistant/internal/router"
)

type dpsWrite struct {
	device string
	dps    int
	value  any
}

type recordingTransport struct {
	device string
	mu     *sync.Mutex
	writes *[]dpsWrite
}

func (t *recordingTransport) WriteAttribute(_ context.Context, dps int, value any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	*t.writes = append(*t.writes, dpsWrite{device: t.device, dps: dps, value: value})
	return nil
}

func (t *recordingTransport) Status(context.Context) (map[string]any, error) {
	return map[string]any{}, nil
}

type recordingDialer struct {
	mu     sync.Mutex
	writes []dpsWrite
}

func (d *recordingDialer) Dial(_ context.Context, dev *domain.Device) (device.Transport, error) {
	return &recordingTransport{device: dev.Name, mu: &d.mu, writes: &d.writes}, nil
}

// scriptedBackend answers every device-control prompt with the same
// fixed tool calls, standing in for the language model.
type scriptedBackend struct {
	toolCalls []router.ToolCall
}

func (b *scriptedBackend) Chat(_ context.Context, _, _ string, _ []router.Tool, _ router.Options) (router.ChatResult, error) {
	return router.ChatResult{ToolCalls: b.toolCalls}, nil
}

func (b *scriptedBackend) ChatStream(_ context.Context, _, _ string, _ router.Options, onChunk func(string)) (string, error) {
	onChunk("ok")
	return "ok", nil
}

type scriptedFrames struct {
	frames [][]byte
	cancel context.CancelFunc
}

func (s *scriptedFrames) Name() string                { return "scripted" }
func (s *scriptedFrames) Start(context.Context) error { return nil }
func (s *scriptedFrames) Stop() error                 { return nil }
func (s *scriptedFrames) Pause()                      {}
func (s *scriptedFrames) Resume()                     {}

func (s *scriptedFrames) ReadFrame(context.Context) ([]byte, error) {
	if len(s.frames) == 0 {
		s.cancel()
		return nil, context.Canceled
	}
	frame := s.frames[0]
	s.frames = s.frames[1:]
	return frame, nil
}

type scriptedRecognizer struct {
	keywordOnFrame int
	flush          string
	frame          int
}

func (r *scriptedRecognizer) Accept([]byte) (bool, error) {
	r.frame++
	return r.frame == r.keywordOnFrame, nil
}

func (r *scriptedRecognizer) Result() (string, error)      { return "ei delta", nil }
func (r *scriptedRecognizer) FinalResult() (string, error) { return r.flush, nil }
func (r *scriptedRecognizer) Reset() error                 { return nil }

// TestPipeline_VoiceCommandToDeviceWrites runs the full chain with a
// scripted speech engine and backend: keyword, captured command,
// routing, tool dispatch, and the resulting protocol writes.
func TestPipeline_VoiceCommandToDeviceWrites(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dialer := &recordingDialer{}
	registry := device.NewRegistry(dialer, map[string]device.Identity{
		"ar": {ID: "dev-ac"},
	})
	controller := device.NewController(registry, logger)

	backend := &scriptedBackend{toolCalls: []router.ToolCall{
		{Name: "set_ac_state", Arguments: []byte(`{"power": true, "target_temp_c": 22, "mode": "cold"}`)},
	}}
	rt := router.New(backend, router.NoSensors{}, controller, logger)
	rt.SetClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })

	rec := &scriptedRecognizer{keywordOnFrame: 1, flush: "liga o ar em 22 graus"}
	machine := endpoint.NewMachine(rec, "delta", 0)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	machine.SetClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	frames := &scriptedFrames{cancel: cancel}
	for i := 0; i < 8; i++ {
		frames.frames = append(frames.frames, make([]byte, 320))
	}

	notifier := &recordingNotifier{}
	assistant := application.NewAssistant(frames, machine, rt, application.NoopIndicator{}, notifier, logger)

	if err := assistant.Run(ctx); err != context.Canceled {
		t.Fatalf("Run error: %v", err)
	}

	want := []dpsWrite{
		{device: "ar", dps: 1, value: true},
		{device: "ar", dps: 2, value: 220},
		{device: "ar", dps: 4, value: "cold"},
	}
	dialer.mu.Lock()
	got := append([]dpsWrite(nil), dialer.writes...)
	dialer.mu.Unlock()

	if len(got) != len(want) {
		t.Fatalf("writes: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write %d: got %+v, want %+v", i, got[i], want[i])
		}
	}

	if len(notifier.messages) != 1 {
		t.Fatalf("notifications: got %d, want 1", len(notifier.messages))
	}
	if notifier.messages[0] != "AC ligado em 22C." {
		t.Errorf("reply: got %q", notifier.messages[0])
	}
}

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, message string) error {
	n.messages = append(n.messages, message)
	return nil
}
