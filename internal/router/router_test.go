package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delta-assistant/internal/domain"
	"delta-assistant/internal/endpoint"
)

type fakeBackend struct {
	result     ChatResult
	err        error
	stream     string
	lastUser   string
	lastTools  []Tool
	lastOpts   Options
	chatCalls  int
	streamOpts Options
}

func (f *fakeBackend) Chat(_ context.Context, _, user string, tools []Tool, opts Options) (ChatResult, error) {
	f.chatCalls++
	f.lastUser = user
	f.lastTools = tools
	f.lastOpts = opts
	return f.result, f.err
}

func (f *fakeBackend) ChatStream(_ context.Context, _, user string, opts Options, onChunk func(string)) (string, error) {
	f.lastUser = user
	f.streamOpts = opts
	if f.err != nil {
		return "", f.err
	}
	onChunk(f.stream)
	return f.stream, nil
}

type fakeSensors struct {
	readings domain.Readings
}

func (f *fakeSensors) ReadAll(context.Context) domain.Readings { return f.readings }

type fakeDevices struct {
	climate []domain.ClimateIntent
	fans    []domain.FanIntent
	ceiling []domain.CeilingLampIntent
	rgb     []domain.RgbLampIntent
	err     error
}

func (f *fakeDevices) SetClimateState(_ context.Context, in domain.ClimateIntent) (domain.Changes, error) {
	f.climate = append(f.climate, in)
	return domain.Changes{}, f.err
}

func (f *fakeDevices) SetFanState(_ context.Context, in domain.FanIntent) (domain.Changes, error) {
	f.fans = append(f.fans, in)
	return domain.Changes{}, f.err
}

func (f *fakeDevices) SetCeilingLampState(_ context.Context, in domain.CeilingLampIntent) (domain.Changes, error) {
	f.ceiling = append(f.ceiling, in)
	return domain.Changes{}, f.err
}

func (f *fakeDevices) SetRgbLampState(_ context.Context, in domain.RgbLampIntent) (domain.Changes, error) {
	f.rgb = append(f.rgb, in)
	return domain.Changes{}, f.err
}

func floatPtr(v float64) *float64 { return &v }

func newTestRouter(backend *fakeBackend, sensors SensorSource, devices DeviceActions) *Router {
	r := New(backend, sensors, devices, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.SetClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })
	return r
}

func rawArgs(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestRouteClimateQueryWinsOverDeviceWords(t *testing.T) {
	backend := &fakeBackend{result: ChatResult{Content: "Esta agradavel, 23 graus."}}
	sensors := &fakeSensors{readings: domain.Readings{
		"sala": {Temp: floatPtr(23), Humidity: floatPtr(50)},
	}}
	devices := &fakeDevices{}
	r := newTestRouter(backend, sensors, devices)

	// "ar" is a device word, but the climate question decides the path.
	reply, err := r.Route(context.Background(), "qual a temperatura do ar", &endpoint.Trace{})
	require.NoError(t, err)
	assert.Equal(t, "Esta agradavel, 23 graus.", reply)
	assert.Nil(t, backend.lastTools, "climate path offers no tools")
	assert.Empty(t, devices.climate)
}

func TestRouteClimateQueryWithoutSensors(t *testing.T) {
	backend := &fakeBackend{}
	r := newTestRouter(backend, NoSensors{}, &fakeDevices{})

	reply, err := r.Route(context.Background(), "quantos graus aqui", &endpoint.Trace{})
	require.NoError(t, err)
	assert.Equal(t, "Nao consegui ler os sensores agora.", reply)
	assert.Zero(t, backend.chatCalls, "no backend call without data")
}

func TestRouteDeviceCommandDispatchesToolCall(t *testing.T) {
	backend := &fakeBackend{result: ChatResult{ToolCalls: []ToolCall{
		{Name: "set_ac_state", Arguments: nil},
	}}}
	backend.result.ToolCalls[0].Arguments = []byte(`{"power": true, "target_temp_c": 22}`)
	devices := &fakeDevices{}
	r := newTestRouter(backend, NoSensors{}, devices)

	reply, err := r.Route(context.Background(), "delta liga o ar em 22 graus", &endpoint.Trace{})
	require.NoError(t, err)
	assert.Equal(t, "AC ligado em 22C.", reply)

	require.Len(t, devices.climate, 1)
	in := devices.climate[0]
	require.NotNil(t, in.Power)
	assert.True(t, *in.Power)
	require.NotNil(t, in.TargetTempC)
	assert.Equal(t, 22, *in.TargetTempC)
	assert.Len(t, backend.lastTools, 4, "device path offers every tool")
}

func TestRouteDeviceCommandNoToolCalls(t *testing.T) {
	backend := &fakeBackend{result: ChatResult{Content: "Nao entendi qual dispositivo."}}
	r := newTestRouter(backend, NoSensors{}, &fakeDevices{})

	reply, err := r.Route(context.Background(), "ajusta alguma coisa", &endpoint.Trace{})
	require.NoError(t, err)
	assert.Equal(t, "Nao entendi qual dispositivo.", reply)

	backend.result = ChatResult{}
	reply, err = r.Route(context.Background(), "ajusta alguma coisa", &endpoint.Trace{})
	require.NoError(t, err)
	assert.Equal(t, "Comando processado.", reply)
}

func TestDispatchMutualExclusionFanAfterAC(t *testing.T) {
	backend := &fakeBackend{result: ChatResult{ToolCalls: []ToolCall{
		{Name: "set_ac_state", Arguments: []byte(`{"power": true}`)},
		{Name: "set_fan_state", Arguments: []byte(`{"power": true}`)},
	}}}
	devices := &fakeDevices{}
	r := newTestRouter(backend, NoSensors{}, devices)

	reply, err := r.Route(context.Background(), "liga o ar e o ventilador", &endpoint.Trace{})
	require.NoError(t, err)
	assert.Contains(t, reply, "Ventilador ignorado")

	assert.Len(t, devices.climate, 1)
	assert.Empty(t, devices.fans, "fan power-on dropped after AC power-on")
}

func TestDispatchMutualExclusionACAfterFan(t *testing.T) {
	backend := &fakeBackend{result: ChatResult{ToolCalls: []ToolCall{
		{Name: "set_fan_state", Arguments: []byte(`{"power": true, "speed": 3}`)},
		{Name: "set_ac_state", Arguments: []byte(`{"power": true}`)},
	}}}
	devices := &fakeDevices{}
	r := newTestRouter(backend, NoSensors{}, devices)

	reply, err := r.Route(context.Background(), "liga o ventilador e o ar", &endpoint.Trace{})
	require.NoError(t, err)
	assert.Contains(t, reply, "AC ignorado")

	require.Len(t, devices.fans, 1)
	require.NotNil(t, devices.fans[0].Speed)
	assert.Equal(t, "3", *devices.fans[0].Speed)
	assert.Empty(t, devices.climate)
}

func TestDispatchPowerOffsAreNotExclusive(t *testing.T) {
	backend := &fakeBackend{result: ChatResult{ToolCalls: []ToolCall{
		{Name: "set_ac_state", Arguments: []byte(`{"power": false}`)},
		{Name: "set_fan_state", Arguments: []byte(`{"power": false}`)},
	}}}
	devices := &fakeDevices{}
	r := newTestRouter(backend, NoSensors{}, devices)

	_, err := r.Route(context.Background(), "desliga o ar e o ventilador", &endpoint.Trace{})
	require.NoError(t, err)
	assert.Len(t, devices.climate, 1)
	assert.Len(t, devices.fans, 1)
}

func TestDispatchControllerFailure(t *testing.T) {
	backend := &fakeBackend{result: ChatResult{ToolCalls: []ToolCall{
		{Name: "set_ceiling_lamp_state", Arguments: []byte(`{"power": true}`)},
	}}}
	devices := &fakeDevices{err: errors.New("device offline")}
	r := newTestRouter(backend, NoSensors{}, devices)

	reply, err := r.Route(context.Background(), "acende a luz do teto", &endpoint.Trace{})
	require.NoError(t, err, "a device failure is reported, not propagated")
	assert.Contains(t, reply, "Falha ao controlar a lampada do teto")
}

func TestRouteConversationFallback(t *testing.T) {
	backend := &fakeBackend{stream: "Oi!\nTudo bem por aqui."}
	r := newTestRouter(backend, NoSensors{}, &fakeDevices{})

	trace := &endpoint.Trace{}
	reply, err := r.Route(context.Background(), "bom dia, tudo bem?", trace)
	require.NoError(t, err)
	assert.Equal(t, "Oi! Tudo bem por aqui.", reply)
	assert.Equal(t, Options{NumPredict: 60, Temperature: 0.1, TopK: 20}, backend.streamOpts)
	assert.False(t, trace.ModelStart.IsZero())
	assert.False(t, trace.ModelEnd.IsZero())
}

func TestRouteBackendError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("ollama down")}
	r := newTestRouter(backend, NoSensors{}, &fakeDevices{})

	_, err := r.Route(context.Background(), "conta uma piada", &endpoint.Trace{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama down")
}

func TestDecodeToolCallCoercions(t *testing.T) {
	intent, err := decodeToolCall(ToolCall{
		Name:      "set_ac_state",
		Arguments: rawArgs(t, map[string]any{"power": "true", "target_temp_c": "22", "mode": "cold"}),
	})
	require.NoError(t, err)
	ac, ok := intent.(domain.ClimateIntent)
	require.True(t, ok)
	require.NotNil(t, ac.Power)
	assert.True(t, *ac.Power)
	require.NotNil(t, ac.TargetTempC)
	assert.Equal(t, 22, *ac.TargetTempC)
	require.NotNil(t, ac.Mode)
	assert.Equal(t, "cold", *ac.Mode)
}

func TestDecodeToolCallDoubleEncodedArguments(t *testing.T) {
	inner, err := json.Marshal(map[string]any{"power": true, "speed": 2})
	require.NoError(t, err)
	outer, err := json.Marshal(string(inner))
	require.NoError(t, err)

	intent, err := decodeToolCall(ToolCall{Name: "set_fan_state", Arguments: outer})
	require.NoError(t, err)
	fan, ok := intent.(domain.FanIntent)
	require.True(t, ok)
	require.NotNil(t, fan.Speed)
	assert.Equal(t, "2", *fan.Speed)
}

func TestDecodeToolCallUnknownTool(t *testing.T) {
	_, err := decodeToolCall(ToolCall{Name: "open_garage", Arguments: []byte(`{}`)})
	require.Error(t, err)
}

func TestDecodeToolCallCeilingLampRequiresPower(t *testing.T) {
	_, err := decodeToolCall(ToolCall{Name: "set_ceiling_lamp_state", Arguments: []byte(`{}`)})
	require.Error(t, err)
}

func TestDescribeTemp(t *testing.T) {
	assert.Equal(t, "frio", describeTemp(17.9))
	assert.Equal(t, "confortavel", describeTemp(23.9))
	assert.Equal(t, "um pouco quente", describeTemp(27.9))
	assert.Equal(t, "quente", describeTemp(28))
}

func TestDescribeHumidity(t *testing.T) {
	assert.Equal(t, "ambiente seco", describeHumidity(29.9))
	assert.Equal(t, "umidade confortavel", describeHumidity(60))
	assert.Equal(t, "ambiente umido ou abafado", describeHumidity(60.1))
}

func TestMeanReadings(t *testing.T) {
	readings := domain.Readings{
		"sala":   {Temp: floatPtr(22), Humidity: floatPtr(40)},
		"quarto": {Temp: floatPtr(24)},
		"mudo":   {},
	}

	mean, ok := readings.MeanTemp()
	require.True(t, ok)
	assert.InDelta(t, 23, mean, 0.001)

	hum, ok := readings.MeanHumidity()
	require.True(t, ok)
	assert.InDelta(t, 40, hum, 0.001)

	_, ok = domain.Readings{}.MeanTemp()
	assert.False(t, ok)
}
