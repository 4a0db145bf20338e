package router

import (
	"context"
	"encoding/json"

	"delta-assistant/internal/domain"
)

// Backend is the language-model collaborator. It either answers with
// free text or asks for tool invocations; it never does both paths'
// work itself.
type Backend interface {
	Chat(ctx context.Context, system, user string, tools []Tool, opts Options) (ChatResult, error)
	ChatStream(ctx context.Context, system, user string, opts Options, onChunk func(string)) (string, error)
}

// Options tunes one generation.
type Options struct {
	NumPredict  int
	Temperature float64
	TopK        int
}

// Tool describes one callable function schema offered to the backend.
type Tool struct {
	Name        string
	Description string
	Parameters  ToolParams
}

// ToolParams is a JSON-schema object declaration.
type ToolParams struct {
	Type       string              `json:"type"`
	Properties map[string]ToolProp `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// ToolProp declares one parameter.
type ToolProp struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Minimum     *int     `json:"minimum,omitempty"`
	Maximum     *int     `json:"maximum,omitempty"`
}

// ToolCall is one invocation the backend asked for.
type ToolCall struct {
	Name      string
	Arguments json.RawMessage
}

// ChatResult is the backend's answer.
type ChatResult struct {
	Content   string
	ToolCalls []ToolCall
}

// SensorSource exposes the latest environmental readings. Sensors that
// are absent or failing are simply missing from the map.
type SensorSource interface {
	ReadAll(ctx context.Context) domain.Readings
}

// NoSensors is the SensorSource used when no sensor hub is configured.
type NoSensors struct{}

func (NoSensors) ReadAll(_ context.Context) domain.Readings { return nil }

// DeviceActions is the device controller surface the router dispatches
// decoded intents to.
type DeviceActions interface {
	SetClimateState(ctx context.Context, in domain.ClimateIntent) (domain.Changes, error)
	SetFanState(ctx context.Context, in domain.FanIntent) (domain.Changes, error)
	SetCeilingLampState(ctx context.Context, in domain.CeilingLampIntent) (domain.Changes, error)
	SetRgbLampState(ctx context.Context, in domain.RgbLampIntent) (domain.Changes, error)
}
