package router

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"delta-assistant/internal/domain"
)

// decodeToolCall turns a backend tool call into its typed intent. Each
// tool has an explicit schema; dispatch is by exhaustive switch on the
// declared names, never dynamic lookup. Argument values are coerced to
// the declared types, since small models are loose with JSON typing.
func decodeToolCall(call ToolCall) (domain.Intent, error) {
	var args map[string]any
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			// Some backends double-encode arguments as a JSON string.
			var inner string
			if err2 := json.Unmarshal(call.Arguments, &inner); err2 != nil {
				return nil, fmt.Errorf("parsing arguments: %w", err)
			}
			if err2 := json.Unmarshal([]byte(inner), &args); err2 != nil {
				return nil, fmt.Errorf("parsing inner arguments: %w", err2)
			}
		}
	}

	switch call.Name {
	case "set_ac_state":
		return domain.ClimateIntent{
			Power:       coerceBool(args["power"]),
			TargetTempC: coerceInt(args["target_temp_c"]),
			Mode:        coerceString(args["mode"]),
			Wind:        coerceString(args["wind"]),
			Eco:         coerceBool(args["eco"]),
			Sleep:       coerceBool(args["sleep"]),
			Swing:       coerceBool(args["swing"]),
			Health:      coerceBool(args["health"]),
			Light:       coerceBool(args["light"]),
			Lock:        coerceBool(args["lock"]),
			Unit:        coerceString(args["unit"]),
		}, nil

	case "set_fan_state":
		var speed *string
		if v := coerceInt(args["speed"]); v != nil {
			s := strconv.Itoa(*v)
			speed = &s
		} else if s := coerceString(args["speed"]); s != nil {
			speed = s
		}
		return domain.FanIntent{
			Power: coerceBool(args["power"]),
			Speed: speed,
		}, nil

	case "set_ceiling_lamp_state":
		p := coerceBool(args["power"])
		if p == nil {
			return nil, fmt.Errorf("set_ceiling_lamp_state: power is required")
		}
		return domain.CeilingLampIntent{Power: *p}, nil

	case "set_lamp_state":
		var temp *string
		if s := coerceString(args["temperature"]); s != nil {
			temp = s
		} else if v := coerceInt(args["temperature"]); v != nil {
			s := strconv.Itoa(*v)
			temp = &s
		}
		return domain.RgbLampIntent{
			Power:       coerceBool(args["power"]),
			Mode:        coerceString(args["mode"]),
			Brightness:  coerceInt(args["brightness"]),
			Temperature: temp,
		}, nil
	}

	return nil, fmt.Errorf("unknown tool %q", call.Name)
}

func coerceBool(v any) *bool {
	switch t := v.(type) {
	case bool:
		return &t
	case float64:
		b := t != 0
		return &b
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "on", "1":
			b := true
			return &b
		case "false", "off", "0":
			b := false
			return &b
		}
	}
	return nil
}

func coerceInt(v any) *int {
	switch t := v.(type) {
	case float64:
		n := int(math.Round(t))
		return &n
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			n := int(math.Round(f))
			return &n
		}
	}
	return nil
}

func coerceString(v any) *string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return &t
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		return &s
	}
	return nil
}
