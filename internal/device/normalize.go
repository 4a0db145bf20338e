package device

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"delta-assistant/internal/domain"
)

// Normalize maps a raw user-supplied value into the protocol value for
// one attribute. The returned note, when non-empty, is an advisory
// about an alias that resolved but deserves a remark (the write still
// happens). A *domain.RejectedError means the value cannot be mapped;
// out-of-range integers are clamped, never rejected.
func Normalize(field string, spec domain.AttributeSpec, raw string) (any, string, error) {
	token := strings.ToLower(strings.TrimSpace(raw))

	switch spec.Domain.Kind {
	case domain.DomainBool:
		b, err := ParseOnOff(token)
		if err != nil {
			return nil, "", &domain.RejectedError{Field: field, Raw: raw, Reason: "expected on/off"}
		}
		return b, "", nil

	case domain.DomainInt:
		return normalizeInt(field, spec.Domain, raw, token)

	case domain.DomainEnum:
		canon, ok := spec.Domain.Aliases[token]
		if !ok {
			return nil, "", &domain.RejectedError{Field: field, Raw: raw, Reason: "unknown value"}
		}
		return canon, spec.Domain.Notes[token], nil

	case domain.DomainPreset:
		return nil, "", fmt.Errorf("field %s is a preset, use ResolvePreset", field)

	default:
		return nil, "", fmt.Errorf("field %s: unsupported domain kind", field)
	}
}

func normalizeInt(field string, d domain.ValueDomain, raw, token string) (any, string, error) {
	var note string

	if alias, ok := d.Aliases[token]; ok {
		note = d.Notes[token]
		token = alias
	}

	v, err := strconv.Atoi(token)
	if err != nil {
		// The backend occasionally hands back "23.5"; round it.
		f, ferr := strconv.ParseFloat(token, 64)
		if ferr != nil {
			return nil, "", &domain.RejectedError{Field: field, Raw: raw, Reason: "not a number"}
		}
		v = int(math.Round(f))
	}

	if d.PercentHi > 0 && v >= 1 && v <= d.PercentHi {
		v *= 10
	}
	if v < d.Lo {
		v = d.Lo
	}
	if v > d.Hi {
		v = d.Hi
	}
	if d.Scale > 0 {
		v *= d.Scale
	}
	return v, note, nil
}

// ParseOnOff resolves the fixed bilingual boolean token set.
func ParseOnOff(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "ligar", "true", "1":
		return true, nil
	case "off", "desligar", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on/off, got %q", raw)
}

// Preset is a lamp scene that expands into a fixed triple of writes:
// work mode, brightness and color temperature.
type Preset struct {
	Name       string
	Brightness int
	ColorTemp  int
}

var presets = map[string]Preset{
	"dia":     {Name: "dia", Brightness: 1000, ColorTemp: 1000},
	"day":     {Name: "dia", Brightness: 1000, ColorTemp: 1000},
	"branco":  {Name: "dia", Brightness: 1000, ColorTemp: 1000},
	"white":   {Name: "dia", Brightness: 1000, ColorTemp: 1000},
	"noite":   {Name: "noite", Brightness: 450, ColorTemp: 100},
	"night":   {Name: "noite", Brightness: 450, ColorTemp: 100},
	"amarelo": {Name: "noite", Brightness: 450, ColorTemp: 100},
	"laranja": {Name: "noite", Brightness: 450, ColorTemp: 100},
	"warm":    {Name: "noite", Brightness: 450, ColorTemp: 100},
}

// ResolvePreset maps a lamp mode token to its preset.
func ResolvePreset(raw string) (Preset, error) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return Preset{}, &domain.RejectedError{Field: FieldMode, Raw: raw, Reason: "valid modes: dia, noite"}
	}
	return p, nil
}
