package router

import (
	"context"
	"fmt"
	"strings"

	"delta-assistant/internal/domain"
	"delta-assistant/internal/endpoint"
)

// Comfort thresholds for the indoor climate interpretation.
func describeTemp(mean float64) string {
	switch {
	case mean < 18:
		return "frio"
	case mean < 24:
		return "confortavel"
	case mean < 28:
		return "um pouco quente"
	default:
		return "quente"
	}
}

func describeHumidity(mean float64) string {
	switch {
	case mean < 30:
		return "ambiente seco"
	case mean <= 60:
		return "umidade confortavel"
	default:
		return "ambiente umido ou abafado"
	}
}

// answerClimate reads all sensors, summarizes them and asks the backend
// for a natural-language answer grounded on the computed summary. No
// tools are involved on this path.
func (r *Router) answerClimate(ctx context.Context, trace *endpoint.Trace) (string, error) {
	readings := r.sensors.ReadAll(ctx)

	meanTemp, ok := readings.MeanTemp()
	if !ok {
		return "Nao consegui ler os sensores agora.", nil
	}

	interpretation := describeTemp(meanTemp)
	if meanHum, ok := readings.MeanHumidity(); ok {
		interpretation = fmt.Sprintf("%s, com %s", interpretation, describeHumidity(meanHum))
	}

	prompt := fmt.Sprintf(`[DADOS REAIS]
%s
Media: %.1fC (%s).

[TAREFA]
Responda ao usuario como esta o clima interno agora. Seja natural e curto.`,
		formatReadings(readings), meanTemp, interpretation)

	trace.MarkModelStart(r.now())
	resp, err := r.backend.Chat(ctx, systemPrompt, prompt, nil, Options{})
	trace.MarkModelEnd(r.now())
	if err != nil {
		return "", fmt.Errorf("climate backend: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

func formatReadings(readings domain.Readings) string {
	var lines []string
	for name, rd := range readings {
		line := name + ": "
		if rd.Temp != nil {
			line += fmt.Sprintf("%.1f C", *rd.Temp)
		}
		if rd.Humidity != nil {
			line += fmt.Sprintf(", %.1f%% umidade", *rd.Humidity)
		}
		if rd.Pressure != nil {
			line += fmt.Sprintf(", %.1f hPa", *rd.Pressure)
		}
		if rd.Altitude != nil {
			line += fmt.Sprintf(", altitude %.1f m", *rd.Altitude)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
