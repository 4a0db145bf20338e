package router

import (
	"context"
	"fmt"
	"strings"

	"delta-assistant/internal/domain"
	"delta-assistant/internal/endpoint"
)

func intPtr(v int) *int { return &v }

var deviceTools = []Tool{
	{
		Name:        "set_ac_state",
		Description: "Controla o Ar-Condicionado Split (parede).",
		Parameters: ToolParams{
			Type: "object",
			Properties: map[string]ToolProp{
				"power":         {Type: "boolean", Description: "Ligar/Desligar AC"},
				"target_temp_c": {Type: "integer", Description: "Temp alvo (16-30)"},
				"mode":          {Type: "string", Enum: []string{"cold", "wet", "wind", "auto"}},
				"wind":          {Type: "string", Enum: []string{"auto", "mute", "low", "mid", "high"}},
				"swing":         {Type: "boolean", Description: "Oscilar aletas"},
				"eco":           {Type: "boolean", Description: "Modo economia"},
				"sleep":         {Type: "boolean", Description: "Modo noturno"},
			},
			Required: []string{"power"},
		},
	},
	{
		Name:        "set_fan_state",
		Description: "Controla Ventilador de Teto. Use APENAS se AC desligado. Escolha speed 1-5 baseado no contexto.",
		Parameters: ToolParams{
			Type: "object",
			Properties: map[string]ToolProp{
				"power": {Type: "boolean", Description: "Ligar/Desligar"},
				"speed": {Type: "integer", Description: "Velocidade 1-5", Minimum: intPtr(1), Maximum: intPtr(5)},
			},
			Required: []string{"power"},
		},
	},
	{
		Name:        "set_ceiling_lamp_state",
		Description: "Liga/desliga lâmpada simples do teto.",
		Parameters: ToolParams{
			Type: "object",
			Properties: map[string]ToolProp{
				"power": {Type: "boolean"},
			},
			Required: []string{"power"},
		},
	},
	{
		Name:        "set_lamp_state",
		Description: "Controla Lâmpada RGB. Modos: 'dia' (trabalho/leitura) ou 'noite' (relaxar).",
		Parameters: ToolParams{
			Type: "object",
			Properties: map[string]ToolProp{
				"power":       {Type: "boolean"},
				"mode":        {Type: "string", Enum: []string{"dia", "noite", "day", "night", "white", "warm"}},
				"brightness":  {Type: "integer", Description: "Brilho 1-100%", Minimum: intPtr(1), Maximum: intPtr(100)},
				"temperature": {Type: "string", Enum: []string{"quente", "frio", "warm", "cold"}},
			},
		},
	},
}

// controlDevices is the device-control path: the backend chooses tool
// calls, each call is decoded into a typed intent and dispatched to the
// controller, and the per-tool summaries become the reply.
func (r *Router) controlDevices(ctx context.Context, transcript string, trace *endpoint.Trace) (string, error) {
	readings := r.sensors.ReadAll(ctx)
	meanTemp, haveTemp := readings.MeanTemp()

	contextLine := "Temperatura: sensor indisponivel"
	if haveTemp {
		feel := "Quente"
		if meanTemp < 20 {
			feel = "Frio"
		} else if meanTemp < 25 {
			feel = "Agradavel"
		}
		contextLine = fmt.Sprintf("Temperatura atual: %.1fC (%s)", meanTemp, feel)
	}

	prompt := fmt.Sprintf(`[CONTEXTO]
%s

[COMANDO DO USUARIO]
%s

[INSTRUCAO]
Voce DEVE usar uma das tools disponiveis para executar este comando.
Analise o comando e escolha a tool correta:
- "ar" ou "ar-condicionado" -> set_ac_state
- "ventilador" -> set_fan_state
- "luz" ou "lampada" -> set_lamp_state ou set_ceiling_lamp_state

REGRAS IMPORTANTES:
- LIGAR/ACENDER -> power: true
- DESLIGAR/APAGAR -> power: false
- AC e Ventilador NUNCA juntos`, contextLine, transcript)

	trace.MarkModelStart(r.now())
	resp, err := r.backend.Chat(ctx, systemPrompt, prompt, deviceTools, Options{})
	trace.MarkModelEnd(r.now())
	if err != nil {
		return "", fmt.Errorf("device backend: %w", err)
	}

	if len(resp.ToolCalls) == 0 {
		if content := strings.TrimSpace(resp.Content); content != "" {
			return content, nil
		}
		return "Comando processado.", nil
	}

	trace.MarkToolsStart(r.now())
	summaries := r.dispatchCalls(ctx, resp.ToolCalls, meanTemp, haveTemp)
	trace.MarkToolsEnd(r.now())

	if len(summaries) == 0 {
		return "Comando processado.", nil
	}
	return strings.Join(summaries, ". ") + ".", nil
}

// dispatchCalls decodes and executes each tool call. Within a single
// backend response the climate unit and the fan must not both be
// powered on; the later power-on is dropped.
func (r *Router) dispatchCalls(ctx context.Context, calls []ToolCall, meanTemp float64, haveTemp bool) []string {
	var summaries []string
	var acPoweredOn, fanPoweredOn bool

	ambient := ""
	if haveTemp {
		ambient = fmt.Sprintf(" (ambiente: %.1fC)", meanTemp)
	}

	for _, call := range calls {
		intent, err := decodeToolCall(call)
		if err != nil {
			r.logger.Warn("undecodable tool call", "tool", call.Name, "error", err)
			continue
		}

		switch in := intent.(type) {
		case domain.ClimateIntent:
			if in.Power != nil && *in.Power && fanPoweredOn {
				r.logger.Warn("dropping climate power-on, fan already on in same command")
				summaries = append(summaries, "AC ignorado (AC e ventilador nunca juntos)")
				continue
			}
			changes, err := r.devices.SetClimateState(ctx, in)
			if err != nil {
				r.logger.Error("climate intent failed", "error", err)
				summaries = append(summaries, "Falha ao controlar o AC")
				continue
			}
			if in.Power != nil && *in.Power {
				acPoweredOn = true
			}
			summaries = append(summaries, climateSummary(in, ambient))
			r.logger.Info("climate state applied", "changes", changes)

		case domain.FanIntent:
			if in.Power != nil && *in.Power && acPoweredOn {
				r.logger.Warn("dropping fan power-on, climate already on in same command")
				summaries = append(summaries, "Ventilador ignorado (AC e ventilador nunca juntos)")
				continue
			}
			changes, err := r.devices.SetFanState(ctx, in)
			if err != nil {
				r.logger.Error("fan intent failed", "error", err)
				summaries = append(summaries, "Falha ao controlar o ventilador")
				continue
			}
			if in.Power != nil && *in.Power {
				fanPoweredOn = true
			}
			summaries = append(summaries, fanSummary(in, ambient))
			r.logger.Info("fan state applied", "changes", changes)

		case domain.CeilingLampIntent:
			changes, err := r.devices.SetCeilingLampState(ctx, in)
			if err != nil {
				r.logger.Error("ceiling lamp intent failed", "error", err)
				summaries = append(summaries, "Falha ao controlar a lampada do teto")
				continue
			}
			state := "desligada"
			if in.Power {
				state = "ligada"
			}
			summaries = append(summaries, "Lampada teto "+state)
			r.logger.Info("ceiling lamp state applied", "changes", changes)

		case domain.RgbLampIntent:
			changes, err := r.devices.SetRgbLampState(ctx, in)
			if err != nil {
				r.logger.Error("rgb lamp intent failed", "error", err)
				summaries = append(summaries, "Falha ao controlar a lampada RGB")
				continue
			}
			summaries = append(summaries, rgbSummary(in))
			r.logger.Info("rgb lamp state applied", "changes", changes)
		}
	}

	return summaries
}

func climateSummary(in domain.ClimateIntent, ambient string) string {
	state := "desligado"
	if in.Power != nil && *in.Power {
		state = "ligado"
	}
	temp := ""
	if in.TargetTempC != nil {
		temp = fmt.Sprintf(" em %dC", *in.TargetTempC)
	}
	return fmt.Sprintf("AC %s%s%s", state, temp, ambient)
}

func fanSummary(in domain.FanIntent, ambient string) string {
	state := "desligado"
	if in.Power != nil && *in.Power {
		state = "ligado"
	}
	speed := ""
	if in.Speed != nil {
		speed = " velocidade " + *in.Speed
	}
	return fmt.Sprintf("Ventilador %s%s%s", state, speed, ambient)
}

func rgbSummary(in domain.RgbLampIntent) string {
	details := []string{}
	if in.Power != nil {
		if *in.Power {
			details = append(details, "ligada")
		} else {
			details = append(details, "desligada")
		}
	}
	if in.Mode != nil {
		details = append(details, "modo "+*in.Mode)
	}
	if in.Brightness != nil {
		details = append(details, fmt.Sprintf("%d%%", *in.Brightness))
	}
	if len(details) == 0 {
		return "Lampada RGB ajustada"
	}
	return "Lampada RGB " + strings.Join(details, " ")
}
