// Package router classifies finalized transcripts and dispatches them:
// climate questions are answered from sensor data, device commands go
// through the backend's tool calling into the device controller, and
// everything else is plain conversation.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"delta-assistant/internal/endpoint"
)

const systemPrompt = `Você é Delta, uma IA residencial brasileira.
Respostas: breves, objetivas, sem Markdown. Máximo 2 frases.

Regras:
1. AC e Ventilador NUNCA ligam juntos. Se T>23°C prefira AC.
2. AC: 16-30°C (ideal 23°C).
3. Ventilador: escolha velocidade 1-5 baseado na necessidade.
4. Lâmpadas: use "dia" para trabalho, "noite" para relaxar.

IMPORTANTE - Ações:
- LIGAR/LIGA/ACENDE/ATIVA = power: true
- DESLIGAR/DESLIGA/APAGA/DESATIVA = power: false
Nunca confunda essas ações!`

// Classification vocabularies. Order matters: climate questions win
// over device keywords, so "qual a temperatura do ar" is a query.
var climateQueryPhrases = []string{
	"clima atual", "como esta o clima", "como esta o tempo",
	"qual o clima", "como esta o ambiente", "qual a temperatura",
	"temperatura agora", "quantos graus",
}

var deviceWords = []string{
	"ar", "ar-condicionado", "ar condicionado", "ac",
	"ventilador", "ventoinha",
	"luz", "lampada", "iluminacao",
	"teto", "lamp",
}

var actionWords = []string{
	"liga", "ligar", "lig", "ligue",
	"desliga", "desligar", "deslig", "desligue",
	"acende", "acender", "acend",
	"apaga", "apagar",
	"ajusta", "ajustar", "ajuste",
	"regula", "regular", "regule",
	"configura", "configurar", "configure",
	"controla", "controlar", "controle",
	"deixa", "deixe",
	"coloca", "colocar", "coloque",
	"esfria", "esfriar", "esfrie",
	"refresca", "refrescar", "refres",
	"aumenta", "aumentar", "aumente",
	"diminui", "diminuir", "diminua",
	"ativa", "ativar", "ative",
	"desativa", "desativar", "desative",
}

// Router turns a transcript into a spoken reply.
type Router struct {
	backend Backend
	sensors SensorSource
	devices DeviceActions
	logger  *slog.Logger
	now     func() time.Time
}

func New(backend Backend, sensors SensorSource, devices DeviceActions, logger *slog.Logger) *Router {
	return &Router{
		backend: backend,
		sensors: sensors,
		devices: devices,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock replaces the time source, for tests.
func (r *Router) SetClock(now func() time.Time) { r.now = now }

// Route classifies and handles one non-empty transcript, returning the
// reply text. Classification is fixed and short-circuiting.
func (r *Router) Route(ctx context.Context, transcript string, trace *endpoint.Trace) (string, error) {
	text := strings.ToLower(transcript)

	if containsAny(text, climateQueryPhrases) {
		return r.answerClimate(ctx, trace)
	}

	if containsAny(text, deviceWords) || containsAny(text, actionWords) {
		return r.controlDevices(ctx, transcript, trace)
	}

	return r.converse(ctx, transcript, trace)
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// converse is the general-conversation path: free text, no tools, a
// short generation budget tuned for terse spoken replies.
func (r *Router) converse(ctx context.Context, transcript string, trace *endpoint.Trace) (string, error) {
	opts := Options{NumPredict: 60, Temperature: 0.1, TopK: 20}

	trace.MarkModelStart(r.now())
	reply, err := r.backend.ChatStream(ctx, systemPrompt, transcript, opts, func(chunk string) {
		r.logger.Debug("stream chunk", "text", chunk)
	})
	trace.MarkModelEnd(r.now())
	if err != nil {
		return "", fmt.Errorf("conversation backend: %w", err)
	}
	return strings.ReplaceAll(strings.TrimSpace(reply), "\n", " "), nil
}
