//go:build vosk
// +build vosk

package vosk

import (
	"encoding/json"
	"fmt"

	vosk "github.com/alphacep/vosk-api/go"
)

// LocalRecognizer runs the recognizer in-process through the vosk cgo
// bindings. Needs libvosk and a model directory on disk.
type LocalRecognizer struct {
	model *vosk.VoskModel
	rec   *vosk.VoskRecognizer
}

func NewLocalRecognizer(modelPath string, sampleRate int) (*LocalRecognizer, error) {
	vosk.SetLogLevel(-1)

	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("loading speech model: %w", err)
	}
	rec, err := vosk.NewRecognizer(model, float64(sampleRate))
	if err != nil {
		return nil, fmt.Errorf("creating recognizer: %w", err)
	}
	return &LocalRecognizer{model: model, rec: rec}, nil
}

func (r *LocalRecognizer) Accept(frame []byte) (bool, error) {
	return r.rec.AcceptWaveform(frame) != 0, nil
}

func (r *LocalRecognizer) Result() (string, error) {
	return extractText(r.rec.Result())
}

func (r *LocalRecognizer) Partial() (string, error) {
	var out struct {
		Partial string `json:"partial"`
	}
	if err := json.Unmarshal([]byte(r.rec.PartialResult()), &out); err != nil {
		return "", fmt.Errorf("parsing partial result: %w", err)
	}
	return out.Partial, nil
}

func (r *LocalRecognizer) FinalResult() (string, error) {
	return extractText(r.rec.FinalResult())
}

func (r *LocalRecognizer) Reset() error {
	r.rec.Reset()
	return nil
}

func (r *LocalRecognizer) Close() error {
	r.rec.Free()
	r.model.Free()
	return nil
}

func extractText(raw string) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", fmt.Errorf("parsing recognizer result: %w", err)
	}
	return out.Text, nil
}
