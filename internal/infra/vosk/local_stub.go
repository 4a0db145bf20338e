//go:build !vosk
// +build !vosk

package vosk

import "fmt"

// LocalRecognizer stub when the cgo bindings are not compiled in.
type LocalRecognizer struct{}

func NewLocalRecognizer(modelPath string, sampleRate int) (*LocalRecognizer, error) {
	return nil, fmt.Errorf("in-process recognizer not available: rebuild with -tags vosk")
}

func (r *LocalRecognizer) Accept(frame []byte) (bool, error) {
	return false, fmt.Errorf("in-process recognizer not available")
}

func (r *LocalRecognizer) Result() (string, error)      { return "", nil }
func (r *LocalRecognizer) Partial() (string, error)     { return "", nil }
func (r *LocalRecognizer) FinalResult() (string, error) { return "", nil }
func (r *LocalRecognizer) Reset() error                 { return nil }
func (r *LocalRecognizer) Close() error                 { return nil }
