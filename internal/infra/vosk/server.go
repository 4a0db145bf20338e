// Package vosk provides the speech engine: either a client for a
// vosk-server over websocket (default) or in-process recognition via
// the cgo bindings (build with -tags vosk).
package vosk

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// ServerRecognizer streams PCM frames to a vosk-server instance and
// reads back partial/final results. The protocol is one JSON message
// per audio chunk: {"partial": ...} while an utterance is open,
// {"text": ...} when the engine finalizes one, and {"eof": 1} from the
// client flushes whatever is buffered.
type ServerRecognizer struct {
	url        string
	sampleRate int

	mu      sync.Mutex
	conn    *websocket.Conn
	result  string
	partial string
}

func NewServerRecognizer(url string, sampleRate int) *ServerRecognizer {
	return &ServerRecognizer{url: url, sampleRate: sampleRate}
}

type serverMessage struct {
	Text    *string `json:"text"`
	Partial *string `json:"partial"`
}

func (r *ServerRecognizer) connect() error {
	if r.conn != nil {
		return nil
	}
	conn, _, err := websocket.DefaultDialer.Dial(r.url, nil)
	if err != nil {
		return fmt.Errorf("dialing speech server: %w", err)
	}
	cfg := map[string]any{"config": map[string]any{"sample_rate": r.sampleRate}}
	if err := conn.WriteJSON(cfg); err != nil {
		conn.Close()
		return fmt.Errorf("sending speech config: %w", err)
	}
	r.conn = conn
	return nil
}

// Accept feeds one PCM frame and reports whether the server finalized
// an utterance on it.
func (r *ServerRecognizer) Accept(frame []byte) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.connect(); err != nil {
		return false, err
	}
	if err := r.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		r.drop()
		return false, fmt.Errorf("sending audio frame: %w", err)
	}

	msg, err := r.read()
	if err != nil {
		return false, err
	}
	if msg.Text != nil {
		r.result = *msg.Text
		return true, nil
	}
	if msg.Partial != nil {
		r.partial = *msg.Partial
	}
	return false, nil
}

// Result returns the last finalized utterance.
func (r *ServerRecognizer) Result() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, nil
}

// Partial returns the current in-progress hypothesis.
func (r *ServerRecognizer) Partial() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.partial, nil
}

// FinalResult flushes the server's buffer and returns whatever text it
// produced for the open utterance.
func (r *ServerRecognizer) FinalResult() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil {
		return "", nil
	}
	if err := r.conn.WriteMessage(websocket.TextMessage, []byte(`{"eof" : 1}`)); err != nil {
		r.drop()
		return "", fmt.Errorf("flushing speech server: %w", err)
	}

	// The server answers eof with the final result and closes.
	for {
		msg, err := r.read()
		if err != nil {
			return "", err
		}
		if msg.Text != nil {
			r.result = *msg.Text
			r.drop()
			return *msg.Text, nil
		}
	}
}

// Reset discards buffered audio and hypotheses. The connection is
// reopened lazily on the next frame.
func (r *ServerRecognizer) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		_ = r.conn.WriteMessage(websocket.TextMessage, []byte(`{"eof" : 1}`))
		r.drop()
	}
	r.result = ""
	r.partial = ""
	return nil
}

func (r *ServerRecognizer) Close() error {
	return r.Reset()
}

func (r *ServerRecognizer) read() (serverMessage, error) {
	_, data, err := r.conn.ReadMessage()
	if err != nil {
		r.drop()
		return serverMessage{}, fmt.Errorf("reading speech server: %w", err)
	}
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return serverMessage{}, fmt.Errorf("parsing speech server message: %w", err)
	}
	return msg, nil
}

func (r *ServerRecognizer) drop() {
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}
