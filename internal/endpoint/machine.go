// Package endpoint turns a continuous PCM stream into discrete command
// utterances: it waits for the keyword in recognized speech, then
// captures until silence or a hard duration ceiling.
package endpoint

import (
	"fmt"
	"strings"
	"time"
)

// Timing policy. SilenceTimeout ends a capture after sustained quiet;
// MaxCapture is a hard ceiling that fires even through ongoing speech.
const (
	SilenceTimeout = 2 * time.Second
	MaxCapture     = 15 * time.Second

	// DefaultNoiseThreshold is the RMS level above which a frame counts
	// as voice activity.
	DefaultNoiseThreshold = 300
)

// Recognizer is the speech engine contract the machine drives. Accept
// feeds one PCM frame and reports whether the engine finalized an
// utterance; Result returns that finalized text. FinalResult flushes
// whatever is buffered mid-utterance.
type Recognizer interface {
	Accept(frame []byte) (bool, error)
	Result() (string, error)
	FinalResult() (string, error)
	Reset() error
}

// State of the machine.
type State int

const (
	WaitingKeyword State = iota
	Capturing
)

// EventKind classifies what ProcessFrame produced.
type EventKind int

const (
	// EventNone: nothing happened this frame.
	EventNone EventKind = iota
	// EventKeyword: the keyword was heard; capture started.
	EventKeyword
	// EventUtterance: a capture finalized. Text may be empty, which is
	// "no command detected", not an error.
	EventUtterance
)

// Event is the outcome of one processed frame.
type Event struct {
	Kind  EventKind
	Text  string
	Trace *Trace
}

// Machine is the endpointing state machine. It owns exactly one capture
// session at a time and is driven from a single goroutine; it performs
// no locking of its own.
type Machine struct {
	rec      Recognizer
	keyword  string
	noiseRMS float64

	now func() time.Time

	state        State
	sessionStart time.Time
	lastVoice    time.Time
	trace        *Trace
}

// NewMachine builds a machine armed for the given keyword. A
// noiseThreshold of 0 selects the default.
func NewMachine(rec Recognizer, keyword string, noiseThreshold float64) *Machine {
	if noiseThreshold <= 0 {
		noiseThreshold = DefaultNoiseThreshold
	}
	return &Machine{
		rec:      rec,
		keyword:  strings.ToLower(keyword),
		noiseRMS: noiseThreshold,
		now:      time.Now,
	}
}

// SetClock replaces the time source, for tests.
func (m *Machine) SetClock(now func() time.Time) { m.now = now }

// State returns the current state.
func (m *Machine) State() State { return m.state }

// ProcessFrame advances the machine with one PCM frame.
func (m *Machine) ProcessFrame(frame []byte) (Event, error) {
	switch m.state {
	case WaitingKeyword:
		return m.processWaiting(frame)
	case Capturing:
		return m.processCapturing(frame)
	}
	return Event{}, fmt.Errorf("invalid state %d", m.state)
}

func (m *Machine) processWaiting(frame []byte) (Event, error) {
	final, err := m.rec.Accept(frame)
	if err != nil {
		return Event{}, fmt.Errorf("feeding recognizer: %w", err)
	}
	if !final {
		return Event{}, nil
	}

	text, err := m.rec.Result()
	if err != nil {
		return Event{}, fmt.Errorf("reading recognizer result: %w", err)
	}
	if !strings.Contains(strings.ToLower(text), m.keyword) {
		return Event{}, nil
	}

	now := m.now()
	m.state = Capturing
	m.sessionStart = now
	m.lastVoice = now
	m.trace = &Trace{Keyword: now}
	if err := m.rec.Reset(); err != nil {
		return Event{}, fmt.Errorf("resetting recognizer: %w", err)
	}
	return Event{Kind: EventKeyword}, nil
}

func (m *Machine) processCapturing(frame []byte) (Event, error) {
	if _, err := m.rec.Accept(frame); err != nil {
		return Event{}, fmt.Errorf("feeding recognizer: %w", err)
	}

	if RMS(frame) > m.noiseRMS {
		m.lastVoice = m.now()
	}

	now := m.now()

	// The hard ceiling takes precedence over ongoing speech.
	if now.Sub(m.sessionStart) > MaxCapture {
		return m.finalize(now)
	}
	if now.Sub(m.lastVoice) > SilenceTimeout {
		return m.finalize(now)
	}
	return Event{}, nil
}

func (m *Machine) finalize(now time.Time) (Event, error) {
	text, err := m.rec.FinalResult()
	if err != nil {
		return Event{}, fmt.Errorf("finalizing recognizer: %w", err)
	}
	trace := m.trace
	trace.CommandEnd = now

	m.state = WaitingKeyword
	m.trace = nil
	if err := m.rec.Reset(); err != nil {
		return Event{}, fmt.Errorf("resetting recognizer: %w", err)
	}
	return Event{Kind: EventUtterance, Text: strings.TrimSpace(text), Trace: trace}, nil
}
