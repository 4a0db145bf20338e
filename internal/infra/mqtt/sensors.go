// Package mqtt connects the assistant to its peripherals: environmental
// sensors publishing readings and the RGB status LED, both over a local
// broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"delta-assistant/internal/domain"
)

// readingTTL is how long a sensor's last report stays usable. A sensor
// that stops publishing silently drops out of ReadAll, which the rest
// of the system treats as a tolerated failure.
const readingTTL = 30 * time.Second

type timedReading struct {
	reading domain.Reading
	at      time.Time
}

// SensorHub caches the latest reading per sensor from
// <prefix>/sensors/<name>/state topics.
type SensorHub struct {
	client paho.Client
	prefix string
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	readings map[string]timedReading
}

func NewSensorHub(client paho.Client, prefix string, logger *slog.Logger) *SensorHub {
	return &SensorHub{
		client:   client,
		prefix:   strings.TrimSuffix(prefix, "/"),
		logger:   logger,
		now:      time.Now,
		readings: make(map[string]timedReading),
	}
}

// Connect establishes the broker session and subscribes to the sensor
// topics.
func (h *SensorHub) Connect() error {
	token := h.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return errors.New("unable to connect to broker in time")
	}
	if err := token.Error(); err != nil {
		return err
	}

	topic := h.prefix + "/sensors/+/state"
	sub := h.client.Subscribe(topic, 0, h.onMessage)
	if !sub.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribing to %s timed out", topic)
	}
	if err := sub.Error(); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	h.logger.Info("sensor hub subscribed", "topic", topic)
	return nil
}

func (h *SensorHub) onMessage(_ paho.Client, msg paho.Message) {
	parts := strings.Split(msg.Topic(), "/")
	if len(parts) < 2 {
		return
	}
	name := parts[len(parts)-2]

	var payload struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
		Pressure *float64 `json:"pressure"`
		Altitude *float64 `json:"altitude"`
	}
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		h.logger.Warn("bad sensor payload", "sensor", name, "error", err)
		return
	}

	h.mu.Lock()
	h.readings[name] = timedReading{
		reading: domain.Reading{
			Temp:     payload.Temp,
			Humidity: payload.Humidity,
			Pressure: payload.Pressure,
			Altitude: payload.Altitude,
		},
		at: h.now(),
	}
	h.mu.Unlock()
}

// ReadAll returns the fresh readings. Stale or never-seen sensors are
// simply absent.
func (h *SensorHub) ReadAll(_ context.Context) domain.Readings {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cutoff := h.now().Add(-readingTTL)
	out := make(domain.Readings, len(h.readings))
	for name, tr := range h.readings {
		if tr.at.After(cutoff) {
			out[name] = tr.reading
		}
	}
	return out
}
