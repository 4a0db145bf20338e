package mqtt

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Rainbow effect tuning for the waiting state.
const (
	rainbowInterval = 100 * time.Millisecond
	rainbowHueStep  = 0.02
)

// Indicator drives the RGB status LED over the broker: a named state on
// <prefix>/indicator/state and a hex color on <prefix>/indicator/color.
// While waiting for the keyword a background worker cycles the hue.
// All signals are fire and forget; publish failures are only logged.
type Indicator struct {
	client paho.Client
	prefix string
	logger *slog.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewIndicator(client paho.Client, prefix string, logger *slog.Logger) *Indicator {
	return &Indicator{
		client: client,
		prefix: strings.TrimSuffix(prefix, "/"),
		logger: logger,
	}
}

func (i *Indicator) Waiting() {
	i.setState("waiting", "")
	i.startRainbow()
}

func (i *Indicator) Detected() {
	i.setState("detected", "#00ff00")
}

func (i *Indicator) Processing() {
	i.setState("processing", "#0000ff")
}

func (i *Indicator) Responding() {
	i.setState("responding", "#ffffff")
}

// Off stops the effect worker and leaves the LED dark. Called at
// shutdown; the worker is joined before the last publish.
func (i *Indicator) Off() {
	i.setState("off", "#000000")
}

func (i *Indicator) setState(state, color string) {
	i.stopRainbow()
	i.publish("state", state)
	if color != "" {
		i.publish("color", color)
	}
}

func (i *Indicator) publish(sub, payload string) {
	token := i.client.Publish(i.prefix+"/indicator/"+sub, 0, true, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			i.logger.Debug("indicator publish failed", "topic", sub, "error", err)
		}
	}()
}

func (i *Indicator) startRainbow() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.stop != nil {
		return
	}
	i.stop = make(chan struct{})
	i.done = make(chan struct{})
	go i.rainbow(i.stop, i.done)
}

func (i *Indicator) stopRainbow() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.stop == nil {
		return
	}
	close(i.stop)
	<-i.done
	i.stop = nil
	i.done = nil
}

func (i *Indicator) rainbow(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(rainbowInterval)
	defer ticker.Stop()

	hue := 0.0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r, g, b := hsvToRGB(hue, 1, 1)
			i.publish("color", fmt.Sprintf("#%02x%02x%02x", r, g, b))
			hue += rainbowHueStep
			if hue > 1 {
				hue = 0
			}
		}
	}
}

func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	i := math.Floor(h * 6)
	f := h*6 - i
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch int(i) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	case 5:
		r, g, b = v, p, q
	}
	return uint8(r * 255), uint8(g * 255), uint8(b * 255)
}
