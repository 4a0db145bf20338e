package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	paho "github.com/eclipse/paho.mqtt.golang"

	"delta-assistant/config"
	"delta-assistant/internal/application"
	"delta-assistant/internal/device"
	"delta-assistant/internal/endpoint"
	"delta-assistant/internal/infra/audio"
	"delta-assistant/internal/infra/mqtt"
	"delta-assistant/internal/infra/ollama"
	"delta-assistant/internal/infra/pushover"
	"delta-assistant/internal/infra/tuya"
	"delta-assistant/internal/infra/vosk"
	"delta-assistant/internal/router"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	recognizer, err := createRecognizer(cfg.Speech, cfg.Audio.SampleRate)
	if err != nil {
		logger.Error("creating recognizer", "error", err)
		os.Exit(1)
	}
	if closer, ok := recognizer.(io.Closer); ok {
		defer closer.Close()
	}

	machine := endpoint.NewMachine(recognizer, cfg.Speech.Keyword, cfg.Speech.NoiseThreshold)
	frames := createFrameSource(cfg.Audio, logger)

	tuyaClient := tuya.NewClient(cfg.Tuya.ClientID, cfg.Tuya.Secret, cfg.Tuya.Region)
	registry := device.NewRegistry(tuyaClient, identities(cfg.Tuya.Devices))
	controller := device.NewController(registry, logger)

	backend := ollama.NewClient(cfg.Ollama.Host, cfg.Ollama.Model)

	var sensors router.SensorSource = router.NoSensors{}
	var indicator application.Indicator = application.NoopIndicator{}
	if cfg.MQTT.Enabled {
		opts := paho.NewClientOptions().
			AddBroker(cfg.MQTT.Broker).
			SetClientID("delta-assistant").
			SetAutoReconnect(true)
		client := paho.NewClient(opts)

		hub := mqtt.NewSensorHub(client, cfg.MQTT.Prefix, logger)
		if err := hub.Connect(); err != nil {
			logger.Warn("sensor hub unavailable", "error", err)
		} else {
			sensors = hub
			indicator = mqtt.NewIndicator(client, cfg.MQTT.Prefix, logger)
		}
	}

	notifiers := application.MultiNotifier{&application.ConsoleNotifier{Out: os.Stdout}}
	if cfg.Pushover.Enabled {
		notifiers = append(notifiers, pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey))
	}

	rt := router.New(backend, sensors, controller, logger)
	assistant := application.NewAssistant(frames, machine, rt, indicator, notifiers, logger)

	logger.Info("starting delta assistant",
		"keyword", cfg.Speech.Keyword,
		"audio_source", cfg.Audio.Source,
		"model", cfg.Ollama.Model,
	)

	if err := assistant.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("assistant error", "error", err)
		os.Exit(1)
	}
}

func createRecognizer(cfg config.SpeechConfig, sampleRate int) (endpoint.Recognizer, error) {
	switch cfg.Engine {
	case "local":
		return vosk.NewLocalRecognizer(cfg.ModelPath, sampleRate)
	case "server":
		return vosk.NewServerRecognizer(cfg.ServerURL, sampleRate), nil
	default:
		return nil, fmt.Errorf("unknown speech engine %q", cfg.Engine)
	}
}

func createFrameSource(cfg config.AudioConfig, logger *slog.Logger) application.FrameSource {
	switch cfg.Source {
	case "file":
		return audio.NewFileSource(cfg.FilePath, cfg.FrameSize)
	case "microphone":
		return audio.NewMicrophoneSource(cfg.SampleRate, cfg.FrameSize, logger)
	default:
		logger.Warn("unknown audio source, using microphone", "source", cfg.Source)
		return audio.NewMicrophoneSource(cfg.SampleRate, cfg.FrameSize, logger)
	}
}

func identities(devices map[string]config.DeviceConfig) map[string]device.Identity {
	out := make(map[string]device.Identity, len(devices))
	for name, d := range devices {
		out[name] = device.Identity{
			ID:       d.ID,
			Address:  d.Address,
			LocalKey: d.Key,
			Version:  d.Version,
		}
	}
	return out
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
