package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Audio    AudioConfig    `yaml:"audio"`
	Speech   SpeechConfig   `yaml:"speech"`
	Ollama   OllamaConfig   `yaml:"ollama"`
	Tuya     TuyaConfig     `yaml:"tuya"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Pushover PushoverConfig `yaml:"pushover"`
	Log      LogConfig      `yaml:"log"`
}

type AudioConfig struct {
	Source     string `yaml:"source"`
	SampleRate int    `yaml:"sample_rate"`
	FrameSize  int    `yaml:"frame_size"`
	FilePath   string `yaml:"file_path"`
}

type SpeechConfig struct {
	Engine         string  `yaml:"engine"`
	ServerURL      string  `yaml:"server_url"`
	ModelPath      string  `yaml:"model_path"`
	Keyword        string  `yaml:"keyword"`
	NoiseThreshold float64 `yaml:"noise_threshold"`
}

type OllamaConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

type DeviceConfig struct {
	ID      string `yaml:"id"`
	Address string `yaml:"address"`
	Key     string `yaml:"key"`
	Version string `yaml:"version"`
}

type TuyaConfig struct {
	ClientID string                  `yaml:"client_id"`
	Secret   string                  `yaml:"secret"`
	Region   string                  `yaml:"region"`
	Devices  map[string]DeviceConfig `yaml:"devices"`
}

type MQTTConfig struct {
	Enabled bool   `yaml:"enabled"`
	Broker  string `yaml:"broker"`
	Prefix  string `yaml:"prefix"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Audio.Source == "" {
		c.Audio.Source = "microphone"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.FrameSize == 0 {
		c.Audio.FrameSize = 4000
	}
	if c.Speech.Engine == "" {
		c.Speech.Engine = "server"
	}
	if c.Speech.ServerURL == "" {
		c.Speech.ServerURL = "ws://localhost:2700"
	}
	if c.Speech.ModelPath == "" {
		c.Speech.ModelPath = "model"
	}
	if c.Speech.Keyword == "" {
		c.Speech.Keyword = "delta"
	}
	if c.Ollama.Host == "" {
		c.Ollama.Host = "http://localhost:11434"
	}
	if c.Ollama.Model == "" {
		c.Ollama.Model = "llama3.2:3b"
	}
	if c.Tuya.Region == "" {
		c.Tuya.Region = "us"
	}
	if c.MQTT.Broker == "" {
		c.MQTT.Broker = "tcp://localhost:1883"
	}
	if c.MQTT.Prefix == "" {
		c.MQTT.Prefix = "delta"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}
