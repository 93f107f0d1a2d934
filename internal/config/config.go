// ABOUTME: YAML configuration for the voice client
// ABOUTME: Loading, defaults, and validation
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete client configuration.
type Config struct {
	Gateway    GatewayConfig    `yaml:"gateway"`
	Audio      AudioConfig      `yaml:"audio"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// GatewayConfig describes how to reach the conversational gateway.
type GatewayConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	ClientName string `yaml:"client_name"`
	Discover   bool   `yaml:"discover"` // browse mDNS when URL is empty
}

// AudioConfig contains audio pipeline parameters.
type AudioConfig struct {
	FrameQueueDepth int      `yaml:"frame_queue_depth"`
	OutEncodings    []string `yaml:"out_encodings"`
}

// TranscriptConfig controls transcript export.
type TranscriptConfig struct {
	ExportPath string `yaml:"export_path"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			ClientName: "crisisline",
			Discover:   true,
		},
		Audio: AudioConfig{
			FrameQueueDepth: 8,
			OutEncodings:    []string{"pcm_s16le", "opus", "mp3"},
		},
		Metrics: MetricsConfig{
			Address: ":9120",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads and parses the configuration file, filling in defaults for
// anything unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Audio.FrameQueueDepth <= 0 {
		c.Audio.FrameQueueDepth = 8
	}
	if len(c.Audio.OutEncodings) == 0 {
		c.Audio.OutEncodings = []string{"pcm_s16le", "opus", "mp3"}
	}
	if c.Gateway.ClientName == "" {
		c.Gateway.ClientName = "crisisline"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9120"
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Gateway.URL == "" && !c.Gateway.Discover {
		return fmt.Errorf("gateway.url is required when gateway.discover is false")
	}
	for _, encoding := range c.Audio.OutEncodings {
		switch encoding {
		case "pcm_s16le", "opus", "mp3":
		default:
			return fmt.Errorf("unsupported audio.out_encodings entry %q", encoding)
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}
	return nil
}
