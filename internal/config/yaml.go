// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main application configuration, loaded from YAML.
type Config struct {
	LogLevel   string           `yaml:"log_level"`         // Logging level ("debug", "info", "warn", "error").
	Command    string           `yaml:"command,omitempty"` // One-off command instead of running the engine (e.g. "list").
	Headless   bool             `yaml:"headless"`          // Run without the terminal renderer.
	Visual     VisualConfig     `yaml:"visual"`            // Bar rendering and smoothing settings.
	Audio      AudioConfig      `yaml:"audio"`             // Capture settings.
	NowPlaying NowPlayingConfig `yaml:"nowplaying"`        // Track metadata polling.
	Transport  TransportConfig  `yaml:"transport"`         // Frame publishing settings.
	Recording  RecordingConfig  `yaml:"recording"`         // WAV capture dump settings.
}

// VisualConfig holds the bar display parameters consumed by the analyzer
// and the render drivers.
type VisualConfig struct {
	BarCount        int                 `yaml:"bar_count"`        // Number of spectrum bars.
	Smoothing       float64             `yaml:"smoothing"`        // Damping factor in [0,1). 0 = immediate response.
	UpdateRate      int                 `yaml:"update_rate"`      // Render driver frame rate (frames per second).
	MirrorBars      bool                `yaml:"mirror_bars"`      // Reflect the bars vertically below the midline.
	ShowClock       bool                `yaml:"show_clock"`       // Show a clock line in the renderer.
	Gradient        string              `yaml:"gradient"`         // Name of the active gradient.
	GradientDynamic bool                `yaml:"gradient_dynamic"` // Animate the gradient phase.
	GradientSpeed   float64             `yaml:"gradient_speed"`   // Phase advance per second when dynamic.
	Gradients       map[string][]string `yaml:"gradients"`        // Name -> [start-hex, end-hex] pairs.
}

// AudioConfig holds capture settings.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for system default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Chunk size in frames; also the FFT size.
	InputChannels   int     `yaml:"input_channels"`    // 1 = mono, 2 = stereo (mixed down before analysis).
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from the device.
	FFTWindow       string  `yaml:"fft_window"`        // Window function name ("hann", "hamming", ...).
}

// NowPlayingConfig holds the music-service polling settings.
type NowPlayingConfig struct {
	Enabled      bool     `yaml:"enabled"`       // Poll a now-playing endpoint.
	URL          string   `yaml:"url"`           // Endpoint returning track metadata JSON.
	PollInterval Duration `yaml:"poll_interval"` // Polling cadence (Go duration string).
	AdKeywords   []string `yaml:"ad_keywords"`   // Case-insensitive advertisement markers.
}

// TransportConfig holds frame publishing settings.
type TransportConfig struct {
	WebSocketEnabled bool     `yaml:"websocket_enabled"`  // Serve frames over WebSocket.
	WebSocketPort    string   `yaml:"websocket_port"`     // Port for the WebSocket server.
	UDPEnabled       bool     `yaml:"udp_enabled"`        // Send binary frames over UDP.
	UDPTargetAddress string   `yaml:"udp_target_address"` // Target "host:port" for UDP packets.
	UDPSendInterval  Duration `yaml:"udp_send_interval"`  // Interval between UDP packets.
}

// WebSocketAddr returns the listen address for the WebSocket server.
func (t TransportConfig) WebSocketAddr() string {
	return ":" + t.WebSocketPort
}

// RecordingConfig holds the optional WAV dump of the captured mono stream.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"` // Empty for a timestamped name.
}

// Duration wraps time.Duration so YAML values can be written as Go
// duration strings ("250ms", "5s").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the built-in configuration used when no file is found.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Visual: VisualConfig{
			BarCount:        DefaultBarCount,
			Smoothing:       DefaultSmoothing,
			UpdateRate:      DefaultUpdateRate,
			MirrorBars:      true,
			ShowClock:       true,
			Gradient:        DefaultGradient,
			GradientDynamic: false,
			GradientSpeed:   DefaultGradientSpeed,
			Gradients:       map[string][]string{},
		},
		Audio: AudioConfig{
			InputDevice:     MinDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			InputChannels:   DefaultChannels,
			LowLatency:      false,
			FFTWindow:       "hann",
		},
		NowPlaying: NowPlayingConfig{
			Enabled:      false,
			URL:          "http://127.0.0.1:8989/nowplaying",
			PollInterval: Duration(2 * time.Second),
			AdKeywords:   []string{"werbung", "advertisement", "ad break"},
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketPort:    "8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  Duration(33 * time.Millisecond), // ~30Hz
		},
		Recording: RecordingConfig{
			Enabled:    false,
			OutputFile: "",
		},
	}
}

// LoadConfig loads configuration from the YAML file at path. An empty path
// searches the default location ("config.yaml"); if nothing is found the
// built-in defaults are used. Environment overrides are applied after
// loading and the result is clamped into valid ranges.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{"config.yaml"}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			cfg.applyEnvOverrides()
			cfg.Clamp()
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.Clamp()
	return cfg, nil
}

// applyEnvOverrides applies BSS_* environment variables on top of the
// loaded configuration. Only the operationally useful knobs are exposed.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("BSS_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("BSS_BAR_COUNT"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Visual.BarCount = n
		}
	}
	if val, ok := os.LookupEnv("BSS_SMOOTHING"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Visual.Smoothing = f
		}
	}
	if val, ok := os.LookupEnv("BSS_NOWPLAYING_URL"); ok {
		c.NowPlaying.URL = val
		c.NowPlaying.Enabled = true
	}
	if val, ok := os.LookupEnv("BSS_WS_PORT"); ok {
		c.Transport.WebSocketPort = val
		c.Transport.WebSocketEnabled = true
	}
	if val, ok := os.LookupEnv("BSS_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		c.Transport.UDPEnabled = true
	}
}
