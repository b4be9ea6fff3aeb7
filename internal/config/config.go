package config

import (
	applog "github.com/mrcool7387/BarScreenSaver/internal/log"
	"github.com/mrcool7387/BarScreenSaver/pkg/bitint"
)

// Boundaries and defaults for the visualizer configuration. Out-of-range
// values are clamped to the nearest bound rather than rejected, so a bad
// config file degrades the display instead of killing the process.
const (
	// Visual defaults
	DefaultBarCount      = 32
	MinBarCount          = 2
	MaxBarCount          = 256
	DefaultSmoothing     = 0.6
	MinSmoothing         = 0.0
	MaxSmoothing         = 0.99 // smoothing of exactly 1 would freeze the bars forever
	DefaultUpdateRate    = 30
	MinUpdateRate        = 1
	MaxUpdateRate        = 120
	DefaultGradient      = "default"
	DefaultGradientSpeed = 0.25

	// Audio defaults and hardware limits
	DefaultSampleRate      = 44100
	MinSampleRate          = 8000
	MaxSampleRate          = 192000
	DefaultFramesPerBuffer = 1024
	MinBufferFrames        = 8 // smallest FFT that still leaves bins for MinBarCount bars
	MaxBufferFrames        = 8192
	DefaultChannels        = 2
	MinDeviceID            = -1 // -1 selects the system default device
)

// Clamp forces the range-limited fields into their valid bounds, logging a
// warning for every adjustment. It never fails: invalid configuration is a
// recoverable condition here, not a fatal one.
func (c *Config) Clamp() {
	if c.Visual.BarCount < MinBarCount {
		applog.Warnf("Config: bar_count %d below minimum, clamping to %d", c.Visual.BarCount, MinBarCount)
		c.Visual.BarCount = MinBarCount
	}
	if c.Visual.BarCount > MaxBarCount {
		applog.Warnf("Config: bar_count %d above maximum, clamping to %d", c.Visual.BarCount, MaxBarCount)
		c.Visual.BarCount = MaxBarCount
	}
	if c.Visual.Smoothing < MinSmoothing {
		applog.Warnf("Config: smoothing %.3f below minimum, clamping to %.2f", c.Visual.Smoothing, MinSmoothing)
		c.Visual.Smoothing = MinSmoothing
	}
	if c.Visual.Smoothing > MaxSmoothing {
		applog.Warnf("Config: smoothing %.3f above maximum, clamping to %.2f", c.Visual.Smoothing, MaxSmoothing)
		c.Visual.Smoothing = MaxSmoothing
	}
	if c.Visual.UpdateRate < MinUpdateRate {
		applog.Warnf("Config: update_rate %d below minimum, clamping to %d", c.Visual.UpdateRate, MinUpdateRate)
		c.Visual.UpdateRate = MinUpdateRate
	}
	if c.Visual.UpdateRate > MaxUpdateRate {
		applog.Warnf("Config: update_rate %d above maximum, clamping to %d", c.Visual.UpdateRate, MaxUpdateRate)
		c.Visual.UpdateRate = MaxUpdateRate
	}
	if c.Visual.GradientSpeed < 0 {
		applog.Warnf("Config: gradient_speed %.3f negative, clamping to 0", c.Visual.GradientSpeed)
		c.Visual.GradientSpeed = 0
	}
	if c.Audio.SampleRate < MinSampleRate {
		applog.Warnf("Config: sample_rate %.0f below minimum, clamping to %d", c.Audio.SampleRate, MinSampleRate)
		c.Audio.SampleRate = MinSampleRate
	}
	if c.Audio.SampleRate > MaxSampleRate {
		applog.Warnf("Config: sample_rate %.0f above maximum, clamping to %d", c.Audio.SampleRate, MaxSampleRate)
		c.Audio.SampleRate = MaxSampleRate
	}
	if c.Audio.FramesPerBuffer < MinBufferFrames {
		applog.Warnf("Config: frames_per_buffer %d below minimum, clamping to %d", c.Audio.FramesPerBuffer, MinBufferFrames)
		c.Audio.FramesPerBuffer = MinBufferFrames
	}
	if c.Audio.FramesPerBuffer > MaxBufferFrames {
		applog.Warnf("Config: frames_per_buffer %d above maximum, clamping to %d", c.Audio.FramesPerBuffer, MaxBufferFrames)
		c.Audio.FramesPerBuffer = MaxBufferFrames
	}
	if c.Audio.InputChannels < 1 {
		applog.Warnf("Config: input_channels %d invalid, using 1", c.Audio.InputChannels)
		c.Audio.InputChannels = 1
	}
	if c.Audio.InputChannels > 2 {
		applog.Warnf("Config: input_channels %d above maximum, clamping to 2", c.Audio.InputChannels)
		c.Audio.InputChannels = 2
	}

	// The FFT derived from the buffer size caps how many bars can each
	// get at least one bin. Coupled bound, so it runs after both fields
	// are in range.
	if maxBars := bitint.NextPowerOfTwo(c.Audio.FramesPerBuffer)/2 - 1; c.Visual.BarCount > maxBars {
		applog.Warnf("Config: bar_count %d exceeds the %d bars supported by frames_per_buffer %d, clamping",
			c.Visual.BarCount, maxBars, c.Audio.FramesPerBuffer)
		c.Visual.BarCount = maxBars
	}
}
