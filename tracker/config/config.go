// Package config defines the YAML configuration of the pitch tracker and the
// per-session filter options.
package config

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidFilterOptions is wrapped by every FilterOptions validation failure.
var ErrInvalidFilterOptions = errors.New("invalid filter options")

// Config is the top-level configuration.
type Config struct {
	Session SessionConfig `yaml:"session"`
	Filter  FilterOptions `yaml:"filter"`
	Decoder DecoderConfig `yaml:"decoder"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// SessionConfig sizes the analysis graph and sets the tick cadence.
type SessionConfig struct {
	// WindowSize is the number of samples handed to the estimator per tick.
	WindowSize int `yaml:"window_size"`

	// TickInterval is the cadence of the default ticker driver.
	TickInterval time.Duration `yaml:"tick_interval"`

	// FrequencyWindow is the capacity of the recent-frequency ring used for
	// outlier rejection and median smoothing.
	FrequencyWindow int `yaml:"frequency_window"`

	// PointHistory is the capacity of the stabilized point ring used for
	// secondary smoothing. At most MaxPointHistory.
	PointHistory int `yaml:"point_history"`

	// UseFFT computes lag correlations through an FFT.
	UseFFT bool `yaml:"use_fft"`
}

// FilterOptions gates range/confidence filtering and stabilization.
// The zero value is not the default; use DefaultFilterOptions.
type FilterOptions struct {
	MinHz           float64 `yaml:"min_hz" json:"minHz"`
	MaxHz           float64 `yaml:"max_hz" json:"maxHz"`
	MinConfidence   float64 `yaml:"min_confidence" json:"minConfidence"`
	SmoothingWindow int     `yaml:"smoothing_window" json:"smoothingWindow"`
	Enabled         bool    `yaml:"enabled" json:"enabled"`
}

// DecoderConfig configures ffmpeg decoding of recordings.
type DecoderConfig struct {
	SampleRate    int           `yaml:"sample_rate"`
	FFmpegPath    string        `yaml:"ffmpeg_path"`
	FFprobePath   string        `yaml:"ffprobe_path"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxDuration   time.Duration `yaml:"max_duration"`
	Normalization string        `yaml:"normalization"` // "", "loudnorm", "dynaudnorm"
	ChunkSize     int           `yaml:"chunk_size"`    // samples per real-time replay chunk
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

const (
	// DefaultWindowSize is one analysis block.
	DefaultWindowSize = 8192
	// DefaultTickInterval is one frame at 60 Hz.
	DefaultTickInterval = time.Second / 60
	// DefaultFrequencyWindow is the recent-frequency ring capacity.
	DefaultFrequencyWindow = 7
	// MaxPointHistory bounds the stabilized point ring.
	MaxPointHistory = 20
)

// DefaultSessionConfig returns the session defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		WindowSize:      DefaultWindowSize,
		TickInterval:    DefaultTickInterval,
		FrequencyWindow: DefaultFrequencyWindow,
		PointHistory:    MaxPointHistory,
	}
}

// DefaultFilterOptions returns {0, +Inf, 0, 1, false}: filtering is off
// unless a caller opts in.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{
		MinHz:           0,
		MaxHz:           math.Inf(1),
		MinConfidence:   0,
		SmoothingWindow: 1,
		Enabled:         false,
	}
}

// DefaultDecoderConfig returns mono 44.1 kHz decoding through ffmpeg on PATH.
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		SampleRate:  44100,
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Timeout:     30 * time.Second,
		ChunkSize:   735,
	}
}

// Default returns a Config with every section at its default.
func Default() *Config {
	return &Config{
		Session: DefaultSessionConfig(),
		Filter:  DefaultFilterOptions(),
		Decoder: DefaultDecoderConfig(),
		Log:     LogConfig{Level: "info"},
		Metrics: MetricsConfig{Addr: ":9464"},
	}
}

// Validate reports every invalid session setting.
func (c SessionConfig) Validate() error {
	var errs []error
	if c.WindowSize < 64 {
		errs = append(errs, fmt.Errorf("session.window_size must be at least 64, got %d", c.WindowSize))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("session.tick_interval must be positive, got %s", c.TickInterval))
	}
	if c.FrequencyWindow < 1 {
		errs = append(errs, fmt.Errorf("session.frequency_window must be positive, got %d", c.FrequencyWindow))
	}
	if c.PointHistory < 1 || c.PointHistory > MaxPointHistory {
		errs = append(errs, fmt.Errorf("session.point_history must be in [1,%d], got %d", MaxPointHistory, c.PointHistory))
	}
	return errors.Join(errs...)
}

// Validate reports every invalid filter setting. Each failure wraps
// ErrInvalidFilterOptions.
func (o FilterOptions) Validate() error {
	var errs []error
	if math.IsNaN(o.MinHz) || o.MinHz < 0 {
		errs = append(errs, fmt.Errorf("%w: min_hz must be non-negative, got %v", ErrInvalidFilterOptions, o.MinHz))
	}
	if math.IsNaN(o.MaxHz) || o.MaxHz < o.MinHz {
		errs = append(errs, fmt.Errorf("%w: max_hz %v is below min_hz %v", ErrInvalidFilterOptions, o.MaxHz, o.MinHz))
	}
	if math.IsNaN(o.MinConfidence) || o.MinConfidence < 0 || o.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("%w: min_confidence must be in [0,1], got %v", ErrInvalidFilterOptions, o.MinConfidence))
	}
	if o.SmoothingWindow < 1 || o.SmoothingWindow > MaxPointHistory {
		errs = append(errs, fmt.Errorf("%w: smoothing_window must be in [1,%d], got %d", ErrInvalidFilterOptions, MaxPointHistory, o.SmoothingWindow))
	}
	return errors.Join(errs...)
}
