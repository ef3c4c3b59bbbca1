package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-recite/logging"
)

var validNormalizations = []string{"", "loudnorm", "dynaudnorm"}

// Load reads the YAML configuration file at path and returns a validated Config.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over the defaults and validates the
// result. Keys absent from the document keep their default values; unknown
// keys are rejected. An empty document yields Default().
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if err := cfg.Session.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := cfg.Filter.Validate(); err != nil {
		errs = append(errs, err)
	}
	if cfg.Filter.SmoothingWindow > cfg.Session.PointHistory {
		errs = append(errs, fmt.Errorf("filter.smoothing_window %d exceeds session.point_history %d",
			cfg.Filter.SmoothingWindow, cfg.Session.PointHistory))
	}

	if cfg.Decoder.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("decoder.sample_rate must be positive, got %d", cfg.Decoder.SampleRate))
	}
	if cfg.Decoder.FFmpegPath == "" {
		errs = append(errs, errors.New("decoder.ffmpeg_path is required"))
	}
	if cfg.Decoder.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("decoder.chunk_size must be positive, got %d", cfg.Decoder.ChunkSize))
	}
	if !slices.Contains(validNormalizations, cfg.Decoder.Normalization) {
		errs = append(errs, fmt.Errorf("decoder.normalization %q is invalid; valid values: loudnorm, dynaudnorm", cfg.Decoder.Normalization))
	}

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		errs = append(errs, errors.New("metrics.addr is required when metrics are enabled"))
	}

	return errors.Join(errs...)
}
