package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/auralabs/aura/pkg/dsp"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
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

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
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

// Validate checks that cfg contains a coherent set of values, filling
// defaults for zero fields. It returns a joined error listing all
// validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	} else if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = DefaultSampleRate
	} else if cfg.Audio.SampleRate < 8000 || cfg.Audio.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is outside the supported range [8000, 192000]", cfg.Audio.SampleRate))
	}

	if cfg.Audio.BufferSize == 0 {
		cfg.Audio.BufferSize = DefaultBufferSize
	} else {
		if cfg.Audio.BufferSize < dsp.MinSamples {
			errs = append(errs, fmt.Errorf("audio.buffer_size %d is below the minimum of %d", cfg.Audio.BufferSize, dsp.MinSamples))
		}
		if cfg.Audio.BufferSize&(cfg.Audio.BufferSize-1) != 0 {
			errs = append(errs, fmt.Errorf("audio.buffer_size %d must be a power of two", cfg.Audio.BufferSize))
		}
	}

	if cfg.Orb.MeshDetail == 0 {
		cfg.Orb.MeshDetail = DefaultMeshDetail
	} else if cfg.Orb.MeshDetail < 1 || cfg.Orb.MeshDetail > 7 {
		errs = append(errs, fmt.Errorf("orb.mesh_detail %d is outside the supported range [1, 7]", cfg.Orb.MeshDetail))
	}

	if cfg.Orb.Seed == 0 {
		cfg.Orb.Seed = DefaultSeed
	}

	return errors.Join(errs...)
}
