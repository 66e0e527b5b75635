package config_test

import (
	"strings"
	"testing"

	"github.com/auralabs/aura/internal/config"
)

func TestLoadFromReader_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("LogLevel = %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Audio.SampleRate != config.DefaultSampleRate {
		t.Errorf("SampleRate = %d, want %d", cfg.Audio.SampleRate, config.DefaultSampleRate)
	}
	if cfg.Audio.BufferSize != config.DefaultBufferSize {
		t.Errorf("BufferSize = %d, want %d", cfg.Audio.BufferSize, config.DefaultBufferSize)
	}
	if cfg.Orb.MeshDetail != config.DefaultMeshDetail {
		t.Errorf("MeshDetail = %d, want %d", cfg.Orb.MeshDetail, config.DefaultMeshDetail)
	}
	if cfg.Orb.Seed != config.DefaultSeed {
		t.Errorf("Seed = %d, want %d", cfg.Orb.Seed, config.DefaultSeed)
	}
}

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()

	yaml := `
server:
  log_level: debug
  metrics_addr: ":9090"
audio:
  sample_rate: 44100
  buffer_size: 1024
orb:
  mesh_detail: 4
  seed: 1337
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.MetricsAddr != ":9090" {
		t.Errorf("MetricsAddr = %q", cfg.Server.MetricsAddr)
	}
	if cfg.Audio.SampleRate != 44100 || cfg.Audio.BufferSize != 1024 {
		t.Errorf("Audio = %+v", cfg.Audio)
	}
	if cfg.Orb.MeshDetail != 4 || cfg.Orb.Seed != 1337 {
		t.Errorf("Orb = %+v", cfg.Orb)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("server:\n  listen_addr: ':8080'\n"))
	if err == nil {
		t.Fatal("unknown field should be rejected")
	}
}

func TestValidate_BadValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"bad log level", "server:\n  log_level: verbose\n", "log_level"},
		{"buffer too small", "audio:\n  buffer_size: 128\n", "buffer_size"},
		{"buffer not power of two", "audio:\n  buffer_size: 3000\n", "power of two"},
		{"sample rate out of range", "audio:\n  sample_rate: 1000\n", "sample_rate"},
		{"detail out of range", "orb:\n  mesh_detail: 12\n", "mesh_detail"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tc.yaml))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q should mention %q", err, tc.want)
			}
		})
	}
}

func TestValidate_JoinsAllFailures(t *testing.T) {
	t.Parallel()

	yaml := `
server:
  log_level: loud
audio:
  buffer_size: 100
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") || !strings.Contains(err.Error(), "buffer_size") {
		t.Errorf("joined error should list both failures, got: %v", err)
	}
}
