// Package config provides the configuration schema, loader, and file
// watcher for the Aura engine.
package config

// LogLevel controls log verbosity for the engine.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Defaults applied by [Validate] when a field is left zero.
const (
	DefaultSampleRate = 48000
	DefaultBufferSize = 2048
	DefaultMeshDetail = 5
	DefaultSeed       = 1
)

// Config is the root configuration structure for the engine.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server Server `yaml:"server"`
	Audio  Audio  `yaml:"audio"`
	Orb    Orb    `yaml:"orb"`
}

// Server holds logging and diagnostics settings.
type Server struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address of the Prometheus /metrics and health
	// endpoint (e.g., ":9090"). Empty disables the diagnostics server.
	MetricsAddr string `yaml:"metrics_addr"`
}

// Audio holds the analysis buffer parameters. Live capture and file replay
// both use these values so the two paths stay comparable.
type Audio struct {
	// SampleRate in Hz expected from the capture collaborator.
	SampleRate int `yaml:"sample_rate"`

	// BufferSize is the number of samples analysed per extraction call.
	// Must be a power of two and at least 256.
	BufferSize int `yaml:"buffer_size"`
}

// Orb holds the mesh and simulation parameters.
type Orb struct {
	// MeshDetail is the icosphere subdivision level. Level 5 (the default)
	// yields 2,562 vertices.
	MeshDetail int `yaml:"mesh_detail"`

	// Seed drives the simulation's noise field and impulse directions.
	// Live and export runs with the same seed render identically.
	Seed int64 `yaml:"seed"`
}
