// Command aura hosts the audio-reactive orb engine: it loads the YAML
// configuration, wires the feature extractor and physics director together
// and serves the diagnostics endpoints until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/auralabs/aura/internal/app"
	"github.com/auralabs/aura/internal/config"
	"github.com/auralabs/aura/internal/observe"
	"github.com/auralabs/aura/pkg/audio"
	"github.com/auralabs/aura/pkg/source"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	inputs := flag.String("inputs", "", "comma-separated audio files exposed as virtual input devices")
	takesDir := flag.String("takes", "takes", "directory where recorded takes are written")
	flag.Parse()

	// ── Load configuration (with hot log-level reload) ─────────────────────────
	watcher, err := config.NewWatcher(*configPath, onConfigChange)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "aura: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "aura: %v\n", err)
		}
		return 1
	}
	cfg := watcher.Current()

	// ── Logger ────────────────────────────────────────────────────────────────
	slog.SetDefault(newLogger(cfg.Server.LogLevel))

	slog.Info("aura starting",
		"version", version,
		"config", *configPath,
		"metrics_addr", cfg.Server.MetricsAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "aura",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(tctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Input devices ─────────────────────────────────────────────────────────
	registry := source.DefaultRegistry()
	capture, err := newFileCapture(registry, cfg.Audio.BufferSize, splitInputs(*inputs))
	if err != nil {
		slog.Error("failed to open input devices", "err", err)
		return 1
	}

	if err := os.MkdirAll(*takesDir, 0o755); err != nil {
		slog.Error("failed to create takes directory", "dir", *takesDir, "err", err)
		return 1
	}

	// ── Application ───────────────────────────────────────────────────────────
	application, err := app.New(cfg, capture, registry,
		app.WithRecordingSinks(func(takeID string) (audio.RecordingSink, error) {
			return audio.NewWAVSink(filepath.Join(*takesDir, takeID+".wav"))
		}),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	application.AddCloser(func() error {
		watcher.Stop()
		return nil
	})

	printStartupSummary(cfg, capture.devices, *takesDir)
	slog.Info("engine ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// onConfigChange reacts to config file edits while the engine is running.
// Only the log level is applied hot; other fields need a restart.
func onConfigChange(prev, next *config.Config) {
	if prev.Server.LogLevel != next.Server.LogLevel {
		slog.SetDefault(newLogger(next.Server.LogLevel))
		slog.Info("log level changed", "from", prev.Server.LogLevel, "to", next.Server.LogLevel)
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, devices []audio.Device, takesDir string) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║           Aura — startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printField("Sample rate", fmt.Sprintf("%d Hz", cfg.Audio.SampleRate))
	printField("Buffer size", fmt.Sprintf("%d samples", cfg.Audio.BufferSize))
	printField("Mesh detail", fmt.Sprintf("%d", cfg.Orb.MeshDetail))
	printField("Seed", fmt.Sprintf("%d", cfg.Orb.Seed))
	printField("Takes dir", takesDir)
	if len(devices) == 0 {
		printField("Inputs", "(none)")
	}
	for _, d := range devices {
		printField("Input "+d.ID, d.Name)
	}
	if cfg.Server.MetricsAddr != "" {
		printField("Metrics addr", cfg.Server.MetricsAddr)
	} else {
		printField("Metrics addr", "(disabled)")
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printField(name, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-15s : %-19s ║\n", name, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func splitInputs(list string) []string {
	var out []string
	for _, p := range strings.Split(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
