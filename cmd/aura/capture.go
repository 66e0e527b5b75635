package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/auralabs/aura/pkg/audio"
	"github.com/auralabs/aura/pkg/source"
)

// fileCapture exposes audio files as virtual input devices. Each device
// streams its file at real-time cadence and loops at the end, so the engine
// sees an endless microphone without touching any OS audio API.
type fileCapture struct {
	registry   *source.Registry
	bufferSize int
	devices    []audio.Device
	paths      map[string]string
}

func newFileCapture(registry *source.Registry, bufferSize int, paths []string) (*fileCapture, error) {
	c := &fileCapture{
		registry:   registry,
		bufferSize: bufferSize,
		paths:      make(map[string]string),
	}
	for i, path := range paths {
		reader, err := openReader(registry, path)
		if err != nil {
			return nil, fmt.Errorf("probe input %s: %w", path, err)
		}
		rate := reader.SampleRate()
		reader.Close()

		id := fmt.Sprintf("file-%d", i+1)
		c.devices = append(c.devices, audio.Device{
			ID:         id,
			Name:       filepath.Base(path),
			SampleRate: rate,
		})
		c.paths[id] = path
	}
	return c, nil
}

func openReader(registry *source.Registry, path string) (source.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return registry.Decode(format, f)
}

// Devices implements [audio.Capture].
func (c *fileCapture) Devices(_ context.Context) ([]audio.Device, error) {
	out := make([]audio.Device, len(c.devices))
	copy(out, c.devices)
	return out, nil
}

// Open implements [audio.Capture].
func (c *fileCapture) Open(_ context.Context, deviceID string) (audio.Stream, error) {
	path, ok := c.paths[deviceID]
	if !ok {
		return nil, fmt.Errorf("unknown input device %q", deviceID)
	}
	reader, err := openReader(c.registry, path)
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", path, err)
	}

	s := &fileStream{
		frames: make(chan audio.Frame, 4),
		done:   make(chan struct{}),
	}
	go s.pump(reader, c.bufferSize)
	return s, nil
}

type fileStream struct {
	frames    chan audio.Frame
	done      chan struct{}
	closeOnce sync.Once
}

// Frames implements [audio.Stream].
func (s *fileStream) Frames() <-chan audio.Frame { return s.frames }

// Close implements [audio.Stream].
func (s *fileStream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func (s *fileStream) pump(reader source.Reader, bufferSize int) {
	defer close(s.frames)
	defer reader.Close()

	rate := reader.SampleRate()
	interval := time.Duration(float64(bufferSize) / float64(rate) * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var offset int64
	var elapsed time.Duration
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		samples := make([]float32, bufferSize)
		n := reader.ReadAt(samples, offset)
		if n < bufferSize {
			offset = 0
		} else {
			offset += int64(n)
		}

		frame := audio.Frame{Samples: samples, SampleRate: rate, Timestamp: elapsed}
		elapsed += interval

		select {
		case s.frames <- frame:
		case <-s.done:
			return
		}
	}
}
