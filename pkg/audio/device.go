package audio

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// DeviceConfig describes the output stream
type DeviceConfig struct {
	Channels int
	Format   SampleFormat
	BufferMs int
}

// Device is a running audio output
type Device interface {
	// Wait blocks until ctx is done or the device fails
	Wait(ctx context.Context) error
	Close() error
}

type deviceOpener func(s *Synth, cfg DeviceConfig, logger *log.Logger) (Device, error)

var (
	backendsMu sync.Mutex
	backends   = map[string]deviceOpener{"null": openNullDevice}
)

func registerBackend(name string, open deviceOpener) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = open
}

// Backends lists the compiled-in device backends
func Backends() []string {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	names := make([]string, 0, len(backends))
	for k := range backends {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// OpenDevice starts the named backend pulling blocks from s
func OpenDevice(backend string, s *Synth, cfg DeviceConfig, logger *log.Logger) (Device, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	backendsMu.Lock()
	open, ok := backends[backend]
	backendsMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("audio backend %q not available (have %v)", backend, Backends())
	}
	if cfg.Channels <= 0 {
		cfg.Channels = s.Channels()
	}
	if cfg.BufferMs <= 0 {
		cfg.BufferMs = 20
	}
	dev, err := open(s, cfg, logger.With("backend", backend))
	if err != nil {
		return nil, fmt.Errorf("open %s device: %w", backend, err)
	}
	return dev, nil
}

// nullDevice renders in real time and discards the output
type nullDevice struct {
	done   chan struct{}
	closed atomic.Bool
	err    atomic.Pointer[error]
	wg     sync.WaitGroup
}

func openNullDevice(s *Synth, cfg DeviceConfig, logger *log.Logger) (Device, error) {
	frames := s.SampleRate() * cfg.BufferMs / 1000
	if frames <= 0 {
		frames = 1
	}
	d := &nullDevice{done: make(chan struct{})}
	buf := NewAudioBuffer(cfg.Channels, frames)
	period := time.Duration(frames) * time.Second / time.Duration(s.SampleRate())

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-d.done:
				return
			case <-ticker.C:
				if err := s.Render(buf); err != nil {
					d.err.Store(&err)
					return
				}
			}
		}
	}()
	logger.Info("null device started", "frames", frames, "period", period)
	return d, nil
}

func (d *nullDevice) Wait(ctx context.Context) error {
	return waitDevice(ctx, d.done, func() error {
		if p := d.err.Load(); p != nil {
			return *p
		}
		return nil
	})
}

func (d *nullDevice) Close() error {
	if d.closed.CompareAndSwap(false, true) {
		close(d.done)
		d.wg.Wait()
	}
	return nil
}

// waitDevice polls a device error until ctx ends or done is closed
func waitDevice(ctx context.Context, done <-chan struct{}, check func() error) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return check()
		case <-ticker.C:
			if err := check(); err != nil {
				return fmt.Errorf("audio device: %w", err)
			}
		}
	}
}
