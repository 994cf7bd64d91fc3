//go:build portaudio

package audio

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
)

func init() {
	registerBackend("portaudio", func(s *Synth, cfg DeviceConfig, logger *log.Logger) (Device, error) {
		return NewPortAudioOutput(s, cfg, logger)
	})
}

// PortAudioOutput plays a synth through a portaudio callback stream.
// The callback receives planar float32 channels, matching AudioBuffer.
type PortAudioOutput struct {
	stream    *portaudio.Stream
	synth     *Synth
	buf       *AudioBuffer
	renderErr atomic.Pointer[error]
	done      chan struct{}
	closed    atomic.Bool
	logger    *log.Logger
}

// NewPortAudioOutput opens the default output stream
func NewPortAudioOutput(s *Synth, cfg DeviceConfig, logger *log.Logger) (*PortAudioOutput, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	frames := s.SampleRate() * cfg.BufferMs / 1000
	p := &PortAudioOutput{
		synth:  s,
		buf:    NewAudioBuffer(cfg.Channels, frames),
		done:   make(chan struct{}),
		logger: logger,
	}
	stream, err := portaudio.OpenDefaultStream(0, cfg.Channels, float64(s.SampleRate()), frames, p.process)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, err
	}
	p.stream = stream
	logger.Info("portaudio device started", "sample_rate", s.SampleRate(), "channels", cfg.Channels, "frames", frames)
	return p, nil
}

func (p *PortAudioOutput) process(out [][]float32) {
	if len(out) == 0 {
		return
	}
	frames := len(out[0])
	p.buf.Resize(frames)
	if p.renderErr.Load() != nil {
		for _, ch := range out {
			clear(ch)
		}
		return
	}
	if err := p.synth.Render(p.buf); err != nil {
		p.renderErr.Store(&err)
		return
	}
	CopyPlanarFloat32(out, p.buf)
}

// Wait blocks until ctx is done or rendering fails
func (p *PortAudioOutput) Wait(ctx context.Context) error {
	return waitDevice(ctx, p.done, func() error {
		if e := p.renderErr.Load(); e != nil {
			return *e
		}
		return nil
	})
}

// Close stops the stream and releases portaudio
func (p *PortAudioOutput) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(p.done)
	err := p.stream.Stop()
	if cerr := p.stream.Close(); err == nil {
		err = cerr
	}
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	if err != nil {
		return fmt.Errorf("portaudio close: %w", err)
	}
	p.logger.Info("portaudio device closed")
	return nil
}
