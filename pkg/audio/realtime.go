//go:build !headless

package audio

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

func init() {
	registerBackend("oto", func(s *Synth, cfg DeviceConfig, logger *log.Logger) (Device, error) {
		return NewRealtimeOutput(s, cfg, logger)
	})
}

// RealtimeOutput plays a synth through oto
type RealtimeOutput struct {
	synth     *Synth
	otoCtx    *oto.Context
	otoPlayer *oto.Player
	running   atomic.Bool
	renderErr atomic.Pointer[error]
	done      chan struct{}
	logger    *log.Logger
}

func otoFormat(f SampleFormat) (oto.Format, error) {
	switch f {
	case FormatF32:
		return oto.FormatFloat32LE, nil
	case FormatS16:
		return oto.FormatSignedInt16LE, nil
	}
	return 0, fmt.Errorf("oto: %w: %s", ErrUnsupportedFormat, f)
}

// NewRealtimeOutput opens the default device. Only one oto context can
// exist per process.
func NewRealtimeOutput(s *Synth, cfg DeviceConfig, logger *log.Logger) (*RealtimeOutput, error) {
	format, err := otoFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	op := &oto.NewContextOptions{
		SampleRate:   s.SampleRate(),
		ChannelCount: cfg.Channels,
		Format:       format,
		BufferSize:   time.Duration(cfg.BufferMs) * time.Millisecond,
	}

	otoCtx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	rt := &RealtimeOutput{
		synth:  s,
		otoCtx: otoCtx,
		done:   make(chan struct{}),
		logger: logger,
	}
	rt.running.Store(true)

	stream := &audioStream{
		rt:       rt,
		format:   cfg.Format,
		channels: cfg.Channels,
		buf:      NewAudioBuffer(cfg.Channels, s.SampleRate()*cfg.BufferMs/1000),
	}
	rt.otoPlayer = otoCtx.NewPlayer(stream)
	rt.otoPlayer.SetBufferSize(s.SampleRate() * cfg.Channels * cfg.Format.BytesPerSample() * cfg.BufferMs / 1000)
	rt.otoPlayer.Play()

	logger.Info("oto device started", "sample_rate", s.SampleRate(), "channels", cfg.Channels,
		"format", cfg.Format, "buffer_ms", cfg.BufferMs)
	return rt, nil
}

// Err returns the first device or render failure
func (rt *RealtimeOutput) Err() error {
	if p := rt.renderErr.Load(); p != nil {
		return *p
	}
	if err := rt.otoCtx.Err(); err != nil {
		return err
	}
	return rt.otoPlayer.Err()
}

// Wait blocks until ctx is done or the device reports an error
func (rt *RealtimeOutput) Wait(ctx context.Context) error {
	return waitDevice(ctx, rt.done, rt.Err)
}

// Close stops the audio output
func (rt *RealtimeOutput) Close() error {
	if !rt.running.Swap(false) {
		return nil
	}
	close(rt.done)
	var err error
	if rt.otoPlayer != nil {
		err = rt.otoPlayer.Close()
	}
	rt.logger.Info("oto device closed")
	return err
}

// audioStream implements io.Reader for oto. Read runs on oto's goroutine
// and never blocks on the control side.
type audioStream struct {
	rt       *RealtimeOutput
	format   SampleFormat
	channels int
	buf      *AudioBuffer
}

func (s *audioStream) Read(p []byte) (int, error) {
	frameBytes := s.channels * s.format.BytesPerSample()
	frames := len(p) / frameBytes
	if !s.rt.running.Load() {
		clear(p)
		return len(p), nil
	}
	if frames == 0 {
		return 0, nil
	}

	s.buf.Resize(frames)
	if err := s.rt.synth.Render(s.buf); err != nil {
		s.rt.renderErr.Store(&err)
		return 0, fmt.Errorf("render: %w", err)
	}
	return EncodeInterleaved(p, s.buf, s.format)
}
