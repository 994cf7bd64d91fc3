package audio

import (
	"fmt"
	"io"
	"math"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/cwbudde/algo-vecmath"

	"github.com/voidfemme/visualsynth/pkg/music"
)

// SynthConfig holds engine settings
type SynthConfig struct {
	SampleRate int
	Channels   int
	MaxBlock   int
	VoiceGain  float64
	Shaper     string
	RingOut    bool
	Envelope   music.Envelope
	VisualFPS  int
}

// DefaultEnvelope is the voice envelope used when none is configured
var DefaultEnvelope = music.Envelope{Attack: 0.05, Decay: 0.1, Sustain: 0.7, Release: 0.5}

// DefaultVoiceGain leaves headroom for a handful of voices before the shaper
const DefaultVoiceGain = 0.25

// Synth is the block engine: voices are mixed, shaped, written to the
// caller's buffer and fed to the decimator
type Synth struct {
	cfg       SynthConfig
	notes     *NoteState
	tremolo   *TremoloEffect
	pool      *VoicePool
	shaper    *WaveShaper
	decimator *Decimator
	mono      []float64
	raw       *AudioBuffer

	frames     atomic.Uint64 // sample clock
	voiceCount atomic.Int32
	peak       atomic.Uint64 // float64 bits of the last block peak
	logger     *log.Logger
}

// NewSynth wires a synth to a note state. The note state's tremolo is the
// one shared by all voices.
func NewSynth(cfg SynthConfig, notes *NoteState, logger *log.Logger) (*Synth, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", cfg.SampleRate)
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.MaxBlock <= 0 {
		cfg.MaxBlock = 1024
	}
	if cfg.VoiceGain <= 0 {
		cfg.VoiceGain = DefaultVoiceGain
	}
	if cfg.Envelope == (music.Envelope{}) {
		cfg.Envelope = DefaultEnvelope
	}
	shaper, err := NewWaveShaper(cfg.Shaper)
	if err != nil {
		return nil, fmt.Errorf("synth: %w", err)
	}
	sr := float64(cfg.SampleRate)
	s := &Synth{
		cfg:     cfg,
		notes:   notes,
		tremolo: notes.Tremolo(),
		pool: NewVoicePool(PoolConfig{
			SampleRate: sr,
			Gain:       cfg.VoiceGain,
			Envelope:   cfg.Envelope,
			RingOut:    cfg.RingOut,
			MaxBlock:   cfg.MaxBlock,
		}, notes.Tremolo()),
		shaper:    shaper,
		decimator: NewDecimator(sr, cfg.VisualFPS),
		mono:      make([]float64, cfg.MaxBlock),
		raw:       NewAudioBuffer(cfg.Channels, cfg.MaxBlock),
		logger:    logger.With("component", "synth"),
	}
	s.logger.Info("synth ready", "sample_rate", cfg.SampleRate, "channels", cfg.Channels,
		"shaper", shaper.Name, "voice_gain", cfg.VoiceGain, "ring_out", cfg.RingOut)
	return s, nil
}

// Render produces out.NumFrames() frames. Every channel carries the same
// mono mix. Called from the audio goroutine only.
func (s *Synth) Render(out *AudioBuffer) error {
	n := out.NumFrames()
	sr := float64(s.cfg.SampleRate)
	now := float64(s.frames.Load()) / sr

	if cap(s.mono) < n {
		s.mono = make([]float64, n)
	}
	mono := s.mono[:n]
	if s.tremolo != nil {
		s.tremolo.Begin(n, sr)
	}
	s.pool.Render(s.notes, now, mono)
	if s.tremolo != nil {
		s.tremolo.End()
	}

	if s.raw.NumChannels() != out.NumChannels() {
		s.raw = NewAudioBuffer(out.NumChannels(), n)
	} else {
		s.raw.Resize(n)
	}
	for c := 0; c < s.raw.NumChannels(); c++ {
		copy(s.raw.Channel(c), mono)
	}
	if err := s.shaper.Process(s.raw, out); err != nil {
		return err
	}

	shaped := out.Channel(0)
	s.decimator.Write(shaped)
	if n > 0 {
		s.peak.Store(math.Float64bits(vecmath.MaxAbs(shaped)))
	}
	s.voiceCount.Store(int32(s.pool.Len()))
	s.frames.Add(uint64(n))
	return nil
}

// SampleRate returns the engine rate in Hz
func (s *Synth) SampleRate() int { return s.cfg.SampleRate }

// Channels returns the configured channel count
func (s *Synth) Channels() int { return s.cfg.Channels }

// Notes returns the control-side state
func (s *Synth) Notes() *NoteState { return s.notes }

// Snapshot returns the latest visualization grid
func (s *Synth) Snapshot() Snapshot { return s.decimator.Snapshot() }

// Time returns the synth clock in seconds
func (s *Synth) Time() float64 {
	return float64(s.frames.Load()) / float64(s.cfg.SampleRate)
}

// VoiceCount returns the number of voices after the last block
func (s *Synth) VoiceCount() int { return int(s.voiceCount.Load()) }

// ActiveNotes returns the flagged notes in sorted order
func (s *Synth) ActiveNotes() []string { return s.notes.PlayingNotes() }

// Peak returns the absolute peak of the last rendered block
func (s *Synth) Peak() float64 { return math.Float64frombits(s.peak.Load()) }
