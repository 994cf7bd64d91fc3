// Package config loads synthesizer settings and key bindings from YAML
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/voidfemme/visualsynth/pkg/audio"
	"github.com/voidfemme/visualsynth/pkg/music"
)

// ErrUnknownWaveform is returned for waveform names that do not exist
var ErrUnknownWaveform = music.ErrUnknownWaveform

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid config")

// Config is the whole settings file
type Config struct {
	Audio       AudioConfig `yaml:"audio"`
	Synth       SynthConfig `yaml:"synth"`
	Scale       music.Scale `yaml:"scale"`
	Keybindings Keybindings `yaml:"keybindings"`
	Log         LogConfig   `yaml:"log"`
}

// AudioConfig selects the output device
type AudioConfig struct {
	SampleRate int                `yaml:"sample_rate"`
	Channels   int                `yaml:"channels"`
	BufferMs   int                `yaml:"buffer_ms"`
	Format     audio.SampleFormat `yaml:"format"`
	Backend    string             `yaml:"backend"`
}

// SynthConfig holds the voice and effect settings
type SynthConfig struct {
	VoiceGain float64             `yaml:"voice_gain"`
	Shaper    string              `yaml:"shaper"`
	RingOut   bool                `yaml:"ring_out"`
	Envelope  music.Envelope      `yaml:"envelope"`
	Tremolo   audio.TremoloConfig `yaml:"tremolo"`
	Waveform  music.Waveform      `yaml:"waveform"`
	VisualFPS int                 `yaml:"visual_fps"`
}

// LogConfig controls the log file
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// OctaveKeys move new notes up or down an octave
type OctaveKeys struct {
	Up   string `yaml:"up"`
	Down string `yaml:"down"`
}

// TremoloKeys control the shared tremolo
type TremoloKeys struct {
	Toggle    string `yaml:"toggle"`
	RateUp    string `yaml:"rate_up"`
	RateDown  string `yaml:"rate_down"`
	DepthUp   string `yaml:"depth_up"`
	DepthDown string `yaml:"depth_down"`
}

// Keybindings maps key names (as bubbletea reports them) to actions
type Keybindings struct {
	Notes        map[string]string         `yaml:"notes"`
	BassNotes    map[string]string         `yaml:"bass_notes"`
	ToggleNotes  map[string]string         `yaml:"toggle_notes"`
	ScaleDegrees map[string]int            `yaml:"scale_degrees"`
	KeyChange    map[string]string         `yaml:"key_change"`
	Waveforms    map[string]music.Waveform `yaml:"waveforms"`
	Octave       OctaveKeys                `yaml:"octave"`
	Tremolo      TremoloKeys               `yaml:"tremolo"`
	HoldMs       int                       `yaml:"hold_ms"`
}

// Load reads a YAML file and merges it over Default()
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults. A key group present in the file
// replaces the default group instead of extending it. Unknown fields are
// errors.
func Parse(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, cfg.Validate()
	}

	var groups struct {
		Keybindings struct {
			Notes        map[string]string         `yaml:"notes"`
			BassNotes    map[string]string         `yaml:"bass_notes"`
			ToggleNotes  map[string]string         `yaml:"toggle_notes"`
			ScaleDegrees map[string]int            `yaml:"scale_degrees"`
			KeyChange    map[string]string         `yaml:"key_change"`
			Waveforms    map[string]music.Waveform `yaml:"waveforms"`
		} `yaml:"keybindings"`
	}
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	kb := &cfg.Keybindings
	g := groups.Keybindings
	replace(&kb.Notes, g.Notes)
	replace(&kb.BassNotes, g.BassNotes)
	replace(&kb.ToggleNotes, g.ToggleNotes)
	replace(&kb.ScaleDegrees, g.ScaleDegrees)
	replace(&kb.KeyChange, g.KeyChange)
	replace(&kb.Waveforms, g.Waveforms)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func replace[V any](dst *map[string]V, src map[string]V) {
	if src != nil {
		*dst = src
	}
}

// Marshal encodes the config as YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks ranges and key bindings
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	a := c.Audio
	if a.SampleRate < 8000 || a.SampleRate > 192000 {
		bad("audio.sample_rate %d outside 8000-192000", a.SampleRate)
	}
	if a.Channels < 1 || a.Channels > 8 {
		bad("audio.channels %d outside 1-8", a.Channels)
	}
	if a.BufferMs < 1 || a.BufferMs > 1000 {
		bad("audio.buffer_ms %d outside 1-1000", a.BufferMs)
	}

	s := c.Synth
	if s.VoiceGain <= 0 || s.VoiceGain > 1 {
		bad("synth.voice_gain %v outside (0, 1]", s.VoiceGain)
	}
	if _, err := audio.NewWaveShaper(s.Shaper); err != nil {
		bad("synth.shaper: %v", err)
	}
	if s.VisualFPS < 1 || s.VisualFPS > 240 {
		bad("synth.visual_fps %d outside 1-240", s.VisualFPS)
	}
	e := s.Envelope
	if e.Attack < 0 || e.Decay < 0 || e.Release < 0 || e.Sustain < 0 || e.Sustain > 1 {
		bad("synth.envelope %+v has negative times or sustain outside 0-1", e)
	}

	if _, _, ok := music.ParseNote(c.Scale.Root); !ok {
		bad("scale.root %q is not a note", c.Scale.Root)
	}
	if len(c.Scale.Intervals) == 0 {
		bad("scale.intervals is empty")
	}

	kb := c.Keybindings
	seen := map[string]string{}
	for _, key := range ReservedKeys {
		seen[key] = "reserved keys"
	}
	bind := func(key, group string) {
		if key == "" {
			return
		}
		if prev, ok := seen[key]; ok {
			bad("key %q bound in both %s and %s", key, prev, group)
			return
		}
		seen[key] = group
	}
	noteGroup := func(name string, m map[string]string) {
		for key, note := range m {
			bind(key, name)
			if _, _, ok := music.ParseNote(note); !ok {
				bad("keybindings.%s[%q]: unknown note %q", name, key, note)
			}
		}
	}
	noteGroup("notes", kb.Notes)
	noteGroup("bass_notes", kb.BassNotes)
	noteGroup("toggle_notes", kb.ToggleNotes)
	noteGroup("key_change", kb.KeyChange)
	for key, deg := range kb.ScaleDegrees {
		bind(key, "scale_degrees")
		if deg < 1 {
			bad("keybindings.scale_degrees[%q]: degree %d < 1", key, deg)
		}
	}
	for key := range kb.Waveforms {
		bind(key, "waveforms")
	}
	bind(kb.Octave.Up, "octave.up")
	bind(kb.Octave.Down, "octave.down")
	bind(kb.Tremolo.Toggle, "tremolo.toggle")
	bind(kb.Tremolo.RateUp, "tremolo.rate_up")
	bind(kb.Tremolo.RateDown, "tremolo.rate_down")
	bind(kb.Tremolo.DepthUp, "tremolo.depth_up")
	bind(kb.Tremolo.DepthDown, "tremolo.depth_down")
	if kb.HoldMs < 0 {
		bad("keybindings.hold_ms %d is negative", kb.HoldMs)
	}

	return errors.Join(errs...)
}

// SynthSettings converts the file settings into engine settings
func (c *Config) SynthSettings() audio.SynthConfig {
	return audio.SynthConfig{
		SampleRate: c.Audio.SampleRate,
		Channels:   c.Audio.Channels,
		MaxBlock:   c.Audio.SampleRate * c.Audio.BufferMs / 1000,
		VoiceGain:  c.Synth.VoiceGain,
		Shaper:     c.Synth.Shaper,
		RingOut:    c.Synth.RingOut,
		Envelope:   c.Synth.Envelope,
		VisualFPS:  c.Synth.VisualFPS,
	}
}

// DeviceSettings converts the file settings into device settings
func (c *Config) DeviceSettings() audio.DeviceConfig {
	return audio.DeviceConfig{
		Channels: c.Audio.Channels,
		Format:   c.Audio.Format,
		BufferMs: c.Audio.BufferMs,
	}
}
