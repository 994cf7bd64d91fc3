package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/voidfemme/visualsynth/pkg/audio"
	"github.com/voidfemme/visualsynth/pkg/music"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestParseMergesOverDefaults(t *testing.T) {
	src := `
audio:
  sample_rate: 48000
  format: s16
synth:
  shaper: sine
  waveform: triangle
  tremolo:
    rate: 3
keybindings:
  notes:
    a: C
    k: E
`
	cfg, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.SampleRate != 48000 || cfg.Audio.Format != audio.FormatS16 {
		t.Fatalf("audio = %+v", cfg.Audio)
	}
	if cfg.Audio.Channels != 2 || cfg.Audio.Backend != "oto" {
		t.Fatalf("defaults lost: %+v", cfg.Audio)
	}
	if cfg.Synth.Waveform != music.WaveTriangle || cfg.Synth.Shaper != "sine" {
		t.Fatalf("synth = %+v", cfg.Synth)
	}
	if cfg.Synth.Tremolo.Rate != 3 || cfg.Synth.Tremolo.Depth != audio.DefaultTremolo.Depth {
		t.Fatalf("tremolo = %+v", cfg.Synth.Tremolo)
	}
	// a present group replaces the default group
	if len(cfg.Keybindings.Notes) != 2 {
		t.Fatalf("notes = %v, want the two from the file", cfg.Keybindings.Notes)
	}
	// groups absent from the file keep their defaults
	if len(cfg.Keybindings.BassNotes) == 0 {
		t.Fatal("bass notes lost")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		is   error
	}{
		{"unknown waveform", "synth:\n  waveform: noise\n", ErrUnknownWaveform},
		{"unknown format", "audio:\n  format: u8\n", audio.ErrUnsupportedFormat},
		{"bad rate", "audio:\n  sample_rate: 100\n", ErrInvalid},
		{"bad shaper", "synth:\n  shaper: fuzz\n", ErrInvalid},
		{"bad note", "keybindings:\n  notes:\n    a: H\n", ErrInvalid},
		{"bad root", "scale:\n  root: X\n", ErrInvalid},
		{"duplicate key", "keybindings:\n  octave:\n    up: z\n", ErrInvalid},
		{"reserved key", "keybindings:\n  octave:\n    up: esc\n", ErrInvalid},
		{"zero degree", "keybindings:\n  scale_degrees:\n    f1: 0\n", ErrInvalid},
	}
	for _, tt := range tests {
		_, err := Parse(strings.NewReader(tt.src))
		if !errors.Is(err, tt.is) {
			t.Fatalf("%s: err = %v, want %v", tt.name, err, tt.is)
		}
	}
	if _, err := Parse(strings.NewReader("audo:\n  sample_rate: 48000\n")); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(strings.NewReader("  \n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Fatalf("sample rate = %d", cfg.Audio.SampleRate)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotExist", err)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	data, err := Default().Marshal()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "synth.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Keymap().Len() != Default().Keymap().Len() {
		t.Fatal("keymap changed after round trip")
	}
}

func TestKeymapLookup(t *testing.T) {
	km := Default().Keymap()
	scale := music.MajorScale("C")

	if _, ok := km.Lookup("ctrl+z"); ok {
		t.Fatal("unmapped key resolved")
	}

	b, ok := km.Lookup("n")
	if !ok || b.Kind != HoldNote {
		t.Fatalf("n = %+v, %v", b, ok)
	}
	if ev, _ := b.Resolve(scale); ev != (music.NoteOn{Note: "A"}) {
		t.Fatalf("n resolves to %v", ev)
	}

	b, _ = km.Lookup("Q")
	if b.Kind != ToggleNote || b.Note != "C2" {
		t.Fatalf("Q = %+v", b)
	}

	b, _ = km.Lookup("f3")
	if ev, _ := b.Resolve(scale); ev != (music.NoteOn{Note: "E"}) {
		t.Fatalf("f3 in C = %v", ev)
	}
	if ev, _ := b.Resolve(scale.WithRoot("D")); ev != (music.NoteOn{Note: "F_SHARP"}) {
		t.Fatalf("f3 in D = %v", ev)
	}

	actions := map[string]music.NoteEvent{
		"*":     music.ChangeOctave{Direction: music.Up},
		"/":     music.ChangeOctave{Direction: music.Down},
		" ":     music.ToggleTremolo{},
		"@":     music.ChangeWaveform{Waveform: music.WaveSquare},
		"alt+g": music.ChangeKey{Root: "G"},
		"up":    music.AdjustTremolo{Depth: TremoloDepthStep},
	}
	for key, want := range actions {
		b, ok := km.Lookup(key)
		if !ok || b.Kind != Action {
			t.Fatalf("%q = %+v, %v", key, b, ok)
		}
		if ev, _ := b.Resolve(scale); ev != want {
			t.Fatalf("%q resolves to %v, want %v", key, ev, want)
		}
	}

	if km.Hold() != 600*time.Millisecond {
		t.Fatalf("hold = %v", km.Hold())
	}
}

func TestSettingsConversion(t *testing.T) {
	cfg := Default()
	s := cfg.SynthSettings()
	if s.SampleRate != 44100 || s.MaxBlock != 882 || s.Shaper != audio.ShaperTanh {
		t.Fatalf("synth settings = %+v", s)
	}
	d := cfg.DeviceSettings()
	if d.Channels != 2 || d.BufferMs != 20 {
		t.Fatalf("device settings = %+v", d)
	}
}
