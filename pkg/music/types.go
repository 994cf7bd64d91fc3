// Package music implements the synthesizer's musical data types
package music

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownWaveform is returned when a waveform name cannot be parsed
var ErrUnknownWaveform = errors.New("unknown waveform")

// Waveform selects one of the precomputed wavetables
type Waveform int32

const (
	WaveSilence Waveform = iota
	WaveSine
	WaveSquare
	WaveSawtooth
	WaveTriangle
)

// NumWaveforms is the number of selectable waveforms
const NumWaveforms = 5

var waveformNames = [NumWaveforms]string{"silence", "sine", "square", "sawtooth", "triangle"}

// String returns the lower-case waveform name
func (w Waveform) String() string {
	if w < 0 || int(w) >= NumWaveforms {
		return fmt.Sprintf("waveform(%d)", int32(w))
	}
	return waveformNames[w]
}

// Valid reports whether w names a wavetable
func (w Waveform) Valid() bool {
	return w >= 0 && int(w) < NumWaveforms
}

// ParseWaveform converts a name like "Sine" or "saw" to a Waveform
func ParseWaveform(name string) (Waveform, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "saw":
		return WaveSawtooth, nil
	case "tri":
		return WaveTriangle, nil
	case "sqr", "squ":
		return WaveSquare, nil
	case "off", "none":
		return WaveSilence, nil
	}
	for i, s := range waveformNames {
		if s == n {
			return Waveform(i), nil
		}
	}
	return WaveSilence, fmt.Errorf("%w: %q", ErrUnknownWaveform, name)
}

// MarshalText implements encoding.TextMarshaler
func (w Waveform) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (w *Waveform) UnmarshalText(text []byte) error {
	v, err := ParseWaveform(string(text))
	if err != nil {
		return err
	}
	*w = v
	return nil
}

// Envelope holds ADSR settings in seconds (Sustain is a level 0.0-1.0)
type Envelope struct {
	Attack  float64 `yaml:"attack"`
	Decay   float64 `yaml:"decay"`
	Sustain float64 `yaml:"sustain"`
	Release float64 `yaml:"release"`
}

// Direction of an octave change
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Step returns +1 for up, -1 for down and 0 otherwise
func (d Direction) Step() int {
	switch d {
	case Up:
		return 1
	case Down:
		return -1
	}
	return 0
}

// NoteEvent is an already-resolved input event
type NoteEvent interface {
	String() string
	noteEvent()
}

// NoteOn starts a note
type NoteOn struct{ Note string }

// NoteOff releases a note
type NoteOff struct{ Note string }

// ChangeWaveform selects the waveform for all voices
type ChangeWaveform struct{ Waveform Waveform }

// ChangeOctave shifts newly started notes by one octave
type ChangeOctave struct{ Direction Direction }

// ToggleTremolo flips the shared tremolo on or off
type ToggleTremolo struct{}

// ChangeKey moves the scale root
type ChangeKey struct{ Root string }

// AdjustTremolo nudges tremolo rate (Hz) and depth by the given deltas
type AdjustTremolo struct {
	Rate  float64
	Depth float64
}

func (NoteOn) noteEvent()         {}
func (NoteOff) noteEvent()        {}
func (ChangeWaveform) noteEvent() {}
func (ChangeOctave) noteEvent()   {}
func (ToggleTremolo) noteEvent()  {}
func (ChangeKey) noteEvent()      {}
func (AdjustTremolo) noteEvent()  {}

func (e NoteOn) String() string         { return "On(" + e.Note + ")" }
func (e NoteOff) String() string        { return "Off(" + e.Note + ")" }
func (e ChangeWaveform) String() string { return "ChangeWaveform(" + e.Waveform.String() + ")" }
func (e ChangeOctave) String() string   { return "ChangeOctave(" + string(e.Direction) + ")" }
func (ToggleTremolo) String() string    { return "ToggleTremolo" }
func (e ChangeKey) String() string      { return "ChangeKey(" + e.Root + ")" }
func (e AdjustTremolo) String() string {
	return fmt.Sprintf("AdjustTremolo(rate%+.2f, depth%+.2f)", e.Rate, e.Depth)
}
