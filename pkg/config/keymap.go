package config

import (
	"time"

	"github.com/voidfemme/visualsynth/pkg/music"
)

// ReservedKeys are handled by the UI itself and cannot be bound
var ReservedKeys = []string{"ctrl+c", "esc", "?", "backspace"}

// Tremolo adjustment steps
const (
	TremoloRateStep  = 0.5
	TremoloDepthStep = 0.05
)

// BindingKind says how a key behaves over time
type BindingKind int

const (
	// HoldNote sounds while the key keeps repeating
	HoldNote BindingKind = iota
	// ToggleNote latches on one press and off the next
	ToggleNote
	// Action fires once per press
	Action
)

// Binding is what a key resolves to
type Binding struct {
	Kind   BindingKind
	Note   string          // HoldNote / ToggleNote with a fixed note
	Degree int             // HoldNote on a scale degree when > 0
	Event  music.NoteEvent // Action
}

// Resolve returns the note-on or action event of a binding. Scale degrees
// are looked up in the given scale.
func (b Binding) Resolve(scale music.Scale) (music.NoteEvent, bool) {
	switch {
	case b.Kind == Action:
		return b.Event, b.Event != nil
	case b.Degree > 0:
		note, ok := scale.NoteAt(b.Degree)
		if !ok {
			return nil, false
		}
		return music.NoteOn{Note: note}, true
	case b.Note != "":
		return music.NoteOn{Note: b.Note}, true
	}
	return nil, false
}

// Keymap resolves key names to bindings
type Keymap struct {
	bindings map[string]Binding
	hold     time.Duration
}

// Keymap builds the lookup table of the key bindings
func (c *Config) Keymap() *Keymap {
	kb := c.Keybindings
	km := &Keymap{
		bindings: map[string]Binding{},
		hold:     time.Duration(kb.HoldMs) * time.Millisecond,
	}
	for key, note := range kb.Notes {
		km.bindings[key] = Binding{Kind: HoldNote, Note: note}
	}
	for key, note := range kb.BassNotes {
		km.bindings[key] = Binding{Kind: HoldNote, Note: note}
	}
	for key, note := range kb.ToggleNotes {
		km.bindings[key] = Binding{Kind: ToggleNote, Note: note}
	}
	for key, deg := range kb.ScaleDegrees {
		km.bindings[key] = Binding{Kind: HoldNote, Degree: deg}
	}
	for key, root := range kb.KeyChange {
		km.action(key, music.ChangeKey{Root: root})
	}
	for key, w := range kb.Waveforms {
		km.action(key, music.ChangeWaveform{Waveform: w})
	}
	km.action(kb.Octave.Up, music.ChangeOctave{Direction: music.Up})
	km.action(kb.Octave.Down, music.ChangeOctave{Direction: music.Down})
	km.action(kb.Tremolo.Toggle, music.ToggleTremolo{})
	km.action(kb.Tremolo.RateUp, music.AdjustTremolo{Rate: TremoloRateStep})
	km.action(kb.Tremolo.RateDown, music.AdjustTremolo{Rate: -TremoloRateStep})
	km.action(kb.Tremolo.DepthUp, music.AdjustTremolo{Depth: TremoloDepthStep})
	km.action(kb.Tremolo.DepthDown, music.AdjustTremolo{Depth: -TremoloDepthStep})
	return km
}

func (km *Keymap) action(key string, ev music.NoteEvent) {
	if key != "" {
		km.bindings[key] = Binding{Kind: Action, Event: ev}
	}
}

// Lookup returns the binding of a key; unmapped keys report false
func (km *Keymap) Lookup(key string) (Binding, bool) {
	b, ok := km.bindings[key]
	return b, ok
}

// Hold is how long a held note survives without a key repeat
func (km *Keymap) Hold() time.Duration { return km.hold }

// Len returns the number of bound keys
func (km *Keymap) Len() int { return len(km.bindings) }
