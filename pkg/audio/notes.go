package audio

import (
	"io"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/voidfemme/visualsynth/pkg/music"
)

// Octave shift limits
const (
	MinOctave = -2
	MaxOctave = 2
)

// NoteState is the control-side state read by the audio goroutine every
// block. Writers copy the playing map and publish it; readers never lock.
type NoteState struct {
	mu       sync.Mutex // serializes writers only
	playing  atomic.Pointer[map[string]bool]
	waveform atomic.Int32
	octave   atomic.Int32
	scale    atomic.Pointer[music.Scale]
	tremolo  *TremoloEffect
	logger   *log.Logger
}

// NewNoteState creates an empty note state
func NewNoteState(scale music.Scale, w music.Waveform, tremolo *TremoloEffect, logger *log.Logger) *NoteState {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	ns := &NoteState{
		tremolo: tremolo,
		logger:  logger.With("component", "notes"),
	}
	empty := map[string]bool{}
	ns.playing.Store(&empty)
	ns.waveform.Store(int32(w))
	ns.SetScale(scale)
	return ns
}

// HandleEvent applies one input event
func (ns *NoteState) HandleEvent(ev music.NoteEvent) {
	switch e := ev.(type) {
	case music.NoteOn:
		ns.NoteOn(e.Note)
	case music.NoteOff:
		ns.NoteOff(e.Note)
	case music.ChangeWaveform:
		ns.SetWaveform(e.Waveform)
	case music.ChangeOctave:
		ns.ChangeOctave(e.Direction)
	case music.ToggleTremolo:
		if ns.tremolo != nil {
			on := ns.tremolo.Toggle()
			ns.logger.Info("tremolo", "enabled", on)
		}
	case music.ChangeKey:
		ns.ChangeKey(e.Root)
	case music.AdjustTremolo:
		if ns.tremolo != nil {
			ns.tremolo.SetRate(ns.tremolo.Rate() + e.Rate)
			ns.tremolo.SetDepth(ns.tremolo.Depth() + e.Depth)
			ns.logger.Debug("tremolo", "rate", ns.tremolo.Rate(), "depth", ns.tremolo.Depth())
		}
	default:
		ns.logger.Warn("unhandled event", "event", ev)
	}
}

// update publishes a modified copy of the playing map
func (ns *NoteState) update(fn func(m map[string]bool) bool) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	next := maps.Clone(*ns.playing.Load())
	if fn(next) {
		ns.playing.Store(&next)
	}
}

// NoteOn flags a note as playing
func (ns *NoteState) NoteOn(note string) {
	if _, ok := ns.Scale().CalculateFrequency(note); !ok {
		ns.logger.Warn("unknown note", "note", note)
	}
	ns.update(func(m map[string]bool) bool {
		if m[note] {
			return false
		}
		m[note] = true
		return true
	})
	ns.logger.Debug("note on", "note", note)
}

// NoteOff clears a note's playing flag
func (ns *NoteState) NoteOff(note string) {
	ns.update(func(m map[string]bool) bool {
		if !m[note] {
			return false
		}
		delete(m, note)
		return true
	})
	ns.logger.Debug("note off", "note", note)
}

// AllNotesOff clears every playing flag
func (ns *NoteState) AllNotesOff() {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	empty := map[string]bool{}
	ns.playing.Store(&empty)
}

// Playing returns the current playing-map snapshot. Do not modify it.
func (ns *NoteState) Playing() map[string]bool {
	return *ns.playing.Load()
}

// IsPlaying reports whether a note is flagged
func (ns *NoteState) IsPlaying(note string) bool {
	return ns.Playing()[note]
}

// PlayingNotes returns the flagged notes in sorted order
func (ns *NoteState) PlayingNotes() []string {
	m := ns.Playing()
	out := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// SetWaveform selects the waveform of every voice
func (ns *NoteState) SetWaveform(w music.Waveform) {
	if !w.Valid() {
		ns.logger.Warn("invalid waveform", "waveform", int32(w))
		return
	}
	ns.waveform.Store(int32(w))
	ns.logger.Info("waveform", "waveform", w)
}

// Waveform returns the selected waveform
func (ns *NoteState) Waveform() music.Waveform {
	return music.Waveform(ns.waveform.Load())
}

// ChangeOctave shifts new notes by one octave, saturating at ±2
func (ns *NoteState) ChangeOctave(d music.Direction) int {
	for {
		cur := ns.octave.Load()
		next := min(max(int(cur)+d.Step(), MinOctave), MaxOctave)
		if ns.octave.CompareAndSwap(cur, int32(next)) {
			ns.logger.Info("octave", "octave", next)
			return next
		}
	}
}

// Octave returns the octave shift
func (ns *NoteState) Octave() int {
	return int(ns.octave.Load())
}

// Scale returns the current scale
func (ns *NoteState) Scale() music.Scale {
	return *ns.scale.Load()
}

// SetScale replaces the scale
func (ns *NoteState) SetScale(s music.Scale) {
	s = s.WithRoot(s.Root)
	ns.scale.Store(&s)
}

// ChangeKey moves the scale root; unknown roots are ignored
func (ns *NoteState) ChangeKey(root string) {
	if _, _, ok := music.ParseNote(root); !ok {
		ns.logger.Warn("unknown key", "root", root)
		return
	}
	ns.SetScale(ns.Scale().WithRoot(root))
	ns.logger.Info("key", "root", root)
}

// Tremolo returns the shared tremolo (may be nil)
func (ns *NoteState) Tremolo() *TremoloEffect { return ns.tremolo }
