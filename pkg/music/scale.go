package music

import (
	"math"
	"strconv"
	"strings"
)

// NoteSequence is the chromatic sequence note names are looked up in.
// C_HIGH duplicates the root one octave up.
var NoteSequence = [13]string{
	"C", "C_SHARP", "D", "D_SHARP", "E", "F", "F_SHARP", "G", "G_SHARP", "A", "A_SHARP", "B",
	"C_HIGH",
}

const (
	// ReferenceFrequency is A4 in Hz
	ReferenceFrequency = 440.0
	// ReferenceIndex is the position of "A" in NoteSequence
	ReferenceIndex = 9
	// ReferenceOctave is the octave of unnumbered note names
	ReferenceOctave = 4
	// MaxNoteOctave is the highest octave digit a note name may carry
	MaxNoteOctave = 9
)

// ParseNote splits a note name like "a4", "C_SHARP3" or "F#" into its
// sequence index and octave. Names without a trailing octave are octave 4;
// octaves above 9 are rejected.
func ParseNote(name string) (index, octave int, ok bool) {
	n := strings.ToUpper(strings.TrimSpace(name))
	octave = ReferenceOctave
	end := len(n)
	for end > 0 && n[end-1] >= '0' && n[end-1] <= '9' {
		end--
	}
	if end < len(n) {
		o, err := strconv.Atoi(n[end:])
		if err != nil || o > MaxNoteOctave {
			return 0, 0, false
		}
		octave = o
		n = n[:end]
	}
	n = strings.Replace(n, "#", "_SHARP", 1)
	for i, s := range NoteSequence {
		if s == n {
			return i, octave, true
		}
	}
	return 0, 0, false
}

// NoteFrequency returns 440 * 2^((index-9)/12), shifted by whole octaves
// away from octave 4. Unknown names return false.
func NoteFrequency(name string) (float64, bool) {
	idx, oct, ok := ParseNote(name)
	if !ok {
		return 0, false
	}
	semis := float64(idx-ReferenceIndex) + 12*float64(oct-ReferenceOctave)
	return ReferenceFrequency * math.Pow(2, semis/12), true
}

// NoteName builds the name of the note lying semitones above C4
func NoteName(semitones int) string {
	oct := ReferenceOctave + floorDiv(semitones, 12)
	idx := semitones - 12*floorDiv(semitones, 12)
	if oct == ReferenceOctave {
		return NoteSequence[idx]
	}
	return NoteSequence[idx] + strconv.Itoa(oct)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Scale is a root note plus the semitone steps between scale degrees
type Scale struct {
	Root      string `yaml:"root"`
	Intervals []int  `yaml:"intervals"`
}

// MajorScale returns a major scale on root
func MajorScale(root string) Scale {
	return Scale{Root: root, Intervals: []int{2, 2, 1, 2, 2, 2, 1}}
}

// WithRoot returns a copy of the scale moved to a new root
func (s Scale) WithRoot(root string) Scale {
	iv := make([]int, len(s.Intervals))
	copy(iv, s.Intervals)
	return Scale{Root: root, Intervals: iv}
}

// CalculateFrequency returns the frequency of a note name. The reference is
// fixed at A4 = 440 Hz, so the result does not depend on the root.
func (s Scale) CalculateFrequency(note string) (float64, bool) {
	return NoteFrequency(note)
}

// NoteAt returns the note name of a 1-based scale degree, walking the
// intervals upward from the root and cycling through them as needed.
// An unknown root is treated as C.
func (s Scale) NoteAt(position int) (string, bool) {
	if position <= 0 || len(s.Intervals) == 0 {
		return "", false
	}
	idx, oct, ok := ParseNote(s.Root)
	if !ok {
		idx, oct = 0, ReferenceOctave
	}
	semis := idx + 12*(oct-ReferenceOctave)
	for i := 0; i < position-1; i++ {
		semis += s.Intervals[i%len(s.Intervals)]
	}
	return NoteName(semis), true
}

// Notes lists the first n degrees of the scale
func (s Scale) Notes(n int) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		name, ok := s.NoteAt(i)
		if !ok {
			break
		}
		out = append(out, name)
	}
	return out
}
