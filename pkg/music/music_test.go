package music

import (
	"errors"
	"math"
	"testing"
)

func TestNoteFrequency(t *testing.T) {
	tests := []struct {
		name string
		want float64
	}{
		{"A", 440},
		{"a4", 440},
		{"A5", 880},
		{"A3", 220},
		{"C", 261.6256},
		{"C_HIGH", 523.2511},
		{"c#", 277.1826},
		{"F_SHARP3", 184.9972},
	}
	for _, tt := range tests {
		got, ok := NoteFrequency(tt.name)
		if !ok {
			t.Fatalf("NoteFrequency(%q) not found", tt.name)
		}
		if math.Abs(got-tt.want) > 0.01 {
			t.Fatalf("NoteFrequency(%q) = %.4f, want %.4f", tt.name, got, tt.want)
		}
	}
}

func TestNoteFrequencyUnknown(t *testing.T) {
	for _, name := range []string{"", "H", "X4", "C_FLAT", "4", "A10", "A400", "C999999"} {
		if _, ok := NoteFrequency(name); ok {
			t.Fatalf("NoteFrequency(%q) should fail", name)
		}
	}
}

func TestScaleFrequencyOfA(t *testing.T) {
	s := MajorScale("C")
	got, ok := s.CalculateFrequency("A")
	if !ok || math.Abs(got-440) > 1e-9 {
		t.Fatalf("frequency(A) = %v, %v; want 440", got, ok)
	}
	// root does not move the reference
	got, _ = s.WithRoot("D").CalculateFrequency("A")
	if math.Abs(got-440) > 1e-9 {
		t.Fatalf("frequency(A) in D = %v, want 440", got)
	}
}

func TestScaleNoteAt(t *testing.T) {
	s := MajorScale("C")
	want := []string{"C", "D", "E", "F", "G", "A", "B", "C5", "D5"}
	got := s.Notes(len(want))
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("degree %d = %q, want %q (all %v)", i+1, got[i], want[i], got)
		}
	}

	d := s.WithRoot("D")
	if n, _ := d.NoteAt(3); n != "F_SHARP" {
		t.Fatalf("D major third = %q, want F_SHARP", n)
	}
	if n, _ := d.NoteAt(7); n != "C_SHARP5" {
		t.Fatalf("D major seventh = %q, want C_SHARP5", n)
	}
	if _, ok := s.NoteAt(0); ok {
		t.Fatal("degree 0 should not resolve")
	}
	for _, n := range []int{0, -1} {
		if got := s.Notes(n); got != nil {
			t.Fatalf("Notes(%d) = %v, want nil", n, got)
		}
	}
}

func TestParseNoteOctaveRange(t *testing.T) {
	if _, oct, ok := ParseNote("C9"); !ok || oct != 9 {
		t.Fatalf("C9 = %d, %v", oct, ok)
	}
	if _, oct, ok := ParseNote("a0"); !ok || oct != 0 {
		t.Fatalf("a0 = %d, %v", oct, ok)
	}
	for _, name := range []string{"C10", "A400", "C999999"} {
		if _, _, ok := ParseNote(name); ok {
			t.Fatalf("ParseNote(%q) accepted", name)
		}
	}
}

func TestWithRootCopiesIntervals(t *testing.T) {
	s := MajorScale("C")
	d := s.WithRoot("D")
	d.Intervals[0] = 7
	if s.Intervals[0] != 2 {
		t.Fatal("WithRoot shares interval storage")
	}
}

func TestNoteNameNegative(t *testing.T) {
	if got := NoteName(-1); got != "B3" {
		t.Fatalf("NoteName(-1) = %q, want B3", got)
	}
	if got := NoteName(-12); got != "C3" {
		t.Fatalf("NoteName(-12) = %q, want C3", got)
	}
}

func TestParseWaveform(t *testing.T) {
	for w := Waveform(0); int(w) < NumWaveforms; w++ {
		got, err := ParseWaveform(w.String())
		if err != nil || got != w {
			t.Fatalf("ParseWaveform(%q) = %v, %v", w.String(), got, err)
		}
	}
	if got, _ := ParseWaveform(" Saw "); got != WaveSawtooth {
		t.Fatalf("saw alias = %v", got)
	}
	if _, err := ParseWaveform("noise"); !errors.Is(err, ErrUnknownWaveform) {
		t.Fatalf("err = %v, want ErrUnknownWaveform", err)
	}
}

func TestDirectionStep(t *testing.T) {
	if Up.Step() != 1 || Down.Step() != -1 || Direction("sideways").Step() != 0 {
		t.Fatal("unexpected direction steps")
	}
}
