package audio

import (
	"math"
	"testing"

	"github.com/voidfemme/visualsynth/pkg/music"
)

func TestGeneratorRange(t *testing.T) {
	rates := []float64{8000, 44100, 48000, 96000}
	freqs := []float64{0, 1, 27.5, 440, 4186, 20000, 30000, 96000, -440}
	for w := music.Waveform(0); int(w) < music.NumWaveforms; w++ {
		for _, sr := range rates {
			for _, f := range freqs {
				g := NewWaveformGenerator(w, f, sr)
				for i := 0; i < 2000; i++ {
					v := g.Sample()
					if v < -1 || v > 1 {
						t.Fatalf("%v %v Hz @%v: sample %d = %v out of range", w, f, sr, i, v)
					}
					if p := g.Phase(); p < 0 || p >= 1 {
						t.Fatalf("%v %v Hz @%v: phase %v out of [0,1)", w, f, sr, p)
					}
				}
			}
		}
	}
}

func TestGeneratorStartsAtZeroPhase(t *testing.T) {
	g := NewWaveformGenerator(music.WaveSine, 440, 44100)
	if g.Phase() != 0 {
		t.Fatalf("phase = %v, want 0", g.Phase())
	}
	if v := g.Sample(); v != 0 {
		t.Fatalf("first sine sample = %v, want 0", v)
	}
	if want := 440.0 / 44100; math.Abs(g.Phase()-want) > 1e-12 {
		t.Fatalf("phase = %v, want %v", g.Phase(), want)
	}
}

func TestGeneratorInterpolates(t *testing.T) {
	g := NewWaveformGenerator(music.WaveSawtooth, 0, 44100)
	// halfway between entries 0 and 1 of the ramp
	g.SetPhase(0.5 / WavetableSize)
	want := (wavetables[music.WaveSawtooth][0] + wavetables[music.WaveSawtooth][1]) / 2
	if v := g.Sample(); math.Abs(v-want) > 1e-12 {
		t.Fatalf("interpolated = %v, want %v", v, want)
	}
}

func TestSetFrequencyKeepsPhase(t *testing.T) {
	g := NewWaveformGenerator(music.WaveTriangle, 440, 44100)
	for i := 0; i < 37; i++ {
		g.Sample()
	}
	p := g.Phase()
	g.SetFrequency(880)
	if g.Phase() != p {
		t.Fatalf("phase moved from %v to %v", p, g.Phase())
	}
	if g.Frequency() != 880 {
		t.Fatalf("frequency = %v", g.Frequency())
	}
}

func TestSetPhaseWraps(t *testing.T) {
	g := NewWaveformGenerator(music.WaveSine, 440, 44100)
	for _, tt := range []struct{ in, want float64 }{
		{1.25, 0.25}, {-0.25, 0.75}, {3, 0}, {-1e-18, 0},
	} {
		g.SetPhase(tt.in)
		if math.Abs(g.Phase()-tt.want) > 1e-12 {
			t.Fatalf("SetPhase(%v) -> %v, want %v", tt.in, g.Phase(), tt.want)
		}
	}
}

func TestWavetableShapes(t *testing.T) {
	sq := Wavetable(music.WaveSquare)
	if sq[0] != 1 || sq[WavetableSize-1] != -1 {
		t.Fatalf("square edges = %v, %v", sq[0], sq[WavetableSize-1])
	}
	saw := Wavetable(music.WaveSawtooth)
	if saw[0] != -1 {
		t.Fatalf("saw start = %v, want -1", saw[0])
	}
	tri := Wavetable(music.WaveTriangle)
	if tri[WavetableSize/2] != 1 {
		t.Fatalf("triangle peak = %v, want 1", tri[WavetableSize/2])
	}
	for _, v := range Wavetable(music.WaveSilence) {
		if v != 0 {
			t.Fatal("silence table is not zero")
		}
	}
	if Wavetable(music.Waveform(42)) != Wavetable(music.WaveSilence) {
		t.Fatal("unknown waveform should map to silence")
	}
}
