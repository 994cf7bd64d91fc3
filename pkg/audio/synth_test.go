package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/voidfemme/visualsynth/pkg/analysis"
	"github.com/voidfemme/visualsynth/pkg/music"
)

func newTestSynth(t *testing.T, cfg SynthConfig) *Synth {
	t.Helper()
	ns := NewNoteState(music.MajorScale("C"), music.WaveSine, NewTremoloEffect(DefaultTremolo), nil)
	s, err := NewSynth(cfg, ns, nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSineVoiceSpectralPeak(t *testing.T) {
	osc := NewOscillator(VoiceConfig{
		Waveform:   music.WaveSine,
		Frequency:  440,
		SampleRate: 44100,
		Note:       "A",
		Envelope:   music.Envelope{Attack: 0, Decay: 0, Sustain: 1, Release: 10},
	})
	osc.StartNote(0)
	out := make([]float64, 512)
	osc.GenerateWave(0, out)

	freq, _, err := analysis.DominantFrequency(out, 44100)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(freq-440) > 10 {
		t.Fatalf("spectral peak at %.1f Hz, want ~440", freq)
	}
}

func TestSilentVoiceWithoutStart(t *testing.T) {
	osc := NewOscillator(VoiceConfig{Waveform: music.WaveSquare, Frequency: 440, SampleRate: 44100})
	out := []float64{1, 2, 3}
	osc.GenerateWave(0, out)
	for _, v := range out {
		if v != 0 {
			t.Fatalf("unstarted voice wrote %v", out)
		}
	}
	if osc.Active() {
		t.Fatal("unstarted voice is active")
	}
}

func TestReleaseNote(t *testing.T) {
	osc := NewOscillator(VoiceConfig{
		Waveform: music.WaveSine, Frequency: 440, SampleRate: 44100,
		Envelope: music.Envelope{Attack: 0.1, Decay: 0.1, Sustain: 0.5, Release: 0.1},
	})
	osc.StartNote(1)
	if osc.ReleaseNote(1.2) {
		t.Fatal("released while the envelope is still sounding")
	}
	if !osc.ReleaseNote(1.3) || osc.Active() {
		t.Fatal("not released after the envelope ended")
	}
}

func TestSynthRenderStereo(t *testing.T) {
	s := newTestSynth(t, SynthConfig{SampleRate: 48000, Channels: 2, Shaper: ShaperNone, VoiceGain: 0.5})
	s.Notes().NoteOn("A")
	buf := NewAudioBuffer(2, 480)
	if err := s.Render(buf); err != nil {
		t.Fatal(err)
	}
	l, r := buf.Channel(0), buf.Channel(1)
	nonZero := false
	for i := range l {
		if l[i] != r[i] {
			t.Fatalf("channels differ at %d", i)
		}
		if l[i] != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		t.Fatal("rendered silence")
	}
	if s.VoiceCount() != 1 {
		t.Fatalf("voice count = %d", s.VoiceCount())
	}
	if math.Abs(s.Time()-0.01) > 1e-12 {
		t.Fatalf("time = %v, want 0.01", s.Time())
	}
	if s.Peak() <= 0 || s.Peak() > 0.5 {
		t.Fatalf("peak = %v", s.Peak())
	}
}

func TestSynthShapedOutputFeedsDecimator(t *testing.T) {
	s := newTestSynth(t, SynthConfig{SampleRate: 6000, Channels: 1, Shaper: ShaperSine, VoiceGain: 1,
		Envelope: music.Envelope{Sustain: 1, Release: 100}})
	s.Notes().SetWaveform(music.WaveSquare)
	s.Notes().NoteOn("A")
	buf := NewAudioBuffer(1, 100) // decimation factor is 100
	if err := s.Render(buf); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if snap.Count != 1 {
		t.Fatalf("count = %d, want 1", snap.Count)
	}
	var sum float64
	for _, v := range buf.Channel(0) {
		sum += v
		if math.Abs(v) > math.Sin(1)+1e-9 {
			t.Fatalf("sample %v not shaped by sin", v)
		}
	}
	if want := float32(sum / 100); math.Abs(float64(snap.Grid[0][0]-want)) > 1e-6 {
		t.Fatalf("grid[0][0] = %v, want %v", snap.Grid[0][0], want)
	}
}

func TestSynthUnknownShaper(t *testing.T) {
	ns := NewNoteState(music.MajorScale("C"), music.WaveSine, nil, nil)
	if _, err := NewSynth(SynthConfig{SampleRate: 44100, Shaper: "fuzz"}, ns, nil); !errors.Is(err, ErrUnknownShaper) {
		t.Fatalf("err = %v, want ErrUnknownShaper", err)
	}
}

func TestExportWAV(t *testing.T) {
	s := newTestSynth(t, SynthConfig{SampleRate: 8000, Channels: 1})
	job := &RenderJob{
		Synth:   s,
		Seconds: 0.5,
		Events: []TimedEvent{
			{At: 0.25, Event: music.NoteOff{Note: "A"}},
			{At: 0, Event: music.NoteOn{Note: "A"}},
		},
		BlockSize: 300,
	}
	var blocks int
	job.Tap = func(*AudioBuffer) { blocks++ }

	var out bytes.Buffer
	if err := ExportWAV(&out, job, FormatS16); err != nil {
		t.Fatal(err)
	}
	b := out.Bytes()
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE header")
	}
	if got := binary.LittleEndian.Uint32(b[40:44]); got != 8000 {
		t.Fatalf("data size = %d, want 8000", got)
	}
	if len(b) != 44+8000 {
		t.Fatalf("file size = %d", len(b))
	}
	// 4000 frames split at 2000: 300*6+200, then 300*6+200
	if blocks != 14 {
		t.Fatalf("blocks = %d, want 14", blocks)
	}
	if s.Notes().IsPlaying("A") {
		t.Fatal("note off not applied")
	}
}

func TestExportWAVRejectsU16(t *testing.T) {
	s := newTestSynth(t, SynthConfig{SampleRate: 8000})
	err := ExportWAV(&bytes.Buffer{}, &RenderJob{Synth: s, Seconds: 0.1}, FormatU16)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestExportRawU16(t *testing.T) {
	s := newTestSynth(t, SynthConfig{SampleRate: 8000, Channels: 2})
	var out bytes.Buffer
	if err := ExportRaw(&out, &RenderJob{Synth: s, Seconds: 0.01}, FormatU16); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 80*2*2 {
		t.Fatalf("len = %d, want %d", out.Len(), 80*2*2)
	}
	// silence encodes as the midpoint
	if v := binary.LittleEndian.Uint16(out.Bytes()); v != 32768 {
		t.Fatalf("silence = %d, want 32768", v)
	}
}
