package audio

import (
	"math"
	"testing"
)

func TestTremoloDisabledIsIdentity(t *testing.T) {
	tr := NewTremoloEffect(TremoloConfig{Rate: 5, Depth: 1})
	for i := 0; i < 1000; i++ {
		x := math.Sin(float64(i) * 0.1)
		if got := tr.Process(x, 44100); got != x {
			t.Fatalf("disabled tremolo changed %v to %v", x, got)
		}
	}
}

func TestTremoloZeroDepthIsIdentity(t *testing.T) {
	tr := NewTremoloEffect(TremoloConfig{Rate: 7, Depth: 0, Enabled: true})
	for i := 0; i < 44100; i++ {
		if got := tr.Process(0.3, 44100); got != 0.3 {
			t.Fatalf("sample %d: %v, want 0.3", i, got)
		}
	}
}

func TestTremoloToggleTwiceRestores(t *testing.T) {
	tr := NewTremoloEffect(DefaultTremolo)
	before := tr.Enabled()
	tr.Toggle()
	if tr.Enabled() == before {
		t.Fatal("Toggle did not flip")
	}
	tr.Toggle()
	if tr.Enabled() != before {
		t.Fatal("Toggle twice did not restore")
	}
}

func TestTremoloEnabledFromConfig(t *testing.T) {
	tr := NewTremoloEffect(TremoloConfig{Rate: 5, Depth: 1, Enabled: true})
	if !tr.Enabled() {
		t.Fatal("Enabled config not applied")
	}
	// first gain is table[0] = 1
	if got := tr.Process(0.5, 44100); got != 0.5 {
		t.Fatalf("first sample = %v, want 0.5", got)
	}
	tr.SetEnabled(false)
	if tr.Enabled() {
		t.Fatal("SetEnabled(false) ignored")
	}
}

func TestTremoloEnableResetsCursor(t *testing.T) {
	tr := NewTremoloEffect(TremoloConfig{Rate: 5, Depth: 0.5, Enabled: true})
	for i := 0; i < 3000; i++ {
		tr.Process(1, 44100)
	}
	tr.Toggle()
	tr.Toggle()
	// table[0] = 1 - depth*sin(0)
	if got := tr.Process(1, 44100); got != 1 {
		t.Fatalf("first gain after re-enable = %v, want 1", got)
	}
}

func TestTremoloCycleLength(t *testing.T) {
	const sr = 48000.0
	tr := NewTremoloEffect(TremoloConfig{Rate: 4, Depth: 1, Enabled: true})
	// gain = 1 - sin: minimum 0 at a quarter cycle, back to 1 after a full one
	quarter := int(sr / 4 / 4)
	var g float64
	for i := 0; i <= quarter; i++ {
		g = tr.Process(1, sr)
	}
	if g > 0.01 {
		t.Fatalf("gain at quarter cycle = %v, want ~0", g)
	}
	for i := quarter + 1; i <= int(sr/4); i++ {
		g = tr.Process(1, sr)
	}
	if math.Abs(g-1) > 0.01 {
		t.Fatalf("gain after one cycle = %v, want ~1", g)
	}
}

func TestTremoloGainRange(t *testing.T) {
	tr := NewTremoloEffect(TremoloConfig{Rate: 20, Depth: 0.5, Enabled: true})
	for i := 0; i < 10000; i++ {
		g := tr.Process(1, 44100)
		if g < 0.5-1e-9 || g > 1.5+1e-9 {
			t.Fatalf("gain %v outside [0.5, 1.5]", g)
		}
	}
}

func TestTremoloClamps(t *testing.T) {
	tr := NewTremoloEffect(TremoloConfig{Rate: 100, Depth: 2})
	if tr.Rate() != MaxTremoloRate || tr.Depth() != 1 {
		t.Fatalf("rate %v depth %v not clamped", tr.Rate(), tr.Depth())
	}
	tr.SetRate(-3)
	tr.SetDepth(-1)
	if tr.Rate() <= 0 || tr.Depth() != 0 {
		t.Fatalf("rate %v depth %v not clamped", tr.Rate(), tr.Depth())
	}
}

func TestTremoloBlockIsSharedAcrossVoices(t *testing.T) {
	tr := NewTremoloEffect(TremoloConfig{Rate: 5, Depth: 0.8, Enabled: true})
	tr.Begin(256, 44100)
	a := make([]float64, 256)
	b := make([]float64, 256)
	for i := range a {
		a[i], b[i] = 1, 1
	}
	tr.Modulate(a, 44100)
	tr.Modulate(b, 44100)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("voices diverge at %d: %v vs %v", i, a[i], b[i])
		}
		if got := tr.Apply(i, 1); got != a[i] {
			t.Fatalf("Apply(%d) = %v, want %v", i, got, a[i])
		}
	}
	tr.End()

	// one block of 256 advances the LFO exactly as 256 single steps do
	ref := NewTremoloEffect(TremoloConfig{Rate: 5, Depth: 0.8, Enabled: true})
	for i := 0; i < 256; i++ {
		ref.Process(1, 44100)
	}
	if got, want := tr.Process(1, 44100), ref.Process(1, 44100); got != want {
		t.Fatalf("after block gain = %v, want %v", got, want)
	}
}

func TestTremoloDepthChangeRebuildsTable(t *testing.T) {
	tr := NewTremoloEffect(TremoloConfig{Rate: 1, Depth: 0.5, Enabled: true})
	// move to a quarter cycle where gain = 1 - depth
	for i := 0; i < 11025; i++ {
		tr.Process(1, 44100)
	}
	tr.SetDepth(0.25)
	if g := tr.Process(1, 44100); math.Abs(g-0.75) > 0.01 {
		t.Fatalf("gain = %v, want ~0.75", g)
	}
}
