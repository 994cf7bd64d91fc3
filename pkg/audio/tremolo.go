package audio

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-vecmath"
)

// TremoloTableSize is the number of steps in one LFO cycle
const TremoloTableSize = 1024

// Tremolo parameter limits
const (
	MinTremoloRate = 0.01
	MaxTremoloRate = 20.0
)

// TremoloConfig holds the initial tremolo settings
type TremoloConfig struct {
	Rate    float64 `yaml:"rate"`
	Depth   float64 `yaml:"depth"`
	Enabled bool    `yaml:"enabled"`
}

// DefaultTremolo is 5 Hz at half depth, switched off
var DefaultTremolo = TremoloConfig{Rate: 5, Depth: 0.5}

// TremoloEffect is an LFO amplitude modulator shared by every voice.
// Rate, depth and the enabled flag may be changed from any goroutine;
// the table and cursor belong to the audio goroutine.
type TremoloEffect struct {
	enabled atomic.Bool
	rate    atomic.Uint64 // float64 bits
	depth   atomic.Uint64 // float64 bits
	reset   atomic.Bool   // cursor reset pending

	// audio side
	table      [TremoloTableSize]float64
	tableDepth float64
	cursor     float64 // fractional table position
	gains      []float64
	inBlock    bool
	active     bool
}

// NewTremoloEffect creates a tremolo with clamped settings
func NewTremoloEffect(cfg TremoloConfig) *TremoloEffect {
	t := &TremoloEffect{}
	t.SetRate(cfg.Rate)
	t.SetDepth(cfg.Depth)
	t.SetEnabled(cfg.Enabled)
	t.buildTable(t.Depth())
	return t
}

// Rate returns the LFO frequency in Hz
func (t *TremoloEffect) Rate() float64 { return math.Float64frombits(t.rate.Load()) }

// Depth returns the modulation depth (0.0 to 1.0)
func (t *TremoloEffect) Depth() float64 { return math.Float64frombits(t.depth.Load()) }

// Enabled reports whether the tremolo is applied
func (t *TremoloEffect) Enabled() bool { return t.enabled.Load() }

// SetRate sets the LFO frequency, clamped to (0, 20] Hz
func (t *TremoloEffect) SetRate(rate float64) {
	if math.IsNaN(rate) || rate < MinTremoloRate {
		rate = MinTremoloRate
	}
	if rate > MaxTremoloRate {
		rate = MaxTremoloRate
	}
	t.rate.Store(math.Float64bits(rate))
}

// SetDepth sets the modulation depth, clamped to 0.0-1.0
func (t *TremoloEffect) SetDepth(depth float64) {
	if math.IsNaN(depth) {
		depth = 0
	}
	t.depth.Store(math.Float64bits(clamp(depth, 0, 1)))
}

// SetEnabled switches the tremolo; switching it on restarts the LFO cycle
func (t *TremoloEffect) SetEnabled(on bool) {
	if was := t.enabled.Swap(on); on && !was {
		t.reset.Store(true)
	}
}

// Toggle flips the enabled flag and returns the new state
func (t *TremoloEffect) Toggle() bool {
	for {
		was := t.enabled.Load()
		if t.enabled.CompareAndSwap(was, !was) {
			if !was {
				t.reset.Store(true)
			}
			return !was
		}
	}
}

func (t *TremoloEffect) buildTable(depth float64) {
	for i := range t.table {
		t.table[i] = 1 - depth*math.Sin(2*math.Pi*float64(i)/TremoloTableSize)
	}
	t.tableDepth = depth
}

// sync picks up control-side changes before the audio side reads the table
func (t *TremoloEffect) sync() {
	if t.reset.Swap(false) {
		t.cursor = 0
	}
	if d := t.Depth(); d != t.tableDepth {
		t.buildTable(d)
	}
}

// next returns the current gain and advances the cursor by one sample.
// One cycle spans sampleRate/rate samples, so the cursor moves
// TremoloTableSize*rate/sampleRate table steps per sample.
func (t *TremoloEffect) next(sampleRate float64) float64 {
	g := t.table[int(t.cursor)%TremoloTableSize]
	if sampleRate > 0 {
		t.cursor += TremoloTableSize * t.Rate() / sampleRate
		if t.cursor >= TremoloTableSize {
			t.cursor = math.Mod(t.cursor, TremoloTableSize)
		}
	}
	return g
}

// Process modulates a single sample and advances the LFO. A disabled
// tremolo returns the sample unchanged.
func (t *TremoloEffect) Process(sample, sampleRate float64) float64 {
	if !t.Enabled() {
		return sample
	}
	t.sync()
	return sample * t.next(sampleRate)
}

// Begin computes the gains of the next n frames and advances the LFO once
// for the whole block, so every voice sees the same modulation.
func (t *TremoloEffect) Begin(n int, sampleRate float64) {
	t.inBlock = true
	t.active = t.Enabled()
	if !t.active {
		return
	}
	if cap(t.gains) < n {
		t.gains = make([]float64, n)
	}
	t.gains = t.gains[:n]
	t.sync()
	for i := range t.gains {
		t.gains[i] = t.next(sampleRate)
	}
}

// End closes the block opened by Begin
func (t *TremoloEffect) End() {
	t.inBlock = false
	t.active = false
}

// Apply modulates sample i of the current block
func (t *TremoloEffect) Apply(i int, s float64) float64 {
	if !t.inBlock || !t.active || i >= len(t.gains) {
		return s
	}
	return s * t.gains[i]
}

// Modulate applies the tremolo to a run of samples in place. Inside a
// block it uses the block gains; otherwise it advances the LFO itself.
func (t *TremoloEffect) Modulate(out []float64, sampleRate float64) {
	if t.inBlock {
		if !t.active {
			return
		}
		n := min(len(out), len(t.gains))
		vecmath.MulBlockInPlace(out[:n], t.gains[:n])
		return
	}
	for i := range out {
		out[i] = t.Process(out[i], sampleRate)
	}
}
