// Package audio implements the synthesis engine
package audio

import (
	"math"

	"github.com/voidfemme/visualsynth/pkg/music"
)

// WavetableSize is the number of entries in one wavetable period
const WavetableSize = 1024

// wavetables are built once and only read afterwards
var wavetables [music.NumWaveforms][WavetableSize]float64

func init() {
	for i := 0; i < WavetableSize; i++ {
		p := float64(i) / WavetableSize
		wavetables[music.WaveSilence][i] = 0
		wavetables[music.WaveSine][i] = math.Sin(2 * math.Pi * p)
		wavetables[music.WaveSquare][i] = square(p)
		wavetables[music.WaveSawtooth][i] = sawtooth(p)
		wavetables[music.WaveTriangle][i] = triangle(p)
	}
}

// Triangle wave: /\/\/\
func triangle(p float64) float64 {
	if p < 0.5 {
		return 4.0*p - 1.0
	}
	return 3.0 - 4.0*p
}

// Sawtooth wave: /|/|/|
func sawtooth(p float64) float64 {
	return 2.0*p - 1.0
}

// Square wave: _|-|_|-|
func square(p float64) float64 {
	if p < 0.5 {
		return 1.0
	}
	return -1.0
}

// Wavetable returns the shared table of a waveform (silence if unknown)
func Wavetable(w music.Waveform) *[WavetableSize]float64 {
	if !w.Valid() {
		w = music.WaveSilence
	}
	return &wavetables[w]
}

// WaveformGenerator reads a wavetable with linear interpolation
type WaveformGenerator struct {
	table      *[WavetableSize]float64
	waveform   music.Waveform
	frequency  float64
	sampleRate float64
	phase      float64 // 0.0 to 1.0
	increment  float64
}

// NewWaveformGenerator creates a generator starting at phase 0
func NewWaveformGenerator(w music.Waveform, frequency, sampleRate float64) *WaveformGenerator {
	if !w.Valid() {
		w = music.WaveSilence
	}
	g := &WaveformGenerator{
		table:      Wavetable(w),
		waveform:   w,
		sampleRate: sampleRate,
	}
	g.SetFrequency(frequency)
	return g
}

// SetFrequency changes the phase increment and keeps the phase
func (g *WaveformGenerator) SetFrequency(freq float64) {
	g.frequency = freq
	if g.sampleRate > 0 {
		g.increment = freq / g.sampleRate
	} else {
		g.increment = 0
	}
}

// Frequency returns the generator frequency in Hz
func (g *WaveformGenerator) Frequency() float64 { return g.frequency }

// Waveform returns the table the generator reads
func (g *WaveformGenerator) Waveform() music.Waveform { return g.waveform }

// SampleRate returns the sample rate in Hz
func (g *WaveformGenerator) SampleRate() float64 { return g.sampleRate }

// Phase returns the current phase in [0, 1)
func (g *WaveformGenerator) Phase() float64 { return g.phase }

// SetPhase moves the read position, wrapping into [0, 1)
func (g *WaveformGenerator) SetPhase(p float64) {
	g.phase = wrapPhase(p)
}

// Sample returns the next value (-1.0 to 1.0) and advances the phase
func (g *WaveformGenerator) Sample() float64 {
	pos := g.phase * WavetableSize
	i := int(pos)
	frac := pos - float64(i)
	if i >= WavetableSize {
		i, frac = WavetableSize-1, 0
	}
	a := g.table[i]
	b := g.table[(i+1)%WavetableSize]
	v := a + (b-a)*frac

	g.phase = wrapPhase(g.phase + g.increment)
	return v
}

func wrapPhase(p float64) float64 {
	if p >= 0 && p < 1 {
		return p
	}
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	p -= math.Floor(p)
	if p >= 1 {
		// tiny negative inputs round up to exactly 1
		p = 0
	}
	return p
}
