// Package analysis measures rendered audio: level and spectral peak
package analysis

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// ErrTooShort is returned when there are too few samples to analyze
var ErrTooShort = errors.New("signal too short")

// Result summarizes a signal
type Result struct {
	Peak      float64 // max |x|
	RMS       float64
	Dominant  float64 // Hz
	Magnitude float64 // spectral magnitude at the dominant bin
}

// Analyze measures level and dominant frequency
func Analyze(samples []float64, sampleRate float64) (Result, error) {
	if len(samples) < 2 {
		return Result{}, ErrTooShort
	}
	res := Result{
		Peak: vecmath.MaxAbs(samples),
		RMS:  math.Sqrt(vecmath.DotProduct(samples, samples) / float64(len(samples))),
	}
	freq, mag, err := DominantFrequency(samples, sampleRate)
	if err != nil {
		return res, err
	}
	res.Dominant = freq
	res.Magnitude = mag
	return res, nil
}

// DominantFrequency finds the strongest spectral component. The signal is
// Hann windowed and zero padded to at least four times its length; the
// peak is refined by parabolic interpolation.
func DominantFrequency(samples []float64, sampleRate float64) (freq, magnitude float64, err error) {
	n := len(samples)
	if n < 2 {
		return 0, 0, ErrTooShort
	}
	size := nextPow2(4 * n)
	pow, err := PowerSpectrum(samples, size)
	if err != nil {
		return 0, 0, err
	}

	// skip DC
	best := 1
	for k := 2; k < len(pow); k++ {
		if pow[k] > pow[best] {
			best = k
		}
	}
	delta := 0.0
	if best+1 < len(pow) {
		a := math.Log(pow[best-1] + 1e-300)
		b := math.Log(pow[best] + 1e-300)
		c := math.Log(pow[best+1] + 1e-300)
		if d := a - 2*b + c; d != 0 {
			delta = 0.5 * (a - c) / d
		}
	}
	binHz := sampleRate / float64(size)
	return (float64(best) + delta) * binHz, math.Sqrt(pow[best]), nil
}

// PowerSpectrum returns |X[k]|² for k in [0, size/2] of the Hann-windowed
// signal zero padded to size (a power of two, at least len(samples))
func PowerSpectrum(samples []float64, size int) ([]float64, error) {
	if size < len(samples) || size&(size-1) != 0 {
		return nil, fmt.Errorf("fft size %d invalid for %d samples", size, len(samples))
	}
	windowed := make([]float64, len(samples))
	vecmath.MulBlock(windowed, samples, hann(len(samples)))

	in := make([]complex128, size)
	for i, v := range windowed {
		in[i] = complex(v, 0)
	}
	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("fft plan: %w", err)
	}
	out := make([]complex128, size)
	if err := plan.Forward(out, in); err != nil {
		return nil, fmt.Errorf("fft: %w", err)
	}

	bins := size/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)
	for k := 0; k < bins; k++ {
		re[k] = real(out[k])
		im[k] = imag(out[k])
	}
	pow := make([]float64, bins)
	vecmath.Power(pow, re, im)
	return pow, nil
}

func hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Capture keeps the first Limit samples it is given
type Capture struct {
	Limit int
	data  []float64
}

// NewCapture creates a capture holding up to limit samples
func NewCapture(limit int) *Capture {
	return &Capture{Limit: limit, data: make([]float64, 0, limit)}
}

// Add appends samples until the limit is reached
func (c *Capture) Add(samples []float64) {
	room := c.Limit - len(c.data)
	if room <= 0 {
		return
	}
	c.data = append(c.data, samples[:min(room, len(samples))]...)
}

// Samples returns the captured signal
func (c *Capture) Samples() []float64 { return c.data }
