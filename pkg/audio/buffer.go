package audio

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Sentinel errors
var (
	ErrShapeMismatch     = errors.New("buffer shapes differ")
	ErrUnknownShaper     = errors.New("unknown shaper")
	ErrInvalidBuffer     = errors.New("invalid buffer layout")
	ErrUnsupportedFormat = errors.New("unsupported sample format")
)

// AudioBuffer holds planar samples: channel i occupies
// data[i*frames : (i+1)*frames]
type AudioBuffer struct {
	data     []float64
	channels int
}

// NewAudioBuffer allocates a zeroed buffer
func NewAudioBuffer(channels, frames int) *AudioBuffer {
	channels = max(channels, 1)
	return &AudioBuffer{
		data:     make([]float64, channels*max(frames, 0)),
		channels: channels,
	}
}

// WrapAudioBuffer uses data as planar storage without copying
func WrapAudioBuffer(data []float64, channels int) (*AudioBuffer, error) {
	if channels <= 0 || len(data)%channels != 0 {
		return nil, fmt.Errorf("%w: %d samples across %d channels", ErrInvalidBuffer, len(data), channels)
	}
	return &AudioBuffer{data: data, channels: channels}, nil
}

// NumChannels returns the channel count
func (b *AudioBuffer) NumChannels() int { return b.channels }

// NumFrames returns the samples per channel
func (b *AudioBuffer) NumFrames() int { return len(b.data) / b.channels }

// Channel returns a view of one channel
func (b *AudioBuffer) Channel(i int) []float64 {
	n := b.NumFrames()
	return b.data[i*n : (i+1)*n : (i+1)*n]
}

// Data returns the whole planar slice
func (b *AudioBuffer) Data() []float64 { return b.data }

// Clear zeroes every sample
func (b *AudioBuffer) Clear() { clear(b.data) }

// Resize changes the frame count, reusing storage when it fits.
// Contents are not preserved.
func (b *AudioBuffer) Resize(frames int) {
	n := b.channels * max(frames, 0)
	if cap(b.data) < n {
		b.data = make([]float64, n)
		return
	}
	b.data = b.data[:n]
}

// SameShape reports whether two buffers have equal channels and frames
func (b *AudioBuffer) SameShape(o *AudioBuffer) bool {
	return b.channels == o.channels && len(b.data) == len(o.data)
}

// ShapeFunc is a per-sample transfer function
type ShapeFunc func(float64) float64

// Shaper names
const (
	ShaperTanh = "tanh"
	ShaperSine = "sine"
	ShaperSoft = "soft"
	ShaperNone = "none"
)

// WaveShaper applies a transfer function to every sample
type WaveShaper struct {
	Name string
	fn   ShapeFunc
}

// NewWaveShaper looks up a shaper by name
func NewWaveShaper(name string) (*WaveShaper, error) {
	var fn ShapeFunc
	switch strings.ToLower(name) {
	case ShaperTanh, "":
		fn = math.Tanh
	case ShaperSine:
		fn = math.Sin
	case ShaperSoft:
		fn = softLimit
	case ShaperNone:
		fn = nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownShaper, name)
	}
	return NewWaveShaperFunc(strings.ToLower(name), fn), nil
}

// NewWaveShaperFunc wraps an arbitrary transfer function; nil copies the input
func NewWaveShaperFunc(name string, fn ShapeFunc) *WaveShaper {
	return &WaveShaper{Name: name, fn: fn}
}

// Process writes fn(in) into out; in and out may be the same buffer
func (s *WaveShaper) Process(in, out *AudioBuffer) error {
	if !in.SameShape(out) {
		return fmt.Errorf("%w: %dx%d into %dx%d", ErrShapeMismatch,
			in.NumChannels(), in.NumFrames(), out.NumChannels(), out.NumFrames())
	}
	if s.fn == nil {
		copy(out.data, in.data)
		return nil
	}
	for i, v := range in.data {
		out.data[i] = s.fn(v)
	}
	return nil
}

// Soft limiter: linear below 0.9, tanh knee above
func softLimit(x float64) float64 {
	if x > 0.9 {
		return 0.9 + 0.1*math.Tanh((x-0.9)*10)
	}
	if x < -0.9 {
		return -0.9 + 0.1*math.Tanh((x+0.9)*10)
	}
	return x
}
