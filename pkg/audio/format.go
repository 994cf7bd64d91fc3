package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
)

// SampleFormat is an output sample encoding
type SampleFormat int

const (
	FormatF32 SampleFormat = iota // 32-bit float, little endian
	FormatS16                     // 16-bit signed, little endian
	FormatU16                     // 16-bit unsigned, little endian, offset 32768
)

// String returns the flag spelling of the format
func (f SampleFormat) String() string {
	switch f {
	case FormatF32:
		return "f32"
	case FormatS16:
		return "s16"
	case FormatU16:
		return "u16"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// BytesPerSample returns the encoded size of one sample
func (f SampleFormat) BytesPerSample() int {
	if f == FormatF32 {
		return 4
	}
	return 2
}

// ParseSampleFormat accepts f32, s16 or u16 (and a few aliases)
func ParseSampleFormat(s string) (SampleFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "f32", "float32", "float":
		return FormatF32, nil
	case "s16", "i16", "int16":
		return FormatS16, nil
	case "u16", "uint16":
		return FormatU16, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// MarshalText implements encoding.TextMarshaler
func (f SampleFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (f *SampleFormat) UnmarshalText(text []byte) error {
	v, err := ParseSampleFormat(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// EncodeInterleaved converts a planar buffer into interleaved little-endian
// samples. Values are clamped to -1.0..1.0 first. It returns the number of
// bytes written.
func EncodeInterleaved(dst []byte, buf *AudioBuffer, f SampleFormat) (int, error) {
	ch := buf.NumChannels()
	frames := buf.NumFrames()
	bps := f.BytesPerSample()
	need := frames * ch * bps
	if len(dst) < need {
		return 0, fmt.Errorf("encode %s: %w: need %d bytes, have %d", f, io.ErrShortBuffer, need, len(dst))
	}

	n := 0
	for i := 0; i < frames; i++ {
		for c := 0; c < ch; c++ {
			s := clamp(buf.data[c*frames+i], -1, 1)
			switch f {
			case FormatF32:
				binary.LittleEndian.PutUint32(dst[n:], math.Float32bits(float32(s)))
			case FormatS16:
				binary.LittleEndian.PutUint16(dst[n:], uint16(int16(s*32767)))
			case FormatU16:
				binary.LittleEndian.PutUint16(dst[n:], uint16(int32(s*32767)+32768))
			default:
				return n, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
			}
			n += bps
		}
	}
	return n, nil
}

// CopyPlanarFloat32 copies buf into per-channel float32 slices, as
// callback devices expect. Extra output channels repeat the last buffer
// channel; each output slice takes at most NumFrames samples.
func CopyPlanarFloat32(dst [][]float32, buf *AudioBuffer) {
	last := buf.NumChannels() - 1
	if last < 0 {
		return
	}
	for c, out := range dst {
		src := buf.Channel(min(c, last))
		n := min(len(out), len(src))
		for i, v := range src[:n] {
			out[i] = float32(v)
		}
	}
}
