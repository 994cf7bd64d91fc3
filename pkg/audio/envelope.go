package audio

import "github.com/voidfemme/visualsynth/pkg/music"

// AmplitudeEnvelope is a stateless ADSR: the gain depends only on the time
// since the note started. Release follows decay without a held stage.
type AmplitudeEnvelope struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// NewAmplitudeEnvelope clamps negative times to 0 and sustain to 0.0-1.0
func NewAmplitudeEnvelope(e music.Envelope) AmplitudeEnvelope {
	return AmplitudeEnvelope{
		Attack:  max(e.Attack, 0),
		Decay:   max(e.Decay, 0),
		Sustain: clamp(e.Sustain, 0, 1),
		Release: max(e.Release, 0),
	}
}

// Duration is the time after which the envelope stays at 0
func (e AmplitudeEnvelope) Duration() float64 {
	return e.Attack + e.Decay + e.Release
}

// AmplitudeAt returns the gain t seconds after the note started
func (e AmplitudeEnvelope) AmplitudeAt(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t < e.Attack {
		return t / e.Attack
	}
	t -= e.Attack
	if t < e.Decay {
		return 1 - (1-e.Sustain)*t/e.Decay
	}
	t -= e.Decay
	if t < e.Release {
		return e.Sustain * (1 - t/e.Release)
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
