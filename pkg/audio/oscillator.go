package audio

import (
	"github.com/voidfemme/visualsynth/pkg/music"
)

// VoiceConfig describes one voice
type VoiceConfig struct {
	Waveform   music.Waveform
	Frequency  float64
	SampleRate float64
	Note       string
	Envelope   music.Envelope
	Tremolo    *TremoloEffect // shared, may be nil
}

// Oscillator is one voice: generator, envelope and the shared tremolo
type Oscillator struct {
	gen     *WaveformGenerator
	env     AmplitudeEnvelope
	tremolo *TremoloEffect
	note    string

	sampleRate float64
	start      float64
	started    bool
}

// NewOscillator creates a silent voice; call StartNote to sound it
func NewOscillator(cfg VoiceConfig) *Oscillator {
	return &Oscillator{
		gen:        NewWaveformGenerator(cfg.Waveform, cfg.Frequency, cfg.SampleRate),
		env:        NewAmplitudeEnvelope(cfg.Envelope),
		tremolo:    cfg.Tremolo,
		note:       cfg.Note,
		sampleRate: cfg.SampleRate,
	}
}

// StartNote sets the envelope origin to t (seconds on the synth clock)
func (o *Oscillator) StartNote(t float64) {
	o.start = t
	o.started = true
}

// ReleaseNote clears the start time once the envelope has run out.
// It reports whether the voice is now silent.
func (o *Oscillator) ReleaseNote(currentTime float64) bool {
	if o.started && o.Finished(currentTime) {
		o.started = false
	}
	return !o.started
}

// Finished reports whether the envelope has reached its final 0
func (o *Oscillator) Finished(currentTime float64) bool {
	if !o.started {
		return true
	}
	return currentTime-o.start >= o.env.Duration()
}

// GenerateWave fills out with len(out) samples starting at currentTime
func (o *Oscillator) GenerateWave(currentTime float64, out []float64) {
	if !o.started || o.sampleRate <= 0 {
		clear(out)
		return
	}
	dt := 1 / o.sampleRate
	for i := range out {
		elapsed := currentTime + float64(i)*dt - o.start
		out[i] = o.gen.Sample() * o.env.AmplitudeAt(elapsed)
	}
	if o.tremolo != nil {
		o.tremolo.Modulate(out, o.sampleRate)
	}
}

// SetWaveform switches wavetables, carrying the phase over
func (o *Oscillator) SetWaveform(w music.Waveform) {
	phase := o.gen.Phase()
	o.gen = NewWaveformGenerator(w, o.gen.Frequency(), o.sampleRate)
	o.gen.SetPhase(phase)
}

// SetFrequency retunes the voice without touching the phase
func (o *Oscillator) SetFrequency(freq float64) {
	o.gen.SetFrequency(freq)
}

// Note returns the key the voice was started for
func (o *Oscillator) Note() string { return o.note }

// Frequency returns the voice frequency in Hz
func (o *Oscillator) Frequency() float64 { return o.gen.Frequency() }

// Waveform returns the current waveform
func (o *Oscillator) Waveform() music.Waveform { return o.gen.Waveform() }

// Phase returns the generator phase
func (o *Oscillator) Phase() float64 { return o.gen.Phase() }

// Active reports whether the voice has a start time
func (o *Oscillator) Active() bool { return o.started }
