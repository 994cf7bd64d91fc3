package audio

import (
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/voidfemme/visualsynth/pkg/music"
)

// PoolConfig configures a VoicePool
type PoolConfig struct {
	SampleRate float64
	Gain       float64 // per-voice mix gain
	Envelope   music.Envelope
	RingOut    bool // keep released voices until their envelope ends
	MaxBlock   int  // scratch size hint
}

type voice struct {
	osc      *Oscillator
	released bool
}

// VoicePool owns the live oscillators. It is used only by the audio goroutine.
type VoicePool struct {
	cfg     PoolConfig
	tremolo *TremoloEffect
	voices  []voice
	scratch []float64
}

// NewVoicePool creates an empty pool sharing tremolo between its voices
func NewVoicePool(cfg PoolConfig, tremolo *TremoloEffect) *VoicePool {
	return &VoicePool{
		cfg:     cfg,
		tremolo: tremolo,
		voices:  make([]voice, 0, 16),
		scratch: make([]float64, max(cfg.MaxBlock, 0)),
	}
}

// Len returns the number of live voices
func (p *VoicePool) Len() int { return len(p.voices) }

// Voice returns the oscillator for note, or nil
func (p *VoicePool) Voice(note string) *Oscillator {
	for _, v := range p.voices {
		if v.osc.Note() == note {
			return v.osc
		}
	}
	return nil
}

// Render reconciles the pool with the note state and writes the summed
// voices into mix (overwritten). now is the synth clock at mix[0].
func (p *VoicePool) Render(state *NoteState, now float64, mix []float64) {
	playing := state.Playing()
	wf := state.Waveform()

	// drop voices whose key is no longer playing
	kept := p.voices[:0]
	for _, v := range p.voices {
		if !playing[v.osc.Note()] {
			if !p.cfg.RingOut {
				continue
			}
			v.released = true
			if v.osc.ReleaseNote(now) {
				continue
			}
		} else if v.released {
			// pressed again while ringing out: start a fresh voice
			continue
		}
		kept = append(kept, v)
	}
	clear(p.voices[len(kept):])
	p.voices = kept

	// start voices for newly playing keys
	var scale *music.Scale
	for note, on := range playing {
		if !on || p.has(note) {
			continue
		}
		if scale == nil {
			s := state.Scale()
			scale = &s
		}
		freq, ok := scale.CalculateFrequency(note)
		if !ok {
			continue
		}
		freq *= math.Pow(2, float64(state.Octave()))
		osc := NewOscillator(VoiceConfig{
			Waveform:   wf,
			Frequency:  freq,
			SampleRate: p.cfg.SampleRate,
			Note:       note,
			Envelope:   p.cfg.Envelope,
			Tremolo:    p.tremolo,
		})
		osc.StartNote(now)
		p.voices = append(p.voices, voice{osc: osc})
	}

	// hot-swap waveform
	for _, v := range p.voices {
		if v.osc.Waveform() != wf {
			v.osc.SetWaveform(wf)
		}
	}

	clear(mix)
	if len(p.scratch) < len(mix) {
		p.scratch = make([]float64, len(mix))
	}
	buf := p.scratch[:len(mix)]
	for _, v := range p.voices {
		v.osc.GenerateWave(now, buf)
		vecmath.ScaleBlockInPlace(buf, p.cfg.Gain)
		vecmath.AddBlockInPlace(mix, buf)
	}
}

func (p *VoicePool) has(note string) bool {
	return p.Voice(note) != nil
}
