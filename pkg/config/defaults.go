package config

import (
	"github.com/voidfemme/visualsynth/pkg/audio"
	"github.com/voidfemme/visualsynth/pkg/music"
)

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate: 44100,
			Channels:   2,
			BufferMs:   20,
			Format:     audio.FormatF32,
			Backend:    "oto",
		},
		Synth: SynthConfig{
			VoiceGain: audio.DefaultVoiceGain,
			Shaper:    audio.ShaperTanh,
			Envelope:  audio.DefaultEnvelope,
			Tremolo:   audio.DefaultTremolo,
			Waveform:  music.WaveSine,
			VisualFPS: audio.DefaultFPS,
		},
		Scale: music.MajorScale("C"),
		Keybindings: Keybindings{
			// Piano-style keyboard layout:
			// Lower row: Z S X D C V G B H N J M (white + black keys)
			// Upper row: Q 2 W 3 E R 5 T 6 Y 7 U
			Notes: map[string]string{
				"z": "C", "s": "C_SHARP", "x": "D", "d": "D_SHARP", "c": "E", "v": "F",
				"g": "F_SHARP", "b": "G", "h": "G_SHARP", "n": "A", "j": "A_SHARP", "m": "B",
				"q": "C5", "2": "C_SHARP5", "w": "D5", "3": "D_SHARP5", "e": "E5", "r": "F5",
				"5": "F_SHARP5", "t": "G5", "6": "G_SHARP5", "y": "A5", "7": "A_SHARP5", "u": "B5",
				"i": "C6", "9": "C_SHARP6", "o": "D6", "0": "D_SHARP6", "p": "E6",
			},
			// Shifted lower row, one octave down
			BassNotes: map[string]string{
				"Z": "C3", "S": "C_SHARP3", "X": "D3", "D": "D_SHARP3", "C": "E3", "V": "F3",
				"G": "F_SHARP3", "B": "G3", "H": "G_SHARP3", "N": "A3", "J": "A_SHARP3", "M": "B3",
			},
			// Latched drones
			ToggleNotes: map[string]string{
				"Q": "C2", "W": "D2", "E": "E2", "R": "F2", "T": "G2", "Y": "A2", "U": "B2",
			},
			ScaleDegrees: map[string]int{
				"f1": 1, "f2": 2, "f3": 3, "f4": 4, "f5": 5, "f6": 6, "f7": 7, "f8": 8,
			},
			KeyChange: map[string]string{
				"alt+c": "C", "alt+d": "D", "alt+e": "E", "alt+f": "F",
				"alt+g": "G", "alt+a": "A", "alt+b": "B",
			},
			Waveforms: map[string]music.Waveform{
				"!": music.WaveSine,
				"@": music.WaveSquare,
				"#": music.WaveSawtooth,
				"$": music.WaveTriangle,
				"%": music.WaveSilence,
			},
			Octave: OctaveKeys{Up: "*", Down: "/"},
			Tremolo: TremoloKeys{
				Toggle:    " ",
				RateUp:    "right",
				RateDown:  "left",
				DepthUp:   "up",
				DepthDown: "down",
			},
			HoldMs: 600,
		},
		Log: LogConfig{
			Level: "info",
			File:  "visualsynth.log",
		},
	}
}
