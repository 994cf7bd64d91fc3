package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/voidfemme/visualsynth/pkg/analysis"
	"github.com/voidfemme/visualsynth/pkg/audio"
	"github.com/voidfemme/visualsynth/pkg/config"
	"github.com/voidfemme/visualsynth/pkg/music"
	"github.com/voidfemme/visualsynth/pkg/script"
	"github.com/voidfemme/visualsynth/pkg/tui"
)

// captureLimit bounds the samples analysed after an offline render
const captureLimit = 1 << 16

type options struct {
	configPath string
	logPath    string
	logLevel   string
	sampleRate int
	format     string
	backend    string
	waveform   string
	render     string
	notes      string
	seconds    float64
	script     string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "YAML config file (built-in defaults when empty)")
	flag.StringVar(&o.logPath, "log", "", "Log file for live mode (default from config)")
	flag.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.IntVar(&o.sampleRate, "sample-rate", 0, "Sample rate in Hz")
	flag.StringVar(&o.format, "format", "", "Sample format: f32, s16, u16")
	flag.StringVar(&o.backend, "backend", "", "Audio backend ("+strings.Join(audio.Backends(), ", ")+")")
	flag.StringVar(&o.waveform, "waveform", "", "Start waveform: sine, square, sawtooth, triangle, silence")
	flag.StringVar(&o.render, "render", "", "Render offline to a .wav or raw PCM file (- for stdout)")
	flag.StringVar(&o.notes, "notes", "A", "Comma separated notes held for an offline render")
	flag.Float64Var(&o.seconds, "seconds", 0, "Offline render length (default: score length or 2s)")
	flag.StringVar(&o.script, "script", "", "Lua score for an offline render")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, o)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg, o.render != "")
	if err != nil {
		return err
	}
	defer closeLog()

	tremolo := audio.NewTremoloEffect(cfg.Synth.Tremolo)
	notes := audio.NewNoteState(cfg.Scale, cfg.Synth.Waveform, tremolo, logger)
	synth, err := audio.NewSynth(cfg.SynthSettings(), notes, logger)
	if err != nil {
		return err
	}

	if o.render != "" {
		return renderOffline(ctx, synth, cfg, o, logger)
	}
	return runLive(ctx, synth, cfg, logger)
}

// loadConfig reads the config file and applies flag overrides
func loadConfig(o options) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, err
		}
	}
	if o.sampleRate > 0 {
		cfg.Audio.SampleRate = o.sampleRate
	}
	if o.format != "" {
		f, err := audio.ParseSampleFormat(o.format)
		if err != nil {
			return nil, err
		}
		cfg.Audio.Format = f
	}
	if o.waveform != "" {
		w, err := music.ParseWaveform(o.waveform)
		if err != nil {
			return nil, err
		}
		cfg.Synth.Waveform = w
	}
	if o.backend != "" {
		cfg.Audio.Backend = o.backend
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logPath != "" {
		cfg.Log.File = o.logPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger logs to stderr when rendering and to the log file otherwise,
// since the UI owns the terminal
func newLogger(cfg *config.Config, toStderr bool) (*log.Logger, func(), error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if !toStderr {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "visualsynth",
		Level:           level,
	})
	return logger, closeFn, nil
}

// runLive plays through the audio device with the UI in the foreground.
// A device failure ends the UI; quitting the UI stops the device.
func runLive(ctx context.Context, synth *audio.Synth, cfg *config.Config, logger *log.Logger) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("live mode needs a terminal (use -render for offline output)")
	}

	dev, err := audio.OpenDevice(cfg.Audio.Backend, synth, cfg.DeviceSettings(), logger)
	if err != nil {
		return err
	}
	defer dev.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	model := tui.NewModel(synth, cfg.Keymap(), logger)
	p := tea.NewProgram(model, tea.WithContext(gctx))

	g.Go(func() error {
		return dev.Wait(gctx)
	})
	g.Go(func() error {
		defer cancel()
		if _, err := p.Run(); err != nil && gctx.Err() == nil {
			return fmt.Errorf("ui: %w", err)
		}
		return nil
	})

	logger.Info("live session started", "backend", cfg.Audio.Backend, "format", cfg.Audio.Format)
	err = g.Wait()
	logger.Info("live session ended", "err", err)
	return err
}

// renderOffline renders a score or a held chord to a file and prints the
// level and dominant frequency of the result
func renderOffline(ctx context.Context, synth *audio.Synth, cfg *config.Config, o options, logger *log.Logger) error {
	var events []audio.TimedEvent
	seconds := o.seconds
	if o.script != "" {
		score, err := script.Load(ctx, o.script, logger)
		if err != nil {
			return err
		}
		events = score.Events
		if seconds <= 0 {
			seconds = score.Length
		}
	} else {
		for _, n := range strings.Split(o.notes, ",") {
			if n = strings.TrimSpace(n); n != "" {
				events = append(events, audio.TimedEvent{At: 0, Event: music.NoteOn{Note: n}})
			}
		}
	}
	if seconds <= 0 {
		seconds = 2
	}

	capture := analysis.NewCapture(captureLimit)
	job := &audio.RenderJob{
		Synth:     synth,
		Seconds:   seconds,
		Events:    events,
		BlockSize: cfg.SynthSettings().MaxBlock,
		Tap:       func(buf *audio.AudioBuffer) { capture.Add(buf.Channel(0)) },
	}

	var out io.Writer = os.Stdout
	if o.render != "-" {
		f, err := os.Create(o.render)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	bw := bufio.NewWriter(out)

	format := cfg.Audio.Format
	if strings.EqualFold(filepath.Ext(o.render), ".wav") {
		err := audio.ExportWAV(bw, job, format)
		if err != nil {
			return err
		}
	} else if err := audio.ExportRaw(bw, job, format); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	res, err := analysis.Analyze(capture.Samples(), float64(synth.SampleRate()))
	if err != nil && !errors.Is(err, analysis.ErrTooShort) {
		return err
	}
	logger.Info("rendered", "file", o.render, "seconds", seconds, "events", len(events), "format", format)
	fmt.Fprintf(os.Stderr, "%s: %.2fs %s, peak %.3f, rms %.3f, dominant %.1f Hz\n",
		o.render, seconds, format, res.Peak, res.RMS, res.Dominant)
	return nil
}
