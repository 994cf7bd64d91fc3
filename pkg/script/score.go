// Package script runs Lua score files that schedule synth events for
// offline rendering.
//
// A score calls the scheduling functions with a time in seconds:
//
//	note_on(0, "C")
//	note_off(1.5, "C")
//	play(0.5, "E", 1)          -- on at 0.5, off at 1.5
//	waveform(2, "saw")
//	octave(2, "up")
//	tremolo(2)                 -- toggle
//	tremolo_adjust(3, 0.5, -0.1)
//	key(4, "D")
//	length(6)
//
// notes(root, n) returns the first n degrees of the major scale on root.
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/voidfemme/visualsynth/pkg/audio"
	"github.com/voidfemme/visualsynth/pkg/music"
)

// ErrBadEvent is returned when a score schedules an invalid event
var ErrBadEvent = errors.New("bad score event")

// Tail is added after the last event when a score sets no length
const Tail = 1.0

// MaxNotes bounds the list returned by notes()
const MaxNotes = 128

// Score is the result of running a script
type Score struct {
	Events []audio.TimedEvent
	Length float64 // seconds
}

type scorer struct {
	events []audio.TimedEvent
	length float64
	err    error
	logger *log.Logger
}

// Load runs a score file
func Load(ctx context.Context, path string, logger *log.Logger) (*Score, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open score: %w", err)
	}
	defer f.Close()
	return Run(ctx, filepath.Base(path), f, logger)
}

// Run executes Lua source and collects the scheduled events in time order.
// Cancelling ctx stops a runaway script.
func Run(ctx context.Context, name string, r io.Reader, logger *log.Logger) (*Score, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read score: %w", err)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	if err := openLibs(L); err != nil {
		return nil, err
	}
	L.SetContext(ctx)

	sc := &scorer{logger: logger.With("component", "script", "score", name)}
	sc.register(L)

	if err := L.DoString(string(src)); err != nil {
		if sc.err != nil {
			return nil, fmt.Errorf("%s: %w", name, sc.err)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	slices.SortStableFunc(sc.events, func(a, b audio.TimedEvent) int {
		switch {
		case a.At < b.At:
			return -1
		case a.At > b.At:
			return 1
		}
		return 0
	})
	length := sc.length
	if length == 0 && len(sc.events) > 0 {
		length = sc.events[len(sc.events)-1].At + Tail
	}
	sc.logger.Debug("score loaded", "events", len(sc.events), "length", length)
	return &Score{Events: sc.events, Length: length}, nil
}

func openLibs(L *lua.LState) error {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.fn), NRet: 0, Protect: true}, lua.LString(lib.name))
		if err != nil {
			return fmt.Errorf("open lua %s: %w", lib.name, err)
		}
	}
	return nil
}

func (sc *scorer) register(L *lua.LState) {
	fns := map[string]lua.LGFunction{
		"note_on":        sc.noteOn,
		"note_off":       sc.noteOff,
		"play":           sc.play,
		"waveform":       sc.waveform,
		"octave":         sc.octave,
		"tremolo":        sc.tremolo,
		"tremolo_adjust": sc.tremoloAdjust,
		"key":            sc.key,
		"length":         sc.setLength,
		"notes":          sc.notes,
	}
	for name, fn := range fns {
		L.SetGlobal(name, L.NewFunction(fn))
	}
}

// fail records the Go error and aborts the script
func (sc *scorer) fail(L *lua.LState, format string, args ...any) {
	sc.err = fmt.Errorf("%w: "+format, append([]any{ErrBadEvent}, args...)...)
	L.RaiseError("%s", sc.err.Error())
}

func (sc *scorer) time(L *lua.LState, n int) float64 {
	t := float64(L.CheckNumber(n))
	if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		sc.fail(L, "time %v", t)
	}
	return t
}

func (sc *scorer) note(L *lua.LState, n int) string {
	note := L.CheckString(n)
	if _, _, ok := music.ParseNote(note); !ok {
		sc.fail(L, "unknown note %q", note)
	}
	return note
}

func (sc *scorer) add(at float64, ev music.NoteEvent) {
	sc.events = append(sc.events, audio.TimedEvent{At: at, Event: ev})
}

func (sc *scorer) noteOn(L *lua.LState) int {
	sc.add(sc.time(L, 1), music.NoteOn{Note: sc.note(L, 2)})
	return 0
}

func (sc *scorer) noteOff(L *lua.LState) int {
	sc.add(sc.time(L, 1), music.NoteOff{Note: sc.note(L, 2)})
	return 0
}

func (sc *scorer) play(L *lua.LState) int {
	t := sc.time(L, 1)
	note := sc.note(L, 2)
	dur := float64(L.CheckNumber(3))
	if dur <= 0 || math.IsNaN(dur) || math.IsInf(dur, 0) {
		sc.fail(L, "duration %v", dur)
	}
	sc.add(t, music.NoteOn{Note: note})
	sc.add(t+dur, music.NoteOff{Note: note})
	return 0
}

func (sc *scorer) waveform(L *lua.LState) int {
	t := sc.time(L, 1)
	w, err := music.ParseWaveform(L.CheckString(2))
	if err != nil {
		sc.fail(L, "%v", err)
	}
	sc.add(t, music.ChangeWaveform{Waveform: w})
	return 0
}

func (sc *scorer) octave(L *lua.LState) int {
	t := sc.time(L, 1)
	d := music.Direction(L.CheckString(2))
	if d.Step() == 0 {
		sc.fail(L, "octave direction %q", string(d))
	}
	sc.add(t, music.ChangeOctave{Direction: d})
	return 0
}

func (sc *scorer) tremolo(L *lua.LState) int {
	sc.add(sc.time(L, 1), music.ToggleTremolo{})
	return 0
}

func (sc *scorer) tremoloAdjust(L *lua.LState) int {
	t := sc.time(L, 1)
	rate := float64(L.OptNumber(2, 0))
	depth := float64(L.OptNumber(3, 0))
	sc.add(t, music.AdjustTremolo{Rate: rate, Depth: depth})
	return 0
}

func (sc *scorer) key(L *lua.LState) int {
	sc.add(sc.time(L, 1), music.ChangeKey{Root: sc.note(L, 2)})
	return 0
}

func (sc *scorer) setLength(L *lua.LState) int {
	l := float64(L.CheckNumber(1))
	if l <= 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		sc.fail(L, "length %v", l)
	}
	sc.length = l
	return 0
}

func (sc *scorer) notes(L *lua.LState) int {
	root := sc.note(L, 1)
	n := L.CheckInt(2)
	if n < 1 || n > MaxNotes {
		sc.fail(L, "count %d outside 1-%d", n, MaxNotes)
	}
	tbl := L.NewTable()
	for _, name := range music.MajorScale(root).Notes(n) {
		tbl.Append(lua.LString(name))
	}
	L.Push(tbl)
	return 1
}
