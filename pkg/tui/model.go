// Package tui implements the terminal user interface
package tui

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/voidfemme/visualsynth/pkg/audio"
	"github.com/voidfemme/visualsynth/pkg/config"
	"github.com/voidfemme/visualsynth/pkg/music"
)

// HistoryLen is how many decimated samples the oscilloscope keeps
const HistoryLen = 1024

// Model is the main TUI model
type Model struct {
	Synth *audio.Synth
	Keys  *config.Keymap

	// View state
	Width    int
	Height   int
	ShowHelp bool

	// Input state
	held    map[string]time.Time // note -> last key press
	latched map[string]bool

	// Oscilloscope
	history []float32
	lastSeq uint64

	// Status message
	StatusMsg string

	clock  func() time.Time
	logger *log.Logger
}

// NewModel creates a new TUI model
func NewModel(synth *audio.Synth, keys *config.Keymap, logger *log.Logger) Model {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return Model{
		Synth:   synth,
		Keys:    keys,
		Width:   100,
		Height:  30,
		held:    map[string]time.Time{},
		latched: map[string]bool{},
		history: make([]float32, 0, HistoryLen),
		clock:   time.Now,
		logger:  logger.With("component", "tui"),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tickCmd(),
	)
}

// tickMsg is sent at the display rate
type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(16_666_666, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tickMsg:
		m.releaseExpired(time.Time(msg))
		m.pullSnapshot()
		return m, tickCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	notes := m.Synth.Notes()
	key := msg.String()

	switch key {
	case "ctrl+c", "esc":
		notes.AllNotesOff()
		return m, tea.Quit

	case "?":
		m.ShowHelp = !m.ShowHelp
		return m, nil

	case "backspace":
		notes.AllNotesOff()
		clear(m.held)
		clear(m.latched)
		m.StatusMsg = "all notes off"
		return m, nil
	}

	b, ok := m.Keys.Lookup(key)
	if !ok {
		return m, nil
	}
	ev, ok := b.Resolve(notes.Scale())
	if !ok {
		return m, nil
	}

	switch b.Kind {
	case config.HoldNote:
		note := ev.(music.NoteOn).Note
		if _, down := m.held[note]; !down && !m.latched[note] {
			notes.HandleEvent(ev)
		}
		m.held[note] = m.clock()

	case config.ToggleNote:
		note := ev.(music.NoteOn).Note
		if m.latched[note] {
			delete(m.latched, note)
			if _, down := m.held[note]; !down {
				notes.HandleEvent(music.NoteOff{Note: note})
			}
		} else {
			m.latched[note] = true
			notes.HandleEvent(ev)
		}

	case config.Action:
		notes.HandleEvent(ev)
		m.StatusMsg = ev.String()
		m.logger.Debug("action", "key", key, "event", ev)
	}
	return m, nil
}

// releaseExpired sends note-off for held keys that stopped repeating
func (m *Model) releaseExpired(now time.Time) {
	hold := m.Keys.Hold()
	for note, last := range m.held {
		if now.Sub(last) < hold {
			continue
		}
		delete(m.held, note)
		if !m.latched[note] {
			m.Synth.Notes().HandleEvent(music.NoteOff{Note: note})
		}
	}
}

// pullSnapshot appends a newly published grid to the history
func (m *Model) pullSnapshot() {
	snap := m.Synth.Snapshot()
	if snap.Seq == m.lastSeq {
		return
	}
	m.lastSeq = snap.Seq
	m.history = append(m.history, snap.Values()...)
	if over := len(m.history) - HistoryLen; over > 0 {
		m.history = append(m.history[:0], m.history[over:]...)
	}
}

// Held returns the notes currently kept alive by key repeat
func (m Model) Held() []string {
	out := make([]string, 0, len(m.held))
	for n := range m.held {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Latched returns the toggled-on notes
func (m Model) Latched() []string {
	out := make([]string, 0, len(m.latched))
	for n := range m.latched {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// History returns the oscilloscope samples, oldest first
func (m Model) History() []float32 { return m.history }

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	onStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	traceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	scopeBorder = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8"))
)

// View implements tea.Model
func (m Model) View() string {
	if m.ShowHelp {
		return m.helpView()
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.notesView())
	b.WriteString("\n")
	b.WriteString(m.scopeView())
	b.WriteString("\n")
	b.WriteString(m.footerView())
	return b.String()
}

func (m Model) headerView() string {
	notes := m.Synth.Notes()
	trem := notes.Tremolo()

	tremStr := dimStyle.Render("off")
	if trem != nil {
		state := tremStr
		if trem.Enabled() {
			state = onStyle.Render("on")
		}
		tremStr = fmt.Sprintf("%s %.1fHz %3.0f%%", state, trem.Rate(), trem.Depth()*100)
	}

	info := fmt.Sprintf(" │ Wave:%-8s │ Oct:%+d │ Key:%-7s │ Trem:%s │ Voices:%2d │ %6.1fs │ %s",
		notes.Waveform(), notes.Octave(), notes.Scale().Root, tremStr,
		m.Synth.VoiceCount(), m.Synth.Time(), meter(m.Synth.Peak(), 12))

	return titleStyle.Render("VISUALSYNTH") + info
}

func (m Model) notesView() string {
	active := m.Synth.ActiveNotes()
	line := dimStyle.Render(" Notes: ")
	if len(active) == 0 {
		line += dimStyle.Render("-")
	} else {
		line += noteStyle.Render(strings.Join(active, " "))
	}
	if len(m.latched) > 0 {
		line += dimStyle.Render("  Latched: ") + strings.Join(m.Latched(), " ")
	}
	if m.StatusMsg != "" {
		line += dimStyle.Render("  │ " + m.StatusMsg)
	}
	return line
}

// meter draws a peak level bar
func meter(peak float64, width int) string {
	n := int(math.Round(math.Min(peak, 1) * float64(width)))
	n = max(0, min(n, width))
	bar := strings.Repeat("█", n) + strings.Repeat("░", width-n)
	if peak >= 0.99 {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render(bar)
	}
	return onStyle.Render(bar)
}

func (m Model) scopeView() string {
	w := max(m.Width-2, 16)
	h := max(m.Height-7, 5)
	return scopeBorder.Render(renderScope(m.history, w, h))
}

// renderScope plots the newest w samples on an h row grid, oldest left
func renderScope(samples []float32, w, h int) string {
	grid := make([][]rune, h)
	mid := (h - 1) / 2
	for r := range grid {
		fill := ' '
		if r == mid {
			fill = '─'
		}
		grid[r] = []rune(strings.Repeat(string(fill), w))
	}

	if len(samples) > w {
		samples = samples[len(samples)-w:]
	}
	off := w - len(samples)
	for i, v := range samples {
		v = max(-1, min(1, v))
		r := int(math.Round(float64(1-v) / 2 * float64(h-1)))
		grid[r][off+i] = '•'
	}

	lines := make([]string, h)
	for r, row := range grid {
		lines[r] = traceStyle.Render(string(row))
	}
	return strings.Join(lines, "\n")
}

func (m Model) footerView() string {
	keys := " [Keys]Play [Shift]Bass [*/]Oct [!@#$%]Wave [Space]Tremolo [Alt+C..B]Key [Bksp]All off [?]Help [Esc]Quit"
	return dimStyle.Render(keys)
}

func (m Model) helpView() string {
	help := `VISUALSYNTH HELP

NOTES (piano keyboard, hold to sustain)
  Z S X D C V G B H N J M    C4 to B4
  Q 2 W 3 E R 5 T 6 Y 7 U    C5 to B5
  I 9 O 0 P                  C6 to E6
  Shift + lower row          bass octave (C3 to B3)
  Shift + Q W E R T Y U      latch drones on/off (C2 to B2)
  F1 to F8                   scale degrees of the current key

SOUND
  ! @ # $ %                  sine, square, saw, triangle, silence
  * /                        octave up/down (new notes)
  Alt + C D E F G A B        change key
  Space                      tremolo on/off
  ← →                        tremolo rate
  ↑ ↓                        tremolo depth

  Backspace                  all notes off
  Esc / Ctrl+C               quit

                             [?] Close help`
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(lipgloss.Color("14")).
		Padding(0, 2).
		Render(help)
}
