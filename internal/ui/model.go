// ABOUTME: Bubbletea model for the voice client TUI
// ABOUTME: Renders session state, crisis stage, transcript tail, and the level meter
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/crisisline-ai/crisisline-go/internal/analyzer"
	"github.com/crisisline-ai/crisisline-go/internal/session"
)

const transcriptTail = 8

// Model represents the TUI state.
type Model struct {
	// Connection
	gatewayName string
	state       session.State

	// Crisis stage
	stage       string
	stageReason string

	// Transcript
	lines   []transcriptLine
	partial string

	// Links
	links []string

	// Energy meter
	levels    []float64
	showMeter bool

	// Stats
	captured  int64
	dropped   int64
	scheduled int64
	showDebug bool

	// Dimensions
	width  int
	height int
}

type transcriptLine struct {
	role string
	text string
}

// StateMsg updates the lifecycle state shown in the header.
type StateMsg struct {
	State session.State
}

// TranscriptMsg appends one finalized utterance.
type TranscriptMsg struct {
	Role string
	Text string
}

// PartialMsg replaces the in-progress utterance line.
type PartialMsg struct {
	Role string
	Text string
}

// StageMsg updates the crisis stage banner.
type StageMsg struct {
	Stage     string
	Reasoning string
}

// LinkMsg records a link the agent shared.
type LinkMsg struct {
	Title string
	URL   string
}

// EnergyMsg updates the microphone level meter.
type EnergyMsg struct {
	Levels []float64
}

// StatsMsg updates the pipeline counters.
type StatsMsg struct {
	Captured  int64
	Dropped   int64
	Scheduled int64
}

// NewModel creates the initial TUI model.
func NewModel(gatewayName string) Model {
	return Model{
		gatewayName: gatewayName,
		state:       session.StateIdle,
		showMeter:   true,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StateMsg:
		m.state = msg.State
	case TranscriptMsg:
		m.lines = append(m.lines, transcriptLine{role: msg.Role, text: msg.Text})
		if len(m.lines) > transcriptTail {
			m.lines = m.lines[len(m.lines)-transcriptTail:]
		}
		m.partial = ""
	case PartialMsg:
		m.partial = fmt.Sprintf("%s: %s", msg.Role, msg.Text)
	case StageMsg:
		m.stage = msg.Stage
		m.stageReason = msg.Reasoning
	case LinkMsg:
		m.links = append(m.links, fmt.Sprintf("%s <%s>", msg.Title, msg.URL))
	case EnergyMsg:
		m.levels = msg.Levels
	case StatsMsg:
		m.captured = msg.Captured
		m.dropped = msg.Dropped
		m.scheduled = msg.Scheduled
	}

	return m, nil
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "e":
		m.showMeter = !m.showMeter
	case "d":
		m.showDebug = !m.showDebug
	}
	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var s strings.Builder
	s.WriteString(m.renderHeader())
	s.WriteString(m.renderStage())
	s.WriteString(m.renderTranscript())
	s.WriteString(m.renderLinks())
	if m.showMeter {
		s.WriteString(m.renderMeter())
	}
	if m.showDebug {
		s.WriteString(m.renderDebug())
	}
	s.WriteString(m.renderHelp())
	return s.String()
}

func (m Model) renderHeader() string {
	status := m.state.String()
	if m.gatewayName != "" {
		status = fmt.Sprintf("%s (%s)", status, m.gatewayName)
	}
	return fmt.Sprintf("┌─ Crisisline ─────────────────────────────────────────┐\n"+
		"│ Status: %-45s│\n", truncate(status, 45))
}

func (m Model) renderStage() string {
	stage := m.stage
	if stage == "" {
		stage = "Not Determined"
	}
	s := fmt.Sprintf("│ Stage:  %-45s│\n", stage)
	if m.stageReason != "" {
		s += fmt.Sprintf("│         %-45s│\n", truncate(m.stageReason, 45))
	}
	return s + "├──────────────────────────────────────────────────────┤\n"
}

func (m Model) renderTranscript() string {
	if len(m.lines) == 0 && m.partial == "" {
		return "│ (no conversation yet)                                │\n"
	}

	var s strings.Builder
	for _, line := range m.lines {
		s.WriteString(fmt.Sprintf("│ %-5s %-47s│\n", line.role+":", truncate(line.text, 47)))
	}
	if m.partial != "" {
		s.WriteString(fmt.Sprintf("│ … %-51s│\n", truncate(m.partial, 51)))
	}
	return s.String()
}

func (m Model) renderLinks() string {
	if len(m.links) == 0 {
		return ""
	}
	s := "├─ Shared links ───────────────────────────────────────┤\n"
	for _, link := range m.links {
		s += fmt.Sprintf("│ %-53s│\n", truncate(link, 53))
	}
	return s
}

func (m Model) renderMeter() string {
	s := "├─ Mic ────────────────────────────────────────────────┤\n│ "
	if len(m.levels) == 0 {
		s += fmt.Sprintf("%-53s│\n", "(no signal)")
		return s
	}
	var bars strings.Builder
	for _, level := range m.levels {
		bars.WriteString(levelGlyph(level))
		bars.WriteString(" ")
	}
	return s + fmt.Sprintf("%-53s│\n", bars.String())
}

func (m Model) renderDebug() string {
	return fmt.Sprintf("├─ Debug ──────────────────────────────────────────────┤\n"+
		"│ captured: %-8d dropped: %-8d scheduled: %-6d│\n",
		m.captured, m.dropped, m.scheduled)
}

func (m Model) renderHelp() string {
	return "│ e:Meter  d:Debug  q:Quit                             │\n" +
		"└──────────────────────────────────────────────────────┘\n"
}

// levelGlyph picks a block character for a level in [0, 1].
func levelGlyph(level float64) string {
	glyphs := []string{" ", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}
	idx := int(level * float64(len(glyphs)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(glyphs) {
		idx = len(glyphs) - 1
	}
	return glyphs[idx]
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

// Levels converts analyzer output for an EnergyMsg, kept here so the
// band count stays in one place.
func Levels(a *analyzer.Analyzer) EnergyMsg {
	return EnergyMsg{Levels: a.Sample()}
}
