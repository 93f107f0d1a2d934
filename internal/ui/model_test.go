// ABOUTME: Tests for the TUI model
// ABOUTME: Verifies message handling, key bindings, and view rendering
package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/crisisline-ai/crisisline-go/internal/session"
)

func sized(m Model) Model {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model)
}

func apply(m Model, msg tea.Msg) Model {
	updated, _ := m.Update(msg)
	return updated.(Model)
}

func TestViewBeforeSize(t *testing.T) {
	m := NewModel("gw1")
	if m.View() != "Loading..." {
		t.Errorf("expected loading placeholder, got %q", m.View())
	}
}

func TestStateShownInHeader(t *testing.T) {
	m := sized(NewModel("gw1"))
	m = apply(m, StateMsg{State: session.StateListening})

	view := m.View()
	if !strings.Contains(view, "listening (gw1)") {
		t.Errorf("header missing state:\n%s", view)
	}
}

func TestStageBanner(t *testing.T) {
	m := sized(NewModel(""))

	if !strings.Contains(m.View(), "Not Determined") {
		t.Error("expected Not Determined before classification")
	}

	m = apply(m, StageMsg{Stage: "During", Reasoning: "active incident"})
	view := m.View()
	if !strings.Contains(view, "During") {
		t.Errorf("stage missing:\n%s", view)
	}
	if !strings.Contains(view, "active incident") {
		t.Errorf("reasoning missing:\n%s", view)
	}
}

func TestTranscriptTailTrimmed(t *testing.T) {
	m := sized(NewModel(""))
	for i := 0; i < transcriptTail+4; i++ {
		m = apply(m, TranscriptMsg{Role: "user", Text: strings.Repeat("x", i+1)})
	}

	if len(m.lines) != transcriptTail {
		t.Errorf("expected tail of %d lines, got %d", transcriptTail, len(m.lines))
	}
	// Oldest lines must have been dropped.
	if m.lines[0].text == "x" {
		t.Error("expected first line to be trimmed")
	}
}

func TestPartialClearedByFinal(t *testing.T) {
	m := sized(NewModel(""))
	m = apply(m, PartialMsg{Role: "agent", Text: "I can"})
	if !strings.Contains(m.View(), "I can") {
		t.Error("partial not rendered")
	}

	m = apply(m, TranscriptMsg{Role: "agent", Text: "I can help"})
	if m.partial != "" {
		t.Error("partial not cleared by finalized line")
	}
}

func TestLinksRendered(t *testing.T) {
	m := sized(NewModel(""))
	m = apply(m, LinkMsg{Title: "Guide", URL: "https://example.com"})

	if !strings.Contains(m.View(), "Guide <https://example.com>") {
		t.Errorf("link missing:\n%s", m.View())
	}
}

func TestMeterToggle(t *testing.T) {
	m := sized(NewModel(""))
	m = apply(m, EnergyMsg{Levels: []float64{0.1, 0.5, 0.9, 1.0, 0, 0, 0, 0}})

	if !strings.Contains(m.View(), "Mic") {
		t.Error("meter hidden by default")
	}

	m = apply(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})
	if strings.Contains(m.View(), "Mic") {
		t.Error("meter still visible after toggle")
	}
}

func TestDebugToggle(t *testing.T) {
	m := sized(NewModel(""))
	m = apply(m, StatsMsg{Captured: 100, Dropped: 2, Scheduled: 40})

	if strings.Contains(m.View(), "Debug") {
		t.Error("debug visible by default")
	}

	m = apply(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	view := m.View()
	if !strings.Contains(view, "captured: 100") {
		t.Errorf("debug stats missing:\n%s", view)
	}
}

func TestQuitKeys(t *testing.T) {
	m := sized(NewModel(""))
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := m.Update(key)
		if cmd == nil {
			t.Errorf("expected quit command for %s", key.String())
		}
	}
}

func TestLevelGlyph(t *testing.T) {
	if levelGlyph(0) != " " {
		t.Errorf("expected blank for zero, got %q", levelGlyph(0))
	}
	if levelGlyph(1.0) != "█" {
		t.Errorf("expected full block for one, got %q", levelGlyph(1.0))
	}
	if levelGlyph(2.0) != "█" {
		t.Errorf("expected clamp above one, got %q", levelGlyph(2.0))
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("unexpected: %s", got)
	}
	if got := truncate("a very long line of text", 10); got != "a very ..." {
		t.Errorf("unexpected: %s", got)
	}
}
