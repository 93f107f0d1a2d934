// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the voice client
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the TUI program in the alternate screen.
func Run(gatewayName string) *tea.Program {
	return tea.NewProgram(NewModel(gatewayName), tea.WithAltScreen())
}
