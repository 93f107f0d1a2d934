// ABOUTME: Race-free bridge from session hooks to the TUI program
// ABOUTME: Drops messages until a running program is attached
package ui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// Notifier forwards messages to a bubbletea program once one is
// attached. Session hooks fire from goroutines that start before the
// program exists, so the target is held behind an atomic pointer;
// messages sent before Attach are dropped.
type Notifier struct {
	send atomic.Pointer[func(tea.Msg)]
}

// Attach sets the delivery target, usually program.Send.
func (n *Notifier) Attach(send func(tea.Msg)) {
	n.send.Store(&send)
}

// Send delivers msg to the attached program, or drops it if none is
// attached yet.
func (n *Notifier) Send(msg tea.Msg) {
	if send := n.send.Load(); send != nil {
		(*send)(msg)
	}
}
