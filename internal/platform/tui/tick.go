// Package tui provides the Bubble Tea frontend for snake duel: solo play,
// the duel lobby and match, the leaderboard and the SSH server.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// frameInterval is the redraw rate. The simulation runs on the
// controller's own scheduler; ticks only refresh the view.
const frameInterval = time.Second / 30

// TickMsg is sent to trigger a redraw.
type TickMsg time.Time

// tickCmd returns a Bubble Tea command that sends a tick after interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
