package tui

import (
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/snake-duel/internal/core"
	"github.com/vovakirdan/snake-duel/internal/multiplayer"
	"github.com/vovakirdan/snake-duel/internal/snake"
	"github.com/vovakirdan/snake-duel/internal/storage"
)

// SoloModel is the Bubble Tea model for a single-player match.
type SoloModel struct {
	ctrl       *snake.Controller
	scores     *storage.BestEffort
	player     string
	keyMapper  *KeyMapper
	best       int
	scoreSaved bool // Whether the score has been saved for the current game over
	quitting   bool
	backToMenu bool
}

// NewSoloModel creates a model driving ctrl. The match starts in Init.
func NewSoloModel(ctrl *snake.Controller, scores *storage.BestEffort, player string) SoloModel {
	return SoloModel{
		ctrl:      ctrl,
		scores:    scores,
		player:    player,
		keyMapper: NewKeyMapper(),
		best:      scores.TopScore(ctrl.Difficulty().ID),
	}
}

// Init starts the match and the redraw loop.
func (m SoloModel) Init() tea.Cmd {
	if m.ctrl.Status() == snake.StatusIdle {
		//nolint:errcheck // A failed start shows up as game over with Err set
		m.ctrl.Start()
	}
	return tickCmd(frameInterval)
}

// Update handles messages and updates the model state.
func (m SoloModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case TickMsg:
		return m.handleTick()
	}
	return m, nil
}

func (m SoloModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action, quit := m.keyMapper.MapKey(msg)
	if quit {
		m.ctrl.Stop()
		m.quitting = true
		return m, tea.Quit
	}

	if dir, ok := Direction(action); ok {
		m.ctrl.Turn(dir)
		return m, nil
	}

	switch action {
	case core.ActionPause, core.ActionReady:
		m.ctrl.TogglePause()
	case core.ActionRestart:
		if m.ctrl.Status() == snake.StatusGameOver {
			m.ctrl.Reset()
			m.scoreSaved = false
			//nolint:errcheck // A failed start shows up as game over with Err set
			m.ctrl.Start()
		}
	case core.ActionBack:
		m.ctrl.Stop()
		m.backToMenu = true
	}
	return m, nil
}

func (m SoloModel) handleTick() (tea.Model, tea.Cmd) {
	m.saveScore()
	if m.backToMenu || m.quitting {
		return m, nil
	}
	return m, tickCmd(frameInterval)
}

// saveScore records the final score once per game over.
func (m *SoloModel) saveScore() {
	snap := m.ctrl.Snapshot()
	if snap.Status != snake.StatusGameOver || m.scoreSaved {
		return
	}
	m.scoreSaved = true
	if snap.Score <= 0 {
		return
	}
	m.scores.SaveScore(storage.HighScoreEntry{
		PlayerName: m.player,
		Score:      snap.Score,
		Difficulty: snap.Difficulty,
	})
	if snap.Score > m.best {
		m.best = snap.Score
	}
}

// View renders the current state to a string for display.
func (m SoloModel) View() string {
	if m.quitting {
		return ""
	}
	snap := m.ctrl.Snapshot()

	var b strings.Builder
	b.WriteString(RenderBoard(snap, scoreHUD(m.player, snap)))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render(soloHint(snap, m.best)))
	if snap.Err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(multiplayer.UserMessage(snap.Err)))
	}
	return b.String()
}

func soloHint(snap snake.Snapshot, best int) string {
	hint := "Arrows/WASD: Move  |  P: Pause  |  Esc: Menu  |  Q: Quit"
	if snap.Status == snake.StatusGameOver {
		hint = "R: Restart  |  Esc: Menu  |  Q: Quit"
	}
	if best > 0 {
		hint = "Best " + strconv.Itoa(best) + "  |  " + hint
	}
	return hint
}

// Err returns the fatal error that ended the match, if any.
func (m SoloModel) Err() error {
	return m.ctrl.Err()
}

// IsQuitting returns true if user requested to quit entirely.
func (m SoloModel) IsQuitting() bool {
	return m.quitting
}

// BackToMenu returns true if user requested to go back to menu.
func (m SoloModel) BackToMenu() bool {
	return m.backToMenu
}
