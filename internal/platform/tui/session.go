package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/snake-duel/internal/core"
	"github.com/vovakirdan/snake-duel/internal/multiplayer"
)

// Screen identifies the active view of a session.
type Screen int

const (
	ScreenMenu Screen = iota
	ScreenSolo
	ScreenDuel
	ScreenScores
)

// sessionCloser releases whatever the active screen holds open. It is
// shared by every copy of a SessionModel.
type sessionCloser struct {
	mu     sync.Mutex
	closed bool
	stop   func()
}

func (c *sessionCloser) set(stop func()) {
	c.mu.Lock()
	closed := c.closed
	if !closed {
		c.stop = stop
	}
	c.mu.Unlock()
	if closed && stop != nil {
		stop()
	}
}

func (c *sessionCloser) release() {
	c.mu.Lock()
	stop := c.stop
	c.stop = nil
	c.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (c *sessionCloser) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.release()
}

// SessionModel manages the full session flow: menu -> solo, duel or
// scores -> menu. It is the top-level model for local and SSH sessions.
type SessionModel struct {
	svc        Services
	self       multiplayer.Identity
	difficulty string
	size       core.RuntimeConfig
	closer     *sessionCloser

	screen   Screen
	menu     MenuModel
	solo     SoloModel
	duel     DuelModel
	scores   ScoreboardModel
	startCmd tea.Cmd
	errMsg   string
	quitting bool
}

// NewSessionModel creates a session for the given player. difficulty
// preselects the menu; empty means the configured default.
func NewSessionModel(svc Services, self multiplayer.Identity, difficulty string) SessionModel {
	cfg := svc.Config.Load()
	if difficulty == "" {
		difficulty = cfg.DefaultDifficulty
	}
	m := SessionModel{
		svc:        svc,
		self:       self,
		difficulty: difficulty,
		size:       core.DefaultConfig(),
		closer:     &sessionCloser{},
	}
	m.menu = m.newMenu()
	return m
}

// StartSolo opens a solo match instead of the menu.
func (m SessionModel) StartSolo() SessionModel {
	m, m.startCmd = m.openSolo()
	return m
}

// StartDuel opens the duel flow instead of the menu. A non-empty code
// joins that room; host creates a new one.
func (m SessionModel) StartDuel(host bool, code string) SessionModel {
	m, m.startCmd = m.openDuel()
	switch {
	case code != "":
		var cmd tea.Cmd
		m.duel, cmd = m.duel.Join(code)
		m.startCmd = tea.Batch(m.startCmd, cmd)
	case host:
		var cmd tea.Cmd
		m.duel, cmd = m.duel.Host()
		m.startCmd = tea.Batch(m.startCmd, cmd)
	}
	return m
}

// Resize sets the terminal size before the program reports it.
func (m SessionModel) Resize(width, height int) SessionModel {
	m.size.ScreenW, m.size.ScreenH = width, height
	m.menu.width, m.menu.height = width, height
	if m.screen == ScreenScores {
		next, _ := m.scores.Update(tea.WindowSizeMsg{Width: width, Height: height})
		m.scores = next.(ScoreboardModel)
	}
	return m
}

// Close releases the active match or room. Safe to call from any
// goroutine, e.g. when an SSH connection drops.
func (m SessionModel) Close() {
	m.closer.Close()
}

// Screen returns the active view.
func (m SessionModel) Screen() Screen {
	return m.screen
}

// Init initializes the session.
func (m SessionModel) Init() tea.Cmd {
	if m.startCmd != nil {
		return m.startCmd
	}
	return m.menu.Init()
}

// Update handles messages for the session.
func (m SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle window resize globally
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		m.size.ScreenW = wsm.Width
		m.size.ScreenH = wsm.Height
	}

	switch m.screen {
	case ScreenSolo:
		return m.updateSolo(msg)
	case ScreenDuel:
		return m.updateDuel(msg)
	case ScreenScores:
		return m.updateScores(msg)
	}
	return m.updateMenu(msg)
}

func (m SessionModel) updateMenu(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.menu.Update(msg)
	if menu, ok := next.(MenuModel); ok {
		m.menu = menu
	}
	m.difficulty = m.menu.Difficulty()

	if m.menu.IsQuitting() {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.menu.Selected() {
	case MenuChoiceSolo:
		return m.openSolo()
	case MenuChoiceDuel:
		return m.openDuel()
	case MenuChoiceScores:
		return m.openScores(), nil
	}
	return m, cmd
}

func (m SessionModel) updateSolo(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.solo.Update(msg)
	if solo, ok := next.(SoloModel); ok {
		m.solo = solo
	}
	if m.solo.IsQuitting() {
		m.closer.release()
		m.quitting = true
		return m, tea.Quit
	}
	if m.solo.BackToMenu() {
		return m.backToMenu()
	}
	return m, cmd
}

func (m SessionModel) updateDuel(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.duel.Update(msg)
	if duel, ok := next.(DuelModel); ok {
		m.duel = duel
	}
	if m.duel.IsQuitting() {
		m.closer.release()
		m.quitting = true
		return m, tea.Quit
	}
	if m.duel.BackToMenu() {
		return m.backToMenu()
	}
	return m, cmd
}

func (m SessionModel) updateScores(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.scores.Update(msg)
	if scores, ok := next.(ScoreboardModel); ok {
		m.scores = scores
	}
	if m.scores.IsQuitting() {
		m.quitting = true
		return m, tea.Quit
	}
	if m.scores.IsGoingBack() {
		return m.backToMenu()
	}
	return m, cmd
}

func (m SessionModel) openSolo() (SessionModel, tea.Cmd) {
	ctrl, err := m.svc.newController(m.difficulty)
	if err != nil {
		m.errMsg = err.Error()
		m.menu = m.newMenu()
		m.screen = ScreenMenu
		return m, nil
	}
	m.errMsg = ""
	m.solo = NewSoloModel(ctrl, m.svc.Scores, m.self.Name)
	m.closer.set(ctrl.Stop)
	m.screen = ScreenSolo
	return m, m.solo.Init()
}

func (m SessionModel) openDuel() (SessionModel, tea.Cmd) {
	m.errMsg = ""
	m.duel = NewDuelModel(m.svc, m.self, m.difficulty)
	m.closer.set(m.duel.Close)
	m.screen = ScreenDuel
	return m, m.duel.Init()
}

func (m SessionModel) openScores() SessionModel {
	m.errMsg = ""
	m.scores = NewScoreboardModel(m.svc.Scores, m.svc.Config.Load().DifficultyIDs(), m.size.ScreenW, m.size.ScreenH)
	m.screen = ScreenScores
	return m
}

func (m SessionModel) backToMenu() (tea.Model, tea.Cmd) {
	m.closer.release()
	m.menu = m.newMenu()
	m.screen = ScreenMenu
	return m, m.menu.Init()
}

func (m SessionModel) newMenu() MenuModel {
	menu := NewMenuModel(
		m.self.Name,
		m.svc.Config.Load().DifficultyIDs(),
		m.difficulty,
		m.svc.Lobby != nil,
		m.svc.Scores.TopScore,
	)
	menu.width, menu.height = m.size.ScreenW, m.size.ScreenH
	return menu
}

// View renders the active screen.
func (m SessionModel) View() string {
	if m.quitting {
		return ""
	}

	switch m.screen {
	case ScreenSolo:
		return m.solo.View()
	case ScreenDuel:
		return m.duel.View()
	case ScreenScores:
		return m.scores.View()
	}
	view := m.menu.View()
	if m.errMsg != "" {
		view += "\n" + errorStyle.Render(centerText(m.errMsg, m.size.ScreenW))
	}
	return view
}

// Run runs model in the current terminal until the player quits or ctx
// is done, then releases anything the session still holds.
func Run(ctx context.Context, model SessionModel) error {
	defer model.Close()

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}
