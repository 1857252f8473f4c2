package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// MenuChoice identifies a main menu entry.
type MenuChoice int

const (
	MenuChoiceNone MenuChoice = iota
	MenuChoiceSolo
	MenuChoiceDuel
	MenuChoiceScores
	MenuChoiceQuit
)

// MenuItem represents a selectable entry in the menu.
type MenuItem struct {
	Choice MenuChoice
	Title  string
}

// MenuModel is the Bubble Tea model for the main menu. Left and right
// cycle the difficulty used for solo games and hosted rooms.
type MenuModel struct {
	items        []MenuItem
	cursor       int
	difficulties []string
	difficulty   int
	player       string
	best         int
	width        int
	height       int
	keyMapper    *KeyMapper
	selected     MenuChoice
	quitting     bool
	bestFor      func(difficulty string) int
}

// NewMenuModel creates the menu. The duel entry is shown only when
// duelEnabled is set. bestFor may be nil.
func NewMenuModel(player string, difficulties []string, current string, duelEnabled bool, bestFor func(string) int) MenuModel {
	items := []MenuItem{{Choice: MenuChoiceSolo, Title: "Solo"}}
	if duelEnabled {
		items = append(items, MenuItem{Choice: MenuChoiceDuel, Title: "Duel"})
	}
	items = append(items,
		MenuItem{Choice: MenuChoiceScores, Title: "High Scores"},
		MenuItem{Choice: MenuChoiceQuit, Title: "Quit"},
	)

	m := MenuModel{
		items:        items,
		difficulties: difficulties,
		player:       player,
		width:        80,
		height:       24,
		keyMapper:    NewKeyMapper(),
		bestFor:      bestFor,
	}
	for i, id := range difficulties {
		if id == current {
			m.difficulty = i
		}
	}
	m.refreshBest()
	return m
}

// Init initializes the menu model.
func (m MenuModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the menu.
func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

// handleKey processes keyboard input for menu navigation.
func (m MenuModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.keyMapper.MapKeyToMenuAction(msg) {
	case MenuActionQuit:
		m.quitting = true
		return m, tea.Quit

	case MenuActionUp:
		if m.cursor > 0 {
			m.cursor--
		}

	case MenuActionDown:
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case MenuActionLeft:
		if n := len(m.difficulties); n > 0 {
			m.difficulty = (m.difficulty + n - 1) % n
			m.refreshBest()
		}

	case MenuActionRight:
		if n := len(m.difficulties); n > 0 {
			m.difficulty = (m.difficulty + 1) % n
			m.refreshBest()
		}

	case MenuActionSelect:
		m.selected = m.items[m.cursor].Choice
		if m.selected == MenuChoiceQuit {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *MenuModel) refreshBest() {
	if m.bestFor == nil {
		return
	}
	m.best = m.bestFor(m.Difficulty())
}

// View renders the menu.
func (m MenuModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(titleStyle.Render(centerText("  S N A K E   D U E L  ", m.width)))
	b.WriteString("\n\n")
	b.WriteString(centerText(fmt.Sprintf("Hello, %s", m.player), m.width))
	b.WriteString("\n\n")

	for i, item := range m.items {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		b.WriteString(centerText(cursor+item.Title, m.width))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(centerText(fmt.Sprintf("<  %s  >   best: %d", m.Difficulty(), m.best), m.width))
	b.WriteString("\n\n")
	controls := "Up/Down: Navigate  |  Left/Right: Difficulty  |  Enter: Select  |  Q: Quit"
	b.WriteString(hintStyle.Render(centerText(controls, m.width)))
	b.WriteString("\n")
	return b.String()
}

// Selected returns the chosen entry, MenuChoiceNone until one is picked.
func (m MenuModel) Selected() MenuChoice {
	return m.selected
}

// Difficulty returns the selected difficulty id.
func (m MenuModel) Difficulty() string {
	if len(m.difficulties) == 0 {
		return ""
	}
	return m.difficulties[m.difficulty]
}

// IsQuitting returns true if user requested to quit.
func (m MenuModel) IsQuitting() bool {
	return m.quitting
}
