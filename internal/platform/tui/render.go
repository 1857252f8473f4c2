package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/snake-duel/internal/core"
	"github.com/vovakirdan/snake-duel/internal/snake"
)

// colorStyles maps core.Color to lipgloss styles.
var colorStyles = map[core.Color]lipgloss.Style{
	core.ColorDefault:      lipgloss.NewStyle(),
	core.ColorRed:          lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	core.ColorGreen:        lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	core.ColorYellow:       lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	core.ColorBlue:         lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	core.ColorMagenta:      lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
	core.ColorCyan:         lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	core.ColorWhite:        lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
	core.ColorBrightRed:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	core.ColorBrightGreen:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	core.ColorBrightYellow: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	core.ColorGray:         lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Board glyphs.
const (
	glyphHead = '@'
	glyphBody = 'o'
	glyphFood = '*'
)

// RenderScreen converts a Screen buffer to a styled string for display.
// Groups adjacent cells with the same color to minimize ANSI escape sequences.
func RenderScreen(s *core.Screen) string {
	var sb strings.Builder
	sb.Grow(s.Width()*s.Height()*2 + s.Height())

	for y := range s.Height() {
		if y > 0 {
			sb.WriteRune('\n')
		}

		x := 0
		for x < s.Width() {
			startColor := s.GetCell(x, y).Color

			var run strings.Builder
			for x < s.Width() {
				cell := s.GetCell(x, y)
				if cell.Color != startColor {
					break
				}
				run.WriteRune(cell.Rune)
				x++
			}

			style, ok := colorStyles[startColor]
			if !ok {
				style = colorStyles[core.ColorDefault]
			}
			sb.WriteString(style.Render(run.String()))
		}
	}
	return sb.String()
}

// DrawBoard draws the bordered grid of snap with its top-left corner at
// (x, y). The board takes Width+2 by Height+2 cells.
func DrawBoard(s *core.Screen, x, y int, snap snake.Snapshot) {
	border := core.ColorGray
	if snap.Status == snake.StatusGameOver {
		border = core.ColorRed
	}
	s.DrawBox(core.NewRect(x, y, snap.Width+2, snap.Height+2), border)

	if snap.Food.X >= 0 && snap.Food.Y >= 0 {
		s.SetColored(x+1+snap.Food.X, y+1+snap.Food.Y, glyphFood, core.ColorBrightRed)
	}
	for i := len(snap.Body) - 1; i >= 0; i-- {
		p := snap.Body[i]
		if i == 0 {
			s.SetColored(x+1+p.X, y+1+p.Y, glyphHead, core.ColorBrightGreen)
			continue
		}
		s.SetColored(x+1+p.X, y+1+p.Y, glyphBody, core.ColorGreen)
	}
}

// RenderBoard renders snap with a one-line HUD above the grid.
func RenderBoard(snap snake.Snapshot, hud string) string {
	s := core.NewScreen(core.Max(snap.Width+2, len([]rune(hud))), snap.Height+3)
	s.DrawTextColored(0, 0, hud, core.ColorBrightYellow)
	DrawBoard(s, 0, 1, snap)
	return RenderScreen(s)
}

// statusLine describes the controller state for the HUD.
func statusLine(snap snake.Snapshot) string {
	switch snap.Status {
	case snake.StatusPaused:
		return "PAUSED"
	case snake.StatusGameOver:
		if snap.Err != nil {
			return "ERROR"
		}
		return "GAME OVER"
	}
	return ""
}

func scoreHUD(name string, snap snake.Snapshot) string {
	hud := fmt.Sprintf("%s  %d  [%s]", name, snap.Score, snap.Difficulty)
	if status := statusLine(snap); status != "" {
		hud += "  " + status
	}
	return hud
}

// centerText centers text within given width.
func centerText(text string, width int) string {
	n := lipgloss.Width(text)
	if n >= width {
		return text
	}
	return strings.Repeat(" ", (width-n)/2) + text
}
