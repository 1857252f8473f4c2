package tui

import (
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/snake-duel/internal/config"
	"github.com/vovakirdan/snake-duel/internal/core"
	"github.com/vovakirdan/snake-duel/internal/multiplayer"
	"github.com/vovakirdan/snake-duel/internal/realtime"
	"github.com/vovakirdan/snake-duel/internal/snake"
	"github.com/vovakirdan/snake-duel/internal/storage"
)

func quietLogger() *log.Logger {
	l := log.New(io.Discard)
	l.SetLevel(log.FatalLevel)
	return l
}

func newTestScores(t *testing.T) *storage.BestEffort {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "scores.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return storage.NewBestEffort(store, quietLogger())
}

// manualController never ticks on its own.
func manualController(t *testing.T) *snake.Controller {
	t.Helper()
	diff := snake.Difficulty{ID: "medium", Label: "Medium", TickInterval: time.Hour, Multiplier: 1.5}
	c := snake.NewController(snake.NewEngine(10, 10, snake.WithSeed(7)), diff, snake.WithLogger(quietLogger()))
	t.Cleanup(c.Stop)
	return c
}

func testServices(t *testing.T, withLobby bool) Services {
	t.Helper()
	svc := Services{
		Config: config.NewHolder(config.Default()),
		Scores: newTestScores(t),
		Logger: quietLogger(),
	}
	if withLobby {
		svc.Lobby = multiplayer.NewLobby(realtime.NewMemoryStore(), realtime.NewMemoryLocker(),
			multiplayer.WithLobbyLogger(quietLogger()))
	}
	return svc
}

func TestDrawBoard(t *testing.T) {
	snap := snake.Snapshot{
		Width:  4,
		Height: 3,
		Body:   snake.Body{{X: 2, Y: 1}, {X: 1, Y: 1}},
		Food:   snake.Point{X: 3, Y: 2},
		Status: snake.StatusPlaying,
	}
	s := core.NewScreen(6, 5)
	DrawBoard(s, 0, 0, snap)

	tests := []struct {
		x, y int
		want rune
	}{
		{3, 2, glyphHead},
		{2, 2, glyphBody},
		{4, 3, glyphFood},
		{1, 1, ' '},
	}
	for _, tt := range tests {
		if got := s.Get(tt.x, tt.y); got != tt.want {
			t.Errorf("cell (%d,%d) = %q, want %q", tt.x, tt.y, got, tt.want)
		}
	}
	if got := s.GetCell(0, 0).Color; got != core.ColorGray {
		t.Errorf("border color = %v, want gray while playing", got)
	}
}

func TestRenderBoardShowsHUD(t *testing.T) {
	c := manualController(t)
	snap := c.Snapshot()
	out := RenderBoard(snap, scoreHUD("ana", snap))
	if !strings.Contains(out, "ana") || !strings.Contains(out, "[medium]") {
		t.Errorf("HUD missing from board:\n%s", out)
	}
}

func TestSoloSavesScoreOnce(t *testing.T) {
	scores := newTestScores(t)
	c := manualController(t)
	m := NewSoloModel(c, scores, "ana")
	m.Init()

	c.SetBody(snake.Body{{X: 5, Y: 5}, {X: 4, Y: 5}, {X: 3, Y: 5}}, snake.DirRight)
	c.SetFood(snake.Point{X: 6, Y: 5})
	if err := c.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	// Head turns into its own body
	c.SetBody(snake.Body{{X: 2, Y: 2}, {X: 2, Y: 3}, {X: 3, Y: 3}, {X: 3, Y: 2}, {X: 3, Y: 1}}, snake.DirRight)
	if err := c.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if c.Status() != snake.StatusGameOver {
		t.Fatalf("status = %v, want game over", c.Status())
	}

	next, _ := m.Update(TickMsg(time.Now()))
	next, _ = next.Update(TickMsg(time.Now()))
	m = next.(SoloModel)

	got := scores.GetTopScores("medium", 0)
	if len(got) != 1 {
		t.Fatalf("saved %d scores, want 1", len(got))
	}
	if got[0].Score != 15 || got[0].PlayerName != "ana" {
		t.Errorf("saved %+v, want ana with 15", got[0])
	}
	if !strings.Contains(m.View(), "Best 15") {
		t.Errorf("view does not show new best:\n%s", m.View())
	}
}

func TestSoloKeys(t *testing.T) {
	c := manualController(t)
	m := NewSoloModel(c, storage.NewBestEffort(nil, quietLogger()), "ana")
	m.Init()

	next, _ := m.Update(runeKey('p'))
	if c.Status() != snake.StatusPaused {
		t.Errorf("status after p = %v, want paused", c.Status())
	}
	next, _ = next.Update(runeKey('p'))
	if c.Status() != snake.StatusPlaying {
		t.Errorf("status after second p = %v, want playing", c.Status())
	}

	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(SoloModel)
	if !m.BackToMenu() {
		t.Error("esc did not go back to the menu")
	}
}

func TestDuelInvalidCodeShowsError(t *testing.T) {
	svc := testServices(t, true)
	m := NewDuelModel(svc, multiplayer.NewIdentity("ana", ""), "medium")

	m, cmd := m.Join("!!")
	if m.State() != DuelStateConnecting {
		t.Fatalf("state = %v, want connecting", m.State())
	}
	next, _ := m.Update(cmd())
	m = next.(DuelModel)

	if m.State() != DuelStateEnterCode {
		t.Errorf("state = %v, want enter code", m.State())
	}
	if !strings.Contains(m.View(), multiplayer.UserMessage(multiplayer.ErrInvalidCode)) {
		t.Errorf("view does not explain the bad code:\n%s", m.View())
	}
}

func TestDuelUnknownRoom(t *testing.T) {
	svc := testServices(t, true)
	m := NewDuelModel(svc, multiplayer.NewIdentity("ana", ""), "medium")

	m, cmd := m.Join("ABC123")
	next, _ := m.Update(cmd())
	m = next.(DuelModel)

	if !strings.Contains(m.View(), multiplayer.UserMessage(multiplayer.ErrRoomNotFound)) {
		t.Errorf("view does not report a missing room:\n%s", m.View())
	}
}

func TestDuelHostOpensLobby(t *testing.T) {
	svc := testServices(t, true)
	m := NewDuelModel(svc, multiplayer.NewIdentity("ana", ""), "hard")
	defer m.Close()

	m, cmd := m.Host()
	next, _ := m.Update(cmd())
	m = next.(DuelModel)

	if m.State() != DuelStateLobby {
		t.Fatalf("state = %v, want lobby", m.State())
	}
	d := m.link.current()
	if d == nil {
		t.Fatal("no duel linked after the room opened")
	}
	sess, err := svc.Lobby.Peek(t.Context(), d.Room().Code())
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if sess.Difficulty != "hard" || sess.Host.Name != "ana" {
		t.Errorf("room = %+v, want hard room hosted by ana", sess)
	}
}

func TestMenuNavigation(t *testing.T) {
	bestCalls := 0
	m := NewMenuModel("ana", []string{"easy", "medium", "hard"}, "medium", false, func(string) int {
		bestCalls++
		return 42
	})

	if m.Difficulty() != "medium" {
		t.Fatalf("Difficulty = %q, want medium", m.Difficulty())
	}
	for _, item := range m.items {
		if item.Choice == MenuChoiceDuel {
			t.Error("duel shown without a lobby")
		}
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRight})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(MenuModel)
	if m.Difficulty() != "easy" {
		t.Errorf("Difficulty after two rights = %q, want easy (wraps)", m.Difficulty())
	}
	if bestCalls != 3 {
		t.Errorf("best looked up %d times, want 3", bestCalls)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(MenuModel)
	if m.Selected() != MenuChoiceScores {
		t.Errorf("Selected = %v, want scores", m.Selected())
	}
}

func TestScoreboardTabs(t *testing.T) {
	scores := newTestScores(t)
	scores.SaveScore(storage.HighScoreEntry{PlayerName: "ana", Score: 30, Difficulty: "easy"})
	scores.SaveScore(storage.HighScoreEntry{PlayerName: "bo", Score: 50, Difficulty: "hard"})

	m := NewScoreboardModel(scores, []string{"easy", "hard"}, 80, 24)
	if len(m.entries) != 2 {
		t.Fatalf("all tab has %d entries, want 2", len(m.entries))
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(ScoreboardModel)
	if m.Difficulty() != "easy" || len(m.entries) != 1 || m.entries[0].PlayerName != "ana" {
		t.Errorf("easy tab = %q %+v", m.Difficulty(), m.entries)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(ScoreboardModel)
	if !m.IsGoingBack() {
		t.Error("esc did not leave the scoreboard")
	}
}

func TestSessionFlow(t *testing.T) {
	svc := testServices(t, false)
	m := NewSessionModel(svc, multiplayer.NewIdentity("ana", ""), "")
	defer m.Close()

	// Down, enter: scores (no duel entry without a lobby)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(SessionModel)
	if m.Screen() != ScreenScores {
		t.Fatalf("screen = %v, want scores", m.Screen())
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(SessionModel)
	if m.Screen() != ScreenMenu {
		t.Fatalf("screen = %v, want menu", m.Screen())
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(SessionModel)
	if m.Screen() != ScreenSolo {
		t.Fatalf("screen = %v, want solo", m.Screen())
	}
	if got := m.solo.ctrl.Difficulty().ID; got != svc.Config.Load().DefaultDifficulty {
		t.Errorf("solo difficulty = %q, want default", got)
	}

	next, _ = m.Update(runeKey('q'))
	m = next.(SessionModel)
	if m.View() != "" {
		t.Error("view not cleared after quit")
	}
}

func TestSessionCloseLeavesRoom(t *testing.T) {
	svc := testServices(t, true)
	m := NewSessionModel(svc, multiplayer.NewIdentity("ana", ""), "").StartDuel(true, "")
	if m.Screen() != ScreenDuel {
		t.Fatalf("screen = %v, want duel", m.Screen())
	}

	// Run the create command the way the program would
	var opened tea.Msg
	for _, msg := range drain(m.Init()) {
		if _, ok := msg.(roomOpenedMsg); ok {
			opened = msg
		}
	}
	if opened == nil {
		t.Fatal("room was not created")
	}
	next, _ := m.Update(opened)
	m = next.(SessionModel)
	code := m.duel.link.current().Room().Code()

	m.Close()

	if _, err := svc.Lobby.Peek(t.Context(), code); err == nil {
		t.Error("room still exists after the session closed")
	}
}

// drain runs cmd and any batched commands, collecting their messages.
// Commands that block on duel events are not expected here.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}
