package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/snake-duel/internal/core"
	"github.com/vovakirdan/snake-duel/internal/multiplayer"
	"github.com/vovakirdan/snake-duel/internal/snake"
)

const requestTimeout = 10 * time.Second

// DuelState represents the current step of the duel flow.
type DuelState int

const (
	DuelStateChoose     DuelState = iota // Choose host or join
	DuelStateEnterCode                   // Typing a room code
	DuelStateConnecting                  // Creating or joining a room
	DuelStateLobby                       // In a room, toggling ready
	DuelStatePlaying                     // Match running
	DuelStateResult                      // Verdict or error shown
)

// Messages produced by duel commands.
type (
	roomOpenedMsg       struct{ room *multiplayer.Room }
	duelErrMsg          struct{ err error }
	duelEventMsg        struct{ evt multiplayer.Event }
	duelEventsClosedMsg struct{}
	duelDoneMsg         struct{ err error }
)

// duelLink owns the running duel so it can be closed from outside the
// Bubble Tea loop, e.g. when an SSH connection drops.
type duelLink struct {
	mu     sync.Mutex
	duel   *multiplayer.Duel
	cancel context.CancelFunc
}

func (l *duelLink) set(d *multiplayer.Duel, cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.duel, l.cancel = d, cancel
}

func (l *duelLink) current() *multiplayer.Duel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.duel
}

// Close leaves the room of the running duel, if any.
func (l *duelLink) Close() {
	l.mu.Lock()
	d, cancel := l.duel, l.cancel
	l.duel, l.cancel = nil, nil
	l.mu.Unlock()

	if d != nil {
		ctx, done := context.WithTimeout(context.Background(), requestTimeout)
		//nolint:errcheck // Best-effort leave; the janitor removes leftovers
		d.Close(ctx)
		done()
	}
	if cancel != nil {
		cancel()
	}
}

// DuelModel handles hosting or joining a room and playing the match.
type DuelModel struct {
	svc        Services
	self       multiplayer.Identity
	difficulty string
	link       *duelLink
	keyMapper  *KeyMapper
	input      textinput.Model

	state    DuelState
	joining  bool
	session  multiplayer.MatchSession
	ready    bool
	verdict  *multiplayer.VerdictEvent
	notice   string
	errMsg   string
	quitting bool
	back     bool
}

// NewDuelModel creates a duel flow for self. difficulty applies to rooms
// this player hosts.
func NewDuelModel(svc Services, self multiplayer.Identity, difficulty string) DuelModel {
	input := textinput.New()
	input.Placeholder = "ABC123"
	input.CharLimit = multiplayer.CodeLength
	input.Width = multiplayer.CodeLength + 2

	return DuelModel{
		svc:        svc,
		self:       self,
		difficulty: difficulty,
		link:       &duelLink{},
		keyMapper:  NewKeyMapper(),
		input:      input,
	}
}

// Init initializes the model.
func (m DuelModel) Init() tea.Cmd {
	return nil
}

// State returns the current step of the flow.
func (m DuelModel) State() DuelState {
	return m.state
}

// Close leaves the current room. Safe to call from any goroutine.
func (m DuelModel) Close() {
	m.link.Close()
}

// IsQuitting returns true if user requested to quit entirely.
func (m DuelModel) IsQuitting() bool {
	return m.quitting
}

// BackToMenu returns true if user requested to go back to menu.
func (m DuelModel) BackToMenu() bool {
	return m.back
}

// Update handles messages.
func (m DuelModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case roomOpenedMsg:
		return m.handleRoomOpened(msg.room)
	case duelErrMsg:
		m.errMsg = multiplayer.UserMessage(msg.err)
		if m.state == DuelStateConnecting {
			m.state = DuelStateChoose
			if m.joining {
				m.state = DuelStateEnterCode
				return m, m.input.Focus()
			}
		}
		return m, nil
	case duelEventMsg:
		return m.handleEvent(msg.evt)
	case duelDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, multiplayer.ErrRoomClosed) && !errors.Is(msg.err, context.Canceled) {
			m.errMsg = multiplayer.UserMessage(msg.err)
			m.state = DuelStateResult
		}
		return m, nil
	case duelEventsClosedMsg:
		return m, nil
	case TickMsg:
		if m.state != DuelStatePlaying {
			return m, nil
		}
		return m, tickCmd(frameInterval)
	}

	if m.state == DuelStateEnterCode {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m DuelModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}
	if m.state == DuelStateEnterCode {
		return m.handleCodeKey(msg)
	}

	action, quit := m.keyMapper.MapKey(msg)
	if quit {
		return m.quit()
	}

	switch m.state {
	case DuelStateChoose:
		switch msg.String() {
		case "h", "1":
			return m.Host()
		case "j", "2":
			m.errMsg = ""
			m.state = DuelStateEnterCode
			m.input.SetValue("")
			return m, m.input.Focus()
		}
		if action == core.ActionBack {
			m.back = true
		}

	case DuelStateConnecting:
		if action == core.ActionBack {
			m.state = DuelStateChoose
		}

	case DuelStateLobby:
		switch action {
		case core.ActionReady, core.ActionConfirm:
			return m, m.setReady(!m.ready)
		case core.ActionBack:
			m.link.Close()
			m.reset()
		}

	case DuelStatePlaying:
		if dir, ok := Direction(action); ok {
			if d := m.link.current(); d != nil {
				d.Turn(dir)
			}
			return m, nil
		}
		if action == core.ActionBack {
			m.link.Close()
			m.reset()
		}

	case DuelStateResult:
		if action == core.ActionBack || action == core.ActionConfirm {
			m.link.Close()
			m.reset()
		}
	}
	return m, nil
}

func (m DuelModel) handleCodeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.input.Blur()
		m.state = DuelStateChoose
		return m, nil
	case "enter":
		m.input.Blur()
		return m.Join(m.input.Value())
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// Host creates a room, skipping the host/join choice.
func (m DuelModel) Host() (DuelModel, tea.Cmd) {
	m.errMsg = ""
	m.joining = false
	m.state = DuelStateConnecting
	return m, m.createRoom()
}

// Join joins the room with code, skipping the host/join choice.
func (m DuelModel) Join(code string) (DuelModel, tea.Cmd) {
	m.errMsg = ""
	m.joining = true
	m.input.SetValue(code)
	m.state = DuelStateConnecting
	return m, m.joinRoom(code)
}

func (m DuelModel) quit() (tea.Model, tea.Cmd) {
	m.link.Close()
	m.quitting = true
	return m, tea.Quit
}

// reset returns to the host/join choice, keeping the last error.
func (m *DuelModel) reset() {
	m.state = DuelStateChoose
	m.session = multiplayer.MatchSession{}
	m.ready = false
	m.verdict = nil
	m.notice = ""
}

func (m DuelModel) handleRoomOpened(room *multiplayer.Room) (tea.Model, tea.Cmd) {
	if m.state != DuelStateConnecting || m.quitting {
		// The player gave up waiting
		//nolint:errcheck // Best-effort leave
		room.Leave(context.Background())
		return m, nil
	}

	logger := m.svc.logger()
	duel := multiplayer.NewDuel(room, m.svc.controllerFactory(),
		multiplayer.WithRecorder(m.svc.Scores),
		multiplayer.WithDuelLogger(logger),
	)
	ctx, cancel := context.WithCancel(context.Background())
	m.link.set(duel, cancel)
	m.state = DuelStateLobby

	return m, tea.Batch(runDuel(ctx, duel), waitForEvent(duel.Events()))
}

func (m DuelModel) handleEvent(evt multiplayer.Event) (tea.Model, tea.Cmd) {
	d := m.link.current()
	if d == nil {
		// Stale event from a duel that was closed
		return m, nil
	}
	next := waitForEvent(d.Events())

	switch e := evt.(type) {
	case multiplayer.SessionUpdatedEvent:
		m.session = e.Session
		if slot := e.Session.Slot(d.Room().Role()); slot != nil {
			m.ready = slot.Ready
		}
	case multiplayer.MatchStartEvent:
		m.state = DuelStatePlaying
		m.notice = ""
		return m, tea.Batch(next, tickCmd(frameInterval))
	case multiplayer.OpponentLeftEvent:
		m.notice = "Opponent left."
	case multiplayer.RoomClosedEvent:
		m.errMsg = multiplayer.UserMessage(multiplayer.ErrRoomClosed)
		m.state = DuelStateResult
	case multiplayer.VerdictEvent:
		m.verdict = &e
		m.state = DuelStateResult
	case multiplayer.ErrorEvent:
		m.errMsg = multiplayer.UserMessage(e.Err)
	}
	return m, next
}

func (m DuelModel) createRoom() tea.Cmd {
	lobby, self, difficulty := m.svc.Lobby, m.self, m.difficulty
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		room, err := lobby.CreateRoom(ctx, self, difficulty)
		if err != nil {
			return duelErrMsg{err: err}
		}
		return roomOpenedMsg{room: room}
	}
}

func (m DuelModel) joinRoom(code string) tea.Cmd {
	lobby, self := m.svc.Lobby, m.self
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		room, err := lobby.JoinRoom(ctx, code, self)
		if err != nil {
			return duelErrMsg{err: err}
		}
		return roomOpenedMsg{room: room}
	}
}

func (m DuelModel) setReady(ready bool) tea.Cmd {
	d := m.link.current()
	if d == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := d.SetReady(ctx, ready); err != nil {
			return duelErrMsg{err: err}
		}
		return nil
	}
}

func runDuel(ctx context.Context, d *multiplayer.Duel) tea.Cmd {
	return func() tea.Msg {
		return duelDoneMsg{err: d.Run(ctx)}
	}
}

// waitForEvent returns a command that waits for the next duel event.
func waitForEvent(events <-chan multiplayer.Event) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-events
		if !ok {
			return duelEventsClosedMsg{}
		}
		return duelEventMsg{evt: evt}
	}
}

// View renders the current step.
func (m DuelModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("S N A K E   D U E L"))
	b.WriteString("\n\n")

	switch m.state {
	case DuelStateChoose:
		b.WriteString("H: Host a room\nJ: Join a room\n\n")
		b.WriteString(hintStyle.Render("Esc: Menu  |  Q: Quit"))
	case DuelStateEnterCode:
		b.WriteString("Room code: ")
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(hintStyle.Render("Enter: Join  |  Esc: Back"))
	case DuelStateConnecting:
		b.WriteString("Connecting...\n\n")
		b.WriteString(hintStyle.Render("Esc: Cancel"))
	case DuelStateLobby:
		b.WriteString(m.lobbyView())
	case DuelStatePlaying:
		b.WriteString(m.playingView())
	case DuelStateResult:
		b.WriteString(m.resultView())
	}

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(hintStyle.Render(m.notice))
	}
	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.errMsg))
	}
	return b.String()
}

func (m DuelModel) lobbyView() string {
	var b strings.Builder
	code := m.session.Code
	if d := m.link.current(); d != nil {
		code = d.Room().Code()
	}
	fmt.Fprintf(&b, "Room code: %s   Difficulty: %s\n\n", code, m.session.Difficulty)
	b.WriteString(slotLine("Host ", &m.session.Host))
	b.WriteString(slotLine("Guest", m.session.Guest))
	b.WriteString("\n")
	if m.session.Guest == nil {
		b.WriteString("Waiting for an opponent...\n")
	}
	b.WriteString(hintStyle.Render("Space: Toggle ready  |  Esc: Leave"))
	return b.String()
}

func slotLine(label string, slot *multiplayer.PlayerSlot) string {
	if slot == nil || slot.ID == "" {
		return fmt.Sprintf("%s  -\n", label)
	}
	mark := "[ ]"
	if slot.Ready {
		mark = "[x]"
	}
	return fmt.Sprintf("%s  %s %s\n", label, mark, slot.Name)
}

func (m DuelModel) playingView() string {
	d := m.link.current()
	if d == nil {
		return ""
	}
	snap, ok := d.Snapshot()
	if !ok {
		return "Starting...\n"
	}

	var b strings.Builder
	b.WriteString(RenderBoard(snap, scoreHUD(m.self.Name, snap)))
	b.WriteString("\n")
	if remote, ok := d.Remote(); ok {
		line := fmt.Sprintf("vs %s  %d", remote.Name, remote.Score)
		if remote.Terminated {
			line += "  (finished)"
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if snap.Status == snake.StatusGameOver {
		b.WriteString(hintStyle.Render("Waiting for your opponent to finish..."))
		b.WriteString("\n")
	}
	b.WriteString(hintStyle.Render("Arrows/WASD: Move  |  Esc: Forfeit  |  Q: Quit"))
	return b.String()
}

func (m DuelModel) resultView() string {
	if m.verdict == nil {
		return hintStyle.Render("Enter: Back")
	}
	v := m.verdict

	var headline string
	switch v.Verdict {
	case multiplayer.VerdictWin:
		headline = "You win!"
	case multiplayer.VerdictLose:
		headline = "You lose."
	default:
		headline = "It's a tie."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(headline))
	b.WriteString("\n")
	fmt.Fprintf(&b, "You %d  -  %d Opponent\n", v.LocalScore, v.RemoteScore)
	if v.Reason == multiplayer.MatchEndReasonOpponentLeft {
		b.WriteString("Your opponent left the match.\n")
	}
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("Enter: Back"))
	return b.String()
}
