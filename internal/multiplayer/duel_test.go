package multiplayer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/snake-duel/internal/realtime"
	"github.com/vovakirdan/snake-duel/internal/snake"
)

type fakeRecorder struct {
	mu      sync.Mutex
	results []MatchResult
}

func (f *fakeRecorder) RecordMatch(r MatchResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, r)
}

func (f *fakeRecorder) all() []MatchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]MatchResult(nil), f.results...)
}

type duelPair struct {
	host, guest         *Duel
	hostCtrl, guestCtrl *snake.Controller
	hostErr, guestErr   chan error
	store               *realtime.MemoryStore
}

// startDuel creates a room, joins it, readies both sides and waits until
// both local matches are running.
func startDuel(t *testing.T, hostRec, guestRec MatchRecorder) *duelPair {
	t.Helper()
	ctx := context.Background()
	store := realtime.NewMemoryStore()
	lobby := newTestLobby(t, store)

	hostRoom, err := lobby.CreateRoom(ctx, NewIdentity("Ann", ""), "medium")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	guestRoom, err := lobby.JoinRoom(ctx, hostRoom.Code(), NewIdentity("Bob", ""))
	if err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	hostCtrls := make(chan *snake.Controller, 1)
	guestCtrls := make(chan *snake.Controller, 1)
	p := &duelPair{
		host: NewDuel(hostRoom, manualFactory(hostCtrls),
			WithRecorder(hostRec), WithDuelLogger(quietLogger())),
		guest: NewDuel(guestRoom, manualFactory(guestCtrls),
			WithRecorder(guestRec), WithDuelLogger(quietLogger())),
		hostErr:  make(chan error, 1),
		guestErr: make(chan error, 1),
		store:    store,
	}
	t.Cleanup(func() {
		_ = p.host.Close(context.Background())
		_ = p.guest.Close(context.Background())
	})

	go func() { p.hostErr <- p.host.Run(ctx) }()
	go func() { p.guestErr <- p.guest.Run(ctx) }()

	if err := p.host.SetReady(ctx, true); err != nil {
		t.Fatalf("SetReady: %v", err)
	}
	if err := p.guest.SetReady(ctx, true); err != nil {
		t.Fatalf("SetReady: %v", err)
	}

	p.hostCtrl = receiveController(t, hostCtrls)
	p.guestCtrl = receiveController(t, guestCtrls)
	return p
}

func waitErr(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(eventTimeout):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestDuelHigherScoreWins(t *testing.T) {
	hostRec, guestRec := &fakeRecorder{}, &fakeRecorder{}
	p := startDuel(t, hostRec, guestRec)

	// The guest dies first with nothing; dying first does not decide anything
	crash(t, p.guestCtrl, false)
	select {
	case evt := <-p.guest.Events():
		if isVerdict(evt) {
			t.Fatal("Verdict must wait for both players")
		}
	case <-time.After(50 * time.Millisecond):
	}

	crash(t, p.hostCtrl, true)

	hostV := waitEvent(t, p.host.Events(), isVerdict).(VerdictEvent)
	guestV := waitEvent(t, p.guest.Events(), isVerdict).(VerdictEvent)

	if hostV.Verdict != VerdictWin || hostV.LocalScore != 15 || hostV.RemoteScore != 0 {
		t.Errorf("Host verdict = %+v, expected win 15-0", hostV)
	}
	if guestV.Verdict != VerdictLose || guestV.LocalScore != 0 || guestV.RemoteScore != 15 {
		t.Errorf("Guest verdict = %+v, expected lose 0-15", guestV)
	}
	if hostV.Verdict != guestV.Verdict.Invert() {
		t.Error("Both sides must agree on the outcome")
	}

	if err := waitErr(t, p.hostErr); err != nil {
		t.Errorf("Host Run: %v", err)
	}
	if err := waitErr(t, p.guestErr); err != nil {
		t.Errorf("Guest Run: %v", err)
	}

	waitSession(t, p.guest.Room(), func(s MatchSession) bool { return s.Status == StatusFinished })

	results := hostRec.all()
	if len(results) != 1 || results[0].RemoteName != "Bob" || results[0].Verdict != VerdictWin {
		t.Errorf("Host recorded %+v", results)
	}
	if res, ok := p.guest.Result(); !ok || res.Verdict != VerdictLose || res.Role != RoleGuest {
		t.Errorf("Guest Result() = %+v, %v", res, ok)
	}
}

func TestDuelTie(t *testing.T) {
	p := startDuel(t, nil, nil)

	crash(t, p.hostCtrl, false)
	crash(t, p.guestCtrl, false)

	hostV := waitEvent(t, p.host.Events(), isVerdict).(VerdictEvent)
	guestV := waitEvent(t, p.guest.Events(), isVerdict).(VerdictEvent)
	if hostV.Verdict != VerdictTie || guestV.Verdict != VerdictTie {
		t.Errorf("Verdicts = %v / %v, expected tie", hostV.Verdict, guestV.Verdict)
	}
}

func TestDuelOpponentLeftIsForfeit(t *testing.T) {
	hostRec := &fakeRecorder{}
	p := startDuel(t, hostRec, nil)

	if err := p.guest.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	v := waitEvent(t, p.host.Events(), isVerdict).(VerdictEvent)
	if v.Verdict != VerdictWin || v.Reason != MatchEndReasonOpponentLeft {
		t.Errorf("Verdict = %+v, expected forfeit win", v)
	}
	if err := waitErr(t, p.hostErr); err != nil {
		t.Errorf("Host Run: %v", err)
	}
	if results := hostRec.all(); len(results) != 1 || results[0].Reason != MatchEndReasonOpponentLeft {
		t.Errorf("Recorded %+v", results)
	}
}

func TestDuelOpponentLeftAfterFinishingKeepsScore(t *testing.T) {
	hostRec := &fakeRecorder{}
	p := startDuel(t, hostRec, nil)

	crash(t, p.guestCtrl, true)
	waitEvent(t, p.host.Events(), sessionWhere(func(s MatchSession) bool {
		g := s.Slot(RoleGuest)
		return g != nil && g.State() == SlotState{Score: 15, Terminated: true}
	}))
	if err := p.guest.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	waitEvent(t, p.host.Events(), func(evt Event) bool {
		_, ok := evt.(OpponentLeftEvent)
		return ok
	})
	if _, ok := p.host.Result(); ok {
		t.Fatal("Leaving after finishing must not hand out a forfeit")
	}

	crash(t, p.hostCtrl, false)

	v := waitEvent(t, p.host.Events(), isVerdict).(VerdictEvent)
	if v.Verdict != VerdictLose || v.LocalScore != 0 || v.RemoteScore != 15 {
		t.Errorf("Verdict = %+v, expected lose 0-15", v)
	}
	if v.Reason != MatchEndReasonCompleted {
		t.Errorf("Reason = %v, expected %v", v.Reason, MatchEndReasonCompleted)
	}
	if err := waitErr(t, p.hostErr); err != nil {
		t.Errorf("Host Run: %v", err)
	}
	if results := hostRec.all(); len(results) != 1 || results[0].Verdict != VerdictLose {
		t.Errorf("Recorded %+v", results)
	}
}

func TestDuelHostLeftClosesGuest(t *testing.T) {
	p := startDuel(t, nil, nil)

	if err := p.host.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	waitEvent(t, p.guest.Events(), isClosed)
	if err := waitErr(t, p.guestErr); !errors.Is(err, ErrRoomClosed) {
		t.Errorf("Guest Run = %v, expected ErrRoomClosed", err)
	}
	if _, ok := p.guest.Result(); ok {
		t.Error("No verdict should be recorded when the room closed mid-match")
	}
}

func TestDuelTurnBeforeStart(t *testing.T) {
	ctx := context.Background()
	lobby := newTestLobby(t, realtime.NewMemoryStore())
	room, err := lobby.CreateRoom(ctx, NewIdentity("Ann", ""), "medium")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	d := NewDuel(room, manualFactory(make(chan *snake.Controller, 1)), WithDuelLogger(quietLogger()))
	defer d.Close(ctx)

	if d.Turn(snake.DirUp) {
		t.Error("Turn should be rejected before the match starts")
	}
	if _, ok := d.Snapshot(); ok {
		t.Error("Snapshot should not exist before the match starts")
	}
}
