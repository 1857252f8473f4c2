package snake

import (
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

var testDifficulty = Difficulty{
	ID:           "medium",
	Label:        "Medium",
	TickInterval: time.Hour, // Ticks are driven by hand
	Multiplier:   1.5,
}

func newTestController(t *testing.T, opts ...ControllerOption) *Controller {
	t.Helper()
	c := NewController(NewEngine(16, 16, WithSeed(99)), testDifficulty, opts...)
	t.Cleanup(c.Stop)
	return c
}

func TestControllerEatScoresWithMultiplier(t *testing.T) {
	var scored []int
	c := newTestController(t, WithHooks(Hooks{
		OnScore: func(score int) { scored = append(scored, score) },
	}))
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.SetBody(Body{{8, 8}, {7, 8}, {6, 8}}, DirRight)
	c.SetFood(Point{9, 8})

	if err := c.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	snap := c.Snapshot()
	expected := Body{{9, 8}, {8, 8}, {7, 8}, {6, 8}}
	if !reflect.DeepEqual(snap.Body, expected) {
		t.Errorf("Body = %v, expected %v", snap.Body, expected)
	}
	if snap.Score != 15 {
		t.Errorf("Score should be round(10 x 1.5) = 15, got %d", snap.Score)
	}
	if len(scored) != 1 || scored[0] != 15 {
		t.Errorf("OnScore calls = %v, expected [15]", scored)
	}
	if snap.Body.Contains(snap.Food) {
		t.Errorf("New food %v should not be on the body", snap.Food)
	}
}

func TestNoImmediateReversal(t *testing.T) {
	c := newTestController(t)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.SetBody(Body{{8, 8}, {7, 8}, {6, 8}}, DirRight)
	c.SetFood(Point{0, 0})

	if c.Turn(DirLeft) {
		t.Error("Turn(Left) while moving Right should be rejected")
	}
	if err := c.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	snap := c.Snapshot()
	if snap.Head() != (Point{9, 8}) {
		t.Errorf("Snake should continue right to (9,8), got %v", snap.Head())
	}
	if snap.Status != StatusPlaying {
		t.Errorf("Status = %v, expected playing", snap.Status)
	}
}

func TestReversalCheckedAgainstAppliedDirection(t *testing.T) {
	c := newTestController(t)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.SetBody(Body{{8, 8}, {7, 8}, {6, 8}}, DirRight)
	c.SetFood(Point{0, 0})

	// Up is accepted, but Left is still a reversal of the applied Right
	if !c.Turn(DirUp) {
		t.Fatal("Turn(Up) should be accepted")
	}
	if c.Turn(DirLeft) {
		t.Error("Turn(Left) should be rejected until the Up turn is applied")
	}
	if err := c.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if head := c.Snapshot().Head(); head != (Point{8, 7}) {
		t.Errorf("Head = %v, expected (8,7) after turning up", head)
	}
	if !c.Turn(DirLeft) {
		t.Error("Turn(Left) should be accepted once moving Up")
	}
}

func TestLatestInputWins(t *testing.T) {
	c := newTestController(t)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.SetBody(Body{{8, 8}, {7, 8}, {6, 8}}, DirRight)
	c.SetFood(Point{0, 0})

	c.Turn(DirUp)
	c.Turn(DirDown)
	if err := c.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if head := c.Snapshot().Head(); head != (Point{8, 9}) {
		t.Errorf("Head = %v, expected (8,9) from the latest input", head)
	}
}

func TestGameOverIsTerminal(t *testing.T) {
	var overScore atomic.Int64
	overScore.Store(-1)
	c := newTestController(t, WithHooks(Hooks{
		OnGameOver: func(score int) { overScore.Store(int64(score)) },
	}))
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.SetBody(Body{{5, 5}, {4, 5}, {4, 6}, {5, 6}, {6, 6}}, DirRight)
	c.SetFood(Point{0, 0})
	c.Turn(DirDown)

	if err := c.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if c.Status() != StatusGameOver {
		t.Fatalf("Status = %v, expected game over", c.Status())
	}
	if overScore.Load() != 0 {
		t.Errorf("OnGameOver score = %d, expected 0", overScore.Load())
	}

	before := c.Snapshot()
	if err := c.Tick(); err != nil {
		t.Fatalf("Tick after game over: %v", err)
	}
	if c.Turn(DirUp) {
		t.Error("Turn should be rejected after game over")
	}
	c.Resume()
	after := c.Snapshot()
	if !reflect.DeepEqual(before.Body, after.Body) || after.Status != StatusGameOver {
		t.Error("State should not change after game over")
	}
	if err := c.Start(); !errors.Is(err, ErrNotIdle) {
		t.Errorf("Start after game over should fail with ErrNotIdle, got %v", err)
	}

	c.Reset()
	if c.Status() != StatusIdle || c.Score() != 0 {
		t.Errorf("Reset should return to idle with zero score, got %v/%d", c.Status(), c.Score())
	}
}

func TestPauseResumePreservesState(t *testing.T) {
	c := newTestController(t)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.SetBody(Body{{8, 8}, {7, 8}, {6, 8}}, DirRight)
	c.SetFood(Point{9, 8})
	if err := c.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	c.Pause()
	if c.Status() != StatusPaused {
		t.Fatalf("Status = %v, expected paused", c.Status())
	}
	paused := c.Snapshot()
	if err := c.Tick(); err != nil {
		t.Fatalf("Tick while paused: %v", err)
	}
	if c.Snapshot().Ticks != paused.Ticks {
		t.Error("Tick while paused should be a no-op")
	}

	c.TogglePause()
	resumed := c.Snapshot()
	if resumed.Status != StatusPlaying {
		t.Errorf("Status = %v, expected playing", resumed.Status)
	}
	if !reflect.DeepEqual(paused.Body, resumed.Body) || paused.Score != resumed.Score || paused.Direction != resumed.Direction {
		t.Error("Resume should keep body, direction and score")
	}
}

func TestFoodExhaustionIsFatal(t *testing.T) {
	// 3x1 grid: eating the last free cell leaves nowhere for new food
	engine := NewEngine(3, 1, WithSeed(1))
	c := NewController(engine, testDifficulty, WithInitialLength(2))
	t.Cleanup(c.Stop)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.SetBody(Body{{1, 0}, {0, 0}}, DirRight)
	c.SetFood(Point{2, 0})

	err := c.Tick()
	if !errors.Is(err, ErrFoodPlacementExhausted) {
		t.Fatalf("Tick error = %v, expected ErrFoodPlacementExhausted", err)
	}
	if c.Status() != StatusGameOver {
		t.Errorf("Status = %v, expected game over", c.Status())
	}
	if !errors.Is(c.Err(), ErrFoodPlacementExhausted) {
		t.Errorf("Err() = %v, expected ErrFoodPlacementExhausted", c.Err())
	}
}

func TestSchedulerDrivesTicks(t *testing.T) {
	fast := testDifficulty
	fast.TickInterval = 5 * time.Millisecond

	var ticks atomic.Int64
	c := NewController(NewEngine(64, 64, WithSeed(3)), fast, WithHooks(Hooks{
		OnTick: func(Snapshot) { ticks.Add(1) },
	}))
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	c.Stop()

	stopped := ticks.Load()
	if stopped < 3 {
		t.Fatalf("Expected at least 3 scheduled ticks, got %d", stopped)
	}
	time.Sleep(30 * time.Millisecond)
	if ticks.Load() != stopped {
		t.Errorf("Ticks continued after Stop: %d -> %d", stopped, ticks.Load())
	}
}
