package multiplayer

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/snake-duel/internal/realtime"
	"github.com/vovakirdan/snake-duel/internal/snake"
)

const eventTimeout = 2 * time.Second

func quietLogger() *log.Logger {
	l := log.New(io.Discard)
	l.SetLevel(log.FatalLevel)
	return l
}

func newTestLobby(t *testing.T, store realtime.Store, opts ...LobbyOption) *Lobby {
	t.Helper()
	opts = append([]LobbyOption{WithLobbyLogger(quietLogger())}, opts...)
	return NewLobby(store, realtime.NewMemoryLocker(), opts...)
}

// waitEvent reads events until one satisfies match, failing on timeout.
func waitEvent(t *testing.T, events <-chan Event, match func(Event) bool) Event {
	t.Helper()
	timeout := time.After(eventTimeout)
	for {
		select {
		case evt := <-events:
			if match(evt) {
				return evt
			}
		case <-timeout:
			t.Fatal("timed out waiting for event")
			return nil
		}
	}
}

// waitSession polls the room's last observed session.
func waitSession(t *testing.T, r *Room, pred func(MatchSession) bool) MatchSession {
	t.Helper()
	deadline := time.Now().Add(eventTimeout)
	for time.Now().Before(deadline) {
		if sess, ok := r.Session(); ok && pred(sess) {
			return sess
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for session state")
	return MatchSession{}
}

func isStart(evt Event) bool {
	_, ok := evt.(MatchStartEvent)
	return ok
}

func isClosed(evt Event) bool {
	_, ok := evt.(RoomClosedEvent)
	return ok
}

func isVerdict(evt Event) bool {
	_, ok := evt.(VerdictEvent)
	return ok
}

func sessionWhere(pred func(MatchSession) bool) func(Event) bool {
	return func(evt Event) bool {
		u, ok := evt.(SessionUpdatedEvent)
		return ok && pred(u.Session)
	}
}

// recordingStore wraps a store, logs Set paths and can fail the first
// writes.
type recordingStore struct {
	realtime.Store

	mu       sync.Mutex
	sets     []string
	failures int
	gets     int
}

var errInjected = errors.New("injected failure")

// deadlineStore records, per deleted path, whether the call was bounded.
type deadlineStore struct {
	realtime.Store

	mu      sync.Mutex
	bounded map[string]bool
}

func (s *deadlineStore) Delete(ctx context.Context, path string) error {
	_, ok := ctx.Deadline()
	s.mu.Lock()
	if s.bounded == nil {
		s.bounded = make(map[string]bool)
	}
	s.bounded[path] = ok
	s.mu.Unlock()
	return s.Store.Delete(ctx, path)
}

func (s *deadlineStore) deleted(path string) (bounded, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bounded, ok = s.bounded[path]
	return bounded, ok
}

func (s *recordingStore) Set(ctx context.Context, path, value string) error {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return errInjected
	}
	s.sets = append(s.sets, path+"="+value)
	s.mu.Unlock()
	return s.Store.Set(ctx, path, value)
}

func (s *recordingStore) Get(ctx context.Context, path string) (realtime.Record, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return s.Store.Get(ctx, path)
}

func (s *recordingStore) setLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sets...)
}

func (s *recordingStore) getCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

// manualFactory builds controllers on an 8x8 walled grid whose ticks are
// driven by the test.
func manualFactory(ctrls chan<- *snake.Controller) ControllerFactory {
	return func(difficulty string, hooks snake.Hooks) (*snake.Controller, error) {
		engine := snake.NewEngine(8, 8, snake.WithSeed(1), snake.WithWallPolicy(snake.WallDeath))
		c := snake.NewController(engine, snake.Difficulty{
			ID:           difficulty,
			TickInterval: time.Hour,
			Multiplier:   1.5,
		}, snake.WithHooks(hooks), snake.WithLogger(quietLogger()))
		ctrls <- c
		return c, nil
	}
}

func receiveController(t *testing.T, ctrls <-chan *snake.Controller) *snake.Controller {
	t.Helper()
	select {
	case c := <-ctrls:
		deadline := time.Now().Add(eventTimeout)
		for c.Status() != snake.StatusPlaying {
			if time.Now().After(deadline) {
				t.Fatal("controller never started")
			}
			time.Sleep(time.Millisecond)
		}
		return c
	case <-time.After(eventTimeout):
		t.Fatal("controller was never built")
		return nil
	}
}

// crash drives c right into the wall, eating food at (5,4) first when eat
// is set. The initial body on 8x8 is [(4,4),(3,4),(2,4)].
func crash(t *testing.T, c *snake.Controller, eat bool) {
	t.Helper()
	if eat {
		c.SetFood(snake.Point{X: 5, Y: 4})
		if err := c.Tick(); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	for i := 0; i < 8 && c.Status() == snake.StatusPlaying; i++ {
		c.SetFood(snake.Point{X: 0, Y: 0})
		if err := c.Tick(); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	if c.Status() != snake.StatusGameOver {
		t.Fatalf("snake should have crashed, status %v", c.Status())
	}
}
