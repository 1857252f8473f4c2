package multiplayer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/snake-duel/internal/snake"
)

const flushTimeout = 5 * time.Second

// ControllerFactory builds the local match for a difficulty id.
type ControllerFactory func(difficulty string, hooks snake.Hooks) (*snake.Controller, error)

// MatchRecorder persists finished duels.
type MatchRecorder interface {
	RecordMatch(result MatchResult)
}

// MatchResult describes a finished duel from the local player's view.
type MatchResult struct {
	Code        string
	Role        Role
	Difficulty  string
	LocalName   string
	RemoteName  string
	LocalScore  int
	RemoteScore int
	Verdict     Verdict
	Reason      MatchEndReason
	EndedAt     time.Time
}

// Duel runs one client's side of a match: it starts the local controller
// when the room starts, publishes progress, and resolves the outcome from
// the local controller and the replicated opponent slot.
type Duel struct {
	room      *Room
	factory   ControllerFactory
	recorder  MatchRecorder
	logger    *log.Logger
	publisher *Publisher
	resolver  Resolver
	queue     *EventQueue
	localOver chan struct{}
	closing   chan struct{}
	closeOnce sync.Once

	mu         sync.Mutex
	controller *snake.Controller
	remote     *PlayerSlot
	result     *MatchResult
}

// DuelOption configures a Duel.
type DuelOption func(*duelOptions)

type duelOptions struct {
	recorder      MatchRecorder
	logger        *log.Logger
	publisherOpts []PublisherOption
}

// WithRecorder stores finished matches.
func WithRecorder(r MatchRecorder) DuelOption {
	return func(o *duelOptions) { o.recorder = r }
}

// WithDuelLogger sets the logger.
func WithDuelLogger(l *log.Logger) DuelOption {
	return func(o *duelOptions) { o.logger = l }
}

// WithPublisherOptions passes options to the progress publisher.
func WithPublisherOptions(opts ...PublisherOption) DuelOption {
	return func(o *duelOptions) { o.publisherOpts = append(o.publisherOpts, opts...) }
}

// NewDuel wires a duel to a room. Call Run to drive it and Close to leave.
func NewDuel(room *Room, factory ControllerFactory, opts ...DuelOption) *Duel {
	o := duelOptions{logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default()
	}
	logger := o.logger.With("code", room.Code(), "role", room.Role())
	pubOpts := append([]PublisherOption{WithPublisherLogger(logger)}, o.publisherOpts...)

	return &Duel{
		room:      room,
		factory:   factory,
		recorder:  o.recorder,
		logger:    logger,
		publisher: NewPublisher(room.Channel(), room.Role(), pubOpts...),
		queue:     NewEventQueue(64, true),
		localOver: make(chan struct{}, 1),
		closing:   make(chan struct{}),
	}
}

// Room returns the underlying room.
func (d *Duel) Room() *Room { return d.room }

// Events returns events for the frontend. Session updates may be dropped
// when the frontend lags; everything else is delivered.
func (d *Duel) Events() <-chan Event { return d.queue.Events() }

// SetReady toggles the local ready flag in the lobby.
func (d *Duel) SetReady(ctx context.Context, ready bool) error {
	return d.room.SetReady(ctx, ready)
}

// Turn steers the local snake. It returns false before the match starts.
func (d *Duel) Turn(dir snake.Direction) bool {
	c := d.currentController()
	if c == nil {
		return false
	}
	return c.Turn(dir)
}

// Snapshot returns the local board once the match has started.
func (d *Duel) Snapshot() (snake.Snapshot, bool) {
	c := d.currentController()
	if c == nil {
		return snake.Snapshot{}, false
	}
	return c.Snapshot(), true
}

// Remote returns the opponent slot as last observed.
func (d *Duel) Remote() (PlayerSlot, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.remote == nil {
		return PlayerSlot{}, false
	}
	return *d.remote, true
}

// Result returns the outcome once decided.
func (d *Duel) Result() (MatchResult, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.result == nil {
		return MatchResult{}, false
	}
	return *d.result, true
}

// Run processes room events until the outcome is decided, the room closes,
// the duel is closed or ctx is done. It returns ErrRoomClosed when the host
// went away before a verdict.
func (d *Duel) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.stopController()
			return ctx.Err()
		case <-d.closing:
			return nil
		case <-d.localOver:
			if d.resolve(ctx) {
				return nil
			}
		case evt := <-d.room.Events():
			done, err := d.handle(ctx, evt)
			if done {
				return err
			}
		}
	}
}

func (d *Duel) handle(ctx context.Context, evt Event) (bool, error) {
	switch e := evt.(type) {
	case SessionUpdatedEvent:
		d.mu.Lock()
		// A vanished slot keeps its last known state for the result.
		if slot := e.Session.Slot(d.room.Role().Opponent()); slot != nil {
			remote := *slot
			d.remote = &remote
		}
		started := d.controller != nil
		d.mu.Unlock()

		d.queue.Send(e)
		if started && d.resolve(ctx) {
			return true, nil
		}

	case MatchStartEvent:
		d.queue.Send(e)
		if err := d.startController(e.Difficulty); err != nil {
			d.queue.Send(ErrorEvent{Err: err})
			return true, err
		}

	case OpponentLeftEvent:
		d.queue.Send(e)
		if d.currentController() == nil {
			return false, nil
		}
		// An opponent who finished their run before leaving keeps their
		// score; the local run plays out and is judged against it.
		if d.remoteState().Terminated {
			return d.resolve(ctx), nil
		}
		d.stopController()
		local := d.localState()
		remote := d.remoteState()
		d.resolver.Forfeit(local, remote)
		d.finish(ctx, MatchEndReasonOpponentLeft)
		return true, nil

	case RoomClosedEvent:
		d.stopController()
		d.queue.Send(e)
		return true, ErrRoomClosed

	default:
		d.queue.Send(evt)
	}
	return false, nil
}

func (d *Duel) startController(difficulty string) error {
	hooks := snake.Hooks{
		OnScore: d.publisher.Score,
		OnGameOver: func(score int) {
			d.publisher.Score(score)
			d.publisher.Terminate()
			select {
			case d.localOver <- struct{}{}:
			default:
			}
		},
	}
	c, err := d.factory(difficulty, hooks)
	if err != nil {
		return fmt.Errorf("multiplayer: build controller: %w", err)
	}

	d.mu.Lock()
	if d.controller != nil {
		d.mu.Unlock()
		return nil
	}
	d.controller = c
	d.mu.Unlock()

	if err := c.Start(); err != nil {
		// The run is already over; let the opponent see it.
		d.publisher.Terminate()
		return fmt.Errorf("multiplayer: start controller: %w", err)
	}
	d.logger.Info("local match started", "difficulty", difficulty)
	return nil
}

// resolve runs the resolver and finishes the duel on a final verdict.
func (d *Duel) resolve(ctx context.Context) bool {
	if _, final := d.resolver.Final(); final {
		return true
	}
	v := d.resolver.Observe(d.localState(), d.remoteState())
	if !v.Final() {
		return false
	}
	d.finish(ctx, MatchEndReasonCompleted)
	return true
}

func (d *Duel) finish(ctx context.Context, reason MatchEndReason) {
	verdict, _ := d.resolver.Final()
	local, remote := d.resolver.Scores()

	flushCtx, cancel := context.WithTimeout(ctx, flushTimeout)
	if err := d.publisher.Flush(flushCtx); err != nil {
		d.logger.Warn("final progress not confirmed", "err", err)
	}
	cancel()

	if err := d.room.Finish(ctx); err != nil {
		d.logger.Warn("cannot mark room finished", "err", err)
	}

	remoteName := ""
	if slot, ok := d.Remote(); ok {
		remoteName = slot.Name
	}
	result := MatchResult{
		Code:        d.room.Code(),
		Role:        d.room.Role(),
		Difficulty:  d.room.Difficulty(),
		LocalName:   d.room.Self().Name,
		RemoteName:  remoteName,
		LocalScore:  local.Score,
		RemoteScore: remote.Score,
		Verdict:     verdict,
		Reason:      reason,
		EndedAt:     time.Now(),
	}
	d.mu.Lock()
	d.result = &result
	d.mu.Unlock()

	d.logger.Info("match decided", "verdict", verdict, "local", local.Score, "remote", remote.Score, "reason", reason)
	if d.recorder != nil {
		d.recorder.RecordMatch(result)
	}
	d.queue.Send(VerdictEvent{
		Verdict:     verdict,
		LocalScore:  local.Score,
		RemoteScore: remote.Score,
		Reason:      reason,
	})
}

func (d *Duel) currentController() *snake.Controller {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.controller
}

func (d *Duel) stopController() {
	if c := d.currentController(); c != nil {
		c.Stop()
	}
}

func (d *Duel) localState() SlotState {
	c := d.currentController()
	if c == nil {
		return SlotState{}
	}
	snap := c.Snapshot()
	return SlotState{Score: snap.Score, Terminated: snap.Status == snake.StatusGameOver}
}

func (d *Duel) remoteState() SlotState {
	slot, ok := d.Remote()
	if !ok {
		return SlotState{}
	}
	return slot.State()
}

// Close stops the local match and the publisher and leaves the room.
func (d *Duel) Close(ctx context.Context) error {
	var err error
	d.closeOnce.Do(func() {
		close(d.closing)
		d.stopController()
		d.publisher.Close()
		err = d.room.Leave(ctx)
		d.queue.Close()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
