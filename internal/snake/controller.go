package snake

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultBasePoints is the score for one food before the multiplier.
const DefaultBasePoints = 10

// DefaultInitialLength is the starting body length.
const DefaultInitialLength = 3

// ErrNotIdle is returned by Start when the match has already begun.
var ErrNotIdle = errors.New("snake: controller is not idle")

// Difficulty is a speed and scoring preset.
type Difficulty struct {
	ID           string
	Label        string
	TickInterval time.Duration
	Multiplier   float64
}

// Points returns the score for one food at this difficulty.
func (d Difficulty) Points(base int) int {
	return int(math.Round(float64(base) * d.Multiplier))
}

// Hooks are called after state changes, outside the controller lock and on
// the goroutine that ran the tick. They must not call Pause, Stop or Reset.
type Hooks struct {
	OnScore    func(score int)
	OnGameOver func(score int)
	OnTick     func(Snapshot)
}

// Controller runs one local match: it owns the body, direction, food and
// score, and a Scheduler that drives Tick.
type Controller struct {
	engine        *Engine
	difficulty    Difficulty
	basePoints    int
	initialLength int
	hooks         Hooks
	logger        *log.Logger
	sched         *Scheduler

	mu      sync.Mutex
	body    Body
	dir     Direction // Applied on the last tick
	pending Direction // Applied on the next tick
	food    Point
	score   int
	ticks   uint64
	status  Status
	err     error
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithHooks installs state change callbacks.
func WithHooks(h Hooks) ControllerOption {
	return func(c *Controller) { c.hooks = h }
}

// WithBasePoints overrides DefaultBasePoints.
func WithBasePoints(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.basePoints = n
		}
	}
}

// WithInitialLength overrides DefaultInitialLength.
func WithInitialLength(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.initialLength = n
		}
	}
}

// WithLogger sets the logger used for fatal tick errors.
func WithLogger(l *log.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController creates an idle controller.
func NewController(engine *Engine, difficulty Difficulty, opts ...ControllerOption) *Controller {
	c := &Controller{
		engine:        engine,
		difficulty:    difficulty,
		basePoints:    DefaultBasePoints,
		initialLength: DefaultInitialLength,
		logger:        log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.sched = NewScheduler(difficulty.TickInterval, c.scheduledTick)
	c.resetLocked()
	return c
}

func (c *Controller) resetLocked() {
	c.body = InitialBody(c.engine.Width(), c.engine.Height(), c.initialLength)
	c.dir = DirRight
	c.pending = DirRight
	c.food = Point{X: -1, Y: -1}
	c.score = 0
	c.ticks = 0
	c.status = StatusIdle
	c.err = nil
}

// Start places the first food and starts ticking.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.status != StatusIdle {
		c.mu.Unlock()
		return ErrNotIdle
	}
	food, err := c.engine.PlaceFood(c.body)
	if err != nil {
		c.status = StatusGameOver
		c.err = err
		c.mu.Unlock()
		c.logger.Error("cannot place first food", "err", err)
		return err
	}
	c.food = food
	c.status = StatusPlaying
	c.mu.Unlock()

	c.sched.Start()
	return nil
}

// Turn buffers dir for the next tick. The latest accepted input wins; a
// reversal of the direction applied on the last tick is rejected.
func (c *Controller) Turn(dir Direction) bool {
	if !dir.Valid() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusGameOver {
		return false
	}
	if c.dir.IsOpposite(dir) {
		return false
	}
	c.pending = dir
	return true
}

// Tick advances the match by one step. It does nothing unless the match is
// playing. ErrFoodPlacementExhausted ends the run and is returned.
func (c *Controller) Tick() error {
	c.mu.Lock()
	if c.status != StatusPlaying {
		c.mu.Unlock()
		return nil
	}

	c.dir = c.pending
	res, err := c.engine.Step(c.body, c.dir, c.food)
	c.ticks++

	scored, over := false, false
	switch {
	case res.Collided:
		c.status = StatusGameOver
		over = true
	case err != nil:
		c.body = res.Body
		if res.AteFood {
			c.score += c.difficulty.Points(c.basePoints)
			scored = true
		}
		c.status = StatusGameOver
		c.err = err
		over = true
	default:
		c.body = res.Body
		c.food = res.Food
		if res.AteFood {
			c.score += c.difficulty.Points(c.basePoints)
			scored = true
		}
	}
	score := c.score
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("match ended by fatal error", "err", err, "score", score)
	}
	if scored && c.hooks.OnScore != nil {
		c.hooks.OnScore(score)
	}
	if c.hooks.OnTick != nil {
		c.hooks.OnTick(snap)
	}
	if over && c.hooks.OnGameOver != nil {
		c.hooks.OnGameOver(score)
	}
	return err
}

func (c *Controller) scheduledTick() bool {
	if err := c.Tick(); err != nil {
		return false
	}
	return c.Status() == StatusPlaying
}

// Pause stops ticking and keeps all state.
func (c *Controller) Pause() {
	c.mu.Lock()
	if c.status != StatusPlaying {
		c.mu.Unlock()
		return
	}
	c.status = StatusPaused
	c.mu.Unlock()

	c.sched.Stop()
}

// Resume continues a paused match with the same body, direction and score.
func (c *Controller) Resume() {
	c.mu.Lock()
	if c.status != StatusPaused {
		c.mu.Unlock()
		return
	}
	c.status = StatusPlaying
	c.mu.Unlock()

	c.sched.Start()
}

// TogglePause switches between playing and paused.
func (c *Controller) TogglePause() {
	switch c.Status() {
	case StatusPlaying:
		c.Pause()
	case StatusPaused:
		c.Resume()
	}
}

// Stop halts the scheduler. No tick runs after Stop returns.
func (c *Controller) Stop() {
	c.sched.Stop()
}

// Reset stops the match and returns to idle with a fresh snake and zero
// score.
func (c *Controller) Reset() {
	c.sched.Stop()
	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
}

// Status returns the current state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Score returns the current score.
func (c *Controller) Score() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.score
}

// Difficulty returns the preset the controller was built with.
func (c *Controller) Difficulty() Difficulty {
	return c.difficulty
}

// Err returns the fatal error that ended the run, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Width:      c.engine.Width(),
		Height:     c.engine.Height(),
		Body:       c.body.Clone(),
		Food:       c.food,
		Direction:  c.dir,
		Score:      c.score,
		Status:     c.status,
		Ticks:      c.ticks,
		Difficulty: c.difficulty.ID,
		Err:        c.err,
	}
}

// SetFood moves the food. Intended for tests and scripted scenarios.
func (c *Controller) SetFood(p Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.food = p
}

// SetBody replaces the body and resets both directions to dir. Intended for
// tests and scripted scenarios.
func (c *Controller) SetBody(body Body, dir Direction) {
	if len(body) == 0 {
		panic("snake: empty body")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.body = body.Clone()
	c.dir = dir
	c.pending = dir
}
