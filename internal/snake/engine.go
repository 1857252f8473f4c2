// Package snake implements the single-player Snake simulation: the grid step
// function, food placement and the fixed-tick match controller.
package snake

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/vovakirdan/snake-duel/internal/core"
)

// Point represents a grid cell.
type Point struct {
	X, Y int
}

// Body is the snake, head at index 0.
type Body []Point

// Head returns the first segment. It panics on an empty body, which is never
// a legal state.
func (b Body) Head() Point {
	if len(b) == 0 {
		panic("snake: empty body")
	}
	return b[0]
}

// Contains reports whether p is one of the segments.
func (b Body) Contains(p Point) bool {
	for _, seg := range b {
		if seg == p {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of the body.
func (b Body) Clone() Body {
	out := make(Body, len(b))
	copy(out, b)
	return out
}

// WallPolicy decides what happens when the head leaves the grid.
type WallPolicy int

const (
	// WallWrap re-enters the grid on the opposite side.
	WallWrap WallPolicy = iota
	// WallDeath ends the run when the head leaves the grid.
	WallDeath
)

func (p WallPolicy) String() string {
	if p == WallDeath {
		return "walls"
	}
	return "wrap"
}

// ParseWallPolicy accepts "wrap" (or empty) and "walls".
func ParseWallPolicy(s string) (WallPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "wrap":
		return WallWrap, nil
	case "walls", "wall", "death":
		return WallDeath, nil
	}
	return WallWrap, fmt.Errorf("snake: unknown wall policy %q", s)
}

// StepResult is the outcome of advancing the snake by one cell.
type StepResult struct {
	Body     Body  // New body, or the unchanged input body when Collided
	Collided bool  // Head hit the body (or a wall under WallDeath)
	AteFood  bool  // Head landed on the food; Body grew by one
	Food     Point // Food position after the step
}

// Advance moves the snake one cell in dir on a width x height grid.
//
// A collision leaves the body as it was. When not growing, the tail cell is
// vacated during the move and therefore excluded from the self-collision
// check. The input slice is never modified.
func Advance(body Body, dir Direction, food Point, width, height int, policy WallPolicy) StepResult {
	head := body.Head()
	dx, dy := dir.Vector()
	next := Point{X: head.X + dx, Y: head.Y + dy}

	if policy == WallDeath {
		if next.X < 0 || next.X >= width || next.Y < 0 || next.Y >= height {
			return StepResult{Body: body.Clone(), Collided: true, Food: food}
		}
	} else {
		next = Point{X: core.Wrap(next.X, width), Y: core.Wrap(next.Y, height)}
	}

	ate := next == food
	obstacles := body
	if !ate {
		obstacles = body[:len(body)-1]
	}
	if obstacles.Contains(next) {
		return StepResult{Body: body.Clone(), Collided: true, Food: food}
	}

	newBody := make(Body, 0, len(body)+1)
	newBody = append(newBody, next)
	if ate {
		newBody = append(newBody, body...)
	} else {
		newBody = append(newBody, body[:len(body)-1]...)
	}

	return StepResult{Body: newBody, AteFood: ate, Food: food}
}

// InitialBody returns a horizontal snake of the given length, centred on the
// grid and facing right.
func InitialBody(width, height, length int) Body {
	length = core.Clamp(length, 1, width)
	cx, cy := width/2, height/2
	body := make(Body, length)
	for i := range body {
		body[i] = Point{X: core.Wrap(cx-i, width), Y: cy}
	}
	return body
}

// DefaultMaxFoodAttempts bounds rejection sampling in PlaceFood.
const DefaultMaxFoodAttempts = 1000

// Engine binds the step function to a grid and owns the food RNG.
// It is not safe for concurrent use; the Controller serialises access.
type Engine struct {
	width           int
	height          int
	policy          WallPolicy
	maxFoodAttempts int
	rng             *rand.Rand
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithWallPolicy selects wrap-around (default) or wall death.
func WithWallPolicy(p WallPolicy) EngineOption {
	return func(e *Engine) { e.policy = p }
}

// WithMaxFoodAttempts overrides DefaultMaxFoodAttempts.
func WithMaxFoodAttempts(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxFoodAttempts = n
		}
	}
}

// WithSeed makes food placement reproducible. A zero seed keeps the clock
// seed.
func WithSeed(seed int64) EngineOption {
	return func(e *Engine) {
		if seed != 0 {
			e.rng = rand.New(rand.NewSource(seed))
		}
	}
}

// NewEngine creates an engine for a width x height grid. Non-positive
// dimensions panic.
func NewEngine(width, height int, opts ...EngineOption) *Engine {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("snake: invalid grid %dx%d", width, height))
	}
	e := &Engine{
		width:           width,
		height:          height,
		maxFoodAttempts: DefaultMaxFoodAttempts,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Width returns the grid width.
func (e *Engine) Width() int { return e.width }

// Height returns the grid height.
func (e *Engine) Height() int { return e.height }

// Policy returns the wall policy.
func (e *Engine) Policy() WallPolicy { return e.policy }

// Step advances body and, when food was eaten, places new food against the
// grown body. The returned error is ErrFoodPlacementExhausted; the result is
// still valid in that case but Food is stale.
func (e *Engine) Step(body Body, dir Direction, food Point) (StepResult, error) {
	res := Advance(body, dir, food, e.width, e.height, e.policy)
	if !res.AteFood {
		return res, nil
	}
	next, err := e.PlaceFood(res.Body)
	if err != nil {
		return res, err
	}
	res.Food = next
	return res, nil
}
