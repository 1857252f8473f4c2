package snake

import (
	"errors"
	"fmt"
)

// ErrFoodPlacementExhausted means no free cell was found within the attempt
// bound. It ends the run.
var ErrFoodPlacementExhausted = errors.New("snake: food placement exhausted")

// PlaceFood picks a uniformly random free cell by rejection sampling. It
// gives up after the configured number of attempts, and immediately when the
// body already covers the grid.
func (e *Engine) PlaceFood(body Body) (Point, error) {
	if len(body) >= e.width*e.height {
		return Point{}, fmt.Errorf("%w: grid %dx%d is full", ErrFoodPlacementExhausted, e.width, e.height)
	}

	occupied := make(map[Point]struct{}, len(body))
	for _, p := range body {
		occupied[p] = struct{}{}
	}

	for attempt := 0; attempt < e.maxFoodAttempts; attempt++ {
		p := Point{X: e.rng.Intn(e.width), Y: e.rng.Intn(e.height)}
		if _, taken := occupied[p]; !taken {
			return p, nil
		}
	}
	return Point{}, fmt.Errorf("%w: %d attempts", ErrFoodPlacementExhausted, e.maxFoodAttempts)
}
