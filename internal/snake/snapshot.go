package snake

// Status is the controller state.
type Status int

const (
	StatusIdle Status = iota
	StatusPlaying
	StatusPaused
	StatusGameOver
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusGameOver:
		return "game_over"
	}
	return "unknown"
}

// Snapshot is a copy of the controller state for rendering and publishing.
type Snapshot struct {
	Width      int
	Height     int
	Body       Body
	Food       Point
	Direction  Direction
	Score      int
	Status     Status
	Ticks      uint64
	Difficulty string
	Err        error // Fatal error that ended the run, if any
}

// Head returns the head position.
func (s Snapshot) Head() Point {
	return s.Body.Head()
}
