package config

import (
	"fmt"

	"github.com/vovakirdan/snake-duel/internal/multiplayer"
	"github.com/vovakirdan/snake-duel/internal/snake"
)

// Difficulty returns the preset with the given id. An empty id selects the
// default preset.
func (c Config) Difficulty(id string) (snake.Difficulty, error) {
	if id == "" {
		id = c.DefaultDifficulty
	}
	for _, d := range c.Difficulties {
		if d.ID == id {
			return snake.Difficulty{
				ID:           d.ID,
				Label:        d.Label,
				TickInterval: d.Tick,
				Multiplier:   d.Multiplier,
			}, nil
		}
	}
	return snake.Difficulty{}, fmt.Errorf("config: unknown difficulty %q", id)
}

// DifficultyIDs lists preset ids in configuration order.
func (c Config) DifficultyIDs() []string {
	ids := make([]string, len(c.Difficulties))
	for i, d := range c.Difficulties {
		ids[i] = d.ID
	}
	return ids
}

// WallPolicy parses grid.walls.
func (c Config) WallPolicy() (snake.WallPolicy, error) {
	return snake.ParseWallPolicy(c.Grid.Walls)
}

// NewEngine builds an engine for the configured grid. seed 0 uses the clock.
func (c Config) NewEngine(seed int64) (*snake.Engine, error) {
	policy, err := c.WallPolicy()
	if err != nil {
		return nil, fmt.Errorf("config: grid.walls: %w", err)
	}
	return snake.NewEngine(c.Grid.Width, c.Grid.Height,
		snake.WithWallPolicy(policy),
		snake.WithMaxFoodAttempts(c.Grid.MaxFoodAttempts),
		snake.WithSeed(seed),
	), nil
}

// NewController builds an idle controller for the difficulty id.
func (c Config) NewController(difficulty string, opts ...snake.ControllerOption) (*snake.Controller, error) {
	diff, err := c.Difficulty(difficulty)
	if err != nil {
		return nil, err
	}
	engine, err := c.NewEngine(0)
	if err != nil {
		return nil, err
	}
	opts = append([]snake.ControllerOption{
		snake.WithBasePoints(c.Scoring.BasePoints),
		snake.WithInitialLength(c.Grid.InitialLength),
	}, opts...)
	return snake.NewController(engine, diff, opts...), nil
}

// ControllerFactory adapts NewController for multiplayer.NewDuel.
func (c Config) ControllerFactory(opts ...snake.ControllerOption) multiplayer.ControllerFactory {
	return func(difficulty string, hooks snake.Hooks) (*snake.Controller, error) {
		all := make([]snake.ControllerOption, 0, len(opts)+1)
		all = append(all, opts...)
		return c.NewController(difficulty, append(all, snake.WithHooks(hooks))...)
	}
}

// LobbyConfig converts the lobby section for multiplayer.NewLobby.
func (c Config) LobbyConfig() multiplayer.LobbyConfig {
	lc := multiplayer.DefaultLobbyConfig()
	if c.Lobby.CodeAttempts > 0 {
		lc.CodeAttempts = c.Lobby.CodeAttempts
	}
	if c.Lobby.LobbyTimeout > 0 {
		lc.LobbyTimeout = c.Lobby.LobbyTimeout
	}
	if c.Lobby.CleanupPeriod > 0 {
		lc.CleanupPeriod = c.Lobby.CleanupPeriod
	}
	return lc
}
