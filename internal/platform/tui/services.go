package tui

import (
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/snake-duel/internal/config"
	"github.com/vovakirdan/snake-duel/internal/multiplayer"
	"github.com/vovakirdan/snake-duel/internal/snake"
	"github.com/vovakirdan/snake-duel/internal/storage"
)

// Services are the collaborators shared by every model of a process.
type Services struct {
	Config *config.Holder
	Scores *storage.BestEffort // May wrap a nil store
	Lobby  *multiplayer.Lobby  // Nil disables duels
	Logger *log.Logger
}

func (s Services) logger() *log.Logger {
	if s.Logger == nil {
		return log.Default()
	}
	return s.Logger
}

// newController builds a solo controller from the current configuration.
func (s Services) newController(difficulty string) (*snake.Controller, error) {
	return s.Config.Load().NewController(difficulty, snake.WithLogger(s.logger()))
}

// controllerFactory builds duel controllers from the configuration current
// when the match starts.
func (s Services) controllerFactory() multiplayer.ControllerFactory {
	return func(difficulty string, hooks snake.Hooks) (*snake.Controller, error) {
		return s.Config.Load().ControllerFactory(snake.WithLogger(s.logger()))(difficulty, hooks)
	}
}
