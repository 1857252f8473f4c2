package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/snake-duel/internal/config"
	"github.com/vovakirdan/snake-duel/internal/multiplayer"
	"github.com/vovakirdan/snake-duel/internal/platform/tui"
)

var (
	flagDifficulty string
	flagName       string
	flagCreate     bool
	flagJoin       string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a solo game",
	Long: `Start a solo game at the chosen difficulty.

Controls:
  Arrows/WASD/HJKL  - Steer
  P/Space           - Pause
  R                 - Restart (after game over)
  Esc               - Back to menu
  Q/Ctrl+C          - Quit

Examples:
  snake play
  snake play --difficulty expert`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

var duelCmd = &cobra.Command{
	Use:   "duel",
	Short: "Host or join an online duel",
	Long: `Play a real-time duel against another player. Both players need the
same realtime backend (see realtime in the config, or REDIS_URL).

The host shares the six-character room code; the guest joins with it.
Both press Space when ready and the match starts for both at once.

Examples:
  snake duel
  snake duel --create --difficulty hard
  snake duel --join K7Q2MX --name ana`,
	Args: cobra.NoArgs,
	RunE: runDuel,
}

func init() {
	playCmd.Flags().StringVar(&flagDifficulty, "difficulty", "", "Difficulty id (default from config)")

	duelCmd.Flags().StringVar(&flagDifficulty, "difficulty", "", "Difficulty of a hosted room (default from config)")
	duelCmd.Flags().StringVar(&flagName, "name", "", "Player name (default from profile)")
	duelCmd.Flags().BoolVar(&flagCreate, "create", false, "Host a new room")
	duelCmd.Flags().StringVar(&flagJoin, "join", "", "Join the room with this code")
	duelCmd.MarkFlagsMutuallyExclusive("create", "join")
}

func runMenu(_ *cobra.Command, _ []string) error {
	return runSession(false, func(m tui.SessionModel) tui.SessionModel { return m })
}

func runPlay(_ *cobra.Command, _ []string) error {
	return runSession(false, func(m tui.SessionModel) tui.SessionModel { return m.StartSolo() })
}

func runDuel(_ *cobra.Command, _ []string) error {
	return runSession(true, func(m tui.SessionModel) tui.SessionModel {
		return m.StartDuel(flagCreate, flagJoin)
	})
}

// runSession opens the app and runs one TUI session. The lobby is offered
// when the backend is shared, or always when needLobby is set.
func runSession(needLobby bool, start func(tui.SessionModel) tui.SessionModel) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := a.holder.Load()
	if flagDifficulty != "" {
		if _, err := cfg.Difficulty(flagDifficulty); err != nil {
			return err
		}
	}

	svc := tui.Services{
		Config: a.holder,
		Scores: a.scores,
		Logger: a.logger,
	}
	switch {
	case cfg.Realtime.Backend == config.BackendRedis:
		r, err := a.openRooms(ctx)
		if err != nil {
			if needLobby {
				return err
			}
			a.logger.Warn("duels unavailable", "err", err)
			break
		}
		svc.Lobby = r.lobby
	case needLobby:
		return fmt.Errorf("duels need a shared backend: set realtime.backend to %q or run 'snake serve'", config.BackendRedis)
	}

	profile := a.scores.GetProfile()
	self := multiplayer.NewIdentity(a.playerName(flagName), profile.Avatar)
	difficulty := flagDifficulty
	if difficulty == "" {
		difficulty = profile.Difficulty
		if _, err := cfg.Difficulty(difficulty); err != nil {
			difficulty = ""
		}
	}

	model := start(tui.NewSessionModel(svc, self, difficulty))
	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		model = model.Resize(w, h)
	}

	if err := tui.Run(ctx, model); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
