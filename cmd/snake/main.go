// snake is a terminal Snake game with real-time online duels.
//
// Usage:
//
//	snake                    - Start the interactive menu
//	snake play               - Play a solo game
//	snake duel               - Host or join an online duel
//	snake serve              - Start the SSH and HTTP servers
//	snake scores             - Show high scores
//	snake profile            - Show or edit the local profile
//
// Global flags:
//
//	--config <path>    - Config file (default: search ~/.snake, ./configs)
//	--db <path>        - Scores database (default from config)
//	--log-level <lvl>  - debug, info, warn or error
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagConfig   string
	flagDBPath   string
	flagLogLevel string
)

func main() {
	// Settings like REDIS_URL and ABLY_API_KEY may live in .env
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: cannot read .env: %v\n", err)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "snake",
	Short: "Snake Duel - Snake in your terminal, alone or head to head",
	Long: `Snake Duel is a terminal Snake game. Play solo for a high score or
duel a friend in real time: both players run their own board and the
higher score when both runs are over wins.

Available commands:
  play     - Play a solo game directly
  duel     - Host or join an online duel
  serve    - Start SSH server for remote play
  scores   - View high scores
  profile  - Show or change your player name

Examples:
  snake
  snake play --difficulty hard
  snake duel --create
  snake duel --join K7Q2MX
  snake serve`,
	SilenceUsage: true,
	RunE:         runMenu,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config YAML")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to scores database (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")

	// Add subcommands
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(duelCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scoresCmd)
	rootCmd.AddCommand(profileCmd)
}
