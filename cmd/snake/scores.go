package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/snake-duel/internal/multiplayer"
)

var (
	flagScoresDifficulty string
	flagClear            bool
	flagMatches          bool
)

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Show high scores",
	Long: `Display the local leaderboard, best first.

Examples:
  snake scores
  snake scores --difficulty hard
  snake scores --matches
  snake scores --clear`,
	Args: cobra.NoArgs,
	RunE: runScores,
}

func init() {
	scoresCmd.Flags().StringVar(&flagScoresDifficulty, "difficulty", "", "Only show this difficulty")
	scoresCmd.Flags().BoolVar(&flagClear, "clear", false, "Delete all high scores")
	scoresCmd.Flags().BoolVar(&flagMatches, "matches", false, "Show recent duels instead")
}

func runScores(_ *cobra.Command, _ []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.store == nil {
		return fmt.Errorf("scores database unavailable")
	}

	if flagClear {
		if _, err := a.store.ClearScores(); err != nil {
			return fmt.Errorf("clearing scores: %w", err)
		}
		fmt.Println("High scores cleared.")
		return nil
	}

	if flagMatches {
		return printMatches(a)
	}

	if flagScoresDifficulty != "" {
		if _, err := a.holder.Load().Difficulty(flagScoresDifficulty); err != nil {
			return err
		}
	}

	scores, err := a.store.GetTopScores(flagScoresDifficulty, 0)
	if err != nil {
		return fmt.Errorf("retrieving scores: %w", err)
	}

	title := "all difficulties"
	if flagScoresDifficulty != "" {
		title = flagScoresDifficulty
	}
	fmt.Printf("High Scores - %s\n", title)
	fmt.Println()

	if len(scores) == 0 {
		fmt.Println("No scores recorded yet.")
		fmt.Println()
		fmt.Println("Play 'snake play' to set the first high score!")
		return nil
	}

	// Print header
	fmt.Printf("  %-4s  %-16s  %-8s  %-8s  %s\n", "Rank", "Player", "Score", "Level", "Date")
	fmt.Printf("  %-4s  %-16s  %-8s  %-8s  %s\n", "----", "------", "-----", "-----", "----")

	for i, entry := range scores {
		dateStr := entry.CreatedAt.Local().Format("2006-01-02 15:04")
		fmt.Printf("  %-4d  %-16s  %-8d  %-8s  %s\n", i+1, entry.PlayerName, entry.Score, entry.Difficulty, dateStr)
	}
	return nil
}

func printMatches(a *app) error {
	matches, err := a.store.RecentMatches(20)
	if err != nil {
		return fmt.Errorf("retrieving matches: %w", err)
	}
	if len(matches) == 0 {
		fmt.Println("No duels recorded yet.")
		return nil
	}

	fmt.Printf("  %-6s  %-5s  %-16s  %-11s  %-7s  %s\n", "Room", "Role", "Opponent", "Score", "Result", "Date")
	for _, m := range matches {
		score := fmt.Sprintf("%d-%d", m.LocalScore, m.RemoteScore)
		result := m.Verdict
		if m.Reason == multiplayer.MatchEndReasonOpponentLeft.String() {
			result += "*"
		}
		fmt.Printf("  %-6s  %-5s  %-16s  %-11s  %-7s  %s\n",
			m.Code, m.Role, m.RemoteName, score, result, m.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Println()
	fmt.Println("* opponent left")
	return nil
}
