package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	flagProfileName       string
	flagProfileAvatar     string
	flagProfileDifficulty string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or change the local player profile",
	Long: `Show the local profile, or update it with flags. The name is shown on
the leaderboard and to duel opponents; the difficulty preselects the menu.

Examples:
  snake profile
  snake profile --name ana --difficulty hard`,
	Args: cobra.NoArgs,
	RunE: runProfile,
}

func init() {
	profileCmd.Flags().StringVar(&flagProfileName, "name", "", "Player name")
	profileCmd.Flags().StringVar(&flagProfileAvatar, "avatar", "", "Avatar shown to opponents")
	profileCmd.Flags().StringVar(&flagProfileDifficulty, "difficulty", "", "Preferred difficulty id")
}

func runProfile(cmd *cobra.Command, _ []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.store == nil {
		return fmt.Errorf("profile database unavailable")
	}

	p, err := a.store.GetProfile()
	if err != nil {
		return fmt.Errorf("reading profile: %w", err)
	}

	changed := false
	if cmd.Flags().Changed("name") {
		p.Name = flagProfileName
		changed = true
	}
	if cmd.Flags().Changed("avatar") {
		p.Avatar = flagProfileAvatar
		changed = true
	}
	if cmd.Flags().Changed("difficulty") {
		if _, err := a.holder.Load().Difficulty(flagProfileDifficulty); err != nil {
			return err
		}
		p.Difficulty = flagProfileDifficulty
		changed = true
	}

	if changed {
		if err := a.store.SaveProfile(p); err != nil {
			return fmt.Errorf("saving profile: %w", err)
		}
	}

	fmt.Printf("Name:       %s\n", p.Name)
	if p.Avatar != "" {
		fmt.Printf("Avatar:     %s\n", p.Avatar)
	}
	fmt.Printf("Difficulty: %s\n", p.Difficulty)
	fmt.Printf("Best:       %d\n", a.scores.TopScore(p.Difficulty))
	return nil
}
