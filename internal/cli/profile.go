package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wattquest/wattquest/internal/app/reward"
	"github.com/wattquest/wattquest/internal/daemon"
)

func init() {
	profileCmd.Flags().StringVar(&profileUser, "user", "local", "User to show")
	rootCmd.AddCommand(profileCmd)
}

var profileUser string

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show a user's points, level, and badges",
	RunE:  runProfile,
}

func runProfile(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	p, err := d.DB.Profile(profileUser)
	if err != nil {
		return err
	}

	fmt.Printf("User:             %s\n", p.UserID)
	fmt.Printf("Level:            %d (%.0f%% to next)\n", p.Level, reward.ProgressToNext(p.Points))
	fmt.Printf("Points:           %d\n", p.Points)
	fmt.Printf("Quests completed: %d\n", p.QuestsCompleted)
	fmt.Printf("Current streak:   %d day(s) (longest %d)\n", p.CurrentStreak, p.LongestStreak)
	fmt.Printf("Energy saved:     %.1f kWh\n", p.EnergySavedKWh)
	if len(p.Badges) > 0 {
		fmt.Printf("Badges:           %v\n", p.Badges)
	}
	if len(p.Achievements) > 0 {
		fmt.Printf("Achievements:     %v\n", p.Achievements)
	}
	return nil
}
