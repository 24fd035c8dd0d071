package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wattquest/wattquest/internal/daemon"
	"github.com/wattquest/wattquest/internal/domain"
)

func init() {
	questsCmd.Flags().StringVar(&questsUser, "user", "local", "User to list quests for")
	questsCmd.Flags().BoolVar(&questsAvailable, "available", false, "Show startable quests instead of active ones")
	rootCmd.AddCommand(questsCmd)
}

var (
	questsUser      string
	questsAvailable bool
)

var questsCmd = &cobra.Command{
	Use:   "quests",
	Short: "List a user's quests",
	RunE:  runQuests,
}

func runQuests(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	var quests []domain.Quest
	if questsAvailable {
		quests, err = d.DB.AvailableForUser(questsUser)
	} else {
		quests, err = d.DB.ActiveForUser(questsUser)
	}
	if err != nil {
		return err
	}

	if len(quests) == 0 {
		fmt.Println("No quests. Run 'wattquest serve' to let the engine generate some.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tDIFFICULTY\tPROGRESS\tREWARD\tVALID UNTIL")
	for _, q := range quests {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f%%\t%d\t%s\n",
			shortID(q.ID),
			q.Title,
			q.Difficulty,
			q.Percentage,
			q.RewardPoints,
			q.ValidUntil.Format("2006-01-02 15:04"),
		)
	}
	return w.Flush()
}

// shortID truncates a UUID for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
