package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wattquest/wattquest/internal/daemon"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon configuration and store state",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	fmt.Printf("Home:     %s\n", daemon.Home())
	fmt.Printf("API:      %s:%d\n", d.Config.API.Host, d.Config.API.Port)
	fmt.Printf("Database: ")
	if err := d.DB.Ping(); err != nil {
		fmt.Printf("unreachable (%v)\n", err)
	} else {
		fmt.Println("ok")
	}

	for _, user := range d.Config.Telemetry.Users {
		active, err := d.DB.CountActive(user)
		if err != nil {
			return err
		}
		available, err := d.DB.AvailableForUser(user)
		if err != nil {
			return err
		}
		fmt.Printf("User %s: %d active quest(s), %d available\n", user, active, len(available))
	}
	return nil
}
