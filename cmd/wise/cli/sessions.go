package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ryokaneoka0406/wise/internal/tui"
)

var sessionsTUI bool

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List chat sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if sessionsTUI {
			_, err := tea.NewProgram(tui.NewModel(store), tea.WithAltScreen()).Run()
			return err
		}

		sessions, err := store.ListSessions(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOut {
			printJSON(sessions)
			return nil
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions recorded yet.")
			return nil
		}
		for _, s := range sessions {
			fmt.Printf("%d\t%s\t%s\t%d messages\n", s.ID, s.Email, s.StartedAt, s.MessageCount)
		}
		return nil
	},
}

func init() {
	sessionsCmd.Flags().BoolVar(&sessionsTUI, "tui", false, "browse sessions interactively")
	rootCmd.AddCommand(sessionsCmd)
}
