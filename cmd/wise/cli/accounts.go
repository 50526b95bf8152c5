package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List stored Google accounts",
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

		accounts, err := store.ListAccounts(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOut {
			type entry struct {
				ID        int64  `json:"id"`
				Email     string `json:"email"`
				HasToken  bool   `json:"has_token"`
				CreatedAt string `json:"created_at"`
			}
			out := make([]entry, 0, len(accounts))
			for _, a := range accounts {
				out = append(out, entry{ID: a.ID, Email: a.Email, HasToken: a.RefreshToken != "", CreatedAt: a.CreatedAt})
			}
			printJSON(out)
			return nil
		}

		if len(accounts) == 0 {
			fmt.Println("No accounts stored. Run 'wise login' first.")
			return nil
		}
		for _, a := range accounts {
			token := "no token"
			if a.RefreshToken != "" {
				token = "token stored"
			}
			fmt.Printf("%d\t%s\t%s\t%s\n", a.ID, a.Email, token, a.CreatedAt)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(accountsCmd)
}
