package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database maintenance",
}

var dbTablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables in the local database",
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

		tables, err := store.ListTables(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOut {
			printJSON(tables)
			return nil
		}
		for _, name := range tables {
			fmt.Println(name)
		}
		return nil
	},
}

var dbDropLegacyCmd = &cobra.Command{
	Use:   "drop-legacy",
	Short: "Drop tables left behind by earlier schema versions",
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

		dropped, err := store.DropLegacyTables(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOut {
			printJSON(dropped)
			return nil
		}
		if len(dropped) == 0 {
			fmt.Println("No legacy tables found.")
			return nil
		}
		for _, name := range dropped {
			fmt.Printf("dropped %s\n", name)
		}
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbTablesCmd, dbDropLegacyCmd)
	rootCmd.AddCommand(dbCmd)
}
