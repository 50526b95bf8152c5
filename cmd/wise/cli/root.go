package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ryokaneoka0406/wise/internal/auth"
	"github.com/ryokaneoka0406/wise/internal/bigquery"
	"github.com/ryokaneoka0406/wise/internal/config"
	"github.com/ryokaneoka0406/wise/internal/db"
)

var (
	cfgPath string
	verbose bool
	jsonOut bool
	version = config.Version
)

var rootCmd = &cobra.Command{
	Use:     "wise",
	Short:   "wise — BigQuery chat assistant",
	Long:    "wise authenticates against Google, explores BigQuery metadata, runs queries, and keeps your chat history in a local SQLite database.",
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if cfg, err := loadConfig(); err == nil {
			level = cfg.SlogLevel()
		}
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output JSON")
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

// resolveConfigPath determines which config file to use.
// Priority: --config flag > ./wise.toml > ~/.config/wise/config.toml.
func resolveConfigPath() (string, bool) {
	if cfgPath != "" {
		return cfgPath, true
	}
	if _, err := os.Stat("wise.toml"); err == nil {
		return "wise.toml", true
	}
	globalPath, err := config.GlobalConfigPath()
	if err == nil {
		if _, err := os.Stat(globalPath); err == nil {
			return globalPath, true
		}
	}
	return "", false
}

// loadConfig loads the resolved config file, or built-in defaults when no
// file exists anywhere. An explicit --config that fails to load is still an
// error.
func loadConfig() (*config.Config, error) {
	path, found := resolveConfigPath()
	if !found {
		return config.Default(), nil
	}
	return config.Load(path)
}

func openStore(cfg *config.Config) (*db.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	// Clean up orphaned WAL sidecar files if the main DB was deleted.
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		_ = os.Remove(cfg.DBPath + "-shm")
		_ = os.Remove(cfg.DBPath + "-wal")
	}
	return db.Open(cfg.DBPath)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// loadSecrets resolves and parses the OAuth client secrets for this run.
func loadSecrets(cfg *config.Config) (*auth.ClientSecrets, error) {
	return auth.LoadSecrets(auth.ResolveSecretsPath(cfg.ClientSecrets))
}

// activeAccount returns the usable account or an actionable error.
func activeAccount(ctx context.Context, store *db.Store) (*db.Account, error) {
	account, err := store.ActiveAccount(ctx)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("no authorized account; run 'wise login' first")
	}
	return account, nil
}

// newCatalogClient builds an authorized BigQuery client for projectID,
// falling back to the configured project when projectID is empty.
func newCatalogClient(ctx context.Context, cfg *config.Config, store *db.Store, projectID string) (*bigquery.Client, error) {
	if projectID == "" {
		if err := cfg.RequireProject(); err != nil {
			return nil, err
		}
		projectID = cfg.ProjectID
	}
	secrets, err := loadSecrets(cfg)
	if err != nil {
		return nil, err
	}
	account, err := activeAccount(ctx, store)
	if err != nil {
		return nil, err
	}
	httpClient, err := auth.HTTPClient(ctx, secrets, account)
	if err != nil {
		return nil, err
	}
	return bigquery.New(projectID, bigquery.Options{
		Location:   cfg.Location,
		HTTPClient: httpClient,
	})
}
