package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ryokaneoka0406/wise/internal/auth"
	"github.com/ryokaneoka0406/wise/internal/bigquery"
	"github.com/ryokaneoka0406/wise/internal/chat"
	"github.com/ryokaneoka0406/wise/internal/config"
	"github.com/ryokaneoka0406/wise/internal/db"
	"github.com/ryokaneoka0406/wise/internal/metadata"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
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

		historyFile := ""
		if stateDir, err := config.StateDir(); err == nil {
			if err := os.MkdirAll(stateDir, 0o755); err == nil {
				historyFile = filepath.Join(stateDir, "chat_history")
			}
		}

		return chat.Run(cmd.Context(), chatDeps(cfg, store), historyFile)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// chatDeps wires the chat handlers to the real OAuth flow, BigQuery client,
// and metadata writer.
func chatDeps(cfg *config.Config, store *db.Store) *chat.Deps {
	stdin := bufio.NewReader(os.Stdin)
	return &chat.Deps{
		Store: store,
		Out:   os.Stdout,
		Prompt: func(label string) (string, error) {
			fmt.Print(label)
			line, err := stdin.ReadString('\n')
			if err != nil {
				return "", err
			}
			return strings.TrimRight(line, "\n"), nil
		},
		Login: func(ctx context.Context) (*db.Account, error) {
			return runLogin(ctx, cfg, store)
		},
		ListProjects: func(ctx context.Context, account *db.Account) ([]bigquery.Project, error) {
			secrets, err := loadSecrets(cfg)
			if err != nil {
				return nil, err
			}
			httpClient, err := auth.HTTPClient(ctx, secrets, account)
			if err != nil {
				return nil, err
			}
			// The placeholder project satisfies the constructor; project
			// listing is not project-scoped.
			client, err := bigquery.New("-", bigquery.Options{HTTPClient: httpClient})
			if err != nil {
				return nil, err
			}
			return client.ListProjects(ctx)
		},
		OpenCatalog: func(ctx context.Context, account *db.Account, projectID string) (chat.Catalog, error) {
			secrets, err := loadSecrets(cfg)
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
		},
		Save: func(snap *bigquery.Snapshot) (*metadata.WriteResult, error) {
			return metadata.Save(snap, cfg.ArtifactsDir, true)
		},
		SampleRows: cfg.SampleRows,
	}
}
