package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ryokaneoka0406/wise/internal/metadata"
)

var (
	metadataDatasets []string
	metadataSamples  int
	metadataNoBackup bool
)

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Snapshot the project catalog and write the metadata report",
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

		client, err := newCatalogClient(cmd.Context(), cfg, store, "")
		if err != nil {
			return err
		}

		samples := metadataSamples
		if samples < 0 {
			samples = cfg.SampleRows
		}
		snap, err := client.Snapshot(cmd.Context(), metadataDatasets, samples)
		if err != nil {
			return err
		}
		res, err := metadata.Save(snap, cfg.ArtifactsDir, !metadataNoBackup)
		if err != nil {
			return err
		}

		if jsonOut {
			printJSON(map[string]any{"path": res.Path, "backup": res.BackupPath})
			return nil
		}
		fmt.Printf("Metadata written to %s\n", res.Path)
		if res.BackupPath != "" {
			fmt.Printf("Previous report backed up to %s\n", res.BackupPath)
		}
		return nil
	},
}

func init() {
	metadataCmd.Flags().StringSliceVar(&metadataDatasets, "datasets", nil, "dataset ids to include (default: all)")
	metadataCmd.Flags().IntVar(&metadataSamples, "samples", -1, "sample rows per table (default: config sample_rows)")
	metadataCmd.Flags().BoolVar(&metadataNoBackup, "no-backup", false, "overwrite without keeping a backup")
	rootCmd.AddCommand(metadataCmd)
}
