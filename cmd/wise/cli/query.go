package cli

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ryokaneoka0406/wise/internal/bigquery"
)

var (
	queryDryRun     bool
	queryMaxResults int
	queryNoFetchAll bool
	queryFormat     string
)

var queryCmd = &cobra.Command{
	Use:   "query \"SQL\"",
	Short: "Run a SQL statement against the configured project",
	Args:  cobra.ExactArgs(1),
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
		res, err := client.Query(cmd.Context(), args[0], bigquery.QueryOptions{
			MaxResults: queryMaxResults,
			DryRun:     queryDryRun,
			FetchAll:   !queryNoFetchAll,
		})
		if err != nil {
			return err
		}

		if queryDryRun {
			fmt.Printf("Dry run OK. Estimated rows: %d\n", res.TotalRows)
			return nil
		}
		return renderQueryResult(res, queryFormat)
	},
}

func init() {
	queryCmd.Flags().BoolVar(&queryDryRun, "dry-run", false, "validate the statement without running it")
	queryCmd.Flags().IntVar(&queryMaxResults, "max-results", 0, "per-page row limit (default 1000)")
	queryCmd.Flags().BoolVar(&queryNoFetchAll, "no-fetch-all", false, "return only the first page of results")
	queryCmd.Flags().StringVar(&queryFormat, "format", "table", "output format: table, json, or md")
	rootCmd.AddCommand(queryCmd)
}

func renderQueryResult(res *bigquery.QueryResult, format string) error {
	if format == "json" || jsonOut {
		printJSON(map[string]any{
			"jobId":     res.JobID,
			"totalRows": res.TotalRows,
			"rows":      res.Rows,
		})
		return nil
	}

	w := table.NewWriter()
	w.SetOutputMirror(os.Stdout)
	w.SetStyle(table.StyleLight)

	header := table.Row{}
	for _, f := range res.Schema {
		header = append(header, f.Name)
	}
	w.AppendHeader(header)
	for _, row := range res.Rows {
		cells := table.Row{}
		for _, f := range res.Schema {
			v := row[f.Name]
			if v == nil {
				v = "NULL"
			}
			cells = append(cells, v)
		}
		w.AppendRow(cells)
	}

	switch format {
	case "md":
		w.RenderMarkdown()
	case "table":
		w.Render()
	default:
		return fmt.Errorf("unsupported format %q (want table, json, or md)", format)
	}
	fmt.Printf("%d of %d rows (job %s)\n", len(res.Rows), res.TotalRows, res.JobID)
	return nil
}
