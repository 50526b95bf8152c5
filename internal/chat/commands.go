// Package chat implements the interactive session loop and its slash
// commands.
package chat

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ryokaneoka0406/wise/internal/bigquery"
	"github.com/ryokaneoka0406/wise/internal/db"
	"github.com/ryokaneoka0406/wise/internal/metadata"
)

// Catalog is the slice of the BigQuery client the init wizard needs.
type Catalog interface {
	ListDatasets(ctx context.Context) ([]string, error)
	Snapshot(ctx context.Context, datasetIDs []string, sampleSize int) (*bigquery.Snapshot, error)
}

// Deps carries everything the command handlers touch, so tests can stub the
// network and the prompts.
type Deps struct {
	Store *db.Store
	Out   io.Writer

	// Prompt reads one line of user input under the given label.
	Prompt func(label string) (string, error)
	// Login re-runs the OAuth flow and returns the authorized account.
	Login func(ctx context.Context) (*db.Account, error)
	// ListProjects enumerates projects visible to the account.
	ListProjects func(ctx context.Context, account *db.Account) ([]bigquery.Project, error)
	// OpenCatalog builds a catalog client bound to the chosen project.
	OpenCatalog func(ctx context.Context, account *db.Account, projectID string) (Catalog, error)
	// Save persists a rendered snapshot and reports where it went.
	Save func(snap *bigquery.Snapshot) (*metadata.WriteResult, error)

	// SampleRows is the per-table sample size for init. Defaults to 3.
	SampleRows int
}

const helpText = `Available commands:
  /login, /reauth  re-run Google authorization and rotate the refresh token
  /init            pick a project and write its metadata report
  /help            show this message
  exit, quit       leave the chat`

// Handle dispatches one slash command. The leading "/" and "\" prefixes are
// interchangeable. Returns handled=false for lines that are not commands;
// handler failures come back as a reply string, never as a crash.
func (d *Deps) Handle(ctx context.Context, line string) (bool, string) {
	cmd := strings.TrimSpace(line)
	if strings.HasPrefix(cmd, "/") {
		cmd = `\` + cmd[1:]
	}
	switch cmd {
	case `\login`, `\reauth`:
		return true, d.login(ctx)
	case `\init`:
		return true, d.initMetadata(ctx)
	case `\help`:
		return true, helpText
	}
	return false, ""
}

func (d *Deps) login(ctx context.Context) string {
	account, err := d.Login(ctx)
	if err != nil {
		return fmt.Sprintf("Login failed: %v", err)
	}
	return fmt.Sprintf("Authorized as %s. Refresh token saved.", account.Email)
}

// initMetadata walks the user through project and dataset selection, then
// snapshots the catalog and writes the metadata report.
func (d *Deps) initMetadata(ctx context.Context) string {
	account, err := d.Store.ActiveAccount(ctx)
	if err != nil {
		return fmt.Sprintf("Could not look up accounts: %v", err)
	}
	if account == nil {
		return "No authorized account found. Run /login first."
	}

	projects, err := d.ListProjects(ctx, account)
	if err != nil {
		return fmt.Sprintf("Could not list projects: %v", err)
	}
	if len(projects) == 0 {
		return "No projects are visible to this account."
	}

	fmt.Fprintln(d.Out, "Available projects:")
	for i, p := range projects {
		if p.FriendlyName != "" {
			fmt.Fprintf(d.Out, "  %d) %s (%s)\n", i+1, p.ID, p.FriendlyName)
		} else {
			fmt.Fprintf(d.Out, "  %d) %s\n", i+1, p.ID)
		}
	}

	choice, err := d.Prompt("Project number (blank to cancel): ")
	if err != nil {
		return fmt.Sprintf("Could not read input: %v", err)
	}
	choice = strings.TrimSpace(choice)
	if choice == "" {
		return "Cancelled."
	}
	idx, err := strconv.Atoi(choice)
	if err != nil || idx < 1 || idx > len(projects) {
		return fmt.Sprintf("Invalid selection %q.", choice)
	}
	projectID := projects[idx-1].ID

	catalog, err := d.OpenCatalog(ctx, account, projectID)
	if err != nil {
		return fmt.Sprintf("Could not open project %s: %v", projectID, err)
	}

	available, err := catalog.ListDatasets(ctx)
	if err != nil {
		return fmt.Sprintf("Could not list datasets: %v", err)
	}
	if len(available) > 0 {
		fmt.Fprintf(d.Out, "Datasets in %s: %s\n", projectID, strings.Join(available, ", "))
	}
	answer, err := d.Prompt("Datasets to include (comma separated, blank for all): ")
	if err != nil {
		return fmt.Sprintf("Could not read input: %v", err)
	}
	datasetIDs := splitDatasets(answer)
	if len(datasetIDs) == 0 {
		datasetIDs = available
	}

	sample := d.SampleRows
	if sample <= 0 {
		sample = 3
	}
	snap, err := catalog.Snapshot(ctx, datasetIDs, sample)
	if err != nil {
		return fmt.Sprintf("Snapshot failed: %v", err)
	}
	res, err := d.Save(snap)
	if err != nil {
		return fmt.Sprintf("Could not write metadata: %v", err)
	}
	if res.BackupPath != "" {
		return fmt.Sprintf("Metadata written to %s (previous file backed up to %s).", res.Path, res.BackupPath)
	}
	return fmt.Sprintf("Metadata written to %s.", res.Path)
}

func splitDatasets(answer string) []string {
	ids := []string{}
	for _, part := range strings.Split(answer, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
