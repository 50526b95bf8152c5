// Package metadata renders catalog snapshots into Markdown documents and
// persists them under the artifacts directory.
package metadata

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ryokaneoka0406/wise/internal/bigquery"
)

// Render produces a deterministic Markdown document from a snapshot. The
// generatedAt timestamp is the only non-structural input; two renders of the
// same snapshot with the same timestamp are byte-identical.
func Render(snap *bigquery.Snapshot, generatedAt time.Time) (string, error) {
	if snap == nil {
		return "", fmt.Errorf("snapshot is empty")
	}
	if snap.ProjectID == "" {
		return "", fmt.Errorf("snapshot is missing a project id")
	}

	location := snap.Location
	if location == "" {
		location = "unspecified"
	}
	datasetIDs := sortedKeys(snap.Datasets)
	stamp := generatedAt.UTC().Format("2006-01-02T15:04:05Z")

	var b strings.Builder
	fmt.Fprintf(&b, "# BigQuery metadata: `%s`\n\n", snap.ProjectID)
	b.WriteString("## Project overview\n\n")
	fmt.Fprintf(&b, "- Project ID: `%s`\n", snap.ProjectID)
	fmt.Fprintf(&b, "- Location: `%s`\n", location)
	fmt.Fprintf(&b, "- Datasets: %d\n", len(datasetIDs))
	fmt.Fprintf(&b, "- Generated (UTC): %s\n", stamp)
	b.WriteString("\n## Datasets\n\n")

	if len(datasetIDs) == 0 {
		b.WriteString("_No datasets found._\n")
	} else {
		b.WriteString("| Dataset ID | Tables |\n")
		b.WriteString("| --- | --- |\n")
		for _, id := range datasetIDs {
			fmt.Fprintf(&b, "| `%s` | %d |\n", id, len(snap.Datasets[id].Tables))
		}
	}
	b.WriteString("\n")

	for _, id := range datasetIDs {
		renderDataset(&b, id, snap.Datasets[id])
	}

	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

func renderDataset(b *strings.Builder, datasetID string, ds bigquery.DatasetMetadata) {
	fmt.Fprintf(b, "\n## Dataset `%s`\n\n", datasetID)
	if len(ds.Tables) == 0 {
		b.WriteString("_No tables in this dataset._\n\n")
		return
	}
	for _, tableID := range sortedKeys(ds.Tables) {
		table := ds.Tables[tableID]
		fmt.Fprintf(b, "\n### Table `%s.%s`\n", datasetID, tableID)
		renderSchema(b, table.Schema)
		renderSampleRows(b, table.Schema, table.SampleRows)
	}
}

func renderSchema(b *strings.Builder, fields []bigquery.Field) {
	b.WriteString("\n#### Field definitions\n\n")
	if len(fields) == 0 {
		b.WriteString("_Schema information is not available._\n\n")
		return
	}
	b.WriteString("| Name | Type | Mode | Description |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, f := range fields {
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n",
			escapeCell(f.Name), escapeCell(f.Type), escapeCell(f.Mode), escapeCell(f.Description))
	}
	b.WriteString("\n")
}

func renderSampleRows(b *strings.Builder, fields []bigquery.Field, rows []map[string]any) {
	b.WriteString("\n#### Sample rows\n\n")
	if len(rows) == 0 {
		b.WriteString("_No sample rows were retrieved._\n\n")
		return
	}

	columns := columnNames(fields)
	if len(columns) == 0 {
		// Schema-less rows still render if the records carry keys.
		seen := map[string]bool{}
		for _, row := range rows {
			for k := range row {
				if k != "" {
					seen[k] = true
				}
			}
		}
		columns = sortedKeys(seen)
	}
	if len(columns) == 0 {
		b.WriteString("_Sample rows cannot be shown in table form._\n\n")
		return
	}

	header := make([]string, len(columns))
	sep := make([]string, len(columns))
	for i, col := range columns {
		header[i] = escapeCell(col)
		sep[i] = "---"
	}
	fmt.Fprintf(b, "| %s |\n", strings.Join(header, " | "))
	fmt.Fprintf(b, "| %s |\n", strings.Join(sep, " | "))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = escapeCell(row[col])
		}
		fmt.Fprintf(b, "| %s |\n", strings.Join(cells, " | "))
	}
	b.WriteString("\n")
}

func columnNames(fields []bigquery.Field) []string {
	names := []string{}
	for _, f := range fields {
		if f.Name != "" {
			names = append(names, f.Name)
		}
	}
	return names
}

// escapeCell makes a value safe inside a Markdown table cell. Nil renders
// as an empty cell.
func escapeCell(v any) string {
	if v == nil {
		return ""
	}
	s := fmt.Sprintf("%v", v)
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", "<br>")
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
