package metadata

import (
	"time"

	"github.com/ryokaneoka0406/wise/internal/bigquery"
	"github.com/ryokaneoka0406/wise/internal/datastore"
)

// WriteResult reports where a metadata document landed and, when an earlier
// document existed, where its backup went.
type WriteResult struct {
	Path       string
	BackupPath string
}

// Save renders the snapshot and writes it to the project's metadata path
// under baseDir. When backup is true an existing file is copied aside
// before being overwritten.
func Save(snap *bigquery.Snapshot, baseDir string, backup bool) (*WriteResult, error) {
	now := time.Now().UTC()
	content, err := Render(snap, now)
	if err != nil {
		return nil, err
	}
	path := datastore.MetadataPath(baseDir, snap.ProjectID)

	res := &WriteResult{Path: path}
	if backup {
		backupPath, err := datastore.CreateBackup(path, now)
		if err != nil {
			return nil, err
		}
		res.BackupPath = backupPath
	}
	if err := datastore.WriteText(path, content); err != nil {
		return nil, err
	}
	return res, nil
}
