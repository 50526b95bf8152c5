// Package datastore handles the on-disk artifact layout: where rendered
// metadata lives and how existing files are backed up before overwrite.
package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// backupStamp is the compact timestamp appended to backup file names.
const backupStamp = "20060102T150405"

// MetadataPath returns the metadata file location for a project under the
// artifacts directory: <baseDir>/project/<projectID>/metadata.md.
func MetadataPath(baseDir, projectID string) string {
	return filepath.Join(baseDir, "project", projectID, "metadata.md")
}

// WriteText writes content to path, creating parent directories as needed.
func WriteText(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent directories: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// CreateBackup copies path aside as <path>.bak.<timestamp> and returns the
// backup location. A missing source is not an error; the empty string
// signals that nothing was backed up.
func CreateBackup(path string, now time.Time) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	backup := fmt.Sprintf("%s.bak.%s", path, now.Format(backupStamp))
	if err := os.WriteFile(backup, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup %s: %w", backup, err)
	}
	return backup, nil
}
