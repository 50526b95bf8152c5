package db

import (
	"context"
	"fmt"
	"strings"
)

const schemaVersion = 1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER NOT NULL,
    applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE TABLE IF NOT EXISTS accounts (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    email         TEXT NOT NULL UNIQUE,
    refresh_token TEXT,
    created_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE TABLE IF NOT EXISTS sessions (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    started_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_sessions_account ON sessions(account_id);

CREATE TABLE IF NOT EXISTS messages (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    role       TEXT NOT NULL CHECK(role IN ('user','assistant','system')),
    content    TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
`

func (s *Store) createSchema() error {
	if _, err := s.DB.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	var count int
	if err := s.DB.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		return fmt.Errorf("check schema version: %w", err)
	}
	if count == 0 {
		if _, err := s.DB.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("insert schema version: %w", err)
		}
	}
	return nil
}

// legacyTables are tables an earlier design persisted relationally; they are
// filesystem artifacts now and can be dropped by the maintenance command.
var legacyTables = []string{"datasets", "queries", "analysis"}

// ListTables returns user-defined table names, excluding SQLite internals.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		if strings.HasPrefix(name, "sqlite_") {
			continue
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DropLegacyTables drops leftover tables from the pre-filesystem design.
// Only known legacy names are touched. Returns the names actually dropped.
func (s *Store) DropLegacyTables(ctx context.Context) ([]string, error) {
	existing, err := s.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	present := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		present[name] = struct{}{}
	}

	var dropped []string
	for _, name := range legacyTables {
		if _, ok := present[name]; !ok {
			continue
		}
		if _, err := s.DB.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
			return dropped, fmt.Errorf("drop table %s: %w", name, err)
		}
		dropped = append(dropped, name)
	}
	return dropped, nil
}
