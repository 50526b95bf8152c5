package db

import (
	"context"
	"fmt"
)

// Roles allowed on a message row, mirrored by the CHECK constraint.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type Session struct {
	ID        int64
	AccountID int64
	StartedAt string

	// Email and MessageCount are populated by ListSessions for display.
	Email        string
	MessageCount int
}

type Message struct {
	ID        int64
	SessionID int64
	Role      string
	Content   string
	CreatedAt string
}

// CreateSession starts a transcript for one CLI invocation. Sessions are
// never mutated afterwards.
func (s *Store) CreateSession(ctx context.Context, accountID int64) (int64, error) {
	res, err := s.DB.ExecContext(ctx, "INSERT INTO sessions(account_id) VALUES(?)", accountID)
	if err != nil {
		return 0, fmt.Errorf("create session for account %d: %w", accountID, err)
	}
	return res.LastInsertId()
}

// AppendMessage appends to a session transcript. Append-only by design.
func (s *Store) AppendMessage(ctx context.Context, sessionID int64, role, content string) (int64, error) {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return 0, fmt.Errorf("invalid message role %q", role)
	}
	res, err := s.DB.ExecContext(ctx,
		"INSERT INTO messages(session_id, role, content) VALUES(?, ?, ?)",
		sessionID, role, content)
	if err != nil {
		return 0, fmt.Errorf("append message to session %d: %w", sessionID, err)
	}
	return res.LastInsertId()
}

// ListMessages returns a session transcript in insertion order.
func (s *Store) ListMessages(ctx context.Context, sessionID int64) ([]Message, error) {
	const q = `
SELECT id, session_id, role, content, created_at
FROM messages WHERE session_id = ?
ORDER BY created_at ASC, id ASC`
	rows, err := s.DB.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages for session %d: %w", sessionID, err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ListSessions returns all sessions newest first, joined with the account
// email and message count for display.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	const q = `
SELECT s.id, s.account_id, s.started_at, a.email,
       (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)
FROM sessions s
JOIN accounts a ON a.id = s.account_id
ORDER BY s.started_at DESC, s.id DESC`
	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.AccountID, &sess.StartedAt, &sess.Email, &sess.MessageCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
