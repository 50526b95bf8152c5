package db

import (
	"context"
	"database/sql"
	"fmt"
)

type Account struct {
	ID           int64
	Email        string
	RefreshToken string
	CreatedAt    string
}

// CreateOrUpdateAccount upserts an account by email. An existing account
// gets its refresh token rotated in place; the id is stable across logins.
func (s *Store) CreateOrUpdateAccount(ctx context.Context, email, refreshToken string) (int64, error) {
	if email == "" {
		return 0, fmt.Errorf("email is required")
	}
	const q = `
INSERT INTO accounts(email, refresh_token) VALUES(?, ?)
ON CONFLICT(email) DO UPDATE SET refresh_token=excluded.refresh_token
RETURNING id`
	var id int64
	if err := s.DB.QueryRowContext(ctx, q, email, nullable(refreshToken)).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert account %s: %w", email, err)
	}
	return id, nil
}

// GetAccountByEmail returns nil without error when no account matches.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	const q = `SELECT id, email, refresh_token, created_at FROM accounts WHERE email = ?`
	acct, err := scanAccount(s.DB.QueryRowContext(ctx, q, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", email, err)
	}
	return acct, nil
}

func (s *Store) GetAccountByID(ctx context.Context, id int64) (*Account, error) {
	const q = `SELECT id, email, refresh_token, created_at FROM accounts WHERE id = ?`
	acct, err := scanAccount(s.DB.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get account %d: %w", id, err)
	}
	return acct, nil
}

// ListAccounts returns all accounts, newest first.
func (s *Store) ListAccounts(ctx context.Context) ([]Account, error) {
	const q = `SELECT id, email, refresh_token, created_at FROM accounts ORDER BY created_at DESC, id DESC`
	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *acct)
	}
	return accounts, rows.Err()
}

// ActiveAccount returns the newest account that holds a refresh token, or
// nil when no usable account exists.
func (s *Store) ActiveAccount(ctx context.Context) (*Account, error) {
	const q = `
SELECT id, email, refresh_token, created_at FROM accounts
WHERE refresh_token IS NOT NULL AND refresh_token != ''
ORDER BY created_at DESC, id DESC LIMIT 1`
	acct, err := scanAccount(s.DB.QueryRowContext(ctx, q))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active account: %w", err)
	}
	return acct, nil
}

func (s *Store) UpdateRefreshToken(ctx context.Context, accountID int64, refreshToken string) error {
	res, err := s.DB.ExecContext(ctx,
		"UPDATE accounts SET refresh_token = ? WHERE id = ?", nullable(refreshToken), accountID)
	if err != nil {
		return fmt.Errorf("update refresh token for account %d: %w", accountID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("account %d not found", accountID)
	}
	return nil
}

// DeleteAccount removes an account and, via cascade, its sessions and
// messages. Maintenance only; normal operation never deletes accounts.
func (s *Store) DeleteAccount(ctx context.Context, accountID int64) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", accountID)
	if err != nil {
		return fmt.Errorf("delete account %d: %w", accountID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("account %d not found", accountID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*Account, error) {
	var acct Account
	var token sql.NullString
	if err := row.Scan(&acct.ID, &acct.Email, &token, &acct.CreatedAt); err != nil {
		return nil, err
	}
	acct.RefreshToken = token.String
	return &acct, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
