package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tOgg1/anyrun/internal/models"
)

// ErrSessionNotFound is returned when no session is stored for a server.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository handles session persistence, one per server.
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save stores the session for server, replacing any previous one.
func (r *SessionRepository) Save(ctx context.Context, server string, session models.Session) error {
	if session.Token == "" {
		return errors.New("session token is required")
	}

	firstLogin := 0
	if session.FirstLogin {
		firstLogin = 1
	}

	return r.db.TransactionWithRetry(ctx, 0, 0, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (server, username, token, first_login, created_at, expires_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(server) DO UPDATE SET
				username = excluded.username,
				token = excluded.token,
				first_login = excluded.first_login,
				created_at = excluded.created_at,
				expires_at = excluded.expires_at
		`,
			serverKey(server),
			session.Username,
			session.Token,
			firstLogin,
			session.CreatedAt.UTC().Format(time.RFC3339Nano),
			session.ExpiresAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	})
}

// Load returns the stored session for server. Expiry is the caller's concern.
func (r *SessionRepository) Load(ctx context.Context, server string) (models.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT username, token, first_login, created_at, expires_at
		FROM sessions
		WHERE server = ?
	`, serverKey(server))

	var (
		session    models.Session
		firstLogin int
		createdAt  string
		expiresAt  string
	)
	if err := row.Scan(&session.Username, &session.Token, &firstLogin, &createdAt, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, fmt.Errorf("failed to load session: %w", err)
	}

	session.FirstLogin = firstLogin != 0
	var err error
	if session.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return models.Session{}, fmt.Errorf("invalid session created_at: %w", err)
	}
	if session.ExpiresAt, err = time.Parse(time.RFC3339Nano, expiresAt); err != nil {
		return models.Session{}, fmt.Errorf("invalid session expires_at: %w", err)
	}
	return session, nil
}

// Delete removes the session for server. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, server string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE server = ?`, serverKey(server)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
