package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tOgg1/anyrun/internal/models"
)

// ErrSnapshotNotFound is returned when nothing is cached for a server.
var ErrSnapshotNotFound = errors.New("cached snapshot not found")

// CachedSnapshot is the last application collection seen for a server.
type CachedSnapshot struct {
	Server   string
	Revision int64
	Views    []models.AppView
	SavedAt  time.Time
}

// SnapshotRepository handles snapshot persistence.
type SnapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save replaces the cached snapshot for server.
func (r *SnapshotRepository) Save(ctx context.Context, server string, revision int64, views []models.AppView) error {
	if views == nil {
		views = []models.AppView{}
	}
	data, err := json.Marshal(views)
	if err != nil {
		return fmt.Errorf("failed to marshal views: %w", err)
	}

	return r.db.TransactionWithRetry(ctx, 0, 0, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshots (server, revision, views_json, saved_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(server) DO UPDATE SET
				revision = excluded.revision,
				views_json = excluded.views_json,
				saved_at = excluded.saved_at
		`,
			serverKey(server),
			revision,
			string(data),
			time.Now().UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		return nil
	})
}

// Load returns the cached snapshot for server.
func (r *SnapshotRepository) Load(ctx context.Context, server string) (*CachedSnapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT server, revision, views_json, saved_at
		FROM snapshots
		WHERE server = ?
	`, serverKey(server))

	var (
		snap      CachedSnapshot
		viewsJSON string
		savedAt   string
	)
	if err := row.Scan(&snap.Server, &snap.Revision, &viewsJSON, &savedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	if err := json.Unmarshal([]byte(viewsJSON), &snap.Views); err != nil {
		return nil, fmt.Errorf("failed to decode cached views: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, savedAt); err == nil {
		snap.SavedAt = t
	}
	return &snap, nil
}

// Delete drops the cached snapshot for server.
func (r *SnapshotRepository) Delete(ctx context.Context, server string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE server = ?`, serverKey(server)); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
