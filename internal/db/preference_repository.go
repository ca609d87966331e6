package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tOgg1/anyrun/internal/models"
)

const (
	prefTheme    = "theme"
	prefLanguage = "language"
)

// PreferenceRepository stores UI preferences as key/value rows.
type PreferenceRepository struct {
	db *DB
}

// NewPreferenceRepository creates a new PreferenceRepository.
func NewPreferenceRepository(db *DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Load returns the stored preferences, with defaults for anything unset.
func (r *PreferenceRepository) Load(ctx context.Context) (models.Preferences, error) {
	prefs := models.DefaultPreferences()

	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM preferences`)
	if err != nil {
		return prefs, fmt.Errorf("failed to query preferences: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return prefs, fmt.Errorf("failed to scan preference: %w", err)
		}
		switch key {
		case prefTheme:
			prefs.Theme = value
		case prefLanguage:
			prefs.Language = models.Language(value)
		}
	}
	if err := rows.Err(); err != nil {
		return prefs, fmt.Errorf("failed to read preferences: %w", err)
	}
	return prefs, nil
}

// Save stores every preference in one transaction.
func (r *PreferenceRepository) Save(ctx context.Context, prefs models.Preferences) error {
	if prefs.Theme == "" || prefs.Language == "" {
		return errors.New("theme and language are required")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	return r.db.TransactionWithRetry(ctx, 0, 0, func(tx *sql.Tx) error {
		for key, value := range map[string]string{
			prefTheme:    prefs.Theme,
			prefLanguage: string(prefs.Language),
		} {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO preferences (key, value, updated_at)
				VALUES (?, ?, ?)
				ON CONFLICT(key) DO UPDATE SET
					value = excluded.value,
					updated_at = excluded.updated_at
			`, key, value, now)
			if err != nil {
				return fmt.Errorf("failed to save preference %s: %w", key, err)
			}
		}
		return nil
	})
}
