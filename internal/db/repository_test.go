package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/anyrun/internal/models"
)

func TestSnapshotRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSnapshotRepository(db)
	ctx := context.Background()

	_, err := repo.Load(ctx, "http://localhost:5173/api")
	require.ErrorIs(t, err, ErrSnapshotNotFound)

	views := []models.AppView{
		{
			Config: models.AppConfig{Name: "web", Execute: "node app.js", AppType: models.AppTypeNode, TimeoutSeconds: 30, Arguments: []string{"--port", "3000"}},
			Status: models.StatusRunning,
			PID:    models.IntPtr(42),
			Port:   models.IntPtr(3000),
		},
		{
			Config: models.AppConfig{Name: "db", Execute: "postgres", AppType: models.AppTypeOther, TimeoutSeconds: 60},
			Status: models.StatusStopped,
		},
	}
	require.NoError(t, repo.Save(ctx, "http://localhost:5173/api/", 7, views))

	snap, err := repo.Load(ctx, "http://localhost:5173/api")
	require.NoError(t, err)
	require.Equal(t, int64(7), snap.Revision)
	require.Len(t, snap.Views, 2)
	require.Equal(t, "web", snap.Views[0].Name())
	require.Equal(t, 42, *snap.Views[0].PID)
	require.Equal(t, []string{"--port", "3000"}, snap.Views[0].Config.Arguments)
	require.Nil(t, snap.Views[1].PID)
	require.WithinDuration(t, time.Now(), snap.SavedAt, time.Minute)

	require.NoError(t, repo.Save(ctx, "http://localhost:5173/api", 8, nil))
	snap, err = repo.Load(ctx, "http://localhost:5173/api")
	require.NoError(t, err)
	require.Equal(t, int64(8), snap.Revision)
	require.Empty(t, snap.Views)

	_, err = repo.Load(ctx, "http://other:5173/api")
	require.ErrorIs(t, err, ErrSnapshotNotFound)

	require.NoError(t, repo.Delete(ctx, "http://localhost:5173/api"))
	_, err = repo.Load(ctx, "http://localhost:5173/api")
	require.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestSessionRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	server := "http://localhost:5173/api"

	_, err := repo.Load(ctx, server)
	require.ErrorIs(t, err, ErrSessionNotFound)

	require.Error(t, repo.Save(ctx, server, models.Session{Username: "admin"}), "token required")

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	session := models.Session{
		Username:   "admin",
		Token:      "tok-123",
		FirstLogin: true,
		CreatedAt:  created,
		ExpiresAt:  created.Add(24 * time.Hour),
	}
	require.NoError(t, repo.Save(ctx, server, session))

	got, err := repo.Load(ctx, server)
	require.NoError(t, err)
	require.Equal(t, "admin", got.Username)
	require.Equal(t, "tok-123", got.Token)
	require.True(t, got.FirstLogin)
	require.True(t, created.Equal(got.CreatedAt))
	require.True(t, session.ExpiresAt.Equal(got.ExpiresAt))

	session.Token = "tok-456"
	session.FirstLogin = false
	require.NoError(t, repo.Save(ctx, server, session))
	got, err = repo.Load(ctx, server)
	require.NoError(t, err)
	require.Equal(t, "tok-456", got.Token)
	require.False(t, got.FirstLogin)

	require.NoError(t, repo.Delete(ctx, server))
	require.NoError(t, repo.Delete(ctx, server))
	_, err = repo.Load(ctx, server)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPreferenceRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPreferenceRepository(db)
	ctx := context.Background()

	prefs, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, models.DefaultPreferences(), prefs)

	require.NoError(t, repo.Save(ctx, models.Preferences{Theme: "ocean", Language: models.LanguageChinese}))
	prefs, err = repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "ocean", prefs.Theme)
	require.Equal(t, models.LanguageChinese, prefs.Language)

	require.Error(t, repo.Save(ctx, models.Preferences{}))
}

func TestOpenFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	db, err := Open(DefaultConfig(path))
	require.NoError(t, err)
	require.Equal(t, path, db.Path())

	require.NoError(t, NewPreferenceRepository(db).Save(context.Background(), models.Preferences{Theme: "sunset", Language: models.LanguageEnglish}))
	require.NoError(t, db.Close())

	reopened, err := Open(Config{Path: path})
	require.NoError(t, err)
	defer reopened.Close()
	prefs, err := NewPreferenceRepository(reopened).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sunset", prefs.Theme)

	_, err = Open(Config{})
	require.Error(t, err)
}
