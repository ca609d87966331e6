package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/anyrun/internal/db"
	"github.com/tOgg1/anyrun/internal/models"
)

func TestPreferencesWithoutStore(t *testing.T) {
	p := NewPreferences(nil, models.Preferences{})
	require.Equal(t, models.DefaultPreferences(), p.Get())
	require.NoError(t, p.Load(context.Background()))

	prefs, err := p.ToggleLanguage(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.LanguageChinese, prefs.Language)
	prefs, err = p.ToggleLanguage(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.LanguageEnglish, prefs.Language)
}

func TestPreferencesCycleTheme(t *testing.T) {
	p := NewPreferences(nil, models.Preferences{Theme: "ocean", Language: models.LanguageEnglish})
	themes := []string{"default", "high-contrast", "ocean", "sunset"}

	prefs, err := p.CycleTheme(context.Background(), themes)
	require.NoError(t, err)
	require.Equal(t, "sunset", prefs.Theme)
	prefs, _ = p.CycleTheme(context.Background(), themes)
	require.Equal(t, "default", prefs.Theme)

	_, _ = p.SetTheme(context.Background(), "retired")
	prefs, _ = p.CycleTheme(context.Background(), themes)
	require.Equal(t, "default", prefs.Theme, "unknown themes restart the cycle")
}

func TestPreferencesPersist(t *testing.T) {
	database, err := db.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	repo := db.NewPreferenceRepository(database)

	p := NewPreferences(repo, models.DefaultPreferences())
	_, err = p.SetTheme(context.Background(), "sunset")
	require.NoError(t, err)
	_, err = p.ToggleLanguage(context.Background())
	require.NoError(t, err)

	fresh := NewPreferences(repo, models.DefaultPreferences())
	require.NoError(t, fresh.Load(context.Background()))
	require.Equal(t, models.Preferences{Theme: "sunset", Language: models.LanguageChinese}, fresh.Get())
}
