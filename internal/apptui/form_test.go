package apptui

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/anyrun/internal/models"
)

func TestAppFormRoundTripsExistingConfig(t *testing.T) {
	existing := models.AppConfig{
		Name:             "web",
		Execute:          "java",
		WorkingDirectory: "/srv/web",
		AppType:          models.AppTypeJava,
		Arguments:        []string{"-jar", "web.jar"},
		Daemon:           true,
		TimeoutSeconds:   45,
		Port:             8080,
	}
	f := newAppForm(models.LanguageEnglish, &existing)
	require.Equal(t, formEdit, f.kind)
	require.Equal(t, "web", f.original)

	got, err := f.appConfig()
	require.NoError(t, err)
	require.Equal(t, existing, got)
}

func TestAppFormIgnoresNameChangesOnEdit(t *testing.T) {
	existing := models.AppConfig{Name: "web", Execute: "java", TimeoutSeconds: 30}
	f := newAppForm(models.LanguageEnglish, &existing)
	f.field("name").input.SetValue("other")

	got, err := f.appConfig()
	require.NoError(t, err)
	require.Equal(t, "web", got.Name)
}

func TestAppFormRejectsBadTimeout(t *testing.T) {
	f := newAppForm(models.LanguageEnglish, nil)
	f.field("timeout").input.SetValue("0")

	_, err := f.appConfig()
	require.Error(t, err)
	require.Equal(t, models.KindValidationFailure, models.KindOf(err))
}

func TestFormFocusSkipsReadOnlyFields(t *testing.T) {
	existing := models.AppConfig{Name: "web", Execute: "java", TimeoutSeconds: 30}
	f := newAppForm(models.LanguageEnglish, &existing)
	require.Equal(t, 1, f.focus)

	f.move(-1)
	require.Equal(t, len(f.fields)-1, f.focus)
	require.True(t, f.onLast())

	f.move(1)
	require.Equal(t, 1, f.focus)
}

func TestTranslationsFallBackToEnglish(t *testing.T) {
	require.Equal(t, "Log in", tr(models.Language("fr"), msgLoginTitle))
	require.Equal(t, "已停止", statusText(models.LanguageChinese, models.StatusStopped))
	require.Equal(t, tr(models.LanguageEnglish, msgStatusUnknown), statusText(models.LanguageEnglish, models.Status("")))
}

func TestCatalogsAreComplete(t *testing.T) {
	english := catalog[models.LanguageEnglish]
	for lang, table := range catalog {
		require.Len(t, table, len(english), "catalog %s", lang)
		for key, text := range table {
			require.NotEmpty(t, text, "catalog %s key %d", lang, key)
		}
	}
}

func TestResolvePaletteFallsBackToDefault(t *testing.T) {
	require.Equal(t, "default", resolvePalette("no-such-theme").Name)
	for _, name := range ThemeNames {
		require.Equal(t, name, resolvePalette(name).Name)
	}
}

func TestTruncateAndPadHandleWideRunes(t *testing.T) {
	require.Equal(t, "应用  ", padRight("应用", 6))
	require.Equal(t, "abc...", truncateLine("abcdefghij", 6))
	require.Equal(t, "short", truncateLine("short", 10))
}
