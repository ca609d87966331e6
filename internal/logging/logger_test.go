package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComponentAddsField(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	logger := WithApp(Component("poller"), "api")
	logger.Info().Int("revision", 3).Msg("snapshot published")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "poller", entry["component"])
	require.Equal(t, "api", entry["app"])
	require.Equal(t, "snapshot published", entry["message"])
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, "warn", parseLevel("warning").String())
	require.Equal(t, "info", parseLevel("nonsense").String())
	require.Equal(t, "disabled", parseLevel("off").String())
}

func TestFromContextFallsBackToGlobal(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	logger := FromContext(context.Background())
	logger.Info().Msg("global")
	require.Contains(t, buf.String(), "global")

	scoped := Component("scoped")
	ctx := WithContext(context.Background(), scoped)
	got := FromContext(ctx)
	got.Info().Msg("from ctx")
	require.Contains(t, buf.String(), `"component":"scoped"`)
}

func TestOpenFileCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "anyrun.log")
	f, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.FileExists(t, path)
}
