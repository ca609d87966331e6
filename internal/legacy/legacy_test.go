package legacy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/anyrun/internal/models"
)

const sampleTOML = `
# anyrun
ui_port = 8080

[user]
username = "admin"
passwordHash = "$2a$10$abc"
firstLogin = false

[[apps]]
name = "web"
execute = "java"
app_path = "/srv/web"
app_type = "Java"
args = "-jar web.jar --server.port=9000"
autostart = true
port = 9000

[[apps]]
name = "worker"
execute = "python"
appType = "python"
args = ["worker.py", "--queue", "default"]
timeout = 5
daemon = true

[[apps]]
execute = "orphan"
`

func TestParseTOML(t *testing.T) {
	doc, err := Parse([]byte(sampleTOML), FormatTOML)
	require.NoError(t, err)

	require.Equal(t, 8080, doc.UIPort)
	require.Equal(t, []string{"web", "worker"}, doc.Names())

	web := doc.Apps[0]
	require.Equal(t, "/srv/web", web.WorkingDirectory)
	require.Equal(t, models.AppTypeJava, web.AppType)
	require.Equal(t, []string{"-jar", "web.jar", "--server.port=9000"}, web.Arguments)
	require.True(t, web.Autostart)
	require.Equal(t, 9000, web.Port)
	require.Equal(t, models.DefaultTimeoutSeconds, web.TimeoutSeconds)

	worker := doc.Apps[1]
	require.Equal(t, []string{"worker.py", "--queue", "default"}, worker.Arguments)
	require.Equal(t, 5, worker.TimeoutSeconds)
	require.True(t, worker.Daemon)

	require.Equal(t, []string{"user"}, doc.ExtraKeys())
	out, err := json.Marshal(doc)
	require.NoError(t, err)
	require.Contains(t, string(out), `"passwordHash":"$2a$10$abc"`)
}

func TestParseDefaultsUIPort(t *testing.T) {
	doc, err := Parse([]byte("[[apps]]\nname = \"a\"\nexecute = \"go\"\n"), FormatTOML)
	require.NoError(t, err)
	require.Equal(t, DefaultUIPort, doc.UIPort)
	require.Equal(t, models.AppTypeOther, doc.Apps[0].AppType)
}

func TestParseJSON(t *testing.T) {
	data := `{"uiPort": 5173, "Apps": [{"Name": "api", "Execute": "node", "AppType": "Node.js", "Args": "server.js"}]}`
	doc, err := Parse([]byte(data), FormatJSON)
	require.NoError(t, err)
	require.Equal(t, []string{"api"}, doc.Names())
	require.Equal(t, models.AppTypeNode, doc.Apps[0].AppType)
	require.Equal(t, []string{"server.js"}, doc.Apps[0].Arguments)
}

func TestParseInvalidTOML(t *testing.T) {
	_, err := Parse([]byte("ui_port = \n[[apps]"), FormatTOML)
	require.ErrorIs(t, err, models.ErrValidationFailure)
	require.Contains(t, err.Error(), "line 1")
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		data string
		want Format
	}{
		{"anyrun.toml", "{", FormatTOML},
		{"export.json", "", FormatJSON},
		{"config", "  {\"apps\": []}", FormatJSON},
		{"config", "ui_port = 1", FormatTOML},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, DetectFormat(tt.path, []byte(tt.data)), tt.path)
	}
}

func TestLocateAndLoad(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.toml")
	present := filepath.Join(dir, "anyrun.toml")
	require.NoError(t, os.WriteFile(present, []byte(sampleTOML), 0o644))

	path, err := Locate(missing, present)
	require.NoError(t, err)
	require.Equal(t, present, path)

	_, err = Locate(missing)
	require.ErrorIs(t, err, ErrNoConfigFile)

	doc, err := Load(present)
	require.NoError(t, err)
	require.Len(t, doc.Apps, 2)

	_, err = Load(missing)
	require.Error(t, err)
}

func TestCamelize(t *testing.T) {
	require.Equal(t, "uiPort", camelize("ui_port"))
	require.Equal(t, "appPath", camelize("app-path"))
	require.Equal(t, "name", camelize("name"))
	require.Equal(t, "timeoutSeconds", camelize("timeout_seconds"))
	require.Equal(t, "x", camelize("_x"))
}
