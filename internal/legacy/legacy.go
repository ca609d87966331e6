// Package legacy reads configuration files written for the standalone
// supervisor (anyrun.toml and its JSON export) into a ConfigDocument.
package legacy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"

	"github.com/tOgg1/anyrun/internal/models"
)

// Format is the encoding of a legacy file.
type Format string

const (
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// DefaultUIPort is what the standalone supervisor listened on when the
// file did not say.
const DefaultUIPort = 5173

// SearchPaths are checked in order by Locate.
var SearchPaths = []string{
	"anyrun.toml",
	"/etc/anyrun/anyrun.toml",
}

// ErrNoConfigFile is returned by Locate when none of the paths exist.
var ErrNoConfigFile = errors.New("no anyrun.toml found")

// Locate returns the first existing file from paths, or SearchPaths
// when paths is empty.
func Locate(paths ...string) (string, error) {
	if len(paths) == 0 {
		paths = SearchPaths
	}
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w (looked in %s)", ErrNoConfigFile, strings.Join(paths, ", "))
}

// Load reads and parses path, picking the format from its extension.
func Load(path string) (*models.ConfigDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := Parse(data, DetectFormat(path, data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// DetectFormat guesses the format from the file name, then the content.
func DetectFormat(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".toml":
		return FormatTOML
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatTOML
}

// Parse decodes data. Snake_case keys (ui_port, app_path, app_type) are
// accepted alongside camelCase, and tables this client does not model,
// such as [user], are kept on the document.
func Parse(data []byte, format Format) (*models.ConfigDocument, error) {
	var raw map[string]any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, &models.Error{Kind: models.KindValidationFailure, Op: "import", Message: "invalid JSON", Err: err}
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, tomlError(err)
		}
	default:
		return nil, fmt.Errorf("unknown legacy format %q", format)
	}

	normalized, err := json.Marshal(camelizeKeys(raw))
	if err != nil {
		return nil, fmt.Errorf("re-encode legacy document: %w", err)
	}

	doc := &models.ConfigDocument{}
	if err := json.Unmarshal(normalized, doc); err != nil {
		return nil, &models.Error{Kind: models.KindValidationFailure, Op: "import", Message: "unexpected document shape", Err: err}
	}
	if doc.UIPort == 0 {
		doc.UIPort = DefaultUIPort
	}
	// The standalone parser skipped [[apps]] blocks without a name.
	apps := doc.Apps[:0]
	for _, app := range doc.Apps {
		if app.Name != "" {
			apps = append(apps, app)
		}
	}
	doc.Apps = apps
	return doc, nil
}

func tomlError(err error) error {
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		row, col := derr.Position()
		return &models.Error{
			Kind:    models.KindValidationFailure,
			Op:      "import",
			Message: fmt.Sprintf("invalid TOML at line %d, column %d: %s", row, col, derr.Error()),
			Err:     err,
		}
	}
	return &models.Error{Kind: models.KindValidationFailure, Op: "import", Message: "invalid TOML", Err: err}
}

// camelizeKeys rewrites snake_case and kebab-case keys at every level.
func camelizeKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			key := camelize(k)
			if _, exists := out[key]; exists && key != k {
				continue
			}
			out[key] = camelizeKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = camelizeKeys(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = camelizeKeys(item)
		}
		return out
	default:
		return v
	}
}

func camelize(key string) string {
	if !strings.ContainsAny(key, "_-") {
		return key
	}
	var b strings.Builder
	upper := false
	for _, r := range key {
		if r == '_' || r == '-' {
			upper = b.Len() > 0
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
