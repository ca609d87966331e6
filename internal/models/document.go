package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ConfigDocument is the full configuration held by the supervisor.
// Saves always send the whole document back.
type ConfigDocument struct {
	UIPort int         `json:"uiPort,omitempty"`
	Apps   []AppConfig `json:"apps"`

	// Revision is the optimistic-lock token returned by the supervisor.
	// Zero means the supervisor does not track revisions.
	Revision int64 `json:"revision,omitempty"`

	// extra holds top-level fields this client does not interpret
	// (user credentials, future settings) so saves do not drop them.
	extra map[string]json.RawMessage
}

var documentKeys = map[string]bool{
	"uiport":   true,
	"apps":     true,
	"revision": true,
}

// UnmarshalJSON decodes a document, keeping unknown fields.
func (d *ConfigDocument) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	fields, err := foldKeys(data)
	if err != nil {
		return err
	}

	var out ConfigDocument
	if v, ok := fields["apps"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &out.Apps); err != nil {
			return fmt.Errorf("apps: %w", err)
		}
	}
	if v, ok := fields["uiport"]; ok && !isNull(v) {
		n, err := decodeInt(v)
		if err != nil {
			return fmt.Errorf("uiPort: %w", err)
		}
		out.UIPort = n
	}
	if v, ok := fields["revision"]; ok && !isNull(v) {
		n, err := decodeInt(v)
		if err != nil {
			return fmt.Errorf("revision: %w", err)
		}
		out.Revision = int64(n)
	}
	if out.Apps == nil {
		out.Apps = []AppConfig{}
	}
	for k, v := range raw {
		if documentKeys[strings.ToLower(k)] {
			continue
		}
		if out.extra == nil {
			out.extra = make(map[string]json.RawMessage)
		}
		out.extra[k] = v
	}

	*d = out
	return nil
}

// MarshalJSON emits the canonical document plus preserved fields.
func (d ConfigDocument) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.extra)+3)
	for k, v := range d.extra {
		out[k] = v
	}
	apps := d.Apps
	if apps == nil {
		apps = []AppConfig{}
	}
	out["apps"] = apps
	if d.UIPort != 0 {
		out["uiPort"] = d.UIPort
	}
	if d.Revision != 0 {
		out["revision"] = d.Revision
	}
	return json.Marshal(out)
}

// ExtraKeys lists preserved top-level keys in sorted order.
func (d *ConfigDocument) ExtraKeys() []string {
	keys := make([]string, 0, len(d.extra))
	for k := range d.extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Index returns the position of the named app, or -1.
func (d *ConfigDocument) Index(name string) int {
	for i, app := range d.Apps {
		if app.Name == name {
			return i
		}
	}
	return -1
}

// Find returns the named app.
func (d *ConfigDocument) Find(name string) (AppConfig, bool) {
	if i := d.Index(name); i >= 0 {
		return d.Apps[i], true
	}
	return AppConfig{}, false
}

// Names lists app names in document order.
func (d *ConfigDocument) Names() []string {
	names := make([]string, len(d.Apps))
	for i, app := range d.Apps {
		names[i] = app.Name
	}
	return names
}

// Clone returns a deep copy, including preserved fields.
func (d *ConfigDocument) Clone() *ConfigDocument {
	out := &ConfigDocument{UIPort: d.UIPort, Revision: d.Revision}
	out.Apps = make([]AppConfig, len(d.Apps))
	for i, app := range d.Apps {
		out.Apps[i] = app.Clone()
	}
	if d.extra != nil {
		out.extra = make(map[string]json.RawMessage, len(d.extra))
		for k, v := range d.extra {
			out.extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}
