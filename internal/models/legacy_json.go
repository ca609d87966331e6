package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Supervisor documents have been written by several generations of tooling,
// so decoding accepts PascalCase keys, appPath for the working directory,
// args as a single string, and timeout in place of timeoutSeconds.
// Encoding always uses the canonical field names.

var appConfigAliases = map[string][]string{
	"name":             {"name"},
	"execute":          {"execute", "exec", "command"},
	"workingDirectory": {"workingdirectory", "apppath", "path", "workdir", "cwd"},
	"appType":          {"apptype", "type"},
	"arguments":        {"arguments", "args"},
	"daemon":           {"daemon"},
	"autostart":        {"autostart"},
	"timeoutSeconds":   {"timeoutseconds", "timeout"},
	"port":             {"port"},
}

// UnmarshalJSON decodes canonical and legacy app config shapes.
func (c *AppConfig) UnmarshalJSON(data []byte) error {
	fields, err := foldKeys(data)
	if err != nil {
		return err
	}
	pick := func(canonical string) (json.RawMessage, bool) {
		for _, alias := range appConfigAliases[canonical] {
			if raw, ok := fields[alias]; ok && !isNull(raw) {
				return raw, true
			}
		}
		return nil, false
	}

	var out AppConfig
	if raw, ok := pick("name"); ok {
		if err := json.Unmarshal(raw, &out.Name); err != nil {
			return fmt.Errorf("name: %w", err)
		}
	}
	if raw, ok := pick("execute"); ok {
		if err := json.Unmarshal(raw, &out.Execute); err != nil {
			return fmt.Errorf("execute: %w", err)
		}
	}
	if raw, ok := pick("workingDirectory"); ok {
		if err := json.Unmarshal(raw, &out.WorkingDirectory); err != nil {
			return fmt.Errorf("workingDirectory: %w", err)
		}
	}
	if raw, ok := pick("appType"); ok {
		var label string
		if err := json.Unmarshal(raw, &label); err != nil {
			return fmt.Errorf("appType: %w", err)
		}
		out.AppType = NormalizeAppType(label)
	}
	if raw, ok := pick("arguments"); ok {
		args, err := decodeArguments(raw)
		if err != nil {
			return fmt.Errorf("arguments: %w", err)
		}
		out.Arguments = args
	}
	if raw, ok := pick("daemon"); ok {
		if out.Daemon, err = decodeBool(raw); err != nil {
			return fmt.Errorf("daemon: %w", err)
		}
	}
	if raw, ok := pick("autostart"); ok {
		if out.Autostart, err = decodeBool(raw); err != nil {
			return fmt.Errorf("autostart: %w", err)
		}
	}
	if raw, ok := pick("timeoutSeconds"); ok {
		if out.TimeoutSeconds, err = decodeInt(raw); err != nil {
			return fmt.Errorf("timeoutSeconds: %w", err)
		}
	}
	if raw, ok := pick("port"); ok {
		if out.Port, err = decodeInt(raw); err != nil {
			return fmt.Errorf("port: %w", err)
		}
	}

	out.Normalize()
	*c = out
	return nil
}

// UnmarshalJSON accepts both the canonical status shape and the
// PascalCase one (Name, PID, Port, Status, StartTime).
func (s *RuntimeStatus) UnmarshalJSON(data []byte) error {
	fields, err := foldKeys(data)
	if err != nil {
		return err
	}

	var out RuntimeStatus
	if raw, ok := fields["name"]; ok {
		if err := json.Unmarshal(raw, &out.Name); err != nil {
			return fmt.Errorf("name: %w", err)
		}
	}
	var label string
	if raw, ok := fields["status"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &label); err != nil {
			return fmt.Errorf("status: %w", err)
		}
	}
	out.Status = ParseStatus(label)

	if raw, ok := fields["pid"]; ok && !isNull(raw) {
		n, err := decodeInt(raw)
		if err != nil {
			return fmt.Errorf("pid: %w", err)
		}
		if n > 0 {
			out.PID = IntPtr(n)
		}
	}
	if raw, ok := fields["port"]; ok && !isNull(raw) {
		n, err := decodeInt(raw)
		if err != nil {
			return fmt.Errorf("port: %w", err)
		}
		if n > 0 {
			out.Port = IntPtr(n)
		}
	}
	for _, key := range []string{"startedat", "starttime"} {
		raw, ok := fields[key]
		if !ok || isNull(raw) {
			continue
		}
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if ts, ok := parseStartTime(text); ok {
			out.StartedAt = &ts
		}
		break
	}

	*s = out
	return nil
}

// foldKeys decodes a JSON object with lower-cased keys. An already
// lower-case key wins over other spellings of the same name.
func foldKeys(data []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		key := strings.ToLower(k)
		if _, exists := out[key]; exists && k != key {
			continue
		}
		out[key] = v
	}
	return out, nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func decodeArguments(raw json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, item := range list {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, fmt.Errorf("expected string or string array")
	}
	return SplitArguments(text), nil
}

func decodeInt(raw json.RawMessage) (int, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		return int(f), nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0, fmt.Errorf("expected number")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}
	return strconv.Atoi(text)
}

func decodeBool(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return false, fmt.Errorf("expected boolean")
	}
	if text == "" {
		return false, nil
	}
	return strconv.ParseBool(text)
}

var startTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func parseStartTime(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	for _, layout := range startTimeLayouts {
		if ts, err := time.ParseInLocation(layout, text, time.Local); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
