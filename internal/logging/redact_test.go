package logging

import (
	"net/http"
	"strings"
	"testing"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Bearer token",
			input:    "Authorization: Bearer anyrun-token",
			expected: "Authorization: [REDACTED]",
		},
		{
			name:     "Login body",
			input:    `{"username":"admin","password":"hunter2"}`,
			expected: `{"username":"admin","password":"[REDACTED]"}`,
		},
		{
			name:     "Change password body",
			input:    `{"oldPassword": "a", "newPassword":"b"}`,
			expected: `{"oldPassword":"[REDACTED]", "newPassword":"[REDACTED]"}`,
		},
		{
			name:     "Query token",
			input:    "GET /api/apps?token=abc123&x=1",
			expected: "GET /api/apps?token=[REDACTED]&x=1",
		},
		{
			name:     "No sensitive data",
			input:    "start api: connection refused",
			expected: "start api: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Redact(tt.input)
			if result != tt.expected {
				t.Errorf("Redact() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestRedactURL(t *testing.T) {
	got := RedactURL("http://admin:pw@localhost:5173/api/start?name=api&token=abc")
	if strings.Contains(got, "pw@") {
		t.Errorf("password should be removed from userinfo: %s", got)
	}
	if strings.Contains(got, "abc") {
		t.Errorf("token should be redacted: %s", got)
	}
	if !strings.Contains(got, "name=api") {
		t.Errorf("name should be kept: %s", got)
	}
}

func TestRedactHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer anyrun-token")
	h.Set("Content-Type", "application/json")

	got := RedactHeaders(h)
	if got["Authorization"] != RedactedValue {
		t.Errorf("Authorization should be redacted: %q", got["Authorization"])
	}
	if got["Content-Type"] != "application/json" {
		t.Errorf("Content-Type should be kept: %q", got["Content-Type"])
	}
}

func TestRedactMap(t *testing.T) {
	in := map[string]interface{}{
		"username": "admin",
		"password": "hunter2",
		"nested": map[string]interface{}{
			"token": "abc",
			"note":  "Bearer xyz",
		},
		"port": 8080,
	}

	out := RedactMap(in)
	if out["username"] != "admin" {
		t.Errorf("username should be kept")
	}
	if out["password"] != RedactedValue {
		t.Errorf("password should be redacted")
	}
	nested := out["nested"].(map[string]interface{})
	if nested["token"] != RedactedValue {
		t.Errorf("nested token should be redacted")
	}
	if nested["note"] != RedactedValue {
		t.Errorf("bearer value should be redacted, got %v", nested["note"])
	}
	if out["port"] != 8080 {
		t.Errorf("port should be kept")
	}
}

func TestIsSensitiveField(t *testing.T) {
	tests := []struct {
		name      string
		sensitive bool
	}{
		{"password", true},
		{"oldPassword", true},
		{"Authorization", true},
		{"X-Auth-Token", true},
		{"name", false},
		{"workingDirectory", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSensitiveField(tt.name); got != tt.sensitive {
				t.Errorf("IsSensitiveField(%q) = %v, want %v", tt.name, got, tt.sensitive)
			}
		})
	}
}
