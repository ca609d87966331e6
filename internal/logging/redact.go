package logging

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// Field names whose values never reach the log.
var sensitiveFields = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"authorization",
	"auth",
	"credential",
	"cookie",
}

var secretPatterns = []*regexp.Regexp{
	// Authorization header values.
	regexp.MustCompile(`(?i)bearer\s+[^\s"',]+`),

	// JSON bodies carrying credentials: "password":"...", "oldPassword": "...".
	regexp.MustCompile(`(?i)"(\w*(?:password|token|secret))"\s*:\s*"[^"]*"`),

	// key=value pairs in query strings and form bodies.
	regexp.MustCompile(`(?i)\b(token|password|secret)=[^&\s]+`),
}

// RedactedValue is the replacement for sensitive values.
const RedactedValue = "[REDACTED]"

// Redact replaces sensitive information in a string.
func Redact(s string) string {
	result := secretPatterns[0].ReplaceAllString(s, RedactedValue)
	result = secretPatterns[1].ReplaceAllString(result, `"$1":"`+RedactedValue+`"`)
	result = secretPatterns[2].ReplaceAllString(result, "$1="+RedactedValue)
	return result
}

// RedactURL hides credential-bearing query parameters.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return Redact(raw)
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	q := u.Query()
	changed := false
	for key := range q {
		if IsSensitiveField(key) {
			q.Set(key, RedactedValue)
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// RedactHeaders returns a copy of h safe to log.
func RedactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if IsSensitiveField(k) {
			out[k] = RedactedValue
			continue
		}
		out[k] = Redact(strings.Join(v, ", "))
	}
	return out
}

// RedactMap redacts sensitive fields in a map.
func RedactMap(m map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(m))

	for k, v := range m {
		if IsSensitiveField(k) {
			result[k] = RedactedValue
		} else if nested, ok := v.(map[string]interface{}); ok {
			result[k] = RedactMap(nested)
		} else if str, ok := v.(string); ok {
			result[k] = Redact(str)
		} else {
			result[k] = v
		}
	}

	return result
}

// IsSensitiveField checks if a field name is considered sensitive.
func IsSensitiveField(name string) bool {
	lowerName := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lowerName, field) {
			return true
		}
	}
	return false
}
