package models

import "time"

// DefaultSessionTTL is how long a login stays valid without activity.
const DefaultSessionTTL = 24 * time.Hour

// Session is an authenticated identity held by the client.
type Session struct {
	Username   string    `json:"username"`
	Token      string    `json:"-"`
	FirstLogin bool      `json:"firstLogin"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt.IsZero() || !now.Before(s.ExpiresAt)
}

// Valid reports whether the session carries a token and has not expired.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.Token != "" && !s.Expired(now)
}

// Language is a UI language preference.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageChinese Language = "zh"
)

// Preferences are per-user display settings persisted locally.
type Preferences struct {
	Theme    string   `json:"theme"`
	Language Language `json:"language"`
}

// DefaultPreferences returns the initial preferences.
func DefaultPreferences() Preferences {
	return Preferences{Theme: "default", Language: LanguageEnglish}
}

// ToggleLanguage switches between the supported languages.
func (p Preferences) ToggleLanguage() Preferences {
	if p.Language == LanguageChinese {
		p.Language = LanguageEnglish
	} else {
		p.Language = LanguageChinese
	}
	return p
}
