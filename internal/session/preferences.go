package session

import (
	"context"
	"sync"

	"github.com/tOgg1/anyrun/internal/models"
)

// PreferenceStore persists preferences.
type PreferenceStore interface {
	Load(ctx context.Context) (models.Preferences, error)
	Save(ctx context.Context, prefs models.Preferences) error
}

// Preferences holds theme and language. Changes are saved immediately
// when a store is configured.
type Preferences struct {
	store PreferenceStore

	mu      sync.RWMutex
	current models.Preferences
}

// NewPreferences starts from initial; store may be nil.
func NewPreferences(store PreferenceStore, initial models.Preferences) *Preferences {
	defaults := models.DefaultPreferences()
	if initial.Theme == "" {
		initial.Theme = defaults.Theme
	}
	if initial.Language == "" {
		initial.Language = defaults.Language
	}
	return &Preferences{store: store, current: initial}
}

// Load replaces the in-memory preferences with the persisted ones.
func (p *Preferences) Load(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	prefs, err := p.store.Load(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.current = prefs
	p.mu.Unlock()
	return nil
}

// Get returns the current preferences.
func (p *Preferences) Get() models.Preferences {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// SetTheme selects a theme by name.
func (p *Preferences) SetTheme(ctx context.Context, theme string) (models.Preferences, error) {
	return p.update(ctx, func(prefs models.Preferences) models.Preferences {
		prefs.Theme = theme
		return prefs
	})
}

// CycleTheme advances to the theme after the current one in themes.
func (p *Preferences) CycleTheme(ctx context.Context, themes []string) (models.Preferences, error) {
	return p.update(ctx, func(prefs models.Preferences) models.Preferences {
		if len(themes) == 0 {
			return prefs
		}
		next := themes[0]
		for i, name := range themes {
			if name == prefs.Theme {
				next = themes[(i+1)%len(themes)]
				break
			}
		}
		prefs.Theme = next
		return prefs
	})
}

// ToggleLanguage switches between English and Chinese.
func (p *Preferences) ToggleLanguage(ctx context.Context) (models.Preferences, error) {
	return p.update(ctx, models.Preferences.ToggleLanguage)
}

func (p *Preferences) update(ctx context.Context, fn func(models.Preferences) models.Preferences) (models.Preferences, error) {
	p.mu.Lock()
	next := fn(p.current)
	p.current = next
	p.mu.Unlock()

	if p.store == nil {
		return next, nil
	}
	return next, p.store.Save(ctx, next)
}
