package apptui

import (
	"context"
	"time"

	"github.com/tOgg1/anyrun/internal/console"
	"github.com/tOgg1/anyrun/internal/dispatch"
	"github.com/tOgg1/anyrun/internal/editor"
	"github.com/tOgg1/anyrun/internal/events"
	"github.com/tOgg1/anyrun/internal/models"
	"github.com/tOgg1/anyrun/internal/state"
)

// Backend is what the screen drives. *console.Console satisfies it
// through NewBackend.
type Backend interface {
	Snapshot() state.Snapshot
	LastPoll() (time.Time, error)
	Session() (models.Session, bool)
	Preferences() models.Preferences
	IsPending(name string) bool

	Login(ctx context.Context, username, password string) (models.Session, error)
	Logout(ctx context.Context) error
	ChangePassword(ctx context.Context, oldPassword, newPassword, confirm string) error
	StartPolling(ctx context.Context) error
	Refresh(ctx context.Context) error

	Do(ctx context.Context, name string, kind models.ActionKind) error
	Batch(ctx context.Context, kind models.ActionKind, names []string) dispatch.BatchResult
	DeleteSelected(ctx context.Context, names []string, stopFirst bool) dispatch.BatchResult
	Add(ctx context.Context, cfg models.AppConfig, opts editor.AddOptions) error
	Edit(ctx context.Context, name string, cfg models.AppConfig, opts editor.EditOptions) error
	Remove(ctx context.Context, name string, opts editor.RemoveOptions) error

	CycleTheme(ctx context.Context) (models.Preferences, error)
	ToggleLanguage(ctx context.Context) (models.Preferences, error)

	// Watch delivers snapshot changes, notifications and session ends to
	// the given callbacks until the returned cancel is called.
	Watch(onSnapshot func(state.Snapshot), onNotify func(models.Notification), onSessionEnd func(string)) (cancel func(), err error)
}

type consoleBackend struct {
	c *console.Console
}

// NewBackend adapts a Console.
func NewBackend(c *console.Console) Backend {
	return &consoleBackend{c: c}
}

func (b *consoleBackend) Snapshot() state.Snapshot { return b.c.Snapshot() }

func (b *consoleBackend) LastPoll() (time.Time, error) {
	return b.c.Poller.LastSuccess(), b.c.Poller.LastError()
}

func (b *consoleBackend) Session() (models.Session, bool) { return b.c.Guard.Current() }

func (b *consoleBackend) Preferences() models.Preferences { return b.c.Preferences.Get() }

func (b *consoleBackend) IsPending(name string) bool { return b.c.Dispatcher.IsPending(name) }

func (b *consoleBackend) Login(ctx context.Context, username, password string) (models.Session, error) {
	return b.c.Guard.Login(ctx, username, password)
}

func (b *consoleBackend) Logout(ctx context.Context) error {
	_ = b.c.Poller.Stop()
	return b.c.Guard.Logout(ctx)
}

func (b *consoleBackend) ChangePassword(ctx context.Context, oldPassword, newPassword, confirm string) error {
	return b.c.Guard.ChangePassword(ctx, oldPassword, newPassword, confirm)
}

func (b *consoleBackend) StartPolling(ctx context.Context) error { return b.c.Start(ctx) }

func (b *consoleBackend) Refresh(ctx context.Context) error { return b.c.Refresh(ctx) }

func (b *consoleBackend) Do(ctx context.Context, name string, kind models.ActionKind) error {
	return b.c.Dispatcher.Do(ctx, name, kind)
}

func (b *consoleBackend) Batch(ctx context.Context, kind models.ActionKind, names []string) dispatch.BatchResult {
	return b.c.Dispatcher.Batch(ctx, kind, names)
}

func (b *consoleBackend) DeleteSelected(ctx context.Context, names []string, stopFirst bool) dispatch.BatchResult {
	return b.c.Dispatcher.DeleteSelected(ctx, names, stopFirst)
}

func (b *consoleBackend) Add(ctx context.Context, cfg models.AppConfig, opts editor.AddOptions) error {
	return b.c.Editor.Add(ctx, cfg, opts)
}

func (b *consoleBackend) Edit(ctx context.Context, name string, cfg models.AppConfig, opts editor.EditOptions) error {
	return b.c.Editor.Edit(ctx, name, cfg, opts)
}

func (b *consoleBackend) Remove(ctx context.Context, name string, opts editor.RemoveOptions) error {
	return b.c.Editor.Remove(ctx, name, opts)
}

func (b *consoleBackend) CycleTheme(ctx context.Context) (models.Preferences, error) {
	return b.c.Preferences.CycleTheme(ctx, ThemeNames)
}

func (b *consoleBackend) ToggleLanguage(ctx context.Context) (models.Preferences, error) {
	return b.c.Preferences.ToggleLanguage(ctx)
}

func (b *consoleBackend) Watch(onSnapshot func(state.Snapshot), onNotify func(models.Notification), onSessionEnd func(string)) (func(), error) {
	stopSnapshots := b.c.Store.Subscribe(onSnapshot)
	id, err := b.c.Events.Subscribe(events.Filter{}, onNotify)
	if err != nil {
		stopSnapshots()
		return nil, err
	}
	b.c.Guard.OnInvalidate(onSessionEnd)
	return func() {
		stopSnapshots()
		_ = b.c.Events.Unsubscribe(id)
	}, nil
}
