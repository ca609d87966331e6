// Package editor commits add, edit and remove operations against the
// supervisor's configuration document.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tOgg1/anyrun/internal/logging"
	"github.com/tOgg1/anyrun/internal/models"
)

// DefaultConfirmDelay is the delay before the poll that follows a write.
const DefaultConfirmDelay = 500 * time.Millisecond

// ConfigStore reads and writes the whole configuration document.
type ConfigStore interface {
	GetConfig(ctx context.Context) (*models.ConfigDocument, error)
	SaveConfig(ctx context.Context, doc *models.ConfigDocument) error
}

// Dispatcher runs lifecycle commands around edits.
type Dispatcher interface {
	Do(ctx context.Context, name string, kind models.ActionKind) error
}

// Scheduler arranges an out-of-band poll.
type Scheduler interface {
	PollAfter(delay time.Duration)
}

// Notifier reports outcomes to the operator.
type Notifier interface {
	Info(op, app, message string) models.Notification
	Error(op, app string, err error) models.Notification
}

// AddOptions controls Add.
type AddOptions struct {
	StartAfter bool
}

// EditOptions controls Edit.
type EditOptions struct {
	RestartAfter bool
}

// RemoveOptions controls Remove.
type RemoveOptions struct {
	// StopFirst stops the app before removing it. A failed stop is
	// reported but does not block the removal.
	StopFirst bool

	// MissingOK makes removing an absent app a quiet no-op.
	MissingOK bool
}

// errNoChange aborts a commit that has nothing to write.
var errNoChange = errors.New("no change")

// Editor performs read-modify-write cycles on the configuration. Each
// cycle starts from a fresh read and saves with the revision it read, so
// a concurrent writer surfaces as a Conflict instead of being clobbered.
type Editor struct {
	store        ConfigStore
	dispatcher   Dispatcher
	scheduler    Scheduler
	notifier     Notifier
	confirmDelay time.Duration
	logger       zerolog.Logger

	// mu serializes this process's writes.
	mu sync.Mutex
}

// Option configures an Editor.
type Option func(*Editor)

// WithScheduler triggers a poll after every successful write.
func WithScheduler(s Scheduler, delay time.Duration) Option {
	return func(e *Editor) {
		e.scheduler = s
		if delay > 0 {
			e.confirmDelay = delay
		}
	}
}

// WithNotifier reports results to the operator.
func WithNotifier(n Notifier) Option {
	return func(e *Editor) {
		e.notifier = n
	}
}

// New creates an Editor. dispatcher may be nil when no pre or post
// actions are used.
func New(store ConfigStore, dispatcher Dispatcher, opts ...Option) *Editor {
	e := &Editor{
		store:        store,
		dispatcher:   dispatcher,
		confirmDelay: DefaultConfirmDelay,
		logger:       logging.Component("editor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Add appends cfg to the configuration.
func (e *Editor) Add(ctx context.Context, cfg models.AppConfig, opts AddOptions) error {
	cfg = cfg.Clone()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return e.fail("add", cfg.Name, err)
	}

	err := e.commit(ctx, "add", cfg.Name, func(doc *models.ConfigDocument) error {
		if doc.Index(cfg.Name) >= 0 {
			return &models.Error{Kind: models.KindDuplicateName, Op: "add", App: cfg.Name,
				Message: fmt.Sprintf("an application named %q already exists", cfg.Name)}
		}
		doc.Apps = append(doc.Apps, cfg)
		return nil
	})
	if err != nil {
		return err
	}

	e.succeed("add", cfg.Name, "added "+cfg.Name)
	if opts.StartAfter {
		e.after(ctx, cfg.Name, models.ActionStart)
	}
	return nil
}

// Edit replaces the app named originalName with cfg. Renaming is not
// supported.
func (e *Editor) Edit(ctx context.Context, originalName string, cfg models.AppConfig, opts EditOptions) error {
	cfg = cfg.Clone()
	cfg.Normalize()
	if cfg.Name != "" && cfg.Name != originalName {
		return e.fail("edit", originalName, &models.Error{Kind: models.KindValidationFailure, Op: "edit",
			App: originalName, Err: models.ErrRenameNotAllowed})
	}
	if err := cfg.Validate(); err != nil {
		return e.fail("edit", originalName, err)
	}

	err := e.commit(ctx, "edit", originalName, func(doc *models.ConfigDocument) error {
		i := doc.Index(originalName)
		if i < 0 {
			return notFound("edit", originalName)
		}
		doc.Apps[i] = cfg
		return nil
	})
	if err != nil {
		return err
	}

	e.succeed("edit", originalName, "updated "+originalName)
	if opts.RestartAfter {
		e.after(ctx, originalName, models.ActionRestart)
	}
	return nil
}

// Remove deletes the named app from the configuration.
func (e *Editor) Remove(ctx context.Context, name string, opts RemoveOptions) error {
	if opts.StopFirst {
		doc, err := e.store.GetConfig(ctx)
		if err != nil {
			return e.fail("remove", name, err)
		}
		if doc.Index(name) < 0 {
			if opts.MissingOK {
				return nil
			}
			return e.fail("remove", name, notFound("remove", name))
		}
		e.after(ctx, name, models.ActionStop)
	}

	err := e.commit(ctx, "remove", name, func(doc *models.ConfigDocument) error {
		i := doc.Index(name)
		if i < 0 {
			if opts.MissingOK {
				return errNoChange
			}
			return notFound("remove", name)
		}
		doc.Apps = append(doc.Apps[:i], doc.Apps[i+1:]...)
		return nil
	})
	if errors.Is(err, errNoChange) {
		return nil
	}
	if err != nil {
		return err
	}

	e.succeed("remove", name, "removed "+name)
	return nil
}

// RemoveApp adapts Remove for batch deletion, where an app that is
// already gone counts as removed.
func (e *Editor) RemoveApp(ctx context.Context, name string, stopFirst bool) error {
	return e.Remove(ctx, name, RemoveOptions{StopFirst: stopFirst, MissingOK: true})
}

// commit reads the freshest document, applies mutate and saves it.
func (e *Editor) commit(ctx context.Context, op, app string, mutate func(doc *models.ConfigDocument) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, err := e.store.GetConfig(ctx)
	if err != nil {
		return e.fail(op, app, err)
	}
	doc = doc.Clone()
	if err := mutate(doc); err != nil {
		if errors.Is(err, errNoChange) {
			return err
		}
		return e.fail(op, app, err)
	}

	logger := logging.WithApp(e.logger, app)
	logger.Debug().
		Str("op", op).
		Int64("revision", doc.Revision).
		Int("apps", len(doc.Apps)).
		Msg("saving config")

	if err := e.store.SaveConfig(ctx, doc); err != nil {
		return e.fail(op, app, err)
	}
	return nil
}

// after runs a best-effort lifecycle command. The dispatcher reports its
// own failures.
func (e *Editor) after(ctx context.Context, name string, kind models.ActionKind) {
	if e.dispatcher == nil {
		return
	}
	if err := e.dispatcher.Do(ctx, name, kind); err != nil {
		logger := logging.WithApp(e.logger, name)
		logger.Warn().Err(err).Str("kind", string(kind)).Msg("lifecycle step failed")
	}
}

func (e *Editor) fail(op, app string, err error) error {
	logger := logging.WithApp(e.logger, app)
	logger.Warn().Err(err).Str("op", op).Msg("config change failed")
	if e.notifier != nil {
		e.notifier.Error(op, app, err)
	}
	return err
}

func (e *Editor) succeed(op, app, message string) {
	logger := logging.WithApp(e.logger, app)
	logger.Info().Str("op", op).Msg(message)
	if e.notifier != nil {
		e.notifier.Info(op, app, message)
	}
	if e.scheduler != nil {
		e.scheduler.PollAfter(e.confirmDelay)
	}
}

func notFound(op, name string) error {
	return &models.Error{Kind: models.KindNotFound, Op: op, App: name,
		Message: fmt.Sprintf("no application named %q", name)}
}
