// Package console assembles the control surface: supervisor client,
// session guard, snapshot store, poller, dispatcher and editor, backed
// by the local cache. The CLI and the TUI both drive a Console.
package console

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tOgg1/anyrun/internal/config"
	"github.com/tOgg1/anyrun/internal/db"
	"github.com/tOgg1/anyrun/internal/dispatch"
	"github.com/tOgg1/anyrun/internal/editor"
	"github.com/tOgg1/anyrun/internal/events"
	"github.com/tOgg1/anyrun/internal/logging"
	"github.com/tOgg1/anyrun/internal/metrics"
	"github.com/tOgg1/anyrun/internal/models"
	"github.com/tOgg1/anyrun/internal/session"
	"github.com/tOgg1/anyrun/internal/state"
	"github.com/tOgg1/anyrun/internal/supervisor"
	"github.com/tOgg1/anyrun/internal/view"
)

// Options adjusts how Open builds a Console.
type Options struct {
	// Metrics is shared by every component. Nil disables metrics.
	Metrics *metrics.Metrics

	// Database overrides the cache configured in Config.
	Database *db.DB
}

// Console owns every long-lived component for one supervisor.
type Console struct {
	Config      *config.Config
	Client      *supervisor.Client
	Store       *state.Store
	Poller      *state.Poller
	Events      *events.Publisher
	Dispatcher  *dispatch.Dispatcher
	Editor      *editor.Editor
	Guard       *session.Guard
	Preferences *session.Preferences
	Metrics     *metrics.Metrics

	database  *db.DB
	ownsDB    bool
	snapshots *db.SnapshotRepository
	cacheSink *snapshotSink
	logger    zerolog.Logger

	unsubscribe func()
	closeOnce   sync.Once
}

// Open builds a Console from cfg. It restores the cached session and the
// last application snapshot but does not contact the supervisor.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Console, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	c := &Console{
		Config:  cfg,
		Metrics: opts.Metrics,
		logger:  logging.Component("console"),
	}

	c.database = opts.Database
	if c.database == nil && cfg.Cache.Enabled {
		database, err := db.Open(db.Config{Path: cfg.CachePath(), BusyTimeoutMs: cfg.Cache.BusyTimeoutMs})
		if err != nil {
			// The cache is never authoritative; run without it.
			c.logger.Warn().Err(err).Str("path", cfg.CachePath()).Msg("cache unavailable")
		} else {
			c.database = database
			c.ownsDB = true
		}
	}

	c.Events = events.NewPublisher(events.WithMetrics(c.Metrics))
	c.Client = supervisor.New(supervisor.Options{
		BaseURL:   cfg.Supervisor.URL,
		Timeout:   cfg.Supervisor.Timeout,
		RateLimit: cfg.Supervisor.RateLimit,
		RateBurst: cfg.Supervisor.RateBurst,
		UserAgent: cfg.Supervisor.UserAgent,
		Metrics:   c.Metrics,
	})

	var sessions session.Store
	var prefStore session.PreferenceStore
	if c.database != nil {
		sessions = db.NewSessionRepository(c.database)
		prefStore = db.NewPreferenceRepository(c.database)
		c.snapshots = db.NewSnapshotRepository(c.database)
	}

	c.Guard = session.NewGuard(c.Client, sessions, cfg.Supervisor.URL, cfg.Session.TTL)
	c.Client.SetTokenSource(c.Guard)
	c.Client.OnAuthFailure(func(err error) {
		c.Guard.Invalidate(err.Error())
	})
	c.Guard.OnInvalidate(func(reason string) {
		c.Events.Notify(models.Notification{
			Level:   models.LevelError,
			Kind:    models.KindAuthFailure,
			Op:      "session",
			Message: "session ended, log in again",
		})
		// Invalidate can fire from inside a poll tick; stopping waits
		// for that tick, so it must not block here.
		go func() {
			if err := c.Poller.Stop(); err != nil && !errors.Is(err, state.ErrPollerNotRunning) {
				c.logger.Warn().Err(err).Msg("failed to stop poller")
			}
		}()
	})

	c.Preferences = session.NewPreferences(prefStore, models.Preferences{
		Theme:    cfg.TUI.Theme,
		Language: models.Language(cfg.TUI.Language),
	})

	c.Store = state.NewStore()
	c.Poller = state.NewPoller(state.PollerConfig{Interval: cfg.Poller.Interval}, c.Client, c.Store, c.Metrics)
	c.Dispatcher = dispatch.New(dispatch.Config{
		ConfirmDelay:   cfg.Poller.ConfirmDelay,
		PendingTimeout: cfg.Poller.PendingTimeout,
	}, c.Client, c.Store, c.Poller, c.Events, c.Metrics)
	c.Editor = editor.New(c.Client, c.Dispatcher,
		editor.WithScheduler(c.Poller, cfg.Poller.ConfirmDelay),
		editor.WithNotifier(c.Events),
	)
	c.Dispatcher.SetRemover(c.Editor)

	if err := c.restore(ctx); err != nil {
		c.Close()
		return nil, err
	}

	if c.snapshots != nil {
		c.cacheSink = newSnapshotSink(c.snapshots, cfg.Supervisor.URL)
		c.unsubscribe = c.Store.Subscribe(c.cacheSink.offer)
	}
	return c, nil
}

func (c *Console) restore(ctx context.Context) error {
	if err := c.Guard.Init(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("failed to restore session")
	}
	if err := c.Preferences.Load(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("failed to load preferences")
	}
	if c.snapshots == nil {
		return nil
	}

	cached, err := c.snapshots.Load(ctx, c.Config.Supervisor.URL)
	switch {
	case errors.Is(err, db.ErrSnapshotNotFound):
		return nil
	case err != nil:
		c.logger.Warn().Err(err).Msg("failed to read cached snapshot")
		return nil
	}
	if c.Store.Seed(cached.Views) {
		c.logger.Debug().
			Int("apps", len(cached.Views)).
			Time("saved_at", cached.SavedAt).
			Msg("seeded from cache")
	}
	return nil
}

// Start begins polling. It requires a live session.
func (c *Console) Start(ctx context.Context) error {
	if err := c.Guard.Require(); err != nil {
		return err
	}
	if err := c.Poller.Start(ctx); err != nil && !errors.Is(err, state.ErrPollerAlreadyRunning) {
		return err
	}
	return nil
}

// Refresh runs one poll now and returns its error.
func (c *Console) Refresh(ctx context.Context) error {
	if err := c.Guard.Require(); err != nil {
		return err
	}
	return c.Poller.PollNow(ctx)
}

// Snapshot returns the current application collection.
func (c *Console) Snapshot() state.Snapshot {
	return c.Store.Snapshot()
}

// Project applies st to the current snapshot.
func (c *Console) Project(st view.ViewState) view.Projection {
	return view.Project(c.Store.Snapshot().Views, st)
}

// Find returns the named app from the current snapshot.
func (c *Console) Find(name string) (models.AppView, error) {
	v, ok := c.Store.Snapshot().Find(name)
	if !ok {
		return models.AppView{}, &models.Error{Kind: models.KindNotFound, App: name,
			Message: fmt.Sprintf("no application named %q", name)}
	}
	return v, nil
}

// Close stops polling, waits for outstanding commands and flushes the cache.
func (c *Console) Close() {
	c.closeOnce.Do(func() {
		if c.Poller != nil {
			if err := c.Poller.Stop(); err != nil && !errors.Is(err, state.ErrPollerNotRunning) {
				c.logger.Warn().Err(err).Msg("failed to stop poller")
			}
		}
		if c.Dispatcher != nil {
			c.Dispatcher.Close()
		}
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		if c.cacheSink != nil {
			c.cacheSink.close()
		}
		if c.Events != nil {
			c.Events.Close()
		}
		if c.ownsDB && c.database != nil {
			if err := c.database.Close(); err != nil {
				c.logger.Warn().Err(err).Msg("failed to close cache")
			}
		}
	})
}
