// Package session gates the control surface behind an authenticated
// session and holds the operator's display preferences.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tOgg1/anyrun/internal/db"
	"github.com/tOgg1/anyrun/internal/logging"
	"github.com/tOgg1/anyrun/internal/models"
	"github.com/tOgg1/anyrun/internal/supervisor"
)

// Authenticator is the external auth service.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (supervisor.LoginResult, error)
	ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error
}

// Store persists the session between runs.
type Store interface {
	Save(ctx context.Context, server string, session models.Session) error
	Load(ctx context.Context, server string) (models.Session, error)
	Delete(ctx context.Context, server string) error
}

// Guard owns the current session. Init restores a persisted session,
// Logout and Invalidate tear it down and clear the cache.
type Guard struct {
	auth   Authenticator
	store  Store
	server string
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	current   *models.Session
	listeners []func(reason string)
}

// NewGuard creates a Guard for the supervisor at server. store may be nil
// when the cache is disabled.
func NewGuard(auth Authenticator, store Store, server string, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = models.DefaultSessionTTL
	}
	return &Guard{
		auth:   auth,
		store:  store,
		server: server,
		ttl:    ttl,
		logger: logging.Component("session"),
		now:    time.Now,
	}
}

// Init restores the persisted session, discarding it when expired.
func (g *Guard) Init(ctx context.Context) error {
	if g.store == nil {
		return nil
	}

	sess, err := g.store.Load(ctx, g.server)
	if errors.Is(err, db.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if !sess.Valid(g.now()) {
		g.logger.Info().Str("username", sess.Username).Msg("discarding expired session")
		return g.store.Delete(ctx, g.server)
	}

	g.mu.Lock()
	g.current = &sess
	g.mu.Unlock()
	g.logger.Debug().Str("username", sess.Username).Time("expires_at", sess.ExpiresAt).Msg("session restored")
	return nil
}

// Login authenticates and starts a new session.
func (g *Guard) Login(ctx context.Context, username, password string) (models.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.Session{}, &models.Error{Kind: models.KindValidationFailure, Op: "login",
			Message: "username and password are required"}
	}

	result, err := g.auth.Login(ctx, username, password)
	if err != nil {
		g.logger.Warn().Err(err).Str("username", username).Msg("login failed")
		return models.Session{}, err
	}

	now := g.now()
	sess := models.Session{
		Username:   username,
		Token:      result.Token,
		FirstLogin: result.FirstLogin,
		CreatedAt:  now,
		ExpiresAt:  now.Add(g.ttl),
	}

	g.mu.Lock()
	g.current = &sess
	g.mu.Unlock()

	g.persist(ctx, sess)
	g.logger.Info().Str("username", username).Bool("first_login", sess.FirstLogin).Msg("logged in")
	return sess, nil
}

// Logout ends the session and clears the cached copy.
func (g *Guard) Logout(ctx context.Context) error {
	g.mu.Lock()
	had := g.current != nil
	g.current = nil
	g.mu.Unlock()

	if had {
		g.logger.Info().Msg("logged out")
	}
	if g.store == nil {
		return nil
	}
	return g.store.Delete(ctx, g.server)
}

// ChangePassword updates the password of the logged-in user. A mismatch
// between newPassword and confirm, or a wrong old password, is a
// PasswordMismatch and leaves the session intact.
func (g *Guard) ChangePassword(ctx context.Context, oldPassword, newPassword, confirm string) error {
	if newPassword == "" {
		return &models.Error{Kind: models.KindValidationFailure, Op: "change password", Message: "new password is required"}
	}
	if newPassword != confirm {
		return &models.Error{Kind: models.KindPasswordMismatch, Op: "change password", Message: "new passwords do not match"}
	}

	sess, err := g.require()
	if err != nil {
		return err
	}

	if err := g.auth.ChangePassword(ctx, sess.Username, oldPassword, newPassword); err != nil {
		return err
	}

	if sess.FirstLogin {
		sess.FirstLogin = false
		g.mu.Lock()
		if g.current != nil && g.current.Token == sess.Token {
			g.current = &sess
		}
		g.mu.Unlock()
		g.persist(ctx, sess)
	}
	g.logger.Info().Str("username", sess.Username).Msg("password changed")
	return nil
}

// Current returns the live session, if any.
func (g *Guard) Current() (models.Session, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.current.Valid(g.now()) {
		return models.Session{}, false
	}
	return *g.current, true
}

// Require returns an AuthFailure unless a live session exists.
func (g *Guard) Require() error {
	_, err := g.require()
	return err
}

func (g *Guard) require() (models.Session, error) {
	g.mu.RLock()
	cur := g.current
	g.mu.RUnlock()

	switch {
	case cur == nil:
		return models.Session{}, &models.Error{Kind: models.KindAuthFailure, Op: "session", Message: "not logged in"}
	case !cur.Valid(g.now()):
		return models.Session{}, &models.Error{Kind: models.KindAuthFailure, Op: "session", Message: "session expired, log in again"}
	}
	return *cur, nil
}

// Token returns the bearer token of the live session, or "".
func (g *Guard) Token() string {
	sess, ok := g.Current()
	if !ok {
		return ""
	}
	return sess.Token
}

// Invalidate drops the session after the supervisor rejected it.
func (g *Guard) Invalidate(reason string) {
	g.mu.Lock()
	had := g.current != nil
	g.current = nil
	listeners := append([]func(string){}, g.listeners...)
	g.mu.Unlock()

	if !had {
		return
	}
	g.logger.Warn().Str("reason", reason).Msg("session invalidated")
	if g.store != nil {
		if err := g.store.Delete(context.Background(), g.server); err != nil {
			g.logger.Warn().Err(err).Msg("failed to clear cached session")
		}
	}
	for _, fn := range listeners {
		fn(reason)
	}
}

// OnInvalidate registers fn to run when the session is invalidated.
func (g *Guard) OnInvalidate(fn func(reason string)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

func (g *Guard) persist(ctx context.Context, sess models.Session) {
	if g.store == nil {
		return
	}
	if err := g.store.Save(ctx, g.server, sess); err != nil {
		g.logger.Warn().Err(err).Msg("failed to cache session")
	}
}
