package supervisor

import (
	"context"
	"errors"
	"net/http"

	"github.com/tOgg1/anyrun/internal/models"
)

// API paths, relative to the base URL.
const (
	pathConfig         = "/config"
	pathConfigSave     = "/config/save"
	pathApps           = "/apps"
	pathStart          = "/start"
	pathStop           = "/stop"
	pathRestart        = "/restart"
	pathStartAll       = "/apps/startall"
	pathStopAll        = "/apps/stopall"
	pathRestartAll     = "/apps/restartall"
	pathLogin          = "/auth/login"
	pathUserConfig     = "/auth/user-config"
	pathChangePassword = "/auth/change-password"
)

// GetConfig fetches the full configuration document.
func (c *Client) GetConfig(ctx context.Context) (*models.ConfigDocument, error) {
	doc := &models.ConfigDocument{}
	if err := c.do(ctx, call{op: "get config", method: http.MethodGet, path: pathConfig, out: doc}); err != nil {
		return nil, err
	}
	return doc, nil
}

// SaveConfig replaces the configuration document. The document's revision
// travels with it; a supervisor that tracks revisions answers 409 when it
// is stale.
func (c *Client) SaveConfig(ctx context.Context, doc *models.ConfigDocument) error {
	return c.do(ctx, call{op: "save config", method: http.MethodPost, path: pathConfigSave, body: doc})
}

// ListStatuses fetches the runtime status of every managed application.
func (c *Client) ListStatuses(ctx context.Context) ([]models.RuntimeStatus, error) {
	var statuses []models.RuntimeStatus
	if err := c.do(ctx, call{op: "list statuses", method: http.MethodGet, path: pathApps, out: &statuses}); err != nil {
		return nil, err
	}
	if statuses == nil {
		statuses = []models.RuntimeStatus{}
	}
	return statuses, nil
}

// Start asks the supervisor to start one application.
func (c *Client) Start(ctx context.Context, name string) error {
	return c.lifecycle(ctx, models.ActionStart, name)
}

// Stop asks the supervisor to stop one application.
func (c *Client) Stop(ctx context.Context, name string) error {
	return c.lifecycle(ctx, models.ActionStop, name)
}

// Restart asks the supervisor to restart one application.
func (c *Client) Restart(ctx context.Context, name string) error {
	return c.lifecycle(ctx, models.ActionRestart, name)
}

// Run dispatches kind for name.
func (c *Client) Run(ctx context.Context, kind models.ActionKind, name string) error {
	return c.lifecycle(ctx, kind, name)
}

func (c *Client) lifecycle(ctx context.Context, kind models.ActionKind, name string) error {
	path := pathStart
	switch kind {
	case models.ActionStop:
		path = pathStop
	case models.ActionRestart:
		path = pathRestart
	}
	return c.do(ctx, call{
		op:     string(kind),
		app:    name,
		method: http.MethodGet,
		path:   path,
		query:  map[string]string{"name": name},
	})
}

// RunAll issues the supervisor's bulk endpoint for kind.
func (c *Client) RunAll(ctx context.Context, kind models.ActionKind) error {
	path := pathStartAll
	switch kind {
	case models.ActionStop:
		path = pathStopAll
	case models.ActionRestart:
		path = pathRestartAll
	}
	return c.do(ctx, call{op: string(kind) + " all", method: http.MethodGet, path: path})
}

// LoginResult is the supervisor's reply to a successful login.
type LoginResult struct {
	Success    bool   `json:"success"`
	Token      string `json:"token"`
	FirstLogin bool   `json:"firstLogin"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var out LoginResult
	err := c.do(ctx, call{
		op:     "login",
		method: http.MethodPost,
		path:   pathLogin,
		body:   map[string]string{"username": username, "password": password},
		out:    &out,
		public: true,
	})
	if err != nil {
		return LoginResult{}, err
	}
	if out.Token == "" {
		return LoginResult{}, &models.Error{Kind: models.KindAuthFailure, Op: "login", Message: "supervisor returned no token"}
	}
	return out, nil
}

// UserConfig describes the supervisor's account state.
type UserConfig struct {
	Username   string `json:"username"`
	FirstLogin bool   `json:"firstLogin"`
}

// UserConfig reports the configured username and whether the default
// password is still in use.
func (c *Client) UserConfig(ctx context.Context) (UserConfig, error) {
	var out UserConfig
	err := c.do(ctx, call{op: "user config", method: http.MethodGet, path: pathUserConfig, out: &out, public: true})
	return out, err
}

// ChangePassword updates the supervisor password. A rejected old password
// is a PasswordMismatch, not an auth failure: the session stays valid.
func (c *Client) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	err := c.do(ctx, call{
		op:     "change password",
		method: http.MethodPost,
		path:   pathChangePassword,
		body: map[string]string{
			"username":    username,
			"oldPassword": oldPassword,
			"newPassword": newPassword,
		},
		ownsAuthErrors: true,
	})
	if err != nil && models.IsAuthFailure(err) {
		mismatch := &models.Error{Kind: models.KindPasswordMismatch, Op: "change password", Message: "current password is incorrect"}
		var status *StatusError
		if errors.As(err, &status) {
			mismatch.Err = status
		}
		return mismatch
	}
	return err
}
