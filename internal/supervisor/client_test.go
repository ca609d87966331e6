package supervisor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/anyrun/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Options{
		BaseURL: srv.URL + "/api",
		Timeout: 2 * time.Second,
		Tokens:  TokenFunc(func() string { return "anyrun-token" }),
	})
	return c, srv
}

func TestListStatusesLegacyShape(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/apps", r.URL.Path)
		require.Equal(t, "Bearer anyrun-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"Name":"api","PID":12,"Status":"running","Port":8080,"StartTime":""},{"Name":"web","PID":0,"Status":"stopped","Port":0}]`)
	})

	statuses, err := c.ListStatuses(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	require.Equal(t, models.StatusRunning, statuses[0].Status)
	require.Equal(t, 12, *statuses[0].PID)
	require.Nil(t, statuses[1].PID)
}

func TestListStatusesNullBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "null")
	})
	statuses, err := c.ListStatuses(context.Background())
	require.NoError(t, err)
	require.NotNil(t, statuses)
	require.Empty(t, statuses)
}

func TestLifecycleEndpoints(t *testing.T) {
	var seen []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.Path+"?"+r.URL.RawQuery)
		_, _ = io.WriteString(w, "ok")
	})

	ctx := context.Background()
	require.NoError(t, c.Start(ctx, "api"))
	require.NoError(t, c.Stop(ctx, "api"))
	require.NoError(t, c.Restart(ctx, "my app"))
	require.NoError(t, c.RunAll(ctx, models.ActionStop))

	require.Equal(t, []string{
		"/api/start?name=api",
		"/api/stop?name=api",
		"/api/restart?name=my+app",
		"/api/apps/stopall?",
	}, seen)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		body   string
		kind   models.ErrorKind
	}{
		{http.StatusNotFound, "App 'ghost' not found", models.KindNotFound},
		{http.StatusUnauthorized, "Invalid token", models.KindAuthFailure},
		{http.StatusConflict, "revision mismatch", models.KindConflict},
		{http.StatusBadRequest, "Failed to decode config", models.KindValidationFailure},
		{http.StatusInternalServerError, "Failed to start app 'api': boom", models.KindNetworkFailure},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, tt.body, tt.status)
			})
			err := c.Start(context.Background(), "api")
			require.Error(t, err)
			require.Equal(t, tt.kind, models.KindOf(err))
			require.Contains(t, err.Error(), tt.body)
			require.Equal(t, tt.status, HTTPStatus(err))
		})
	}
}

func TestTransportFailureIsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Options{BaseURL: url + "/api", Timeout: time.Second})
	_, err := c.GetConfig(context.Background())
	require.ErrorIs(t, err, models.ErrNetworkFailure)
}

func TestMalformedBodyIsNetworkFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>")
	})
	_, err := c.GetConfig(context.Background())
	require.ErrorIs(t, err, models.ErrNetworkFailure)
}

func TestAuthFailureNotifiesListeners(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
	})
	var fired atomic.Int32
	c.OnAuthFailure(func(error) { fired.Add(1) })

	_, err := c.ListStatuses(context.Background())
	require.ErrorIs(t, err, models.ErrAuthFailure)
	require.Equal(t, int32(1), fired.Load())

	_, err = c.Login(context.Background(), "admin", "wrong")
	require.ErrorIs(t, err, models.ErrAuthFailure)
	require.Equal(t, int32(1), fired.Load(), "login failures must not end the session")
}

func TestLoginSendsCredentialsWithoutToken(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/login", r.URL.Path)
		require.Empty(t, r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "admin", body["username"])
		require.Equal(t, "secret", body["password"])
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "token": "anyrun-token", "firstLogin": true})
	})

	res, err := c.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)
	require.Equal(t, "anyrun-token", res.Token)
	require.True(t, res.FirstLogin)
}

func TestChangePasswordMismatch(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Invalid username or old password", http.StatusUnauthorized)
	})
	var fired atomic.Int32
	c.OnAuthFailure(func(error) { fired.Add(1) })

	err := c.ChangePassword(context.Background(), "admin", "old", "new")
	require.ErrorIs(t, err, models.ErrPasswordMismatch)
	require.False(t, models.IsAuthFailure(err))
	require.Zero(t, fired.Load())
}

func TestSaveConfigSendsCanonicalDocument(t *testing.T) {
	var got map[string]json.RawMessage
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/config/save", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, "ok")
	})

	doc := &models.ConfigDocument{
		UIPort:   5173,
		Revision: 4,
		Apps: []models.AppConfig{{
			Name: "api", Execute: "java", AppType: models.AppTypeJava,
			Arguments: []string{"-jar", "api.jar"}, TimeoutSeconds: 30,
		}},
	}
	require.NoError(t, c.SaveConfig(context.Background(), doc))
	require.JSONEq(t, "4", string(got["revision"]))
	require.Contains(t, string(got["apps"]), `"arguments":["-jar","api.jar"]`)
}

func TestContextCancellation(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ListStatuses(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
