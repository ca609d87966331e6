package console

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/anyrun/internal/config"
	"github.com/tOgg1/anyrun/internal/db"
	"github.com/tOgg1/anyrun/internal/models"
	"github.com/tOgg1/anyrun/internal/state"
)

type fakeSupervisor struct {
	mu       sync.Mutex
	running  map[string]bool
	rejectAt bool
	calls    []string
}

func (f *fakeSupervisor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.URL.Path)

	if r.URL.Path != "/api/auth/login" {
		if f.rejectAt || r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, "unauthorized")
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/auth/login":
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "token": "tok"})
	case "/api/config":
		_, _ = io.WriteString(w, `{"apps":[
			{"name":"web","execute":"java","appType":"java","timeoutSeconds":30},
			{"name":"db","execute":"postgres","appType":"other","timeoutSeconds":30}]}`)
	case "/api/apps":
		var out []map[string]any
		for _, name := range []string{"web", "db"} {
			if f.running[name] {
				out = append(out, map[string]any{"name": name, "status": "running", "pid": 100})
			} else {
				out = append(out, map[string]any{"name": name, "status": "stopped"})
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	case "/api/start":
		f.running[r.URL.Query().Get("name")] = true
		_, _ = io.WriteString(w, "ok")
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSupervisor) reject() {
	f.mu.Lock()
	f.rejectAt = true
	f.mu.Unlock()
}

func newConsole(t *testing.T, database *db.DB) (*Console, *fakeSupervisor) {
	t.Helper()
	sup, url := startSupervisor(t)
	return openConsole(t, database, url), sup
}

func startSupervisor(t *testing.T) (*fakeSupervisor, string) {
	t.Helper()
	sup := &fakeSupervisor{running: map[string]bool{}}
	srv := httptest.NewServer(sup)
	t.Cleanup(srv.Close)
	return sup, srv.URL + "/api"
}

func openConsole(t *testing.T, database *db.DB, url string) *Console {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Supervisor.URL = url
	cfg.Supervisor.RateLimit = 0
	cfg.Poller.Interval = 20 * time.Millisecond
	cfg.Poller.ConfirmDelay = 5 * time.Millisecond

	c, err := Open(context.Background(), cfg, Options{Database: database})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func memoryDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestStartRequiresSession(t *testing.T) {
	c, _ := newConsole(t, memoryDB(t))
	require.ErrorIs(t, c.Start(context.Background()), models.ErrAuthFailure)
	require.ErrorIs(t, c.Refresh(context.Background()), models.ErrAuthFailure)
}

func TestPollAndDispatch(t *testing.T) {
	c, sup := newConsole(t, memoryDB(t))
	ctx := context.Background()

	_, err := c.Guard.Login(ctx, "admin", "pw")
	require.NoError(t, err)
	require.NoError(t, c.Refresh(ctx))

	snap := c.Snapshot()
	require.Equal(t, []string{"web", "db"}, snap.Names())
	web, err := c.Find("web")
	require.NoError(t, err)
	require.Equal(t, models.StatusStopped, web.Status)

	_, err = c.Find("ghost")
	require.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, c.Dispatcher.Do(ctx, "web", models.ActionStart))
	require.NoError(t, c.Start(ctx))
	require.Eventually(t, func() bool {
		v, err := c.Find("web")
		return err == nil && v.Status == models.StatusRunning && v.PID != nil && c.Snapshot().Source == state.SourcePoll
	}, 2*time.Second, 10*time.Millisecond)

	sup.mu.Lock()
	require.Contains(t, sup.calls, "/api/start")
	sup.mu.Unlock()
}

func TestAuthFailureEndsSession(t *testing.T) {
	c, sup := newConsole(t, memoryDB(t))
	ctx := context.Background()

	_, err := c.Guard.Login(ctx, "admin", "pw")
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	require.Eventually(t, func() bool { return c.Snapshot().Revision > 0 }, 2*time.Second, 10*time.Millisecond)

	sup.reject()
	require.Eventually(t, func() bool { return c.Guard.Require() != nil }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return !c.Poller.IsRunning() }, 2*time.Second, 10*time.Millisecond)

	var kinds []models.ErrorKind
	for _, n := range c.Events.Recent(0) {
		kinds = append(kinds, n.Kind)
	}
	require.Contains(t, kinds, models.KindAuthFailure)
}

func TestSnapshotAndSessionSurviveRestart(t *testing.T) {
	database := memoryDB(t)
	_, url := startSupervisor(t)
	first := openConsole(t, database, url)
	ctx := context.Background()

	_, err := first.Guard.Login(ctx, "admin", "pw")
	require.NoError(t, err)
	require.NoError(t, first.Refresh(ctx))
	first.Close()

	second := openConsole(t, database, url)
	snap := second.Snapshot()
	require.Equal(t, state.SourceCache, snap.Source)
	require.Zero(t, snap.Revision)
	require.Equal(t, []string{"web", "db"}, snap.Names())
	require.NoError(t, second.Guard.Require())
}

func TestSinkKeepsNewestSnapshot(t *testing.T) {
	w := &recordingWriter{release: make(chan struct{}), started: make(chan struct{})}
	sink := newSnapshotSink(w, "srv")

	sink.offer(state.Snapshot{Revision: 1, Source: state.SourcePoll})
	<-w.started
	sink.offer(state.Snapshot{Revision: 2, Source: state.SourcePoll})
	sink.offer(state.Snapshot{Revision: 3, Source: state.SourceOptimistic})
	sink.offer(state.Snapshot{Revision: 4, Source: state.SourcePoll})
	close(w.release)
	sink.close()

	require.Equal(t, []int64{1, 4}, w.revisions())
}

func TestSinkDropsOutOfOrderSnapshots(t *testing.T) {
	w := &recordingWriter{release: make(chan struct{}), started: make(chan struct{})}
	sink := newSnapshotSink(w, "srv")

	sink.offer(state.Snapshot{Revision: 5, Source: state.SourcePoll})
	<-w.started
	sink.offer(state.Snapshot{Revision: 7, Source: state.SourcePoll})
	// A slower publisher delivers an earlier revision last.
	sink.offer(state.Snapshot{Revision: 6, Source: state.SourcePoll})
	sink.offer(state.Snapshot{Revision: 5, Source: state.SourcePoll})
	close(w.release)
	sink.close()

	require.Equal(t, []int64{5, 7}, w.revisions())
}

type recordingWriter struct {
	mu      sync.Mutex
	saved   []int64
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (w *recordingWriter) Save(ctx context.Context, server string, revision int64, views []models.AppView) error {
	w.mu.Lock()
	w.saved = append(w.saved, revision)
	w.mu.Unlock()
	w.once.Do(func() {
		close(w.started)
		<-w.release
	})
	return nil
}

func (w *recordingWriter) revisions() []int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]int64(nil), w.saved...)
}
