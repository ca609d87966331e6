package reconcile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/anyrun/internal/models"
)

func cfg(name string) models.AppConfig {
	return models.AppConfig{Name: name, Execute: "go", AppType: models.AppTypeGo, TimeoutSeconds: 30}
}

func running(name string, pid, port int) models.RuntimeStatus {
	return models.RuntimeStatus{Name: name, Status: models.StatusRunning, PID: models.IntPtr(pid), Port: models.IntPtr(port)}
}

func TestReconcileLeftJoin(t *testing.T) {
	configs := []models.AppConfig{cfg("a"), cfg("b")}
	statuses := []models.RuntimeStatus{running("a", 100, 8080)}

	views := Reconcile(configs, statuses)
	require.Len(t, views, 2)

	require.Equal(t, "a", views[0].Name())
	require.Equal(t, models.StatusRunning, views[0].Status)
	require.Equal(t, 100, *views[0].PID)
	require.Equal(t, 8080, *views[0].Port)

	require.Equal(t, "b", views[1].Name())
	require.Equal(t, models.StatusStopped, views[1].Status)
	require.Nil(t, views[1].PID)
	require.Nil(t, views[1].Port)
}

func TestReconcileDropsUnknownStatuses(t *testing.T) {
	views := Reconcile([]models.AppConfig{cfg("a")}, []models.RuntimeStatus{running("a", 1, 1), running("ghost", 2, 2)})
	require.Len(t, views, 1)
	require.Equal(t, "a", views[0].Name())
}

func TestReconcileEmptyInputs(t *testing.T) {
	require.Empty(t, Reconcile(nil, []models.RuntimeStatus{running("x", 1, 1)}))

	views := Reconcile([]models.AppConfig{cfg("a"), cfg("b")}, nil)
	require.Len(t, views, 2)
	for _, v := range views {
		require.Equal(t, models.StatusStopped, v.Status)
	}
}

func TestReconcileKeepsConfigOrder(t *testing.T) {
	configs := []models.AppConfig{cfg("zeta"), cfg("alpha"), cfg("mid")}
	statuses := []models.RuntimeStatus{running("mid", 3, 3), running("alpha", 2, 2), running("zeta", 1, 1)}

	views := Reconcile(configs, statuses)
	require.Equal(t, []string{"zeta", "alpha", "mid"}, names(views))
	require.Equal(t, 1, *views[0].PID)
}

func TestReconcileCaseSensitive(t *testing.T) {
	views := Reconcile([]models.AppConfig{cfg("API")}, []models.RuntimeStatus{running("api", 1, 1)})
	require.Equal(t, models.StatusStopped, views[0].Status)
}

func TestReconcileFirstDuplicateWins(t *testing.T) {
	statuses := []models.RuntimeStatus{running("a", 1, 10), {Name: "a", Status: models.StatusStopped}}
	views := Reconcile([]models.AppConfig{cfg("a")}, statuses)
	require.Equal(t, models.StatusRunning, views[0].Status)
	require.Equal(t, 1, *views[0].PID)
}

func TestReconcileRunningWithoutPID(t *testing.T) {
	statuses := []models.RuntimeStatus{{Name: "a", Status: models.StatusRunning}}
	views := Reconcile([]models.AppConfig{cfg("a")}, statuses)
	require.Equal(t, models.StatusRunning, views[0].Status)
	require.Nil(t, views[0].PID)
}

func TestReconcileIsIdempotentAndPure(t *testing.T) {
	configs := []models.AppConfig{cfg("a"), cfg("b")}
	configs[0].Arguments = []string{"x"}
	statuses := []models.RuntimeStatus{running("b", 7, 70)}

	first := Reconcile(configs, statuses)
	second := Reconcile(configs, statuses)
	require.Equal(t, first, second)

	first[0].Config.Arguments[0] = "mutated"
	*first[1].PID = 999
	require.Equal(t, "x", configs[0].Arguments[0])
	require.Equal(t, 7, *statuses[0].PID)
}

func TestCompare(t *testing.T) {
	prev := Reconcile([]models.AppConfig{cfg("a"), cfg("b")}, []models.RuntimeStatus{running("a", 1, 1)})
	next := Reconcile([]models.AppConfig{cfg("a"), cfg("c")}, nil)

	d := Compare(prev, next)
	require.Equal(t, []string{"c"}, d.Added)
	require.Equal(t, []string{"b"}, d.Removed)
	require.Equal(t, []string{"a"}, d.Changed)
	require.False(t, d.Empty())
	require.True(t, Compare(next, next).Empty())
}

func names(views []models.AppView) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.Name()
	}
	return out
}
