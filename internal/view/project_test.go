package view

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/anyrun/internal/models"
)

func mkView(name string, appType models.AppType, status models.Status, pid int) models.AppView {
	v := models.AppView{
		Config: models.AppConfig{Name: name, Execute: "x", AppType: appType, TimeoutSeconds: 30},
		Status: status,
	}
	if pid > 0 {
		v.PID = models.IntPtr(pid)
		v.Port = models.IntPtr(8000 + pid)
	}
	return v
}

func numbered(n int) []models.AppView {
	views := make([]models.AppView, n)
	for i := range views {
		views[i] = mkView(fmt.Sprintf("app%02d", i+1), models.AppTypeGo, models.StatusStopped, 0)
	}
	return views
}

func itemNames(p Projection) []string {
	out := make([]string, len(p.Items))
	for i, v := range p.Items {
		out[i] = v.Name()
	}
	return out
}

func TestProjectPaging(t *testing.T) {
	views := numbered(12)

	first := Project(views, ViewState{Page: 1})
	require.Len(t, first.Items, 10)
	require.Equal(t, 1, first.Page)
	require.Equal(t, 2, first.PageCount)
	require.Equal(t, 12, first.Total)
	require.Len(t, first.Matched, 12)

	second := Project(views, ViewState{Page: 2})
	require.Equal(t, []string{"app11", "app12"}, itemNames(second))
	require.Equal(t, first.Matched, second.Matched, "paging never changes the matched set")

	third := Project(views, ViewState{Page: 3})
	require.Equal(t, 1, third.Page)
	require.Equal(t, itemNames(first), itemNames(third))

	zero := Project(views, ViewState{Page: 0})
	require.Equal(t, 1, zero.Page)
}

func TestProjectEmpty(t *testing.T) {
	p := Project(nil, DefaultState())
	require.Empty(t, p.Items)
	require.Equal(t, 1, p.Page)
	require.Equal(t, 1, p.PageCount)
	require.Empty(t, p.Matched)
}

func TestProjectCustomPageSize(t *testing.T) {
	p := Project(numbered(5), ViewState{Page: 2, PageSize: 2})
	require.Equal(t, []string{"app03", "app04"}, itemNames(p))
	require.Equal(t, 3, p.PageCount)
}

func TestProjectSearch(t *testing.T) {
	views := []models.AppView{
		mkView("Web", models.AppTypeNode, models.StatusRunning, 1),
		mkView("db", models.AppTypeJava, models.StatusStopped, 0),
		mkView("worker", models.AppTypePython, models.StatusRunning, 2),
	}

	tests := []struct {
		name   string
		search string
		want   []string
	}{
		{name: "empty matches all", search: "", want: []string{"db", "Web", "worker"}},
		{name: "name is case insensitive", search: "WEB", want: []string{"Web"}},
		{name: "matches app type", search: "java", want: []string{"db"}},
		{name: "substring", search: "or", want: []string{"worker"}},
		{name: "whitespace trimmed", search: "  db ", want: []string{"db"}},
		{name: "no match", search: "zzz", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Project(views, ViewState{Search: tt.search})
			require.Equal(t, tt.want, p.Matched)
		})
	}
}

func TestProjectTabs(t *testing.T) {
	views := []models.AppView{
		mkView("a", models.AppTypeGo, models.StatusRunning, 1),
		mkView("b", models.AppTypeGo, models.StatusStopped, 0),
		mkView("c", models.AppTypeGo, models.StatusUnknown, 0),
	}
	require.Equal(t, []string{"a", "b", "c"}, Project(views, ViewState{Tab: TabAll}).Matched)
	require.Equal(t, []string{"a"}, Project(views, ViewState{Tab: TabRunning}).Matched)
	require.Equal(t, []string{"b"}, Project(views, ViewState{Tab: TabStopped}).Matched)
}

func TestProjectSort(t *testing.T) {
	views := []models.AppView{
		mkView("b", models.AppTypeGo, models.StatusStopped, 0),
		mkView("C", models.AppTypeGo, models.StatusRunning, 5),
		mkView("a", models.AppTypeGo, models.StatusRunning, 9),
		mkView("d", models.AppTypeGo, models.StatusStopped, 0),
	}

	tests := []struct {
		name  string
		state ViewState
		want  []string
	}{
		{name: "name asc", state: ViewState{SortKey: SortName}, want: []string{"a", "b", "C", "d"}},
		{name: "name desc", state: ViewState{SortKey: SortName, SortDesc: true}, want: []string{"d", "C", "b", "a"}},
		{name: "status keeps ties in input order", state: ViewState{SortKey: SortStatus}, want: []string{"C", "a", "b", "d"}},
		{name: "status desc keeps ties in input order", state: ViewState{SortKey: SortStatus, SortDesc: true}, want: []string{"b", "d", "C", "a"}},
		{name: "pid absent sorts as zero", state: ViewState{SortKey: SortPID}, want: []string{"b", "d", "C", "a"}},
		{name: "port desc", state: ViewState{SortKey: SortPort, SortDesc: true}, want: []string{"a", "C", "b", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Project(views, tt.state).Matched)
		})
	}
}

func TestProjectIsPure(t *testing.T) {
	views := []models.AppView{
		mkView("b", models.AppTypeGo, models.StatusStopped, 0),
		mkView("a", models.AppTypeGo, models.StatusRunning, 1),
	}
	state := ViewState{SortKey: SortName}

	first := Project(views, state)
	second := Project(views, state)
	require.Equal(t, first, second)
	require.Equal(t, "b", views[0].Name(), "input order untouched")

	first.Items[0].Config.Name = "mutated"
	require.Equal(t, "a", Project(views, state).Items[0].Name())
}

func TestParseTabAndSortKey(t *testing.T) {
	tab, err := ParseTab("")
	require.NoError(t, err)
	require.Equal(t, TabAll, tab)
	tab, err = ParseTab("Running")
	require.NoError(t, err)
	require.Equal(t, TabRunning, tab)
	_, err = ParseTab("paused")
	require.Error(t, err)

	key, err := ParseSortKey("PID")
	require.NoError(t, err)
	require.Equal(t, SortPID, key)
	_, err = ParseSortKey("memory")
	require.Error(t, err)

	require.Equal(t, TabRunning, TabAll.Next())
	require.Equal(t, TabAll, TabStopped.Next())
	require.Equal(t, SortName, SortPort.Next())
}
