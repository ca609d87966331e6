// Package reconcile joins declared application configs with the runtime
// statuses reported by the supervisor.
package reconcile

import "github.com/tOgg1/anyrun/internal/models"

// Reconcile builds one AppView per config, in config order.
//
// Statuses are matched by exact, case-sensitive name. A config without a
// status is shown as stopped with no pid or port. Statuses whose name is
// not configured are dropped. When a name is reported more than once the
// first report wins. The inputs are not modified.
func Reconcile(configs []models.AppConfig, statuses []models.RuntimeStatus) []models.AppView {
	byName := make(map[string]models.RuntimeStatus, len(statuses))
	for _, s := range statuses {
		if _, dup := byName[s.Name]; dup {
			continue
		}
		byName[s.Name] = s
	}

	views := make([]models.AppView, 0, len(configs))
	for _, cfg := range configs {
		view := models.AppView{
			Config: cfg.Clone(),
			Status: models.StatusStopped,
		}
		if s, ok := byName[cfg.Name]; ok {
			view.Status = s.Status
			if view.Status == "" {
				view.Status = models.StatusStopped
			}
			view.PID = copyInt(s.PID)
			view.Port = copyInt(s.Port)
			if s.StartedAt != nil {
				ts := *s.StartedAt
				view.StartedAt = &ts
			}
		}
		views = append(views, view)
	}
	return views
}

// Diff reports names whose status changed between two snapshots, and
// names that appeared or disappeared.
type Diff struct {
	Added   []string
	Removed []string
	Changed []string
}

// Empty reports whether nothing changed.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Compare computes the Diff from prev to next.
func Compare(prev, next []models.AppView) Diff {
	before := make(map[string]models.Status, len(prev))
	for _, v := range prev {
		before[v.Name()] = v.Status
	}
	var d Diff
	seen := make(map[string]bool, len(next))
	for _, v := range next {
		seen[v.Name()] = true
		old, ok := before[v.Name()]
		switch {
		case !ok:
			d.Added = append(d.Added, v.Name())
		case old != v.Status:
			d.Changed = append(d.Changed, v.Name())
		}
	}
	for _, v := range prev {
		if !seen[v.Name()] {
			d.Removed = append(d.Removed, v.Name())
		}
	}
	return d
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	n := *p
	return &n
}
