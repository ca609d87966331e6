// Package view derives the filtered, sorted and paged subset of the
// application collection shown to the operator.
package view

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tOgg1/anyrun/internal/models"
)

// DefaultPageSize is the number of rows on a page.
const DefaultPageSize = 10

// Tab restricts the collection by status.
type Tab string

const (
	TabAll     Tab = "all"
	TabRunning Tab = "running"
	TabStopped Tab = "stopped"
)

// Tabs lists the tabs in display order.
var Tabs = []Tab{TabAll, TabRunning, TabStopped}

// ParseTab parses a tab name. An empty name is TabAll.
func ParseTab(s string) (Tab, error) {
	switch Tab(strings.ToLower(strings.TrimSpace(s))) {
	case "", TabAll:
		return TabAll, nil
	case TabRunning:
		return TabRunning, nil
	case TabStopped:
		return TabStopped, nil
	}
	return "", fmt.Errorf("unknown tab %q (expected all, running or stopped)", s)
}

// Next returns the tab after t, wrapping around.
func (t Tab) Next() Tab {
	for i, candidate := range Tabs {
		if candidate == t {
			return Tabs[(i+1)%len(Tabs)]
		}
	}
	return TabAll
}

// SortKey selects the ordering column.
type SortKey string

const (
	SortName   SortKey = "name"
	SortStatus SortKey = "status"
	SortPID    SortKey = "pid"
	SortPort   SortKey = "port"
)

// SortKeys lists sort keys in cycling order.
var SortKeys = []SortKey{SortName, SortStatus, SortPID, SortPort}

// ParseSortKey parses a sort key. An empty key is SortName.
func ParseSortKey(s string) (SortKey, error) {
	key := SortKey(strings.ToLower(strings.TrimSpace(s)))
	if key == "" {
		return SortName, nil
	}
	if slices.Contains(SortKeys, key) {
		return key, nil
	}
	return "", fmt.Errorf("unknown sort key %q (expected name, status, pid or port)", s)
}

// Next returns the sort key after k, wrapping around.
func (k SortKey) Next() SortKey {
	for i, candidate := range SortKeys {
		if candidate == k {
			return SortKeys[(i+1)%len(SortKeys)]
		}
	}
	return SortName
}

// ViewState is everything the projection depends on besides the views.
type ViewState struct {
	Search   string
	Tab      Tab
	SortKey  SortKey
	SortDesc bool

	// Page is 1-indexed.
	Page     int
	PageSize int
}

// DefaultState returns the state of a fresh view.
func DefaultState() ViewState {
	return ViewState{Tab: TabAll, SortKey: SortName, Page: 1, PageSize: DefaultPageSize}
}

func (s ViewState) normalized() ViewState {
	if s.Tab == "" {
		s.Tab = TabAll
	}
	if s.SortKey == "" {
		s.SortKey = SortName
	}
	if s.PageSize <= 0 {
		s.PageSize = DefaultPageSize
	}
	return s
}

// Projection is the result of Project.
type Projection struct {
	// Items is the current page.
	Items []models.AppView

	// Page is the page actually shown, after clamping.
	Page      int
	PageCount int

	// Total is the size of the whole collection.
	Total int

	// Matched lists every name passing the filter and tab, across all
	// pages, in display order. Selection is scoped to it.
	Matched []string
}

// Project filters, sorts and pages views. It never modifies its input.
func Project(views []models.AppView, state ViewState) Projection {
	state = state.normalized()
	filtered := Filter(views, state)

	page, pageCount, start, end := pageBounds(len(filtered), state.PageSize, state.Page)

	matched := make([]string, len(filtered))
	for i, v := range filtered {
		matched[i] = v.Name()
	}

	return Projection{
		Items:     models.CloneViews(filtered[start:end]),
		Page:      page,
		PageCount: pageCount,
		Total:     len(views),
		Matched:   matched,
	}
}

// Filter returns the views passing the search term and tab, sorted.
func Filter(views []models.AppView, state ViewState) []models.AppView {
	state = state.normalized()
	query := strings.ToLower(strings.TrimSpace(state.Search))

	filtered := make([]models.AppView, 0, len(views))
	for _, v := range views {
		if !matchesTab(v, state.Tab) {
			continue
		}
		if query != "" {
			name := strings.ToLower(v.Name())
			appType := strings.ToLower(string(v.Config.AppType))
			if !strings.Contains(name, query) && !strings.Contains(appType, query) {
				continue
			}
		}
		filtered = append(filtered, v)
	}

	cmp := comparator(state.SortKey)
	slices.SortStableFunc(filtered, func(a, b models.AppView) int {
		if state.SortDesc {
			return cmp(b, a)
		}
		return cmp(a, b)
	})
	return filtered
}

func matchesTab(v models.AppView, tab Tab) bool {
	switch tab {
	case TabRunning:
		return v.Status == models.StatusRunning
	case TabStopped:
		return v.Status == models.StatusStopped
	default:
		return true
	}
}

func comparator(key SortKey) func(a, b models.AppView) int {
	switch key {
	case SortStatus:
		return func(a, b models.AppView) int {
			return strings.Compare(string(a.Status), string(b.Status))
		}
	case SortPID:
		return func(a, b models.AppView) int {
			return deref(a.PID) - deref(b.PID)
		}
	case SortPort:
		return func(a, b models.AppView) int {
			return deref(a.Port) - deref(b.Port)
		}
	default:
		return func(a, b models.AppView) int {
			return strings.Compare(strings.ToLower(a.Name()), strings.ToLower(b.Name()))
		}
	}
}

func deref(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

// pageBounds clamps a 1-indexed page and returns it with the page count
// and the slice bounds. Out-of-range pages fall back to the first page.
func pageBounds(total, pageSize, page int) (int, int, int, int) {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	pageCount := 1
	if total > 0 {
		pageCount = (total + pageSize - 1) / pageSize
	}
	if page < 1 || page > pageCount {
		page = 1
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}
	return page, pageCount, start, end
}
