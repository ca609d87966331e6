package view

import "sort"

// Selection is the set of app names marked for a batch action. Every
// mutation is scoped to the names visible under the active filter, so
// hidden apps are never selected. A Selection is owned by one goroutine.
type Selection struct {
	names map[string]struct{}
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{names: make(map[string]struct{})}
}

// Toggle flips name when it is visible and reports whether it is now
// selected. Invisible names are left alone.
func (s *Selection) Toggle(name string, visible []string) bool {
	if !contains(visible, name) {
		return s.Has(name)
	}
	if _, ok := s.names[name]; ok {
		delete(s.names, name)
		return false
	}
	s.names[name] = struct{}{}
	return true
}

// SelectAll replaces the selection with every visible name.
func (s *Selection) SelectAll(visible []string) {
	s.names = make(map[string]struct{}, len(visible))
	for _, name := range visible {
		s.names[name] = struct{}{}
	}
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.names = make(map[string]struct{})
}

// Prune drops names that are no longer visible and returns how many went.
func (s *Selection) Prune(visible []string) int {
	keep := make(map[string]struct{}, len(visible))
	for _, name := range visible {
		keep[name] = struct{}{}
	}
	removed := 0
	for name := range s.names {
		if _, ok := keep[name]; !ok {
			delete(s.names, name)
			removed++
		}
	}
	return removed
}

// Names returns the selected names sorted.
func (s *Selection) Names() []string {
	out := make([]string, 0, len(s.names))
	for name := range s.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Ordered returns the selected names in the order they appear in visible.
func (s *Selection) Ordered(visible []string) []string {
	out := make([]string, 0, len(s.names))
	for _, name := range visible {
		if _, ok := s.names[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Has reports whether name is selected.
func (s *Selection) Has(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of selected names.
func (s *Selection) Len() int {
	return len(s.names)
}

func contains(names []string, name string) bool {
	for _, candidate := range names {
		if candidate == name {
			return true
		}
	}
	return false
}
