package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Context remembers where the user left the list view (tab, sort, search)
// so `anyctl ls` and the TUI reopen the same way.
type Context struct {
	// Tab is the status tab: all, running or stopped.
	Tab string `yaml:"tab,omitempty"`
	// Search is the last filter text.
	Search string `yaml:"search,omitempty"`
	// SortKey is name, status, pid or port.
	SortKey string `yaml:"sort_key,omitempty"`
	// SortDesc reverses the sort.
	SortDesc bool `yaml:"sort_desc,omitempty"`
	// Server is the supervisor URL the context was recorded against.
	Server string `yaml:"server,omitempty"`
	// UpdatedAt is when the context was last modified.
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
}

// IsEmpty returns true if no context is set.
func (c *Context) IsEmpty() bool {
	return c.Tab == "" && c.Search == "" && c.SortKey == ""
}

// Clear removes all context.
func (c *Context) Clear() {
	c.Tab = ""
	c.Search = ""
	c.SortKey = ""
	c.SortDesc = false
	c.UpdatedAt = time.Now()
}

// String returns a human-readable representation of the context.
func (c *Context) String() string {
	if c.IsEmpty() {
		return "(no view context)"
	}
	tab := c.Tab
	if tab == "" {
		tab = "all"
	}
	dir := "asc"
	if c.SortDesc {
		dir = "desc"
	}
	sortKey := c.SortKey
	if sortKey == "" {
		sortKey = "name"
	}
	s := fmt.Sprintf("tab:%s sort:%s/%s", tab, sortKey, dir)
	if c.Search != "" {
		s += fmt.Sprintf(" search:%q", c.Search)
	}
	return s
}

// ContextStore manages loading and saving context.
type ContextStore struct {
	path string
	mu   sync.RWMutex
}

// NewContextStore creates a new context store.
// If path is empty, uses the default path (~/.config/anyrun/context.yaml).
func NewContextStore(path string) *ContextStore {
	if path == "" {
		homeDir, _ := os.UserHomeDir()
		path = filepath.Join(homeDir, ".config", "anyrun", "context.yaml")
	}
	return &ContextStore{path: path}
}

// Path returns the context file path.
func (s *ContextStore) Path() string {
	return s.path
}

// Load reads the context from disk.
// Returns an empty context if the file doesn't exist.
func (s *ContextStore) Load() (*Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := &Context{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ctx, nil
		}
		return nil, fmt.Errorf("failed to read context file: %w", err)
	}

	if err := yaml.Unmarshal(data, ctx); err != nil {
		return nil, fmt.Errorf("failed to parse context file: %w", err)
	}

	return ctx, nil
}

// Save writes the context to disk.
func (s *ContextStore) Save(ctx *Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create context directory: %w", err)
	}

	ctx.UpdatedAt = time.Now().UTC()
	data, err := yaml.Marshal(ctx)
	if err != nil {
		return fmt.Errorf("failed to serialize context: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write context file: %w", err)
	}

	return nil
}

// Clear removes the context file.
func (s *ContextStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove context file: %w", err)
	}
	return nil
}
