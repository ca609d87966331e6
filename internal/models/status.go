package models

import (
	"strings"
	"time"
)

// Status is the runtime state of an application.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusUnknown Status = "unknown"
)

// ParseStatus maps a supervisor label onto Status.
func ParseStatus(label string) Status {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "running", "started", "up":
		return StatusRunning
	case "stopped", "exited", "down", "":
		return StatusStopped
	default:
		return StatusUnknown
	}
}

// RuntimeStatus is the supervisor's report for one application.
type RuntimeStatus struct {
	Name      string     `json:"name"`
	PID       *int       `json:"pid,omitempty"`
	Port      *int       `json:"port,omitempty"`
	Status    Status     `json:"status"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

// AppView is a config joined with its runtime status.
type AppView struct {
	Config    AppConfig  `json:"config"`
	Status    Status     `json:"status"`
	PID       *int       `json:"pid,omitempty"`
	Port      *int       `json:"port,omitempty"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

// Name returns the application name.
func (v AppView) Name() string {
	return v.Config.Name
}

// IsRunning reports whether the view shows the app as running.
func (v AppView) IsRunning() bool {
	return v.Status == StatusRunning
}

// WithStatus returns a copy with a new status. Leaving the running state
// drops the pid and port, which only exist while a process is live.
func (v AppView) WithStatus(s Status) AppView {
	out := v
	out.Status = s
	if s != StatusRunning {
		out.PID = nil
		out.Port = nil
		out.StartedAt = nil
	}
	return out
}

// CloneViews copies a view slice so callers can mutate it freely.
func CloneViews(views []AppView) []AppView {
	if views == nil {
		return nil
	}
	out := make([]AppView, len(views))
	for i, v := range views {
		v.Config = v.Config.Clone()
		out[i] = v
	}
	return out
}

// IntPtr is a small helper for optional numeric fields.
func IntPtr(n int) *int {
	return &n
}
