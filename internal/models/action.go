package models

import (
	"fmt"
	"strings"
	"time"
)

// ActionKind is a lifecycle command sent to the supervisor.
type ActionKind string

const (
	ActionStart   ActionKind = "start"
	ActionStop    ActionKind = "stop"
	ActionRestart ActionKind = "restart"
)

// ParseActionKind parses a command name.
func ParseActionKind(s string) (ActionKind, error) {
	switch ActionKind(strings.ToLower(strings.TrimSpace(s))) {
	case ActionStart:
		return ActionStart, nil
	case ActionStop:
		return ActionStop, nil
	case ActionRestart:
		return ActionRestart, nil
	}
	return "", fmt.Errorf("unknown action %q (expected start, stop or restart)", s)
}

// OptimisticStatus is the status shown while the command is in flight.
func (k ActionKind) OptimisticStatus() Status {
	if k == ActionStop {
		return StatusStopped
	}
	return StatusRunning
}

// PastTense describes a completed command, as in "started web".
func (k ActionKind) PastTense() string {
	switch k {
	case ActionStart:
		return "started"
	case ActionStop:
		return "stopped"
	case ActionRestart:
		return "restarted"
	}
	return string(k)
}

// PendingAction tracks an issued command until a poll confirms or
// contradicts it, or until it times out.
type PendingAction struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Kind             ActionKind `json:"kind"`
	IssuedAt         time.Time  `json:"issuedAt"`
	PreviousStatus   Status     `json:"previousStatus"`
	OptimisticStatus Status     `json:"optimisticStatus"`

	// Previous is the view replaced by the optimistic transition. It is
	// the zero value for apps missing from the snapshot.
	Previous AppView `json:"-"`

	// SettledAt is when the remote call returned; zero while in flight.
	SettledAt time.Time `json:"settledAt,omitempty"`

	// Err is the remote failure, if any.
	Err error `json:"-"`
}

// Settled reports whether the remote call has returned.
func (p *PendingAction) Settled() bool {
	return !p.SettledAt.IsZero()
}

// Expired reports whether the action has outlived timeout.
func (p *PendingAction) Expired(now time.Time, timeout time.Duration) bool {
	return timeout > 0 && now.Sub(p.IssuedAt) >= timeout
}
