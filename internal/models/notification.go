package models

import "time"

// NotificationLevel grades a user-facing notice.
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
)

// Notification is a transient message for the user.
type Notification struct {
	ID      string            `json:"id"`
	Time    time.Time         `json:"time"`
	Level   NotificationLevel `json:"level"`
	Kind    ErrorKind         `json:"kind,omitempty"`
	Op      string            `json:"op,omitempty"`
	App     string            `json:"app,omitempty"`
	Message string            `json:"message"`
}

// NotificationFromError builds an error notification for a failed operation.
func NotificationFromError(op, app string, err error) Notification {
	return Notification{
		Time:    time.Now().UTC(),
		Level:   LevelError,
		Kind:    KindOf(err),
		Op:      op,
		App:     app,
		Message: err.Error(),
	}
}
