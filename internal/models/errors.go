package models

import (
	"errors"
	"strings"
)

// ErrorKind classifies failures surfaced by the control surface.
type ErrorKind string

const (
	KindNetworkFailure    ErrorKind = "network_failure"
	KindDuplicateName     ErrorKind = "duplicate_name"
	KindNotFound          ErrorKind = "not_found"
	KindValidationFailure ErrorKind = "validation_failure"
	KindAuthFailure       ErrorKind = "auth_failure"
	KindPasswordMismatch  ErrorKind = "password_mismatch"
	KindConflict          ErrorKind = "conflict"
)

// Kind sentinels for errors.Is.
var (
	ErrNetworkFailure    = &Error{Kind: KindNetworkFailure}
	ErrDuplicateName     = &Error{Kind: KindDuplicateName}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrValidationFailure = &Error{Kind: KindValidationFailure}
	ErrAuthFailure       = &Error{Kind: KindAuthFailure}
	ErrPasswordMismatch  = &Error{Kind: KindPasswordMismatch}
	ErrConflict          = &Error{Kind: KindConflict}
)

// Field validation errors.
var (
	ErrNameRequired     = errors.New("name is required")
	ErrExecuteRequired  = errors.New("execute is required")
	ErrInvalidAppType   = errors.New("appType must be one of java, python, npm, node, go, other")
	ErrInvalidTimeout   = errors.New("timeout must be a positive number of seconds")
	ErrRenameNotAllowed = errors.New("renaming an application is not supported")
)

// Error is a classified failure. Op names the operation (start, save config),
// App the application it concerned, if any.
type Error struct {
	Kind    ErrorKind
	Op      string
	App     string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
	}
	if e.App != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(e.App)
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = strings.ReplaceAll(string(e.Kind), "_", " ")
	}
	if b.Len() > 0 {
		b.WriteString(": ")
	}
	b.WriteString(msg)
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a bare kind sentinel such as ErrNotFound.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op != "" || t.App != "" || t.Message != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the classification of err, or "" when err is not classified.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var problems *ConfigProblems
	if errors.As(err, &problems) {
		return KindValidationFailure
	}
	return ""
}

// IsAuthFailure reports whether err should force the session to end.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrAuthFailure)
}
