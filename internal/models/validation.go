package models

import (
	"errors"
	"fmt"
	"strings"
)

// FieldProblem is one rejected field of an application config.
type FieldProblem struct {
	// Field is a path such as "timeoutSeconds" or "apps[2].name".
	Field  string `json:"field"`
	Reason string `json:"reason"`

	// Err is the field sentinel behind the problem, like ErrNameRequired.
	Err error `json:"-"`
}

func (p FieldProblem) String() string {
	if p.Field == "" {
		return p.Reason
	}
	return p.Field + ": " + p.Reason
}

// ConfigProblems is a validation failure listing every rejected field.
// errors.Is matches ErrValidationFailure and the field sentinels, and
// KindOf reports KindValidationFailure.
type ConfigProblems struct {
	// App names the rejected application, if a single one was checked.
	App      string         `json:"app,omitempty"`
	Problems []FieldProblem `json:"problems"`
}

// Reject records field as failing with sentinel err.
func (p *ConfigProblems) Reject(field string, err error) {
	p.Problems = append(p.Problems, FieldProblem{Field: field, Reason: err.Error(), Err: err})
}

// Rejectf records field as failing with a formatted reason.
func (p *ConfigProblems) Rejectf(field, format string, args ...any) {
	p.Problems = append(p.Problems, FieldProblem{Field: field, Reason: fmt.Sprintf(format, args...)})
}

// Nest records err under prefix. The problems of a nested ConfigProblems
// keep their own fields below prefix.
func (p *ConfigProblems) Nest(prefix string, err error) {
	if err == nil {
		return
	}
	var inner *ConfigProblems
	if !errors.As(err, &inner) {
		p.Problems = append(p.Problems, FieldProblem{Field: prefix, Reason: err.Error(), Err: err})
		return
	}
	for _, problem := range inner.Problems {
		if problem.Field == "" {
			problem.Field = prefix
		} else {
			problem.Field = prefix + "." + problem.Field
		}
		p.Problems = append(p.Problems, problem)
	}
}

// Err returns p as an error, or nil when nothing was rejected.
func (p *ConfigProblems) Err() error {
	if p == nil || len(p.Problems) == 0 {
		return nil
	}
	return p
}

func (p *ConfigProblems) Error() string {
	parts := make([]string, len(p.Problems))
	for i, problem := range p.Problems {
		parts[i] = problem.String()
	}
	msg := strings.Join(parts, "; ")
	if msg == "" {
		msg = "invalid config"
	}
	if p.App != "" {
		return p.App + ": " + msg
	}
	return msg
}

func (p *ConfigProblems) Is(target error) bool {
	if ErrValidationFailure.Is(target) {
		return true
	}
	for _, problem := range p.Problems {
		if problem.Err != nil && errors.Is(problem.Err, target) {
			return true
		}
	}
	return false
}
