// Package models defines the data types shared by the anyrun control surface.
package models

import (
	"strconv"
	"strings"
)

// DefaultTimeoutSeconds is applied when a config omits its stop timeout.
const DefaultTimeoutSeconds = 30

// AppType identifies how the supervisor launches an application.
type AppType string

const (
	AppTypeJava   AppType = "java"
	AppTypePython AppType = "python"
	AppTypeNPM    AppType = "npm"
	AppTypeNode   AppType = "node"
	AppTypeGo     AppType = "go"
	AppTypeOther  AppType = "other"
)

// AppTypes lists every recognised app type in display order.
var AppTypes = []AppType{AppTypeJava, AppTypePython, AppTypeNPM, AppTypeNode, AppTypeGo, AppTypeOther}

// IsValid reports whether t is one of the known app types.
func (t AppType) IsValid() bool {
	for _, known := range AppTypes {
		if t == known {
			return true
		}
	}
	return false
}

// NormalizeAppType maps free-form labels ("Java", "Node.js", "NPM") onto the enum.
// Unrecognised labels become AppTypeOther; an empty label stays empty.
func NormalizeAppType(label string) AppType {
	key := strings.ToLower(strings.TrimSpace(label))
	switch key {
	case "":
		return ""
	case "java", "jar":
		return AppTypeJava
	case "python", "python3", "py":
		return AppTypePython
	case "npm":
		return AppTypeNPM
	case "node", "nodejs", "node.js", "js":
		return AppTypeNode
	case "go", "golang":
		return AppTypeGo
	default:
		return AppTypeOther
	}
}

// AppConfig is the declarative description of one managed application.
// Name is the identity; renaming is not supported.
type AppConfig struct {
	// Name uniquely identifies the application.
	Name string `json:"name" yaml:"name"`

	// Execute is the executable or launcher (java, python, /usr/bin/myprog).
	Execute string `json:"execute" yaml:"execute"`

	// WorkingDirectory is where the process is started.
	WorkingDirectory string `json:"workingDirectory,omitempty" yaml:"working_directory,omitempty"`

	// AppType drives how the supervisor builds the command line.
	AppType AppType `json:"appType" yaml:"app_type"`

	// Arguments are passed to the executable in order.
	Arguments []string `json:"arguments" yaml:"arguments"`

	// Daemon marks processes that detach from the supervisor.
	Daemon bool `json:"daemon" yaml:"daemon"`

	// Autostart starts the application when the supervisor boots.
	Autostart bool `json:"autostart" yaml:"autostart"`

	// TimeoutSeconds bounds graceful shutdown.
	TimeoutSeconds int `json:"timeoutSeconds" yaml:"timeout_seconds"`

	// Port is the declared listening port, if any.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`
}

// Validate checks the config against the editing rules. A failure is a
// *ConfigProblems naming every rejected field.
func (c *AppConfig) Validate() error {
	problems := &ConfigProblems{App: c.Name}

	switch {
	case c.Name == "":
		problems.Reject("name", ErrNameRequired)
	case strings.TrimSpace(c.Name) != c.Name:
		problems.Rejectf("name", "name must not have leading or trailing whitespace")
	}
	if strings.TrimSpace(c.Execute) == "" {
		problems.Reject("execute", ErrExecuteRequired)
	}
	if !c.AppType.IsValid() {
		problems.Reject("appType", ErrInvalidAppType)
	}
	if c.TimeoutSeconds <= 0 {
		problems.Reject("timeoutSeconds", ErrInvalidTimeout)
	}
	if c.Port < 0 || c.Port > 65535 {
		problems.Rejectf("port", "port %d is outside 0-65535", c.Port)
	}
	for i, arg := range c.Arguments {
		if arg == "" {
			problems.Rejectf("arguments["+strconv.Itoa(i)+"]", "argument must not be empty")
		}
	}
	return problems.Err()
}

// Normalize fills defaults the way the supervisor would interpret them.
func (c *AppConfig) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.AppType = NormalizeAppType(string(c.AppType))
	if c.AppType == "" {
		c.AppType = AppTypeOther
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.Arguments == nil {
		c.Arguments = []string{}
	}
}

// Clone returns a deep copy.
func (c AppConfig) Clone() AppConfig {
	out := c
	if c.Arguments != nil {
		out.Arguments = append([]string(nil), c.Arguments...)
	}
	return out
}

// SplitArguments turns a free-text argument string into tokens.
func SplitArguments(s string) []string {
	fields := strings.Fields(s)
	if fields == nil {
		return []string{}
	}
	return fields
}

// ParseTimeout parses a user-entered timeout in seconds.
// An empty string yields the default.
func ParseTimeout(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultTimeoutSeconds, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &Error{Kind: KindValidationFailure, Op: "parse timeout", Message: "timeout must be a whole number of seconds", Err: err}
	}
	if n <= 0 {
		return 0, &Error{Kind: KindValidationFailure, Op: "parse timeout", Err: ErrInvalidTimeout}
	}
	return n, nil
}
