package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured marks an optional feature, such as Supabase auth, that was left out
// of the configuration on purpose.
var ErrNotConfigured = errors.New("not configured")

// Error categories.
const (
	CategoryMissing       = "missing"
	CategoryInvalid       = "invalid"
	CategoryNotConfigured = "not_configured"
)

// ConfigError describes a bad or absent configuration value and tells the user which
// environment variable or YAML key fixes it. Messages are lowercase.
//
//nolint:revive // config.ConfigError reads better at call sites than config.Error
type ConfigError struct {
	Category string   // one of the Category constants
	Field    string   // key path, e.g. "supabase.anonkey"
	Message  string   // what is wrong
	Action   string   // how to fix it
	Details  []string // extra hints
}

// Error renders "config_<category>: <field> <message> <action> <details>", skipping
// empty parts.
func (e *ConfigError) Error() string {
	parts := make([]string, 0, 5)
	if e.Category != "" {
		parts = append(parts, "config_"+e.Category+":")
	}
	for _, p := range []string{e.Field, e.Message, e.Action} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(e.Details) > 0 {
		parts = append(parts, strings.Join(e.Details, "; "))
	}
	return strings.Join(parts, " ")
}

// Unwrap returns nil: a ConfigError is always the root cause.
func (e *ConfigError) Unwrap() error {
	return nil
}

// NewMissingFieldError reports a required key with no value.
func NewMissingFieldError(field, envVar, yamlPath string) *ConfigError {
	return &ConfigError{
		Category: CategoryMissing,
		Field:    field,
		Message:  "required",
		Action:   fmt.Sprintf("set %s env var or add %s to config.yaml", envVar, yamlPath),
	}
}

// NewInvalidFieldError reports a value that failed validation. validOptions, when
// given, are listed in the action.
func NewInvalidFieldError(field, message string, validOptions []string) *ConfigError {
	err := &ConfigError{Category: CategoryInvalid, Field: field, Message: message}
	if len(validOptions) > 0 {
		err.Action = "must be one of: " + strings.Join(validOptions, ", ")
	}
	return err
}

// NewNotConfiguredError explains how to turn on an optional feature.
func NewNotConfiguredError(feature, envVar, yamlPath string) *ConfigError {
	return &ConfigError{
		Category: CategoryNotConfigured,
		Field:    feature,
		Message:  "(optional)",
		Action:   fmt.Sprintf("to enable: set %s env var or add %s to config.yaml", envVar, yamlPath),
	}
}

// NewValidationError reports an invalid value with a free-form message.
func NewValidationError(field, message string) *ConfigError {
	return &ConfigError{Category: CategoryInvalid, Field: field, Message: message}
}

// IsNotConfigured reports whether err, or anything it wraps, is ErrNotConfigured or a
// ConfigError of the not_configured category.
func IsNotConfigured(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotConfigured) {
		return true
	}
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr) && cfgErr.Category == CategoryNotConfigured
}
