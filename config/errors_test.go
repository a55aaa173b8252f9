package config

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigErrorError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConfigError
		expected string
	}{
		{
			name: "all parts",
			err: &ConfigError{
				Category: "missing",
				Field:    "api.baseurl",
				Message:  "required",
				Action:   "set EXAMPREP_API_BASEURL env var or add api.baseurl to config.yaml",
				Details:  []string{"detail1", "detail2"},
			},
			expected: "config_missing: api.baseurl required set EXAMPREP_API_BASEURL env var or add api.baseurl to config.yaml detail1; detail2",
		},
		{
			name:     "without category",
			err:      &ConfigError{Field: "app.name", Message: "required"},
			expected: "app.name required",
		},
		{
			name:     "only details",
			err:      &ConfigError{Details: []string{"a", "b"}},
			expected: "a; b",
		},
		{
			name:     "empty",
			err:      &ConfigError{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestConfigErrorIsLeaf(t *testing.T) {
	assert.NoError(t, (&ConfigError{Category: "invalid"}).Unwrap())
}

func TestConstructors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		err := NewMissingFieldError("supabase.anonkey", "EXAMPREP_SUPABASE_ANONKEY", "supabase.anonkey")
		assert.Equal(t, "missing", err.Category)
		assert.Equal(t, "required", err.Message)
		assert.Contains(t, err.Action, "EXAMPREP_SUPABASE_ANONKEY")
	})

	t.Run("invalid with options", func(t *testing.T) {
		err := NewInvalidFieldError("log.level", "invalid value loud", []string{"debug", "info"})
		assert.Equal(t, "invalid", err.Category)
		assert.Equal(t, "must be one of: debug, info", err.Action)
	})

	t.Run("invalid without options", func(t *testing.T) {
		err := NewInvalidFieldError("api.retries", "must be at most 10", nil)
		assert.Empty(t, err.Action)
	})

	t.Run("not configured", func(t *testing.T) {
		err := NewNotConfiguredError("supabase", "EXAMPREP_SUPABASE_URL", "supabase.url")
		assert.Equal(t, "not_configured", err.Category)
		assert.Contains(t, err.Error(), "to enable")
	})

	t.Run("validation", func(t *testing.T) {
		err := NewValidationError("config", "is nil")
		assert.Equal(t, "config_invalid: config is nil", err.Error())
	})
}

func TestIsNotConfigured(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "sentinel", err: ErrNotConfigured, expected: true},
		{name: "wrapped sentinel", err: fmt.Errorf("supabase: %w", ErrNotConfigured), expected: true},
		{name: "config error", err: NewNotConfiguredError("supabase", "X", "y"), expected: true},
		{name: "wrapped config error", err: fmt.Errorf("login: %w", NewNotConfiguredError("supabase", "X", "y")), expected: true},
		{name: "other category", err: NewMissingFieldError("a", "B", "c"), expected: false},
		{name: "plain error", err: errors.New("boom"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNotConfigured(tt.err))
		})
	}
}

func TestConfigErrorAs(t *testing.T) {
	wrapped := fmt.Errorf("invalid configuration: %w", NewMissingFieldError("api.baseurl", "EXAMPREP_API_BASEURL", "api.baseurl"))

	var cfgErr *ConfigError
	require.ErrorAs(t, wrapped, &cfgErr)
	assert.Equal(t, "api.baseurl", cfgErr.Field)
}
