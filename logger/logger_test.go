package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMessage = "test message"

func newBufferLogger(t *testing.T, level string) (*ZeroLogger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	return NewWithOptions(Options{Level: level, Output: buf}), buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected zerolog.Level
	}{
		{name: "debug", level: "debug", expected: zerolog.DebugLevel},
		{name: "warn", level: "warn", expected: zerolog.WarnLevel},
		{name: "error", level: "error", expected: zerolog.ErrorLevel},
		{name: "invalid_defaults_to_info", level: "chatty", expected: zerolog.InfoLevel},
		{name: "empty_defaults_to_info", level: "", expected: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newBufferLogger(t, tt.level)
			assert.Equal(t, tt.expected, l.Level())
		})
	}
}

func TestLogEventFields(t *testing.T) {
	l, buf := newBufferLogger(t, "debug")

	l.Info().
		Str("method", "GET").
		Int("status", 200).
		Int64("call_count", 2).
		Uint64("bytes", 10).
		Dur("elapsed", 250*time.Millisecond).
		Err(errors.New("boom")).
		Msg(testMessage)

	entry := decodeLine(t, buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, testMessage, entry["message"])
	assert.Equal(t, "GET", entry["method"])
	assert.EqualValues(t, 200, entry["status"])
	assert.EqualValues(t, 2, entry["call_count"])
	assert.Equal(t, "boom", entry["error"])
	assert.Contains(t, entry, "caller")
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(t, "warn")

	l.Info().Msg("dropped")
	l.Debug().Msg("dropped too")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("kept")
	assert.Equal(t, "warn", decodeLine(t, buf)["level"])
}

func TestSensitiveFieldsAreMasked(t *testing.T) {
	t.Run("string field", func(t *testing.T) {
		l, buf := newBufferLogger(t, "info")
		l.Info().Str("authorization", "Bearer abc.def").Msg(testMessage)
		assert.Equal(t, DefaultMaskValue, decodeLine(t, buf)["authorization"])
	})

	t.Run("header set", func(t *testing.T) {
		l, buf := newBufferLogger(t, "info")
		headers := http.Header{}
		headers.Set("Authorization", "Bearer abc.def")
		headers.Set("Content-Type", "application/json")

		l.Info().Interface("headers", headers).Msg(testMessage)

		logged, ok := decodeLine(t, buf)["headers"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, []any{DefaultMaskValue}, logged["Authorization"])
		assert.Equal(t, []any{"application/json"}, logged["Content-Type"])
		assert.NotContains(t, buf.String(), "abc.def")
	})

	t.Run("with fields", func(t *testing.T) {
		l, buf := newBufferLogger(t, "info")
		l.WithFields(map[string]any{"refresh_token": "r-1", "user": "ana"}).Info().Msg(testMessage)

		entry := decodeLine(t, buf)
		assert.Equal(t, DefaultMaskValue, entry["refresh_token"])
		assert.Equal(t, "ana", entry["user"])
	})
}

func TestWithContext(t *testing.T) {
	l, _ := newBufferLogger(t, "info")

	t.Run("non context returns same logger", func(t *testing.T) {
		assert.Same(t, l, l.WithContext("not a context"))
	})

	t.Run("context without logger returns same logger", func(t *testing.T) {
		assert.Same(t, l, l.WithContext(context.Background()))
	})

	t.Run("context logger is used", func(t *testing.T) {
		buf := &bytes.Buffer{}
		zl := zerolog.New(buf)
		ctx := zl.WithContext(context.Background())

		l.WithContext(ctx).Info().Msg("from context")
		assert.Contains(t, buf.String(), "from context")
	})
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	assert.NotPanics(t, func() {
		l.Error().Str("k", "v").Msg("nothing")
	})
}
