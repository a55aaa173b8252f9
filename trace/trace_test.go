package trace

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureTraceIDUsesExisting(t *testing.T) {
	ctx := WithTraceID(context.Background(), "existing-trace-id")
	assert.Equal(t, "existing-trace-id", EnsureTraceID(ctx))
}

func TestEnsureTraceIDGeneratesWhenMissing(t *testing.T) {
	got := EnsureTraceID(context.Background())

	parsed, err := uuid.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
}

func TestIDFromContextIgnoresEmpty(t *testing.T) {
	_, ok := IDFromContext(WithTraceID(context.Background(), ""))
	assert.False(t, ok)

	_, ok = IDFromContext(context.Background())
	assert.False(t, ok)
}

func TestEnsureContext(t *testing.T) {
	t.Run("stores generated id", func(t *testing.T) {
		ctx, id := EnsureContext(context.Background())
		require.NotEmpty(t, id)

		stored, ok := IDFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, id, stored)

		_, again := EnsureContext(ctx)
		assert.Equal(t, id, again)
	})

	t.Run("keeps existing id", func(t *testing.T) {
		parent := WithTraceID(context.Background(), "abc")
		ctx, id := EnsureContext(parent)
		assert.Equal(t, "abc", id)
		assert.Equal(t, parent, ctx)
	})
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for range 100 {
		id := NewID()
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}
