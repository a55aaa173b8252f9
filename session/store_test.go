package session

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() *Session {
	return &Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "bearer",
		ExpiresAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		User:         User{ID: "user-1", Email: "ana@example.com"},
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	original := testSession()
	require.NoError(t, store.Save(ctx, original))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)

	loaded.AccessToken = "mutated"
	again, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-1", again.AccessToken, "callers must get a copy")

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	assert.Error(t, store.Save(ctx, nil))
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", DefaultFileName)

	store, err := NewFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, store.Save(ctx, testSession()))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, testSession(), loaded)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(filepath.Join(t.TempDir(), DefaultFileName))
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, testSession()))
	next := testSession()
	next.AccessToken = "access-2"
	next.RefreshToken = "refresh-2"
	require.NoError(t, store.Save(ctx, next))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-2", loaded.AccessToken)
	assert.Equal(t, "refresh-2", loaded.RefreshToken)
}

func TestFileStoreClear(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(filepath.Join(t.TempDir(), DefaultFileName))
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx), "clearing an empty store")
	require.NoError(t, store.Save(ctx, testSession()))
	require.NoError(t, store.Clear(ctx))

	_, err = os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = store.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
	assert.Contains(t, err.Error(), path)
}

func TestFileStoreEmptyTokenIsNoSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"access_token":""}`), 0o600))

	store, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestNewFileStoreDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	t.Setenv("AppData", dir)

	store, err := NewFileStore("")
	require.NoError(t, err)
	assert.Equal(t, DefaultFileName, filepath.Base(store.Path()))
	assert.Equal(t, DefaultDirName, filepath.Base(filepath.Dir(store.Path())))
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := &Session{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, s.Expired(now, 30*time.Second))
	assert.True(t, s.Expired(now, time.Minute))
	assert.True(t, s.Expired(now.Add(2*time.Minute), 0))

	assert.False(t, (&Session{}).Expired(now, time.Hour), "zero expiry never expires")
}

func TestTokenResponseSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("absolute expiry wins", func(t *testing.T) {
		r := &tokenResponse{AccessToken: "a", ExpiresIn: 60, ExpiresAt: now.Add(time.Hour).Unix()}
		s, err := r.session(now)
		require.NoError(t, err)
		assert.Equal(t, now.Add(time.Hour), s.ExpiresAt)
	})

	t.Run("relative expiry", func(t *testing.T) {
		r := &tokenResponse{AccessToken: "a", RefreshToken: "r", ExpiresIn: 60, User: User{ID: "u"}}
		s, err := r.session(now)
		require.NoError(t, err)
		assert.Equal(t, now.Add(time.Minute), s.ExpiresAt)
		assert.Equal(t, "r", s.RefreshToken)
		assert.Equal(t, "u", s.User.ID)
	})

	t.Run("missing access token", func(t *testing.T) {
		_, err := (&tokenResponse{RefreshToken: "r"}).session(now)
		assert.ErrorIs(t, err, errNoAccessToken)
	})
}
