package session

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tempSessionPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "session.json")
}

func TestOpenMissingFileStartsLoggedOut(t *testing.T) {
	store, err := Open(tempSessionPath(t), testLogger())
	require.NoError(t, err)

	_, ok := store.Pair()
	assert.False(t, ok)
}

func TestSetPersistsAndReopens(t *testing.T) {
	path := tempSessionPath(t)

	store, err := Open(path, testLogger())
	require.NoError(t, err)

	store.Set(Pair{Access: "a1", Refresh: "r1"})
	store.SetMeta(map[string]string{"username": "alice"})

	// File exists with owner-only permissions.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())

	reopened, err := Open(path, testLogger())
	require.NoError(t, err)

	pair, ok := reopened.Pair()
	require.True(t, ok)
	assert.Equal(t, Pair{Access: "a1", Refresh: "r1"}, pair)
	assert.Equal(t, "alice", reopened.Meta()["username"])
}

func TestOpenIncompleteFileStartsLoggedOut(t *testing.T) {
	path := tempSessionPath(t)

	// Only an access token on disk violates the pair invariant.
	data, err := json.Marshal(map[string]string{"access_token": "only-half"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	store, err := Open(path, testLogger())
	require.NoError(t, err)

	_, ok := store.Pair()
	assert.False(t, ok)
}

func TestOpenCorruptFileFails(t *testing.T) {
	path := tempSessionPath(t)
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := Open(path, testLogger())
	assert.Error(t, err)
}

func TestReplaceSwapsOnlyWhenUnchanged(t *testing.T) {
	store, err := Open(tempSessionPath(t), testLogger())
	require.NoError(t, err)

	old := Pair{Access: "a1", Refresh: "r1"}
	updated := Pair{Access: "a2", Refresh: "r2"}

	store.Set(old)

	assert.True(t, store.Replace(old, updated))

	pair, ok := store.Pair()
	require.True(t, ok)
	assert.Equal(t, updated, pair)

	// A second replace against the stale snapshot must be refused.
	assert.False(t, store.Replace(old, Pair{Access: "a3", Refresh: "r3"}))

	pair, _ = store.Pair()
	assert.Equal(t, updated, pair)
}

func TestReplaceAfterClearIsRefused(t *testing.T) {
	store, err := Open(tempSessionPath(t), testLogger())
	require.NoError(t, err)

	old := Pair{Access: "a1", Refresh: "r1"}
	store.Set(old)
	store.Clear()

	// Refresh result arriving after logout is dropped.
	assert.False(t, store.Replace(old, Pair{Access: "a2", Refresh: "r2"}))

	_, ok := store.Pair()
	assert.False(t, ok)
}

func TestClearRemovesFile(t *testing.T) {
	path := tempSessionPath(t)

	store, err := Open(path, testLogger())
	require.NoError(t, err)

	store.Set(Pair{Access: "a", Refresh: "r"})
	require.FileExists(t, path)

	store.Clear()

	assert.NoFileExists(t, path)

	_, ok := store.Pair()
	assert.False(t, ok)
	assert.Nil(t, store.Meta())
}

func TestSetMetaWithoutSessionIsDropped(t *testing.T) {
	store, err := Open(tempSessionPath(t), testLogger())
	require.NoError(t, err)

	store.SetMeta(map[string]string{"username": "ghost"})

	assert.Nil(t, store.Meta())
}

func TestMetaReturnsACopy(t *testing.T) {
	store, err := Open(tempSessionPath(t), testLogger())
	require.NoError(t, err)

	store.Set(Pair{Access: "a", Refresh: "r"})
	store.SetMeta(map[string]string{"username": "alice"})

	m := store.Meta()
	m["username"] = "mallory"

	assert.Equal(t, "alice", store.Meta()["username"])
}
