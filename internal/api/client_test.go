package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shobayosamuel/cloudbox-go/internal/session"
)

func TestClientPassesThroughNon401Errors(t *testing.T) {
	var refreshCalls atomic.Int32

	mux := http.NewServeMux()

	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, _ *http.Request) {
		refreshCalls.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/data", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := newTestStore(t, session.Pair{Access: "a", Refresh: "r"})
	client := NewClient(Options{BaseURL: srv.URL, Store: store, Logger: testLogger()})

	_, err := client.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/data"})

	assert.ErrorIs(t, err, ErrServerError)
	assert.Zero(t, refreshCalls.Load(), "non-401 never triggers a refresh")

	pair, ok := store.Pair()
	require.True(t, ok, "session untouched")
	assert.Equal(t, "a", pair.Access)
}

func TestClientJSONHelpers(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("/things", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]string{"a", "b"})
		case http.MethodPost:
			var in map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "widget", in["name"])

			json.NewEncoder(w).Encode(map[string]int{"id": 7})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/things/7", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := newTestStore(t, session.Pair{Access: "a", Refresh: "r"})
	client := NewClient(Options{BaseURL: srv.URL, Store: store, Logger: testLogger()})

	ctx := context.Background()

	var list []string
	require.NoError(t, client.GetJSON(ctx, "/things", &list))
	assert.Equal(t, []string{"a", "b"}, list)

	var created map[string]int
	require.NoError(t, client.PostJSON(ctx, "/things", map[string]string{"name": "widget"}, &created))
	assert.Equal(t, 7, created["id"])

	require.NoError(t, client.Delete(ctx, "/things/7"))
}

func TestLoginStoresTokenPair(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "alice", in["username"])
		assert.Equal(t, "hunter2", in["password"])

		w.Write([]byte(`{
			"tokens": {"token": "tok-a", "refreshToken": "tok-r"},
			"user": {"id": 3, "username": "alice", "email": "alice@example.com"}
		}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := newTestStore(t, session.Pair{})
	client := NewClient(Options{BaseURL: srv.URL, Store: store, Logger: testLogger()})

	user, err := client.Login(context.Background(), "alice", "hunter2")
	require.NoError(t, err)

	assert.Equal(t, int64(3), user.ID)
	assert.Equal(t, "alice", user.Username)

	pair, ok := store.Pair()
	require.True(t, ok)
	assert.Equal(t, session.Pair{Access: "tok-a", Refresh: "tok-r"}, pair)
}

func TestLoginFailureLeavesStoreEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := newTestStore(t, session.Pair{})
	client := NewClient(Options{BaseURL: srv.URL, Store: store, Logger: testLogger()})

	_, err := client.Login(context.Background(), "alice", "wrong")

	// No session yet, so the 401 resolves to session-expired without a
	// refresh attempt; either way the store must stay empty.
	require.Error(t, err)

	_, ok := store.Pair()
	assert.False(t, ok)
}

func TestProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/profile", r.URL.Path)
		assert.Equal(t, "Bearer a", r.Header.Get("Authorization"))

		w.Write([]byte(`{"id": 3, "username": "alice", "email": "alice@example.com", "lastLogin": "2026-08-30T10:00:00Z"}`))
	}))
	defer srv.Close()

	store := newTestStore(t, session.Pair{Access: "a", Refresh: "r"})
	client := NewClient(Options{BaseURL: srv.URL, Store: store, Logger: testLogger()})

	user, err := client.Profile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "2026-08-30T10:00:00Z", user.LastLogin)
}
