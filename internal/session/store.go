// Package session owns the persisted credential pair for the Cloudbox API.
// The Store is the single writer of the access/refresh token pair: both
// tokens are always swapped together, so no reader ever observes a half
// session. State is persisted to a JSON file (0600, atomic temp + rename)
// and survives process restarts; scope is process-wide — every request in
// flight reads through the same Store.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

// FilePerms restricts the session file to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the session directory.
const DirPerms = 0o700

// Pair is an access/refresh token pair. Tokens are opaque bearer strings;
// the client never introspects expiry — a 401 from the server is the only
// source of truth about validity.
type Pair struct {
	Access  string
	Refresh string
}

// Zero reports whether the pair is empty.
func (p Pair) Zero() bool {
	return p.Access == "" && p.Refresh == ""
}

// file is the on-disk format for the session file. Meta carries cached
// profile fields (username, email) so `whoami` can print something useful
// without a network round trip.
type file struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	Meta         map[string]string `json:"meta,omitempty"`
}

// Store holds the current session in memory and mirrors it to disk.
// All methods are safe for concurrent use. Persistence failures are logged
// and do not fail the mutation — the in-memory state is authoritative for
// the lifetime of the process.
type Store struct {
	mu     sync.RWMutex
	path   string
	logger *slog.Logger

	pair Pair
	meta map[string]string
}

// Open loads the session file at path if it exists and returns a Store.
// A missing file is not an error: the store starts empty (logged out).
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{path: path, logger: logger}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}

	if err != nil {
		return nil, fmt.Errorf("session: reading %s: %w", path, err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("session: decoding %s: %w", path, err)
	}

	// Enforce the pair invariant on load: a file with only one token is
	// treated as no session at all.
	if f.AccessToken == "" || f.RefreshToken == "" {
		logger.Warn("session file incomplete, starting logged out",
			slog.String("path", path),
		)

		return s, nil
	}

	s.pair = Pair{Access: f.AccessToken, Refresh: f.RefreshToken}
	s.meta = f.Meta

	return s, nil
}

// Pair returns the current token pair. ok is false when no session exists.
// Never fails: an empty store simply reports ok=false.
func (s *Store) Pair() (Pair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.pair, !s.pair.Zero()
}

// Set replaces both tokens together and persists the session.
func (s *Store) Set(p Pair) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pair = p
	s.persistLocked()
}

// Replace swaps in the new pair only if the stored pair still equals old.
// Returns false without mutating when the store changed since old was read
// (e.g. an explicit logout raced a token refresh — the refresh completes
// but its result is dropped, and the store stays cleared).
func (s *Store) Replace(old, updated Pair) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pair != old {
		return false
	}

	s.pair = updated
	s.persistLocked()

	return true
}

// Clear removes both tokens and cached metadata, and deletes the session
// file. Clearing an already-empty store is a no-op.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pair = Pair{}
	s.meta = nil

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("failed to remove session file",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
	}
}

// Meta returns a copy of the cached profile metadata.
func (s *Store) Meta() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.meta == nil {
		return nil
	}

	out := make(map[string]string, len(s.meta))
	maps.Copy(out, s.meta)

	return out
}

// SetMeta merges metadata keys into the cache (new keys overwrite existing)
// and persists. A store without a session does not persist metadata.
func (s *Store) SetMeta(meta map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pair.Zero() {
		return
	}

	if s.meta == nil {
		s.meta = make(map[string]string, len(meta))
	}

	maps.Copy(s.meta, meta)
	s.persistLocked()
}

// persistLocked writes the session file atomically (temp file in the same
// directory, then rename). Callers hold s.mu. Write failures are logged,
// never propagated: the in-memory session remains valid and the next
// mutation retries the write. Token values are never logged.
func (s *Store) persistLocked() {
	if s.pair.Zero() {
		return
	}

	f := file{
		AccessToken:  s.pair.Access,
		RefreshToken: s.pair.Refresh,
		Meta:         s.meta,
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		s.logger.Warn("failed to encode session file", slog.String("error", err.Error()))
		return
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, DirPerms); err != nil {
		s.logger.Warn("failed to create session directory",
			slog.String("dir", dir),
			slog.String("error", err.Error()),
		)

		return
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		s.logger.Warn("failed to create session temp file", slog.String("error", err.Error()))
		return
	}

	tmpPath := tmp.Name()

	if err := writeAndClose(tmp, data); err != nil {
		_ = os.Remove(tmpPath)
		s.logger.Warn("failed to write session file", slog.String("error", err.Error()))

		return
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		s.logger.Warn("failed to rename session file",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
	}
}

// writeAndClose sets permissions, writes data, syncs, and closes the temp
// file. Sync before rename so a crash cannot leave a partial session file
// at the final path.
func writeAndClose(tmp *os.File, data []byte) error {
	if err := tmp.Chmod(FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing: %w", err)
	}

	return nil
}
