// package store implements the persistent settings and credential store.
//
// Every value is JSON-encoded under a string key in a single SQLite table,
// so provider credential blobs, selection state, and frontend settings all
// share one small surface: Get, Set, MergeMap, Delete.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/duskfall/crossfade/internal/shared"
)

// Store is a JSON key-value settings store backed by SQLite.
//
// Safe for concurrent use; writes are serialized by an internal mutex on top
// of the database connection.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the store at path and applies pending migrations.
// Pass ":memory:" for an ephemeral in-memory store.
func Open(path string) (*Store, error) {
	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, err
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get retrieves the value for key, decoding into out (a pointer).
// Returns false when the key is absent; out is left untouched in that case.
func (s *Store) Get(key string, out any) (bool, error) {
	var raw string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read key %q: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("failed to decode key %q: %w", key, err)
	}
	return true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode key %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		"INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP) "+
			"ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP",
		key, string(raw),
	)
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// MergeMap shallow-merges partial into the map stored under key and returns
// the merged result. A missing or non-map existing value is replaced.
func (s *Store) MergeMap(key string, partial map[string]any) (map[string]any, error) {
	existing := make(map[string]any)
	if _, err := s.Get(key, &existing); err != nil {
		// Replace rather than fail when the stored value is not a map.
		existing = make(map[string]any)
	}

	for k, v := range partial {
		existing[k] = v
	}

	if err := s.Set(key, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete removes key from the store, reporting whether it existed.
func (s *Store) Delete(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM settings WHERE key = ?", key)
	if err != nil {
		return false, fmt.Errorf("failed to delete key %q: %w", key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
