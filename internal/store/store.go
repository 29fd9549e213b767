// Package store persists sync state between runs: status, counters, the
// authenticated session, and a history of synced submissions. Both the watch
// loop and the login/status commands read and write it; individual operations
// are serialized, last write wins.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Status is the persisted sync status shown by the status command.
type Status string

const (
	StatusIdle      Status = "Idle"
	StatusConnected Status = "Connected"
	StatusSyncing   Status = "Syncing"
	StatusSynced    Status = "Synced"
	StatusError     Status = "Error"
)

// Persisted key names. The settings themselves live in the config file; these
// cover runtime state and the authenticated session.
const (
	KeySyncStatus     = "syncStatus"
	KeyProblemsSynced = "problemsSynced"
	KeyLastSync       = "lastSync"
	KeyAuthToken      = "authToken"
	KeyUserEmail      = "userEmail"
	KeyUserName       = "userName"
	KeyUserID         = "userId"
	KeyLoginTime      = "loginTime"
)

// Submission is one row of the synced-submission history.
type Submission struct {
	ID       int64
	Slug     string
	Title    string
	Language string
	SyncedAt time.Time
}

// Store is the SQLite-backed state store.
type Store struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

// Open initializes the database at path, creating the directory and schema as
// needed. Missing runtime keys are seeded with defaults; existing values are
// never overwritten, so state survives upgrades.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("set journal_mode: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS submissions (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		slug      TEXT NOT NULL,
		title     TEXT NOT NULL,
		language  TEXT NOT NULL,
		synced_at TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}

	// Seed defaults without clobbering existing state.
	defaults := map[string]string{
		KeySyncStatus:     string(StatusIdle),
		KeyProblemsSynced: "0",
	}
	for key, value := range defaults {
		if _, err := s.db.Exec(
			`INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO NOTHING`,
			key, value,
		); err != nil {
			return fmt.Errorf("seed default %s: %w", key, err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the stored value for key, or "" when absent.
func (s *Store) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// SetStatus updates the persisted sync status.
func (s *Store) SetStatus(status Status) error {
	return s.Set(KeySyncStatus, string(status))
}

// SyncStatus returns the persisted sync status.
func (s *Store) SyncStatus() (Status, error) {
	value, err := s.Get(KeySyncStatus)
	if err != nil {
		return "", err
	}
	if value == "" {
		return StatusIdle, nil
	}
	return Status(value), nil
}

// ProblemsSynced returns the synced-problem counter.
func (s *Store) ProblemsSynced() (int, error) {
	value, err := s.Get(KeyProblemsSynced)
	if err != nil {
		return 0, err
	}
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", KeyProblemsSynced, err)
	}
	return n, nil
}

// LastSync returns the last successful sync time, or false when none exists.
func (s *Store) LastSync() (time.Time, bool, error) {
	value, err := s.Get(KeyLastSync)
	if err != nil || value == "" {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse %s: %w", KeyLastSync, err)
	}
	return t, true, nil
}

// MarkSynced records one successful delivery: bumps the counter, stamps
// lastSync, sets status to Synced, and appends the submission history row.
// Returns the new counter value.
func (s *Store) MarkSynced(slug, title, language string, at time.Time) (int, error) {
	count, err := s.ProblemsSynced()
	if err != nil {
		return 0, err
	}
	count++

	if err := s.Set(KeyProblemsSynced, strconv.Itoa(count)); err != nil {
		return 0, err
	}
	if err := s.Set(KeyLastSync, at.UTC().Format(time.RFC3339)); err != nil {
		return 0, err
	}
	if err := s.SetStatus(StatusSynced); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(
		`INSERT INTO submissions (slug, title, language, synced_at) VALUES (?, ?, ?, ?)`,
		slug, title, language, at.UTC().Format(time.RFC3339),
	); err != nil {
		return 0, fmt.Errorf("record submission: %w", err)
	}
	return count, nil
}

// RecentSubmissions returns up to limit history rows, newest first.
func (s *Store) RecentSubmissions(limit int) ([]Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, slug, title, language, synced_at FROM submissions ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var result []Submission
	for rows.Next() {
		var sub Submission
		var syncedAt string
		if err := rows.Scan(&sub.ID, &sub.Slug, &sub.Title, &sub.Language, &syncedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, syncedAt); err == nil {
			sub.SyncedAt = t
		}
		result = append(result, sub)
	}
	return result, rows.Err()
}

// Reset clears all persisted state, including the authenticated session and
// the submission history. Used on logout.
func (s *Store) Reset() error {
	s.mu.Lock()
	if _, err := s.db.Exec(`DELETE FROM kv`); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("clear state: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM submissions`); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("clear submissions: %w", err)
	}
	s.mu.Unlock()
	return s.initialize()
}
