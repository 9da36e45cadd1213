// Package store persists application settings and generation session
// history in a local SQLite database.
//
// The Gemini API key is deliberately never stored here; it lives only in
// the environment or an in-process override.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ─── Types ───────────────────────────────────────────────────────────────────

// Session statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Session is one generation run, from idea to archive.
type Session struct {
	ID        string  `json:"id"`
	Idea      string  `json:"idea"`
	Status    string  `json:"status"`
	Phase     string  `json:"phase"`
	ZipPath   *string `json:"zip_path,omitempty"`
	Error     *string `json:"error,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("store: session not found")

// ErrSecretSetting is returned when something tries to persist a secret.
var ErrSecretSetting = errors.New("store: refusing to persist a secret setting")

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds store configuration.
type Config struct {
	DataDir string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir: filepath.Join(home, ".planforge"),
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the SQLite-backed settings and session store.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New opens the database, applies pragmas, and runs migrations. The data
// directory is created if needed.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "planforge.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			idea       TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'running',
			phase      TEXT NOT NULL DEFAULT '',
			zip_path   TEXT,
			error      TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at DESC);

		CREATE TABLE IF NOT EXISTS settings (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// ─── Sessions ────────────────────────────────────────────────────────────────

// CreateSession records a new running session for idea.
func (s *Store) CreateSession(idea string) (*Session, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, idea, status) VALUES (?, ?, ?)`,
		id, idea, StatusRunning,
	)
	if err != nil {
		return nil, fmt.Errorf("store: create session: %w", err)
	}
	return s.GetSession(id)
}

// SetPhase updates the current pipeline phase of a running session.
func (s *Store) SetPhase(id, phase string) error {
	return s.touch(id, `UPDATE sessions SET phase = ?, updated_at = datetime('now') WHERE id = ?`, phase, id)
}

// CompleteSession marks a session finished with its archive path.
func (s *Store) CompleteSession(id, zipPath string) error {
	return s.touch(id,
		`UPDATE sessions SET status = ?, zip_path = ?, phase = 'done', updated_at = datetime('now') WHERE id = ?`,
		StatusCompleted, zipPath, id,
	)
}

// FailSession marks a session failed with the error text.
func (s *Store) FailSession(id, errText string) error {
	return s.touch(id,
		`UPDATE sessions SET status = ?, error = ?, updated_at = datetime('now') WHERE id = ?`,
		StatusFailed, errText, id,
	)
}

func (s *Store) touch(id, query string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("store: update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// GetSession fetches one session by id.
func (s *Store) GetSession(id string) (*Session, error) {
	row := s.db.QueryRow(
		`SELECT id, idea, status, phase, zip_path, error, created_at, updated_at
		 FROM sessions WHERE id = ?`, id,
	)
	var sess Session
	err := row.Scan(&sess.ID, &sess.Idea, &sess.Status, &sess.Phase,
		&sess.ZipPath, &sess.Error, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get session: %w", err)
	}
	return &sess, nil
}

// ListSessions returns the most recent sessions, newest first.
func (s *Store) ListSessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, idea, status, phase, zip_path, error, created_at, updated_at
		 FROM sessions ORDER BY created_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Idea, &sess.Status, &sess.Phase,
			&sess.ZipPath, &sess.Error, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	return out, nil
}

// ─── Settings ────────────────────────────────────────────────────────────────

// Setting keys.
const (
	SettingOutputDir = "output_dir"
	SettingLogDir    = "log_dir"
)

// SetSetting stores a key/value pair. Keys that look like secrets are
// rejected so credentials never land on disk.
func (s *Store) SetSetting(key, value string) error {
	lower := strings.ToLower(key)
	if strings.Contains(lower, "api_key") || strings.Contains(lower, "secret") || strings.Contains(lower, "token") {
		return fmt.Errorf("%w: %s", ErrSecretSetting, key)
	}
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("store: set setting %s: %w", key, err)
	}
	return nil
}

// GetSetting returns the value for key, or fallback when unset.
func (s *Store) GetSetting(key, fallback string) (string, error) {
	row := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key)
	var value string
	err := row.Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("store: get setting %s: %w", key, err)
	}
	return value, nil
}

// ─── API key resolution ──────────────────────────────────────────────────────

// GeminiKeyEnv is where the API key is read from when no override is set.
const GeminiKeyEnv = "GEMINI_API_KEY"

// ResolveAPIKey returns the Gemini API key: an explicit override wins,
// then the environment. It is never read from or written to the database.
func ResolveAPIKey(override string) (string, error) {
	if k := strings.TrimSpace(override); k != "" {
		return k, nil
	}
	if k := strings.TrimSpace(os.Getenv(GeminiKeyEnv)); k != "" {
		return k, nil
	}
	return "", fmt.Errorf("store: no API key: set %s", GeminiKeyEnv)
}
