package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/avalier/sitechat/internal/domain"
	_ "modernc.org/sqlite"
)

// profileKey is the fixed key of the single persisted session record, the
// local-profile analog of the browser storage slot the widget grew out of.
const profileKey = "profile"

// SQLiteStore implements SessionStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed session store.
func NewSQLite(dbPath string) (SessionStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		profile_key TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Load retrieves the persisted session. Absence and read failures both
// yield nil; a failed load must never block a fresh onboarding.
func (s *SQLiteStore) Load(ctx context.Context) *domain.UserSession {
	query := `SELECT session_id, name, email FROM sessions WHERE profile_key = ?`
	row := s.db.QueryRowContext(ctx, query, profileKey)

	var session domain.UserSession
	var email sql.NullString

	err := row.Scan(&session.ID, &session.Name, &email)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		slog.Warn("Failed to load session, treating as absent", "error", err)
		return nil
	}
	if session.ID == "" || session.Name == "" {
		slog.Warn("Persisted session record is incomplete, treating as absent")
		return nil
	}

	session.Email = email.String
	return &session
}

// Save creates or overwrites the full session record.
func (s *SQLiteStore) Save(ctx context.Context, session *domain.UserSession) error {
	query := `
	INSERT INTO sessions (profile_key, session_id, name, email, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(profile_key) DO UPDATE SET
		session_id = excluded.session_id,
		name = excluded.name,
		email = excluded.email,
		updated_at = excluded.updated_at`

	email := sql.NullString{String: session.Email, Valid: session.Email != ""}
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, query,
		profileKey, session.ID, session.Name, email, now, now,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear removes the persisted session record.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE profile_key = ?`, profileKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
