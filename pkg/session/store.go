// Package session persists conversation sessions and their events.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a session does not exist
var ErrNotFound = errors.New("session not found")

// Session represents a stored conversation session
type Session struct {
	ID        string    `json:"id"`
	AppName   string    `json:"app_name"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Event represents a single conversation turn within a session
type Event struct {
	ID        int64                  `json:"id"`
	SessionID string                 `json:"session_id"`
	Author    string                 `json:"author"`
	Content   string                 `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Store is a SQLite-backed session store
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// New opens (creating if needed) the session database at dir/sessions.db
func New(dir string, logger zerolog.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("session directory is required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	dbPath := filepath.Join(dir, "sessions.db")
	db, err := sql.Open("sqlite3", dbPath+"?_fk=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	// WAL mode for concurrent readers during writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("Session store initialized")
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			app_name TEXT NOT NULL,
			user_id TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_app_user ON sessions(app_name, user_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);

		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			author TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			metadata TEXT,
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Create creates a new session for an app/user pair
func (s *Store) Create(ctx context.Context, appName, userID string) (*Session, error) {
	if appName == "" || userID == "" {
		return nil, errors.New("app name and user ID are required")
	}
	if strings.ContainsAny(appName, `/\`) || strings.ContainsAny(userID, `/\`) {
		return nil, errors.New("app name and user ID must not contain path separators")
	}

	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.NewString(),
		AppName:   appName,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, app_name, user_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.AppName, sess.UserID, now.Unix(), now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Debug().Str("session_id", sess.ID).Str("app", appName).Msg("Session created")
	return sess, nil
}

// Get returns a session by ID
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, app_name, user_id, created_at, updated_at FROM sessions WHERE id = ?`, id)

	var sess Session
	var created, updated int64
	if err := row.Scan(&sess.ID, &sess.AppName, &sess.UserID, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	sess.CreatedAt = time.Unix(created, 0).UTC()
	sess.UpdatedAt = time.Unix(updated, 0).UTC()
	return &sess, nil
}

// List returns sessions for an app/user pair, newest first
func (s *Store) List(ctx context.Context, appName, userID string) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, app_name, user_id, created_at, updated_at FROM sessions
		 WHERE app_name = ? AND user_id = ? ORDER BY updated_at DESC`, appName, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var sess Session
		var created, updated int64
		if err := rows.Scan(&sess.ID, &sess.AppName, &sess.UserID, &created, &updated); err != nil {
			return nil, err
		}
		sess.CreatedAt = time.Unix(created, 0).UTC()
		sess.UpdatedAt = time.Unix(updated, 0).UTC()
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

// Delete removes a session and its events
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored sessions
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n)
	return n, err
}

// AppendEvent appends a conversation event and bumps the session timestamp
func (s *Store) AppendEvent(ctx context.Context, sessionID, author, content string, metadata map[string]interface{}) error {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return err
	}

	var metaJSON sql.NullString
	if len(metadata) > 0 {
		data, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal event metadata: %w", err)
		}
		metaJSON = sql.NullString{String: string(data), Valid: true}
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO events (session_id, author, content, timestamp, metadata) VALUES (?, ?, ?, ?, ?)`,
		sessionID, author, content, now.UnixNano(), metaJSON,
	); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`, now.Unix(), sessionID,
	); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	return tx.Commit()
}

// Events returns all events of a session in insertion order
func (s *Store) Events(ctx context.Context, sessionID string) ([]Event, error) {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, author, content, timestamp, metadata FROM events
		 WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var ev Event
		var ts int64
		var metaJSON sql.NullString
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Author, &ev.Content, &ts, &metaJSON); err != nil {
			return nil, err
		}
		ev.Timestamp = time.Unix(0, ts).UTC()
		if metaJSON.Valid {
			if err := json.Unmarshal([]byte(metaJSON.String), &ev.Metadata); err != nil {
				return nil, fmt.Errorf("failed to parse event metadata: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// PurgeIdleSince deletes sessions not updated since the cutoff and
// returns how many were removed.
func (s *Store) PurgeIdleSince(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return res.RowsAffected()
}
