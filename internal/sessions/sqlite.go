package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// timeLayout is fixed width so ORDER BY on the text columns is chronological.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT UNIQUE NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_sessions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    session_name TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users (id)
);

CREATE INDEX IF NOT EXISTS idx_chat_sessions_user ON chat_sessions (user_id, updated_at);

CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    chat_session_id TEXT NOT NULL,
    filename TEXT NOT NULL,
    file_path TEXT NOT NULL,
    uploaded_at TEXT NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users (id),
    FOREIGN KEY (chat_session_id) REFERENCES chat_sessions (id)
);

CREATE TABLE IF NOT EXISTS summaries (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    chat_session_id TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TEXT NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users (id),
    FOREIGN KEY (chat_session_id) REFERENCES chat_sessions (id)
);
`

// SQLiteStore is the relational store for sessions and their documents.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens dataSourceName and creates the schema if needed.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ensureUser creates a user row named after the id if none exists.
func (s *SQLiteStore) ensureUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO users (id, username, created_at) VALUES (?, ?, ?)",
		userID, userID, s.timestamp())
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// CreateSession creates a session with a new id.
func (s *SQLiteStore) CreateSession(ctx context.Context, userID, title string) (*Session, error) {
	if title == "" {
		title = DefaultSessionName
	}
	id := uuid.NewString()
	if err := s.SaveSession(ctx, userID, id, title); err != nil {
		return nil, err
	}
	return s.GetSession(ctx, userID, id)
}

// SaveSession inserts the session, or only bumps updated_at when it
// already exists.
func (s *SQLiteStore) SaveSession(ctx context.Context, userID, sessionID, title string) error {
	if title == "" {
		title = DefaultSessionName
	}
	if err := s.ensureUser(ctx, userID); err != nil {
		return err
	}

	now := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, user_id, session_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		sessionID, userID, title, now, now)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession returns ErrSessionNotFound when the user owns no such session.
func (s *SQLiteStore) GetSession(ctx context.Context, userID, sessionID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT cs.id, cs.user_id, cs.session_name, cs.created_at, cs.updated_at, COUNT(d.id)
		FROM chat_sessions cs
		LEFT JOIN documents d ON cs.id = d.chat_session_id
		WHERE cs.id = ? AND cs.user_id = ?
		GROUP BY cs.id`, sessionID, userID)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var sess Session
	var created, updated string
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.Title, &created, &updated, &sess.DocumentCount); err != nil {
		return nil, err
	}
	sess.CreatedAt = parseTime(created)
	sess.UpdatedAt = parseTime(updated)
	return &sess, nil
}

// ListSessions returns the user's sessions with document counts, most
// recently updated first.
func (s *SQLiteStore) ListSessions(ctx context.Context, userID string) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cs.id, cs.user_id, cs.session_name, cs.created_at, cs.updated_at, COUNT(d.id)
		FROM chat_sessions cs
		LEFT JOIN documents d ON cs.id = d.chat_session_id
		WHERE cs.user_id = ?
		GROUP BY cs.id, cs.session_name, cs.created_at, cs.updated_at
		ORDER BY cs.updated_at DESC, cs.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}

// SessionIDs returns the ids of ListSessions in the same order.
func (s *SQLiteStore) SessionIDs(ctx context.Context, userID string) ([]string, error) {
	sessions, err := s.ListSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.ID
	}
	return ids, nil
}

// SaveDocument records an uploaded file. ID and UploadedAt are filled in
// when empty.
func (s *SQLiteStore) SaveDocument(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, user_id, chat_session_id, filename, file_path, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.UserID, doc.SessionID, doc.Filename, doc.FilePath, doc.UploadedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// DeleteDocuments removes the document records of a session.
func (s *SQLiteStore) DeleteDocuments(ctx context.Context, userID, sessionID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE user_id = ? AND chat_session_id = ?", userID, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete documents: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// SaveSummary stores a generated summary for a session.
func (s *SQLiteStore) SaveSummary(ctx context.Context, userID, sessionID, content string) (*Summary, error) {
	sum := &Summary{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO summaries (id, user_id, chat_session_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		sum.ID, sum.UserID, sum.SessionID, sum.Content, sum.CreatedAt.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to save summary: %w", err)
	}
	return sum, nil
}

// LatestSummary returns the newest summary of a session, or nil.
func (s *SQLiteStore) LatestSummary(ctx context.Context, userID, sessionID string) (*Summary, error) {
	var sum Summary
	var created string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, chat_session_id, content, created_at
		FROM summaries
		WHERE user_id = ? AND chat_session_id = ?
		ORDER BY created_at DESC
		LIMIT 1`, userID, sessionID).
		Scan(&sum.ID, &sum.UserID, &sum.SessionID, &sum.Content, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	sum.CreatedAt = parseTime(created)
	return &sum, nil
}
