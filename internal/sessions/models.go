// Package sessions persists users, chat sessions, uploaded document records
// and summaries in SQLite.
package sessions

import (
	"errors"
	"time"
)

// DefaultSessionName is used when a session is created without a name.
const DefaultSessionName = "New Session"

var ErrSessionNotFound = errors.New("session not found")

type Session struct {
	ID            string    `json:"session_id"`
	UserID        string    `json:"-"`
	Title         string    `json:"title"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	DocumentCount int       `json:"document_count"`
}

// Document records one uploaded file.
type Document struct {
	ID         string
	UserID     string
	SessionID  string
	Filename   string
	FilePath   string
	UploadedAt time.Time
}

type Summary struct {
	ID        string
	UserID    string
	SessionID string
	Content   string
	CreatedAt time.Time
}
