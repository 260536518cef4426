// Package mcp exposes the document chat operations as MCP tools.
package mcp

import (
	"time"

	"github.com/bull/docchat-server/internal/history"
	"github.com/bull/docchat-server/internal/sessions"
)

// SessionInput identifies one chat session. Used by the tools that act on a
// whole session.
type SessionInput struct {
	UserID    string `json:"user_id" jsonschema:"the owner of the session"`
	SessionID string `json:"session_id" jsonschema:"the session whose documents are used"`
}

// AskInput defines the input parameters for the ask tool.
type AskInput struct {
	UserID    string `json:"user_id" jsonschema:"the owner of the session"`
	SessionID string `json:"session_id" jsonschema:"the session whose documents answer the question"`
	Question  string `json:"question" jsonschema:"the question to answer"`
}

// AskOutput contains the answer.
type AskOutput struct {
	// Answer is markdown starting with a header that tells whether it came
	// from the session's documents.
	Answer string `json:"answer"`
	// Grounded is true when the answer is based on retrieved documents.
	Grounded bool `json:"grounded"`
}

// IngestTextInput defines the input parameters for the ingest_text tool.
type IngestTextInput struct {
	UserID    string `json:"user_id" jsonschema:"the owner of the session"`
	SessionID string `json:"session_id" jsonschema:"the session to add the document to"`
	Name      string `json:"name" jsonschema:"file name of the document; .md files are split by heading"`
	Content   string `json:"content" jsonschema:"the document text"`
}

// MessageOutput carries a status message.
type MessageOutput struct {
	Message string `json:"message"`
}

// ChatHistoryInput defines the input parameters for the chat_history tool.
type ChatHistoryInput struct {
	UserID string `json:"user_id" jsonschema:"the user whose history is returned"`
	// SessionID is optional; empty means every session of the user.
	SessionID string `json:"session_id,omitempty" jsonschema:"limit the history to one session"`
}

// ChatHistoryOutput contains the reconstructed conversation turns.
type ChatHistoryOutput struct {
	History []history.Conversation `json:"history"`
	Count   int                    `json:"count"`
}

// ExtractOutput contains text extracted from a session's documents.
type ExtractOutput struct {
	Result string `json:"result"`
}

// GenerateQuestionsInput defines the input parameters for the generate_questions tool.
type GenerateQuestionsInput struct {
	TechStack  string `json:"tech_stack" jsonschema:"comma separated technologies to ask about"`
	Difficulty string `json:"difficulty,omitempty" jsonschema:"easy, medium or hard; defaults to medium"`
}

// GenerateQuestionsOutput contains the generated interview questions.
type GenerateQuestionsOutput struct {
	Questions string `json:"questions"`
}

// ListSessionsInput defines the input parameters for the list_sessions tool.
type ListSessionsInput struct {
	UserID string `json:"user_id" jsonschema:"the user whose sessions are listed"`
}

// SessionInfo describes one session. Times are RFC 3339 in UTC.
type SessionInfo struct {
	SessionID     string `json:"session_id"`
	Title         string `json:"title"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
	DocumentCount int    `json:"document_count"`
}

func sessionInfo(s sessions.Session) SessionInfo {
	return SessionInfo{
		SessionID:     s.ID,
		Title:         s.Title,
		CreatedAt:     s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     s.UpdatedAt.UTC().Format(time.RFC3339),
		DocumentCount: s.DocumentCount,
	}
}

// ListSessionsOutput contains the user's sessions, most recently used first.
type ListSessionsOutput struct {
	Sessions []SessionInfo `json:"sessions"`
	Count    int           `json:"count"`
}

// SummaryOutput contains a summary of a session's documents.
type SummaryOutput struct {
	Summary string `json:"summary"`
}
