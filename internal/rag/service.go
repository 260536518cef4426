// Package rag is the application service behind the HTTP API, the MCP
// tools and the CLI. It maps (user, session) pairs to namespaces and
// composes indexing, answering, history and cleanup.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/bull/docchat-server/internal/answer"
	"github.com/bull/docchat-server/internal/history"
	"github.com/bull/docchat-server/internal/indexer"
	"github.com/bull/docchat-server/internal/namespace"
	"github.com/bull/docchat-server/internal/sessions"
)

// Status messages returned by the session-scoped operations.
const (
	MsgSessionCleared = "Session data cleared successfully."
	MsgNoFiles        = answer.ErrorMarker + " No files uploaded."
	MsgNoText         = answer.ErrorMarker + " No text found in uploaded documents."
)

// SessionStore is the relational side of the service.
type SessionStore interface {
	CreateSession(ctx context.Context, userID, title string) (*sessions.Session, error)
	SaveSession(ctx context.Context, userID, sessionID, title string) error
	ListSessions(ctx context.Context, userID string) ([]sessions.Session, error)
	SessionIDs(ctx context.Context, userID string) ([]string, error)
	SaveDocument(ctx context.Context, doc *sessions.Document) error
	DeleteDocuments(ctx context.Context, userID, sessionID string) (int64, error)
	SaveSummary(ctx context.Context, userID, sessionID, content string) (*sessions.Summary, error)
}

// FileSaver writes uploaded files below a per-session directory.
type FileSaver interface {
	Save(userID, sessionID, filename string, data []byte) (string, error)
}

// HealthChecker is implemented by the vector store.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// File is one uploaded file.
type File struct {
	Name string
	Data []byte
}

// Config holds service dependencies. Any of them may be nil; operations
// that need a missing dependency report it in their result.
type Config struct {
	Indexer       *indexer.Pipeline
	Synthesizer   *answer.Synthesizer
	Recorder      *history.Recorder
	Reconstructor *history.Reconstructor
	Lifecycle     *namespace.Manager
	Sessions      SessionStore
	Files         FileSaver
	Health        HealthChecker
	Logger        *slog.Logger
}

// Service implements the session-level operations.
type Service struct {
	indexer       *indexer.Pipeline
	synth         *answer.Synthesizer
	recorder      *history.Recorder
	reconstructor *history.Reconstructor
	lifecycle     *namespace.Manager
	sessions      SessionStore
	files         FileSaver
	health        HealthChecker
	logger        *slog.Logger
}

// NewService creates a Service from cfg.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		indexer:       cfg.Indexer,
		synth:         cfg.Synthesizer,
		recorder:      cfg.Recorder,
		reconstructor: cfg.Reconstructor,
		lifecycle:     cfg.Lifecycle,
		sessions:      cfg.Sessions,
		files:         cfg.Files,
		health:        cfg.Health,
		logger:        logger,
	}
}

// Upload saves files, indexes their text into the session's document
// namespace and records them in the session store.
func (s *Service) Upload(ctx context.Context, userID, sessionID string, files []File) string {
	if len(files) == 0 {
		return MsgNoFiles
	}
	if !s.indexer.Configured() {
		return answer.MsgVectorNotConfigured
	}

	ns := namespace.Doc(userID, sessionID)
	var (
		accepted []File
		paths    []string
		docs     []indexer.Document
	)
	for _, f := range files {
		if !utf8.Valid(f.Data) {
			s.logger.Warn("skipping file without UTF-8 text", "name", f.Name)
			continue
		}
		path := ""
		if s.files != nil {
			var err error
			if path, err = s.files.Save(userID, sessionID, f.Name, f.Data); err != nil {
				return fmt.Sprintf("%s Error uploading documents: %v", answer.ErrorMarker, err)
			}
		}
		accepted = append(accepted, f)
		paths = append(paths, path)
		docs = append(docs, indexer.Document{Name: f.Name, Content: string(f.Data)})
	}

	result, err := s.indexer.IndexDocuments(ctx, ns, docs)
	if errors.Is(err, indexer.ErrNoText) {
		return MsgNoText
	}
	if err != nil {
		s.logger.Error("upload failed", "namespace", ns, "error", err)
		return fmt.Sprintf("%s Error uploading documents: %v", answer.ErrorMarker, err)
	}

	saved := 0
	if s.sessions != nil {
		if err := s.sessions.SaveSession(ctx, userID, sessionID, ""); err != nil {
			s.logger.Warn("could not save session", "session_id", sessionID, "error", err)
		}
		for i, f := range accepted {
			err := s.sessions.SaveDocument(ctx, &sessions.Document{
				UserID:    userID,
				SessionID: sessionID,
				Filename:  f.Name,
				FilePath:  paths[i],
			})
			if err != nil {
				s.logger.Warn("could not save document record", "name", f.Name, "error", err)
				continue
			}
			saved++
		}
	}

	s.logger.Info("upload complete", "namespace", ns, "files", len(accepted), "skipped", len(files)-len(accepted), "chunks", result.TotalChunks)
	msg := fmt.Sprintf("Successfully uploaded and processed %d documents. %d saved to database.", len(accepted), saved)
	if skipped := len(files) - len(accepted); skipped > 0 {
		msg += fmt.Sprintf(" %d skipped (no UTF-8 text).", skipped)
	}
	return msg
}

// Ask answers question from a document namespace without recording it.
func (s *Service) Ask(ctx context.Context, question, ns string) string {
	if s.synth == nil {
		return answer.MsgLLMNotConfigured
	}
	return s.synth.Ask(ctx, question, ns)
}

// AskInSession answers from the session's documents and records the turn in
// its chat namespace. A failure to record is logged and does not change the
// answer.
func (s *Service) AskInSession(ctx context.Context, question, userID, sessionID string) string {
	result := s.Ask(ctx, question, namespace.Doc(userID, sessionID))

	if s.recorder != nil {
		err := s.recorder.RecordTurn(ctx, history.Turn{
			UserID:    userID,
			SessionID: sessionID,
			Namespace: namespace.Chat(userID, sessionID),
			Question:  question,
			Answer:    result,
		})
		if err != nil {
			s.logger.Warn("could not record chat turn", "session_id", sessionID, "error", err)
		}
	}
	if s.sessions != nil {
		if err := s.sessions.SaveSession(ctx, userID, sessionID, ""); err != nil {
			s.logger.Warn("could not touch session", "session_id", sessionID, "error", err)
		}
	}
	return result
}

func (s *Service) ExtractUserInfo(ctx context.Context, userID, sessionID string) string {
	if s.synth == nil {
		return answer.MsgLLMNotConfigured
	}
	return s.synth.ExtractUserInfo(ctx, namespace.Doc(userID, sessionID))
}

func (s *Service) ExtractTechStack(ctx context.Context, userID, sessionID string) string {
	if s.synth == nil {
		return answer.MsgLLMNotConfigured
	}
	return s.synth.ExtractTechStack(ctx, namespace.Doc(userID, sessionID))
}

func (s *Service) GenerateQuestions(ctx context.Context, techStack, difficulty string) string {
	if s.synth == nil {
		return answer.MsgLLMNotConfigured
	}
	return s.synth.GenerateQuestions(ctx, techStack, difficulty)
}

// Summarize summarizes the session's documents and stores the summary.
func (s *Service) Summarize(ctx context.Context, userID, sessionID string) string {
	if s.synth == nil {
		return answer.MsgLLMNotConfigured
	}
	out := s.synth.Summarize(ctx, namespace.Doc(userID, sessionID))
	if answer.IsError(out) || answer.IsWarning(out) || out == answer.MsgNothingToSummarize {
		return out
	}
	if s.sessions != nil {
		if _, err := s.sessions.SaveSummary(ctx, userID, sessionID, out); err != nil {
			s.logger.Warn("could not save summary", "session_id", sessionID, "error", err)
		}
	}
	return out
}

// ChatHistory returns the conversations of a session, or of all the user's
// sessions when sessionID is empty. It returns an empty list rather than an
// error when the vector store is not configured.
func (s *Service) ChatHistory(ctx context.Context, userID, sessionID string) ([]history.Conversation, error) {
	if s.reconstructor == nil {
		s.logger.Warn("chat history requested without a configured vector store")
		return []history.Conversation{}, nil
	}
	convs, err := s.reconstructor.History(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if convs == nil {
		convs = []history.Conversation{}
	}
	return convs, nil
}

// DebugMessages returns the raw messages stored in a session's chat
// namespace.
func (s *Service) DebugMessages(ctx context.Context, userID, sessionID string) (string, []history.Message, error) {
	ns := namespace.Chat(userID, sessionID)
	if s.reconstructor == nil {
		return ns, nil, nil
	}
	messages, err := s.reconstructor.Messages(ctx, ns)
	return ns, messages, err
}

// ClearSession deletes the session's vectors, upload directory and document
// records.
func (s *Service) ClearSession(ctx context.Context, userID, sessionID string) string {
	var errs []error
	if s.lifecycle == nil {
		errs = append(errs, errors.New("vector store not configured"))
	} else if err := s.lifecycle.Clear(ctx, userID, sessionID); err != nil {
		errs = append(errs, err)
	}

	if s.sessions != nil {
		if _, err := s.sessions.DeleteDocuments(ctx, userID, sessionID); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.Error("clear session failed", "user_id", userID, "session_id", sessionID, "error", err)
		return fmt.Sprintf("%s Error clearing session data: %s", answer.ErrorMarker, strings.ReplaceAll(err.Error(), "\n", "; "))
	}
	return MsgSessionCleared
}

// ClearUser clears every session the user owns and removes the user's
// upload directory.
func (s *Service) ClearUser(ctx context.Context, userID string) string {
	if s.lifecycle == nil {
		return answer.MsgVectorNotConfigured
	}
	if s.sessions == nil {
		return fmt.Sprintf("%s Error clearing user data: %v", answer.ErrorMarker, errNoSessionStore)
	}

	ids, err := s.sessions.SessionIDs(ctx, userID)
	if err != nil {
		return fmt.Sprintf("%s Error clearing user data: %v", answer.ErrorMarker, err)
	}
	errs := []error{s.lifecycle.ClearUser(ctx, userID, ids)}
	for _, id := range ids {
		if _, err := s.sessions.DeleteDocuments(ctx, userID, id); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Error("clear user failed", "user_id", userID, "error", err)
		return fmt.Sprintf("%s Error clearing user data: %s", answer.ErrorMarker, strings.ReplaceAll(err.Error(), "\n", "; "))
	}
	return fmt.Sprintf("Cleared %d sessions.", len(ids))
}

var errNoSessionStore = errors.New("session store not configured")

func (s *Service) CreateSession(ctx context.Context, userID, title string) (*sessions.Session, error) {
	if s.sessions == nil {
		return nil, errNoSessionStore
	}
	return s.sessions.CreateSession(ctx, userID, title)
}

func (s *Service) ListSessions(ctx context.Context, userID string) ([]sessions.Session, error) {
	if s.sessions == nil {
		return nil, errNoSessionStore
	}
	list, err := s.sessions.ListSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []sessions.Session{}
	}
	return list, nil
}

// Health checks the vector store and, when it supports it, the session
// database.
func (s *Service) Health(ctx context.Context) error {
	if s.health == nil {
		return errors.New("vector store not configured")
	}
	if err := s.health.Health(ctx); err != nil {
		return err
	}
	if p, ok := s.sessions.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("session database: %w", err)
		}
	}
	return nil
}
