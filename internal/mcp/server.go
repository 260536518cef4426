package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/docchat-server/internal/history"
	"github.com/bull/docchat-server/internal/rag"
	"github.com/bull/docchat-server/internal/sessions"
)

// Service is the subset of rag.Service the tools call.
type Service interface {
	Upload(ctx context.Context, userID, sessionID string, files []rag.File) string
	AskInSession(ctx context.Context, question, userID, sessionID string) string
	ClearSession(ctx context.Context, userID, sessionID string) string
	ChatHistory(ctx context.Context, userID, sessionID string) ([]history.Conversation, error)
	ExtractUserInfo(ctx context.Context, userID, sessionID string) string
	ExtractTechStack(ctx context.Context, userID, sessionID string) string
	GenerateQuestions(ctx context.Context, techStack, difficulty string) string
	ListSessions(ctx context.Context, userID string) ([]sessions.Session, error)
	Summarize(ctx context.Context, userID, sessionID string) string
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
	logger *slog.Logger
}

// Config holds server dependencies.
type Config struct {
	Service Service
	Version string
	Logger  *slog.Logger
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "docchat-server",
		Version: version,
	}, nil)

	svc := cfg.Service

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the documents uploaded to a session. Falls back to a general answer when no document is relevant. The exchange is added to the session's chat history.",
	}, makeAskHandler(svc))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ingest_text",
		Description: "Add a text or markdown document to a session so later questions can be answered from it.",
	}, makeIngestHandler(svc))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "chat_history",
		Description: "Return the question/answer history of one session, or of every session of a user when session_id is omitted. Oldest first.",
	}, makeHistoryHandler(svc))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clear_session",
		Description: "Delete a session's documents, uploaded files and chat history.",
	}, makeClearHandler(svc))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "extract_user_info",
		Description: "Extract personal and professional details (name, contact, experience, education) from a session's documents.",
	}, makeExtractHandler(svc.ExtractUserInfo))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "extract_tech_stack",
		Description: "Extract a comma separated list of technologies mentioned in a session's documents.",
	}, makeExtractHandler(svc.ExtractTechStack))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_questions",
		Description: "Generate technical interview questions for a tech stack at easy, medium or hard difficulty.",
	}, makeQuestionsHandler(svc))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_sessions",
		Description: "List a user's sessions with their document counts, most recently used first.",
	}, makeListSessionsHandler(svc))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "summarize",
		Description: "Summarize the documents of a session.",
	}, makeSummarizeHandler(svc))

	logger.Debug("registered mcp tools", "server", "docchat-server", "version", version)
	return &Server{server: server, logger: logger}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
