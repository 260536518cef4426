package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/docchat-server/internal/answer"
	"github.com/bull/docchat-server/internal/rag"
)

var errSessionRequired = errors.New("user_id and session_id are required")

func requireSession(userID, sessionID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(sessionID) == "" {
		return errSessionRequired
	}
	return nil
}

// toolError turns an ERROR: result into a tool error so clients see it as a
// failed call. Other results pass through.
func toolError(result string) error {
	if answer.IsError(result) {
		return errors.New(result)
	}
	return nil
}

// makeAskHandler creates the ask tool handler.
// The question and answer are recorded in the session's chat history.
func makeAskHandler(svc Service) func(
	context.Context, *mcp.CallToolRequest, AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (
		*mcp.CallToolResult, AskOutput, error,
	) {
		if err := requireSession(input.UserID, input.SessionID); err != nil {
			return nil, AskOutput{}, err
		}
		if strings.TrimSpace(input.Question) == "" {
			return nil, AskOutput{}, errors.New("question is required")
		}

		result := svc.AskInSession(ctx, strings.TrimSpace(input.Question), input.UserID, input.SessionID)
		if err := toolError(result); err != nil {
			return nil, AskOutput{}, err
		}
		return nil, AskOutput{
			Answer:   result,
			Grounded: strings.HasPrefix(result, answer.GroundedHeader),
		}, nil
	}
}

// makeIngestHandler creates the ingest_text tool handler.
func makeIngestHandler(svc Service) func(
	context.Context, *mcp.CallToolRequest, IngestTextInput,
) (*mcp.CallToolResult, MessageOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IngestTextInput) (
		*mcp.CallToolResult, MessageOutput, error,
	) {
		if err := requireSession(input.UserID, input.SessionID); err != nil {
			return nil, MessageOutput{}, err
		}
		name := input.Name
		if name == "" {
			name = "document.txt"
		}

		result := svc.Upload(ctx, input.UserID, input.SessionID, []rag.File{{Name: name, Data: []byte(input.Content)}})
		if err := toolError(result); err != nil {
			return nil, MessageOutput{}, err
		}
		return nil, MessageOutput{Message: result}, nil
	}
}

// makeClearHandler creates the clear_session tool handler.
func makeClearHandler(svc Service) func(
	context.Context, *mcp.CallToolRequest, SessionInput,
) (*mcp.CallToolResult, MessageOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SessionInput) (
		*mcp.CallToolResult, MessageOutput, error,
	) {
		if err := requireSession(input.UserID, input.SessionID); err != nil {
			return nil, MessageOutput{}, err
		}
		result := svc.ClearSession(ctx, input.UserID, input.SessionID)
		if err := toolError(result); err != nil {
			return nil, MessageOutput{}, err
		}
		return nil, MessageOutput{Message: result}, nil
	}
}

// makeHistoryHandler creates the chat_history tool handler.
func makeHistoryHandler(svc Service) func(
	context.Context, *mcp.CallToolRequest, ChatHistoryInput,
) (*mcp.CallToolResult, ChatHistoryOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ChatHistoryInput) (
		*mcp.CallToolResult, ChatHistoryOutput, error,
	) {
		if strings.TrimSpace(input.UserID) == "" {
			return nil, ChatHistoryOutput{}, errors.New("user_id is required")
		}
		convs, err := svc.ChatHistory(ctx, input.UserID, input.SessionID)
		if err != nil {
			return nil, ChatHistoryOutput{}, fmt.Errorf("failed to read chat history: %w", err)
		}
		return nil, ChatHistoryOutput{History: convs, Count: len(convs)}, nil
	}
}

// makeExtractHandler creates a handler for one of the extraction tools.
func makeExtractHandler(extract func(ctx context.Context, userID, sessionID string) string) func(
	context.Context, *mcp.CallToolRequest, SessionInput,
) (*mcp.CallToolResult, ExtractOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SessionInput) (
		*mcp.CallToolResult, ExtractOutput, error,
	) {
		if err := requireSession(input.UserID, input.SessionID); err != nil {
			return nil, ExtractOutput{}, err
		}
		result := extract(ctx, input.UserID, input.SessionID)
		if err := toolError(result); err != nil {
			return nil, ExtractOutput{}, err
		}
		return nil, ExtractOutput{Result: result}, nil
	}
}

// makeQuestionsHandler creates the generate_questions tool handler.
func makeQuestionsHandler(svc Service) func(
	context.Context, *mcp.CallToolRequest, GenerateQuestionsInput,
) (*mcp.CallToolResult, GenerateQuestionsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GenerateQuestionsInput) (
		*mcp.CallToolResult, GenerateQuestionsOutput, error,
	) {
		difficulty := input.Difficulty
		if strings.TrimSpace(difficulty) == "" {
			difficulty = "medium"
		}
		result := svc.GenerateQuestions(ctx, input.TechStack, difficulty)
		if err := toolError(result); err != nil {
			return nil, GenerateQuestionsOutput{}, err
		}
		return nil, GenerateQuestionsOutput{Questions: result}, nil
	}
}

// makeListSessionsHandler creates the list_sessions tool handler.
func makeListSessionsHandler(svc Service) func(
	context.Context, *mcp.CallToolRequest, ListSessionsInput,
) (*mcp.CallToolResult, ListSessionsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListSessionsInput) (
		*mcp.CallToolResult, ListSessionsOutput, error,
	) {
		if strings.TrimSpace(input.UserID) == "" {
			return nil, ListSessionsOutput{}, errors.New("user_id is required")
		}
		list, err := svc.ListSessions(ctx, input.UserID)
		if err != nil {
			return nil, ListSessionsOutput{}, fmt.Errorf("failed to list sessions: %w", err)
		}
		infos := make([]SessionInfo, 0, len(list))
		for _, sess := range list {
			infos = append(infos, sessionInfo(sess))
		}
		return nil, ListSessionsOutput{Sessions: infos, Count: len(infos)}, nil
	}
}

// makeSummarizeHandler creates the summarize tool handler.
func makeSummarizeHandler(svc Service) func(
	context.Context, *mcp.CallToolRequest, SessionInput,
) (*mcp.CallToolResult, SummaryOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SessionInput) (
		*mcp.CallToolResult, SummaryOutput, error,
	) {
		if err := requireSession(input.UserID, input.SessionID); err != nil {
			return nil, SummaryOutput{}, err
		}
		result := svc.Summarize(ctx, input.UserID, input.SessionID)
		if err := toolError(result); err != nil {
			return nil, SummaryOutput{}, err
		}
		return nil, SummaryOutput{Summary: result}, nil
	}
}
