package mcp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docchat-server/internal/answer"
	"github.com/bull/docchat-server/internal/history"
	"github.com/bull/docchat-server/internal/rag"
	"github.com/bull/docchat-server/internal/sessions"
)

type stubService struct {
	answer     string
	uploads    []rag.File
	difficulty string
	listErr    error
}

func (s *stubService) Upload(_ context.Context, _, _ string, files []rag.File) string {
	s.uploads = append(s.uploads, files...)
	return "Successfully uploaded and processed 1 documents. 1 saved to database."
}

func (s *stubService) AskInSession(context.Context, string, string, string) string {
	return s.answer
}

func (s *stubService) ClearSession(context.Context, string, string) string {
	return rag.MsgSessionCleared
}

func (s *stubService) ChatHistory(_ context.Context, userID, sessionID string) ([]history.Conversation, error) {
	return []history.Conversation{
		{UserID: userID, SessionID: sessionID, Question: "q1", Answer: "a1"},
		{UserID: userID, SessionID: sessionID, Question: "q2", Answer: history.NoResponse},
	}, nil
}

func (s *stubService) ExtractUserInfo(context.Context, string, string) string {
	return answer.MsgNoUserInfoDocs
}

func (s *stubService) ExtractTechStack(context.Context, string, string) string {
	return "Go, Kubernetes"
}

func (s *stubService) GenerateQuestions(_ context.Context, _, difficulty string) string {
	s.difficulty = difficulty
	return "1. What is a channel?"
}

func (s *stubService) ListSessions(context.Context, string) ([]sessions.Session, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []sessions.Session{{ID: "s1", Title: "Resume", CreatedAt: ts, UpdatedAt: ts, DocumentCount: 3}}, nil
}

func (s *stubService) Summarize(context.Context, string, string) string {
	return "Short summary."
}

func TestAskHandler(t *testing.T) {
	ctx := context.Background()

	svc := &stubService{answer: answer.GroundedHeader + "\n\nGo.\n\n---\nnote"}
	_, out, err := makeAskHandler(svc)(ctx, nil, AskInput{UserID: "u", SessionID: "s", Question: "Which language?"})
	require.NoError(t, err)
	assert.True(t, out.Grounded)

	svc.answer = answer.GeneralHeader + "\n\nGo.\n\n---\nnote"
	_, out, err = makeAskHandler(svc)(ctx, nil, AskInput{UserID: "u", SessionID: "s", Question: "Which language?"})
	require.NoError(t, err)
	assert.False(t, out.Grounded)

	svc.answer = answer.MsgLLMNotConfigured
	_, _, err = makeAskHandler(svc)(ctx, nil, AskInput{UserID: "u", SessionID: "s", Question: "Which language?"})
	assert.EqualError(t, err, answer.MsgLLMNotConfigured)

	_, _, err = makeAskHandler(svc)(ctx, nil, AskInput{UserID: "u", Question: "q"})
	assert.ErrorIs(t, err, errSessionRequired)

	_, _, err = makeAskHandler(svc)(ctx, nil, AskInput{UserID: "u", SessionID: "s", Question: "  "})
	assert.Error(t, err)
}

func TestIngestHandler(t *testing.T) {
	svc := &stubService{}
	_, out, err := makeIngestHandler(svc)(context.Background(), nil, IngestTextInput{UserID: "u", SessionID: "s", Content: "hello"})
	require.NoError(t, err)
	assert.Contains(t, out.Message, "Successfully uploaded")
	require.Len(t, svc.uploads, 1)
	assert.Equal(t, "document.txt", svc.uploads[0].Name)
	assert.Equal(t, "hello", string(svc.uploads[0].Data))
}

func TestHistoryHandler(t *testing.T) {
	_, out, err := makeHistoryHandler(&stubService{})(context.Background(), nil, ChatHistoryInput{UserID: "u"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, history.NoResponse, out.History[1].Answer)

	_, _, err = makeHistoryHandler(&stubService{})(context.Background(), nil, ChatHistoryInput{})
	assert.Error(t, err)
}

func TestExtractHandlers(t *testing.T) {
	svc := &stubService{}
	ctx := context.Background()
	in := SessionInput{UserID: "u", SessionID: "s"}

	_, out, err := makeExtractHandler(svc.ExtractTechStack)(ctx, nil, in)
	require.NoError(t, err)
	assert.Equal(t, "Go, Kubernetes", out.Result)

	// warnings are results, not failures
	_, out, err = makeExtractHandler(svc.ExtractUserInfo)(ctx, nil, in)
	require.NoError(t, err)
	assert.Equal(t, answer.MsgNoUserInfoDocs, out.Result)
}

func TestQuestionsHandler_DefaultsDifficulty(t *testing.T) {
	svc := &stubService{}
	_, out, err := makeQuestionsHandler(svc)(context.Background(), nil, GenerateQuestionsInput{TechStack: "Go"})
	require.NoError(t, err)
	assert.Equal(t, "medium", svc.difficulty)
	assert.Equal(t, "1. What is a channel?", out.Questions)
}

func TestListSessionsHandler(t *testing.T) {
	svc := &stubService{}
	_, out, err := makeListSessionsHandler(svc)(context.Background(), nil, ListSessionsInput{UserID: "u"})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "2024-05-01T12:00:00Z", out.Sessions[0].UpdatedAt)
	assert.Equal(t, 3, out.Sessions[0].DocumentCount)

	svc.listErr = errors.New("db locked")
	_, _, err = makeListSessionsHandler(svc)(context.Background(), nil, ListSessionsInput{UserID: "u"})
	assert.ErrorContains(t, err, "db locked")
}

func TestClearAndSummarizeHandlers(t *testing.T) {
	svc := &stubService{}
	in := SessionInput{UserID: "u", SessionID: "s"}

	_, msg, err := makeClearHandler(svc)(context.Background(), nil, in)
	require.NoError(t, err)
	assert.Equal(t, rag.MsgSessionCleared, msg.Message)

	_, sum, err := makeSummarizeHandler(svc)(context.Background(), nil, in)
	require.NoError(t, err)
	assert.Equal(t, "Short summary.", sum.Summary)
}

func TestNewServer_RegistersTools(t *testing.T) {
	var server *Server
	require.NotPanics(t, func() {
		server = NewServer(&Config{Service: &stubService{}})
	})
	assert.NotNil(t, server.MCPServer())
}

func TestLandingHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewLandingHandler()(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "DocChat Server")

	rec = httptest.NewRecorder()
	NewLandingHandler()(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
