// Package api exposes the session-level operations as a JSON REST API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/bull/docchat-server/internal/history"
	"github.com/bull/docchat-server/internal/rag"
	"github.com/bull/docchat-server/internal/sessions"
	"github.com/bull/docchat-server/internal/storage"
)

const (
	msgSessionRequired = "User ID and Session ID are required"
	msgUserRequired    = "User ID is required"
	msgTooLarge        = "File too large. Maximum size is 16MB."
)

// DefaultMaxUploadBytes bounds one multipart upload.
const DefaultMaxUploadBytes = 16 << 20

// Service is the application service the handlers call.
type Service interface {
	CreateSession(ctx context.Context, userID, title string) (*sessions.Session, error)
	ListSessions(ctx context.Context, userID string) ([]sessions.Session, error)
	Upload(ctx context.Context, userID, sessionID string, files []rag.File) string
	ClearSession(ctx context.Context, userID, sessionID string) string
	AskInSession(ctx context.Context, question, userID, sessionID string) string
	ExtractUserInfo(ctx context.Context, userID, sessionID string) string
	ExtractTechStack(ctx context.Context, userID, sessionID string) string
	GenerateQuestions(ctx context.Context, techStack, difficulty string) string
	ChatHistory(ctx context.Context, userID, sessionID string) ([]history.Conversation, error)
	DebugMessages(ctx context.Context, userID, sessionID string) (string, []history.Message, error)
	Health(ctx context.Context) error
}

// Handler serves the REST endpoints.
type Handler struct {
	svc            Service
	maxUploadBytes int64
	logger         *slog.Logger
	now            func() time.Time
}

// NewHandler creates a Handler. maxUploadBytes <= 0 selects DefaultMaxUploadBytes.
func NewHandler(svc Service, maxUploadBytes int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{
		svc:            svc,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
		now:            time.Now,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode reads a JSON body into req and validates it. It writes the 400
// response itself and returns false when the request is unusable.
func decode(w http.ResponseWriter, r *http.Request, req request) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if msg := check(req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decode(w, r, &req) {
		return
	}

	sess, err := h.svc.CreateSession(r.Context(), req.UserID, req.SessionName)
	if err != nil {
		h.logger.Error("session creation failed", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message":      "Session created successfully",
		"session_id":   sess.ID,
		"session_name": sess.Title,
	})
}

func (h *Handler) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	userID := r.FormValue("user_id")
	sessionID := r.FormValue("session_id")
	if userID == "" || sessionID == "" {
		writeError(w, http.StatusBadRequest, msgSessionRequired)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "No files uploaded")
		return
	}

	files := make([]rag.File, 0, len(headers))
	for _, fh := range headers {
		if fh.Filename == "" {
			continue
		}
		data, err := readPart(fh)
		if err != nil {
			h.logger.Error("reading upload failed", "name", fh.Filename, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		files = append(files, rag.File{Name: filepath.Base(fh.Filename), Data: data})
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "No files selected")
		return
	}

	result := h.svc.Upload(r.Context(), userID, sessionID, files)
	writeJSON(w, http.StatusOK, map[string]string{"message": result})
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *Handler) ClearDocuments(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decode(w, r, &req) {
		return
	}
	result := h.svc.ClearSession(r.Context(), req.UserID, req.SessionID)
	writeJSON(w, http.StatusOK, map[string]string{"message": result})
}

func (h *Handler) ExtractUserInfo(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decode(w, r, &req) {
		return
	}
	result := h.svc.ExtractUserInfo(r.Context(), req.UserID, req.SessionID)
	writeJSON(w, http.StatusOK, map[string]string{"extracted_info": result})
}

func (h *Handler) ExtractTechStack(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decode(w, r, &req) {
		return
	}
	result := h.svc.ExtractTechStack(r.Context(), req.UserID, req.SessionID)
	writeJSON(w, http.StatusOK, map[string]string{"tech_stack": result})
}

func (h *Handler) GenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req questionsRequest
	if !decode(w, r, &req) {
		return
	}
	result := h.svc.GenerateQuestions(r.Context(), req.TechStack, req.Difficulty)
	writeJSON(w, http.StatusOK, map[string]string{"questions": result})
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decode(w, r, &req) {
		return
	}
	result := h.svc.AskInSession(r.Context(), req.Question, req.UserID, req.SessionID)
	writeJSON(w, http.StatusOK, map[string]string{"answer": result})
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, msgUserRequired)
		return
	}

	list, err := h.svc.ListSessions(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing sessions failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.logger.Info("found sessions", "user_id", userID, "count", len(list))
	writeJSON(w, http.StatusOK, map[string]any{"sessions": list})
}

func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	sessionID := r.URL.Query().Get("session_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, msgUserRequired)
		return
	}

	convs, err := h.svc.ChatHistory(r.Context(), userID, sessionID)
	if err != nil {
		h.logger.Error("chat history failed", "user_id", userID, "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.logger.Info("found chat history", "user_id", userID, "session_id", sessionID, "count", len(convs))
	writeJSON(w, http.StatusOK, map[string]any{"history": convs})
}

type debugMessage struct {
	Content       string         `json:"content"`
	Metadata      map[string]any `json:"metadata"`
	ContentLength int            `json:"content_length"`
}

func (h *Handler) DebugChatMessages(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	sessionID := r.URL.Query().Get("session_id")
	if userID == "" || sessionID == "" {
		writeError(w, http.StatusBadRequest, msgSessionRequired)
		return
	}

	ns, messages, err := h.svc.DebugMessages(r.Context(), userID, sessionID)
	if err != nil {
		h.logger.Error("debug chat messages failed", "namespace", ns, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]debugMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, debugMessage{
			Content:       m.Content,
			Metadata:      metadataJSON(m.Metadata),
			ContentLength: len([]rune(m.Content)),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"namespace":      ns,
		"total_messages": len(out),
		"messages":       out,
	})
}

// metadataJSON renders the non-empty metadata fields with their payload names.
func metadataJSON(m storage.Metadata) map[string]any {
	out := make(map[string]any)
	set := func(key, v string) {
		if v != "" {
			out[key] = v
		}
	}
	set("type", m.Type)
	set("role", m.Role)
	set("message_id", m.MessageID)
	set("related_question_id", m.RelatedQuestionID)
	set("timestamp", m.Timestamp)
	set("user_id", m.UserID)
	set("session_id", m.SessionID)
	set("source", m.Source)
	if m.Type == storage.RecordTypeDocument {
		out["chunk_index"] = m.ChunkIndex
	}
	return out
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Qdrant    string `json:"qdrant"`
	Timestamp string `json:"timestamp"`
}

// Health reports vector store connectivity with 200 or 503.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{Timestamp: h.now().UTC().Format(time.RFC3339)}
	if err := h.svc.Health(ctx); err != nil {
		h.logger.Warn("health check failed", "error", err)
		resp.Status = "unhealthy"
		resp.Qdrant = "disconnected"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Status = "healthy"
	resp.Qdrant = "connected"
	writeJSON(w, http.StatusOK, resp)
}
