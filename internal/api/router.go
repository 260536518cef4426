package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the REST endpoints under /api plus GET /health. Callers
// may add further routes (the MCP endpoint, a landing page) to the result.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)    // Basic request logging
	r.Use(middleware.Recoverer) // Recover from panics

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint not found")
	})

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.StripSlashes)

		r.Post("/sessions/create", h.CreateSession)

		r.Post("/documents/upload", h.UploadDocuments)
		r.Post("/documents/clear", h.ClearDocuments)

		r.Post("/extract/user-info", h.ExtractUserInfo)
		r.Post("/extract/tech-stack", h.ExtractTechStack)
		r.Post("/questions/generate", h.GenerateQuestions)

		r.Post("/chat/ask", h.Ask)

		r.Get("/history/sessions", h.ListSessions)
		r.Get("/history/chat", h.ChatHistory)
		r.Get("/debug/chat-messages", h.DebugChatMessages)
	})

	return r
}
