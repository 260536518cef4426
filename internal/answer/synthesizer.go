// Package answer turns retrieved document chunks into user-facing text.
//
// Every public method returns a string and never an error. Failures are
// reported in-band: results starting with ErrorMarker mean configuration or
// external-call failure, results starting with WarningMarker mean there was
// nothing to work with.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bull/docchat-server/internal/llm"
	"github.com/bull/docchat-server/internal/storage"
)

const (
	ErrorMarker   = "ERROR:"
	WarningMarker = "WARNING:"
)

// Headers that tag which path produced an answer.
const (
	GroundedHeader = "## Answer based on your documents:"
	GeneralHeader  = "## General AI Response:"
)

const (
	groundedNote = "*Note: This answer is based on the content from your uploaded documents.*"
	generalNote  = "*Note: This is a general AI response since no relevant information was found in your uploaded documents. Consider uploading documents related to your question for more specific answers.*"
)

// Messages returned without calling the model.
const (
	MsgLLMNotConfigured    = ErrorMarker + " AI service is not properly configured. Please check your LLM API key."
	MsgVectorNotConfigured = ErrorMarker + " Vector service is not properly configured. Please check your Qdrant and OpenAI settings."
	MsgNoUserInfoDocs      = WarningMarker + " No documents found to extract information from. Please upload a document first."
	MsgNoTechStackDocs     = WarningMarker + " No documents found to extract tech stack from. Please upload a document first."
	MsgNoUserInfo          = WarningMarker + " Could not extract user information from the uploaded document."
	MsgNoTechStack         = "No tech stack information found in the document."
	MsgNothingToSummarize  = "No documents found to summarize."
)

// minTechStackLen is the answer length below which the skills-section
// prompt is tried.
const minTechStackLen = 100

// ValidDifficulties are the accepted question difficulty levels.
var ValidDifficulties = []string{"easy", "medium", "hard"}

// Retriever reads chunks from a document namespace.
type Retriever interface {
	Configured() bool
	Retrieve(ctx context.Context, query, namespace string, k int) ([]storage.Match, error)
	All(ctx context.Context, namespace string, k int) ([]storage.Match, error)
}

// Options sets how many chunks each operation reads.
type Options struct {
	RetrieveK  int
	UserInfoK  int
	TechStackK int
	SummaryK   int
}

// DefaultOptions returns the standard retrieval sizes.
func DefaultOptions() Options {
	return Options{
		RetrieveK:  5,
		UserInfoK:  50,
		TechStackK: 100,
		SummaryK:   20,
	}
}

// Synthesizer answers questions and runs document-wide extractions.
type Synthesizer struct {
	retriever Retriever
	completer llm.Completer
	budget    *llm.TokenBudget
	opts      Options
	logger    *slog.Logger
}

// NewSynthesizer creates a Synthesizer. completer or retriever may be nil;
// every call then returns a configuration error string. A nil budget uses
// the character estimate.
func NewSynthesizer(retriever Retriever, completer llm.Completer, budget *llm.TokenBudget, opts Options, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	if budget == nil {
		budget = llm.NewEstimateBudget(llm.DefaultMaxContextTokens, logger)
	}
	defaults := DefaultOptions()
	if opts.RetrieveK <= 0 {
		opts.RetrieveK = defaults.RetrieveK
	}
	if opts.UserInfoK <= 0 {
		opts.UserInfoK = defaults.UserInfoK
	}
	if opts.TechStackK <= 0 {
		opts.TechStackK = defaults.TechStackK
	}
	if opts.SummaryK <= 0 {
		opts.SummaryK = defaults.SummaryK
	}
	return &Synthesizer{
		retriever: retriever,
		completer: completer,
		budget:    budget,
		opts:      opts,
		logger:    logger,
	}
}

// IsError reports whether a result carries ErrorMarker or is empty.
func IsError(result string) bool {
	return strings.TrimSpace(result) == "" || strings.HasPrefix(result, ErrorMarker)
}

// IsWarning reports whether a result carries WarningMarker.
func IsWarning(result string) bool {
	return strings.HasPrefix(result, WarningMarker)
}

func (s *Synthesizer) configError() string {
	if s.completer == nil {
		return MsgLLMNotConfigured
	}
	if s.retriever == nil || !s.retriever.Configured() {
		return MsgVectorNotConfigured
	}
	return ""
}

// Ask answers question from the namespace's documents, or from general
// knowledge when retrieval finds nothing or fails. The result starts with
// GroundedHeader or GeneralHeader, or with ErrorMarker on failure.
func (s *Synthesizer) Ask(ctx context.Context, question, namespace string) string {
	if msg := s.configError(); msg != "" {
		return msg
	}

	chunks, err := s.retriever.Retrieve(ctx, question, namespace, s.opts.RetrieveK)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		return MsgVectorNotConfigured
	case err != nil:
		s.logger.Warn("retrieval failed, answering without documents", "namespace", namespace, "error", err)
		chunks = nil
	}

	if len(chunks) > 0 {
		s.logger.Info("answering from documents", "namespace", namespace, "chunks", len(chunks))
		out, err := s.completer.Complete(ctx, groundedPrompt(s.context(chunks), question))
		switch {
		case err == nil:
			return fmt.Sprintf("%s\n\n%s\n\n---\n%s", GroundedHeader, strings.TrimSpace(out), groundedNote)
		case errors.Is(err, llm.ErrEmptyCompletion):
			s.logger.Warn("grounded answer was empty, answering generally", "namespace", namespace)
		default:
			s.logger.Error("grounded completion failed", "namespace", namespace, "error", err)
			return questionError(err)
		}
	}

	s.logger.Info("no relevant documents, answering generally", "namespace", namespace)
	out, err := s.completer.Complete(ctx, generalPrompt(question))
	if err != nil {
		s.logger.Error("general completion failed", "error", err)
		return questionError(err)
	}
	return fmt.Sprintf("%s\n\n%s\n\n---\n%s", GeneralHeader, strings.TrimSpace(out), generalNote)
}

func questionError(err error) string {
	return fmt.Sprintf(`%s Error Processing Question

I encountered an error while processing your question. Please try again.

**Error Details:** %v

**Troubleshooting Tips:**
• Check your internet connection
• Try rephrasing your question
• Ensure your documents are properly uploaded`, ErrorMarker, err)
}

// context joins chunk texts and fits them into the token budget.
func (s *Synthesizer) context(chunks []storage.Match) string {
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if t := strings.TrimSpace(c.Metadata.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return s.budget.Truncate(strings.Join(texts, "\n\n"))
}

// documents reads up to k chunks of the namespace for an extraction.
func (s *Synthesizer) documents(ctx context.Context, namespace string, k int) ([]storage.Match, string) {
	docs, err := s.retriever.All(ctx, namespace, k)
	if err != nil {
		s.logger.Error("reading documents failed", "namespace", namespace, "error", err)
		return nil, fmt.Sprintf("%s Vector service error - %v", ErrorMarker, err)
	}
	return docs, ""
}

// ExtractUserInfo extracts personal, professional and technical details
// from every document in the namespace.
func (s *Synthesizer) ExtractUserInfo(ctx context.Context, namespace string) string {
	if msg := s.configError(); msg != "" {
		return msg
	}

	docs, msg := s.documents(ctx, namespace, s.opts.UserInfoK)
	if msg != "" {
		return msg
	}
	if len(docs) == 0 {
		return MsgNoUserInfoDocs
	}

	out, err := s.completer.Complete(ctx, userInfoExtraction.prompt(s.context(docs)))
	if errors.Is(err, llm.ErrEmptyCompletion) {
		return MsgNoUserInfo
	}
	if err != nil {
		s.logger.Error("user info extraction failed", "namespace", namespace, "error", err)
		return fmt.Sprintf("%s I encountered an error while extracting information. Error: %v", ErrorMarker, err)
	}
	return strings.TrimSpace(out)
}

// ExtractTechStack returns the namespace's technologies as one
// comma-separated line. A short first answer triggers one retry with a
// skills-section prompt before cleanup.
func (s *Synthesizer) ExtractTechStack(ctx context.Context, namespace string) string {
	if msg := s.configError(); msg != "" {
		return msg
	}

	docs, msg := s.documents(ctx, namespace, s.opts.TechStackK)
	if msg != "" {
		return msg
	}
	if len(docs) == 0 {
		return MsgNoTechStackDocs
	}

	content := s.context(docs)
	raw, err := s.complete(ctx, techStackExtraction.prompt(content))
	if err != nil {
		s.logger.Error("tech stack extraction failed", "namespace", namespace, "error", err)
		return fmt.Sprintf("%s Error extracting tech stack: %v", ErrorMarker, err)
	}

	if len(raw) < minTechStackLen {
		s.logger.Info("tech stack answer short, retrying with skills prompt", "length", len(raw))
		retry, err := s.complete(ctx, skillsSectionExtraction.prompt(content))
		switch {
		case err != nil:
			s.logger.Warn("skills prompt failed, keeping first answer", "error", err)
		case retry != "":
			raw = retry
		}
	}

	if cleaned := CleanTechStack(raw); cleaned != "" {
		return cleaned
	}
	return MsgNoTechStack
}

// complete maps an empty completion to an empty string.
func (s *Synthesizer) complete(ctx context.Context, prompt string) (string, error) {
	out, err := s.completer.Complete(ctx, prompt)
	if errors.Is(err, llm.ErrEmptyCompletion) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// GenerateQuestions writes interview questions for a tech stack at the
// given difficulty (easy, medium or hard).
func (s *Synthesizer) GenerateQuestions(ctx context.Context, techStack, difficulty string) string {
	if s.completer == nil {
		return MsgLLMNotConfigured
	}

	difficulty = strings.ToLower(strings.TrimSpace(difficulty))
	if !isValidDifficulty(difficulty) {
		return fmt.Sprintf("%s Invalid difficulty level. Please choose from: %s", ErrorMarker, strings.Join(ValidDifficulties, ", "))
	}
	if strings.TrimSpace(techStack) == "" {
		return ErrorMarker + " Tech stack is required."
	}

	out, err := s.complete(ctx, questionsPrompt(techStack, difficulty))
	if err != nil {
		s.logger.Error("question generation failed", "error", err)
		return fmt.Sprintf("%s I encountered an error while generating technical questions. Error: %v", ErrorMarker, err)
	}
	if out == "" {
		return fmt.Sprintf("%s Could not generate technical questions for the provided tech stack and %s difficulty level.", WarningMarker, difficulty)
	}
	return out
}

func isValidDifficulty(d string) bool {
	for _, v := range ValidDifficulties {
		if d == v {
			return true
		}
	}
	return false
}

// Summarize summarizes the namespace's documents.
func (s *Synthesizer) Summarize(ctx context.Context, namespace string) string {
	if msg := s.configError(); msg != "" {
		return msg
	}

	docs, msg := s.documents(ctx, namespace, s.opts.SummaryK)
	if msg != "" {
		return msg
	}
	if len(docs) == 0 {
		return MsgNothingToSummarize
	}

	out, err := s.complete(ctx, summaryPrompt(s.context(docs)))
	if err != nil {
		s.logger.Error("summarization failed", "namespace", namespace, "error", err)
		return fmt.Sprintf("%s Error while summarizing: %v", ErrorMarker, err)
	}
	if out == "" {
		return MsgNothingToSummarize
	}
	return out
}
