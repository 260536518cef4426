package llm

import (
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultMaxContextTokens bounds the document context sent in one prompt.
const DefaultMaxContextTokens = 16000

// charsPerToken is the estimate used when no tokenizer is available.
const charsPerToken = 4

// TokenBudget truncates prompt context to a token limit.
type TokenBudget struct {
	maxTokens int
	enc       *tiktoken.Tiktoken
	logger    *slog.Logger
}

// NewTokenBudget loads the cl100k tokenizer. If it cannot be loaded the
// budget falls back to a four-characters-per-token estimate.
func NewTokenBudget(maxTokens int, logger *slog.Logger) *TokenBudget {
	b := NewEstimateBudget(maxTokens, logger)

	enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
	if err != nil {
		b.logger.Warn("tokenizer unavailable, estimating tokens", "error", err)
		return b
	}
	b.enc = enc
	return b
}

// NewEstimateBudget returns a budget that never loads a tokenizer.
func NewEstimateBudget(maxTokens int, logger *slog.Logger) *TokenBudget {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxContextTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenBudget{maxTokens: maxTokens, logger: logger}
}

// Count returns the number of tokens in s.
func (b *TokenBudget) Count(s string) int {
	if b.enc != nil {
		return len(b.enc.Encode(s, nil, nil))
	}
	return (len([]rune(s)) + charsPerToken - 1) / charsPerToken
}

// Truncate cuts s to fit the budget.
func (b *TokenBudget) Truncate(s string) string {
	if b.enc != nil {
		tokens := b.enc.Encode(s, nil, nil)
		if len(tokens) <= b.maxTokens {
			return s
		}
		b.logger.Warn("truncating context", "tokens", len(tokens), "max_tokens", b.maxTokens)
		// A token boundary can fall inside a multi-byte rune.
		return strings.ToValidUTF8(b.enc.Decode(tokens[:b.maxTokens]), "")
	}

	r := []rune(s)
	maxChars := b.maxTokens * charsPerToken
	if len(r) <= maxChars {
		return s
	}
	b.logger.Warn("truncating context", "chars", len(r), "max_chars", maxChars)
	return string(r[:maxChars])
}
