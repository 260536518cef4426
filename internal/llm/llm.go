// Package llm wraps chat-completion providers behind a single prompt-in,
// text-out interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
)

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

var (
	ErrEmptyCompletion = errors.New("model returned no text")
	ErrUnknownProvider = errors.New("unknown llm provider")
)

// Completer sends one prompt and returns the model's text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Options selects and configures a provider.
type Options struct {
	Provider     string
	Model        string
	OpenAIClient *openai.Client
	GeminiAPIKey string
}

// New builds the Completer named by opts.Provider. An empty provider means OpenAI.
func New(ctx context.Context, opts Options) (Completer, error) {
	switch strings.ToLower(opts.Provider) {
	case "", ProviderOpenAI:
		if opts.OpenAIClient == nil {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set")
		}
		return NewOpenAICompleter(opts.OpenAIClient, opts.Model), nil
	case ProviderGemini:
		return NewGeminiCompleter(ctx, opts.GeminiAPIKey, opts.Model)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}
}
