package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
)

// DefaultOpenAIModel is used when no chat model is configured.
const DefaultOpenAIModel = string(openai.ChatModelGPT4o)

// OpenAICompleter produces completions with the OpenAI chat API.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter creates a completer; an empty model selects DefaultOpenAIModel.
func NewOpenAICompleter(client *openai.Client, model string) *OpenAICompleter {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAICompleter{client: client, model: model}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(c.model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
