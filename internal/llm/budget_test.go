package llm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TestTruncate_Estimate verifies truncation works correctly for very long content.
func TestTruncate_Estimate(t *testing.T) {
	b := NewEstimateBudget(DefaultMaxContextTokens, nil)

	longContent := strings.Repeat("This is a test content. ", 4000) // ~100k chars
	truncated := b.Truncate(longContent)

	expectedMaxChars := DefaultMaxContextTokens * 4
	if len(truncated) != expectedMaxChars {
		t.Errorf("Expected truncated length %d, got %d", expectedMaxChars, len(truncated))
	}
	if !strings.HasPrefix(longContent, truncated) {
		t.Error("Truncated content should be a prefix of original content")
	}
}

// TestTruncate_Short verifies short content is not truncated.
func TestTruncate_Short(t *testing.T) {
	b := NewEstimateBudget(100, nil)

	content := "short content"
	if got := b.Truncate(content); got != content {
		t.Errorf("Short content should not be truncated, got %q", got)
	}
}

func TestCount_Estimate(t *testing.T) {
	b := NewEstimateBudget(0, nil)

	if got := b.Count("abcdefgh"); got != 2 {
		t.Errorf("Expected 2 tokens, got %d", got)
	}
	if got := b.Count("abcde"); got != 2 {
		t.Errorf("Expected partial tokens to round up, got %d", got)
	}
	if b.maxTokens != DefaultMaxContextTokens {
		t.Errorf("Expected default budget %d, got %d", DefaultMaxContextTokens, b.maxTokens)
	}
}

// TestTruncate_TokenizerKeepsValidUTF8 cuts emoji text, which cl100k splits
// into several byte tokens per rune, at every small budget.
func TestTruncate_TokenizerKeepsValidUTF8(t *testing.T) {
	enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
	if err != nil {
		t.Skipf("tokenizer unavailable: %v", err)
	}

	content := strings.Repeat("🙂 日本語のテキスト ", 20)
	for n := 1; n <= 12; n++ {
		b := &TokenBudget{maxTokens: n, enc: enc, logger: NewEstimateBudget(n, nil).logger}
		got := b.Truncate(content)
		if !utf8.ValidString(got) {
			t.Fatalf("max %d: truncated text is not valid UTF-8: %q", n, got)
		}
		if !strings.HasPrefix(content, got) {
			t.Fatalf("max %d: %q is not a prefix of the input", n, got)
		}
	}
}
