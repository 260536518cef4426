package chunking

import (
	"strings"
	"testing"
)

func newTestMarkdownSplitter() *MarkdownSplitter {
	return NewMarkdownSplitter(NewSplitter(DefaultChunkSize, DefaultChunkOverlap, nil))
}

// TestSections_BasicHeaders tests sectioning with H1 and multiple H2s.
func TestSections_BasicHeaders(t *testing.T) {
	input := `# Getting Started

Introduction text here.

## Installation

Install steps here.

## Configuration

Config details here.
`

	sections, err := newTestMarkdownSplitter().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}

	if len(sections) != 3 {
		t.Fatalf("Expected 3 sections, got %d", len(sections))
	}

	expected := []struct {
		path    string
		content string
		absent  string
	}{
		{"# Getting Started", "Introduction text here", "Install steps"},
		{"# Getting Started > ## Installation", "Install steps here", "Config details"},
		{"# Getting Started > ## Configuration", "Config details here", "Introduction"},
	}

	for i, want := range expected {
		if sections[i].Index != i {
			t.Errorf("Section %d index: got %d", i, sections[i].Index)
		}
		if sections[i].HeaderPath != want.path {
			t.Errorf("Section %d HeaderPath: expected %q, got %q", i, want.path, sections[i].HeaderPath)
		}
		if !strings.Contains(sections[i].Content, want.content) {
			t.Errorf("Section %d missing %q", i, want.content)
		}
		if strings.Contains(sections[i].Content, want.absent) {
			t.Errorf("Section %d should not contain %q", i, want.absent)
		}
	}
}

// TestSections_H3StaysInParent checks that H3 is not a split boundary.
func TestSections_H3StaysInParent(t *testing.T) {
	input := "# API Reference\n\nOverview of the API.\n\n## Methods\n\n```go\nfunc DoSomething() error {\n    return nil\n}\n```\n\n### Details\n\n- List item 1\n"

	sections, err := newTestMarkdownSplitter().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}
	if len(sections) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(sections))
	}

	methods := sections[1].Content
	for _, want := range []string{"func DoSomething()", "### Details", "List item 1"} {
		if !strings.Contains(methods, want) {
			t.Errorf("Methods section missing %q", want)
		}
	}
}

// TestSections_Preamble keeps text that precedes the first heading.
func TestSections_Preamble(t *testing.T) {
	input := "Resume of Jane Doe\n\n# Experience\n\nBuilt things.\n"

	sections, err := newTestMarkdownSplitter().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}
	if len(sections) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(sections))
	}
	if sections[0].HeaderPath != "" || !strings.Contains(sections[0].Content, "Jane Doe") {
		t.Errorf("Preamble section wrong: %+v", sections[0])
	}
}

// TestSections_NoHeaders tests document with no headers.
func TestSections_NoHeaders(t *testing.T) {
	input := "This is a document with no headers.\n\nJust plain text content.\n"

	sections, err := newTestMarkdownSplitter().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("Expected 1 section, got %d", len(sections))
	}
	if sections[0].HeaderPath != "" {
		t.Errorf("Expected empty HeaderPath, got %q", sections[0].HeaderPath)
	}
}

// TestMarkdownSplitText_PrependsHeaderPath verifies chunks carry their hierarchy.
func TestMarkdownSplitText_PrependsHeaderPath(t *testing.T) {
	input := "# Title\n\nSome content.\n\n## Section\n\nSection content.\n"

	chunks := newTestMarkdownSplitter().SplitText(input)
	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
	if !strings.HasPrefix(chunks[0], "# Title\n\n") {
		t.Errorf("Chunk 0 doesn't start with header path: %q", chunks[0])
	}
	if !strings.HasPrefix(chunks[1], "# Title > ## Section\n\n") {
		t.Errorf("Chunk 1 doesn't start with header path: %q", chunks[1])
	}
}

// TestMarkdownSplitText_WindowsLongSections splits a section larger than the window.
func TestMarkdownSplitText_WindowsLongSections(t *testing.T) {
	input := "# Big\n\n" + strings.Repeat("word ", 200)

	m := NewMarkdownSplitter(NewSplitter(100, 20, nil))
	chunks := m.SplitText(input)
	if len(chunks) < 5 {
		t.Fatalf("Expected the section to be windowed, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if len([]rune(c)) > 100 {
			t.Errorf("Chunk %d exceeds window: %d", i, len([]rune(c)))
		}
	}
}

func TestFormatHeaderPath(t *testing.T) {
	got := formatHeaderPath([]string{"Installation", "Prerequisites"})
	if got != "# Installation > ## Prerequisites" {
		t.Errorf("unexpected path %q", got)
	}
	if formatHeaderPath(nil) != "" {
		t.Error("empty path should format to empty string")
	}
}
