package chunking

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Section is the text between two H1/H2 headings.
type Section struct {
	Index      int    // Position in document (0, 1, 2...)
	HeaderPath string // Hierarchy: "# Doc Title > ## Section Name"
	Content    string // Section body including its own heading line
}

// MarkdownSplitter splits markdown at H1 and H2 boundaries, prefixes each
// section with its header path and windows long sections with a Splitter.
type MarkdownSplitter struct {
	md       goldmark.Markdown
	splitter *Splitter
}

// NewMarkdownSplitter creates a MarkdownSplitter windowing sections with splitter.
func NewMarkdownSplitter(splitter *Splitter) *MarkdownSplitter {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &MarkdownSplitter{md: md, splitter: splitter}
}

// SplitText returns embedding-ready chunks for a markdown document. Parsing
// failures degrade to plain windowing.
func (m *MarkdownSplitter) SplitText(source string) []string {
	sections, err := m.Sections([]byte(source))
	if err != nil {
		m.splitter.logger.Warn("markdown parse failed, splitting as plain text", "error", err)
		return m.splitter.SplitText(source)
	}

	var chunks []string
	for _, sec := range sections {
		body := sec.Content
		if sec.HeaderPath != "" {
			body = fmt.Sprintf("%s\n\n%s", sec.HeaderPath, sec.Content)
		}
		chunks = append(chunks, m.splitter.SplitText(body)...)
	}
	return chunks
}

// Sections splits source at H1/H2 headings in document order. Text before
// the first heading becomes a section with an empty header path.
func (m *MarkdownSplitter) Sections(source []byte) ([]Section, error) {
	doc := m.md.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	type heading struct {
		path  string
		start int
	}
	var headings []heading
	var walk func(items toc.Items, ancestors []string)
	walk = func(items toc.Items, ancestors []string) {
		for _, item := range items {
			path := append(append([]string(nil), ancestors...), string(item.Title))
			if node := findHeaderByID(doc, string(item.ID)); node != nil && node.Lines().Len() > 0 {
				headings = append(headings, heading{
					path:  formatHeaderPath(path),
					start: headingStart(source, node.Lines().At(0)),
				})
			}
			walk(item.Items, path)
		}
	}
	walk(tree.Items, nil)

	var sections []Section
	add := func(path string, from, to int) {
		content := strings.TrimSpace(string(source[from:to]))
		if content == "" {
			return
		}
		sections = append(sections, Section{
			Index:      len(sections),
			HeaderPath: path,
			Content:    content,
		})
	}

	if len(headings) == 0 {
		add("", 0, len(source))
		return sections, nil
	}

	add("", 0, headings[0].start)
	for i, h := range headings {
		end := len(source)
		if i+1 < len(headings) {
			end = headings[i+1].start
		}
		add(h.path, h.start, end)
	}
	return sections, nil
}

// headingStart moves from the heading text segment back to the start of its
// line so the "#" markers stay with the section.
func headingStart(source []byte, seg text.Segment) int {
	start := seg.Start
	for start > 0 && source[start-1] != '\n' {
		start--
	}
	return start
}

// formatHeaderPath builds a header hierarchy string.
// Example: ["Installation", "Prerequisites"] -> "# Installation > ## Prerequisites"
func formatHeaderPath(path []string) string {
	if len(path) == 0 {
		return ""
	}

	parts := make([]string, 0, len(path))
	for i, segment := range path {
		parts = append(parts, fmt.Sprintf("%s %s", strings.Repeat("#", i+1), segment))
	}
	return strings.Join(parts, " > ")
}

// findHeaderByID locates a heading node by its auto-generated ID.
func findHeaderByID(node ast.Node, id string) ast.Node {
	var found ast.Node
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			headingID, ok := n.AttributeString("id")
			if ok && string(headingID.([]byte)) == id {
				found = n
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}
