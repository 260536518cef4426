package answer

import (
	"strings"
	"unicode"
)

// techTrimChars are stripped from both ends of every item.
const techTrimChars = "- •*()[]{}\"'"

// maxTechItemLen marks longer items as prose.
const maxTechItemLen = 80

var notFoundPhrases = []string{
	"not mentioned",
	"not found",
	"not specified",
	"not listed",
	"n/a",
	"none",
	"no specific",
	"not explicitly",
	"not detailed",
	"complete list",
	"technologies found",
	"extraction",
}

var commonWords = map[string]bool{
	"the": true, "and": true, "or": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "with": true, "from": true, "that": true, "this": true, "are": true, "is": true,
}

var headerTerms = []string{
	"programming languages",
	"frameworks",
	"tools",
	"platforms",
	"databases",
	"skills",
	"technologies",
	"software",
}

// CleanTechStack normalizes a model's free-text tech stack into one
// comma-separated line. It splits on the first delimiter present (newline,
// then comma, then semicolon), strips bullets and quotes, drops
// placeholders, prose and section labels, and removes case-insensitive
// duplicates keeping the first spelling.
func CleanTechStack(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var items []string
	switch {
	case strings.Contains(raw, "\n"):
		for _, line := range strings.Split(raw, "\n") {
			items = append(items, strings.Split(line, ",")...)
		}
	case strings.Contains(raw, ","):
		items = strings.Split(raw, ",")
	case strings.Contains(raw, ";"):
		items = strings.Split(raw, ";")
	default:
		items = []string{raw}
	}

	seen := make(map[string]bool)
	var kept []string
	for _, item := range items {
		item = cleanTechItem(item)
		if item == "" || !isTechName(item) {
			continue
		}
		key := strings.ToLower(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, item)
	}

	return strings.Join(kept, ", ")
}

func cleanTechItem(item string) string {
	item = strings.TrimSpace(item)
	item = strings.Trim(item, techTrimChars)
	item = strings.TrimSpace(item)

	// "Languages: Go" keeps "Go"; "Languages:" becomes a bare label
	if label, value, ok := strings.Cut(item, ":"); ok && !strings.Contains(value, "//") {
		if v := strings.TrimSpace(strings.Trim(value, techTrimChars)); v != "" {
			return v
		}
		return strings.TrimSpace(label)
	}
	return item
}

func isTechName(item string) bool {
	lower := strings.ToLower(item)

	for _, phrase := range notFoundPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}

	if len([]rune(item)) > maxTechItemLen {
		return false
	}

	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	found := make(map[string]bool)
	for _, w := range words {
		if commonWords[w] {
			found[w] = true
		}
	}
	if len(found) > 2 {
		return false
	}

	if len(strings.Fields(item)) < 4 {
		for _, h := range headerTerms {
			if strings.Contains(lower, h) {
				return false
			}
		}
	}

	return true
}
